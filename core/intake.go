package core

import (
	"context"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Upstream webhook discriminators. Only docket alerts and fetch
// completions drive this pipeline.
const (
	EventKindDocketAlert   = 1
	EventKindFetchComplete = 3
)

const (
	JobIDMatchEvent  = "pipeline.event.match"
	JobIDScreenEvent = "pipeline.event.screen"
	JobIDResumeEvent = "pipeline.event.resume"
	JobIDComposePost = "pipeline.post.compose"
)

const (
	ParamFilingEventID  = "filing_event_id"
	ParamChannelID      = "channel_id"
	ParamSubscriptionID = "subscription_id"
	ParamDocument       = "document"
	ParamDocumentPath   = "document_path"
	ParamSponsorText    = "sponsor_text"
)

type FilingWebhookEnvelope struct {
	Webhook WebhookInfo    `json:"webhook"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookInfo struct {
	EventType int `json:"event_type"`
}

type WebhookPayload struct {
	Results []WebhookResult `json:"results"`
}

type WebhookResult struct {
	Docket              int64           `json:"docket"`
	Description         string          `json:"description"`
	EntryNumber         *int64          `json:"entry_number"`
	RecapSequenceNumber float64         `json:"recap_sequence_number"`
	RecapDocuments      []RecapDocument `json:"recap_documents"`
}

type RecapDocument struct {
	PacerDocID       string `json:"pacer_doc_id"`
	Description      string `json:"description"`
	AttachmentNumber *int64 `json:"attachment_number"`
}

type FetchWebhookEnvelope struct {
	Webhook WebhookInfo  `json:"webhook"`
	Payload FetchPayload `json:"payload"`
}

type FetchPayload struct {
	FilingEventID string `json:"filing_event_id"`
}

type IntakeResult struct {
	Replayed bool
	Created  []FilingEvent
}

// ProcessFilingWebhook materializes one FilingEvent per document in the
// payload and schedules a delayed match job for each. The idempotency key
// is reserved only after every event is queued, so a crash mid-intake lets
// the sender replay the delivery. Two identical deliveries racing through
// this window can both create events; the composer's per-(event, channel)
// post check is the backstop.
func (s *Service) ProcessFilingWebhook(
	ctx context.Context,
	idempotencyKey string,
	envelope FilingWebhookEnvelope,
) (result IntakeResult, err error) {
	startedAt := s.clock()
	fields := map[string]any{
		"event_kind": envelope.Webhook.EventType,
	}
	defer func() {
		fields["replayed"] = result.Replayed
		fields["created"] = len(result.Created)
		s.observeOperation(ctx, startedAt, "filing_webhook", err, fields)
	}()

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		err = s.errorFactory("idempotency key header is required", goerrors.CategoryBadInput).
			WithTextCode(PipelineErrorMissingIdempotencyKey)
		return IntakeResult{}, err
	}
	if envelope.Webhook.EventType != EventKindDocketAlert {
		err = s.errorFactory("webhook event type is not supported", goerrors.CategoryBadInput).
			WithTextCode(PipelineErrorUnsupportedEventKind).
			WithMetadata(map[string]any{"event_kind": envelope.Webhook.EventType})
		return IntakeResult{}, err
	}

	seen, err := s.idempotency.Exists(ctx, idempotencyKey)
	if err != nil {
		err = s.mapError(err)
		return IntakeResult{}, err
	}
	if seen {
		// Replay of an already-handled delivery is a silent success.
		result = IntakeResult{Replayed: true}
		return result, nil
	}

	// Posting should reflect filing order, not network arrival order.
	results := append([]WebhookResult(nil), envelope.Payload.Results...)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RecapSequenceNumber < results[j].RecapSequenceNumber
	})

	created := make([]FilingEvent, 0, len(results))
	for _, entry := range results {
		for _, doc := range entry.RecapDocuments {
			event, createErr := s.events.Create(ctx, CreateFilingEventInput{
				DocketID:         entry.Docket,
				DocID:            strings.TrimSpace(doc.PacerDocID),
				DocumentNumber:   entry.EntryNumber,
				AttachmentNumber: doc.AttachmentNumber,
				ShortDescription: doc.Description,
				LongDescription:  entry.Description,
			})
			if createErr != nil {
				err = s.mapError(createErr)
				return IntakeResult{}, err
			}
			if enqueueErr := s.queue.Enqueue(ctx, &JobMessage{
				JobID:      JobIDMatchEvent,
				Parameters: map[string]any{ParamFilingEventID: event.ID},
				Delay:      s.config.WebhookDelay,
			}); enqueueErr != nil {
				err = s.mapError(enqueueErr)
				return IntakeResult{}, err
			}
			created = append(created, event)
		}
	}

	if reserveErr := s.idempotency.Reserve(ctx, idempotencyKey, s.config.IdempotencyTTL); reserveErr != nil {
		err = s.mapError(reserveErr)
		return IntakeResult{}, err
	}

	result = IntakeResult{Created: created}
	return result, nil
}

// ProcessFetchWebhook accepts a document-ready notification and schedules
// the resume stage with the bounded posting retry policy.
func (s *Service) ProcessFetchWebhook(
	ctx context.Context,
	idempotencyKey string,
	envelope FetchWebhookEnvelope,
) (replayed bool, err error) {
	startedAt := s.clock()
	fields := map[string]any{
		"event_kind": envelope.Webhook.EventType,
		"event_id":   envelope.Payload.FilingEventID,
	}
	defer func() {
		fields["replayed"] = replayed
		s.observeOperation(ctx, startedAt, "fetch_webhook", err, fields)
	}()

	if envelope.Webhook.EventType != EventKindFetchComplete {
		err = s.errorFactory("webhook event type is not supported", goerrors.CategoryBadInput).
			WithTextCode(PipelineErrorUnsupportedEventKind).
			WithMetadata(map[string]any{"event_kind": envelope.Webhook.EventType})
		return false, err
	}
	eventID := strings.TrimSpace(envelope.Payload.FilingEventID)
	if eventID == "" {
		err = s.errorFactory("filing event reference is required", goerrors.CategoryBadInput).
			WithTextCode(PipelineErrorBadInput)
		return false, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		seen, existsErr := s.idempotency.Exists(ctx, idempotencyKey)
		if existsErr != nil {
			err = s.mapError(existsErr)
			return false, err
		}
		if seen {
			replayed = true
			return replayed, nil
		}
	}

	if enqueueErr := s.queue.Enqueue(ctx, &JobMessage{
		JobID:      JobIDResumeEvent,
		Parameters: map[string]any{ParamFilingEventID: eventID},
		Retry:      s.postingRetryPolicy(),
	}); enqueueErr != nil {
		err = s.mapError(enqueueErr)
		return false, err
	}

	if idempotencyKey != "" {
		if reserveErr := s.idempotency.Reserve(ctx, idempotencyKey, s.config.IdempotencyTTL); reserveErr != nil {
			err = s.mapError(reserveErr)
			return false, err
		}
	}
	return false, nil
}

func (s *Service) postingRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: s.config.Posting.MaxAttempts,
		Interval:    s.config.Posting.RetryInterval,
	}
}
