package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Reserved parameter keys the scheduling layer stamps onto messages.
const (
	ParamNotBefore = "_not_before"
	ParamAttempt   = "_attempt"
)

// JobRunner drains a dequeuer and routes each delivery to its pipeline
// stage. Deliveries that arrive before their scheduled time are requeued
// with the remaining delay; failing deliveries are retried up to the
// message's retry budget and then dead-lettered.
type JobRunner struct {
	service  *Service
	dequeuer JobDequeuer
	logger   Logger
	now      func() time.Time
}

func NewJobRunner(service *Service, dequeuer JobDequeuer) (*JobRunner, error) {
	if service == nil {
		return nil, fmt.Errorf("core: job runner requires a service")
	}
	if dequeuer == nil {
		return nil, fmt.Errorf("core: job runner requires a dequeuer")
	}
	return &JobRunner{
		service:  service,
		dequeuer: dequeuer,
		logger:   service.logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Run consumes deliveries until the context is canceled or the dequeuer
// reports a terminal error.
func (r *JobRunner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := r.dequeuer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return r.service.mapError(err)
		}
		if delivery == nil {
			continue
		}
		if err := r.Handle(ctx, delivery); err != nil {
			return err
		}
	}
}

// Handle processes a single delivery. The returned error reflects ack/nack
// transport failures only; handler failures are absorbed into the retry
// cycle.
func (r *JobRunner) Handle(ctx context.Context, delivery JobDelivery) error {
	msg := delivery.Message()
	if msg == nil {
		return delivery.Nack(ctx, JobNackOptions{
			DeadLetter: true,
			Reason:     "delivery carries no message",
		})
	}

	if remaining, pending := r.pendingDelay(msg); pending {
		return delivery.Nack(ctx, JobNackOptions{
			Delay:   remaining,
			Requeue: true,
		})
	}

	err := r.dispatch(ctx, msg)
	if err == nil {
		return delivery.Ack(ctx)
	}

	attempt := attemptFromParameters(msg.Parameters)
	maxAttempts := msg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = r.service.config.Posting.MaxAttempts
	}
	if attempt >= maxAttempts {
		r.logWithFields("job exhausted its retry budget", map[string]any{
			"job_id":  msg.JobID,
			"attempt": attempt,
			"error":   err.Error(),
		})
		return delivery.Nack(ctx, JobNackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		})
	}

	if msg.Parameters == nil {
		msg.Parameters = map[string]any{}
	}
	msg.Parameters[ParamAttempt] = attempt + 1
	interval := msg.Retry.Interval
	if interval <= 0 {
		interval = r.service.config.Posting.RetryInterval
	}
	r.logWithFields("job failed, scheduling retry", map[string]any{
		"job_id":  msg.JobID,
		"attempt": attempt,
		"error":   err.Error(),
	})
	return delivery.Nack(ctx, JobNackOptions{
		Delay:   interval,
		Requeue: true,
		Reason:  err.Error(),
	})
}

func (r *JobRunner) dispatch(ctx context.Context, msg *JobMessage) error {
	switch msg.JobID {
	case JobIDMatchEvent:
		eventID, err := requiredStringParameter(msg.Parameters, ParamFilingEventID)
		if err != nil {
			return err
		}
		return r.service.MatchEvent(ctx, eventID)
	case JobIDScreenEvent:
		eventID, err := requiredStringParameter(msg.Parameters, ParamFilingEventID)
		if err != nil {
			return err
		}
		return r.service.ScreenEvent(ctx, eventID)
	case JobIDResumeEvent:
		eventID, err := requiredStringParameter(msg.Parameters, ParamFilingEventID)
		if err != nil {
			return err
		}
		return r.service.ResumeFetchedEvent(ctx, eventID)
	case JobIDComposePost:
		args, err := postArgsFromParameters(msg.Parameters)
		if err != nil {
			return err
		}
		_, err = r.service.ComposePost(ctx, args)
		return err
	default:
		return fmt.Errorf("core: unknown job id %q", msg.JobID)
	}
}

func (r *JobRunner) pendingDelay(msg *JobMessage) (time.Duration, bool) {
	raw, ok := msg.Parameters[ParamNotBefore]
	if !ok {
		return 0, false
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return 0, false
	}
	notBefore, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, false
	}
	remaining := notBefore.Sub(r.now())
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

func (r *JobRunner) logWithFields(msg string, fields map[string]any) {
	if r.logger == nil {
		return
	}
	if fl, ok := r.logger.(FieldsLogger); ok {
		fl.WithFields(fields).Warn(msg)
		return
	}
	r.logger.Warn(msg, flattenFields(fields)...)
}

func postArgsFromParameters(params map[string]any) (PostJobArgs, error) {
	channelID, err := requiredStringParameter(params, ParamChannelID)
	if err != nil {
		return PostJobArgs{}, err
	}
	eventID, err := requiredStringParameter(params, ParamFilingEventID)
	if err != nil {
		return PostJobArgs{}, err
	}
	return PostJobArgs{
		ChannelID:      channelID,
		SubscriptionID: stringParameter(params, ParamSubscriptionID),
		FilingEventID:  eventID,
		Document:       bytesParameter(params, ParamDocument),
		DocumentPath:   stringParameter(params, ParamDocumentPath),
		SponsorText:    stringParameter(params, ParamSponsorText),
	}, nil
}

func requiredStringParameter(params map[string]any, key string) (string, error) {
	value := stringParameter(params, key)
	if value == "" {
		return "", fmt.Errorf("core: job parameter %q is required", key)
	}
	return value, nil
}

func stringParameter(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	switch v := params[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// bytesParameter accepts raw bytes or the base64 form a JSON round trip
// through the queue produces.
func bytesParameter(params map[string]any, key string) []byte {
	if params == nil {
		return nil
	}
	switch v := params[key].(type) {
	case []byte:
		return v
	case string:
		if v == "" {
			return nil
		}
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil
		}
		return decoded
	default:
		return nil
	}
}

func attemptFromParameters(params map[string]any) int {
	if params == nil {
		return 1
	}
	switch v := params[ParamAttempt].(type) {
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 1
}
