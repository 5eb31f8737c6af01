package core

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ScreenEvent decides what a matched event becomes: ignored junk, a post
// with the archived document, a text-only post, or a purchase that parks
// the event until the fetch webhook resumes it.
func (s *Service) ScreenEvent(ctx context.Context, eventID string) (err error) {
	startedAt := s.clock()
	fields := map[string]any{"event_id": eventID}
	defer func() {
		s.observeOperation(ctx, startedAt, "screen_event", err, fields)
	}()

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	fields["docket_id"] = event.DocketID

	if event.Status == FilingEventStatusWaiting {
		// A prior run committed the wait state but may have died before the
		// purchase call went out; re-issue it.
		err = s.triggerPurchase(ctx, event)
		return err
	}
	if event.Status != FilingEventStatusSuccessful {
		fields["noop"] = true
		return nil
	}
	if strings.TrimSpace(event.SubscriptionID) == "" {
		err = s.errorFactory(
			"invariant violation: matched event has no subscription link",
			goerrors.CategoryInternal,
		).WithTextCode(PipelineErrorInvariant).
			WithMetadata(map[string]any{"event_id": event.ID})
		return err
	}

	if ShouldIgnoreDescription(event.Description()) {
		if _, updateErr := s.events.UpdateStatus(ctx, event.ID, FilingEventStatusIgnored); updateErr != nil {
			err = s.mapError(updateErr)
			return err
		}
		fields["decision"] = "ignored"
		return nil
	}

	lookup, err := s.archive.Lookup(ctx, event.DocID)
	if err != nil {
		err = s.mapError(err)
		return err
	}

	var document []byte
	if strings.TrimSpace(lookup.FilepathLocal) != "" {
		document, err = s.archive.Download(ctx, lookup.FilepathLocal)
		if err != nil {
			err = s.mapError(err)
			return err
		}
	} else if s.ledger != nil {
		sponsorship, active, ledgerErr := s.ledger.Active(ctx)
		if ledgerErr != nil {
			err = s.mapError(ledgerErr)
			return err
		}
		if active && sponsorship.ID != "" &&
			strings.TrimSpace(event.DocID) != "" &&
			!ShouldNotPayForDescription(event.Description()) {
			// Commit the wait state before the external purchase call so a
			// network failure never strands an uncommitted transition.
			if _, updateErr := s.events.UpdateStatus(ctx, event.ID, FilingEventStatusWaiting); updateErr != nil {
				err = s.mapError(updateErr)
				return err
			}
			fields["decision"] = "purchase"
			err = s.triggerPurchase(ctx, event)
			return err
		}
	}

	// Document in hand, or nothing worth paying for. Post either way.
	if document == nil {
		fields["decision"] = "post_text_only"
	} else {
		fields["decision"] = "post_with_document"
	}
	err = s.dispatchPosts(ctx, event, document, lookup.FilepathLocal, "")
	return err
}

func (s *Service) triggerPurchase(ctx context.Context, event FilingEvent) error {
	if s.purchaser == nil {
		return s.errorFactory("purchase service is required", goerrors.CategoryInternal).
			WithTextCode(PipelineErrorInternal)
	}
	if err := s.purchaser.Purchase(ctx, event.DocID); err != nil {
		return s.mapError(err)
	}
	return nil
}
