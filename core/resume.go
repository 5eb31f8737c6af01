package core

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ResumeFetchedEvent finishes an event that waited for a paid document:
// the fetch webhook told us the archive now holds it. The purchase is
// booked against the active sponsorship and dispatch always carries the
// document.
func (s *Service) ResumeFetchedEvent(ctx context.Context, eventID string) (err error) {
	startedAt := s.clock()
	fields := map[string]any{"event_id": eventID}
	defer func() {
		s.observeOperation(ctx, startedAt, "resume_event", err, fields)
	}()

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	fields["docket_id"] = event.DocketID

	if strings.TrimSpace(event.SubscriptionID) == "" {
		err = s.errorFactory(
			"invariant violation: fetched event has no subscription link",
			goerrors.CategoryInternal,
		).WithTextCode(PipelineErrorInvariant).
			WithMetadata(map[string]any{"event_id": event.ID})
		return err
	}
	if event.Terminal() {
		fields["noop"] = true
		return nil
	}

	event, err = s.events.UpdateStatus(ctx, event.ID, FilingEventStatusSuccessful)
	if err != nil {
		err = s.mapError(err)
		return err
	}

	lookup, err := s.archive.Lookup(ctx, event.DocID)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	document, err := s.archive.Download(ctx, lookup.FilepathLocal)
	if err != nil {
		err = s.mapError(err)
		return err
	}

	sponsorText := ""
	if s.ledger != nil {
		sponsorship, active, ledgerErr := s.ledger.Active(ctx)
		if ledgerErr != nil {
			err = s.mapError(ledgerErr)
			return err
		}
		if active {
			sponsorText = sponsorship.Watermark
			if _, logErr := s.ledger.LogPurchase(ctx, LogPurchaseInput{
				SponsorshipID: sponsorship.ID,
				FilingEventID: event.ID,
				PageCount:     lookup.PageCount,
			}); logErr != nil {
				err = s.mapError(logErr)
				return err
			}
		}
	}

	err = s.dispatchPosts(ctx, event, document, lookup.FilepathLocal, sponsorText)
	return err
}
