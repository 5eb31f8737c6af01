package core

import (
	"context"
	"errors"
)

// MatchEvent links a new filing event to the subscription that follows its
// docket, or parks it as failed when the bot does not follow the case.
// This stage is the sole gate deciding whether an event enters the posting
// pipeline.
func (s *Service) MatchEvent(ctx context.Context, eventID string) (err error) {
	startedAt := s.clock()
	fields := map[string]any{"event_id": eventID}
	defer func() {
		s.observeOperation(ctx, startedAt, "match_event", err, fields)
	}()

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	fields["docket_id"] = event.DocketID

	if event.Status != FilingEventStatusNew {
		// Stale re-run; the event already moved on.
		fields["noop"] = true
		return nil
	}
	if event.DocketID == 0 {
		fields["noop"] = true
		return nil
	}

	subscription, err := s.subscriptions.FindActiveByDocketID(ctx, event.DocketID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			// Unfollowed docket; a permanent condition, never retried.
			_, updateErr := s.events.UpdateStatus(ctx, event.ID, FilingEventStatusFailed)
			if updateErr != nil {
				err = s.mapError(updateErr)
				return err
			}
			fields["matched"] = false
			err = nil
			return nil
		}
		err = s.mapError(err)
		return err
	}

	if _, err = s.events.AttachSubscription(ctx, event.ID, subscription.ID, FilingEventStatusSuccessful); err != nil {
		err = s.mapError(err)
		return err
	}
	fields["matched"] = true
	fields["subscription_id"] = subscription.ID

	// Staged via re-enqueue so a slow archive never blocks a worker.
	if err = s.queue.Enqueue(ctx, &JobMessage{
		JobID:      JobIDScreenEvent,
		Parameters: map[string]any{ParamFilingEventID: event.ID},
	}); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}
