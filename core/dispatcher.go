package core

import (
	"context"
	"fmt"
)

// dispatchPosts schedules one retryable compose job per enabled channel.
// Each channel's job is independent: exhausted retries on one never block
// or fail the others.
func (s *Service) dispatchPosts(
	ctx context.Context,
	event FilingEvent,
	document []byte,
	documentPath string,
	sponsorText string,
) error {
	if s.channels == nil {
		return fmt.Errorf("core: channel store is required for dispatch")
	}
	enabled, err := s.channels.ListEnabled(ctx)
	if err != nil {
		return s.mapError(err)
	}

	for _, channel := range enabled {
		if !channel.Enabled {
			continue
		}
		msg := &JobMessage{
			JobID: JobIDComposePost,
			Parameters: map[string]any{
				ParamChannelID:      channel.ID,
				ParamSubscriptionID: event.SubscriptionID,
				ParamFilingEventID:  event.ID,
				ParamDocumentPath:   documentPath,
				ParamSponsorText:    sponsorText,
			},
			Retry: s.postingRetryPolicy(),
		}
		if len(document) > 0 {
			msg.Parameters[ParamDocument] = append([]byte(nil), document...)
		}
		if err := s.queue.Enqueue(ctx, msg); err != nil {
			return s.mapError(err)
		}
	}
	return nil
}
