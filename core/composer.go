package core

import (
	"context"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type PostJobArgs struct {
	ChannelID      string
	SubscriptionID string
	FilingEventID  string
	Document       []byte
	DocumentPath   string
	SponsorText    string
}

// Thumbnail page ranges: templates that fill the inline image slot leave
// room for three attachments, text-only templates get four.
var (
	thumbnailPagesWithImage    = []int{1, 2, 3}
	thumbnailPagesWithoutImage = []int{1, 2, 3, 4}
)

// ComposePost is the per-channel job body. It re-loads every record by id
// (stale closures don't survive retries), renders the channel template,
// derives thumbnails, submits through the channel's client, and persists
// the Post. The existing-post check keeps retries after a partial external
// success from double-submitting.
func (s *Service) ComposePost(ctx context.Context, args PostJobArgs) (post Post, err error) {
	startedAt := s.clock()
	fields := map[string]any{
		"event_id":   args.FilingEventID,
		"channel_id": args.ChannelID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "compose_post", err, fields)
	}()

	if s.posts == nil || s.channels == nil || s.subscriptions == nil {
		err = s.errorFactory("post, channel, and subscription stores are required", goerrors.CategoryInternal).
			WithTextCode(PipelineErrorInternal)
		return Post{}, err
	}

	existing, findErr := s.posts.FindByEventAndChannel(ctx, args.FilingEventID, args.ChannelID)
	if findErr == nil {
		fields["noop"] = true
		return existing, nil
	}
	if !errors.Is(findErr, ErrPostNotFound) {
		err = s.mapError(findErr)
		return Post{}, err
	}

	channel, err := s.channels.Get(ctx, args.ChannelID)
	if err != nil {
		err = s.mapError(err)
		return Post{}, err
	}
	if !channel.Enabled {
		// Channel was switched off between dispatch and execution.
		fields["noop"] = true
		return Post{}, nil
	}
	subscription, err := s.subscriptions.Get(ctx, args.SubscriptionID)
	if err != nil {
		err = s.mapError(err)
		return Post{}, err
	}
	event, err := s.events.Get(ctx, args.FilingEventID)
	if err != nil {
		err = s.mapError(err)
		return Post{}, err
	}

	template, err := s.templates.ResolveTemplate(channel.Service, event.DocumentNumber)
	if err != nil {
		err = s.mapError(err)
		return Post{}, err
	}
	rendered, err := template.Render(TemplateFields{
		Docket:      subscription.NameWithSummary(),
		Description: event.Description(),
		DocNumber:   event.DocumentNumber,
		PDFLink:     event.DocumentOrPacerURL(args.DocumentPath),
		DocketLink:  event.DocketURL(),
	})
	if err != nil {
		err = s.mapError(err)
		return Post{}, err
	}

	var files []ImageFile
	if len(args.Document) > 0 && s.thumbnails != nil {
		pages := thumbnailPagesWithoutImage
		if rendered.Image != nil {
			pages = thumbnailPagesWithImage
		}
		files, err = s.thumbnails.Render(ctx, args.Document, pages)
		if err != nil {
			err = s.mapError(err)
			return Post{}, err
		}
	}
	if strings.TrimSpace(args.SponsorText) != "" && len(files) > 0 && s.watermarks != nil {
		files, err = s.watermarks.Apply(ctx, files, args.SponsorText)
		if err != nil {
			err = s.mapError(err)
			return Post{}, err
		}
	}

	client, err := s.clients.ClientFor(channel)
	if err != nil {
		err = s.mapError(err)
		return Post{}, err
	}
	objectID, err := client.Submit(ctx, rendered.Text, rendered.Image, files)
	if err != nil {
		err = s.mapError(err)
		return Post{}, err
	}

	// Persist right after the external submit so an immediate retry finds
	// the record and no-ops instead of resubmitting.
	post, err = s.posts.Create(ctx, CreatePostInput{
		FilingEventID: event.ID,
		ChannelID:     channel.ID,
		ObjectID:      objectID,
		Text:          rendered.Text,
	})
	if err != nil {
		err = s.mapError(err)
		return Post{}, err
	}
	fields["post_id"] = post.ID
	return post, nil
}
