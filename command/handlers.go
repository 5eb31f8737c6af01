package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/rcmckee/bigcases2/core"
)

type MutatingService interface {
	ProcessFilingWebhook(ctx context.Context, idempotencyKey string, envelope core.FilingWebhookEnvelope) (core.IntakeResult, error)
	ProcessFetchWebhook(ctx context.Context, idempotencyKey string, envelope core.FetchWebhookEnvelope) (bool, error)
	MatchEvent(ctx context.Context, eventID string) error
	ScreenEvent(ctx context.Context, eventID string) error
	ResumeFetchedEvent(ctx context.Context, eventID string) error
	ComposePost(ctx context.Context, args core.PostJobArgs) (core.Post, error)
}

type ProcessFilingWebhookCommand struct {
	service MutatingService
}

func NewProcessFilingWebhookCommand(service MutatingService) *ProcessFilingWebhookCommand {
	return &ProcessFilingWebhookCommand{service: service}
}

func (c *ProcessFilingWebhookCommand) Execute(ctx context.Context, msg ProcessFilingWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook intake service is required")
	}
	out, err := c.service.ProcessFilingWebhook(ctx, msg.IdempotencyKey, msg.Envelope)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ProcessFetchWebhookCommand struct {
	service MutatingService
}

func NewProcessFetchWebhookCommand(service MutatingService) *ProcessFetchWebhookCommand {
	return &ProcessFetchWebhookCommand{service: service}
}

func (c *ProcessFetchWebhookCommand) Execute(ctx context.Context, msg ProcessFetchWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook intake service is required")
	}
	replayed, err := c.service.ProcessFetchWebhook(ctx, msg.IdempotencyKey, msg.Envelope)
	if err != nil {
		return err
	}
	storeResult(ctx, replayed)
	return nil
}

type MatchEventCommand struct {
	service MutatingService
}

func NewMatchEventCommand(service MutatingService) *MatchEventCommand {
	return &MatchEventCommand{service: service}
}

func (c *MatchEventCommand) Execute(ctx context.Context, msg MatchEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: matching service is required")
	}
	return c.service.MatchEvent(ctx, msg.FilingEventID)
}

type ScreenEventCommand struct {
	service MutatingService
}

func NewScreenEventCommand(service MutatingService) *ScreenEventCommand {
	return &ScreenEventCommand{service: service}
}

func (c *ScreenEventCommand) Execute(ctx context.Context, msg ScreenEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: screening service is required")
	}
	return c.service.ScreenEvent(ctx, msg.FilingEventID)
}

type ResumeEventCommand struct {
	service MutatingService
}

func NewResumeEventCommand(service MutatingService) *ResumeEventCommand {
	return &ResumeEventCommand{service: service}
}

func (c *ResumeEventCommand) Execute(ctx context.Context, msg ResumeEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: resume service is required")
	}
	return c.service.ResumeFetchedEvent(ctx, msg.FilingEventID)
}

type ComposePostCommand struct {
	service MutatingService
}

func NewComposePostCommand(service MutatingService) *ComposePostCommand {
	return &ComposePostCommand{service: service}
}

func (c *ComposePostCommand) Execute(ctx context.Context, msg ComposePostMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: composer service is required")
	}
	out, err := c.service.ComposePost(ctx, msg.Args)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
