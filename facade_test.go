package bigcases2

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	pipelinecommand "github.com/rcmckee/bigcases2/command"
	"github.com/rcmckee/bigcases2/core"
)

func TestNewFacade_WiresCommands(t *testing.T) {
	svc := &stubFacadeService{}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.ProcessFilingWebhook == nil || commands.ProcessFetchWebhook == nil {
		t.Fatalf("expected webhook command handlers to be wired")
	}
	if commands.MatchEvent == nil || commands.ScreenEvent == nil || commands.ResumeEvent == nil {
		t.Fatalf("expected pipeline command handlers to be wired")
	}
	if commands.ComposePost == nil {
		t.Fatalf("expected compose command handler to be wired")
	}
	if facade.Service() == nil {
		t.Fatalf("expected service accessor to return the wired service")
	}
}

func TestFacade_CommandDelegation(t *testing.T) {
	svc := &stubFacadeService{}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.IntakeResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().ProcessFilingWebhook.Execute(ctx, pipelinecommand.ProcessFilingWebhookMessage{
		IdempotencyKey: "delivery-1",
		Envelope: core.FilingWebhookEnvelope{
			Webhook: core.WebhookInfo{EventType: core.EventKindDocketAlert},
		},
	}); err != nil {
		t.Fatalf("execute filing webhook command: %v", err)
	}
	if svc.lastIdempotencyKey != "delivery-1" {
		t.Fatalf("unexpected idempotency key delegation: %q", svc.lastIdempotencyKey)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected intake result to be collected")
	}
	if len(result.Created) != 1 || result.Created[0].ID != "event-1" {
		t.Fatalf("unexpected intake result: %#v", result)
	}

	if err := facade.Commands().ResumeEvent.Execute(context.Background(), pipelinecommand.ResumeEventMessage{
		FilingEventID: "event-9",
	}); err != nil {
		t.Fatalf("execute resume command: %v", err)
	}
	if svc.lastResumeEventID != "event-9" {
		t.Fatalf("unexpected resume delegation: %q", svc.lastResumeEventID)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

type stubFacadeService struct {
	lastIdempotencyKey string
	lastResumeEventID  string
}

func (s *stubFacadeService) ProcessFilingWebhook(
	_ context.Context,
	idempotencyKey string,
	_ core.FilingWebhookEnvelope,
) (core.IntakeResult, error) {
	s.lastIdempotencyKey = idempotencyKey
	return core.IntakeResult{Created: []core.FilingEvent{{ID: "event-1"}}}, nil
}

func (s *stubFacadeService) ProcessFetchWebhook(
	_ context.Context,
	idempotencyKey string,
	_ core.FetchWebhookEnvelope,
) (bool, error) {
	s.lastIdempotencyKey = idempotencyKey
	return false, nil
}

func (s *stubFacadeService) MatchEvent(context.Context, string) error {
	return nil
}

func (s *stubFacadeService) ScreenEvent(context.Context, string) error {
	return nil
}

func (s *stubFacadeService) ResumeFetchedEvent(_ context.Context, eventID string) error {
	s.lastResumeEventID = eventID
	return nil
}

func (s *stubFacadeService) ComposePost(context.Context, core.PostJobArgs) (core.Post, error) {
	return core.Post{}, nil
}

var _ pipelinecommand.MutatingService = (*stubFacadeService)(nil)
