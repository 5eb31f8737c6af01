package command

import (
	"fmt"
	"strings"

	"github.com/rcmckee/bigcases2/core"
)

const (
	TypeProcessFilingWebhook = "pipeline.command.webhook.filing"
	TypeProcessFetchWebhook  = "pipeline.command.webhook.fetch"
	TypeMatchEvent           = "pipeline.command.event.match"
	TypeScreenEvent          = "pipeline.command.event.screen"
	TypeResumeEvent          = "pipeline.command.event.resume"
	TypeComposePost          = "pipeline.command.post.compose"
)

type ProcessFilingWebhookMessage struct {
	IdempotencyKey string
	Envelope       core.FilingWebhookEnvelope
}

func (ProcessFilingWebhookMessage) Type() string { return TypeProcessFilingWebhook }

func (m ProcessFilingWebhookMessage) Validate() error {
	if strings.TrimSpace(m.IdempotencyKey) == "" {
		return fmt.Errorf("command: idempotency key is required")
	}
	return nil
}

type ProcessFetchWebhookMessage struct {
	IdempotencyKey string
	Envelope       core.FetchWebhookEnvelope
}

func (ProcessFetchWebhookMessage) Type() string { return TypeProcessFetchWebhook }

func (m ProcessFetchWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Envelope.Payload.FilingEventID) == "" {
		return fmt.Errorf("command: filing event reference is required")
	}
	return nil
}

type MatchEventMessage struct {
	FilingEventID string
}

func (MatchEventMessage) Type() string { return TypeMatchEvent }

func (m MatchEventMessage) Validate() error {
	if strings.TrimSpace(m.FilingEventID) == "" {
		return fmt.Errorf("command: filing event id is required")
	}
	return nil
}

type ScreenEventMessage struct {
	FilingEventID string
}

func (ScreenEventMessage) Type() string { return TypeScreenEvent }

func (m ScreenEventMessage) Validate() error {
	if strings.TrimSpace(m.FilingEventID) == "" {
		return fmt.Errorf("command: filing event id is required")
	}
	return nil
}

type ResumeEventMessage struct {
	FilingEventID string
}

func (ResumeEventMessage) Type() string { return TypeResumeEvent }

func (m ResumeEventMessage) Validate() error {
	if strings.TrimSpace(m.FilingEventID) == "" {
		return fmt.Errorf("command: filing event id is required")
	}
	return nil
}

type ComposePostMessage struct {
	Args core.PostJobArgs
}

func (ComposePostMessage) Type() string { return TypeComposePost }

func (m ComposePostMessage) Validate() error {
	if strings.TrimSpace(m.Args.ChannelID) == "" {
		return fmt.Errorf("command: channel id is required")
	}
	if strings.TrimSpace(m.Args.FilingEventID) == "" {
		return fmt.Errorf("command: filing event id is required")
	}
	return nil
}
