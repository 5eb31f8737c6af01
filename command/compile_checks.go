package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessFilingWebhookMessage] = (*ProcessFilingWebhookCommand)(nil)
	_ gocmd.Commander[ProcessFetchWebhookMessage]  = (*ProcessFetchWebhookCommand)(nil)
	_ gocmd.Commander[MatchEventMessage]           = (*MatchEventCommand)(nil)
	_ gocmd.Commander[ScreenEventMessage]          = (*ScreenEventCommand)(nil)
	_ gocmd.Commander[ResumeEventMessage]          = (*ResumeEventCommand)(nil)
	_ gocmd.Commander[ComposePostMessage]          = (*ComposePostCommand)(nil)
)
