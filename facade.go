package bigcases2

import (
	"fmt"

	pipelinecommand "github.com/rcmckee/bigcases2/command"
)

// Commands bundles the dispatchable command handlers over one pipeline
// service so callers can register them with a go-command router in one go.
type Commands struct {
	ProcessFilingWebhook *pipelinecommand.ProcessFilingWebhookCommand
	ProcessFetchWebhook  *pipelinecommand.ProcessFetchWebhookCommand
	MatchEvent           *pipelinecommand.MatchEventCommand
	ScreenEvent          *pipelinecommand.ScreenEventCommand
	ResumeEvent          *pipelinecommand.ResumeEventCommand
	ComposePost          *pipelinecommand.ComposePostCommand
}

type Facade struct {
	service  pipelinecommand.MutatingService
	commands Commands
}

func NewFacade(service pipelinecommand.MutatingService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("bigcases2: pipeline service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ProcessFilingWebhook: pipelinecommand.NewProcessFilingWebhookCommand(service),
		ProcessFetchWebhook:  pipelinecommand.NewProcessFetchWebhookCommand(service),
		MatchEvent:           pipelinecommand.NewMatchEventCommand(service),
		ScreenEvent:          pipelinecommand.NewScreenEventCommand(service),
		ResumeEvent:          pipelinecommand.NewResumeEventCommand(service),
		ComposePost:          pipelinecommand.NewComposePostCommand(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Service() pipelinecommand.MutatingService {
	if f == nil {
		return nil
	}
	return f.service
}
