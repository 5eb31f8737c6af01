package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidFilingEventStatusTransition = errors.New("core: invalid filing event status transition")
	ErrInvalidChannelService              = errors.New("core: invalid channel service")
	ErrFilingEventNotFound                = errors.New("core: filing event not found")
	ErrSubscriptionNotFound               = errors.New("core: subscription not found")
	ErrChannelNotFound                    = errors.New("core: channel not found")
	ErrPostNotFound                       = errors.New("core: post not found")
)

type FilingEventStatus string

const (
	FilingEventStatusNew        FilingEventStatus = "new"
	FilingEventStatusSuccessful FilingEventStatus = "successful"
	FilingEventStatusFailed     FilingEventStatus = "failed"
	FilingEventStatusIgnored    FilingEventStatus = "ignored"
	FilingEventStatusWaiting    FilingEventStatus = "waiting_for_document"
)

// FilingEvent is one (docket, document) pair extracted from an inbound
// filing webhook. One webhook payload may materialize many of these.
type FilingEvent struct {
	ID               string
	DocketID         int64
	DocID            string
	DocumentNumber   *int64
	AttachmentNumber *int64
	ShortDescription string
	LongDescription  string
	Status           FilingEventStatus
	SubscriptionID   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Description prefers the per-document description and falls back to the
// docket entry text when the document carries none.
func (e FilingEvent) Description() string {
	if short := strings.TrimSpace(e.ShortDescription); short != "" {
		return short
	}
	return strings.TrimSpace(e.LongDescription)
}

// Terminal reports whether the event may never be reprocessed.
func (e FilingEvent) Terminal() bool {
	return e.Status == FilingEventStatusFailed || e.Status == FilingEventStatusIgnored
}

func (e *FilingEvent) TransitionTo(status FilingEventStatus, now time.Time) error {
	if e == nil {
		return nil
	}
	if e.Status == status {
		e.UpdatedAt = now
		return nil
	}
	if !filingEventTransitionAllowed(e.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidFilingEventStatusTransition, e.Status, status)
	}
	e.Status = status
	e.UpdatedAt = now
	return nil
}

func filingEventTransitionAllowed(current, next FilingEventStatus) bool {
	allowed := map[FilingEventStatus]map[FilingEventStatus]struct{}{
		FilingEventStatusNew: {
			FilingEventStatusSuccessful: {},
			FilingEventStatusFailed:     {},
		},
		FilingEventStatusSuccessful: {
			FilingEventStatusIgnored: {},
			FilingEventStatusWaiting: {},
		},
		FilingEventStatusWaiting: {
			FilingEventStatusSuccessful: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

// DocketURL is the public CourtListener docket page for the event.
func (e FilingEvent) DocketURL() string {
	return fmt.Sprintf("https://www.courtlistener.com/docket/%d/", e.DocketID)
}

// DocumentOrPacerURL returns the archive link when the document is already
// stored, otherwise the upstream PACER link derived from the doc id.
func (e FilingEvent) DocumentOrPacerURL(archivedPath string) string {
	if path := strings.TrimSpace(archivedPath); path != "" {
		return "https://storage.courtlistener.com/" + strings.TrimPrefix(path, "/")
	}
	return fmt.Sprintf("https://www.courtlistener.com/recap/gov.uscourts.%s/", strings.TrimSpace(e.DocID))
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// Subscription is a docket the bot actively follows.
type Subscription struct {
	ID          string
	DocketID    int64
	Name        string
	CaseSummary string
	Status      SubscriptionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NameWithSummary renders the docket headline used in post templates.
func (s Subscription) NameWithSummary() string {
	name := strings.TrimSpace(s.Name)
	summary := strings.TrimSpace(s.CaseSummary)
	if summary == "" {
		return name
	}
	return name + " (" + summary + ")"
}

type ChannelService string

const (
	ChannelServiceTwitter  ChannelService = "twitter"
	ChannelServiceMastodon ChannelService = "mastodon"
)

func (s ChannelService) Validate() error {
	switch s {
	case ChannelServiceTwitter, ChannelServiceMastodon:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidChannelService, string(s))
}

// Channel is one account on one broadcast service.
type Channel struct {
	ID        string
	Service   ChannelService
	Account   string
	AccountID string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// mastodonAccount matches "@user@instance.tld" handles.
var mastodonAccount = regexp.MustCompile(`^@?([\w.-]+)@([\w.-]+)$`)

// ProfileURL is the public profile page for the channel's account.
func (c Channel) ProfileURL() (string, error) {
	switch c.Service {
	case ChannelServiceTwitter:
		return "https://twitter.com/" + strings.TrimPrefix(strings.TrimSpace(c.Account), "@"), nil
	case ChannelServiceMastodon:
		match := mastodonAccount.FindStringSubmatch(strings.TrimSpace(c.Account))
		if len(match) != 3 {
			return "", fmt.Errorf("core: malformed mastodon account %q", c.Account)
		}
		return fmt.Sprintf("https://%s/@%s", match[2], match[1]), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChannelService, string(c.Service))
}

// Post records one successful submission to one channel. Created at most
// once per (FilingEvent, Channel) pair; never mutated afterwards.
type Post struct {
	ID            string
	FilingEventID string
	ChannelID     string
	ObjectID      string
	Text          string
	CreatedAt     time.Time
}

// Sponsorship funds paid document purchases and optionally stamps a
// watermark message onto generated thumbnails.
type Sponsorship struct {
	ID        string
	Sponsor   string
	Watermark string
	Active    bool
	CreatedAt time.Time
}

// PACER billing: ten cents per page capped at three dollars per document.
const (
	pacerPageCostCents    = 10
	pacerDocumentCapCents = 300
)

// Purchase is one ledger entry for a sponsored document buy.
type Purchase struct {
	ID            string
	SponsorshipID string
	FilingEventID string
	PageCount     int
	CostCents     int
	CreatedAt     time.Time
}

// PurchaseCostCents prices a document the way PACER does.
func PurchaseCostCents(pageCount int) int {
	if pageCount < 1 {
		pageCount = 1
	}
	cost := pageCount * pacerPageCostCents
	if cost > pacerDocumentCapCents {
		return pacerDocumentCapCents
	}
	return cost
}
