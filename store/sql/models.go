package sqlstore

import (
	"time"

	"github.com/rcmckee/bigcases2/core"
	"github.com/uptrace/bun"
)

type filingEventRecord struct {
	bun.BaseModel `bun:"table:filing_events,alias:fe"`

	ID               string    `bun:"id,pk"`
	DocketID         int64     `bun:"docket_id,notnull"`
	DocID            string    `bun:"doc_id"`
	DocumentNumber   *int64    `bun:"document_number"`
	AttachmentNumber *int64    `bun:"attachment_number"`
	ShortDescription string    `bun:"short_description"`
	LongDescription  string    `bun:"long_description"`
	Status           string    `bun:"status,notnull"`
	SubscriptionID   *string   `bun:"subscription_id"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *filingEventRecord) toDomain() core.FilingEvent {
	subscriptionID := ""
	if r.SubscriptionID != nil {
		subscriptionID = *r.SubscriptionID
	}
	return core.FilingEvent{
		ID:               r.ID,
		DocketID:         r.DocketID,
		DocID:            r.DocID,
		DocumentNumber:   cloneInt64Pointer(r.DocumentNumber),
		AttachmentNumber: cloneInt64Pointer(r.AttachmentNumber),
		ShortDescription: r.ShortDescription,
		LongDescription:  r.LongDescription,
		Status:           core.FilingEventStatus(r.Status),
		SubscriptionID:   subscriptionID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type subscriptionRecord struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sub"`

	ID          string    `bun:"id,pk"`
	DocketID    int64     `bun:"docket_id,notnull"`
	Name        string    `bun:"name,notnull"`
	CaseSummary string    `bun:"case_summary"`
	Status      string    `bun:"status,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *subscriptionRecord) toDomain() core.Subscription {
	return core.Subscription{
		ID:          r.ID,
		DocketID:    r.DocketID,
		Name:        r.Name,
		CaseSummary: r.CaseSummary,
		Status:      core.SubscriptionStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type channelRecord struct {
	bun.BaseModel `bun:"table:channels,alias:ch"`

	ID        string    `bun:"id,pk"`
	Service   string    `bun:"service,notnull"`
	Account   string    `bun:"account,notnull"`
	AccountID string    `bun:"account_id"`
	Enabled   bool      `bun:"enabled,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *channelRecord) toDomain() core.Channel {
	return core.Channel{
		ID:        r.ID,
		Service:   core.ChannelService(r.Service),
		Account:   r.Account,
		AccountID: r.AccountID,
		Enabled:   r.Enabled,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type postRecord struct {
	bun.BaseModel `bun:"table:posts,alias:po"`

	ID            string    `bun:"id,pk"`
	FilingEventID string    `bun:"filing_event_id,notnull"`
	ChannelID     string    `bun:"channel_id,notnull"`
	ObjectID      string    `bun:"object_id,notnull"`
	Text          string    `bun:"text,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *postRecord) toDomain() core.Post {
	return core.Post{
		ID:            r.ID,
		FilingEventID: r.FilingEventID,
		ChannelID:     r.ChannelID,
		ObjectID:      r.ObjectID,
		Text:          r.Text,
		CreatedAt:     r.CreatedAt,
	}
}

type idempotencyKeyRecord struct {
	bun.BaseModel `bun:"table:idempotency_keys,alias:ik"`

	ID        string    `bun:"id,pk"`
	Key       string    `bun:"key,notnull,unique"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type sponsorshipRecord struct {
	bun.BaseModel `bun:"table:sponsorships,alias:sp"`

	ID        string    `bun:"id,pk"`
	Sponsor   string    `bun:"sponsor,notnull"`
	Watermark string    `bun:"watermark"`
	Active    bool      `bun:"active,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *sponsorshipRecord) toDomain() core.Sponsorship {
	return core.Sponsorship{
		ID:        r.ID,
		Sponsor:   r.Sponsor,
		Watermark: r.Watermark,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
}

type purchaseRecord struct {
	bun.BaseModel `bun:"table:purchases,alias:pu"`

	ID            string    `bun:"id,pk"`
	SponsorshipID string    `bun:"sponsorship_id,notnull"`
	FilingEventID string    `bun:"filing_event_id,notnull"`
	PageCount     int       `bun:"page_count,notnull"`
	CostCents     int       `bun:"cost_cents,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *purchaseRecord) toDomain() core.Purchase {
	return core.Purchase{
		ID:            r.ID,
		SponsorshipID: r.SponsorshipID,
		FilingEventID: r.FilingEventID,
		PageCount:     r.PageCount,
		CostCents:     r.CostCents,
		CreatedAt:     r.CreatedAt,
	}
}

func cloneInt64Pointer(in *int64) *int64 {
	if in == nil {
		return nil
	}
	value := *in
	return &value
}
