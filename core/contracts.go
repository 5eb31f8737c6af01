package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type CreateFilingEventInput struct {
	DocketID         int64
	DocID            string
	DocumentNumber   *int64
	AttachmentNumber *int64
	ShortDescription string
	LongDescription  string
}

type FilingEventStore interface {
	Create(ctx context.Context, in CreateFilingEventInput) (FilingEvent, error)
	Get(ctx context.Context, id string) (FilingEvent, error)
	// AttachSubscription links the event to a subscription and moves it to
	// the given status in one atomic unit.
	AttachSubscription(ctx context.Context, id string, subscriptionID string, status FilingEventStatus) (FilingEvent, error)
	UpdateStatus(ctx context.Context, id string, status FilingEventStatus) (FilingEvent, error)
}

type SubscriptionStore interface {
	Get(ctx context.Context, id string) (Subscription, error)
	// FindActiveByDocketID returns ErrSubscriptionNotFound when the bot does
	// not follow the docket.
	FindActiveByDocketID(ctx context.Context, docketID int64) (Subscription, error)
}

type ChannelStore interface {
	Get(ctx context.Context, id string) (Channel, error)
	ListEnabled(ctx context.Context) ([]Channel, error)
}

type CreatePostInput struct {
	FilingEventID string
	ChannelID     string
	ObjectID      string
	Text          string
}

type PostStore interface {
	Create(ctx context.Context, in CreatePostInput) (Post, error)
	// FindByEventAndChannel returns ErrPostNotFound when the pair has not
	// posted yet; composer re-runs use this to stay idempotent.
	FindByEventAndChannel(ctx context.Context, filingEventID, channelID string) (Post, error)
}

// IdempotencyStore is a TTL'd set of already-processed webhook keys.
type IdempotencyStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) error
}

type LogPurchaseInput struct {
	SponsorshipID string
	FilingEventID string
	PageCount     int
}

// SponsorshipLedger exposes the active sponsorship, if any, and records
// purchases against it. LogPurchase books at most one entry per
// (sponsorship, event); re-logging the pair returns the existing entry so
// resume-job retries never double-bill the sponsor.
type SponsorshipLedger interface {
	Active(ctx context.Context) (Sponsorship, bool, error)
	LogPurchase(ctx context.Context, in LogPurchaseInput) (Purchase, error)
}

// ArchivedDocument describes the archive's knowledge of one document.
// FilepathLocal is empty when the document has not been archived yet.
type ArchivedDocument struct {
	FilepathLocal string
	PageCount     int
}

type DocumentArchive interface {
	Lookup(ctx context.Context, docID string) (ArchivedDocument, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

// PurchaseService triggers an asynchronous paid fetch; completion arrives
// later through the fetch webhook.
type PurchaseService interface {
	Purchase(ctx context.Context, docID string) error
}

type ImageFile struct {
	Name    string
	Content []byte
}

type ThumbnailService interface {
	Render(ctx context.Context, document []byte, pages []int) ([]ImageFile, error)
}

type WatermarkService interface {
	Apply(ctx context.Context, files []ImageFile, text string) ([]ImageFile, error)
}

// PostClient submits one rendered post to one external service account.
type PostClient interface {
	Submit(ctx context.Context, text string, image *ImageFile, files []ImageFile) (string, error)
}

// ChannelClientResolver maps a channel record onto its service variant.
type ChannelClientResolver interface {
	ClientFor(channel Channel) (PostClient, error)
}

type TemplateFields struct {
	Docket      string
	Description string
	DocNumber   *int64
	PDFLink     string
	DocketLink  string
}

type RenderedPost struct {
	Text  string
	Image *ImageFile
}

type PostTemplate interface {
	Render(fields TemplateFields) (RenderedPost, error)
}

type TemplateResolver interface {
	ResolveTemplate(service ChannelService, documentNumber *int64) (PostTemplate, error)
}

// RetryPolicy bounds per-job retries. Zero values defer to queue defaults.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

type JobMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	Delay          time.Duration
	Retry          RetryPolicy
}

// TaskQueue is the injected scheduling capability; tests substitute a
// synchronous in-memory implementation.
type TaskQueue interface {
	Enqueue(ctx context.Context, msg *JobMessage) error
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobDelivery interface {
	Message() *JobMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type InboundRequest struct {
	Surface  string
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Body       []byte
	Metadata   map[string]any
}
