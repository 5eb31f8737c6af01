package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type staticConfigProvider struct {
	cfg Config
}

func (p staticConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type overlayOptionsResolver struct{}

func (overlayOptionsResolver) Resolve(defaults, loaded, runtime Config) (Config, error) {
	out := loaded
	if runtime.ServiceName != "" {
		out.ServiceName = runtime.ServiceName
	}
	if runtime.WebhookDelay > 0 {
		out.WebhookDelay = runtime.WebhookDelay
	}
	if runtime.IdempotencyTTL > 0 {
		out.IdempotencyTTL = runtime.IdempotencyTTL
	}
	if runtime.Posting.MaxAttempts > 0 {
		out.Posting.MaxAttempts = runtime.Posting.MaxAttempts
	}
	if runtime.Posting.RetryInterval > 0 {
		out.Posting.RetryInterval = runtime.Posting.RetryInterval
	}
	return out, nil
}

type memoryTaskQueue struct {
	mu       sync.Mutex
	messages []*JobMessage
}

func (q *memoryTaskQueue) Enqueue(_ context.Context, msg *JobMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	clone := *msg
	clone.Parameters = copyAnyMap(msg.Parameters)
	q.messages = append(q.messages, &clone)
	return nil
}

func (q *memoryTaskQueue) byJobID(jobID string) []*JobMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*JobMessage
	for _, msg := range q.messages {
		if msg.JobID == jobID {
			out = append(out, msg)
		}
	}
	return out
}

type memoryFilingEventStore struct {
	mu     sync.Mutex
	seq    int
	events map[string]FilingEvent
}

func newMemoryFilingEventStore() *memoryFilingEventStore {
	return &memoryFilingEventStore{events: map[string]FilingEvent{}}
}

func (s *memoryFilingEventStore) Create(_ context.Context, in CreateFilingEventInput) (FilingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	event := FilingEvent{
		ID:               fmt.Sprintf("event-%d", s.seq),
		DocketID:         in.DocketID,
		DocID:            in.DocID,
		DocumentNumber:   in.DocumentNumber,
		AttachmentNumber: in.AttachmentNumber,
		ShortDescription: in.ShortDescription,
		LongDescription:  in.LongDescription,
		Status:           FilingEventStatusNew,
		CreatedAt:        time.Now().UTC(),
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *memoryFilingEventStore) Get(_ context.Context, id string) (FilingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return FilingEvent{}, ErrFilingEventNotFound
	}
	return event, nil
}

func (s *memoryFilingEventStore) AttachSubscription(_ context.Context, id, subscriptionID string, status FilingEventStatus) (FilingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return FilingEvent{}, ErrFilingEventNotFound
	}
	if err := event.TransitionTo(status, time.Now().UTC()); err != nil {
		return FilingEvent{}, err
	}
	event.SubscriptionID = subscriptionID
	s.events[id] = event
	return event, nil
}

func (s *memoryFilingEventStore) UpdateStatus(_ context.Context, id string, status FilingEventStatus) (FilingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return FilingEvent{}, ErrFilingEventNotFound
	}
	if err := event.TransitionTo(status, time.Now().UTC()); err != nil {
		return FilingEvent{}, err
	}
	s.events[id] = event
	return event, nil
}

func (s *memoryFilingEventStore) put(event FilingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
}

type memorySubscriptionStore struct {
	mu            sync.Mutex
	subscriptions map[string]Subscription
}

func newMemorySubscriptionStore() *memorySubscriptionStore {
	return &memorySubscriptionStore{subscriptions: map[string]Subscription{}}
}

func (s *memorySubscriptionStore) put(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = sub
}

func (s *memorySubscriptionStore) Get(_ context.Context, id string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *memorySubscriptionStore) FindActiveByDocketID(_ context.Context, docketID int64) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscriptions {
		if sub.DocketID == docketID && sub.Status == SubscriptionStatusActive {
			return sub, nil
		}
	}
	return Subscription{}, ErrSubscriptionNotFound
}

type memoryChannelStore struct {
	mu       sync.Mutex
	channels map[string]Channel
	order    []string
	// listErr fails the next ListEnabled call, then clears.
	listErr error
}

func newMemoryChannelStore() *memoryChannelStore {
	return &memoryChannelStore{channels: map[string]Channel{}}
}

func (s *memoryChannelStore) put(channel Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channel.ID]; !ok {
		s.order = append(s.order, channel.ID)
	}
	s.channels[channel.ID] = channel
}

func (s *memoryChannelStore) Get(_ context.Context, id string) (Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel, ok := s.channels[id]
	if !ok {
		return Channel{}, ErrChannelNotFound
	}
	return channel, nil
}

func (s *memoryChannelStore) ListEnabled(_ context.Context) ([]Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		err := s.listErr
		s.listErr = nil
		return nil, err
	}
	var out []Channel
	for _, id := range s.order {
		if channel := s.channels[id]; channel.Enabled {
			out = append(out, channel)
		}
	}
	return out, nil
}

type memoryPostStore struct {
	mu    sync.Mutex
	seq   int
	posts map[string]Post
}

func newMemoryPostStore() *memoryPostStore {
	return &memoryPostStore{posts: map[string]Post{}}
}

func (s *memoryPostStore) Create(_ context.Context, in CreatePostInput) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := in.FilingEventID + "/" + in.ChannelID
	if _, ok := s.posts[key]; ok {
		return Post{}, fmt.Errorf("post already exists for %s", key)
	}
	s.seq++
	post := Post{
		ID:            fmt.Sprintf("post-%d", s.seq),
		FilingEventID: in.FilingEventID,
		ChannelID:     in.ChannelID,
		ObjectID:      in.ObjectID,
		Text:          in.Text,
		CreatedAt:     time.Now().UTC(),
	}
	s.posts[key] = post
	return post, nil
}

func (s *memoryPostStore) FindByEventAndChannel(_ context.Context, filingEventID, channelID string) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[filingEventID+"/"+channelID]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return post, nil
}

func (s *memoryPostStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]time.Duration
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: map[string]time.Duration{}}
}

func (s *memoryIdempotencyStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *memoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = ttl
	return nil
}

type memorySponsorshipLedger struct {
	mu          sync.Mutex
	sponsorship Sponsorship
	active      bool
	purchases   []Purchase
	activeErr   error
}

func (l *memorySponsorshipLedger) Active(context.Context) (Sponsorship, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.activeErr != nil {
		return Sponsorship{}, false, l.activeErr
	}
	return l.sponsorship, l.active, nil
}

func (l *memorySponsorshipLedger) LogPurchase(_ context.Context, in LogPurchaseInput) (Purchase, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.purchases {
		if existing.SponsorshipID == in.SponsorshipID && existing.FilingEventID == in.FilingEventID {
			return existing, nil
		}
	}
	purchase := Purchase{
		ID:            fmt.Sprintf("purchase-%d", len(l.purchases)+1),
		SponsorshipID: in.SponsorshipID,
		FilingEventID: in.FilingEventID,
		PageCount:     in.PageCount,
		CostCents:     PurchaseCostCents(in.PageCount),
		CreatedAt:     time.Now().UTC(),
	}
	l.purchases = append(l.purchases, purchase)
	return purchase, nil
}

type stubDocumentArchive struct {
	lookup      ArchivedDocument
	lookupErr   error
	document    []byte
	downloadErr error
	downloads   int
}

func (a *stubDocumentArchive) Lookup(context.Context, string) (ArchivedDocument, error) {
	if a.lookupErr != nil {
		return ArchivedDocument{}, a.lookupErr
	}
	return a.lookup, nil
}

func (a *stubDocumentArchive) Download(context.Context, string) ([]byte, error) {
	a.downloads++
	if a.downloadErr != nil {
		return nil, a.downloadErr
	}
	return a.document, nil
}

type stubPurchaseService struct {
	calls int
	err   error
}

func (p *stubPurchaseService) Purchase(context.Context, string) error {
	p.calls++
	return p.err
}

type stubThumbnailService struct {
	pages [][]int
	err   error
}

func (t *stubThumbnailService) Render(_ context.Context, _ []byte, pages []int) ([]ImageFile, error) {
	t.pages = append(t.pages, append([]int(nil), pages...))
	if t.err != nil {
		return nil, t.err
	}
	files := make([]ImageFile, len(pages))
	for i, page := range pages {
		files[i] = ImageFile{Name: fmt.Sprintf("page-%d.png", page), Content: []byte{byte(page)}}
	}
	return files, nil
}

type stubWatermarkService struct {
	texts []string
	err   error
}

func (w *stubWatermarkService) Apply(_ context.Context, files []ImageFile, text string) ([]ImageFile, error) {
	w.texts = append(w.texts, text)
	if w.err != nil {
		return nil, w.err
	}
	return files, nil
}

type stubPostClient struct {
	mu       sync.Mutex
	submits  int
	lastText string
	lastImg  *ImageFile
	lastFile []ImageFile
	objectID string
	err      error
}

func (c *stubPostClient) Submit(_ context.Context, text string, image *ImageFile, files []ImageFile) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	c.lastText = text
	c.lastImg = image
	c.lastFile = files
	if c.err != nil {
		return "", c.err
	}
	if c.objectID == "" {
		return fmt.Sprintf("object-%d", c.submits), nil
	}
	return c.objectID, nil
}

type stubClientResolver struct {
	client *stubPostClient
	err    error
}

func (r *stubClientResolver) ClientFor(Channel) (PostClient, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.client, nil
}

type stubTemplate struct {
	text  string
	image *ImageFile
	err   error
}

func (t stubTemplate) Render(fields TemplateFields) (RenderedPost, error) {
	if t.err != nil {
		return RenderedPost{}, t.err
	}
	text := t.text
	if text == "" {
		text = fields.Docket + ": " + fields.Description
	}
	return RenderedPost{Text: text, Image: t.image}, nil
}

type stubTemplateResolver struct {
	template stubTemplate
	err      error
}

func (r *stubTemplateResolver) ResolveTemplate(ChannelService, *int64) (PostTemplate, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.template, nil
}

type serviceFixture struct {
	queue         *memoryTaskQueue
	events        *memoryFilingEventStore
	subscriptions *memorySubscriptionStore
	channels      *memoryChannelStore
	posts         *memoryPostStore
	idempotency   *memoryIdempotencyStore
	ledger        *memorySponsorshipLedger
	archive       *stubDocumentArchive
	purchaser     *stubPurchaseService
	thumbnails    *stubThumbnailService
	watermarks    *stubWatermarkService
	client        *stubPostClient
	templates     *stubTemplateResolver
}

func newServiceFixture(t *testing.T, options ...Option) (*Service, *serviceFixture) {
	t.Helper()

	fixture := &serviceFixture{
		queue:         &memoryTaskQueue{},
		events:        newMemoryFilingEventStore(),
		subscriptions: newMemorySubscriptionStore(),
		channels:      newMemoryChannelStore(),
		posts:         newMemoryPostStore(),
		idempotency:   newMemoryIdempotencyStore(),
		ledger:        &memorySponsorshipLedger{},
		archive:       &stubDocumentArchive{},
		purchaser:     &stubPurchaseService{},
		thumbnails:    &stubThumbnailService{},
		watermarks:    &stubWatermarkService{},
		client:        &stubPostClient{},
		templates:     &stubTemplateResolver{},
	}

	base := []Option{
		WithConfigProvider(staticConfigProvider{cfg: DefaultConfig()}),
		WithOptionsResolver(overlayOptionsResolver{}),
		WithTaskQueue(fixture.queue),
		WithFilingEventStore(fixture.events),
		WithSubscriptionStore(fixture.subscriptions),
		WithChannelStore(fixture.channels),
		WithPostStore(fixture.posts),
		WithIdempotencyStore(fixture.idempotency),
		WithSponsorshipLedger(fixture.ledger),
		WithDocumentArchive(fixture.archive),
		WithPurchaseService(fixture.purchaser),
		WithThumbnailService(fixture.thumbnails),
		WithWatermarkService(fixture.watermarks),
		WithChannelClientResolver(&stubClientResolver{client: fixture.client}),
		WithTemplateResolver(fixture.templates),
	}

	service, err := NewService(Config{}, append(base, options...)...)
	if err != nil {
		t.Fatalf("build service fixture: %v", err)
	}
	return service, fixture
}

func int64Ptr(v int64) *int64 {
	return &v
}
