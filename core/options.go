package core

import (
	"context"
	"fmt"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig     Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	persistenceClient any
	repositoryFactory any
	queue             TaskQueue
	events            FilingEventStore
	subscriptions     SubscriptionStore
	channels          ChannelStore
	posts             PostStore
	idempotency       IdempotencyStore
	ledger            SponsorshipLedger
	archive           DocumentArchive
	purchaser         PurchaseService
	thumbnails        ThumbnailService
	watermarks        WatermarkService
	clients           ChannelClientResolver
	templates         TemplateResolver
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithTaskQueue(queue TaskQueue) Option {
	return func(b *serviceBuilder) {
		b.queue = queue
	}
}

func WithFilingEventStore(store FilingEventStore) Option {
	return func(b *serviceBuilder) {
		b.events = store
	}
}

func WithSubscriptionStore(store SubscriptionStore) Option {
	return func(b *serviceBuilder) {
		b.subscriptions = store
	}
}

func WithChannelStore(store ChannelStore) Option {
	return func(b *serviceBuilder) {
		b.channels = store
	}
}

func WithPostStore(store PostStore) Option {
	return func(b *serviceBuilder) {
		b.posts = store
	}
}

func WithIdempotencyStore(store IdempotencyStore) Option {
	return func(b *serviceBuilder) {
		b.idempotency = store
	}
}

func WithSponsorshipLedger(ledger SponsorshipLedger) Option {
	return func(b *serviceBuilder) {
		b.ledger = ledger
	}
}

func WithDocumentArchive(archive DocumentArchive) Option {
	return func(b *serviceBuilder) {
		b.archive = archive
	}
}

func WithPurchaseService(purchaser PurchaseService) Option {
	return func(b *serviceBuilder) {
		b.purchaser = purchaser
	}
}

func WithThumbnailService(thumbnails ThumbnailService) Option {
	return func(b *serviceBuilder) {
		b.thumbnails = thumbnails
	}
}

func WithWatermarkService(watermarks WatermarkService) Option {
	return func(b *serviceBuilder) {
		b.watermarks = watermarks
	}
}

func WithChannelClientResolver(resolver ChannelClientResolver) Option {
	return func(b *serviceBuilder) {
		b.clients = resolver
	}
}

func WithTemplateResolver(resolver TemplateResolver) Option {
	return func(b *serviceBuilder) {
		b.templates = resolver
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("bigcases", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return pipelineErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || cfg.ServiceName != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || cfg.WebhookDelay > 0 {
		layer["webhook_delay"] = cfg.WebhookDelay
	}
	if includeZero || cfg.IdempotencyTTL > 0 {
		layer["idempotency_ttl"] = cfg.IdempotencyTTL
	}
	if includeZero || cfg.Posting.MaxAttempts > 0 || cfg.Posting.RetryInterval > 0 {
		layer["posting"] = map[string]any{
			"max_attempts":   cfg.Posting.MaxAttempts,
			"retry_interval": cfg.Posting.RetryInterval,
		}
	}
	return layer
}
