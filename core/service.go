package core

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service orchestrates the filing-event pipeline: webhook intake,
// subscription matching, content gating, document acquisition, and
// per-channel post dispatch.
type Service struct {
	config            Config
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
	now               func() time.Time
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("bigcases", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("bigcases"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil {
		if builder.events == nil {
			if provider, ok := builder.repositoryFactory.(interface{ FilingEventStore() FilingEventStore }); ok {
				builder.events = provider.FilingEventStore()
			}
		}
		if builder.subscriptions == nil {
			if provider, ok := builder.repositoryFactory.(interface{ SubscriptionStore() SubscriptionStore }); ok {
				builder.subscriptions = provider.SubscriptionStore()
			}
		}
		if builder.channels == nil {
			if provider, ok := builder.repositoryFactory.(interface{ ChannelStore() ChannelStore }); ok {
				builder.channels = provider.ChannelStore()
			}
		}
		if builder.posts == nil {
			if provider, ok := builder.repositoryFactory.(interface{ PostStore() PostStore }); ok {
				builder.posts = provider.PostStore()
			}
		}
		if builder.idempotency == nil {
			if provider, ok := builder.repositoryFactory.(interface{ IdempotencyStore() IdempotencyStore }); ok {
				builder.idempotency = provider.IdempotencyStore()
			}
		}
		if builder.ledger == nil {
			if provider, ok := builder.repositoryFactory.(interface{ SponsorshipLedger() SponsorshipLedger }); ok {
				builder.ledger = provider.SponsorshipLedger()
			}
		}
	}

	if builder.queue == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: task queue is required"))
	}
	if builder.events == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: filing event store is required"))
	}
	if builder.idempotency == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: idempotency store is required"))
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		queue:             builder.queue,
		events:            builder.events,
		subscriptions:     builder.subscriptions,
		channels:          builder.channels,
		posts:             builder.posts,
		idempotency:       builder.idempotency,
		ledger:            builder.ledger,
		archive:           builder.archive,
		purchaser:         builder.purchaser,
		thumbnails:        builder.thumbnails,
		watermarks:        builder.watermarks,
		clients:           builder.clients,
		templates:         builder.templates,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}
