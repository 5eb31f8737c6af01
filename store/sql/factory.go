package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/rcmckee/bigcases2/core"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	filingEventStore  *FilingEventStore
	subscriptionStore *SubscriptionStore
	channelStore      *ChannelStore
	postStore         *PostStore
	idempotencyStore  *IdempotencyStore
	sponsorshipLedger *SponsorshipLedger
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts either a persistence client or a raw bun handle and
// wires every store off the resolved connection. Safe to call twice.
func (f *RepositoryFactory) BuildStores(persistenceClient any) (*RepositoryFactory, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.filingEventStore != nil && f.idempotencyStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) FilingEventStore() core.FilingEventStore {
	if f == nil {
		return nil
	}
	return f.filingEventStore
}

func (f *RepositoryFactory) SubscriptionStore() core.SubscriptionStore {
	if f == nil {
		return nil
	}
	return f.subscriptionStore
}

func (f *RepositoryFactory) ChannelStore() core.ChannelStore {
	if f == nil {
		return nil
	}
	return f.channelStore
}

func (f *RepositoryFactory) PostStore() core.PostStore {
	if f == nil {
		return nil
	}
	return f.postStore
}

func (f *RepositoryFactory) IdempotencyStore() core.IdempotencyStore {
	if f == nil {
		return nil
	}
	return f.idempotencyStore
}

func (f *RepositoryFactory) SponsorshipLedger() core.SponsorshipLedger {
	if f == nil {
		return nil
	}
	return f.sponsorshipLedger
}

func (f *RepositoryFactory) Subscriptions() *SubscriptionStore {
	if f == nil {
		return nil
	}
	return f.subscriptionStore
}

func (f *RepositoryFactory) Channels() *ChannelStore {
	if f == nil {
		return nil
	}
	return f.channelStore
}

func (f *RepositoryFactory) Sponsorships() *SponsorshipLedger {
	if f == nil {
		return nil
	}
	return f.sponsorshipLedger
}

func (f *RepositoryFactory) initStores() error {
	filingEventStore, err := NewFilingEventStore(f.db)
	if err != nil {
		return err
	}
	f.filingEventStore = filingEventStore
	subscriptionStore, err := NewSubscriptionStore(f.db)
	if err != nil {
		return err
	}
	f.subscriptionStore = subscriptionStore
	channelStore, err := NewChannelStore(f.db)
	if err != nil {
		return err
	}
	f.channelStore = channelStore
	postStore, err := NewPostStore(f.db)
	if err != nil {
		return err
	}
	f.postStore = postStore
	idempotencyStore, err := NewIdempotencyStore(f.db)
	if err != nil {
		return err
	}
	f.idempotencyStore = idempotencyStore
	sponsorshipLedger, err := NewSponsorshipLedger(f.db)
	if err != nil {
		return err
	}
	f.sponsorshipLedger = sponsorshipLedger

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
