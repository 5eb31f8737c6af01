package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/rcmckee/bigcases2/core"
	"github.com/uptrace/bun"
)

type FilingEventStore struct {
	db   *bun.DB
	repo repository.Repository[*filingEventRecord]
}

func NewFilingEventStore(db *bun.DB) (*FilingEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*filingEventRecord](db, filingEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid filing event repository wiring: %w", err)
		}
	}
	return &FilingEventStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *FilingEventStore) Create(ctx context.Context, in core.CreateFilingEventInput) (core.FilingEvent, error) {
	if s == nil || s.db == nil {
		return core.FilingEvent{}, fmt.Errorf("sqlstore: filing event store is not configured")
	}
	now := time.Now().UTC()
	record := &filingEventRecord{
		ID:               uuid.NewString(),
		DocketID:         in.DocketID,
		DocID:            strings.TrimSpace(in.DocID),
		DocumentNumber:   cloneInt64Pointer(in.DocumentNumber),
		AttachmentNumber: cloneInt64Pointer(in.AttachmentNumber),
		ShortDescription: in.ShortDescription,
		LongDescription:  in.LongDescription,
		Status:           string(core.FilingEventStatusNew),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.FilingEvent{}, err
	}
	return record.toDomain(), nil
}

func (s *FilingEventStore) Get(ctx context.Context, id string) (core.FilingEvent, error) {
	if s == nil || s.repo == nil {
		return core.FilingEvent{}, fmt.Errorf("sqlstore: filing event store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.FilingEvent{}, core.ErrFilingEventNotFound
		}
		return core.FilingEvent{}, err
	}
	return record.toDomain(), nil
}

func (s *FilingEventStore) AttachSubscription(
	ctx context.Context,
	id string,
	subscriptionID string,
	status core.FilingEventStatus,
) (core.FilingEvent, error) {
	if s == nil || s.db == nil {
		return core.FilingEvent{}, fmt.Errorf("sqlstore: filing event store is not configured")
	}
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return core.FilingEvent{}, fmt.Errorf("sqlstore: subscription id is required")
	}
	return s.transition(ctx, id, status, func(record *filingEventRecord) {
		record.SubscriptionID = &subscriptionID
	})
}

func (s *FilingEventStore) UpdateStatus(
	ctx context.Context,
	id string,
	status core.FilingEventStatus,
) (core.FilingEvent, error) {
	if s == nil || s.db == nil {
		return core.FilingEvent{}, fmt.Errorf("sqlstore: filing event store is not configured")
	}
	return s.transition(ctx, id, status, nil)
}

// transition loads, validates, and persists a status change inside one
// transaction so concurrent workers cannot interleave illegal moves.
func (s *FilingEventStore) transition(
	ctx context.Context,
	id string,
	status core.FilingEventStatus,
	mutate func(*filingEventRecord),
) (core.FilingEvent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.FilingEvent{}, fmt.Errorf("sqlstore: filing event id is required")
	}

	var out core.FilingEvent
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &filingEventRecord{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return core.ErrFilingEventNotFound
			}
			return err
		}

		event := record.toDomain()
		now := time.Now().UTC()
		if err := event.TransitionTo(status, now); err != nil {
			return err
		}
		record.Status = string(event.Status)
		record.UpdatedAt = now
		if mutate != nil {
			mutate(record)
		}

		if _, err := tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Exec(ctx); err != nil {
			return err
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.FilingEvent{}, err
	}
	return out, nil
}

var _ core.FilingEventStore = (*FilingEventStore)(nil)
