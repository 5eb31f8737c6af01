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

type SubscriptionStore struct {
	db   *bun.DB
	repo repository.Repository[*subscriptionRecord]
}

func NewSubscriptionStore(db *bun.DB) (*SubscriptionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*subscriptionRecord](db, subscriptionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid subscription repository wiring: %w", err)
		}
	}
	return &SubscriptionStore{
		db:   db,
		repo: repo,
	}, nil
}

type UpsertSubscriptionInput struct {
	DocketID    int64
	Name        string
	CaseSummary string
	Status      core.SubscriptionStatus
}

// Upsert keys on the docket: following the same case twice updates the
// existing row instead of duplicating it.
func (s *SubscriptionStore) Upsert(ctx context.Context, in UpsertSubscriptionInput) (core.Subscription, error) {
	if s == nil || s.db == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.DocketID == 0 {
		return core.Subscription{}, fmt.Errorf("sqlstore: docket id is required")
	}
	if in.Name == "" {
		return core.Subscription{}, fmt.Errorf("sqlstore: case name is required")
	}
	if strings.TrimSpace(string(in.Status)) == "" {
		in.Status = core.SubscriptionStatusActive
	}
	now := time.Now().UTC()

	var out core.Subscription
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &subscriptionRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.docket_id = ?", in.DocketID).
			Limit(1).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if errors.Is(err, sql.ErrNoRows) || strings.TrimSpace(existing.ID) == "" {
			record := &subscriptionRecord{
				ID:          uuid.NewString(),
				DocketID:    in.DocketID,
				Name:        in.Name,
				CaseSummary: in.CaseSummary,
				Status:      string(in.Status),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if _, createErr := tx.NewInsert().Model(record).Exec(ctx); createErr != nil {
				return createErr
			}
			out = record.toDomain()
			return nil
		}

		existing.Name = in.Name
		existing.CaseSummary = in.CaseSummary
		existing.Status = string(in.Status)
		existing.UpdatedAt = now
		if _, updateErr := tx.NewUpdate().
			Model(existing).
			Where("id = ?", existing.ID).
			Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = existing.toDomain()
		return nil
	})
	if err != nil {
		return core.Subscription{}, err
	}
	return out, nil
}

func (s *SubscriptionStore) Get(ctx context.Context, id string) (core.Subscription, error) {
	if s == nil || s.repo == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Subscription{}, core.ErrSubscriptionNotFound
		}
		return core.Subscription{}, err
	}
	return record.toDomain(), nil
}

func (s *SubscriptionStore) FindActiveByDocketID(ctx context.Context, docketID int64) (core.Subscription, error) {
	if s == nil || s.repo == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("status", "=", string(core.SubscriptionStatusActive)),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.docket_id = ?", docketID)
		}),
		repository.OrderBy("updated_at DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Subscription{}, err
	}
	if len(records) == 0 {
		return core.Subscription{}, core.ErrSubscriptionNotFound
	}
	return records[0].toDomain(), nil
}

var _ core.SubscriptionStore = (*SubscriptionStore)(nil)
