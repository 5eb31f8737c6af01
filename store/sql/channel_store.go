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

type ChannelStore struct {
	db   *bun.DB
	repo repository.Repository[*channelRecord]
}

func NewChannelStore(db *bun.DB) (*ChannelStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*channelRecord](db, channelHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid channel repository wiring: %w", err)
		}
	}
	return &ChannelStore{
		db:   db,
		repo: repo,
	}, nil
}

type UpsertChannelInput struct {
	Service   core.ChannelService
	Account   string
	AccountID string
	Enabled   bool
}

// Upsert keys on (service, account) so re-registering an account toggles
// it instead of duplicating it.
func (s *ChannelStore) Upsert(ctx context.Context, in UpsertChannelInput) (core.Channel, error) {
	if s == nil || s.db == nil {
		return core.Channel{}, fmt.Errorf("sqlstore: channel store is not configured")
	}
	if err := in.Service.Validate(); err != nil {
		return core.Channel{}, err
	}
	in.Account = strings.TrimSpace(in.Account)
	if in.Account == "" {
		return core.Channel{}, fmt.Errorf("sqlstore: channel account is required")
	}
	now := time.Now().UTC()

	var out core.Channel
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &channelRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.service = ?", string(in.Service)).
			Where("?TableAlias.account = ?", in.Account).
			Limit(1).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if errors.Is(err, sql.ErrNoRows) || strings.TrimSpace(existing.ID) == "" {
			record := &channelRecord{
				ID:        uuid.NewString(),
				Service:   string(in.Service),
				Account:   in.Account,
				AccountID: strings.TrimSpace(in.AccountID),
				Enabled:   in.Enabled,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, createErr := tx.NewInsert().Model(record).Exec(ctx); createErr != nil {
				return createErr
			}
			out = record.toDomain()
			return nil
		}

		existing.AccountID = strings.TrimSpace(in.AccountID)
		existing.Enabled = in.Enabled
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
		return core.Channel{}, err
	}
	return out, nil
}

func (s *ChannelStore) Get(ctx context.Context, id string) (core.Channel, error) {
	if s == nil || s.repo == nil {
		return core.Channel{}, fmt.Errorf("sqlstore: channel store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Channel{}, core.ErrChannelNotFound
		}
		return core.Channel{}, err
	}
	return record.toDomain(), nil
}

func (s *ChannelStore) ListEnabled(ctx context.Context) ([]core.Channel, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: channel store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.enabled = ?", true)
		}),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Channel, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var _ core.ChannelStore = (*ChannelStore)(nil)
