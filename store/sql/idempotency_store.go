package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rcmckee/bigcases2/core"
	"github.com/uptrace/bun"
)

const defaultIdempotencyTTL = 48 * time.Hour

type IdempotencyStore struct {
	db *bun.DB
}

func NewIdempotencyStore(db *bun.DB) (*IdempotencyStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &IdempotencyStore{db: db}, nil
}

func (s *IdempotencyStore) Exists(ctx context.Context, key string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: idempotency store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("sqlstore: idempotency key is required")
	}
	count, err := s.db.NewSelect().
		Model((*idempotencyKeyRecord)(nil)).
		Where("?TableAlias.key = ?", key).
		Where("?TableAlias.expires_at > ?", time.Now().UTC()).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Reserve records the key. A concurrent reserve of the same key is not an
// error; the unique index just keeps one row.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: idempotency store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: idempotency key is required")
	}
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	now := time.Now().UTC()
	record := &idempotencyKeyRecord{
		ID:        uuid.NewString(),
		Key:       key,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

// PruneExpired removes keys past their window; meant for a periodic sweep.
func (s *IdempotencyStore) PruneExpired(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: idempotency store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*idempotencyKeyRecord)(nil)).
		Where("expires_at <= ?", time.Now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

var _ core.IdempotencyStore = (*IdempotencyStore)(nil)
