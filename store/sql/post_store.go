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

type PostStore struct {
	db   *bun.DB
	repo repository.Repository[*postRecord]
}

func NewPostStore(db *bun.DB) (*PostStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*postRecord](db, postHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid post repository wiring: %w", err)
		}
	}
	return &PostStore{
		db:   db,
		repo: repo,
	}, nil
}

// Create inserts the (event, channel) row. When a concurrent worker won
// the race the unique index fires and the existing row is returned, so
// the caller sees one post either way.
func (s *PostStore) Create(ctx context.Context, in core.CreatePostInput) (core.Post, error) {
	if s == nil || s.db == nil {
		return core.Post{}, fmt.Errorf("sqlstore: post store is not configured")
	}
	in.FilingEventID = strings.TrimSpace(in.FilingEventID)
	in.ChannelID = strings.TrimSpace(in.ChannelID)
	if in.FilingEventID == "" || in.ChannelID == "" {
		return core.Post{}, fmt.Errorf("sqlstore: filing event id and channel id are required")
	}

	record := &postRecord{
		ID:            uuid.NewString(),
		FilingEventID: in.FilingEventID,
		ChannelID:     in.ChannelID,
		ObjectID:      strings.TrimSpace(in.ObjectID),
		Text:          in.Text,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return s.FindByEventAndChannel(ctx, in.FilingEventID, in.ChannelID)
		}
		return core.Post{}, err
	}
	return record.toDomain(), nil
}

func (s *PostStore) FindByEventAndChannel(ctx context.Context, filingEventID, channelID string) (core.Post, error) {
	if s == nil || s.db == nil {
		return core.Post{}, fmt.Errorf("sqlstore: post store is not configured")
	}
	record := &postRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.filing_event_id = ?", strings.TrimSpace(filingEventID)).
		Where("?TableAlias.channel_id = ?", strings.TrimSpace(channelID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Post{}, core.ErrPostNotFound
		}
		return core.Post{}, err
	}
	if strings.TrimSpace(record.ID) == "" {
		return core.Post{}, core.ErrPostNotFound
	}
	return record.toDomain(), nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var _ core.PostStore = (*PostStore)(nil)
