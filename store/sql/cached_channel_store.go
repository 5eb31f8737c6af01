package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/rcmckee/bigcases2/core"
)

const channelCacheKeyPrefix = "bigcases2::channel::v1"

// ChannelReadWriter is the store surface the cache wraps.
type ChannelReadWriter interface {
	Get(ctx context.Context, id string) (core.Channel, error)
	ListEnabled(ctx context.Context) ([]core.Channel, error)
	Upsert(ctx context.Context, in UpsertChannelInput) (core.Channel, error)
}

// CachedChannelStore fronts channel reads with a cache. The enabled set is
// read on every screening pass, so it is the hottest row set in the store.
type CachedChannelStore struct {
	base  ChannelReadWriter
	cache repositorycache.CacheService
}

func NewCachedChannelStore(base ChannelReadWriter, cacheService repositorycache.CacheService) (*CachedChannelStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base channel store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: channel cache service is required")
	}
	return &CachedChannelStore{base: base, cache: cacheService}, nil
}

// ChannelCacheKey returns the deterministic key for a single channel read:
// bigcases2::channel::v1::id::<channel_id> with the id URL-path escaped.
func ChannelCacheKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("sqlstore: channel id is required")
	}
	return strings.Join([]string{channelCacheKeyPrefix, "id", url.PathEscape(id)}, "::"), nil
}

// EnabledChannelsCacheKey returns the key for the enabled-channel listing.
func EnabledChannelsCacheKey() string {
	return strings.Join([]string{channelCacheKeyPrefix, "enabled"}, "::")
}

func (s *CachedChannelStore) Get(ctx context.Context, id string) (core.Channel, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Channel{}, fmt.Errorf("sqlstore: cached channel store is not configured")
	}
	cacheKey, err := ChannelCacheKey(id)
	if err != nil {
		return core.Channel{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Channel, error) {
		return s.base.Get(ctx, id)
	})
}

func (s *CachedChannelStore) ListEnabled(ctx context.Context) ([]core.Channel, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached channel store is not configured")
	}
	channels, err := repositorycache.GetOrFetch(ctx, s.cache, EnabledChannelsCacheKey(), func(ctx context.Context) ([]core.Channel, error) {
		return s.base.ListEnabled(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make([]core.Channel, len(channels))
	copy(out, channels)
	return out, nil
}

// Upsert writes through to the base store and invalidates both the row key
// and the enabled listing.
func (s *CachedChannelStore) Upsert(ctx context.Context, in UpsertChannelInput) (core.Channel, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Channel{}, fmt.Errorf("sqlstore: cached channel store is not configured")
	}
	channel, err := s.base.Upsert(ctx, in)
	if err != nil {
		return core.Channel{}, err
	}
	cacheKey, err := ChannelCacheKey(channel.ID)
	if err != nil {
		return core.Channel{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.Channel{}, err
	}
	if err := s.cache.Delete(ctx, EnabledChannelsCacheKey()); err != nil {
		return core.Channel{}, err
	}
	return channel, nil
}

var _ core.ChannelStore = (*CachedChannelStore)(nil)
