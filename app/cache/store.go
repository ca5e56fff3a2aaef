package cache

import (
	"context"

	"github.com/lysyi3m/feed-unify/app/feed"
)

// Store keeps parsed feeds keyed by normalized URL. Entries are replaced
// wholesale on Set; implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (*feed.CacheEntry, bool, error)
	Set(ctx context.Context, key string, entry *feed.CacheEntry) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
