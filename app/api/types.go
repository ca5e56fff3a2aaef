package api

import (
	"context"
	"time"

	"github.com/lysyi3m/feed-unify/app/feed"
	"github.com/lysyi3m/feed-unify/app/fetch"
	"github.com/lysyi3m/feed-unify/app/tasks"
)

type GatewayInterface interface {
	Fetch(ctx context.Context, url string, opts fetch.FetchOptions) (*fetch.Result, error)
	Cached(ctx context.Context, url string) (*feed.CacheEntry, bool, error)
	Evict(ctx context.Context, url string) error
	Clear(ctx context.Context) error
	CacheEnabled() bool
}

var _ GatewayInterface = (*fetch.Gateway)(nil)

type Handler struct {
	gateway     GatewayInterface
	configCache *feed.ConfigCache
	scheduler   tasks.TaskSchedulerInterface
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type FeedSummary struct {
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	Enabled         bool              `json:"enabled"`
	RefreshInterval string            `json:"refresh_interval"`
	Timeout         string            `json:"timeout"`
	Auth            string            `json:"auth,omitempty"`
	Cache           bool              `json:"cache"`
	Title           string            `json:"title,omitempty"`
	CachedAt        *time.Time        `json:"cached_at,omitempty"`
	ETag            *string           `json:"etag,omitempty"`
	Poll            *tasks.PollStatus `json:"poll,omitempty"`
}
