package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lysyi3m/feed-unify/app/cache"
	"github.com/lysyi3m/feed-unify/app/feed"
	"github.com/lysyi3m/feed-unify/app/parser"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a successful fetch.
type Result struct {
	Feed        *feed.Feed         `json:"feed"`
	Response    *feed.ResponseInfo `json:"response,omitempty"`
	NotModified bool               `json:"not_modified"`
	FromCache   bool               `json:"from_cache"`
}

type FetchOptions struct {
	// Credentials override the gateway default for this call.
	Credentials *Credentials
	// DisableCache skips cache reads and writes and sends no conditional headers.
	DisableCache bool
	// MaxAge serves a cached entry younger than this without a request. Zero
	// always revalidates.
	MaxAge  time.Duration
	Timeout time.Duration
}

type Gateway struct {
	transport   Transport
	pipeline    *parser.Pipeline
	store       cache.Store
	credentials *Credentials
	now         func() time.Time
}

type Option func(*Gateway)

// WithCache enables conditional fetching backed by store. Without it every
// fetch is a full request.
func WithCache(store cache.Store) Option {
	return func(g *Gateway) {
		g.store = store
	}
}

func WithCredentials(c *Credentials) Option {
	return func(g *Gateway) {
		g.credentials = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

func NewGateway(transport Transport, pipeline *parser.Pipeline, opts ...Option) *Gateway {
	g := &Gateway{
		transport: transport,
		pipeline:  pipeline,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) CacheEnabled() bool {
	return g.store != nil
}

func (g *Gateway) Fetch(ctx context.Context, url string, opts FetchOptions) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	useCache := g.store != nil && !opts.DisableCache
	key := feed.NormalizeURL(url)

	var entry *feed.CacheEntry
	if useCache {
		entry = g.lookup(ctx, key)
	}

	if entry != nil && opts.MaxAge > 0 && g.now().Sub(entry.CachedAt) < opts.MaxAge {
		slog.Debug("Serving cached feed without revalidation", "url", url, "cached_at", entry.CachedAt)
		return &Result{Feed: entry.Feed, FromCache: true}, nil
	}

	req := &Request{URL: url, Headers: make(http.Header)}
	if entry != nil {
		if entry.ETag != nil {
			req.Headers.Set("If-None-Match", *entry.ETag)
		}
		if entry.LastModified != nil {
			req.Headers.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
		}
		slog.Debug("Sending conditional request", "url", url, "if_none_match", req.Headers.Get("If-None-Match"), "if_modified_since", req.Headers.Get("If-Modified-Since"))
	}

	creds := g.credentials
	if opts.Credentials != nil {
		creds = opts.Credentials
	}
	req.AuthHeaders = make(http.Header)
	creds.Apply(req.AuthHeaders)

	resp, err := g.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	info := responseInfo(url, resp)

	if resp.StatusCode == http.StatusNotModified && entry != nil {
		slog.Debug("Feed not modified, using cached copy", "url", url)
		return &Result{Feed: entry.Feed, Response: info, NotModified: true, FromCache: true}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("Feed request returned non-success status", "url", url, "status", resp.StatusCode)
		return nil, statusError(resp.StatusCode)
	}

	text, err := DecodeBody(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	parsed, err := g.pipeline.ParseString(ctx, text)
	if err != nil {
		return nil, err
	}

	if useCache {
		err := g.store.Set(ctx, key, &feed.CacheEntry{
			Feed:         parsed,
			ETag:         info.ETag,
			LastModified: info.LastModified,
			CachedAt:     g.now().UTC(),
		})
		if err != nil {
			slog.Warn("Failed to store feed in cache", "key", key, "error", err)
		}
	}

	return &Result{Feed: parsed, Response: info}, nil
}

// lookup treats store failures as a miss.
func (g *Gateway) lookup(ctx context.Context, key string) *feed.CacheEntry {
	entry, ok, err := g.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache lookup failed", "key", key, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	slog.Debug("Cache hit", "key", key, "cached_at", entry.CachedAt)
	return entry
}

// Cached returns the stored entry for url, if any.
func (g *Gateway) Cached(ctx context.Context, url string) (*feed.CacheEntry, bool, error) {
	if g.store == nil {
		return nil, false, nil
	}
	return g.store.Get(ctx, feed.NormalizeURL(url))
}

func (g *Gateway) Evict(ctx context.Context, url string) error {
	if g.store == nil {
		return nil
	}
	return g.store.Remove(ctx, feed.NormalizeURL(url))
}

func (g *Gateway) Clear(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	return g.store.Clear(ctx)
}

type BatchResult struct {
	URL    string
	Result *Result
	Err    error
}

// FetchMany fetches urls with at most concurrency requests in flight. Results
// keep the input order; one failure does not stop the others.
func (g *Gateway) FetchMany(ctx context.Context, urls []string, opts FetchOptions, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]BatchResult, len(urls))

	var group errgroup.Group
	group.SetLimit(concurrency)

	for i, url := range urls {
		group.Go(func() error {
			result, err := g.Fetch(ctx, url, opts)
			results[i] = BatchResult{URL: url, Result: result, Err: err}
			return nil
		})
	}
	group.Wait()

	return results
}

func statusError(status int) error {
	message := fmt.Sprintf("HTTP error: %d %s", status, http.StatusText(status))
	switch status {
	case http.StatusNotFound:
		return feed.NewNotFoundError(message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return feed.NewUnauthorizedError(message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return feed.NewTimeoutError(message, nil)
	default:
		return feed.NewNetworkError(message, nil)
	}
}

func responseInfo(requestURL string, resp *Response) *feed.ResponseInfo {
	info := &feed.ResponseInfo{
		StatusCode:     resp.StatusCode,
		WasNotModified: resp.StatusCode == http.StatusNotModified,
	}

	finalURL := resp.FinalURL
	if finalURL == "" {
		finalURL = requestURL
	}
	info.FinalURL = &finalURL

	if v := resp.Header.Get("ETag"); v != "" {
		info.ETag = &v
	}
	if v := resp.Header.Get("Last-Modified"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			info.LastModified = &t
		}
	}
	if v := resp.Header.Get("Content-Type"); v != "" {
		info.ContentType = &v
	}
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.ContentLength = &n
		}
	}

	return info
}
