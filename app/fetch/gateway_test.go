package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/feed-unify/app/cache"
	"github.com/lysyi3m/feed-unify/app/feed"
	"github.com/lysyi3m/feed-unify/app/parser"
)

const testRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>%s</title><item><guid>1</guid><title>One</title></item></channel></rss>`

// feedServer serves an RSS document with validators and honours conditional requests.
type feedServer struct {
	*httptest.Server
	mu           sync.Mutex
	title        string
	etag         string
	lastModified time.Time
	status       int
	requests     atomic.Int32
	lastHeaders  http.Header
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()

	fs := &feedServer{
		title:        "Served",
		etag:         `"v1"`,
		lastModified: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)

		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.lastHeaders = r.Header.Clone()

		if fs.status != 0 {
			w.WriteHeader(fs.status)
			return
		}
		if r.Header.Get("If-None-Match") == fs.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", fs.etag)
		w.Header().Set("Last-Modified", fs.lastModified.Format(http.TimeFormat))
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		fmt.Fprintf(w, testRSS, fs.title)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) headers() http.Header {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.lastHeaders
}

func newTestGateway(fs *feedServer, opts ...Option) *Gateway {
	return NewGateway(NewHTTPTransport(fs.Client(), "test", 0), parser.NewDefaultPipeline(), opts...)
}

func TestGatewayFetchWithoutCache(t *testing.T) {
	fs := newFeedServer(t)
	g := newTestGateway(fs)

	for i := 0; i < 2; i++ {
		result, err := g.Fetch(context.Background(), fs.URL, FetchOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if result.Feed.Title != "Served" || result.NotModified || result.FromCache {
			t.Errorf("Unexpected result: %+v", result)
		}
		if fs.headers().Get("If-None-Match") != "" {
			t.Error("Expected no conditional headers when caching is disabled")
		}
	}

	if g.CacheEnabled() {
		t.Error("Expected caching to be disabled")
	}
}

func TestGatewayConditionalFetch(t *testing.T) {
	fs := newFeedServer(t)
	store := cache.NewMemoryStore()
	g := newTestGateway(fs, WithCache(store))
	ctx := context.Background()

	first, err := g.Fetch(ctx, fs.URL+"/", FetchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if first.NotModified || first.FromCache {
		t.Error("Expected a fresh parse on the first fetch")
	}
	if first.Response == nil || first.Response.StatusCode != http.StatusOK {
		t.Fatalf("Expected response info with status 200, got: %+v", first.Response)
	}
	if first.Response.ETag == nil || *first.Response.ETag != `"v1"` {
		t.Errorf("Expected ETag in response info, got: %v", first.Response.ETag)
	}

	entry, ok, err := g.Cached(ctx, fs.URL)
	if err != nil || !ok {
		t.Fatalf("Expected a cache entry keyed by normalized URL, got ok=%v err=%v", ok, err)
	}
	if entry.LastModified == nil || !entry.LastModified.Equal(fs.lastModified) {
		t.Errorf("Expected Last-Modified to be cached, got: %v", entry.LastModified)
	}

	second, err := g.Fetch(ctx, fs.URL, FetchOptions{})
	if err != nil {
		t.Fatal(err)
	}

	h := fs.headers()
	if h.Get("If-None-Match") != `"v1"` {
		t.Errorf("Expected If-None-Match \"v1\", got: %q", h.Get("If-None-Match"))
	}
	if h.Get("If-Modified-Since") != "Tue, 02 Jan 2024 03:04:05 GMT" {
		t.Errorf("Unexpected If-Modified-Since: %q", h.Get("If-Modified-Since"))
	}
	if !second.NotModified || !second.FromCache {
		t.Errorf("Expected not-modified result from cache, got: %+v", second)
	}
	if !second.Response.WasNotModified {
		t.Error("Expected response info to record the 304")
	}
	if second.Feed != entry.Feed {
		t.Error("Expected the cached feed to be returned without re-parsing")
	}
}

func TestGatewayReplacesEntryOnChange(t *testing.T) {
	fs := newFeedServer(t)
	g := newTestGateway(fs, WithCache(cache.NewMemoryStore()))
	ctx := context.Background()

	if _, err := g.Fetch(ctx, fs.URL, FetchOptions{}); err != nil {
		t.Fatal(err)
	}

	fs.mu.Lock()
	fs.title = "Updated"
	fs.etag = `"v2"`
	fs.mu.Unlock()

	result, err := g.Fetch(ctx, fs.URL, FetchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.NotModified || result.Feed.Title != "Updated" {
		t.Errorf("Expected a fresh parse of the new content, got: %+v", result)
	}

	entry, _, _ := g.Cached(ctx, fs.URL)
	if entry.Feed.Title != "Updated" || entry.ETag == nil || *entry.ETag != `"v2"` {
		t.Errorf("Expected the cache entry to be replaced, got: %+v", entry)
	}
}

func TestGatewayPerCallCacheBypass(t *testing.T) {
	fs := newFeedServer(t)
	store := cache.NewMemoryStore()
	g := newTestGateway(fs, WithCache(store))
	ctx := context.Background()

	if _, err := g.Fetch(ctx, fs.URL, FetchOptions{DisableCache: true}); err != nil {
		t.Fatal(err)
	}
	keys, _ := store.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("Expected no cache write when bypassing the cache, got: %v", keys)
	}
}

func TestGatewayMaxAge(t *testing.T) {
	fs := newFeedServer(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := newTestGateway(fs, WithCache(cache.NewMemoryStore()), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := g.Fetch(ctx, fs.URL, FetchOptions{}); err != nil {
		t.Fatal(err)
	}

	now = now.Add(time.Minute)
	result, err := g.Fetch(ctx, fs.URL, FetchOptions{MaxAge: 5 * time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if !result.FromCache || result.NotModified || result.Response != nil {
		t.Errorf("Expected an unrevalidated cache hit, got: %+v", result)
	}
	if fs.requests.Load() != 1 {
		t.Errorf("Expected 1 request, got: %d", fs.requests.Load())
	}

	now = now.Add(10 * time.Minute)
	if _, err := g.Fetch(ctx, fs.URL, FetchOptions{MaxAge: 5 * time.Minute}); err != nil {
		t.Fatal(err)
	}
	if fs.requests.Load() != 2 {
		t.Errorf("Expected a revalidation once the entry is older than max age, got %d requests", fs.requests.Load())
	}
}

func TestGatewayStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   feed.ErrorKind
	}{
		{http.StatusNotFound, feed.ErrorKindNotFound},
		{http.StatusUnauthorized, feed.ErrorKindUnauthorized},
		{http.StatusForbidden, feed.ErrorKindUnauthorized},
		{http.StatusRequestTimeout, feed.ErrorKindTimeout},
		{http.StatusGatewayTimeout, feed.ErrorKindTimeout},
		{http.StatusInternalServerError, feed.ErrorKindNetwork},
		{http.StatusNotModified, feed.ErrorKindNetwork},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			fs := newFeedServer(t)
			fs.mu.Lock()
			fs.status = tt.status
			fs.mu.Unlock()

			store := cache.NewMemoryStore()
			g := newTestGateway(fs, WithCache(store))

			_, err := g.Fetch(context.Background(), fs.URL, FetchOptions{})
			if kind := feed.KindOf(err); kind != tt.want {
				t.Errorf("Expected %s, got: %s (%v)", tt.want, kind, err)
			}

			keys, _ := store.Keys(context.Background())
			if len(keys) != 0 {
				t.Errorf("Expected cache untouched on failure, got: %v", keys)
			}
		})
	}
}

func TestGatewayParseFailureKeepsCache(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	previous := &feed.CacheEntry{Feed: &feed.Feed{Title: "Previous"}, CachedAt: time.Now()}
	store.Set(ctx, feed.NormalizeURL("https://example.com/feed"), previous)

	transport := &stubTransport{response: &Response{StatusCode: http.StatusOK, Body: []byte("<html><body>not a feed</body></html>")}}
	g := NewGateway(transport, parser.NewDefaultPipeline(), WithCache(store))

	_, err := g.Fetch(ctx, "https://example.com/feed", FetchOptions{})
	if kind := feed.KindOf(err); kind != feed.ErrorKindInvalidFeed {
		t.Errorf("Expected invalid_feed, got: %s (%v)", kind, err)
	}

	entry, ok, _ := store.Get(ctx, feed.NormalizeURL("https://example.com/feed"))
	if !ok || entry != previous {
		t.Error("Expected the previous entry to survive a parse failure")
	}
}

func TestGatewayUnknownCharset(t *testing.T) {
	transport := &stubTransport{response: &Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/xml; charset=bogus"}},
		Body:       []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><rss><channel><title>Caf\xe9</title></channel></rss>"),
	}}
	g := NewGateway(transport, parser.NewDefaultPipeline())

	result, err := g.Fetch(context.Background(), "https://example.com/feed", FetchOptions{})
	if err != nil {
		t.Fatalf("Expected an unknown charset to fall back to the declaration, got: %v", err)
	}
	if result.Feed.Title != "Café" {
		t.Errorf("Expected 'Café', got: %q", result.Feed.Title)
	}
}

func TestGatewayCredentials(t *testing.T) {
	transport := &stubTransport{response: &Response{StatusCode: http.StatusOK, Body: []byte(fmt.Sprintf(testRSS, "Private"))}}
	g := NewGateway(transport, parser.NewDefaultPipeline(), WithCredentials(&Credentials{Type: AuthBearer, Token: "default"}))
	ctx := context.Background()

	if _, err := g.Fetch(ctx, "https://example.com/private", FetchOptions{}); err != nil {
		t.Fatal(err)
	}
	if got := transport.lastRequest.AuthHeaders.Get("Authorization"); got != "Bearer default" {
		t.Errorf("Expected default credentials, got: %q", got)
	}

	override := &Credentials{Type: AuthBasic, Username: "u", Password: "p"}
	if _, err := g.Fetch(ctx, "https://example.com/private", FetchOptions{Credentials: override}); err != nil {
		t.Fatal(err)
	}
	if got := transport.lastRequest.AuthHeaders.Get("Authorization"); got != "Basic dTpw" {
		t.Errorf("Expected per-call credentials to override, got: %q", got)
	}
}

func TestGatewayTransportErrorPassthrough(t *testing.T) {
	transport := &stubTransport{err: feed.NewTimeoutError("Request timed out", context.DeadlineExceeded)}
	g := NewGateway(transport, parser.NewDefaultPipeline())

	_, err := g.Fetch(context.Background(), "https://example.com/slow", FetchOptions{Timeout: time.Second})
	if kind := feed.KindOf(err); kind != feed.ErrorKindTimeout {
		t.Errorf("Expected timeout, got: %s", kind)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("Expected the cause to be preserved")
	}
}

func TestGatewayEvictAndClear(t *testing.T) {
	fs := newFeedServer(t)
	g := newTestGateway(fs, WithCache(cache.NewMemoryStore()))
	ctx := context.Background()

	if _, err := g.Fetch(ctx, fs.URL, FetchOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := g.Evict(ctx, fs.URL+"/"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := g.Cached(ctx, fs.URL); ok {
		t.Error("Expected entry to be evicted by normalized URL")
	}

	if _, err := g.Fetch(ctx, fs.URL, FetchOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := g.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := g.Cached(ctx, fs.URL); ok {
		t.Error("Expected cache to be cleared")
	}
}

func TestGatewayFetchMany(t *testing.T) {
	fs := newFeedServer(t)
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	g := newTestGateway(fs)
	urls := []string{fs.URL + "/a", missing.URL, fs.URL + "/b"}

	results := g.FetchMany(context.Background(), urls, FetchOptions{}, 2)
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got: %d", len(results))
	}

	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("Expected results in input order, got %s at %d", r.URL, i)
		}
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("Expected successes, got: %v / %v", results[0].Err, results[2].Err)
	}
	if feed.KindOf(results[1].Err) != feed.ErrorKindNotFound {
		t.Errorf("Expected not_found for the missing feed, got: %v", results[1].Err)
	}
}

type stubTransport struct {
	response    *Response
	err         error
	lastRequest *Request
}

func (s *stubTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}
