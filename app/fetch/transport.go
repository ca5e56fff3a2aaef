package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/lysyi3m/feed-unify/app/feed"
)

const DefaultMaxBodySize = 10 * 1024 * 1024

type Request struct {
	URL         string
	Headers     http.Header
	// AuthHeaders carry credentials. They are dropped when a redirect leaves
	// the original host.
	AuthHeaders http.Header
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string
}

// Transport performs a single GET. Failures are returned as *feed.Error of
// kind network_error or timeout; cancellation is returned as ctx.Err().
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

var _ Transport = (*HTTPTransport)(nil)

type HTTPTransport struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

func NewHTTPTransport(client *http.Client, userAgent string, maxBodySize int64) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &HTTPTransport{
		client:      client,
		userAgent:   userAgent,
		maxBodySize: maxBodySize,
	}
}

func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, feed.NewNetworkError("Invalid request URL", err)
	}

	for _, h := range []http.Header{req.Headers, req.AuthHeaders} {
		for name, values := range h {
			for _, v := range values {
				httpReq.Header.Add(name, v)
			}
		}
	}
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.clientFor(httpReq.URL.Host, req.AuthHeaders).Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize+1))
	if err != nil {
		return nil, classifyTransportError(ctx, req.URL, err)
	}
	if int64(len(body)) > t.maxBodySize {
		return nil, feed.NewNetworkError(fmt.Sprintf("Response too large (exceeds %d bytes)", t.maxBodySize), nil)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// clientFor returns a client that strips authHeaders from redirects to a
// host other than origin. net/http only does this for Authorization and Cookie.
func (t *HTTPTransport) clientFor(origin string, authHeaders http.Header) *http.Client {
	if len(authHeaders) == 0 {
		return t.client
	}

	client := *t.client
	next := t.client.CheckRedirect
	client.CheckRedirect = func(r *http.Request, via []*http.Request) error {
		if r.URL.Host != origin {
			for name := range authHeaders {
				r.Header.Del(name)
			}
		}
		if next != nil {
			return next(r, via)
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	return &client
}

func classifyTransportError(ctx context.Context, url string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		slog.Error("Request timed out", "url", url, "error", err)
		return feed.NewTimeoutError("Request timed out", err)
	}

	slog.Error("Request failed", "url", url, "error", err)
	return feed.NewNetworkError("Request failed", err)
}
