package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feed-unify/app/feed"
	"github.com/lysyi3m/feed-unify/app/fetch"
	"github.com/lysyi3m/feed-unify/app/tasks"
)

func NewHandler(gateway GatewayInterface, configCache *feed.ConfigCache, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		gateway:     gateway,
		configCache: configCache,
		scheduler:   scheduler,
	}
}

// GetFeed fetches an arbitrary feed URL through the gateway.
func (h *Handler) GetFeed(c *gin.Context) {
	rawURL := c.Query("url")
	if !validFeedURL(rawURL) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "Query parameter 'url' must be an absolute http(s) URL"})
		return
	}

	opts := fetch.FetchOptions{}
	if v := c.Query("cache"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "Query parameter 'cache' must be a boolean"})
			return
		}
		opts.DisableCache = !enabled
	}
	if v := c.Query("max_age"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "Query parameter 'max_age' must be a non-negative number of seconds"})
			return
		}
		opts.MaxAge = time.Duration(seconds) * time.Second
	}

	// A known subscription lends its credentials to ad hoc requests.
	if feedConfig, ok := h.configCache.FindByURL(rawURL); ok {
		opts.Credentials = fetch.CredentialsFromConfig(feedConfig.Auth)
	}

	h.fetchAndRespond(c, rawURL, opts)
}

// GetSubscription fetches a configured feed by name with its own settings.
func (h *Handler) GetSubscription(c *gin.Context) {
	name := c.Param("name")

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Debug("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, ErrorResponse{Error: string(feed.ErrorKindNotFound), Message: "Feed configuration not found"})
		return
	}

	opts := fetch.FetchOptions{
		Credentials: fetch.CredentialsFromConfig(feedConfig.Auth),
		Timeout:     time.Duration(feedConfig.Settings.Timeout) * time.Second,
	}
	if feedConfig.Settings.Cache != nil && !*feedConfig.Settings.Cache {
		opts.DisableCache = true
	}

	c.Header("X-Feed-Name", name)
	h.fetchAndRespond(c, feedConfig.URL, opts)
}

func (h *Handler) fetchAndRespond(c *gin.Context, rawURL string, opts fetch.FetchOptions) {
	result, err := h.gateway.Fetch(c.Request.Context(), rawURL, opts)
	if err != nil {
		status, body := errorResponse(err)
		slog.Warn("Feed request failed", "url", rawURL, "status", status, "error", err)
		c.JSON(status, body)
		return
	}

	switch {
	case result.NotModified:
		c.Header("X-Cache", "REVALIDATED")
	case result.FromCache:
		c.Header("X-Cache", "HIT")
	default:
		c.Header("X-Cache", "MISS")
	}
	c.Header("X-Feed-Items", strconv.Itoa(len(result.Feed.Items)))

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":                "ok",
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
		"cache_enabled":         h.gateway.CacheEnabled(),
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	feeds := make([]FeedSummary, 0, len(configs))
	for _, name := range names {
		feedConfig := configs[name]

		summary := FeedSummary{
			Name:            feedConfig.Name,
			URL:             feedConfig.URL,
			Enabled:         feedConfig.Settings.Enabled,
			RefreshInterval: (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
			Timeout:         (time.Duration(feedConfig.Settings.Timeout) * time.Second).String(),
			Cache:           h.gateway.CacheEnabled() && (feedConfig.Settings.Cache == nil || *feedConfig.Settings.Cache),
		}
		if feedConfig.Auth != nil {
			summary.Auth = feedConfig.Auth.Type
		}

		entry, ok, err := h.gateway.Cached(c.Request.Context(), feedConfig.URL)
		if err != nil {
			slog.Warn("Cache lookup failed", "feed", name, "error", err)
		} else if ok {
			cachedAt := entry.CachedAt
			summary.CachedAt = &cachedAt
			summary.ETag = entry.ETag
			summary.Title = entry.Feed.Title
		}

		if h.scheduler != nil {
			if status, ok := h.scheduler.PollStatus(name); ok {
				summary.Poll = &status
			}
		}

		feeds = append(feeds, summary)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIPollFeed(c *gin.Context) {
	name := c.Param("name")

	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "Scheduler is not running"})
		return
	}

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: string(feed.ErrorKindNotFound), Message: "Feed configuration not found"})
		return
	}

	task, err := h.scheduler.PollNow(name)
	if err != nil {
		slog.Error("Error enqueueing poll task", "feed", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
			"feed": name,
		},
	})
}

// APIClearCache evicts one feed when 'url' is given, everything otherwise.
func (h *Handler) APIClearCache(c *gin.Context) {
	ctx := c.Request.Context()

	if rawURL := c.Query("url"); rawURL != "" {
		if err := h.gateway.Evict(ctx, rawURL); err != nil {
			slog.Error("Cache eviction failed", "url", rawURL, "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "cache_error", Message: err.Error()})
			return
		}
		slog.Info("Cache entry evicted", "url", rawURL)
		c.JSON(http.StatusOK, gin.H{"success": true, "evicted": feed.NormalizeURL(rawURL)})
		return
	}

	if err := h.gateway.Clear(ctx); err != nil {
		slog.Error("Cache clear failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "cache_error", Message: err.Error()})
		return
	}
	slog.Info("Cache cleared")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func errorResponse(err error) (int, ErrorResponse) {
	var feedErr *feed.Error
	if errors.As(err, &feedErr) {
		return statusForKind(feedErr.Kind), ErrorResponse{Error: string(feedErr.Kind), Message: feedErr.Message}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrorResponse{Error: string(feed.ErrorKindTimeout), Message: err.Error()}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()}
}

func statusForKind(kind feed.ErrorKind) int {
	switch kind {
	case feed.ErrorKindInvalidFeed, feed.ErrorKindParse, feed.ErrorKindEncoding:
		return http.StatusUnprocessableEntity
	case feed.ErrorKindNotFound:
		return http.StatusNotFound
	case feed.ErrorKindUnauthorized:
		return http.StatusForbidden
	case feed.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func validFeedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
