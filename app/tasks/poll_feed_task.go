package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/feed-unify/app/feed"
	"github.com/lysyi3m/feed-unify/app/fetch"
)

type PollFeedTask struct {
	Task
	FeedConfig *feed.Config
	fetcher    FeedFetcher
	onComplete func(name string, result *fetch.Result, err error)
}

func NewPollFeedTask(feedName string, feedConfig *feed.Config, fetcher FeedFetcher) *PollFeedTask {
	return &PollFeedTask{
		Task:       NewTask(TaskTypePollFeed, feedName),
		FeedConfig: feedConfig,
		fetcher:    fetcher,
	}
}

func (t *PollFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		t.MarkPermanent()
		return ctx.Err()
	default:
	}

	if !t.FeedConfig.Settings.Enabled {
		slog.Debug("Feed disabled, skipping", "feed", t.FeedName)
		return nil
	}

	result, err := t.fetcher.Fetch(ctx, t.FeedConfig.URL, t.fetchOptions())
	if t.onComplete != nil {
		t.onComplete(t.FeedName, result, err)
	}
	if err != nil {
		if !retryable(err) {
			t.MarkPermanent()
		}
		return fmt.Errorf("failed to poll feed: %w", err)
	}

	slog.Info("Task completed",
		"type", "PollFeed",
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"items", len(result.Feed.Items),
		"not_modified", result.NotModified,
		"from_cache", result.FromCache)

	return nil
}

func (t *PollFeedTask) fetchOptions() fetch.FetchOptions {
	settings := t.FeedConfig.Settings

	opts := fetch.FetchOptions{
		Credentials: fetch.CredentialsFromConfig(t.FeedConfig.Auth),
		Timeout:     time.Duration(settings.Timeout) * time.Second,
	}
	if settings.Cache != nil && !*settings.Cache {
		opts.DisableCache = true
	}
	return opts
}

// Only transport-level failures are worth another attempt.
func retryable(err error) bool {
	switch feed.KindOf(err) {
	case feed.ErrorKindNetwork, feed.ErrorKindTimeout:
		return true
	default:
		return false
	}
}
