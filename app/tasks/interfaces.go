package tasks

import (
	"context"

	"github.com/lysyi3m/feed-unify/app/fetch"
)

// TaskSchedulerInterface is what the HTTP layer and main need from the
// scheduler: lifecycle, ad hoc enqueueing and poll bookkeeping.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	PollNow(feedName string) (*PollFeedTask, error)
	PollStatus(feedName string) (PollStatus, bool)
}

// FeedFetcher is satisfied by *fetch.Gateway.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string, opts fetch.FetchOptions) (*fetch.Result, error)
}

var _ FeedFetcher = (*fetch.Gateway)(nil)
