package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const TaskTypePollFeed TaskType = "poll_feed"

// DefaultMaxRetries bounds re-enqueues after transient failures.
const DefaultMaxRetries = 3

// TaskInterface is a unit of work run by the scheduler's workers.
type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetFeedName() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

// Task holds the bookkeeping shared by every task type. Embed it and
// implement Execute.
type Task struct {
	ID         string
	Type       TaskType
	FeedName   string
	CreatedAt  time.Time
	RetryCount int
	MaxRetries int

	startedAt time.Time
	permanent bool
}

func NewTask(taskType TaskType, feedName string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		FeedName:   feedName,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) GetID() string       { return t.ID }
func (t *Task) GetType() TaskType   { return t.Type }
func (t *Task) GetFeedName() string { return t.FeedName }
func (t *Task) GetRetryCount() int  { return t.RetryCount }
func (t *Task) GetMaxRetries() int  { return t.MaxRetries }

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

// CanRetry is false once the budget is spent or the task was marked permanent.
func (t *Task) CanRetry() bool {
	return !t.permanent && t.RetryCount < t.MaxRetries
}

// MarkPermanent stops further retries after a failure that will not go away
// by trying again.
func (t *Task) MarkPermanent() {
	t.permanent = true
}

// Start records the beginning of the current attempt.
func (t *Task) Start() {
	t.startedAt = time.Now()
}

// GetDuration is the time since the current attempt started, zero before Start.
func (t *Task) GetDuration() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	return time.Since(t.startedAt)
}
