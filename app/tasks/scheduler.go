package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lysyi3m/feed-unify/app/feed"
	"github.com/lysyi3m/feed-unify/app/fetch"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// PollStatus is the scheduler's view of one subscription.
type PollStatus struct {
	NextFetchAt  time.Time  `json:"next_fetch_at"`
	LastPolledAt *time.Time `json:"last_polled_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	ItemCount    int        `json:"item_count"`
	NotModified  bool       `json:"not_modified"`
}

type Scheduler struct {
	configCache *feed.ConfigCache
	fetcher     FeedFetcher
	interval    time.Duration
	workerCount int
	now         func() time.Time
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu     sync.RWMutex
	status map[string]*PollStatus
}

func NewScheduler(configCache *feed.ConfigCache, fetcher FeedFetcher, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		configCache: configCache,
		fetcher:     fetcher,
		interval:    interval,
		workerCount: workerCount,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
		status:      make(map[string]*PollStatus),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

// Stop cancels running tasks and pending retries and waits for the workers.
// The queue is left open so a late retry can never send on a closed channel.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// PollNow enqueues an immediate poll of the named subscription.
func (s *Scheduler) PollNow(feedName string) (*PollFeedTask, error) {
	feedConfig, err := s.configCache.GetConfig(feedName)
	if err != nil {
		return nil, err
	}

	task := s.newPollTask(feedConfig)
	if err := s.EnqueueTask(task); err != nil {
		return nil, fmt.Errorf("failed to enqueue poll task: %w", err)
	}
	return task, nil
}

func (s *Scheduler) PollStatus(feedName string) (PollStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.status[feedName]
	if !ok {
		return PollStatus{}, false
	}
	return *status, true
}

func (s *Scheduler) enqueueDueTasks() {
	feedConfigs := s.configCache.GetEnabledConfigs()
	if len(feedConfigs) == 0 {
		slog.Debug("No enabled feed configurations found")
		return
	}

	names := make([]string, 0, len(feedConfigs))
	for name := range feedConfigs {
		names = append(names, name)
	}
	sort.Strings(names)

	slog.Debug("Checking enabled feeds for due polls", "count", len(names))

	now := s.now().UTC()
	for _, name := range names {
		feedConfig := feedConfigs[name]

		s.mu.Lock()
		status, ok := s.status[name]
		if ok && status.NextFetchAt.After(now) {
			s.mu.Unlock()
			slog.Debug("Feed not due for refresh yet", "feed", name, "next_fetch_at", status.NextFetchAt)
			continue
		}
		if !ok {
			status = &PollStatus{}
			s.status[name] = status
		}
		previous := status.NextFetchAt
		status.NextFetchAt = now.Add(time.Duration(feedConfig.Settings.RefreshInterval) * time.Second)
		s.mu.Unlock()

		if err := s.EnqueueTask(s.newPollTask(feedConfig)); err != nil {
			slog.Warn("Failed to enqueue PollFeedTask", "feed", name, "error", err)
			s.mu.Lock()
			status.NextFetchAt = previous
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) newPollTask(feedConfig *feed.Config) *PollFeedTask {
	task := NewPollFeedTask(feedConfig.Name, feedConfig, s.fetcher)
	task.onComplete = s.recordPoll
	return task
}

func (s *Scheduler) recordPoll(name string, result *fetch.Result, err error) {
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.status[name]
	if !ok {
		status = &PollStatus{NextFetchAt: now}
		s.status[name] = status
	}
	status.LastPolledAt = &now

	if err != nil {
		status.LastError = err.Error()
		return
	}
	status.LastError = ""
	status.ItemCount = len(result.Feed.Items)
	status.NotModified = result.NotModified
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task will not be retried", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed", task.GetFeedName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

func retryDelay(retryCount int) time.Duration {
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
