package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/juda1804/youtube-community-sync/app/cfg"
	"github.com/juda1804/youtube-community-sync/app/channel"
	"github.com/juda1804/youtube-community-sync/app/database"
	"github.com/juda1804/youtube-community-sync/app/ingest"
	"github.com/juda1804/youtube-community-sync/app/session"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache         *channel.ConfigCache
	postRepo            database.PostRepository
	configRepo          database.ConfigRepository
	tracker             *session.Tracker
	pipeline            *ingest.Pipeline
	maxAgeDays          int
	cleanupIntervalDays int
	sessionRetention    int
	sessionMaxAge       time.Duration
	interval            time.Duration
	workerCount         int
	ctx                 context.Context
	cancel              context.CancelFunc
	wg                  sync.WaitGroup
	taskQueue           chan TaskInterface

	mu              sync.Mutex
	nextRedeliverAt map[string]time.Time
}

func NewScheduler(configCache *channel.ConfigCache, postRepo database.PostRepository,
	configRepo database.ConfigRepository, tracker *session.Tracker, pipeline *ingest.Pipeline) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		configCache:         configCache,
		postRepo:            postRepo,
		configRepo:          configRepo,
		tracker:             tracker,
		pipeline:            pipeline,
		maxAgeDays:          cfg.MaxAgeDays,
		cleanupIntervalDays: cfg.CleanupIntervalDays,
		sessionRetention:    cfg.SessionRetention,
		sessionMaxAge:       time.Duration(cfg.SessionMaxAge) * time.Minute,
		interval:            time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:         cfg.WorkerCount,
		ctx:                 ctx,
		cancel:              cancel,
		taskQueue:           make(chan TaskInterface, 300),
		nextRedeliverAt:     make(map[string]time.Time),
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

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	// Runs crashed mid-flight before a restart leave sessions stuck in
	// the running state; sweep those first so the history is honest
	sweepTask := NewSweepSessionsTask(s.tracker, s.sessionMaxAge, s.sessionRetention)
	if err := s.EnqueueTask(sweepTask); err != nil {
		slog.Warn("Failed to enqueue SweepSessionsTask", "error", err)
	}

	cleanupTask := NewCleanupTask(s.postRepo, s.configRepo, s.maxAgeDays, s.cleanupIntervalDays)
	if err := s.EnqueueTask(cleanupTask); err != nil {
		slog.Warn("Failed to enqueue CleanupTask", "error", err)
	}

	channelConfigs := s.configCache.GetEnabledConfigs()
	if len(channelConfigs) == 0 {
		slog.Debug("No enabled channel configurations found")
		return
	}

	slog.Debug("Processing channel configurations", "count", len(channelConfigs))

	for _, channelConfig := range channelConfigs {
		redeliverTask := NewRedeliverTask(channelConfig.Name, channelConfig, s.pipeline)
		if err := s.EnqueueTask(redeliverTask); err != nil {
			slog.Warn("Failed to enqueue RedeliverTask", "channel", channelConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	cleanupTask := NewCleanupTask(s.postRepo, s.configRepo, s.maxAgeDays, s.cleanupIntervalDays)
	if err := s.EnqueueTask(cleanupTask); err != nil {
		slog.Warn("Failed to enqueue CleanupTask", "error", err)
	}

	sweepTask := NewSweepSessionsTask(s.tracker, s.sessionMaxAge, s.sessionRetention)
	if err := s.EnqueueTask(sweepTask); err != nil {
		slog.Warn("Failed to enqueue SweepSessionsTask", "error", err)
	}

	channelConfigs := s.configCache.GetEnabledConfigs()
	if len(channelConfigs) == 0 {
		slog.Debug("No enabled channel configurations found")
		return
	}

	now := time.Now().UTC()

	for _, channelConfig := range channelConfigs {
		if !s.redeliverDue(channelConfig, now) {
			slog.Debug("Channel not due for redelivery yet", "channel", channelConfig.Name)
			continue
		}

		redeliverTask := NewRedeliverTask(channelConfig.Name, channelConfig, s.pipeline)
		if err := s.EnqueueTask(redeliverTask); err != nil {
			slog.Warn("Failed to enqueue RedeliverTask", "channel", channelConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) redeliverDue(channelConfig *channel.Config, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.nextRedeliverAt[channelConfig.Name]
	if ok && next.After(now) {
		return false
	}

	s.nextRedeliverAt[channelConfig.Name] = now.Add(time.Duration(channelConfig.Settings.IntervalMinutes) * time.Minute)
	return true
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
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

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "channel", task.GetChannelName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
