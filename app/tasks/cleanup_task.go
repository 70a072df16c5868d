package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juda1804/youtube-community-sync/app/database"
)

const lastCleanupKey = "last_cleanup"

// CleanupTask drops posts whose extraction time fell out of the retention
// window. Runs are throttled through the last_cleanup config key so a
// restart does not trigger an immediate re-run.
type CleanupTask struct {
	Task
	postRepo            database.PostRepository
	configRepo          database.ConfigRepository
	maxAgeDays          int
	cleanupIntervalDays int
}

func NewCleanupTask(postRepo database.PostRepository, configRepo database.ConfigRepository,
	maxAgeDays int, cleanupIntervalDays int) *CleanupTask {
	return &CleanupTask{
		Task:                NewTask(TaskTypeCleanup, ""),
		postRepo:            postRepo,
		configRepo:          configRepo,
		maxAgeDays:          maxAgeDays,
		cleanupIntervalDays: cleanupIntervalDays,
	}
}

func (t *CleanupTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := time.Now().UTC()

	due, err := t.due(now)
	if err != nil {
		slog.Error("Task failed", "type", "Cleanup", "error", err)
		return fmt.Errorf("failed to check cleanup schedule: %w", err)
	}
	if !due {
		slog.Debug("Cleanup not due yet, skipping")
		return nil
	}

	threshold := now.AddDate(0, 0, -t.maxAgeDays)

	deleted, err := t.postRepo.DeletePostsExtractedBefore(threshold)
	if err != nil {
		slog.Error("Task failed", "type", "Cleanup", "error", err)
		return fmt.Errorf("failed to delete expired posts: %w", err)
	}

	if err := t.configRepo.Set(lastCleanupKey, now.Format(time.RFC3339)); err != nil {
		slog.Error("Task failed", "type", "Cleanup", "error", err)
		return fmt.Errorf("failed to record cleanup time: %w", err)
	}

	slog.Info("Task completed",
		"type", "Cleanup",
		"deleted", deleted,
		"threshold", threshold.Format(time.RFC3339),
		"duration", t.GetDuration())

	return nil
}

func (t *CleanupTask) due(now time.Time) (bool, error) {
	value, ok, err := t.configRepo.Get(lastCleanupKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	last, err := time.Parse(time.RFC3339, value)
	if err != nil {
		slog.Warn("Invalid last_cleanup value, running cleanup", "value", value)
		return true, nil
	}

	return now.Sub(last) >= time.Duration(t.cleanupIntervalDays)*24*time.Hour, nil
}
