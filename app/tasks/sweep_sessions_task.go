package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juda1804/youtube-community-sync/app/session"
)

// SweepSessionsTask closes out sessions stuck in the running state and
// trims the session history to the retention limit
type SweepSessionsTask struct {
	Task
	tracker       *session.Tracker
	staleAfter    time.Duration
	retentionKeep int
}

func NewSweepSessionsTask(tracker *session.Tracker, staleAfter time.Duration, retentionKeep int) *SweepSessionsTask {
	return &SweepSessionsTask{
		Task:          NewTask(TaskTypeSweepSessions, ""),
		tracker:       tracker,
		staleAfter:    staleAfter,
		retentionKeep: retentionKeep,
	}
}

func (t *SweepSessionsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	swept, err := t.tracker.SweepStale(t.staleAfter)
	if err != nil {
		slog.Error("Task failed", "type", "SweepSessions", "error", err)
		return fmt.Errorf("failed to sweep stale sessions: %w", err)
	}

	trimmed, err := t.tracker.Trim(t.retentionKeep)
	if err != nil {
		slog.Error("Task failed", "type", "SweepSessions", "error", err)
		return fmt.Errorf("failed to trim session history: %w", err)
	}

	slog.Info("Task completed",
		"type", "SweepSessions",
		"swept", swept,
		"trimmed", trimmed,
		"duration", t.GetDuration())

	return nil
}
