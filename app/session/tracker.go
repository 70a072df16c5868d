package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/juda1804/youtube-community-sync/app/database"
)

// Tracker records the lifecycle of each scrape run: start, item counts,
// completion or error, duration. Sessions transition forward only,
// running -> completed | error; a terminal session is never touched again.
type Tracker struct {
	sessions database.SessionRepository
}

func NewTracker(sessions database.SessionRepository) *Tracker {
	return &Tracker{sessions: sessions}
}

// Start creates and persists a running session, returning its id. Ids are
// time-ordered with an entropy suffix so two runs starting on the same
// millisecond never collide.
func (t *Tracker) Start(sessionType string, activationCutoff time.Time, intervalMinutes int) (string, error) {
	now := time.Now().UTC()
	sessionID := fmt.Sprintf("session_%d_%s", now.UnixMilli(), uuid.NewString()[:8])

	session := database.Session{
		SessionID:        sessionID,
		Type:             sessionType,
		CreatedAt:        now,
		ActivationCutoff: activationCutoff,
		IntervalMinutes:  intervalMinutes,
		Status:           database.SessionStatusRunning,
	}

	if err := t.sessions.CreateSession(session); err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}

	slog.Info("Session started", "session_id", sessionID, "type", sessionType,
		"activation_cutoff", activationCutoff)

	return sessionID, nil
}

// RecordCounts updates the found/new counters on a running session
func (t *Tracker) RecordCounts(sessionID string, postsFound, postsNew int) error {
	err := t.sessions.UpdateSession(sessionID, database.SessionUpdate{
		PostsFound: &postsFound,
		PostsNew:   &postsNew,
	})
	if err != nil {
		return fmt.Errorf("failed to record session counts: %w", err)
	}
	return nil
}

// Complete finishes a session on the happy path, whether or not new posts
// were found
func (t *Tracker) Complete(sessionID string, duration time.Duration) error {
	return t.finish(sessionID, database.SessionStatusCompleted, "", duration)
}

// Fail finishes a session with an error message
func (t *Tracker) Fail(sessionID string, message string, duration time.Duration) error {
	return t.finish(sessionID, database.SessionStatusError, message, duration)
}

func (t *Tracker) finish(sessionID, status, message string, duration time.Duration) error {
	current, err := t.sessions.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if current == nil {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	if current.Status != database.SessionStatusRunning {
		// No transition out of a terminal state
		return fmt.Errorf("session %s already %s", sessionID, current.Status)
	}

	durationMs := duration.Milliseconds()
	err = t.sessions.UpdateSession(sessionID, database.SessionUpdate{
		Status:     &status,
		Error:      &message,
		DurationMs: &durationMs,
	})
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}

	slog.Info("Session finished", "session_id", sessionID, "status", status,
		"duration", duration)

	return nil
}

// SweepStale forces running sessions older than maxAge into the error state.
// A crash mid-run leaves its session permanently running; the sweep is the
// recovery path.
func (t *Tracker) SweepStale(maxAge time.Duration) (int, error) {
	before := time.Now().UTC().Add(-maxAge)
	count, err := t.sessions.MarkStaleRunning(before, fmt.Sprintf("stale: still running after %s", maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale sessions: %w", err)
	}

	if count > 0 {
		slog.Warn("Stale running sessions marked as error", "count", count, "max_age", maxAge)
	}

	return count, nil
}

// Trim keeps only the most recent N sessions
func (t *Tracker) Trim(keep int) (int, error) {
	count, err := t.sessions.TrimSessions(keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim sessions: %w", err)
	}

	if count > 0 {
		slog.Debug("Old sessions trimmed", "deleted", count, "keep", keep)
	}

	return count, nil
}
