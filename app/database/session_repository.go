package database

import (
	"database/sql"
	"fmt"
	"time"
)

// SessionRepositoryImpl handles database operations for scrape sessions
type SessionRepositoryImpl struct {
	db *DB
}

var _ SessionRepository = (*SessionRepositoryImpl)(nil)

func NewSessionRepository(db *DB) *SessionRepositoryImpl {
	return &SessionRepositoryImpl{db: db}
}

const sessionColumns = `session_id, type, created_at, activation_cutoff,
       interval_minutes, posts_found, posts_new, status, error, duration_ms`

// CreateSession persists a new session record
func (r *SessionRepositoryImpl) CreateSession(session Session) error {
	_, err := r.db.Exec(`
		INSERT INTO sessions (
			session_id, type, created_at, activation_cutoff,
			interval_minutes, posts_found, posts_new, status, error, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.SessionID, session.Type, session.CreatedAt.UTC(), session.ActivationCutoff.UTC(),
		session.IntervalMinutes, session.PostsFound, session.PostsNew,
		session.Status, session.Error, session.DurationMs)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession returns the session with the given id, or nil when not found
func (r *SessionRepositoryImpl) GetSession(sessionID string) (*Session, error) {
	row := r.db.QueryRow(`
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE session_id = ?
	`, sessionID)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// UpdateSession applies a partial update to a session. Only non-nil fields
// of the update are changed (read-modify-write merge, last writer wins).
func (r *SessionRepositoryImpl) UpdateSession(sessionID string, update SessionUpdate) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE session_id = ?
	`, sessionID)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	if update.PostsFound != nil {
		session.PostsFound = *update.PostsFound
	}
	if update.PostsNew != nil {
		session.PostsNew = *update.PostsNew
	}
	if update.Status != nil {
		session.Status = *update.Status
	}
	if update.Error != nil {
		session.Error = *update.Error
	}
	if update.DurationMs != nil {
		session.DurationMs = *update.DurationMs
	}

	_, err = tx.Exec(`
		UPDATE sessions
		SET posts_found = ?, posts_new = ?, status = ?, error = ?, duration_ms = ?
		WHERE session_id = ?
	`, session.PostsFound, session.PostsNew, session.Status, session.Error,
		session.DurationMs, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session update: %w", err)
	}

	return nil
}

// GetSessionCount returns the total number of stored sessions
func (r *SessionRepositoryImpl) GetSessionCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get session count: %w", err)
	}
	return count, nil
}

// GetRecentSessions returns the most recently created sessions, newest first
func (r *SessionRepositoryImpl) GetRecentSessions(limit int) ([]Session, error) {
	rows, err := r.db.Query(`
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// GetAllSessions returns every stored session, newest first
func (r *SessionRepositoryImpl) GetAllSessions() ([]Session, error) {
	rows, err := r.db.Query(`
		SELECT ` + sessionColumns + `
		FROM sessions
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// MarkStaleRunning transitions running sessions created before the given
// instant to the error status. Covers sessions orphaned by a crash, which
// would otherwise stay running forever.
func (r *SessionRepositoryImpl) MarkStaleRunning(before time.Time, message string) (int, error) {
	result, err := r.db.Exec(`
		UPDATE sessions
		SET status = ?, error = ?
		WHERE status = ?
		  AND created_at < ?
	`, SessionStatusError, message, SessionStatusRunning, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// TrimSessions keeps only the most recent N sessions and deletes the rest.
// Returns the number of sessions deleted.
func (r *SessionRepositoryImpl) TrimSessions(keep int) (int, error) {
	result, err := r.db.Exec(`
		DELETE FROM sessions
		WHERE session_id NOT IN (
			SELECT session_id FROM sessions
			ORDER BY created_at DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// DeleteAllSessions wipes the sessions table. Debug and testing operation.
func (r *SessionRepositoryImpl) DeleteAllSessions() error {
	if _, err := r.db.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to delete all sessions: %w", err)
	}
	return nil
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	err := row.Scan(
		&session.SessionID, &session.Type, &session.CreatedAt, &session.ActivationCutoff,
		&session.IntervalMinutes, &session.PostsFound, &session.PostsNew,
		&session.Status, &session.Error, &session.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func collectSessions(rows *sql.Rows) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}
