package database

import (
	"time"
)

type PostRepository interface {
	GetPost(id string) (*Post, error)
	GetPostCount() (int, error)
	GetRecentPosts(limit int) ([]Post, error)
	GetUndeliveredPosts(channel string, limit int) ([]Post, error)
	GetAllPosts() ([]Post, error)

	UpsertPosts(posts []Post) error
	MarkDelivered(ids []string, deliveredAt time.Time) (int, error)

	DeletePostsExtractedBefore(cutoff time.Time) (int, error)
	DeleteAllPosts() error
}

type SessionRepository interface {
	CreateSession(session Session) error
	GetSession(sessionID string) (*Session, error)
	GetSessionCount() (int, error)
	GetRecentSessions(limit int) ([]Session, error)
	GetAllSessions() ([]Session, error)

	UpdateSession(sessionID string, update SessionUpdate) error

	MarkStaleRunning(before time.Time, message string) (int, error)
	TrimSessions(keep int) (int, error)
	DeleteAllSessions() error
}

type ConfigRepository interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	GetAll() (map[string]string, error)
	DeleteAll() error
}
