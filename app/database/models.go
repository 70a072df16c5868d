package database

import (
	"time"
)

// Post represents a community post record in the database. A post is
// immutable once stored except for the delivery fields, which flip exactly
// once when the downstream sink confirms receipt.
type Post struct {
	ID                string     `json:"id"` // Content-derived fingerprint, unique across all posts
	Channel           string     `json:"channel"`
	Author            string     `json:"author"`
	Content           string     `json:"content"`
	PublishedTimeText string     `json:"publishedTime"` // Raw relative-time string as scraped ("hace 2 días")
	PublishedAt       time.Time  `json:"publishedAt"`
	Likes             string     `json:"likes"`
	Images            []string   `json:"images"`
	ExtractedAt       time.Time  `json:"extractedAt"`
	SourceURL         string     `json:"sourceUrl"`
	SessionID         string     `json:"sessionId"` // Session that first persisted this post (lookup only)
	Delivered         bool       `json:"delivered"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty"`
}

// Session represents one scrape attempt's metadata record
type Session struct {
	SessionID        string    `json:"sessionId"`
	Type             string    `json:"type"`
	CreatedAt        time.Time `json:"createdAt"`
	ActivationCutoff time.Time `json:"activationCutoff"` // Posts published before this are ignored regardless of novelty
	IntervalMinutes  int       `json:"intervalMinutes"`
	PostsFound       int       `json:"postsFound"`
	PostsNew         int       `json:"postsNew"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	DurationMs       int64     `json:"durationMs"`
}

const (
	SessionStatusRunning   = "running"
	SessionStatusCompleted = "completed"
	SessionStatusError     = "error"
)

const (
	SessionTypeManual    = "manual"
	SessionTypeScheduled = "scheduled"
	SessionTypeTest      = "test"
)

// SessionUpdate carries a partial session update. Only non-nil fields are
// applied (merge semantics).
type SessionUpdate struct {
	PostsFound *int
	PostsNew   *int
	Status     *string
	Error      *string
	DurationMs *int64
}
