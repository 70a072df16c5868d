package api

import (
	"github.com/juda1804/youtube-community-sync/app/channel"
	"github.com/juda1804/youtube-community-sync/app/database"
	"github.com/juda1804/youtube-community-sync/app/ingest"
	"github.com/juda1804/youtube-community-sync/app/post"
	"github.com/juda1804/youtube-community-sync/app/sink"
)

type Handler struct {
	postRepo    database.PostRepository
	sessionRepo database.SessionRepository
	configRepo  database.ConfigRepository
	configCache *channel.ConfigCache
	pipeline    *ingest.Pipeline
	sink        *sink.Client
}

// SubmitBatchRequest carries one scraped batch for a channel. Posts are
// candidates, not records: they are deduplicated and cutoff-filtered before
// anything is persisted.
type SubmitBatchRequest struct {
	Type             string           `json:"type"`
	Posts            []post.Candidate `json:"posts"`
	ActivationCutoff string           `json:"activationCutoff,omitempty"`
	SourceURL        string           `json:"sourceUrl,omitempty"`
	IntervalMinutes  int              `json:"intervalMinutes,omitempty"`
}

type SubmitBatchResponse struct {
	SessionID     string `json:"sessionId"`
	PostsFound    int    `json:"postsFound"`
	AlreadySeen   int    `json:"alreadySeen"`
	TooOld        int    `json:"tooOld"`
	PostsNew      int    `json:"postsNew"`
	Delivered     bool   `json:"delivered"`
	DeliveryError string `json:"deliveryError,omitempty"`
}

type MarkDeliveredRequest struct {
	IDs []string `json:"ids"`
}

type ExportData struct {
	ExportedAt string             `json:"exportedAt"`
	Posts      []database.Post    `json:"posts"`
	Sessions   []database.Session `json:"sessions"`
	Config     map[string]string  `json:"config"`
}
