package sink

import (
	"github.com/juda1804/youtube-community-sync/app/database"
)

// SourceTag identifies this service in every outbound payload
const SourceTag = "youtube-community-sync"

const (
	BatchTypeCommunityPosts = "community_posts"
	BatchTypeTest           = "test"
)

// Payload is the envelope posted to the webhook endpoint
type Payload struct {
	Timestamp string      `json:"timestamp"`
	Source    string      `json:"source"`
	Type      string      `json:"type"`
	Data      PayloadData `json:"data"`
}

type PayloadData struct {
	Channel    string          `json:"channel"`
	PostsCount int             `json:"postsCount"`
	Posts      []database.Post `json:"posts"`
	ScrapedAt  string          `json:"scrapedAt"`
	SourceURL  string          `json:"sourceUrl"`
}
