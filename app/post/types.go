package post

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Candidate is a scraped community post not yet judged new or already seen.
// It mirrors the shape produced by the scraping collaborator.
type Candidate struct {
	ID            string   `json:"id"`
	Channel       string   `json:"channel"`
	Author        string   `json:"author"`
	Content       string   `json:"content"`
	PublishedTime string   `json:"publishedTime"`
	Likes         string   `json:"likes"`
	Images        []string `json:"images"`
	ExtractedAt   string   `json:"extractedAt"`
	SourceURL     string   `json:"sourceUrl"`
}

// Fingerprint derives a stable content-based id for a candidate that arrived
// without one. Posts with identical author and content collapse to the same
// id; empty content falls back to the raw published-time text so repeated
// image-only posts by the same author still get distinct ids per timestamp.
func (c Candidate) Fingerprint() string {
	content := c.Content
	if content == "" {
		content = c.PublishedTime
	}

	hash := sha256.Sum256([]byte(c.Author + "|" + content))
	return fmt.Sprintf("community_post_%s", hex.EncodeToString(hash[:])[:16])
}

// ParseExtractedAt parses the candidate's extraction timestamp, falling back
// to now when the scraper sent nothing usable.
func (c Candidate) ParseExtractedAt(now time.Time) time.Time {
	if c.ExtractedAt == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339, c.ExtractedAt)
	if err != nil {
		return now
	}
	return t
}
