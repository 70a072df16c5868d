package post

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/juda1804/youtube-community-sync/app/database"
)

// Reconciler decides which scraped candidates are genuinely new relative to
// the persisted history. A candidate survives when its id has never been
// stored and it was published at or after the activation cutoff.
type Reconciler struct {
	posts  database.PostRepository
	parser *TimeParser
}

func NewReconciler(posts database.PostRepository, parser *TimeParser) *Reconciler {
	return &Reconciler{posts: posts, parser: parser}
}

type ReconcileStats struct {
	Found       int
	AlreadySeen int
	TooOld      int
	New         int
}

// Run classifies candidates in input order and returns the surviving subset
// as posts ready to persist. The result is NOT persisted here; callers must
// persist immediately after a successful run, before any other run for the
// same channel may start.
func (r *Reconciler) Run(candidates []Candidate, cutoff time.Time) ([]database.Post, ReconcileStats, error) {
	stats := ReconcileStats{Found: len(candidates)}
	now := r.parser.Now()

	var newPosts []database.Post
	for _, candidate := range candidates {
		id := candidate.ID
		if id == "" {
			id = candidate.Fingerprint()
		}

		existing, err := r.posts.GetPost(id)
		if err != nil {
			return nil, stats, fmt.Errorf("failed to look up candidate %s: %w", id, err)
		}
		if existing != nil {
			stats.AlreadySeen++
			slog.Debug("Candidate already processed", "id", id)
			continue
		}

		publishedAt := r.parser.Parse(candidate.PublishedTime, now)
		if publishedAt.Before(cutoff) {
			stats.TooOld++
			slog.Debug("Candidate published before activation cutoff",
				"id", id, "published_at", publishedAt, "cutoff", cutoff)
			continue
		}

		newPosts = append(newPosts, database.Post{
			ID:                id,
			Channel:           candidate.Channel,
			Author:            candidate.Author,
			Content:           candidate.Content,
			PublishedTimeText: candidate.PublishedTime,
			PublishedAt:       publishedAt,
			Likes:             candidate.Likes,
			Images:            candidate.Images,
			ExtractedAt:       candidate.ParseExtractedAt(now),
			SourceURL:         candidate.SourceURL,
			Delivered:         false,
		})
		stats.New++
	}

	return newPosts, stats, nil
}
