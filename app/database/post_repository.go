package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PostRepositoryImpl handles database operations for community posts
type PostRepositoryImpl struct {
	db *DB
}

var _ PostRepository = (*PostRepositoryImpl)(nil)

func NewPostRepository(db *DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

const postColumns = `id, channel, author, content, published_time_text,
       published_at, likes, images, extracted_at, source_url,
       session_id, delivered, delivered_at`

// GetPost returns the post with the given id, or nil when not found
func (r *PostRepositoryImpl) GetPost(id string) (*Post, error) {
	row := r.db.QueryRow(`
		SELECT `+postColumns+`
		FROM posts
		WHERE id = ?
	`, id)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// UpsertPosts stores the given posts, overwriting any existing record with
// the same id. The whole batch is written in a single transaction.
func (r *PostRepositoryImpl) UpsertPosts(posts []Post) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO posts (
			id, channel, author, content, published_time_text,
			published_at, likes, images, extracted_at, source_url,
			session_id, delivered, delivered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			session_id = excluded.session_id,
			delivered = excluded.delivered,
			delivered_at = excluded.delivered_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, post := range posts {
		images, err := json.Marshal(post.Images)
		if err != nil {
			return fmt.Errorf("failed to marshal images: %w", err)
		}

		var deliveredAt interface{}
		if post.DeliveredAt != nil {
			deliveredAt = post.DeliveredAt.UTC()
		}

		_, err = stmt.Exec(
			post.ID, post.Channel, post.Author, post.Content, post.PublishedTimeText,
			post.PublishedAt.UTC(), post.Likes, string(images), post.ExtractedAt.UTC(),
			post.SourceURL, post.SessionID, post.Delivered, deliveredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert post %s: %w", post.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	return nil
}

// GetPostCount returns the total number of stored posts
func (r *PostRepositoryImpl) GetPostCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

// GetRecentPosts returns the most recently extracted posts, newest first
func (r *PostRepositoryImpl) GetRecentPosts(limit int) ([]Post, error) {
	rows, err := r.db.Query(`
		SELECT `+postColumns+`
		FROM posts
		ORDER BY extracted_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// GetUndeliveredPosts returns posts for a channel that were persisted but
// never confirmed by the sink, oldest first so redelivery preserves order
func (r *PostRepositoryImpl) GetUndeliveredPosts(channel string, limit int) ([]Post, error) {
	rows, err := r.db.Query(`
		SELECT `+postColumns+`
		FROM posts
		WHERE channel = ?
		  AND delivered = 0
		ORDER BY extracted_at ASC
		LIMIT ?
	`, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get undelivered posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// GetAllPosts returns every stored post, newest first
func (r *PostRepositoryImpl) GetAllPosts() ([]Post, error) {
	rows, err := r.db.Query(`
		SELECT ` + postColumns + `
		FROM posts
		ORDER BY extracted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// MarkDelivered sets the delivery fields on the given posts. Posts not in
// the list are unaffected; unknown ids are silently skipped. Returns the
// number of rows updated.
func (r *PostRepositoryImpl) MarkDelivered(ids []string, deliveredAt time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, deliveredAt.UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := r.db.Exec(`
		UPDATE posts
		SET delivered = 1, delivered_at = ?
		WHERE id IN (`+placeholders+`)
		  AND delivered = 0
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark posts delivered: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// DeletePostsExtractedBefore removes posts whose extraction time is strictly
// before the cutoff. Returns the number of posts deleted.
func (r *PostRepositoryImpl) DeletePostsExtractedBefore(cutoff time.Time) (int, error) {
	result, err := r.db.Exec(`
		DELETE FROM posts
		WHERE extracted_at < ?
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old posts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// DeleteAllPosts wipes the posts table. Debug and testing operation.
func (r *PostRepositoryImpl) DeleteAllPosts() error {
	if _, err := r.db.Exec("DELETE FROM posts"); err != nil {
		return fmt.Errorf("failed to delete all posts: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*Post, error) {
	var post Post
	var images string
	var deliveredAt sql.NullTime

	err := row.Scan(
		&post.ID, &post.Channel, &post.Author, &post.Content, &post.PublishedTimeText,
		&post.PublishedAt, &post.Likes, &images, &post.ExtractedAt, &post.SourceURL,
		&post.SessionID, &post.Delivered, &deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(images), &post.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}

	if deliveredAt.Valid {
		t := deliveredAt.Time
		post.DeliveredAt = &t
	}

	return &post, nil
}

func collectPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}
