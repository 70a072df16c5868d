package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/juda1804/youtube-community-sync/app/database"
	"github.com/juda1804/youtube-community-sync/app/post"
	"github.com/juda1804/youtube-community-sync/app/session"
	"github.com/juda1804/youtube-community-sync/app/sink"
)

const activationCutoffKeyPrefix = "activation_cutoff:"

// Pipeline runs the full reconcile -> persist -> deliver -> mark sequence
// for a batch of candidates. A per-channel mutex is held across the whole
// sequence so two overlapping submissions for the same channel can never
// both claim the same candidate between the dedup check and the persist.
type Pipeline struct {
	reconciler *post.Reconciler
	parser     *post.TimeParser
	posts      database.PostRepository
	config     database.ConfigRepository
	tracker    *session.Tracker
	sink       *sink.Client

	mu           sync.Mutex
	channelLocks map[string]*sync.Mutex
}

func NewPipeline(reconciler *post.Reconciler, parser *post.TimeParser,
	posts database.PostRepository, config database.ConfigRepository,
	tracker *session.Tracker, sinkClient *sink.Client) *Pipeline {
	return &Pipeline{
		reconciler:   reconciler,
		parser:       parser,
		posts:        posts,
		config:       config,
		tracker:      tracker,
		sink:         sinkClient,
		channelLocks: make(map[string]*sync.Mutex),
	}
}

type BatchRequest struct {
	Channel          string
	Type             string
	Candidates       []post.Candidate
	ActivationCutoff *time.Time
	SourceURL        string
	IntervalMinutes  int
}

type BatchResult struct {
	SessionID     string
	PostsFound    int
	AlreadySeen   int
	TooOld        int
	PostsNew      int
	Delivered     bool
	DeliveryError string
}

// Run processes one candidate batch end to end. Storage errors abort the run
// and fail the session; a delivery failure is reported in the result, with
// the new posts left persisted undelivered for a later redelivery pass.
func (p *Pipeline) Run(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	lock := p.channelLock(req.Channel)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()

	cutoff, err := p.resolveCutoff(req.Channel, req.ActivationCutoff)
	if err != nil {
		return nil, err
	}

	sessionID, err := p.tracker.Start(req.Type, cutoff, req.IntervalMinutes)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{SessionID: sessionID}

	newPosts, stats, err := p.reconciler.Run(req.Candidates, cutoff)
	if err != nil {
		p.failSession(sessionID, err, started)
		return nil, fmt.Errorf("failed to reconcile batch: %w", err)
	}

	result.PostsFound = stats.Found
	result.AlreadySeen = stats.AlreadySeen
	result.TooOld = stats.TooOld
	result.PostsNew = stats.New

	for i := range newPosts {
		newPosts[i].SessionID = sessionID
	}

	if err := p.posts.UpsertPosts(newPosts); err != nil {
		p.failSession(sessionID, err, started)
		return nil, fmt.Errorf("failed to persist new posts: %w", err)
	}

	if err := p.tracker.RecordCounts(sessionID, stats.Found, stats.New); err != nil {
		slog.Warn("Failed to record session counts", "session_id", sessionID, "error", err)
	}

	if len(newPosts) > 0 && p.sink.Enabled() {
		if err := p.sink.DeliverPosts(ctx, req.Channel, newPosts, req.SourceURL); err != nil {
			result.DeliveryError = err.Error()
			p.failSession(sessionID, err, started)

			slog.Error("Delivery failed, posts kept undelivered",
				"session_id", sessionID, "channel", req.Channel,
				"posts", len(newPosts), "error", err)

			return result, nil
		}

		ids := make([]string, 0, len(newPosts))
		for _, newPost := range newPosts {
			ids = append(ids, newPost.ID)
		}

		if _, err := p.posts.MarkDelivered(ids, time.Now().UTC()); err != nil {
			p.failSession(sessionID, err, started)
			return result, fmt.Errorf("failed to mark posts delivered: %w", err)
		}

		result.Delivered = true
	}

	if err := p.tracker.Complete(sessionID, time.Since(started)); err != nil {
		slog.Warn("Failed to complete session", "session_id", sessionID, "error", err)
	}

	slog.Info("Batch processed", "channel", req.Channel, "session_id", sessionID,
		"found", stats.Found, "already_seen", stats.AlreadySeen,
		"too_old", stats.TooOld, "new", stats.New, "delivered", result.Delivered)

	return result, nil
}

// Redeliver re-attempts delivery for posts that were persisted but never
// confirmed by the sink. Returns the number of posts delivered.
func (p *Pipeline) Redeliver(ctx context.Context, channelName string, limit int) (int, error) {
	if !p.sink.Enabled() {
		return 0, nil
	}

	lock := p.channelLock(channelName)
	lock.Lock()
	defer lock.Unlock()

	pending, err := p.posts.GetUndeliveredPosts(channelName, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to query undelivered posts: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	sourceURL := pending[0].SourceURL
	if err := p.sink.DeliverPosts(ctx, channelName, pending, sourceURL); err != nil {
		return 0, fmt.Errorf("failed to redeliver posts: %w", err)
	}

	ids := make([]string, 0, len(pending))
	for _, pendingPost := range pending {
		ids = append(ids, pendingPost.ID)
	}

	marked, err := p.posts.MarkDelivered(ids, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark redelivered posts: %w", err)
	}

	return marked, nil
}

// ResetActivation moves the stored activation cutoff for a channel to now,
// so posts published earlier are never treated as new again
func (p *Pipeline) ResetActivation(channelName string) (time.Time, error) {
	now := p.parser.Now()
	key := activationCutoffKeyPrefix + channelName
	if err := p.config.Set(key, now.Format(time.RFC3339)); err != nil {
		return time.Time{}, fmt.Errorf("failed to reset activation cutoff: %w", err)
	}
	return now, nil
}

// resolveCutoff picks the activation cutoff for a run: an explicit request
// cutoff wins; otherwise the stored per-channel cutoff applies. The first
// run for a channel anchors the cutoff to now, so history present on the
// page before the channel was enabled is ignored.
func (p *Pipeline) resolveCutoff(channelName string, explicit *time.Time) (time.Time, error) {
	if explicit != nil {
		return *explicit, nil
	}

	key := activationCutoffKeyPrefix + channelName
	value, ok, err := p.config.Get(key)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read activation cutoff: %w", err)
	}

	if ok {
		cutoff, err := time.Parse(time.RFC3339, value)
		if err == nil {
			return cutoff, nil
		}
		slog.Warn("Invalid stored activation cutoff, resetting", "channel", channelName, "value", value)
	}

	return p.ResetActivation(channelName)
}

func (p *Pipeline) failSession(sessionID string, cause error, started time.Time) {
	if err := p.tracker.Fail(sessionID, cause.Error(), time.Since(started)); err != nil {
		slog.Warn("Failed to mark session as error", "session_id", sessionID, "error", err)
	}
}

func (p *Pipeline) channelLock(channelName string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.channelLocks[channelName]
	if !ok {
		lock = &sync.Mutex{}
		p.channelLocks[channelName] = lock
	}
	return lock
}
