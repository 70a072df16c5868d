package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juda1804/youtube-community-sync/app/database"
	"github.com/juda1804/youtube-community-sync/app/post"
	"github.com/juda1804/youtube-community-sync/app/session"
	"github.com/juda1804/youtube-community-sync/app/sink"
)

type fakePostRepo struct {
	posts map[string]database.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]database.Post)}
}

func (f *fakePostRepo) GetPost(id string) (*database.Post, error) {
	if p, ok := f.posts[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakePostRepo) GetPostCount() (int, error) { return len(f.posts), nil }

func (f *fakePostRepo) GetRecentPosts(limit int) ([]database.Post, error) { return nil, nil }

func (f *fakePostRepo) GetUndeliveredPosts(channel string, limit int) ([]database.Post, error) {
	var pending []database.Post
	for _, p := range f.posts {
		if p.Channel == channel && !p.Delivered {
			pending = append(pending, p)
		}
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (f *fakePostRepo) GetAllPosts() ([]database.Post, error) { return nil, nil }

func (f *fakePostRepo) UpsertPosts(posts []database.Post) error {
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	return nil
}

func (f *fakePostRepo) MarkDelivered(ids []string, deliveredAt time.Time) (int, error) {
	marked := 0
	for _, id := range ids {
		if p, ok := f.posts[id]; ok && !p.Delivered {
			p.Delivered = true
			p.DeliveredAt = &deliveredAt
			f.posts[id] = p
			marked++
		}
	}
	return marked, nil
}

func (f *fakePostRepo) DeletePostsExtractedBefore(cutoff time.Time) (int, error) { return 0, nil }

func (f *fakePostRepo) DeleteAllPosts() error {
	f.posts = make(map[string]database.Post)
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]database.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]database.Session)}
}

func (f *fakeSessionRepo) CreateSession(s database.Session) error {
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeSessionRepo) GetSession(id string) (*database.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeSessionRepo) GetSessionCount() (int, error) { return len(f.sessions), nil }

func (f *fakeSessionRepo) GetRecentSessions(limit int) ([]database.Session, error) { return nil, nil }

func (f *fakeSessionRepo) GetAllSessions() ([]database.Session, error) { return nil, nil }

func (f *fakeSessionRepo) UpdateSession(id string, update database.SessionUpdate) error {
	s := f.sessions[id]
	if update.PostsFound != nil {
		s.PostsFound = *update.PostsFound
	}
	if update.PostsNew != nil {
		s.PostsNew = *update.PostsNew
	}
	if update.Status != nil {
		s.Status = *update.Status
	}
	if update.Error != nil {
		s.Error = *update.Error
	}
	if update.DurationMs != nil {
		s.DurationMs = *update.DurationMs
	}
	f.sessions[id] = s
	return nil
}

func (f *fakeSessionRepo) MarkStaleRunning(before time.Time, message string) (int, error) {
	return 0, nil
}

func (f *fakeSessionRepo) TrimSessions(keep int) (int, error) { return 0, nil }

func (f *fakeSessionRepo) DeleteAllSessions() error { return nil }

type fakeConfigRepo struct {
	values map[string]string
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{values: make(map[string]string)}
}

func (f *fakeConfigRepo) Get(key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeConfigRepo) Set(key, value string) error {
	f.values[key] = value
	return nil
}

func (f *fakeConfigRepo) GetAll() (map[string]string, error) { return f.values, nil }

func (f *fakeConfigRepo) DeleteAll() error {
	f.values = make(map[string]string)
	return nil
}

type testEnv struct {
	pipeline    *Pipeline
	postRepo    *fakePostRepo
	sessionRepo *fakeSessionRepo
	configRepo  *fakeConfigRepo
}

func setupPipeline(t *testing.T, webhookURL string) *testEnv {
	t.Helper()

	postRepo := newFakePostRepo()
	sessionRepo := newFakeSessionRepo()
	configRepo := newFakeConfigRepo()

	parser := post.NewTimeParser(time.FixedZone("UTC-5", -5*3600))
	reconciler := post.NewReconciler(postRepo, parser)
	tracker := session.NewTracker(sessionRepo)
	sinkClient := sink.NewClient(webhookURL, "Community Sync/test")

	return &testEnv{
		pipeline:    NewPipeline(reconciler, parser, postRepo, configRepo, tracker, sinkClient),
		postRepo:    postRepo,
		sessionRepo: sessionRepo,
		configRepo:  configRepo,
	}
}

func testCandidates() []post.Candidate {
	return []post.Candidate{
		{ID: "community_post_1", Channel: "testchannel", Author: "A", Content: "first", PublishedTime: "hace 1 hora"},
		{ID: "community_post_2", Channel: "testchannel", Author: "A", Content: "second", PublishedTime: "hace 2 horas"},
	}
}

func TestPipelineRunPersistsAndCompletes(t *testing.T) {
	env := setupPipeline(t, "")

	result, err := env.pipeline.Run(context.Background(), BatchRequest{
		Channel:    "testchannel",
		Type:       database.SessionTypeManual,
		Candidates: testCandidates(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.PostsFound != 2 || result.PostsNew != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.Delivered {
		t.Error("Delivery disabled, result must say not delivered")
	}

	if count, _ := env.postRepo.GetPostCount(); count != 2 {
		t.Errorf("Expected 2 persisted posts, got %d", count)
	}

	s, _ := env.sessionRepo.GetSession(result.SessionID)
	if s == nil {
		t.Fatal("Session not persisted")
	}
	if s.Status != database.SessionStatusCompleted {
		t.Errorf("Expected completed session, got %s", s.Status)
	}
	if s.PostsFound != 2 || s.PostsNew != 2 {
		t.Errorf("Session counts not recorded: %+v", s)
	}

	// New posts carry the session that first persisted them
	p, _ := env.postRepo.GetPost("community_post_1")
	if p.SessionID != result.SessionID {
		t.Errorf("Post session_id = %s, expected %s", p.SessionID, result.SessionID)
	}
}

func TestPipelineRunDeliversAndMarks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupPipeline(t, server.URL)

	result, err := env.pipeline.Run(context.Background(), BatchRequest{
		Channel:    "testchannel",
		Type:       database.SessionTypeScheduled,
		Candidates: testCandidates(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Delivered {
		t.Error("Expected delivered result")
	}

	p, _ := env.postRepo.GetPost("community_post_1")
	if !p.Delivered || p.DeliveredAt == nil {
		t.Errorf("Post not marked delivered: %+v", p)
	}
}

func TestPipelineDeliveryFailureKeepsPostsUndelivered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 4xx so the sink gives up immediately instead of retrying
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	env := setupPipeline(t, server.URL)

	result, err := env.pipeline.Run(context.Background(), BatchRequest{
		Channel:    "testchannel",
		Type:       database.SessionTypeManual,
		Candidates: testCandidates(),
	})
	if err != nil {
		t.Fatal("Delivery failure must not surface as a run error:", err)
	}
	if result.Delivered {
		t.Error("Expected not delivered")
	}
	if result.DeliveryError == "" {
		t.Error("Expected a delivery error message")
	}

	// Posts persisted, still undelivered, for the redelivery pass
	pending, _ := env.postRepo.GetUndeliveredPosts("testchannel", 10)
	if len(pending) != 2 {
		t.Errorf("Expected 2 undelivered posts, got %d", len(pending))
	}

	s, _ := env.sessionRepo.GetSession(result.SessionID)
	if s.Status != database.SessionStatusError {
		t.Errorf("Expected error session, got %s", s.Status)
	}
}

func TestPipelineSecondRunSkipsSeen(t *testing.T) {
	env := setupPipeline(t, "")
	ctx := context.Background()

	req := BatchRequest{
		Channel:    "testchannel",
		Type:       database.SessionTypeManual,
		Candidates: testCandidates(),
	}

	if _, err := env.pipeline.Run(ctx, req); err != nil {
		t.Fatal(err)
	}

	result, err := env.pipeline.Run(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if result.PostsNew != 0 || result.AlreadySeen != 2 {
		t.Errorf("Expected repeat batch fully deduplicated, got %+v", result)
	}
}

func TestPipelineStoresActivationCutoffOnFirstRun(t *testing.T) {
	env := setupPipeline(t, "")

	before := time.Now().Add(-time.Minute)
	if _, err := env.pipeline.Run(context.Background(), BatchRequest{
		Channel:    "testchannel",
		Type:       database.SessionTypeManual,
		Candidates: nil,
	}); err != nil {
		t.Fatal(err)
	}

	value, ok, _ := env.configRepo.Get("activation_cutoff:testchannel")
	if !ok {
		t.Fatal("First run must store an activation cutoff")
	}
	stored, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Before(before) {
		t.Errorf("Cutoff %v should be around now", stored)
	}

	// A week-old post must be filtered on the next run
	result, err := env.pipeline.Run(context.Background(), BatchRequest{
		Channel: "testchannel",
		Type:    database.SessionTypeManual,
		Candidates: []post.Candidate{
			{ID: "community_post_old", Channel: "testchannel", Author: "A", Content: "x", PublishedTime: "hace 1 semana"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.TooOld != 1 || result.PostsNew != 0 {
		t.Errorf("Expected old post filtered by stored cutoff, got %+v", result)
	}
}

func TestPipelineExplicitCutoffWins(t *testing.T) {
	env := setupPipeline(t, "")

	// Stored cutoff is now, but the request supplies an older one
	env.configRepo.Set("activation_cutoff:testchannel", time.Now().UTC().Format(time.RFC3339))

	explicit := time.Now().Add(-30 * 24 * time.Hour)
	result, err := env.pipeline.Run(context.Background(), BatchRequest{
		Channel:          "testchannel",
		Type:             database.SessionTypeManual,
		ActivationCutoff: &explicit,
		Candidates: []post.Candidate{
			{ID: "community_post_old", Channel: "testchannel", Author: "A", Content: "x", PublishedTime: "hace 1 semana"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.PostsNew != 1 {
		t.Errorf("Explicit cutoff should admit the week-old post, got %+v", result)
	}
}

func TestPipelineResetActivation(t *testing.T) {
	env := setupPipeline(t, "")

	cutoff, err := env.pipeline.ResetActivation("testchannel")
	if err != nil {
		t.Fatal(err)
	}

	value, ok, _ := env.configRepo.Get("activation_cutoff:testchannel")
	if !ok {
		t.Fatal("Reset must store the cutoff")
	}
	if value != cutoff.Format(time.RFC3339) {
		t.Errorf("Stored %s, returned %s", value, cutoff.Format(time.RFC3339))
	}
}

func TestPipelineRedeliver(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupPipeline(t, server.URL)

	// Seed an undelivered post directly
	env.postRepo.UpsertPosts([]database.Post{{
		ID:        "community_post_pending",
		Channel:   "testchannel",
		Author:    "A",
		Content:   "x",
		SourceURL: "https://youtube.com/@testchannel/community",
	}})

	delivered, err := env.pipeline.Redeliver(context.Background(), "testchannel", 10)
	if err != nil {
		t.Fatal(err)
	}
	if delivered != 1 {
		t.Errorf("Expected 1 redelivered, got %d", delivered)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected 1 webhook call, got %d", calls)
	}

	p, _ := env.postRepo.GetPost("community_post_pending")
	if !p.Delivered {
		t.Error("Redelivered post not marked")
	}
}

func TestPipelineRedeliverNothingPending(t *testing.T) {
	env := setupPipeline(t, "http://localhost:1")

	delivered, err := env.pipeline.Redeliver(context.Background(), "testchannel", 10)
	if err != nil {
		t.Fatal(err)
	}
	if delivered != 0 {
		t.Errorf("Expected 0 with nothing pending, got %d", delivered)
	}
}
