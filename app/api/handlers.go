package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juda1804/youtube-community-sync/app/channel"
	"github.com/juda1804/youtube-community-sync/app/database"
	"github.com/juda1804/youtube-community-sync/app/ingest"
	"github.com/juda1804/youtube-community-sync/app/sink"
)

func NewHandler(postRepo database.PostRepository, sessionRepo database.SessionRepository,
	configRepo database.ConfigRepository, configCache *channel.ConfigCache,
	pipeline *ingest.Pipeline, sinkClient *sink.Client) *Handler {
	return &Handler{
		postRepo:    postRepo,
		sessionRepo: sessionRepo,
		configRepo:  configRepo,
		configCache: configCache,
		pipeline:    pipeline,
		sink:        sinkClient,
	}
}

func (h *Handler) SubmitBatch(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name required"})
		return
	}

	var req SubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}

	// A channel may be submitted without a config file; configs only gate
	// the scheduled background work
	if channelConfig, err := h.configCache.GetConfig(name); err == nil && !channelConfig.Settings.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "channel is disabled"})
		return
	}

	sessionType := req.Type
	switch sessionType {
	case "":
		sessionType = database.SessionTypeManual
	case database.SessionTypeManual, database.SessionTypeScheduled, database.SessionTypeTest:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session type", "message": req.Type})
		return
	}

	var cutoff *time.Time
	if req.ActivationCutoff != "" {
		parsed, err := time.Parse(time.RFC3339, req.ActivationCutoff)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activationCutoff", "message": err.Error()})
			return
		}
		cutoff = &parsed
	}

	for i := range req.Posts {
		req.Posts[i].Channel = name
	}

	result, err := h.pipeline.Run(c.Request.Context(), ingest.BatchRequest{
		Channel:          name,
		Type:             sessionType,
		Candidates:       req.Posts,
		ActivationCutoff: cutoff,
		SourceURL:        req.SourceURL,
		IntervalMinutes:  req.IntervalMinutes,
	})
	if err != nil {
		slog.Error("Batch processing failed", "channel", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "batch processing failed"})
		return
	}

	c.JSON(http.StatusOK, SubmitBatchResponse{
		SessionID:     result.SessionID,
		PostsFound:    result.PostsFound,
		AlreadySeen:   result.AlreadySeen,
		TooOld:        result.TooOld,
		PostsNew:      result.PostsNew,
		Delivered:     result.Delivered,
		DeliveryError: result.DeliveryError,
	})
}

func (h *Handler) ResetActivation(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name required"})
		return
	}

	cutoff, err := h.pipeline.ResetActivation(name)
	if err != nil {
		slog.Error("Activation reset failed", "channel", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "activation reset failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channel":          name,
		"activationCutoff": cutoff.Format(time.RFC3339),
	})
}

func (h *Handler) MarkDelivered(c *gin.Context) {
	var req MarkDeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}

	if len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids required"})
		return
	}

	marked, err := h.postRepo.MarkDelivered(req.IDs, time.Now().UTC())
	if err != nil {
		slog.Error("Database error", "operation", "mark_delivered", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark posts delivered"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if postCount, err := h.postRepo.GetPostCount(); err == nil {
		stats["totalPosts"] = postCount
	}

	if sessionCount, err := h.sessionRepo.GetSessionCount(); err == nil {
		stats["totalSessions"] = sessionCount
	}

	if recentPosts, err := h.postRepo.GetRecentPosts(10); err == nil {
		stats["recentPosts"] = recentPosts
	}

	if recentSessions, err := h.sessionRepo.GetRecentSessions(5); err == nil {
		stats["recentSessions"] = recentSessions
	}

	if lastCleanup, ok, err := h.configRepo.Get("last_cleanup"); err == nil && ok {
		stats["lastCleanup"] = lastCleanup
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if postCount, err := h.postRepo.GetPostCount(); err == nil {
		health["posts"] = postCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()
	health["webhook_configured"] = h.sink.Enabled()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) TestWebhook(c *gin.Context) {
	if !h.sink.Enabled() {
		c.JSON(http.StatusConflict, gin.H{"error": "no webhook URL configured"})
		return
	}

	if err := h.sink.DeliverTest(c.Request.Context()); err != nil {
		slog.Error("Test delivery failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "test delivery failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"delivered": true})
}

func (h *Handler) Export(c *gin.Context) {
	posts, err := h.postRepo.GetAllPosts()
	if err != nil {
		slog.Error("Database error", "operation", "export_posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	sessions, err := h.sessionRepo.GetAllSessions()
	if err != nil {
		slog.Error("Database error", "operation", "export_sessions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	config, err := h.configRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "export_config", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	export := ExportData{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Posts:      posts,
		Sessions:   sessions,
		Config:     config,
	}

	c.Header("Content-Disposition", "attachment; filename=community-sync-export.json")
	c.JSON(http.StatusOK, export)
}

func (h *Handler) WipeData(c *gin.Context) {
	if err := h.postRepo.DeleteAllPosts(); err != nil {
		slog.Error("Database error", "operation", "wipe_posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wipe failed"})
		return
	}

	if err := h.sessionRepo.DeleteAllSessions(); err != nil {
		slog.Error("Database error", "operation", "wipe_sessions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wipe failed"})
		return
	}

	if err := h.configRepo.DeleteAll(); err != nil {
		slog.Error("Database error", "operation", "wipe_config", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wipe failed"})
		return
	}

	slog.Warn("All stored data wiped")

	c.JSON(http.StatusOK, gin.H{"wiped": true})
}
