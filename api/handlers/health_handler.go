package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cloudapp-dl-go/internal/app"
	"go.uber.org/zap"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler reports whether the queue worker runs and the history answers
type HealthHandler struct {
	queueMgr *app.QueueManager
	logger   *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queueMgr *app.QueueManager, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		queueMgr: queueMgr,
		logger:   logger,
	}
}

// QueueHealth is the queue part of a health response
type QueueHealth struct {
	Running    bool  `json:"running"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Queue   QueueHealth `json:"queue"`
	History string      `json:"history"` // ok or the database error
}

// Health handles GET /health. It answers 200 as long as the process serves
// requests; a broken history shows up as status "degraded".
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
		History: "ok",
	}
	response.Queue.Running = h.queueMgr.IsRunning()

	stats, err := h.queueMgr.GetStats()
	if err != nil {
		h.logger.Warn("History unavailable for health check", zap.Error(err))
		response.Status = "degraded"
		response.History = err.Error()
	} else {
		response.Queue.Queued = stats.Queued
		response.Queue.Processing = stats.Processing
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready. Queued downloads only make progress when the
// worker runs and the history can be read.
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.queueMgr.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "queue worker not running",
		})
		return
	}

	if _, err := h.queueMgr.GetStats(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "download history unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
