package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cloudapp-dl-go/internal/app"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"go.uber.org/zap"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	queueMgr    *app.QueueManager
	downloadMgr *app.DownloadManager
	logger      *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(queueMgr *app.QueueManager, downloadMgr *app.DownloadManager, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		queueMgr:    queueMgr,
		downloadMgr: downloadMgr,
		logger:      logger,
	}
}

// AddDownloadRequest represents a request to queue a share page
type AddDownloadRequest struct {
	URL          string `json:"url" binding:"required"`
	DefaultTitle bool   `json:"default_title,omitempty"`
	Out          string `json:"out,omitempty"`
	Priority     int    `json:"priority,omitempty"`
}

// AddDownload handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var req AddDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	download, err := h.queueMgr.AddDownload(app.AddRequest{
		URL:       req.URL,
		WantTitle: req.DefaultTitle,
		Out:       req.Out,
		Priority:  req.Priority,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, download)
	case errors.Is(err, app.ErrAlreadyQueued):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "download": download})
	case errors.Is(err, domain.ErrInvalidOptions):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Failed to add download", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	id := c.Param("id")

	download, err := h.queueMgr.GetDownload(id)
	if err != nil || download == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}

	c.JSON(http.StatusOK, download)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		filters["status"] = domain.DownloadStatus(status)
	}
	if batch := c.Query("batch_id"); batch != "" {
		filters["batch_id"] = batch
	}

	downloads, err := h.queueMgr.ListDownloads(filters)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if downloads == nil {
		downloads = []*domain.Download{}
	}

	c.JSON(http.StatusOK, downloads)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.queueMgr.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CancelDownload handles POST /api/v1/downloads/:id/cancel
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.downloadMgr.CancelDownload(id); err != nil {
		h.logger.Warn("Failed to cancel download", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download cancelled"})
}

// RetryDownload handles POST /api/v1/downloads/:id/retry
func (h *DownloadHandler) RetryDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.downloadMgr.RetryDownload(id); err != nil {
		h.logger.Warn("Failed to retry download", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download queued for retry"})
}

// DeleteDownload handles DELETE /api/v1/downloads/:id
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.queueMgr.DeleteDownload(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
