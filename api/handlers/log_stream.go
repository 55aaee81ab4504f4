package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/cloudapp-dl-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultStreamBacklog = 50
	streamPingInterval   = 30 * time.Second
	streamWriteTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LogStreamHandler streams a category log over a WebSocket as it is written
type LogStreamHandler struct {
	logReader *logger.LogReader
	logger    *zap.Logger
}

// NewLogStreamHandler creates a new log stream handler
func NewLogStreamHandler(logsDir string, log *zap.Logger) *LogStreamHandler {
	return &LogStreamHandler{
		logReader: logger.NewLogReader(logsDir),
		logger:    log,
	}
}

// Stream handles GET /api/v1/logs/stream?category=&backlog=
func (h *LogStreamHandler) Stream(c *gin.Context) {
	category := logger.LogCategory(c.DefaultQuery("category", string(logger.CategoryQueue)))
	if !logger.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	backlog, err := strconv.Atoi(c.DefaultQuery("backlog", strconv.Itoa(defaultStreamBacklog)))
	if err != nil || backlog < 0 {
		backlog = defaultStreamBacklog
	}
	if backlog > maxLogLimit {
		backlog = maxLogLimit
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade log stream", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("Log stream client connected",
		zap.String("category", string(category)),
		zap.String("remote_addr", c.Request.RemoteAddr))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// the client only sends control frames; a read error means it went away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	entries := make(chan logger.LogEntry, 100)
	go func() {
		defer cancel()
		if err := h.logReader.TailLogs(ctx, category, backlog, entries); err != nil {
			h.logger.Error("Log tailing failed", zap.String("category", string(category)), zap.Error(err))
		}
	}()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-entries:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		case <-ctx.Done():
			h.logger.Info("Log stream client disconnected", zap.String("category", string(category)))
			return
		}
	}
}
