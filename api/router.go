package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yourusername/cloudapp-dl-go/api/handlers"
	"github.com/yourusername/cloudapp-dl-go/api/middleware"
	"github.com/yourusername/cloudapp-dl-go/internal/app"
	"github.com/yourusername/cloudapp-dl-go/pkg/logger"
	"go.uber.org/zap"
)

// SetupRouter sets up the HTTP router. ml may be nil, in which case request
// errors only go to log.
func SetupRouter(
	queueMgr *app.QueueManager,
	downloadMgr *app.DownloadManager,
	log *zap.Logger,
	ml *logger.MultiLogger,
	logsDir string,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Recovery(log, ml))
	router.Use(middleware.Logger(log, ml))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(queueMgr, log)
	downloadHandler := handlers.NewDownloadHandler(queueMgr, downloadMgr, log)
	logHandler := handlers.NewLogHandler(logsDir)
	logStreamHandler := handlers.NewLogStreamHandler(logsDir, log)

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.DELETE("/:id", downloadHandler.DeleteDownload)
			downloads.POST("/:id/cancel", downloadHandler.CancelDownload)
			downloads.POST("/:id/retry", downloadHandler.RetryDownload)
		}

		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/stream", logStreamHandler.Stream)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
		}
	}

	return router
}
