package main

import (
	"fmt"

	"github.com/yourusername/cloudapp-dl-go/internal/app"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"github.com/yourusername/cloudapp-dl-go/internal/infrastructure"
	"github.com/yourusername/cloudapp-dl-go/pkg/logger"
	"go.uber.org/zap"
)

// runtime holds the services shared by every command
type runtime struct {
	config    *domain.Config
	log       *zap.Logger
	history   *infrastructure.SQLiteDownloadRepository
	repo      domain.DownloadRepository
	notifier  *infrastructure.NotificationService
	downloads *app.DownloadManager
}

func newRuntime(path string) (*runtime, error) {
	config, err := app.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt := &runtime{config: config, log: log}

	// the pipeline runs without history when the database cannot be opened
	if config.History.Enabled {
		history, err := infrastructure.NewSQLiteDownloadRepository(config.History.DatabasePath, log)
		if err != nil {
			log.Warn("Download history disabled",
				zap.String("path", config.History.DatabasePath),
				zap.Error(err))
		} else {
			rt.history = history
			rt.repo = history
		}
	}

	rt.notifier = infrastructure.NewNotificationService(&config.Notification, log)
	rt.downloads = app.NewDownloadManager(
		infrastructure.NewPageResolver(&config.Download, log),
		infrastructure.NewHTTPTransferer(&config.Download, log),
		rt.repo,
		rt.notifier,
		&config.Download,
		log,
	)

	return rt, nil
}

// Close releases the history database and flushes the logger
func (rt *runtime) Close() {
	if rt.history != nil {
		if err := rt.history.Close(); err != nil {
			rt.log.Warn("Failed to close history", zap.Error(err))
		}
	}
	_ = rt.log.Sync()
}
