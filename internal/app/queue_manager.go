package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"github.com/yourusername/cloudapp-dl-go/pkg/logger"
)

// ErrAlreadyQueued is returned when the same page is already waiting or in flight
var ErrAlreadyQueued = errors.New("download already queued")

// AddRequest is a server-mode download request
type AddRequest struct {
	URL       string
	WantTitle bool
	Out       string
	Priority  int
}

// QueueManager feeds queued downloads to the download manager one at a time
type QueueManager struct {
	repo        domain.DownloadRepository
	downloadMgr *DownloadManager
	config      *domain.QueueConfig
	multiLogger *logger.MultiLogger
	mu          sync.RWMutex
	running     bool
	stopChan    chan struct{}
	workerWg    sync.WaitGroup
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	repo domain.DownloadRepository,
	downloadMgr *DownloadManager,
	config *domain.QueueConfig,
	multiLogger *logger.MultiLogger,
) *QueueManager {
	return &QueueManager{
		repo:        repo,
		downloadMgr: downloadMgr,
		config:      config,
		multiLogger: multiLogger,
	}
}

// Start starts the queue processor. Downloads left processing by a previous
// run are put back in the queue first.
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.stopChan = make(chan struct{})
	qm.mu.Unlock()

	if n, err := qm.repo.ResetOrphanedProcessing(); err != nil {
		qm.logAppError("Failed to reset orphaned downloads", zap.Error(err))
	} else if n > 0 {
		qm.logQueueEvent("orphaned_downloads_requeued", zap.Int64("count", n))
	}

	qm.logQueueEvent("queue_started")

	qm.workerWg.Add(1)
	go qm.processQueue(ctx, qm.stopChan)

	return nil
}

// Stop stops the queue processor and waits for the current item to finish
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	close(qm.stopChan)
	qm.mu.Unlock()

	qm.logQueueEvent("queue_stopped")
	qm.workerWg.Wait()

	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// AddDownload validates the request and queues a new download
func (qm *QueueManager) AddDownload(req AddRequest) (*domain.Download, error) {
	if err := validatePageURL(req.URL); err != nil {
		return nil, err
	}

	existing, err := qm.repo.FindByURL(req.URL, []domain.DownloadStatus{domain.StatusQueued, domain.StatusProcessing})
	if err != nil {
		return nil, fmt.Errorf("failed to check queue: %w", err)
	}
	if existing != nil {
		return existing, fmt.Errorf("%w: %s", ErrAlreadyQueued, existing.ID)
	}

	download := domain.NewDownload(req.URL, domain.SourceServer, req.WantTitle)
	download.OutPath = req.Out
	download.Priority = req.Priority

	if err := qm.repo.Create(download); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	qm.logQueueEvent("download_added",
		zap.String("id", download.ID),
		zap.String("url", download.URL),
		zap.Bool("default_title", download.WantTitle))

	return download, nil
}

func validatePageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.NewError(domain.KindInvalidOptions, "validate", raw, errors.New("url must be an absolute http(s) URL"))
	}
	return nil
}

// GetDownload retrieves a download by ID
func (qm *QueueManager) GetDownload(id string) (*domain.Download, error) {
	return qm.repo.FindByID(id)
}

// ListDownloads lists all downloads with optional filters
func (qm *QueueManager) ListDownloads(filters map[string]interface{}) ([]*domain.Download, error) {
	return qm.repo.FindAll(filters)
}

// DeleteDownload removes a download record that is not in flight
func (qm *QueueManager) DeleteDownload(id string) error {
	download, err := qm.repo.FindByID(id)
	if err != nil || download == nil {
		return fmt.Errorf("download not found: %s", id)
	}
	if download.IsProcessing() {
		return fmt.Errorf("download is processing, cancel it first")
	}
	return qm.repo.Delete(id)
}

// GetStats returns queue statistics
func (qm *QueueManager) GetStats() (*domain.DownloadStats, error) {
	return qm.repo.GetStats()
}

// processQueue polls for pending downloads and runs them strictly in sequence
func (qm *QueueManager) processQueue(ctx context.Context, stop <-chan struct{}) {
	defer qm.workerWg.Done()

	ticker := time.NewTicker(qm.config.CheckInterval)
	defer ticker.Stop()

	wasEmpty := false

	for {
		select {
		case <-ctx.Done():
			qm.logQueueEvent("queue_processor_stopped", zap.String("reason", "context_cancelled"))
			return
		case <-stop:
			qm.logQueueEvent("queue_processor_stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
			pending, err := qm.repo.FindPending()
			if err != nil {
				qm.logAppError("Failed to fetch pending downloads", zap.Error(err))
				continue
			}

			if len(pending) == 0 {
				if !wasEmpty {
					wasEmpty = true
					qm.logQueueEvent("queue_empty")
				}
				continue
			}
			wasEmpty = false

			for _, download := range pending {
				if stopped(ctx, stop) {
					break
				}
				qm.process(ctx, download)
			}
		}
	}
}

func (qm *QueueManager) process(ctx context.Context, download *domain.Download) {
	// the record may have been cancelled since FindPending
	current, err := qm.repo.FindByID(download.ID)
	if err != nil || current == nil || !current.IsPending() {
		return
	}

	qm.logQueueEvent("download_started",
		zap.String("id", current.ID),
		zap.String("url", current.URL))

	if err := qm.downloadMgr.ProcessDownload(ctx, current, qm.downloadMgr.ServerTarget(current), nil); err != nil {
		qm.logQueueEvent("download_failed",
			zap.String("id", current.ID),
			zap.String("status", string(current.Status)),
			zap.Error(err))
		return
	}

	qm.logQueueEvent("download_completed",
		zap.String("id", current.ID),
		zap.String("file_path", current.FilePath))
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

func (qm *QueueManager) logQueueEvent(event string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent(event, fields...)
	}
}

func (qm *QueueManager) logAppError(msg string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogAppError(msg, fields...)
	}
}
