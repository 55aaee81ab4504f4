package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"github.com/yourusername/cloudapp-dl-go/pkg/logger"
	"go.uber.org/zap"
)

// TargetFunc picks the destination path once the media is resolved
type TargetFunc func(media *domain.ResolvedMedia) string

// SingleOptions describes a one-off download
type SingleOptions struct {
	URL       string
	Out       string // explicit file path; empty means a name derived from the page
	WantTitle bool
	Progress  domain.ProgressFunc
}

// activeDownload tracks an in-flight download so it can be cancelled
type activeDownload struct {
	cancel    context.CancelFunc
	cancelled bool
}

// DownloadManager runs the resolve and transfer pipeline for one item at a time.
// The repository, notifier and multi logger are optional.
type DownloadManager struct {
	resolver    domain.Resolver
	transferer  domain.Transferer
	repo        domain.DownloadRepository
	notifier    domain.Notifier
	config      *domain.DownloadConfig
	logger      *zap.Logger
	multiLogger *logger.MultiLogger
	mu          sync.Mutex
	active      map[string]*activeDownload
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	resolver domain.Resolver,
	transferer domain.Transferer,
	repo domain.DownloadRepository,
	notifier domain.Notifier,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadManager {
	return &DownloadManager{
		resolver:   resolver,
		transferer: transferer,
		repo:       repo,
		notifier:   notifier,
		config:     config,
		logger:     logger,
		active:     make(map[string]*activeDownload),
	}
}

// SetMultiLogger enables the per-category event logs used in server mode
func (dm *DownloadManager) SetMultiLogger(ml *logger.MultiLogger) {
	dm.multiLogger = ml
}

// Track records a new download in the history when a repository is configured
func (dm *DownloadManager) Track(download *domain.Download) error {
	if dm.repo == nil {
		return nil
	}
	if err := dm.repo.Create(download); err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

func (dm *DownloadManager) save(download *domain.Download) {
	if dm.repo == nil {
		return
	}
	if err := dm.repo.Update(download); err != nil {
		dm.logger.Error("Failed to update download status",
			zap.String("id", download.ID),
			zap.Error(err))
	}
}

// DownloadSingle resolves and transfers one page URL and waits for the file
// to be complete. Any failure is returned.
func (dm *DownloadManager) DownloadSingle(ctx context.Context, opts SingleOptions) (*domain.Download, error) {
	download := domain.NewDownload(opts.URL, domain.SourceSingle, opts.WantTitle)
	download.OutPath = opts.Out

	if err := dm.Track(download); err != nil {
		dm.logger.Warn("History unavailable", zap.Error(err))
	}

	target := func(media *domain.ResolvedMedia) string {
		if opts.Out != "" {
			return opts.Out
		}
		return domain.OutputPath(dm.config.OutputDir, domain.DefaultFileName(opts.URL, media, opts.WantTitle))
	}

	err := dm.ProcessDownload(ctx, download, target, opts.Progress)
	return download, err
}

// ServerTarget returns the destination policy for queued downloads. An
// explicit name is reduced to its base so it stays in the output directory.
func (dm *DownloadManager) ServerTarget(download *domain.Download) TargetFunc {
	return func(media *domain.ResolvedMedia) string {
		if download.OutPath != "" {
			return domain.OutputPath(dm.config.OutputDir, filepath.Base(download.OutPath))
		}
		return domain.OutputPath(dm.config.OutputDir, domain.DefaultFileName(download.URL, media, download.WantTitle))
	}
}

// ProcessDownload resolves the page of download, then streams the media to
// the path chosen by target. The download record carries the outcome,
// including the stage a failure happened in.
func (dm *DownloadManager) ProcessDownload(ctx context.Context, download *domain.Download, target TargetFunc, progress domain.ProgressFunc) error {
	ctx = dm.begin(ctx, download.ID)
	defer dm.end(download.ID)

	download.MarkProcessing()
	dm.save(download)

	media, err := dm.resolver.Resolve(ctx, download.URL, download.WantTitle)
	if err != nil {
		return dm.fail(download, domain.StageResolve, err)
	}

	download.MarkResolved(media)
	dm.save(download)

	dest := target(media)
	dm.logger.Info("Downloading video",
		zap.String("name", domain.DisplayName(download.URL, media, download.WantTitle)),
		zap.String("path", dest))

	written, err := dm.transferer.Transfer(ctx, media.MediaURL, dest, progress)
	download.BytesWritten = written
	if err != nil {
		return dm.fail(download, domain.StageTransfer, err)
	}

	download.MarkCompleted(dest)
	dm.save(download)

	dm.logger.Info("Download completed",
		zap.String("id", download.Identifier()),
		zap.String("file", dest),
		zap.String("size", humanize.Bytes(uint64(written))))

	if dm.multiLogger != nil {
		dm.multiLogger.LogTransferEvent("transfer_completed",
			zap.String("id", download.ID),
			zap.String("url", download.URL),
			zap.String("file_path", dest),
			zap.Int64("bytes", written))
	}

	if dm.notifier != nil && download.Source != domain.SourceBatch {
		dm.notifier.NotifyDownloadCompleted(download)
	}

	return nil
}

func (dm *DownloadManager) fail(download *domain.Download, stage domain.Stage, err error) error {
	if dm.wasCancelled(download.ID) {
		download.MarkCancelled()
		dm.save(download)
		dm.logger.Info("Download cancelled", zap.String("id", download.Identifier()))
		return fmt.Errorf("download %s cancelled: %w", download.ID, context.Canceled)
	}

	download.MarkFailed(stage, err)
	dm.save(download)

	dm.logger.Error("Download failed",
		zap.String("id", download.Identifier()),
		zap.String("stage", string(stage)),
		zap.Error(err))

	if dm.multiLogger != nil {
		dm.multiLogger.LogTransferEvent("transfer_failed",
			zap.String("id", download.ID),
			zap.String("url", download.URL),
			zap.String("stage", string(stage)),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err))
	}

	if dm.notifier != nil && download.Source != domain.SourceBatch {
		dm.notifier.NotifyDownloadFailed(download, err)
	}

	return err
}

func (dm *DownloadManager) begin(ctx context.Context, id string) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	dm.mu.Lock()
	dm.active[id] = &activeDownload{cancel: cancel}
	dm.mu.Unlock()
	return ctx
}

func (dm *DownloadManager) end(id string) {
	dm.mu.Lock()
	if a, ok := dm.active[id]; ok {
		a.cancel()
		delete(dm.active, id)
	}
	dm.mu.Unlock()
}

func (dm *DownloadManager) wasCancelled(id string) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	a, ok := dm.active[id]
	return ok && a.cancelled
}

// CancelDownload cancels a queued download, or aborts it when it is in flight
func (dm *DownloadManager) CancelDownload(id string) error {
	if dm.repo == nil {
		return errors.New("download history is disabled")
	}

	download, err := dm.repo.FindByID(id)
	if err != nil || download == nil {
		return fmt.Errorf("download not found: %s", id)
	}

	if download.IsTerminal() {
		return fmt.Errorf("download already in terminal state: %s", download.Status)
	}

	dm.mu.Lock()
	a, inFlight := dm.active[id]
	if inFlight {
		a.cancelled = true
		a.cancel()
	}
	dm.mu.Unlock()

	// an in-flight download records its own cancellation when the pipeline unwinds
	if !inFlight {
		download.MarkCancelled()
		if err := dm.repo.Update(download); err != nil {
			return fmt.Errorf("failed to update download: %w", err)
		}
	}

	dm.logger.Info("Download cancelled", zap.String("id", id), zap.Bool("in_flight", inFlight))
	return nil
}

// RetryDownload puts a failed or cancelled download back in the queue
func (dm *DownloadManager) RetryDownload(id string) error {
	if dm.repo == nil {
		return errors.New("download history is disabled")
	}

	download, err := dm.repo.FindByID(id)
	if err != nil || download == nil {
		return fmt.Errorf("download not found: %s", id)
	}

	if download.Status != domain.StatusFailed && download.Status != domain.StatusCancelled {
		return fmt.Errorf("download is not in failed or cancelled state: %s", download.Status)
	}

	download.Requeue()
	if err := dm.repo.Update(download); err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	dm.logger.Info("Download queued for retry", zap.String("id", id))
	return nil
}
