package app

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"go.uber.org/zap"
)

// BatchOptions configures one pass over a list file
type BatchOptions struct {
	ListPath  string
	OutputDir string // defaults to "."
	Prefix    string
	WantTitle bool
	Delay     time.Duration

	// Progress returns the transfer progress callback for an item. Optional.
	Progress func(download *domain.Download) domain.ProgressFunc
}

// BatchCoordinator walks a list of page URLs and downloads them one by one.
// A failed item never stops the run.
type BatchCoordinator struct {
	downloads *DownloadManager
	notifier  domain.Notifier
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewBatchCoordinator creates a new batch coordinator. notifier may be nil.
func NewBatchCoordinator(downloads *DownloadManager, notifier domain.Notifier, logger *zap.Logger) *BatchCoordinator {
	return &BatchCoordinator{
		downloads: downloads,
		notifier:  notifier,
		logger:    logger,
		sleep:     Sleep,
	}
}

// SplitLines splits list content on \n, dropping a trailing \r from each
// line. A trailing newline yields a final empty line.
func SplitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// hasMoreItems reports whether a non-blank line follows index i
func hasMoreItems(lines []string, i int) bool {
	for _, line := range lines[i+1:] {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunBatch downloads every non-blank line of the list file in order.
// Only an unreadable list or a cancelled context end the run early; item
// failures are logged and collected in the summary.
func (bc *BatchCoordinator) RunBatch(ctx context.Context, opts BatchOptions) (*domain.BatchSummary, error) {
	content, err := os.ReadFile(opts.ListPath)
	if err != nil {
		return nil, domain.NewError(domain.KindListRead, "read list", opts.ListPath, err)
	}

	lines := SplitLines(string(content))
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	policy := domain.NamingPolicy{Prefix: opts.Prefix, WantTitle: opts.WantTitle}

	summary := &domain.BatchSummary{
		BatchID:  uuid.New().String(),
		Progress: domain.BatchProgress{Total: len(lines)},
	}
	start := time.Now()

	bc.logger.Info("Starting batch",
		zap.String("batch_id", summary.BatchID),
		zap.String("list", opts.ListPath),
		zap.Int("lines", len(lines)),
		zap.String("output_dir", outputDir))

	var runErr error
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		pageURL := strings.TrimSpace(line)
		if pageURL == "" {
			summary.Skipped++
			continue
		}
		lineIndex := i + 1

		download := domain.NewDownload(pageURL, domain.SourceBatch, opts.WantTitle)
		download.BatchID = summary.BatchID
		download.LineIndex = lineIndex
		if err := bc.downloads.Track(download); err != nil {
			bc.logger.Warn("History unavailable", zap.Error(err))
		}

		var progress domain.ProgressFunc
		if opts.Progress != nil {
			progress = opts.Progress(download)
		}

		target := func(media *domain.ResolvedMedia) string {
			return domain.OutputPath(outputDir, policy.FileName(lineIndex, pageURL, media))
		}

		err := bc.downloads.ProcessDownload(ctx, download, target, progress)
		summary.Record(domain.BatchItemResult{
			LineIndex:  lineIndex,
			URL:        pageURL,
			Identifier: download.Identifier(),
			FilePath:   download.FilePath,
			Err:        err,
		})

		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}

		// an unresolved page has no transfer step, so it neither advances
		// progress nor waits
		if err != nil && download.FailedStage == domain.StageResolve {
			continue
		}

		summary.Progress.Increment()
		bc.logger.Info("Progress",
			zap.String("batch_id", summary.BatchID),
			zap.Int("completed", summary.Progress.Completed),
			zap.Int("total", summary.Progress.Total),
			zap.String("percent", summary.Progress.String()))

		if opts.Delay > 0 && hasMoreItems(lines, i) {
			bc.logger.Info("Waiting before the next download", zap.Duration("delay", opts.Delay))
			if err := bc.sleep(ctx, opts.Delay); err != nil {
				runErr = err
				break
			}
		}
	}

	summary.Duration = time.Since(start)
	bc.report(summary)

	if bc.notifier != nil {
		bc.notifier.NotifyBatchFinished(summary.Attempted, summary.Succeeded, summary.Failed)
	}

	return summary, runErr
}

func (bc *BatchCoordinator) report(summary *domain.BatchSummary) {
	for _, r := range summary.Results {
		if r.Success() {
			continue
		}
		bc.logger.Warn("Item failed",
			zap.Int("line", r.LineIndex),
			zap.String("id", r.Identifier),
			zap.Error(r.Err))
	}

	bc.logger.Info("Batch finished",
		zap.String("batch_id", summary.BatchID),
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.String("progress", summary.Progress.String()),
		zap.Duration("duration", summary.Duration))
}
