package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"go.uber.org/zap"
)

// HTTPTransferer implements domain.Transferer by streaming the response body
// straight into the destination file.
type HTTPTransferer struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewHTTPTransferer creates a new transfer engine
func NewHTTPTransferer(config *domain.DownloadConfig, logger *zap.Logger) *HTTPTransferer {
	return &HTTPTransferer{
		client:    &http.Client{Timeout: config.HTTPTimeout},
		userAgent: config.UserAgent,
		logger:    logger,
	}
}

// progressWriter discards data and reports the running byte count. It must be
// the last writer of an io.MultiWriter so failed file writes are not counted.
type progressWriter struct {
	written  int64
	total    int64
	callback domain.ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.callback != nil {
		w.callback(w.written, w.total)
	}
	return len(p), nil
}

// Transfer downloads mediaURL into destPath. On any failure the partial file
// is removed and a transfer error is returned.
func (t *HTTPTransferer) Transfer(ctx context.Context, mediaURL, destPath string, progress domain.ProgressFunc) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, domain.NewError(domain.KindTransfer, "transfer", destPath,
			fmt.Errorf("failed to create output directory: %w", err))
	}

	// single writer per destination; an existing file is replaced
	file, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, domain.NewError(domain.KindTransfer, "transfer", destPath,
			fmt.Errorf("failed to open output file: %w", err))
	}

	written, err := t.stream(ctx, mediaURL, file, progress)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close output file: %w", closeErr)
	}

	if err != nil {
		if removeErr := os.Remove(destPath); removeErr != nil && !os.IsNotExist(removeErr) {
			t.logger.Warn("Failed to remove partial file",
				zap.String("path", destPath),
				zap.Error(removeErr))
		}
		return 0, domain.NewError(domain.KindTransfer, "transfer", mediaURL, err)
	}

	t.logger.Debug("Transfer complete",
		zap.String("url", mediaURL),
		zap.String("path", destPath),
		zap.String("size", humanize.Bytes(uint64(written))))

	return written, nil
}

func (t *HTTPTransferer) stream(ctx context.Context, mediaURL string, dst io.Writer, progress domain.ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, domain.NewError(domain.KindFetch, "get", mediaURL, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return 0, domain.NewError(domain.KindFetch, "get", mediaURL,
			fmt.Errorf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	counter := &progressWriter{total: resp.ContentLength, callback: progress}
	written, err := io.Copy(io.MultiWriter(dst, counter), resp.Body)
	if err != nil {
		return written, fmt.Errorf("stream interrupted after %s: %w", humanize.Bytes(uint64(written)), err)
	}
	return written, nil
}
