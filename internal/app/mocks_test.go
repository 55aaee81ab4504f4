package app

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/yourusername/cloudapp-dl-go/internal/domain"
)

// mockRepo implements domain.DownloadRepository in memory. Records are copied
// in and out so callers never share a pointer with the store, like a database.
type mockRepo struct {
	mu        sync.Mutex
	downloads []*domain.Download
}

func newMockRepo() *mockRepo {
	return &mockRepo{downloads: make([]*domain.Download, 0)}
}

func clone(d *domain.Download) *domain.Download {
	c := *d
	return &c
}

func (m *mockRepo) Create(download *domain.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, clone(download))
	return nil
}

func (m *mockRepo) Update(download *domain.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.downloads {
		if d.ID == download.ID {
			m.downloads[i] = clone(download)
			return nil
		}
	}
	return nil
}

func (m *mockRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.downloads {
		if d.ID == id {
			m.downloads = append(m.downloads[:i], m.downloads[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockRepo) FindByID(id string) (*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.downloads {
		if d.ID == id {
			return clone(d), nil
		}
	}
	return nil, nil
}

func (m *mockRepo) FindByURL(url string, statuses []domain.DownloadStatus) (*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.downloads) - 1; i >= 0; i-- {
		d := m.downloads[i]
		if d.URL != url {
			continue
		}
		for _, s := range statuses {
			if d.Status == s {
				return clone(d), nil
			}
		}
	}
	return nil, nil
}

func (m *mockRepo) FindByStatus(status domain.DownloadStatus) ([]*domain.Download, error) {
	return m.filter(func(d *domain.Download) bool { return d.Status == status }), nil
}

func (m *mockRepo) FindByBatch(batchID string) ([]*domain.Download, error) {
	result := m.filter(func(d *domain.Download) bool { return d.BatchID == batchID })
	sort.Slice(result, func(i, j int) bool { return result[i].LineIndex < result[j].LineIndex })
	return result, nil
}

func (m *mockRepo) FindPending() ([]*domain.Download, error) {
	result := m.filter(func(d *domain.Download) bool { return d.Status == domain.StatusQueued })
	sort.SliceStable(result, func(i, j int) bool { return result[i].Priority > result[j].Priority })
	return result, nil
}

func (m *mockRepo) FindAll(filters map[string]interface{}) ([]*domain.Download, error) {
	return m.filter(func(d *domain.Download) bool {
		if s, ok := filters["status"]; ok && s != d.Status {
			return false
		}
		return true
	}), nil
}

func (m *mockRepo) Count() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.downloads)), nil
}

func (m *mockRepo) CountByStatus(status domain.DownloadStatus) (int64, error) {
	return int64(len(m.filter(func(d *domain.Download) bool { return d.Status == status }))), nil
}

func (m *mockRepo) ResetOrphanedProcessing() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.downloads {
		if d.Status == domain.StatusProcessing {
			d.Status = domain.StatusQueued
			d.StartedAt = nil
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) GetStats() (*domain.DownloadStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.DownloadStats{Total: int64(len(m.downloads))}
	for _, d := range m.downloads {
		switch d.Status {
		case domain.StatusQueued:
			stats.Queued++
		case domain.StatusProcessing:
			stats.Processing++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (m *mockRepo) filter(keep func(*domain.Download) bool) []*domain.Download {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Download
	for _, d := range m.downloads {
		if keep(d) {
			result = append(result, clone(d))
		}
	}
	return result
}

// mockResolver answers from a fixed table keyed by page URL
type mockResolver struct {
	mu     sync.Mutex
	media  map[string]*domain.ResolvedMedia
	errs   map[string]error
	calls  []string
	titles []bool
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		media: make(map[string]*domain.ResolvedMedia),
		errs:  make(map[string]error),
	}
}

func (m *mockResolver) Resolve(ctx context.Context, pageURL string, wantTitle bool) (*domain.ResolvedMedia, error) {
	m.mu.Lock()
	m.calls = append(m.calls, pageURL)
	m.titles = append(m.titles, wantTitle)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, domain.NewError(domain.KindFetch, "resolve", pageURL, err)
	}
	if err, ok := m.errs[pageURL]; ok {
		return nil, err
	}
	if media, ok := m.media[pageURL]; ok {
		c := *media
		if !wantTitle {
			c.Title = ""
		}
		return &c, nil
	}
	return nil, domain.NewError(domain.KindNotFound, "resolve", pageURL, domain.ErrVideoNotFound)
}

func (m *mockResolver) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// mockTransferer writes a small file, or fails for configured media URLs.
// When block is set it waits for ctx to be done before failing.
type mockTransferer struct {
	mu      sync.Mutex
	errs    map[string]error
	block   bool
	started chan string
	dests   []string
}

func newMockTransferer() *mockTransferer {
	return &mockTransferer{errs: make(map[string]error)}
}

func (m *mockTransferer) Transfer(ctx context.Context, mediaURL, destPath string, progress domain.ProgressFunc) (int64, error) {
	m.mu.Lock()
	m.dests = append(m.dests, destPath)
	m.mu.Unlock()

	if m.started != nil {
		m.started <- destPath
	}

	if m.block {
		<-ctx.Done()
		return 0, domain.NewError(domain.KindTransfer, "transfer", mediaURL, ctx.Err())
	}
	if err, ok := m.errs[mediaURL]; ok {
		return 0, err
	}

	data := []byte("mp4:" + mediaURL)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, domain.NewError(domain.KindTransfer, "transfer", destPath, err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return 0, domain.NewError(domain.KindTransfer, "transfer", destPath, err)
	}
	if progress != nil {
		progress(int64(len(data)), int64(len(data)))
	}
	return int64(len(data)), nil
}

func (m *mockTransferer) Dests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dests...)
}

// mockNotifier records notifications
type mockNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	batches   [][3]int
}

func (m *mockNotifier) NotifyDownloadCompleted(download *domain.Download) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, download.ID)
}

func (m *mockNotifier) Completed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.completed...)
}

func (m *mockNotifier) NotifyDownloadFailed(download *domain.Download, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, download.ID)
}

func (m *mockNotifier) NotifyBatchFinished(total, succeeded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, [3]int{total, succeeded, failed})
}
