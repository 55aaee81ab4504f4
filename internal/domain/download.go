package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download
type DownloadStatus string

const (
	StatusQueued     DownloadStatus = "queued"
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
	StatusCancelled  DownloadStatus = "cancelled"
)

// Stage is the pipeline step a download failed in
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageTransfer Stage = "transfer"
)

// Source tells how a download was requested
type Source string

const (
	SourceSingle Source = "single"
	SourceBatch  Source = "batch"
	SourceServer Source = "server"
)

// Download is one page URL going through resolve and transfer.
type Download struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	URL          string         `json:"url" gorm:"not null"`
	Source       Source         `json:"source" gorm:"not null;default:single"`
	Status       DownloadStatus `json:"status" gorm:"not null;index"`
	WantTitle    bool           `json:"want_title"`
	OutPath      string         `json:"out_path,omitempty"` // explicit destination requested by the caller
	BatchID      string         `json:"batch_id,omitempty" gorm:"index"`
	LineIndex    int            `json:"line_index,omitempty"` // 1-based line in the batch list
	Priority     int            `json:"priority" gorm:"default:0;index"`
	MediaURL     string         `json:"media_url,omitempty"`
	Title        string         `json:"title,omitempty"`
	FilePath     string         `json:"file_path,omitempty"`
	BytesWritten int64          `json:"bytes_written"`
	FailedStage  Stage          `json:"failed_stage,omitempty"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a new download task
func NewDownload(url string, source Source, wantTitle bool) *Download {
	return &Download{
		ID:        uuid.New().String(),
		URL:       url,
		Source:    source,
		Status:    StatusQueued,
		WantTitle: wantTitle,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// Identifier returns the page identifier used for fallback filenames and logs
func (d *Download) Identifier() string {
	return ExtractID(d.URL)
}

// MarkProcessing marks the download as processing
func (d *Download) MarkProcessing() {
	d.Status = StatusProcessing
	now := time.Now()
	d.StartedAt = &now
	d.UpdatedAt = now
}

// MarkResolved records the resolver output
func (d *Download) MarkResolved(media *ResolvedMedia) {
	d.MediaURL = media.MediaURL
	d.Title = media.Title
	d.UpdatedAt = time.Now()
}

// MarkCompleted marks the download as completed
func (d *Download) MarkCompleted(filePath string) {
	d.Status = StatusCompleted
	d.FilePath = filePath
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkFailed marks the download as failed at the given stage
func (d *Download) MarkFailed(stage Stage, err error) {
	d.Status = StatusFailed
	d.FailedStage = stage
	d.ErrorKind = KindOf(err)
	d.ErrorMessage = err.Error()
	d.UpdatedAt = time.Now()
}

// MarkCancelled marks the download as cancelled
func (d *Download) MarkCancelled() {
	d.Status = StatusCancelled
	d.UpdatedAt = time.Now()
}

// Requeue resets a failed or cancelled download so the queue picks it up again
func (d *Download) Requeue() {
	d.Status = StatusQueued
	d.FailedStage = ""
	d.ErrorKind = ""
	d.ErrorMessage = ""
	d.BytesWritten = 0
	d.StartedAt = nil
	d.CompletedAt = nil
	d.UpdatedAt = time.Now()
}

// IsTerminal checks if the download is in a terminal state
func (d *Download) IsTerminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusCancelled
}

// IsPending checks if the download is pending
func (d *Download) IsPending() bool {
	return d.Status == StatusQueued
}

// IsProcessing checks if the download is currently processing
func (d *Download) IsProcessing() bool {
	return d.Status == StatusProcessing
}
