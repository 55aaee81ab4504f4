package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

// filterColumns are the columns FindAll accepts as filter keys
var filterColumns = map[string]bool{
	"status":       true,
	"source":       true,
	"batch_id":     true,
	"url":          true,
	"failed_stage": true,
	"error_kind":   true,
}

// SQLiteDownloadRepository implements DownloadRepository using SQLite
type SQLiteDownloadRepository struct {
	db *gorm.DB
}

// NewSQLiteDownloadRepository creates a new SQLite repository. Slow queries
// and database errors are reported through log.
func NewSQLiteDownloadRepository(dbPath string, log *zap.Logger) (*SQLiteDownloadRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gormLog := zapgorm2.New(log.Named("gorm"))
	gormLog.IgnoreRecordNotFoundError = true

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormLog.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Download{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteDownloadRepository{db: db}, nil
}

// Create creates a new download
func (r *SQLiteDownloadRepository) Create(download *domain.Download) error {
	return r.db.Create(download).Error
}

// Update updates an existing download
func (r *SQLiteDownloadRepository) Update(download *domain.Download) error {
	return r.db.Save(download).Error
}

// Delete deletes a download by ID
func (r *SQLiteDownloadRepository) Delete(id string) error {
	return r.db.Delete(&domain.Download{}, "id = ?", id).Error
}

// FindByID finds a download by ID
func (r *SQLiteDownloadRepository) FindByID(id string) (*domain.Download, error) {
	var download domain.Download
	err := r.db.First(&download, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &download, nil
}

// FindByStatus finds downloads by status
func (r *SQLiteDownloadRepository) FindByStatus(status domain.DownloadStatus) ([]*domain.Download, error) {
	var downloads []*domain.Download
	err := r.db.Where("status = ?", status).Order("created_at ASC").Find(&downloads).Error
	return downloads, err
}

// FindByURL returns the most recent download of url in one of statuses.
// It returns nil without an error when there is none.
func (r *SQLiteDownloadRepository) FindByURL(url string, statuses []domain.DownloadStatus) (*domain.Download, error) {
	var download domain.Download
	err := r.db.Where("url = ? AND status IN ?", url, statuses).
		Order("created_at DESC").
		First(&download).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &download, nil
}

// FindByBatch finds the downloads of one batch run in line order
func (r *SQLiteDownloadRepository) FindByBatch(batchID string) ([]*domain.Download, error) {
	var downloads []*domain.Download
	err := r.db.Where("batch_id = ?", batchID).Order("line_index ASC").Find(&downloads).Error
	return downloads, err
}

// FindPending finds all pending downloads ordered by priority and creation time
func (r *SQLiteDownloadRepository) FindPending() ([]*domain.Download, error) {
	var downloads []*domain.Download
	err := r.db.Where("status = ?", domain.StatusQueued).
		Order("priority DESC, created_at ASC").
		Find(&downloads).Error
	return downloads, err
}

// FindAll finds all downloads with optional filters. Unknown filter keys are rejected.
func (r *SQLiteDownloadRepository) FindAll(filters map[string]interface{}) ([]*domain.Download, error) {
	var downloads []*domain.Download
	query := r.db

	for key, value := range filters {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&downloads).Error
	return downloads, err
}

// Count returns the total number of downloads
func (r *SQLiteDownloadRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.Download{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of downloads by status
func (r *SQLiteDownloadRepository) CountByStatus(status domain.DownloadStatus) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Download{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// ResetOrphanedProcessing puts downloads left in processing by an interrupted
// run back in the queue. It returns how many were reset.
func (r *SQLiteDownloadRepository) ResetOrphanedProcessing() (int64, error) {
	result := r.db.Model(&domain.Download{}).
		Where("status = ?", domain.StatusProcessing).
		Updates(map[string]interface{}{
			"status":        domain.StatusQueued,
			"started_at":    nil,
			"bytes_written": 0,
		})
	return result.RowsAffected, result.Error
}

// GetStats returns download statistics
func (r *SQLiteDownloadRepository) GetStats() (*domain.DownloadStats, error) {
	stats := &domain.DownloadStats{}

	if err := r.db.Model(&domain.Download{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.DownloadStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.Download{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusQueued:
			stats.Queued = sc.Count
		case domain.StatusProcessing:
			stats.Processing = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteDownloadRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
