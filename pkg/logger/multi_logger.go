package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryQueue    LogCategory = "queue"    // Queue lifecycle events (JSON)
	CategoryTransfer LogCategory = "transfer" // Per-clip resolve/transfer outcomes (JSON)
	CategoryError    LogCategory = "error"    // Application errors (JSON)
)

// Categories lists every category in display order
var Categories = []LogCategory{CategoryQueue, CategoryTransfer, CategoryError}

const dateLayout = "20060102"

// MultiLogger provides categorized logging with one JSON file per category and day.
type MultiLogger struct {
	loggers     map[LogCategory]*zap.Logger
	files       map[LogCategory]*os.File
	config      MultiLoggerConfig
	level       zapcore.Level
	mu          sync.RWMutex
	currentDate string
	now         func() time.Time
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		config: config,
		level:  level,
		now:    time.Now,
	}

	if err := ml.open(ml.now().Format(dateLayout)); err != nil {
		return nil, err
	}

	return ml, nil
}

// open creates the category loggers for date. Caller holds mu or owns ml exclusively.
func (ml *MultiLogger) open(date string) error {
	loggers := make(map[LogCategory]*zap.Logger, len(Categories))
	files := make(map[LogCategory]*os.File, len(Categories))

	for _, category := range Categories {
		level := ml.level
		if category == CategoryError {
			level = zapcore.ErrorLevel
		}

		logger, file, err := ml.createStructuredLogger(category, date, level)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		loggers[category] = logger
		files[category] = file
	}

	ml.closeFiles()
	ml.loggers = loggers
	ml.files = files
	ml.currentDate = date
	return nil
}

// createStructuredLogger creates a JSON-formatted logger for a category
func (ml *MultiLogger) createStructuredLogger(category LogCategory, date string, level zapcore.Level) (*zap.Logger, *os.File, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""

	file, err := os.OpenFile(ml.categoryLogPath(category, date), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	return zap.New(core).With(zap.String("category", string(category))), file, nil
}

func (ml *MultiLogger) categoryLogPath(category LogCategory, date string) string {
	return filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a category, switching files when the day changes
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	today := ml.now().Format(dateLayout)

	ml.mu.RLock()
	if today == ml.currentDate {
		logger := ml.lookup(category)
		ml.mu.RUnlock()
		return logger
	}
	ml.mu.RUnlock()

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if today != ml.currentDate {
		// keep writing to yesterday's files if the new ones cannot be opened
		_ = ml.open(today)
	}
	return ml.lookup(category)
}

func (ml *MultiLogger) lookup(category LogCategory) *zap.Logger {
	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// Queue returns the queue logger
func (ml *MultiLogger) Queue() *zap.Logger {
	return ml.GetLogger(CategoryQueue)
}

// Transfer returns the transfer logger
func (ml *MultiLogger) Transfer() *zap.Logger {
	return ml.GetLogger(CategoryTransfer)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogQueueEvent logs a queue lifecycle event with structured data
func (ml *MultiLogger) LogQueueEvent(event string, fields ...zap.Field) {
	ml.Queue().Info(event, fields...)
}

// LogTransferEvent logs the outcome of one clip
func (ml *MultiLogger) LogTransferEvent(event string, fields ...zap.Field) {
	ml.Transfer().Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	ml.closeFiles()
	return lastErr
}

func (ml *MultiLogger) closeFiles() {
	for _, f := range ml.files {
		f.Close()
	}
	ml.files = nil
}
