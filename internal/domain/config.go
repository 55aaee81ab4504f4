package domain

import (
	"errors"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	History      HistoryConfig      `mapstructure:"history"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	OutputDir   string        `mapstructure:"output_dir"`
	UserAgent   string        `mapstructure:"user_agent"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"` // 0 disables the client timeout
	Progress    bool          `mapstructure:"progress"`
}

// HistoryConfig controls the download history database
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// QueueConfig contains queue-related configuration (server mode)
type QueueConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // category logs written in server mode
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			OutputDir:   ".",
			UserAgent:   "cloudapp-dl/1.0",
			HTTPTimeout: 0,
			Progress:    true,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.cloudapp-dl/history.db",
		},
		Queue: QueueConfig{
			CheckInterval: 5 * time.Second,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
			LogsDir:    "$HOME/.cloudapp-dl/logs",
		},
	}
}

// RunOptions is the validated argument set for one CLI invocation.
// Exactly one of URL and List is set.
type RunOptions struct {
	URL          string
	List         string
	Prefix       string
	Out          string
	DefaultTitle bool
	Timeout      time.Duration // delay between list items
}

// Validate checks that the options describe exactly one run.
func (o RunOptions) Validate() error {
	if o.URL == "" && o.List == "" {
		return NewError(KindInvalidOptions, "validate", "",
			errors.New("please provide either a single video URL with --url or a list of URLs with --list"))
	}
	if o.URL != "" && o.List != "" {
		return NewError(KindInvalidOptions, "validate", "",
			errors.New("please provide either --url or --list, not both"))
	}
	if o.Timeout < 0 {
		return NewError(KindInvalidOptions, "validate", "",
			errors.New("please provide a non-negative number for --timeout"))
	}
	return nil
}

// IsBatch reports whether the run is driven by a list file.
func (o RunOptions) IsBatch() bool {
	return o.List != ""
}
