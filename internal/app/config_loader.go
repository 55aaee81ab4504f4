package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
)

// EnvPrefix is the prefix of environment overrides, e.g. CLOUDAPPDL_DOWNLOAD_OUTPUT_DIR
const EnvPrefix = "CLOUDAPPDL"

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.cloudapp-dl")
		v.AddConfigPath("/etc/cloudapp-dl")
	}

	// defaults make every key known to viper so env overrides apply
	// even when no config file sets them
	for key, value := range configValues(config) {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// configValues flattens config into viper keys. Durations are written as
// strings ("5s") so saved files stay readable.
func configValues(config *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host":           config.Server.Host,
		"server.port":           config.Server.Port,
		"download.output_dir":   config.Download.OutputDir,
		"download.user_agent":   config.Download.UserAgent,
		"download.http_timeout": config.Download.HTTPTimeout.String(),
		"download.progress":     config.Download.Progress,
		"history.enabled":       config.History.Enabled,
		"history.database_path": config.History.DatabasePath,
		"queue.check_interval":  config.Queue.CheckInterval.String(),
		"notification.enabled":  config.Notification.Enabled,
		"notification.sound":    config.Notification.Sound,
		"notification.method":   config.Notification.Method,
		"logging.level":         config.Logging.Level,
		"logging.format":        config.Logging.Format,
		"logging.output_path":   config.Logging.OutputPath,
		"logging.logs_dir":      config.Logging.LogsDir,
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if expanded, err := homedir.Expand(path); err == nil {
		path = expanded
	}

	// $HOME first so it resolves even when the variable is unset
	if strings.Contains(path, "$HOME") {
		if home, err := homedir.Dir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.OutputDir == "" {
		config.Download.OutputDir = "."
	}

	if config.Download.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout cannot be negative")
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Queue.CheckInterval <= 0 {
		return fmt.Errorf("queue check interval must be positive")
	}

	switch config.Notification.Method {
	case "osascript", "notify-send":
	default:
		if config.Notification.Enabled {
			return fmt.Errorf("unknown notification method: %s", config.Notification.Method)
		}
	}

	switch config.Logging.Level {
	case "":
		config.Logging.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
