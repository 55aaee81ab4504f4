package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
)

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
download:
  output_dir: /data/videos
  http_timeout: 45s
queue:
  check_interval: 2s
history:
  enabled: false
logging:
  level: debug
  format: json
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/videos", config.Download.OutputDir)
	assert.Equal(t, 45*time.Second, config.Download.HTTPTimeout)
	assert.Equal(t, 2*time.Second, config.Queue.CheckInterval)
	assert.False(t, config.History.Enabled)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 9090, config.Server.Port)

	// untouched keys keep their defaults
	assert.Equal(t, "cloudapp-dl/1.0", config.Download.UserAgent)
	assert.Equal(t, "localhost", config.Server.Host)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644))

	t.Setenv("CLOUDAPPDL_DOWNLOAD_USER_AGENT", "custom-agent")
	t.Setenv("CLOUDAPPDL_SERVER_PORT", "7070")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-agent", config.Download.UserAgent)
	assert.Equal(t, 7070, config.Server.Port)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	defer func() { homedir.DisableCache = false }()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  database_path: ~/dl/history.db\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "dl", "history.db"), config.History.DatabasePath)
	assert.Equal(t, filepath.Join(home, ".cloudapp-dl", "logs"), config.Logging.LogsDir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port", "server:\n  port: 70000\n"},
		{"negative timeout", "download:\n  http_timeout: -1s\n"},
		{"check interval", "queue:\n  check_interval: 0s\n"},
		{"level", "logging:\n  level: loud\n"},
		{"format", "logging:\n  format: xml\n"},
		{"notification method", "notification:\n  enabled: true\n  method: pager\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := domain.DefaultConfig()
	config.Download.OutputDir = "/srv/clips"
	config.Download.HTTPTimeout = 30 * time.Second
	config.Notification.Enabled = true
	config.Notification.Method = "osascript"

	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/clips", loaded.Download.OutputDir)
	assert.Equal(t, 30*time.Second, loaded.Download.HTTPTimeout)
	assert.True(t, loaded.Notification.Enabled)
	assert.Equal(t, "osascript", loaded.Notification.Method)
	assert.Equal(t, 5*time.Second, loaded.Queue.CheckInterval)
}
