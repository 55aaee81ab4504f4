package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"go.uber.org/zap"
)

// commandRunner runs an external notifier binary
type commandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationService sends desktop notifications. It implements domain.Notifier.
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    commandRunner
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run:    runCommand,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		err = n.run("osascript", "-e", osascriptNotification(title, message, n.config.Sound))
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// osascriptNotification builds the AppleScript for a notification. Quotes and
// backslashes are escaped since titles come from remote pages.
func osascriptNotification(title, message string, sound bool) string {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, appleScriptEscape(message), appleScriptEscape(title))
	if sound {
		script += ` sound name "default"`
	}
	return script
}

func appleScriptEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// NotifyDownloadCompleted sends notification when a clip is saved
func (n *NotificationService) NotifyDownloadCompleted(download *domain.Download) {
	name := download.Title
	if name == "" {
		name = download.Identifier()
	}
	n.Send("Download Completed", fmt.Sprintf("Saved %s to %s", truncateString(name, 40), download.FilePath))
}

// NotifyDownloadFailed sends notification when a clip could not be saved
func (n *NotificationService) NotifyDownloadFailed(download *domain.Download, err error) {
	message := fmt.Sprintf("Failed: %s", truncateString(download.Identifier(), 30))
	if kind := domain.KindOf(err); kind != "" {
		message += fmt.Sprintf(" (%s)", kind)
	}
	n.Send("Download Failed", message)
}

// NotifyBatchFinished sends notification when a list has been worked through
func (n *NotificationService) NotifyBatchFinished(total, succeeded, failed int) {
	n.Send("Batch Finished", fmt.Sprintf("%d of %d saved, %d failed", succeeded, total, failed))
}

// truncateString cuts s to maxLen characters. Titles come from remote pages,
// so the cut is on rune boundaries.
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
