// Package notify delivers desktop notifications for bootstrap outcomes.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/tessera-apps/tessera/internal/constants"
	"github.com/tessera-apps/tessera/internal/logging"
)

// Notifier handles desktop notifications.
type Notifier struct {
	logger *logging.Logger

	mu                    sync.RWMutex
	enabled               bool
	showStartupErrors     bool
	showInstanceConflicts bool
	showHandOffInfo       bool
}

// Config holds notification configuration.
type Config struct {
	// Enabled determines if notifications are sent at all.
	Enabled bool

	// ShowStartupErrors shows a notification when the bootstrap fails
	// fatally. Without it a double-clicked desktop launch dies silently.
	ShowStartupErrors bool

	// ShowInstanceConflicts shows a notification when a running instance
	// blocks this launch (unresponsive owner, test-session conflict).
	ShowInstanceConflicts bool

	// ShowHandOffInfo shows a notification when the launch was handed to
	// the running instance.
	ShowHandOffInfo bool
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:               true,
		ShowStartupErrors:     true,
		ShowInstanceConflicts: true,
		ShowHandOffInfo:       false, // The running window coming to front is signal enough
	}
}

// NewNotifier creates a new notifier with the given configuration.
func NewNotifier(cfg *Config, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Notifier{
		logger:                logger,
		enabled:               cfg.Enabled,
		showStartupErrors:     cfg.ShowStartupErrors,
		showInstanceConflicts: cfg.ShowInstanceConflicts,
		showHandOffInfo:       cfg.ShowHandOffInfo,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

func (n *Notifier) gate(flag bool) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && flag
}

// StartupFailed sends an alert when the bootstrap dies before the window
// ever appears.
func (n *Notifier) StartupFailed(errMsg string) {
	if !n.gate(n.showStartupErrors) {
		return
	}

	title := constants.AppName + " failed to start"
	message := truncate(errMsg, 160)

	if err := n.alert(title, message); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to send startup failure notification")
	}
}

// InstanceUnresponsive sends an alert when another instance holds the
// endpoint but does not answer.
func (n *Notifier) InstanceUnresponsive(endpointPath string) {
	if !n.gate(n.showInstanceConflicts) {
		return
	}

	title := constants.AppName
	message := fmt.Sprintf("Another instance of %s is running but not responding.\nEndpoint: %s",
		constants.AppName, shortenPath(endpointPath))

	if err := n.alert(title, message); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to send unresponsive instance notification")
	}
}

// TestSessionConflict sends an alert when an automated test launch was
// refused because a regular instance is running.
func (n *Notifier) TestSessionConflict() {
	if !n.gate(n.showInstanceConflicts) {
		return
	}

	title := constants.AppName
	message := fmt.Sprintf("A test-mode launch was stopped because %s is already running.\nClose the running instance and try again.",
		constants.AppName)

	if err := n.alert(title, message); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to send test session conflict notification")
	}
}

// HandedOff sends an informational note that the launch was delivered to
// the running instance.
func (n *Notifier) HandedOff(args []string) {
	if !n.gate(n.showHandOffInfo) {
		return
	}

	title := constants.AppName
	message := "Opened in the running " + constants.AppName + " window."
	if len(args) > 0 {
		message += "\n" + truncate(strings.Join(args, " "), 80)
	}

	if err := n.send(title, message); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to send hand-off notification")
	}
}

// send delivers a regular notification.
func (n *Notifier) send(title, message string) error {
	// beeep.Notify is cross-platform:
	// - Windows: Uses toast notifications
	// - macOS: Uses NSUserNotificationCenter
	// - Linux: Uses D-Bus notifications
	return beeep.Notify(title, message, "")
}

// alert delivers a prominent notification, falling back to a regular one.
func (n *Notifier) alert(title, message string) error {
	if err := beeep.Alert(title, message, ""); err != nil {
		return n.send(title, message)
	}
	return nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path for display in notifications.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	// Try to show drive/root + ... + last 2 path components
	_, file := filepath.Split(path)
	parentDir := filepath.Base(filepath.Dir(path))

	short := filepath.Join("...", parentDir, file)

	vol := filepath.VolumeName(path)
	if vol != "" && len(vol)+len(short)+1 <= maxLen {
		short = vol + string(filepath.Separator) + short
	}

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}

	return short
}
