package ui

import (
	"sync"
	"sync/atomic"
)

// Level says how important an administrative notification is.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "info"
}

// NotificationManager shows desktop notifications: toast on Windows, beeep
// elsewhere.
type NotificationManager struct {
	enabled      atomic.Bool
	appName      string
	embeddedIcon []byte
	// notify is platformNotify outside tests.
	notify func(title, message string) error
}

func NewNotificationManager(useNotifications bool, appName string, embeddedIcon []byte) *NotificationManager {
	n := &NotificationManager{appName: appName, embeddedIcon: embeddedIcon}
	n.enabled.Store(useNotifications)
	n.notify = n.platformNotify
	return n
}

// SetEnabled switches capture notifications on or off, e.g. after a reload.
func (n *NotificationManager) SetEnabled(enabled bool) { n.enabled.Store(enabled) }

// ShowNotification displays a notification when notifications are enabled.
func (n *NotificationManager) ShowNotification(title, message string) {
	if !n.enabled.Load() {
		log.Debug().Str("title", title).Msg("Notification suppressed (disabled)")
		return
	}
	n.push(title, message)
}

// ShowAdminNotification reports application state. Warnings and errors are
// shown even when capture notifications are disabled.
func (n *NotificationManager) ShowAdminNotification(level Level, title, message string) {
	if level == LevelInfo && !n.enabled.Load() {
		log.Debug().Str("title", title).Msg("Info notification suppressed (disabled)")
		return
	}
	n.push(title, message)
}

func (n *NotificationManager) push(title, message string) {
	if err := n.notify(title, message); err != nil {
		log.Warn().Err(err).Str("title", title).Msg("Failed to show notification")
		return
	}
	log.Debug().Str("title", title).Msg("Notification sent")
}

var (
	globalMu                  sync.RWMutex
	globalNotificationManager *NotificationManager
)

// InitGlobalNotifications initializes the global notification manager
func InitGlobalNotifications(useNotifications bool, appName string, embeddedIcon []byte) *NotificationManager {
	n := NewNotificationManager(useNotifications, appName, embeddedIcon)
	globalMu.Lock()
	globalNotificationManager = n
	globalMu.Unlock()
	return n
}

func global() *NotificationManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalNotificationManager
}

// ShowNotification is a convenience function for showing notifications
// without directly referencing the notification manager
func ShowNotification(title, message string) {
	if n := global(); n != nil {
		n.ShowNotification(title, message)
		return
	}
	log.Info().Str("title", title).Str("message", message).Msg("Notification not shown (manager not initialized)")
}

// ShowAdminNotification is the global form of
// NotificationManager.ShowAdminNotification.
func ShowAdminNotification(level Level, title, message string) {
	if n := global(); n != nil {
		n.ShowAdminNotification(level, title, message)
		return
	}
	log.Info().Str("level", level.String()).Str("title", title).Str("message", message).Msg("Notification not shown (manager not initialized)")
}
