// Package notify shows desktop notifications when presets change.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/pgaskin/screenfilter/preset"
)

const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
)

// DBus sends notifications using org.freedesktop.Notifications on the session
// bus. Each notification replaces the previous one. It is safe for concurrent
// usage.
type DBus struct {
	conn    *dbus.Conn
	call    func(method string, args ...any) *dbus.Call
	timeout time.Duration
	logger  *slog.Logger

	mu sync.Mutex
	id uint32
}

// NewDBus connects to the session bus. Notifications expire after timeout, or
// the server default if zero. If logger is not nil, it is used for debug logs
// from this package.
func NewDBus(timeout time.Duration, logger *slog.Logger) (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	obj := conn.Object(notificationsName, dbus.ObjectPath(notificationsPath))
	d := newDBus(func(method string, args ...any) *dbus.Call {
		return obj.Call(method, 0, args...)
	}, timeout, logger)
	d.conn = conn
	return d, nil
}

func newDBus(call func(method string, args ...any) *dbus.Call, timeout time.Duration, logger *slog.Logger) *DBus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DBus{
		call:    call,
		timeout: timeout,
		logger:  logger,
	}
}

// Close closes the bus connection.
func (d *DBus) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// PresetActivated shows a notification for p. Errors are logged.
func (d *DBus) PresetActivated(p preset.Preset) {
	summary, body := message(p)
	if err := d.Notify(summary, body); err != nil {
		d.logger.Warn("notify: failed to send notification", "preset", p.ID, "error", err)
	}
}

// Notify shows a notification.
func (d *DBus) Notify(summary, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	expire := int32(-1)
	if d.timeout > 0 {
		expire = int32(d.timeout.Milliseconds())
	}
	var id uint32
	if err := d.call(notificationsName+".Notify",
		"screenfilter",  // app_name
		d.id,            // replaces_id
		"video-display", // app_icon
		summary,
		body,
		[]string{}, // actions
		map[string]dbus.Variant{ // hints
			"category":  dbus.MakeVariant("device"),
			"transient": dbus.MakeVariant(true),
		},
		expire, // expire_timeout
	).Store(&id); err != nil {
		return err
	}
	d.id = id
	return nil
}

func message(p preset.Preset) (summary, body string) {
	summary = "Screen filter"
	body = p.Name
	if p.Hotkey != "" {
		body += " (" + p.Hotkey + ")"
	}
	return
}
