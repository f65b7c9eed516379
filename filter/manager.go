// Package filter ties the preset catalog to the gamma controller.
package filter

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pgaskin/screenfilter/curve"
	"github.com/pgaskin/screenfilter/display"
	"github.com/pgaskin/screenfilter/gamma"
	"github.com/pgaskin/screenfilter/preset"
)

// ErrNotInitialized is returned by every method of a [Manager] which was not
// created by [New] or which has been closed.
var ErrNotInitialized = errors.New("filter manager not initialized")

// Notifier is notified when a preset becomes active from a hotkey.
type Notifier interface {
	PresetActivated(p preset.Preset)
}

// NotifierFunc adapts a function to a [Notifier].
type NotifierFunc func(p preset.Preset)

func (fn NotifierFunc) PresetActivated(p preset.Preset) {
	fn(p)
}

// Options contains optional settings for a [Manager].
type Options struct {
	// Enumerators are used by [Manager.Refresh] to rescan the devices.
	Enumerators []display.Enumerator

	// Outputs, if not empty, limits the devices targeted by presets applied
	// to every device. Unknown outputs are ignored.
	Outputs []display.DeviceID

	// Notifier, if not nil, is called after a hotkey activates a preset.
	Notifier Notifier

	// Logger, if not nil, is used for debug logs from this package.
	Logger *slog.Logger
}

// Manager applies presets from a catalog to the displays. It is safe for
// concurrent usage.
//
// Operations which change both the displays and the active preset hold a
// single lock for their whole duration, so other manager calls never observe
// one without the other. A crash between the two steps can still leave the
// active preset out of date.
type Manager struct {
	mu    sync.Mutex
	ready bool
	store *preset.Store
	ctl   *gamma.Controller
	dir   display.Directory
	enums []display.Enumerator
	only  []display.DeviceID
	notif Notifier
	log   *slog.Logger

	applied    preset.Preset // last preset applied to every targeted device
	hasApplied bool
}

// New creates a ready manager. The manager owns ctl, and closing the manager
// restores the displays.
func New(store *preset.Store, ctl *gamma.Controller, dir display.Directory, opt Options) *Manager {
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		ready: true,
		store: store,
		ctl:   ctl,
		dir:   dir,
		enums: slices.Clone(opt.Enumerators),
		only:  slices.Clone(opt.Outputs),
		notif: opt.Notifier,
		log:   log,
	}
}

// lock acquires the manager lock if it is ready.
func (m *Manager) lock() error {
	if m == nil {
		return ErrNotInitialized
	}
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	return nil
}

// Devices returns the current device snapshot.
func (m *Manager) Devices() (display.Directory, error) {
	if err := m.lock(); err != nil {
		return display.Directory{}, err
	}
	defer m.mu.Unlock()

	return m.dir, nil
}

// targets gets the known devices which presets are applied to.
func (m *Manager) targets() []display.DeviceID {
	ids := m.dir.IDs()
	if len(m.only) != 0 {
		ids = slices.DeleteFunc(ids, func(id display.DeviceID) bool {
			return !slices.Contains(m.only, id)
		})
	}
	return ids
}

// Targets returns the known devices which presets are applied to when the
// caller doesn't choose the devices.
func (m *Manager) Targets() ([]display.DeviceID, error) {
	if err := m.lock(); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	return m.targets(), nil
}

// Refresh rescans the devices using the configured enumerators. Without any,
// the snapshot is left as-is.
func (m *Manager) Refresh() (display.Directory, error) {
	if err := m.lock(); err != nil {
		return display.Directory{}, err
	}
	defer m.mu.Unlock()

	if len(m.enums) != 0 {
		m.dir = display.Scan(m.log, m.enums...)
		m.hasApplied = false
		m.log.Debug("filter: refreshed devices", "count", len(m.dir.Devices()))
	}
	return m.dir, nil
}

// ApplyPreset applies a preset to the devices, then makes it active.
//
// If some devices fail, a [*gamma.PartialFailure] is returned and the active
// preset is left unchanged, but the other devices keep the new table.
func (m *Manager) ApplyPreset(id string, devices []display.DeviceID) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	_, err := m.applyPresetLocked(id, devices)
	return err
}

// ActivatePreset applies a preset to every targeted device, then makes it
// active.
func (m *Manager) ActivatePreset(id string) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	_, err := m.applyPresetLocked(id, m.targets())
	return err
}

func (m *Manager) applyPresetLocked(id string, devices []display.DeviceID) (preset.Preset, error) {
	p, err := m.store.Get(id)
	if err != nil {
		return p, err
	}
	if len(devices) == 0 {
		return p, gamma.ErrNoDevices
	}
	if err := m.ctl.Apply(p.Config, devices); err != nil {
		return p, fmt.Errorf("apply preset %q: %w", id, err)
	}
	if err := m.store.SetActive(id); err != nil {
		return p, fmt.Errorf("activate preset %q: %w", id, err)
	}
	m.applied, m.hasApplied = p, slices.Equal(devices, m.targets())
	m.log.Info("filter: applied preset", "id", id, "name", p.Name, "devices", devices)
	return p, nil
}

// ApplyLive applies cfg to the devices without changing or saving the active
// preset. It is meant for previewing changes.
func (m *Manager) ApplyLive(cfg curve.Config, devices []display.DeviceID) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	m.hasApplied = false
	return m.ctl.Apply(cfg, devices)
}

// HandleHotkey applies the preset bound to hotkey to every targeted device,
// then notifies the [Notifier]. It returns false if no preset uses the hotkey.
func (m *Manager) HandleHotkey(hotkey string) (bool, error) {
	if err := m.lock(); err != nil {
		return false, err
	}
	p, ok := m.store.FindByHotkey(hotkey)
	if !ok {
		m.mu.Unlock()
		m.log.Debug("filter: unbound hotkey", "hotkey", hotkey)
		return false, nil
	}
	p, err := m.applyPresetLocked(p.ID, m.targets())
	notif := m.notif
	m.mu.Unlock()

	if err != nil {
		return true, err
	}
	if notif != nil {
		notif.PresetActivated(p)
	}
	return true, nil
}

// Reset restores every targeted or modified device, then clears the active
// preset. The active preset is cleared even if some devices fail.
func (m *Manager) Reset() error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	return m.resetLocked()
}

func (m *Manager) resetLocked() error {
	devices := m.targets()
	for _, id := range m.ctl.Modified() {
		if !slices.Contains(devices, id) {
			devices = append(devices, id)
		}
	}
	err := m.ctl.Reset(devices)
	if pf := (*gamma.PartialFailure)(nil); err != nil && !errors.As(err, &pf) {
		return err
	}
	m.hasApplied = false
	if cerr := m.store.ClearActive(); cerr != nil {
		return errors.Join(err, cerr)
	}
	m.log.Info("filter: reset devices", "devices", devices)
	return err
}

// Sync makes the displays match the active preset after it was changed
// outside the manager (e.g., by [preset.Store.Watch]) or the devices were
// refreshed. If the active preset differs from the one last applied to every
// targeted device, it is applied. If there is no active preset but one was
// applied, the devices are reset.
func (m *Manager) Sync() error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	p, ok := m.store.Active()
	switch {
	case !ok && !m.hasApplied:
		return nil
	case !ok:
		return m.resetLocked()
	case m.hasApplied && m.applied == p:
		return nil
	}
	_, err := m.applyPresetLocked(p.ID, m.targets())
	return err
}

// ResetDevice restores a single device, writing a linear table if its
// original one is not known.
func (m *Manager) ResetDevice(id display.DeviceID) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	m.hasApplied = false
	return m.ctl.ResetOne(id)
}

// Modified returns the devices currently modified.
func (m *Manager) Modified() ([]display.DeviceID, error) {
	if err := m.lock(); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	return m.ctl.Modified(), nil
}

// Close restores every modified device, then makes the manager unusable.
// Restore failures are logged. It is a no-op if the manager is not ready.
func (m *Manager) Close() {
	if err := m.lock(); err != nil {
		return
	}
	defer m.mu.Unlock()

	m.ctl.Close()
	m.ready = false
}
