// Package display models the physical displays whose gamma ramps can be
// modified, and provides enumeration and ramp I/O backends for them.
package display

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/pgaskin/screenfilter/curve"
)

// ErrUnknownDevice is returned by backends when a device is not (or no
// longer) attached.
var ErrUnknownDevice = errors.New("unknown display device")

// DeviceID is an opaque platform-defined identifier for a display. It is only
// stable for the lifetime of a single enumeration.
type DeviceID string

// Device is a single attached display.
type Device struct {
	ID      DeviceID
	Label   string // human-readable
	Primary bool
}

// Synthetic is used as the only device when enumeration fails or returns
// nothing.
var Synthetic = Device{
	ID:      "DISPLAY1",
	Label:   "Primary display",
	Primary: true,
}

// Enumerator lists the currently attached displays.
type Enumerator interface {
	Enumerate() ([]Device, error)
}

// EnumeratorFunc wraps a function in an Enumerator.
type EnumeratorFunc func() ([]Device, error)

func (fn EnumeratorFunc) Enumerate() ([]Device, error) {
	return fn()
}

// Watcher reports changes to the attached displays.
type Watcher interface {
	// Watch calls fn after each change until ctx is done or the watcher
	// fails, returning the error.
	Watch(ctx context.Context, fn func()) error
}

// TableIO reads and writes device gamma ramps. Implementations must be safe
// for concurrent use.
type TableIO interface {
	ReadTable(DeviceID) (curve.Table, error)
	WriteTable(DeviceID, curve.Table) error
}

// Directory is a read-only snapshot of the attached displays.
type Directory struct {
	devices []Device
}

// NewDirectory creates a snapshot from a device list, dropping duplicate IDs
// (the first wins). If there are no devices, the snapshot contains only
// [Synthetic]. If no device is marked as primary, the first one is.
func NewDirectory(devices []Device) Directory {
	var d Directory
	for _, dev := range devices {
		if !slices.ContainsFunc(d.devices, func(x Device) bool { return x.ID == dev.ID }) {
			d.devices = append(d.devices, dev)
		}
	}
	if len(d.devices) == 0 {
		d.devices = []Device{Synthetic}
	}
	if !slices.ContainsFunc(d.devices, func(x Device) bool { return x.Primary }) {
		d.devices[0].Primary = true
	}
	return d
}

// Scan tries each enumerator in order, returning a snapshot of the first one
// which succeeds with at least one device. If none do, the snapshot contains
// only [Synthetic]. If logger is not nil, it is used for debug logs.
func Scan(logger *slog.Logger, enumerators ...Enumerator) Directory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, e := range enumerators {
		devices, err := e.Enumerate()
		if err != nil {
			logger.Warn("display: enumeration failed", "error", err)
			continue
		}
		if len(devices) == 0 {
			logger.Debug("display: enumerator returned no devices")
			continue
		}
		return NewDirectory(devices)
	}
	logger.Warn("display: no devices found, using synthetic primary display", "device", Synthetic.ID)
	return NewDirectory(nil)
}

// Devices returns a copy of the devices in enumeration order.
func (d Directory) Devices() []Device {
	if d.devices == nil {
		return []Device{Synthetic}
	}
	return slices.Clone(d.devices)
}

// IDs returns the device IDs in enumeration order.
func (d Directory) IDs() []DeviceID {
	devices := d.Devices()
	ids := make([]DeviceID, len(devices))
	for i, dev := range devices {
		ids[i] = dev.ID
	}
	return ids
}

// Primary returns the primary device.
func (d Directory) Primary() Device {
	devices := d.Devices()
	if i := slices.IndexFunc(devices, func(x Device) bool { return x.Primary }); i != -1 {
		return devices[i]
	}
	return devices[0]
}

// Lookup finds a device by ID.
func (d Directory) Lookup(id DeviceID) (Device, bool) {
	devices := d.Devices()
	if i := slices.IndexFunc(devices, func(x Device) bool { return x.ID == id }); i != -1 {
		return devices[i], true
	}
	return Device{}, false
}
