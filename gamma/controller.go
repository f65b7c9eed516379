// Package gamma applies color tables to display devices and restores their
// original tables afterwards.
package gamma

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/pgaskin/screenfilter/curve"
	"github.com/pgaskin/screenfilter/display"
)

// Controller applies color tables to devices, remembering the table each
// device had before it was first modified so it can be restored. It is safe
// for concurrent usage.
//
// The controller should always be closed (which restores every modified
// device) before the process exits. See [RestoreOnSignal] for a second line
// of defense.
type Controller struct {
	io     display.TableIO
	logger *slog.Logger

	mu     sync.Mutex
	orig   map[display.DeviceID]*curve.Table // nil if modified without a readable baseline
	closed bool
}

// New creates a new controller using the provided device I/O. If logger is
// not nil, it is used for debug logs from this package.
func New(io display.TableIO, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		io:     io,
		logger: logger,
		orig:   map[display.DeviceID]*curve.Table{},
	}
}

// Apply validates cfg, then writes its table to each device.
//
// The original table of each device is read the first time the device is
// written successfully. If that read fails, the device is still modified, but
// resetting it will write a linear table instead. A device whose write fails
// is not considered modified unless an earlier call modified it.
//
// If any device fails, a [*PartialFailure] is returned, but the devices which
// succeeded keep the new table.
func (c *Controller) Apply(cfg curve.Config, devices []display.DeviceID) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	devices = dedup(devices)
	if len(devices) == 0 {
		return ErrNoDevices
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	var (
		table = curve.NewTable(cfg)
		res   PartialFailure
	)
	for _, dev := range devices {
		orig, touched := c.orig[dev]
		if !touched {
			if t, err := c.io.ReadTable(dev); err != nil {
				c.logger.Warn("gamma: failed to save original gamma ramp, will reset to linear", "device", dev, "error", err)
			} else {
				orig = &t
			}
		}
		if err := c.io.WriteTable(dev, table); err != nil {
			c.logger.Warn("gamma: failed to set gamma ramp", "device", dev, "error", err)
			res.Failed = append(res.Failed, &DeviceError{Device: dev, Op: "write", Err: err})
			continue
		}
		if !touched {
			c.orig[dev] = orig
		}
		res.Succeeded = append(res.Succeeded, dev)
	}
	c.logger.Debug("gamma: applied config", "config", cfg, "devices", res.Succeeded, "failed", len(res.Failed))

	if len(res.Failed) != 0 {
		return &res
	}
	return nil
}

// Reset restores every provided device which was modified since the last
// reset. Devices which were never modified are skipped, and devices which
// were modified without a readable original table are reset to a linear
// table. The saved original tables are cleared afterwards, regardless of
// whether any device failed.
func (c *Controller) Reset(devices []display.DeviceID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.resetLocked(dedup(devices))
}

// ResetAll is like [Controller.Reset] for every modified device.
func (c *Controller) ResetAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.resetLocked(c.modifiedLocked())
}

// ResetOne restores the original table of a single device, writing a linear
// table if there isn't one, even if the device was never modified.
func (c *Controller) ResetOne(device display.DeviceID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	table := curve.Linear()
	if t := c.orig[device]; t != nil {
		table = *t
	}
	if err := c.io.WriteTable(device, table); err != nil {
		return &DeviceError{Device: device, Op: "write", Err: err}
	}
	delete(c.orig, device)
	return nil
}

func (c *Controller) resetLocked(devices []display.DeviceID) error {
	var res PartialFailure
	for _, dev := range devices {
		orig, ok := c.orig[dev]
		if !ok {
			continue
		}
		table := curve.Linear()
		if orig != nil {
			table = *orig
		}
		if err := c.io.WriteTable(dev, table); err != nil {
			c.logger.Warn("gamma: failed to restore gamma ramp", "device", dev, "error", err)
			res.Failed = append(res.Failed, &DeviceError{Device: dev, Op: "write", Err: err})
			continue
		}
		res.Succeeded = append(res.Succeeded, dev)
	}
	clear(c.orig)

	if len(res.Failed) != 0 {
		return &res
	}
	return nil
}

// Modified returns the devices modified since the last reset, sorted.
func (c *Controller) Modified() []display.DeviceID {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.modifiedLocked()
}

func (c *Controller) modifiedLocked() []display.DeviceID {
	return slices.Sorted(maps.Keys(c.orig))
}

// Original returns the saved original table for a device, if any.
func (c *Controller) Original(device display.DeviceID) (curve.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t := c.orig[device]; t != nil {
		return *t, true
	}
	return curve.Table{}, false
}

// Close restores every modified device on a best-effort basis, logging any
// errors. Further calls to other methods will return [ErrClosed]. It is safe to
// call Close more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if devices := c.modifiedLocked(); len(devices) != 0 {
		if err := c.resetLocked(devices); err != nil {
			c.logger.Error("gamma: failed to restore gamma ramps on close", "error", err)
		} else {
			c.logger.Info("gamma: restored gamma ramps", "devices", devices)
		}
	}
}

func dedup(devices []display.DeviceID) []display.DeviceID {
	out := make([]display.DeviceID, 0, len(devices))
	for _, dev := range devices {
		if !slices.Contains(out, dev) {
			out = append(out, dev)
		}
	}
	return out
}
