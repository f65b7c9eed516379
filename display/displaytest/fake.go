// Package displaytest provides an in-memory display backend for tests.
package displaytest

import (
	"fmt"
	"slices"
	"sync"

	"github.com/pgaskin/screenfilter/curve"
	"github.com/pgaskin/screenfilter/display"
)

// Fake is an in-memory [display.Enumerator] and [display.TableIO]. Devices
// start with the linear table. It is safe for concurrent usage.
type Fake struct {
	mu       sync.Mutex
	devices  []display.Device
	tables   map[display.DeviceID]curve.Table
	readErr  map[display.DeviceID]error
	writeErr map[display.DeviceID]error
	writes   map[display.DeviceID]int
}

var (
	_ display.Enumerator = (*Fake)(nil)
	_ display.TableIO    = (*Fake)(nil)
)

// New creates a fake with the specified devices, the first of which is
// primary.
func New(ids ...display.DeviceID) *Fake {
	f := &Fake{
		tables:   map[display.DeviceID]curve.Table{},
		readErr:  map[display.DeviceID]error{},
		writeErr: map[display.DeviceID]error{},
		writes:   map[display.DeviceID]int{},
	}
	for i, id := range ids {
		f.devices = append(f.devices, display.Device{
			ID:      id,
			Label:   "Fake " + string(id),
			Primary: i == 0,
		})
		f.tables[id] = curve.Linear()
	}
	return f
}

// Add attaches a device with the linear table, as if it were hotplugged.
func (f *Fake) Add(id display.DeviceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, display.Device{
		ID:      id,
		Label:   "Fake " + string(id),
		Primary: len(f.devices) == 0,
	})
	f.tables[id] = curve.Linear()
}

// Remove detaches a device. Its table is forgotten.
func (f *Fake) Remove(id display.DeviceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = slices.DeleteFunc(f.devices, func(d display.Device) bool {
		return d.ID == id
	})
	delete(f.tables, id)
}

// SetTable sets the current table of a device.
func (f *Fake) SetTable(id display.DeviceID, t curve.Table) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[id] = t
}

// Table gets the current table of a device.
func (f *Fake) Table(id display.DeviceID) curve.Table {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[id]
}

// Writes returns the number of successful writes to a device.
func (f *Fake) Writes(id display.DeviceID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[id]
}

// FailRead makes reads from a device fail with err (nil to clear).
func (f *Fake) FailRead(id display.DeviceID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr[id] = err
}

// FailWrite makes writes to a device fail with err (nil to clear).
func (f *Fake) FailWrite(id display.DeviceID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr[id] = err
}

func (f *Fake) Enumerate() ([]display.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]display.Device(nil), f.devices...), nil
}

func (f *Fake) ReadTable(id display.DeviceID) (curve.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr[id]; err != nil {
		return curve.Table{}, err
	}
	t, ok := f.tables[id]
	if !ok {
		return curve.Table{}, fmt.Errorf("%w: %q", display.ErrUnknownDevice, id)
	}
	return t, nil
}

func (f *Fake) WriteTable(id display.DeviceID, t curve.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErr[id]; err != nil {
		return err
	}
	if _, ok := f.tables[id]; !ok {
		return fmt.Errorf("%w: %q", display.ErrUnknownDevice, id)
	}
	f.tables[id] = t
	f.writes[id]++
	return nil
}
