package display

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/pgaskin/screenfilter/curve"
)

// X11 enumerates outputs and reads/writes CRTC gamma ramps using RandR. It is
// safe for concurrent usage.
type X11 struct {
	conn    *xgb.Conn
	root    xproto.Window
	edid    xproto.Atom // zero if the server doesn't know about EDID
	logger  *slog.Logger
	changes chan struct{} // closed with the connection

	mu    sync.Mutex
	crtcs map[DeviceID]randr.Crtc // from the last enumeration
}

var (
	_ Enumerator = (*X11)(nil)
	_ TableIO    = (*X11)(nil)
	_ Watcher    = (*X11)(nil)
)

// NewX11 opens a X11 connection to the specified display (empty for the
// default), processing RandR change events in another goroutine. If logger is
// not nil, it is used for debug logs from this package.
func NewX11(display string, logger *slog.Logger) (*X11, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	x := &X11{
		conn:    conn,
		logger:  logger,
		changes: make(chan struct{}, 1),
		crtcs:   map[DeviceID]randr.Crtc{},
	}
	x.root = xproto.Setup(conn).DefaultScreen(conn).Root

	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init randr: %w", err)
	}

	if atom, err := xproto.InternAtom(conn, true, uint16(len("EDID")), "EDID").Reply(); err != nil {
		logger.Warn("x11: failed to get edid atom", "error", err)
	} else {
		x.edid = atom.Atom
	}

	if err := randr.SelectInputChecked(conn, x.root, randr.NotifyMaskScreenChange|randr.NotifyMaskCrtcChange|randr.NotifyMaskOutputChange).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("select randr input: %w", err)
	}

	go func() {
		defer close(x.changes)
		for {
			ev, err := x.conn.WaitForEvent()
			if ev == nil && err == nil {
				return // closed
			}
			if err != nil {
				x.logger.Debug("x11: error event", "error", err)
				continue
			}
			if isChange(ev) {
				x.logger.Debug("x11: randr: display configuration changed", "event", ev)
				notify(x.changes)
			}
		}
	}()
	return x, nil
}

// isChange checks whether ev means the outputs or CRTCs may have changed.
func isChange(ev xgb.Event) bool {
	switch ev := ev.(type) {
	case randr.ScreenChangeNotifyEvent:
		return true
	case randr.NotifyEvent:
		return ev.SubCode == randr.NotifyCrtcChange || ev.SubCode == randr.NotifyOutputChange
	}
	return false
}

// notify does a non-blocking send on a coalescing channel.
func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Watch implements [Watcher], calling fn after RandR reports that the screen
// or its outputs changed. Bursts of events which arrive while fn is running are
// coalesced into a single call. It returns [net.ErrClosed] once the
// connection is closed.
func (x *X11) Watch(ctx context.Context, fn func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-x.changes:
			if !ok {
				return net.ErrClosed
			}
			fn()
		}
	}
}

// Close closes the connection. It does not revert any gamma ramps.
func (x *X11) Close() {
	x.conn.Close()
}

// Enumerate implements [Enumerator]. Only connected outputs driven by a CRTC
// are returned, and the device ID is the output name.
func (x *X11) Enumerate() ([]Device, error) {
	resources, err := randr.GetScreenResourcesCurrent(x.conn, x.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("get screen resources: %w", err)
	}

	primary, err := randr.GetOutputPrimary(x.conn, x.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("get primary output: %w", err)
	}

	var (
		devices []Device
		crtcs   = map[DeviceID]randr.Crtc{}
	)
	for _, output := range resources.Outputs {
		info, err := randr.GetOutputInfo(x.conn, output, 0).Reply()
		if err != nil {
			return nil, fmt.Errorf("get output info: %w", err)
		}
		if info.Connection != randr.ConnectionConnected || info.Crtc == 0 {
			continue
		}
		name := string(info.Name)
		dev := Device{
			ID:      DeviceID(name),
			Label:   name,
			Primary: primary.Output == output,
		}
		if e, ok := x.outputEDID(output); ok {
			dev.Label = e.Label() + " (" + name + ")"
		}
		crtcs[dev.ID] = info.Crtc
		devices = append(devices, dev)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.crtcs = crtcs

	return devices, nil
}

func (x *X11) outputEDID(output randr.Output) (EDID, bool) {
	if x.edid == 0 {
		return EDID{}, false
	}
	prop, err := randr.GetOutputProperty(x.conn, output, x.edid, xproto.AtomAny, 0, 128, false, false).Reply()
	if err != nil {
		x.logger.Debug("x11: randr: failed to get edid", "output", output, "error", err)
		return EDID{}, false
	}
	e, err := ParseEDID(prop.Data)
	if err != nil {
		return EDID{}, false
	}
	return e, true
}

// crtc gets the CRTC for a device, re-enumerating if it isn't known.
func (x *X11) crtc(id DeviceID) (randr.Crtc, error) {
	lookup := func() (randr.Crtc, bool) {
		x.mu.Lock()
		defer x.mu.Unlock()
		crtc, ok := x.crtcs[id]
		return crtc, ok
	}
	if crtc, ok := lookup(); ok {
		return crtc, nil
	}
	if _, err := x.Enumerate(); err != nil {
		return 0, err
	}
	if crtc, ok := lookup(); ok {
		return crtc, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
}

// ReadTable implements [TableIO], resampling the CRTC's ramp to 256 levels.
func (x *X11) ReadTable(id DeviceID) (curve.Table, error) {
	crtc, err := x.crtc(id)
	if err != nil {
		return curve.Table{}, err
	}
	gamma, err := randr.GetCrtcGamma(x.conn, crtc).Reply()
	if err != nil {
		return curve.Table{}, fmt.Errorf("get crtc gamma: %w", err)
	}
	t, ok := curve.FromRamp(gamma.Red, gamma.Green, gamma.Blue)
	if !ok {
		return curve.Table{}, fmt.Errorf("get crtc gamma: empty ramp")
	}
	return t, nil
}

// WriteTable implements [TableIO], resampling the table to the CRTC's ramp
// size.
func (x *X11) WriteTable(id DeviceID, t curve.Table) error {
	crtc, err := x.crtc(id)
	if err != nil {
		return err
	}
	gamma, err := randr.GetCrtcGammaSize(x.conn, crtc).Reply()
	if err != nil {
		return fmt.Errorf("get crtc gamma size: %w", err)
	}
	if gamma.Size == 0 {
		return fmt.Errorf("crtc does not support gamma ramps")
	}
	gr := make([]uint16, gamma.Size)
	gg := make([]uint16, gamma.Size)
	gb := make([]uint16, gamma.Size)
	t.Expand(gr, gg, gb)
	if err := randr.SetCrtcGammaChecked(x.conn, crtc, gamma.Size, gr, gg, gb).Check(); err != nil {
		return fmt.Errorf("set crtc gamma: %w", err)
	}
	return nil
}
