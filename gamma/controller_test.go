package gamma

import (
	"errors"
	"sync"
	"testing"

	"github.com/pgaskin/screenfilter/curve"
	"github.com/pgaskin/screenfilter/display"
	"github.com/pgaskin/screenfilter/display/displaytest"
	"github.com/stretchr/testify/require"
)

func warm() curve.Config {
	c := curve.Identity()
	c.Brightness = 0.1
	c.Gamma = 1.3
	c.BlueScale = 0.8
	return c
}

func custom() curve.Table {
	t := curve.Linear()
	for i := range t.Red {
		t.Red[i] /= 2
	}
	return t
}

func TestApplyAndReset(t *testing.T) {
	io := displaytest.New("DISPLAY1", "DISPLAY2")
	io.SetTable("DISPLAY1", custom())
	ctl := New(io, nil)

	require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1", "DISPLAY2"}))
	require.Equal(t, curve.NewTable(warm()), io.Table("DISPLAY1"))
	require.Equal(t, curve.NewTable(warm()), io.Table("DISPLAY2"))

	orig, ok := ctl.Original("DISPLAY1")
	require.True(t, ok)
	require.Equal(t, custom(), orig)

	// the original is only captured once
	require.NoError(t, ctl.Apply(curve.Identity(), []display.DeviceID{"DISPLAY1"}))
	orig, _ = ctl.Original("DISPLAY1")
	require.Equal(t, custom(), orig)

	require.NoError(t, ctl.Reset([]display.DeviceID{"DISPLAY1", "DISPLAY2"}))
	require.Equal(t, custom(), io.Table("DISPLAY1"))
	require.Equal(t, curve.Linear(), io.Table("DISPLAY2"))
	require.Empty(t, ctl.Modified())
}

func TestApplyInvalid(t *testing.T) {
	io := displaytest.New("DISPLAY1")
	ctl := New(io, nil)

	cfg := curve.Identity()
	cfg.Gamma = 10
	err := ctl.Apply(cfg, []display.DeviceID{"DISPLAY1"})
	require.ErrorIs(t, err, curve.ErrInvalidConfig)
	require.Zero(t, io.Writes("DISPLAY1"))
	require.Empty(t, ctl.Modified())

	require.ErrorIs(t, ctl.Apply(curve.Identity(), nil), ErrNoDevices)
}

func TestApplyPartialFailure(t *testing.T) {
	io := displaytest.New("DISPLAY1", "DISPLAY2", "DISPLAY3")
	io.FailWrite("DISPLAY2", errors.New("device gone"))
	ctl := New(io, nil)

	err := ctl.Apply(warm(), []display.DeviceID{"DISPLAY1", "DISPLAY2", "DISPLAY3"})
	require.Error(t, err)

	var pf *PartialFailure
	require.ErrorAs(t, err, &pf)
	require.Equal(t, []display.DeviceID{"DISPLAY1", "DISPLAY3"}, pf.Succeeded)
	require.Equal(t, []display.DeviceID{"DISPLAY2"}, pf.FailedDevices())
	require.Equal(t, "write", pf.Failed[0].Op)
	require.Contains(t, err.Error(), "DISPLAY2")
	require.Contains(t, err.Error(), "device gone")

	var de *DeviceError
	require.ErrorAs(t, err, &de)
	require.Equal(t, display.DeviceID("DISPLAY2"), de.Device)

	// no rollback
	require.Equal(t, curve.NewTable(warm()), io.Table("DISPLAY1"))
	require.Equal(t, curve.Linear(), io.Table("DISPLAY2"))
}

func TestApplyReadFailure(t *testing.T) {
	io := displaytest.New("DISPLAY1")
	io.SetTable("DISPLAY1", custom())
	io.FailRead("DISPLAY1", errors.New("unsupported"))
	ctl := New(io, nil)

	require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1"}))
	_, ok := ctl.Original("DISPLAY1")
	require.False(t, ok)
	require.Equal(t, []display.DeviceID{"DISPLAY1"}, ctl.Modified())

	// no baseline, so it falls back to linear
	require.NoError(t, ctl.Reset([]display.DeviceID{"DISPLAY1"}))
	require.Equal(t, curve.Linear(), io.Table("DISPLAY1"))
}

func TestApplyReadAndWriteFailure(t *testing.T) {
	io := displaytest.New("DISPLAY1", "DISPLAY2")
	io.SetTable("DISPLAY2", custom())
	io.FailRead("DISPLAY2", errors.New("unsupported"))
	io.FailWrite("DISPLAY2", errors.New("busy"))
	ctl := New(io, nil)

	var pf *PartialFailure
	require.ErrorAs(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1", "DISPLAY2"}), &pf)
	require.Equal(t, []display.DeviceID{"DISPLAY2"}, pf.FailedDevices())

	// never written, so not modified
	require.Equal(t, []display.DeviceID{"DISPLAY1"}, ctl.Modified())
	_, ok := ctl.Original("DISPLAY2")
	require.False(t, ok)

	io.FailRead("DISPLAY2", nil)
	io.FailWrite("DISPLAY2", nil)
	require.NoError(t, ctl.ResetAll())
	require.Equal(t, curve.Linear(), io.Table("DISPLAY1"))
	require.Equal(t, custom(), io.Table("DISPLAY2"))
	require.Zero(t, io.Writes("DISPLAY2"))
}

func TestApplyWriteFailureKeepsBaseline(t *testing.T) {
	io := displaytest.New("DISPLAY1")
	io.SetTable("DISPLAY1", custom())
	ctl := New(io, nil)

	require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1"}))

	// a later failed write must not drop the baseline from the first one
	io.FailWrite("DISPLAY1", errors.New("busy"))
	require.Error(t, ctl.Apply(curve.Identity(), []display.DeviceID{"DISPLAY1"}))
	orig, ok := ctl.Original("DISPLAY1")
	require.True(t, ok)
	require.Equal(t, custom(), orig)

	io.FailWrite("DISPLAY1", nil)
	require.NoError(t, ctl.ResetAll())
	require.Equal(t, custom(), io.Table("DISPLAY1"))
}

func TestResetSkipsUntouched(t *testing.T) {
	io := displaytest.New("DISPLAY1", "DISPLAY2")
	io.SetTable("DISPLAY2", custom())
	ctl := New(io, nil)

	require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1"}))
	require.NoError(t, ctl.Reset([]display.DeviceID{"DISPLAY1", "DISPLAY2"}))
	require.Equal(t, 2, io.Writes("DISPLAY1"))
	require.Zero(t, io.Writes("DISPLAY2"))
	require.Equal(t, custom(), io.Table("DISPLAY2"))
}

func TestResetIdempotent(t *testing.T) {
	io := displaytest.New("DISPLAY1")
	ctl := New(io, nil)

	require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1"}))
	require.NoError(t, ctl.ResetAll())
	writes := io.Writes("DISPLAY1")
	require.NoError(t, ctl.ResetAll())
	require.NoError(t, ctl.Reset([]display.DeviceID{"DISPLAY1"}))
	require.Equal(t, writes, io.Writes("DISPLAY1"))
	require.Equal(t, curve.Linear(), io.Table("DISPLAY1"))
}

func TestResetFailureClearsCache(t *testing.T) {
	io := displaytest.New("DISPLAY1", "DISPLAY2")
	ctl := New(io, nil)

	require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1", "DISPLAY2"}))
	io.FailWrite("DISPLAY1", errors.New("busy"))

	var pf *PartialFailure
	require.ErrorAs(t, ctl.ResetAll(), &pf)
	require.Equal(t, []display.DeviceID{"DISPLAY2"}, pf.Succeeded)
	require.Equal(t, []display.DeviceID{"DISPLAY1"}, pf.FailedDevices())
	require.Empty(t, ctl.Modified())
}

func TestResetOne(t *testing.T) {
	io := displaytest.New("DISPLAY1", "DISPLAY2")
	io.SetTable("DISPLAY1", custom())
	io.SetTable("DISPLAY2", custom())
	ctl := New(io, nil)

	require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1"}))
	require.NoError(t, ctl.ResetOne("DISPLAY1"))
	require.Equal(t, custom(), io.Table("DISPLAY1"))
	require.Empty(t, ctl.Modified())

	// never touched, so it writes a linear table
	require.NoError(t, ctl.ResetOne("DISPLAY2"))
	require.Equal(t, curve.Linear(), io.Table("DISPLAY2"))

	io.FailWrite("DISPLAY1", errors.New("busy"))
	var de *DeviceError
	require.ErrorAs(t, ctl.ResetOne("DISPLAY1"), &de)
	require.Equal(t, display.DeviceID("DISPLAY1"), de.Device)
}

func TestClose(t *testing.T) {
	io := displaytest.New("DISPLAY1", "DISPLAY2")
	io.SetTable("DISPLAY1", custom())
	io.FailWrite("DISPLAY2", errors.New("gone"))
	ctl := New(io, nil)

	require.Error(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1", "DISPLAY2"}))
	ctl.Close()
	require.Equal(t, custom(), io.Table("DISPLAY1"))

	ctl.Close()
	require.ErrorIs(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1"}), ErrClosed)
	require.ErrorIs(t, ctl.ResetAll(), ErrClosed)
	require.ErrorIs(t, ctl.ResetOne("DISPLAY1"), ErrClosed)
	require.Equal(t, custom(), io.Table("DISPLAY1"))
}

func TestDuplicateDevices(t *testing.T) {
	io := displaytest.New("DISPLAY1")
	ctl := New(io, nil)

	require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1", "DISPLAY1"}))
	require.Equal(t, 1, io.Writes("DISPLAY1"))
}

func TestConcurrent(t *testing.T) {
	io := displaytest.New("DISPLAY1", "DISPLAY2")
	io.SetTable("DISPLAY1", custom())
	ctl := New(io, nil)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg := curve.Identity()
			cfg.Brightness = float64(i) / 32
			if err := ctl.Apply(cfg, []display.DeviceID{"DISPLAY1", "DISPLAY2"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	orig, ok := ctl.Original("DISPLAY1")
	require.True(t, ok)
	require.Equal(t, custom(), orig)

	ctl.Close()
	require.Equal(t, custom(), io.Table("DISPLAY1"))
	require.Equal(t, curve.Linear(), io.Table("DISPLAY2"))
}
