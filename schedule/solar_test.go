package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/pgaskin/screenfilter/preset"
	"github.com/stretchr/testify/require"
)

func TestSolarPreset(t *testing.T) {
	s := Solar{
		Latitude:       0,
		Longitude:      0,
		ElevationDay:   3,
		ElevationNight: -6,
	}
	noon := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	midnight := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	require.Equal(t, preset.DaytimeID, s.Preset(noon))
	require.Equal(t, preset.NighttimeID, s.Preset(midnight))

	s.DayPreset, s.NightPreset = "a", "b"
	require.Equal(t, "a", s.Preset(noon))
	require.Equal(t, "b", s.Preset(midnight))

	// twilight keeps the current preset
	dawn := time.Date(2024, 3, 20, 6, 0, 0, 0, time.UTC)
	e := sunrise.Elevation(s.Latitude, s.Longitude, dawn)
	s.ElevationDay, s.ElevationNight = e+1, e-1
	require.Empty(t, s.Preset(dawn))
}

type activator struct {
	mu    sync.Mutex
	calls []string
	fail  int
	done  chan struct{}
}

func (a *activator) ActivatePreset(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, id)
	if len(a.calls) <= a.fail {
		return errors.New("busy")
	}
	if len(a.calls) == a.fail+1 {
		close(a.done)
	}
	return nil
}

func TestSolarRun(t *testing.T) {
	// the sun is always above -90 degrees
	s := Solar{ElevationDay: -90, ElevationNight: -90}
	a := &activator{fail: 2, done: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- s.Run(ctx, a, time.Millisecond, nil)
	}()

	select {
	case <-a.done:
	case <-time.After(5 * time.Second):
		t.Fatal("preset not activated")
	}

	// unchanged presets are not re-activated
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	a.mu.Lock()
	defer a.mu.Unlock()
	require.Equal(t, []string{preset.DaytimeID, preset.DaytimeID, preset.DaytimeID}, a.calls)
}
