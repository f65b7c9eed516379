// Package schedule switches presets based on the time of day.
package schedule

import (
	"cmp"
	"context"
	"log/slog"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/pgaskin/screenfilter/preset"
)

// Solar chooses between a day and night preset based on the elevation of the
// sun at a location. Between ElevationNight and ElevationDay, the current
// preset is kept.
type Solar struct {
	Latitude       float64
	Longitude      float64
	ElevationDay   float64 // degrees
	ElevationNight float64 // degrees

	DayPreset   string // defaults to [preset.DaytimeID]
	NightPreset string // defaults to [preset.NighttimeID]
}

// Preset returns the preset ID to use at t, or an empty string to keep the
// current one.
func (s Solar) Preset(t time.Time) string {
	switch elevation := sunrise.Elevation(s.Latitude, s.Longitude, t); {
	case elevation >= s.ElevationDay:
		return cmp.Or(s.DayPreset, preset.DaytimeID)
	case elevation < s.ElevationNight:
		return cmp.Or(s.NightPreset, preset.NighttimeID)
	default:
		return ""
	}
}

// Activator applies a preset to every display.
type Activator interface {
	ActivatePreset(id string) error
}

// Run checks the preset every interval until ctx is cancelled, activating it
// when it changes. Failed activations are logged and retried at the next
// check. If logger is not nil, it is used for debug logs.
func (s Solar) Run(ctx context.Context, a Activator, interval time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		if id := s.Preset(time.Now()); id != "" && id != last {
			if err := a.ActivatePreset(id); err != nil {
				logger.Warn("schedule: failed to activate preset", "preset", id, "error", err)
			} else {
				logger.Info("schedule: activated preset", "preset", id)
				last = id
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
