// Package preset manages the catalog of named filter presets and their
// hotkeys, persisting it as a JSON document.
package preset

import (
	"errors"
	"fmt"
	"maps"

	"github.com/pgaskin/screenfilter/curve"
)

// Some errors.
var (
	ErrNotFound            = errors.New("preset not found")
	ErrConflict            = errors.New("preset conflict")
	ErrCannotDeleteDefault = fmt.Errorf("%w: cannot delete a default preset", ErrConflict)
	ErrStorage             = errors.New("preset storage error")
	ErrInvalidDocument     = errors.New("invalid preset document")
)

// IDs of the default presets.
const (
	DefaultID   = "default"
	DaytimeID   = "daytime"
	NighttimeID = "nighttime"
)

// Preset is a named filter config with an optional hotkey.
type Preset struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Hotkey    string       `json:"hotkey,omitempty"` // empty if none
	Config    curve.Config `json:"config"`
	IsDefault bool         `json:"is_default"` // cannot be deleted
}

// Collection is the full preset catalog.
type Collection struct {
	Presets map[string]Preset
	Active  string // empty if none
}

// Defaults returns the initial catalog: three non-deletable presets bound to
// F2-F4, with the identity one active.
func Defaults() Collection {
	return Collection{
		Presets: map[string]Preset{
			DefaultID: {
				ID:        DefaultID,
				Name:      "Default",
				Hotkey:    "F2",
				Config:    curve.Identity(),
				IsDefault: true,
			},
			DaytimeID: {
				ID:     DaytimeID,
				Name:   "Daytime",
				Hotkey: "F3",
				Config: curve.Config{
					Brightness: 0.03,
					Gamma:      1.5,
					Contrast:   0.05,
					RedScale:   1,
					GreenScale: 1,
					BlueScale:  1,
				},
				IsDefault: true,
			},
			NighttimeID: {
				ID:     NighttimeID,
				Name:   "Nighttime",
				Hotkey: "F4",
				Config: curve.Config{
					Brightness: 0.55,
					Gamma:      1.95,
					Contrast:   0.22,
					RedScale:   1,
					GreenScale: 1,
					BlueScale:  1,
				},
				IsDefault: true,
			},
		},
		Active: DefaultID,
	}
}

// Clone returns a deep copy of c.
func (c Collection) Clone() Collection {
	return Collection{
		Presets: maps.Clone(c.Presets),
		Active:  c.Active,
	}
}

// Equal checks whether two collections are identical.
func (c Collection) Equal(o Collection) bool {
	return c.Active == o.Active && maps.Equal(c.Presets, o.Presets)
}

// checkHotkey ensures no preset other than exclude uses the hotkey.
func (c Collection) checkHotkey(hotkey, exclude string) error {
	if hotkey == "" {
		return nil
	}
	for id, p := range c.Presets {
		if id != exclude && p.Hotkey == hotkey {
			return fmt.Errorf("%w: hotkey %q is already used by preset %q", ErrConflict, hotkey, p.Name)
		}
	}
	return nil
}

// Check ensures the collection is internally consistent.
func (c Collection) Check() error {
	hotkeys := map[string]string{}
	for id, p := range c.Presets {
		if id == "" || id != p.ID {
			return fmt.Errorf("preset %q has mismatched id %q", id, p.ID)
		}
		if err := p.Config.Validate(); err != nil {
			return fmt.Errorf("preset %q: %w", id, err)
		}
		if p.Hotkey != "" {
			if other, ok := hotkeys[p.Hotkey]; ok {
				return fmt.Errorf("presets %q and %q: %w: duplicate hotkey %q", other, id, ErrConflict, p.Hotkey)
			}
			hotkeys[p.Hotkey] = id
		}
	}
	if c.Active != "" {
		if _, ok := c.Presets[c.Active]; !ok {
			return fmt.Errorf("active preset %q does not exist", c.Active)
		}
	}
	return nil
}
