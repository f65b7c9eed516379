package preset

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pgaskin/screenfilter/curve"
	"github.com/spf13/afero"
)

// Store is a persistent preset catalog. Every mutation saves the whole
// catalog before returning, and if saving fails, the mutation is discarded.
// It is safe for concurrent usage.
type Store struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger

	mu sync.Mutex
	c  Collection
}

// Open loads the catalog from path, creating the parent directory and saving
// the default catalog if it does not exist. If logger is not nil, it is used
// for debug logs from this package.
func Open(afs afero.Fs, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{
		fs:     afs,
		path:   path,
		logger: logger,
	}
	if err := afs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create config dir: %w", ErrStorage, err)
	}
	c, err := s.load()
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("preset: creating default presets", "path", path)
		c = Defaults()
		if err := s.save(c); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	s.c = c
	return s, nil
}

// Path returns the path of the document.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (Collection, error) {
	buf, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Collection{}, err
		}
		return Collection{}, fmt.Errorf("%w: read %s: %w", ErrStorage, s.path, err)
	}
	c, err := ParseCollection(buf)
	if err != nil {
		return Collection{}, fmt.Errorf("%w: load %s: %w", ErrStorage, s.path, err)
	}
	s.logger.Debug("preset: loaded presets", "path", s.path, "count", len(c.Presets), "size", humanize.Bytes(uint64(len(buf))))
	return c, nil
}

// save atomically replaces the document.
func (s *Store) save(c Collection) error {
	buf, err := c.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStorage, err)
	}
	buf = append(buf, '\n')
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, buf, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("%w: replace %s: %w", ErrStorage, s.path, err)
	}
	s.logger.Debug("preset: saved presets", "path", s.path, "count", len(c.Presets), "size", humanize.Bytes(uint64(len(buf))))
	return nil
}

// mutate applies fn to a copy of the catalog, saves it, then commits it.
func (s *Store) mutate(fn func(c *Collection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.c.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.save(next); err != nil {
		return err
	}
	s.c = next
	return nil
}

// Reload re-reads the document, replacing the in-memory catalog. If it fails,
// the catalog is unchanged.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		return err
	}
	s.c = c
	return nil
}

// List returns every preset, with the default ones first, then the others
// sorted by name.
func (s *Store) List() []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := make([]Preset, 0, len(s.c.Presets))
	for _, p := range s.c.Presets {
		ps = append(ps, p)
	}
	slices.SortFunc(ps, func(a, b Preset) int {
		if a.IsDefault != b.IsDefault {
			if a.IsDefault {
				return -1
			}
			return 1
		}
		if a.IsDefault {
			return cmp.Compare(defaultOrder(a.ID), defaultOrder(b.ID))
		}
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return ps
}

func defaultOrder(id string) int {
	switch id {
	case DefaultID:
		return 0
	case DaytimeID:
		return 1
	case NighttimeID:
		return 2
	}
	return 3
}

// Snapshot returns a copy of the whole catalog.
func (s *Store) Snapshot() Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.c.Clone()
}

// Get gets a preset by ID.
func (s *Store) Get(id string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.c.Presets[id]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return p, nil
}

// FindByHotkey finds the preset bound to a hotkey (case-sensitive).
func (s *Store) FindByHotkey(hotkey string) (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hotkey == "" {
		return Preset{}, false
	}
	for _, p := range s.c.Presets {
		if p.Hotkey == hotkey {
			return p, true
		}
	}
	return Preset{}, false
}

// Create adds a new preset, returning its ID. The hotkey may be empty.
func (s *Store) Create(name string, cfg curve.Config, hotkey string) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	id := "custom_" + uuid.NewString()
	if err := s.mutate(func(c *Collection) error {
		if err := c.checkHotkey(hotkey, ""); err != nil {
			return err
		}
		c.Presets[id] = Preset{
			ID:     id,
			Name:   name,
			Hotkey: hotkey,
			Config: cfg,
		}
		return nil
	}); err != nil {
		return "", err
	}
	s.logger.Info("preset: created preset", "id", id, "name", name, "hotkey", hotkey)
	return id, nil
}

// Update contains the fields to change in [Store.Update]. Nil fields are left
// as-is. To remove the hotkey, set it to an empty string.
type Update struct {
	Name   *string
	Config *curve.Config
	Hotkey *string
}

// Update changes the specified fields of a preset. A preset may keep its own
// hotkey.
func (s *Store) Update(id string, u Update) error {
	if u.Config != nil {
		if err := u.Config.Validate(); err != nil {
			return err
		}
	}
	return s.mutate(func(c *Collection) error {
		p, ok := c.Presets[id]
		if !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		if u.Name != nil {
			p.Name = *u.Name
		}
		if u.Config != nil {
			p.Config = *u.Config
		}
		if u.Hotkey != nil {
			if err := c.checkHotkey(*u.Hotkey, id); err != nil {
				return err
			}
			p.Hotkey = *u.Hotkey
		}
		c.Presets[id] = p
		return nil
	})
}

// Rename changes the name of a preset.
func (s *Store) Rename(id, name string) error {
	return s.Update(id, Update{Name: &name})
}

// Delete removes a non-default preset. If it was active, the default preset
// becomes active.
func (s *Store) Delete(id string) error {
	return s.mutate(func(c *Collection) error {
		p, ok := c.Presets[id]
		if !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		if p.IsDefault {
			return fmt.Errorf("%w: %q", ErrCannotDeleteDefault, id)
		}
		delete(c.Presets, id)
		if c.Active == id {
			if _, ok := c.Presets[DefaultID]; ok {
				c.Active = DefaultID
			} else {
				c.Active = ""
			}
		}
		return nil
	})
}

// SetActive marks a preset as active.
func (s *Store) SetActive(id string) error {
	return s.mutate(func(c *Collection) error {
		if _, ok := c.Presets[id]; !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		c.Active = id
		return nil
	})
}

// ClearActive unsets the active preset.
func (s *Store) ClearActive() error {
	return s.mutate(func(c *Collection) error {
		c.Active = ""
		return nil
	})
}

// Active gets the active preset, if any.
func (s *Store) Active() (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.c.Active == "" {
		return Preset{}, false
	}
	p, ok := s.c.Presets[s.c.Active]
	return p, ok
}

// Export encodes the whole catalog.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.c.MarshalJSON()
}

// Import replaces the whole catalog with an exported one. If the document is
// invalid, the catalog is unchanged.
func (s *Store) Import(b []byte) error {
	imported, err := ParseCollection(b)
	if err != nil {
		return fmt.Errorf("%w: import: %w", ErrStorage, err)
	}
	if err := s.mutate(func(c *Collection) error {
		*c = imported
		return nil
	}); err != nil {
		return err
	}
	s.logger.Info("preset: imported presets", "count", len(imported.Presets))
	return nil
}

// ResetToDefaults replaces the whole catalog with [Defaults].
func (s *Store) ResetToDefaults() error {
	return s.mutate(func(c *Collection) error {
		*c = Defaults()
		return nil
	})
}
