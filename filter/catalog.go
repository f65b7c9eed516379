package filter

import (
	"github.com/pgaskin/screenfilter/curve"
	"github.com/pgaskin/screenfilter/preset"
)

// List lists the presets.
func (m *Manager) List() ([]preset.Preset, error) {
	if err := m.lock(); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	return m.store.List(), nil
}

// Get gets a preset.
func (m *Manager) Get(id string) (preset.Preset, error) {
	if err := m.lock(); err != nil {
		return preset.Preset{}, err
	}
	defer m.mu.Unlock()

	return m.store.Get(id)
}

// Active gets the active preset, if any.
func (m *Manager) Active() (preset.Preset, bool, error) {
	if err := m.lock(); err != nil {
		return preset.Preset{}, false, err
	}
	defer m.mu.Unlock()

	p, ok := m.store.Active()
	return p, ok, nil
}

// Create creates a preset. The hotkey may be empty.
func (m *Manager) Create(name string, cfg curve.Config, hotkey string) (string, error) {
	if err := m.lock(); err != nil {
		return "", err
	}
	defer m.mu.Unlock()

	return m.store.Create(name, cfg, hotkey)
}

// Update updates a preset.
func (m *Manager) Update(id string, u preset.Update) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	return m.store.Update(id, u)
}

// Rename renames a preset.
func (m *Manager) Rename(id, name string) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	return m.store.Rename(id, name)
}

// Delete deletes a preset.
func (m *Manager) Delete(id string) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	return m.store.Delete(id)
}

// SetActive marks a preset as active without applying it.
func (m *Manager) SetActive(id string) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	return m.store.SetActive(id)
}

// Export exports the catalog.
func (m *Manager) Export() ([]byte, error) {
	if err := m.lock(); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	return m.store.Export()
}

// Import replaces the catalog.
func (m *Manager) Import(b []byte) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	return m.store.Import(b)
}

// ResetToDefaults replaces the catalog with the default presets.
func (m *Manager) ResetToDefaults() error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	return m.store.ResetToDefaults()
}
