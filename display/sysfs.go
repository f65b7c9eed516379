package display

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Sysfs enumerates connected monitors using the kernel's DRM connectors. It
// cannot read or write gamma ramps, but it works without a display server.
type Sysfs struct {
	Root string // defaults to /sys/class/drm
}

// Enumerate implements [Enumerator]. Device IDs are connector names without
// the card prefix (e.g., DP-1), which usually matches the X11 output name.
func (s Sysfs) Enumerate() ([]Device, error) {
	root := s.Root
	if root == "" {
		root = "/sys/class/drm"
	}
	cfs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list drm nodes: %w", err)
	}
	var devices []Device
	for _, cf := range cfs {
		card, conn, ok := strings.Cut(cf.Name(), "-")
		if !ok || !strings.HasPrefix(card, "card") {
			continue // not a connector
		}
		status, err := os.ReadFile(filepath.Join(root, cf.Name(), "status"))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s status: %w", cf.Name(), err)
		}
		if string(bytes.TrimSpace(status)) != "connected" {
			continue
		}
		dev := Device{
			ID:    DeviceID(conn),
			Label: conn,
		}
		if buf, err := os.ReadFile(filepath.Join(root, cf.Name(), "edid")); err == nil {
			if e, err := ParseEDID(buf); err == nil {
				dev.Label = e.Label() + " (" + conn + ")"
			}
		}
		devices = append(devices, dev)
	}
	return devices, nil
}
