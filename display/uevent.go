package display

import (
	"bytes"
	"log/slog"
)

// Uevents watches the kernel's DRM hotplug uevents. Unlike [X11], it also
// works without a display server, so it complements [Sysfs].
type Uevents struct {
	Logger *slog.Logger // if not nil, used for debug logs from this package
}

var _ Watcher = Uevents{}

// parseUevent parses a kernel uevent, which consists of an ACTION@DEVPATH
// header followed by KEY=VALUE pairs, each NUL-terminated.
func parseUevent(b []byte) (map[string]string, bool) {
	header, rest, ok := bytes.Cut(b, []byte{0})
	if !ok || !bytes.Contains(header, []byte("@")) {
		return nil, false // not from the kernel (e.g., libudev)
	}
	env := map[string]string{}
	for f := range bytes.SplitSeq(rest, []byte{0}) {
		if k, v, ok := bytes.Cut(f, []byte("=")); ok {
			env[string(k)] = string(v)
		}
	}
	return env, true
}

// isHotplug checks whether a uevent means a DRM connector may have changed.
func isHotplug(env map[string]string) bool {
	if env["SUBSYSTEM"] != "drm" {
		return false
	}
	switch env["ACTION"] {
	case "add", "remove":
		return true
	case "change":
		return env["HOTPLUG"] == "1"
	}
	return false
}
