package display

import (
	"strings"
	"testing"
)

func uevent(fields ...string) []byte {
	return []byte(strings.Join(fields, "\x00") + "\x00")
}

func TestUevent(t *testing.T) {
	for _, tc := range []struct {
		name    string
		msg     []byte
		parsed  bool
		hotplug bool
	}{
		{
			name:    "connector change",
			msg:     uevent("change@/devices/pci0000:00/0000:00:02.0/drm/card0", "ACTION=change", "DEVPATH=/devices/pci0000:00/0000:00:02.0/drm/card0", "SUBSYSTEM=drm", "HOTPLUG=1", "DEVNAME=dri/card0", "SEQNUM=4321"),
			parsed:  true,
			hotplug: true,
		},
		{
			name:    "lease change",
			msg:     uevent("change@/devices/pci0000:00/0000:00:02.0/drm/card0", "ACTION=change", "SUBSYSTEM=drm", "LEASE=1"),
			parsed:  true,
			hotplug: false,
		},
		{
			name:    "card added",
			msg:     uevent("add@/devices/platform/evdi.0/drm/card1", "ACTION=add", "SUBSYSTEM=drm"),
			parsed:  true,
			hotplug: true,
		},
		{
			name:    "other subsystem",
			msg:     uevent("add@/devices/virtual/net/veth0", "ACTION=add", "SUBSYSTEM=net", "HOTPLUG=1"),
			parsed:  true,
			hotplug: false,
		},
		{
			name:   "libudev",
			msg:    append([]byte("libudev\x00\xfe\xed\xca\xfe"), uevent("ACTION=change", "SUBSYSTEM=drm", "HOTPLUG=1")...),
			parsed: false,
		},
		{
			name:   "empty",
			msg:    nil,
			parsed: false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env, ok := parseUevent(tc.msg)
			if ok != tc.parsed {
				t.Fatalf("expected parsed=%t, got %t", tc.parsed, ok)
			}
			if ok && isHotplug(env) != tc.hotplug {
				t.Errorf("expected hotplug=%t for %q", tc.hotplug, env)
			}
		})
	}
}
