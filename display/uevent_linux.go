package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"
)

// Watch implements [Watcher].
func (u Uevents) Watch(ctx context.Context, fn func()) error {
	logger := u.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s, err := nl.Subscribe(unix.NETLINK_KOBJECT_UEVENT, 1) // kernel group
	if err != nil {
		return fmt.Errorf("subscribe to uevents: %w", err)
	}
	defer s.Close()

	// uevents aren't netlink messages, so read them directly, waking up
	// periodically to check ctx
	fd := s.GetFd()
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &unix.Timeval{Sec: 1}); err != nil {
		return fmt.Errorf("set uevent socket timeout: %w", err)
	}

	buf := make([]byte, 8192)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, from, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("receive uevent: %w", err)
		}
		if sa, ok := from.(*unix.SockaddrNetlink); !ok || sa.Pid != 0 {
			continue // not from the kernel
		}
		env, ok := parseUevent(buf[:n])
		if !ok || !isHotplug(env) {
			continue
		}
		logger.Debug("uevent: drm hotplug", "action", env["ACTION"], "devpath", env["DEVPATH"])
		fn()
	}
}
