//go:build unix

package gamma

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// RestoreOnSignal closes ctl (restoring every modified device) when one of the
// specified signals (SIGINT, SIGTERM, and SIGHUP if none are specified) is
// received, then re-raises the signal with the default handler so the process
// terminates as it normally would. The returned function stops listening.
//
// This is a fallback for when the process is killed before it can close the
// controller itself; it doesn't help with SIGKILL.
func RestoreOnSignal(ctl *Controller, logger *slog.Logger, sigs ...os.Signal) (stop func()) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(sigs) == 0 {
		sigs = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP}
	}
	var (
		ch   = make(chan os.Signal, 1)
		done = make(chan struct{})
	)
	signal.Notify(ch, sigs...)
	go func() {
		select {
		case sig := <-ch:
			logger.Info("gamma: got signal, restoring gamma ramps", "signal", sig)
			ctl.Close()
			signal.Reset(sig)
			if s, ok := sig.(syscall.Signal); ok {
				if err := unix.Kill(unix.Getpid(), s); err != nil {
					logger.Error("gamma: failed to re-raise signal", "signal", sig, "error", err)
					os.Exit(128 + int(s))
				}
			} else {
				os.Exit(1)
			}
		case <-done:
		}
	}()
	return sync.OnceFunc(func() {
		signal.Stop(ch)
		close(done)
	})
}
