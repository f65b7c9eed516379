//go:build !unix

package gamma

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
)

// RestoreOnSignal closes ctl (restoring every modified device) when one of the
// specified signals (os.Interrupt if none are specified) is received, then
// exits. The returned function stops listening.
func RestoreOnSignal(ctl *Controller, logger *slog.Logger, sigs ...os.Signal) (stop func()) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt}
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
			os.Exit(1)
		case <-done:
		}
	}()
	return sync.OnceFunc(func() {
		signal.Stop(ch)
		close(done)
	})
}
