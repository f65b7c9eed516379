package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/pgaskin/screenfilter/config"
	"github.com/pgaskin/screenfilter/display"
	"github.com/pgaskin/screenfilter/filter"
	"github.com/pgaskin/screenfilter/gamma"
	"github.com/pgaskin/screenfilter/hotkey"
	"github.com/pgaskin/screenfilter/notify"
	"github.com/pgaskin/screenfilter/preset"
	"github.com/pgaskin/screenfilter/schedule"
	"github.com/spf13/afero"
)

func openStore(cfg *config.Config, logger *slog.Logger) (*preset.Store, error) {
	return preset.Open(afero.NewOsFs(), cfg.Presets, logger)
}

// session is a connected manager.
type session struct {
	mgr      *filter.Manager
	store    *preset.Store
	watchers []display.Watcher // report display changes
	close    func()            // closes the manager (restoring the displays) and the display
}

// openManager connects to the display and creates a manager.
func openManager(cfg *config.Config, logger *slog.Logger, opt filter.Options) (*session, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	x11, err := display.NewX11(cfg.Display.X11, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to display: %w", err)
	}
	enums := []display.Enumerator{x11}
	watchers := []display.Watcher{x11}
	if cfg.Display.Sysfs != "" {
		enums = append(enums, display.Sysfs{Root: cfg.Display.Sysfs})
		watchers = append(watchers, display.Uevents{Logger: logger})
	}
	dir := display.Scan(logger, enums...)
	for _, dev := range dir.Devices() {
		logger.Info("screenfilter: found display", "id", dev.ID, "label", dev.Label, "primary", dev.Primary)
	}

	ctl := gamma.New(x11, logger)
	stop := gamma.RestoreOnSignal(ctl, logger, syscall.SIGHUP, syscall.SIGQUIT)

	opt.Enumerators = enums
	opt.Logger = logger
	for _, output := range cfg.Display.Outputs {
		if _, ok := dir.Lookup(display.DeviceID(output)); !ok {
			logger.Warn("screenfilter: configured output not found", "output", output)
		}
		opt.Outputs = append(opt.Outputs, display.DeviceID(output))
	}
	mgr := filter.New(store, ctl, dir, opt)

	return &session{
		mgr:      mgr,
		store:    store,
		watchers: watchers,
		close: func() {
			mgr.Close()
			stop()
			x11.Close()
		},
	}, nil
}

func daemon(cfg *config.Config, logger *slog.Logger, _ []string) error {
	var opt filter.Options
	if cfg.Notify.Enabled {
		if n, err := notify.NewDBus(cfg.Notify.Timeout, logger); err != nil {
			logger.Warn("screenfilter: notifications unavailable", "error", err)
		} else {
			defer n.Close()
			opt.Notifier = n
		}
	}

	sess, err := openManager(cfg, logger, opt)
	if err != nil {
		return err
	}
	defer sess.close()
	mgr, store := sess.mgr, sess.store

	if err := mgr.Sync(); err != nil {
		logger.Warn("screenfilter: failed to apply active preset", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	if cfg.Watch {
		wg.Go(func() {
			if err := store.Watch(ctx, func() {
				if err := mgr.Sync(); err != nil {
					logger.Warn("screenfilter: failed to apply reloaded preset", "error", err)
				}
			}); err != nil && ctx.Err() == nil {
				logger.Warn("screenfilter: not watching preset file", "error", err)
			}
		})
	}

	if cfg.Display.Hotplug {
		for _, w := range sess.watchers {
			wg.Go(func() {
				if err := w.Watch(ctx, func() {
					dir, err := mgr.Refresh()
					if err != nil {
						logger.Warn("screenfilter: failed to refresh displays", "error", err)
						return
					}
					logger.Info("screenfilter: displays changed", "devices", dir.IDs())
					if err := mgr.Sync(); err != nil {
						logger.Warn("screenfilter: failed to apply active preset to changed displays", "error", err)
					}
				}); err != nil && ctx.Err() == nil {
					logger.Warn("screenfilter: not watching for display changes", "watcher", fmt.Sprintf("%T", w), "error", err)
				}
			})
		}
	}

	if cfg.Hotkeys.Enabled {
		wg.Go(func() {
			err := hotkey.I3{
				Command: cfg.Hotkeys.Command,
				Logger:  logger,
			}.Run(ctx, func(key string) {
				if ok, err := mgr.HandleHotkey(key); err != nil {
					logger.Warn("screenfilter: failed to apply hotkey preset", "hotkey", key, "error", err)
				} else if !ok {
					logger.Debug("screenfilter: no preset for hotkey", "hotkey", key)
				}
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("screenfilter: hotkeys unavailable", "error", err)
			}
		})
	}

	if cfg.Solar.Enabled {
		wg.Go(func() {
			schedule.Solar{
				Latitude:       cfg.Solar.Latitude,
				Longitude:      cfg.Solar.Longitude,
				ElevationDay:   cfg.Solar.ElevationDay,
				ElevationNight: cfg.Solar.ElevationNight,
			}.Run(ctx, mgr, cfg.Solar.Interval, logger)
		})
	}

	logger.Info("screenfilter: running", "presets", store.Path(), "pid", strconv.Itoa(os.Getpid()))
	<-ctx.Done()
	logger.Info("screenfilter: exiting, restoring displays")
	return nil
}

func preview(cfg *config.Config, logger *slog.Logger, args []string) error {
	duration := 10 * time.Second
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: invalid duration %q", errUsage, args[1])
		}
		duration = d
	}

	sess, err := openManager(cfg, logger, filter.Options{})
	if err != nil {
		return err
	}
	defer sess.close()

	p, err := sess.mgr.Get(args[0])
	if err != nil {
		return err
	}
	targets, err := sess.mgr.Targets()
	if err != nil {
		return err
	}
	if err := sess.mgr.ApplyLive(p.Config, targets); err != nil {
		return err
	}
	fmt.Printf("previewing %q on %d display(s) for %s\n", p.Name, len(targets), duration)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}
	return nil
}

func devices(cfg *config.Config, logger *slog.Logger, _ []string) error {
	var enums []display.Enumerator
	if x11, err := display.NewX11(cfg.Display.X11, logger); err != nil {
		logger.Warn("screenfilter: failed to connect to display", "error", err)
	} else {
		defer x11.Close()
		enums = append(enums, x11)
	}
	if cfg.Display.Sysfs != "" {
		enums = append(enums, display.Sysfs{Root: cfg.Display.Sysfs})
	}
	for _, dev := range display.Scan(logger, enums...).Devices() {
		primary := ""
		if dev.Primary {
			primary = " (primary)"
		}
		fmt.Printf("%-16s %s%s\n", dev.ID, dev.Label, primary)
	}
	return nil
}
