// Package hotkey delivers hotkey presses from the window manager.
//
// Hotkeys are only delivered for keys the window manager binds itself, for
// example with the following in the i3 config:
//
//	bindsym F2 nop screenfilter
//	bindsym F3 nop screenfilter
//	bindsym F4 nop screenfilter
package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.i3wm.org/i3/v4"
)

// I3 receives hotkeys from i3 binding events.
type I3 struct {
	// Command, if not empty, only delivers bindings running this command.
	Command string

	// Logger, if not nil, is used for debug logs from this package.
	Logger *slog.Logger
}

// Run calls fn with the hotkey for each key binding event until ctx is
// cancelled or the connection to i3 fails.
func (h I3) Run(ctx context.Context, fn func(hotkey string)) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	recv := i3.Subscribe(i3.BindingEventType)
	defer recv.Close()

	stop := context.AfterFunc(ctx, func() {
		recv.Close()
	})
	defer stop()

	for recv.Next() {
		ev, ok := recv.Event().(*i3.BindingEvent)
		if !ok || ev.Change != "run" {
			continue
		}
		if h.Command != "" && strings.TrimSpace(ev.Binding.Command) != h.Command {
			continue
		}
		if ev.Binding.InputType != "" && ev.Binding.InputType != "keyboard" {
			continue
		}
		key := Key(ev.Binding)
		logger.Debug("hotkey: binding event", "hotkey", key, "command", ev.Binding.Command)
		fn(key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := recv.Err(); err != nil {
		return fmt.Errorf("i3 subscription: %w", err)
	}
	return fmt.Errorf("i3 subscription closed")
}

// Key formats a binding as a hotkey, joining the modifiers and symbol with
// "+" (e.g., "Mod4+shift+F2", or just "F2" without modifiers). Bindings
// without a symbol use the keycode.
func Key(b i3.Binding) string {
	sym := b.Symbol
	if sym == "" {
		sym = fmt.Sprint(b.InputCode)
	}
	parts := make([]string, 0, len(b.EventStateMask)+1)
	parts = append(parts, b.EventStateMask...)
	parts = append(parts, sym)
	return strings.Join(parts, "+")
}
