// Command screenfilter applies color filter presets to the displays.
//
//	screenfilter [flags] [daemon]
//	screenfilter [flags] list
//	screenfilter [flags] devices
//	screenfilter [flags] preview PRESET [DURATION]
//	screenfilter [flags] activate PRESET
//	screenfilter [flags] create NAME [HOTKEY] [key=value...]
//	screenfilter [flags] update PRESET [name=NAME] [hotkey=HOTKEY] [key=value...]
//	screenfilter [flags] delete PRESET
//	screenfilter [flags] export [FILE]
//	screenfilter [flags] import FILE
//	screenfilter [flags] reset-defaults
//
// The daemon applies the active preset, switches presets on i3 key bindings
// and with the sun (if enabled), and restores the displays when it exits. The
// other commands edit the preset file, which the daemon reloads.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pgaskin/screenfilter/config"
	"github.com/spf13/pflag"
)

type command struct {
	args string
	min  int
	max  int // -1 for unlimited
	run  func(cfg *config.Config, logger *slog.Logger, args []string) error
}

var commands = map[string]command{
	"daemon":         {"", 0, 0, daemon},
	"list":           {"", 0, 0, list},
	"devices":        {"", 0, 0, devices},
	"preview":        {"PRESET [DURATION]", 1, 2, preview},
	"activate":       {"PRESET", 1, 1, activate},
	"create":         {"NAME [HOTKEY] [key=value...]", 1, -1, create},
	"update":         {"PRESET [name=NAME] [hotkey=HOTKEY] [key=value...]", 1, -1, update},
	"delete":         {"PRESET", 1, 1, remove},
	"export":         {"[FILE]", 0, 1, export},
	"import":         {"FILE", 1, 1, importFile},
	"reset-defaults": {"", 0, 0, resetDefaults},
}

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	fs.SetInterspersed(false)
	config.Flags(fs)
	help := fs.BoolP("help", "h", false, "show this help text")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "screenfilter: %v\n", err)
		os.Exit(2)
	}
	if *help {
		fmt.Printf("usage: %s [flags] [command] [args...]\n\nflags:\n%s\ncommands:\n", os.Args[0], fs.FlagUsages())
		for _, name := range []string{"daemon", "list", "devices", "preview", "activate", "create", "update", "delete", "export", "import", "reset-defaults"} {
			fmt.Printf("  %s %s\n", name, commands[name].args)
		}
		fmt.Printf("\nconfig keys: brightness, gamma, contrast, red_scale, green_scale, blue_scale\n")
		os.Exit(0)
	}

	name, args := "daemon", fs.Args()
	if len(args) != 0 {
		name, args = args[0], args[1:]
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "screenfilter: unknown command %q\n", name)
		os.Exit(2)
	}
	if len(args) < cmd.min || (cmd.max >= 0 && len(args) > cmd.max) {
		fmt.Fprintf(os.Stderr, "usage: screenfilter %s %s\n", name, cmd.args)
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "screenfilter: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     cfg.Level(),
		AddSource: true,
	}))

	if err := cmd.run(cfg, logger, args); err != nil {
		fmt.Fprintf(os.Stderr, "screenfilter: %s: %v\n", name, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid arguments")
