package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pgaskin/screenfilter/config"
	"github.com/pgaskin/screenfilter/curve"
	"github.com/pgaskin/screenfilter/preset"
)

func list(cfg *config.Config, logger *slog.Logger, _ []string) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	active, _ := store.Active()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tHOTKEY\tBRIGHTNESS\tGAMMA\tCONTRAST\tRGB")
	for _, p := range store.List() {
		mark := ""
		if p.ID == active.ID {
			mark = "*"
		}
		c := p.Config
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s/%s/%s\n", mark, p.ID, p.Name, p.Hotkey,
			humanize.Ftoa(c.Brightness), humanize.Ftoa(c.Gamma), humanize.Ftoa(c.Contrast),
			humanize.Ftoa(c.RedScale), humanize.Ftoa(c.GreenScale), humanize.Ftoa(c.BlueScale))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if fi, err := os.Stat(store.Path()); err == nil {
		fmt.Printf("\n%s (%s, modified %s)\n", store.Path(), humanize.Bytes(uint64(fi.Size())), humanize.Time(fi.ModTime()))
	}
	return nil
}

func activate(cfg *config.Config, logger *slog.Logger, args []string) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	return store.SetActive(args[0])
}

func create(cfg *config.Config, logger *slog.Logger, args []string) error {
	name, args := args[0], args[1:]

	var hotkey string
	if len(args) != 0 && !strings.Contains(args[0], "=") {
		hotkey, args = args[0], args[1:]
	}
	c := curve.Identity()
	if err := parseConfig(&c, args); err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	id, err := store.Create(name, c, hotkey)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func update(cfg *config.Config, logger *slog.Logger, args []string) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	p, err := store.Get(args[0])
	if err != nil {
		return err
	}

	var (
		u    preset.Update
		rest []string
	)
	for _, arg := range args[1:] {
		switch k, v, _ := strings.Cut(arg, "="); k {
		case "name":
			u.Name = &v
		case "hotkey":
			u.Hotkey = &v
		default:
			rest = append(rest, arg)
		}
	}
	if len(rest) != 0 {
		c := p.Config
		if err := parseConfig(&c, rest); err != nil {
			return err
		}
		u.Config = &c
	}
	return store.Update(p.ID, u)
}

func remove(cfg *config.Config, logger *slog.Logger, args []string) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	return store.Delete(args[0])
}

func export(cfg *config.Config, logger *slog.Logger, args []string) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	buf, err := store.Export()
	if err != nil {
		return err
	}
	buf = append(buf, '\n')
	if len(args) == 0 || args[0] == "-" {
		_, err = os.Stdout.Write(buf)
		return err
	}
	return os.WriteFile(args[0], buf, 0644)
}

func importFile(cfg *config.Config, logger *slog.Logger, args []string) error {
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	return store.Import(buf)
}

func resetDefaults(cfg *config.Config, logger *slog.Logger, _ []string) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	return store.ResetToDefaults()
}

// parseConfig sets config fields from key=value args.
func parseConfig(c *curve.Config, args []string) error {
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("%w: expected key=value, got %q", errUsage, arg)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errUsage, k, err)
		}
		switch k {
		case "brightness":
			c.Brightness = f
		case "gamma":
			c.Gamma = f
		case "contrast":
			c.Contrast = f
		case "red_scale", "red":
			c.RedScale = f
		case "green_scale", "green":
			c.GreenScale = f
		case "blue_scale", "blue":
			c.BlueScale = f
		default:
			return fmt.Errorf("%w: unknown config key %q", errUsage, k)
		}
	}
	return c.Validate()
}
