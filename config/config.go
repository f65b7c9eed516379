// Package config loads the daemon configuration from flags, environment
// variables (SCREENFILTER_*), and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variables, which are named after the
// config keys (e.g., SCREENFILTER_SOLAR_LATITUDE for solar.latitude).
const EnvPrefix = "SCREENFILTER"

type Config struct {
	Presets  string `mapstructure:"presets" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Watch    bool   `mapstructure:"watch"`

	Display struct {
		X11     string   `mapstructure:"x11"`                              // empty for $DISPLAY
		Sysfs   string   `mapstructure:"sysfs"`                            // empty to disable
		Outputs []string `mapstructure:"outputs" validate:"dive,required"` // empty for all
		Hotplug bool     `mapstructure:"hotplug"`
	} `mapstructure:"display"`

	Hotkeys struct {
		Enabled bool   `mapstructure:"enabled"`
		Command string `mapstructure:"command"` // empty for any
	} `mapstructure:"hotkeys"`

	Notify struct {
		Enabled bool          `mapstructure:"enabled"`
		Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	} `mapstructure:"notify"`

	Solar struct {
		Enabled        bool          `mapstructure:"enabled"`
		Latitude       float64       `mapstructure:"latitude" validate:"gte=-90,lte=90"`
		Longitude      float64       `mapstructure:"longitude" validate:"gte=-180,lte=180"`
		ElevationDay   float64       `mapstructure:"elevation_day" validate:"gte=-90,lte=90,gtefield=ElevationNight"`
		ElevationNight float64       `mapstructure:"elevation_night" validate:"gte=-90,lte=90"`
		Interval       time.Duration `mapstructure:"interval" validate:"gt=0"`
	} `mapstructure:"solar"`
}

// flags maps config keys to flag names.
var flags = map[string]string{
	"presets":         "presets",
	"log_level":       "log-level",
	"watch":           "watch",
	"display.x11":     "display",
	"display.outputs": "outputs",
	"display.hotplug": "hotplug",
	"hotkeys.enabled": "hotkeys",
	"notify.enabled":  "notify",
	"solar.enabled":   "solar",
}

// Flags adds the config flags to fs, plus --config for the config file.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, toml, or json)")
	fs.String("presets", "", "preset file (default: $XDG_CONFIG_HOME/screenfilter/presets.json)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Bool("watch", true, "reload the preset file when it changes")
	fs.String("display", "", "X11 display (default: $DISPLAY)")
	fs.StringSlice("outputs", nil, "only apply presets to these outputs (default: all)")
	fs.Bool("hotplug", true, "re-apply the active preset when displays change")
	fs.Bool("hotkeys", true, "apply presets on i3 key bindings")
	fs.Bool("notify", true, "show a notification when a hotkey applies a preset")
	fs.Bool("solar", false, "switch between the daytime and nighttime presets with the sun")
}

func setDefaults(v *viper.Viper) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return fmt.Errorf("find config dir: %w", err)
	}
	v.SetDefault("presets", filepath.Join(dir, "screenfilter", "presets.json"))
	v.SetDefault("log_level", "info")
	v.SetDefault("watch", true)
	v.SetDefault("display.x11", "")
	v.SetDefault("display.sysfs", "/sys/class/drm")
	v.SetDefault("display.outputs", []string{})
	v.SetDefault("display.hotplug", true)
	v.SetDefault("hotkeys.enabled", true)
	v.SetDefault("hotkeys.command", "")
	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.timeout", 3*time.Second)
	v.SetDefault("solar.enabled", false)
	v.SetDefault("solar.latitude", 0.0)
	v.SetDefault("solar.longitude", 0.0)
	v.SetDefault("solar.elevation_day", 3.0)
	v.SetDefault("solar.elevation_night", -6.0)
	v.SetDefault("solar.interval", time.Minute)
	return nil
}

// Load loads the config. Flags take precedence over environment variables,
// which take precedence over the config file. If fs is nil, only the
// environment and defaults are used.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v); err != nil {
		return nil, err
	}

	if fs != nil {
		for key, name := range flags {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %q: %w", name, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Level parses the log level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// IsValidation checks whether err is a config validation error.
func IsValidation(err error) bool {
	var verr validator.ValidationErrors
	return errors.As(err, &verr)
}
