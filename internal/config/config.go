// Package config defines kiosk configuration and its layered loading.
//
// Conventions:
//   - New returns a Config holding every default.
//   - Load layers defaults, an optional YAML file and KIOSK_* env vars.
//   - Errors returned from this package wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/kiosk/internal/domain/visual"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AutoplayPeriodMS is the time between automatic advances.
	AutoplayPeriodMS int `koanf:"autoplay_period_ms"`

	// IdleTimeoutMS is the inactivity after which the display loops again.
	IdleTimeoutMS int `koanf:"idle_timeout_ms"`

	// CatalogSource locates the event collection: a path, file://, http(s)://
	// or s3://bucket/key.
	CatalogSource string `koanf:"catalog_source"`

	// CatalogTimeoutMS bounds the one-shot catalog fetch.
	CatalogTimeoutMS int `koanf:"catalog_timeout_ms"`

	// S3Region is used for s3:// catalog sources.
	S3Region string `koanf:"s3_region"`

	// InboxSize bounds the coordinator inbox.
	InboxSize int `koanf:"inbox_size"`

	// DisplayDir, when set, is served at / as the presentation bundle.
	DisplayDir string `koanf:"display_dir"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// Sports overrides or extends the built-in sport visuals.
	Sports map[string]visual.Visual `koanf:"sports"`

	// DefaultColor and DefaultIcon are used for unknown sports.
	DefaultColor string `koanf:"default_color"`
	DefaultIcon  string `koanf:"default_icon"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		AutoplayPeriodMS:  7000,
		IdleTimeoutMS:     14000,
		CatalogSource:     "file://events.json",
		CatalogTimeoutMS:  10000,
		S3Region:          "us-east-1",
		InboxSize:         256,
		ShutdownTimeoutMS: 10000,
		DefaultColor:      visual.Default.Color,
		DefaultIcon:       visual.Default.Icon,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.AutoplayPeriodMS <= 0:
		return fmt.Errorf("%w: autoplay_period_ms must be positive, got %d", ErrInvalidConfig, c.AutoplayPeriodMS)
	case c.IdleTimeoutMS <= 0:
		return fmt.Errorf("%w: idle_timeout_ms must be positive, got %d", ErrInvalidConfig, c.IdleTimeoutMS)
	case c.InboxSize <= 0:
		return fmt.Errorf("%w: inbox_size must be positive, got %d", ErrInvalidConfig, c.InboxSize)
	case strings.TrimSpace(c.CatalogSource) == "":
		return fmt.Errorf("%w: catalog_source must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// AutoplayPeriod returns AutoplayPeriodMS as a duration.
func (c *Config) AutoplayPeriod() time.Duration {
	return time.Duration(c.AutoplayPeriodMS) * time.Millisecond
}

// IdleTimeout returns IdleTimeoutMS as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMS) * time.Millisecond
}

// CatalogTimeout returns CatalogTimeoutMS as a duration.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.CatalogTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Visuals builds the sport lookup: built-ins overlaid with Sports.
func (c *Config) Visuals() *visual.Table {
	entries := visual.Builtin()
	for sport, v := range c.Sports {
		entries[sport] = v
	}
	return visual.NewTable(entries, visual.Visual{Color: c.DefaultColor, Icon: c.DefaultIcon})
}
