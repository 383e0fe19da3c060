package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/kiosk/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.AutoplayPeriodMS, convey.ShouldEqual, 7000)
				convey.So(cfg.IdleTimeoutMS, convey.ShouldEqual, 14000)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("KIOSK_ADDR", ":9090")
			_ = os.Setenv("KIOSK_AUTOPLAY_PERIOD_MS", "5000")
			_ = os.Setenv("KIOSK_IDLE_TIMEOUT_MS", "20000")
			_ = os.Setenv("KIOSK_CATALOG_SOURCE", "s3://museum/events.json")
			_ = os.Setenv("KIOSK_INBOX_SIZE", "64")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.AutoplayPeriodMS, convey.ShouldEqual, 5000)
				convey.So(cfg.IdleTimeoutMS, convey.ShouldEqual, 20000)
				convey.So(cfg.CatalogSource, convey.ShouldEqual, "s3://museum/events.json")
				convey.So(cfg.InboxSize, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When the log settings are written in upper case", func() {
			_ = os.Setenv("KIOSK_LOG_FORMAT", " JSON")
			_ = os.Setenv("KIOSK_LOG_LEVEL", "DEBUG")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then they are accepted and normalised", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# lobby screen
addr: ":7070"
autoplay_period_ms: 9000
idle_timeout_ms: 30000
display_dir: "/srv/display"
sports:
  curling:
    color: "#ffffff"
    icon: stone
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("KIOSK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.AutoplayPeriodMS, convey.ShouldEqual, 9000)
				convey.So(cfg.IdleTimeoutMS, convey.ShouldEqual, 30000)
				convey.So(cfg.DisplayDir, convey.ShouldEqual, "/srv/display")
				convey.So(cfg.Sports["curling"].Icon, convey.ShouldEqual, "stone")
				convey.So(cfg.Visuals().Resolve("Curling").Color, convey.ShouldEqual, "#ffffff")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":7070"
autoplay_period_ms: 9000
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("KIOSK_CONFIG", tmpFile)
			_ = os.Setenv("KIOSK_ADDR", ":6060")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.AutoplayPeriodMS, convey.ShouldEqual, 9000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("KIOSK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("KIOSK_CONFIG", "/non/existent/kiosk.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the idle timeout is not positive", func() {
			_ = os.Setenv("KIOSK_IDLE_TIMEOUT_MS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "idle_timeout_ms")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an empty addr in YAML", func() {
			tmpFile := createTempConfigFile(`addr: ""`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("KIOSK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return validation error for empty addr", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"KIOSK_CONFIG",
		"KIOSK_ADDR",
		"KIOSK_AUTOPLAY_PERIOD_MS",
		"KIOSK_IDLE_TIMEOUT_MS",
		"KIOSK_CATALOG_SOURCE",
		"KIOSK_INBOX_SIZE",
		"KIOSK_LOG_FORMAT",
		"KIOSK_LOG_LEVEL",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "kiosk-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
