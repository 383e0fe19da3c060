package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/kiosk/internal/simulator"
	"github.com/okian/kiosk/pkg/logger"
)

// defaultRunTimeout bounds a whole simulation run.
const defaultRunTimeout = 5 * time.Minute

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	lg := logger.Get()

	cfg, err := simulator.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var scenarios string
	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the kiosk")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	flag.DurationVar(&cfg.Ready, "ready", cfg.Ready, "How long to wait for the kiosk to become healthy")
	flag.DurationVar(&cfg.IdleSlack, "idle-slack", cfg.IdleSlack, "Extra time allowed for the idle return")
	flag.StringVar(&scenarios, "scenarios", strings.Join(cfg.Scenarios, ","), "Comma-separated scenarios to run")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent clients in the burst scenario")
	flag.IntVar(&cfg.Burst, "burst", cfg.Burst, "Intents sent by the burst scenario")
	flag.BoolVar(&cfg.Observe, "observe", cfg.Observe, "Count frames on the event stream")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable debug logging")
	flag.Parse()

	cfg.Scenarios = strings.Split(scenarios, ",")
	if cfg.Verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	if _, err := simulator.Run(ctx, cfg, lg); err != nil {
		lg.Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
