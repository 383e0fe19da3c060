package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/okian/kiosk/internal/adapters/http/api"
	service "github.com/okian/kiosk/internal/app"
	"github.com/okian/kiosk/internal/config"
	"github.com/okian/kiosk/internal/domain/catalog"
	"github.com/okian/kiosk/pkg/logger"
	"github.com/okian/kiosk/pkg/metrics"
)

func main() {
	// Keep the default registry quiet; everything is served from ours.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("kiosk: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	lg := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		lg.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	src, err := catalog.NewSource(cfg.CatalogSource, catalog.WithS3Region(cfg.S3Region))
	if err != nil {
		return fmt.Errorf("catalog source: %w", err)
	}

	coord := service.New(
		service.WithLogger(lg),
		service.WithAutoplayPeriod(cfg.AutoplayPeriod()),
		service.WithIdleTimeout(cfg.IdleTimeout()),
		service.WithInboxSize(cfg.InboxSize),
	)
	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}
	defer coord.Stop()

	srv := api.NewServer(cfg.Addr, coord,
		api.WithLogger(lg),
		api.WithVisuals(cfg.Visuals()),
		api.WithDisplayDir(cfg.DisplayDir),
		api.WithShutdownTimeout(cfg.ShutdownTimeout()),
	)

	g, gctx := errgroup.WithContext(ctx)

	// The display is served while the catalog loads; it shows the loading
	// state until then.
	g.Go(func() error {
		loadCatalog(gctx, coord, catalog.NewLoader(src,
			catalog.WithTimeout(cfg.CatalogTimeout()),
			catalog.WithLogger(lg.Named("catalog")),
		), lg)
		return nil
	})

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		runtimeMetrics(gctx, coord)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		lg.Info(context.Background(), "shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			lg.Error(context.Background(), "server shutdown failed", logger.Error(err))
			return err
		}
		lg.Info(context.Background(), "server stopped")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadCatalog runs the one-shot load and hands the outcome to the
// coordinator. A failed load leaves the kiosk up with nothing to show.
func loadCatalog(ctx context.Context, coord *service.Coordinator, loader *catalog.Loader, lg logger.Logger) {
	cat, err := loader.Load(ctx)
	if err != nil {
		if ferr := coord.Fail(ctx, err); ferr != nil {
			lg.Error(ctx, "record catalog failure", logger.Error(ferr))
		}
		return
	}
	if err := coord.Load(ctx, cat); err != nil {
		lg.Error(ctx, "install catalog", logger.Error(err))
	}
}

// runtimeMetrics keeps the inbox gauge fresh between commits.
func runtimeMetrics(ctx context.Context, coord *service.Coordinator) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := coord.GetStats()
			size, _ := stats["inbox_length"].(int)
			capacity, _ := stats["inbox_capacity"].(int)
			metrics.UpdateInbox(size, capacity)
		}
	}
}
