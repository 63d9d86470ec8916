package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/app"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/history"
	"github.com/i474232898/weather-lookup/internal/location"
	"github.com/i474232898/weather-lookup/internal/logging"
	"github.com/i474232898/weather-lookup/internal/metrics"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Default().Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting weather-lookup", "version", version, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("weather_lookup", prometheus.DefaultRegisterer)

	// History persistence. The application is unusable without it.
	repo, closeRepo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			log.Error("error closing history storage", "error", err)
		}
	}()
	log.Info("history storage ready", "path", cfg.Database.Path)

	historyStore := history.NewStore(repo, history.Policy{
		DedupWindow: cfg.History.DedupWindow,
		Retention:   cfg.History.Retention,
	}, log, history.WithMetrics(collector))
	policy := historyStore.Policy()
	log.Info("history policy", "dedup_window", policy.DedupWindow, "retention", policy.Retention)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.OpenWeather.HTTPTimeout,
	}
	client := providers.NewOpenWeatherClient(httpClient, cfg.OpenWeather.BaseURL, cfg.OpenWeather.APIKey)

	service := weather.NewService(client, historyStore, log, collector)

	// Session controller owning the screen state.
	ctrl := app.New(service, location.FromConfig(cfg.Location), log)
	ctrlDone := make(chan struct{})
	go func() {
		defer close(ctrlDone)
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("session controller stopped", "error", err)
		}
	}()
	if _, err := ctrl.Locate(ctx); err != nil {
		log.Warn("initial location request failed", "error", err)
	}

	// Background retention sweep.
	sched := scheduler.New(historyStore, cfg.History.SweepInterval, log)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	fa := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	fa.Use(requestid.New())
	fa.Use(logger.New())
	fa.Use(recover.New())

	httpapi.RegisterRoutes(fa, httpapi.Deps{
		Weather: service,
		History: historyStore,
		Session: ctrl,
		Health:  repo,
		Sweeper: sched,
		Metrics: promhttp.Handler(),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- fa.Listen(":" + cfg.Port)
	}()

	// Wait for termination signal
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("fiber server stopped", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fa.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	<-ctrlDone

	log.Info("shutdown complete")
	return nil
}

// repository is a history backend that can report its health.
type repository interface {
	history.Repository
	httpapi.HealthChecker
}

// openRepository opens the SQLite database at cfg.Path, or an in-memory
// store when the path is ":memory:".
func openRepository(ctx context.Context, cfg config.DatabaseConfig) (repository, func() error, error) {
	if cfg.Path == store.MemoryPath {
		return store.NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := store.OpenSQLite(ctx, store.SQLiteConfig{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}
