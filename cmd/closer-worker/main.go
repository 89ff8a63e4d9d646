package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrimandi/agrimandi-backend/internal/closer"
	"github.com/agrimandi/agrimandi-backend/internal/notifications"
	"github.com/agrimandi/agrimandi-backend/pkg/config"
	"github.com/agrimandi/agrimandi-backend/pkg/db"
	"github.com/agrimandi/agrimandi-backend/pkg/instance"
	"github.com/agrimandi/agrimandi-backend/pkg/logger"
	"github.com/agrimandi/agrimandi-backend/pkg/metrics"
	"github.com/agrimandi/agrimandi-backend/pkg/migrate"
	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
)

const jobName = "auction_close_sweep"

func main() {
	logg := logger.New(logger.Options{ServiceName: "closer-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "closer-worker"

	logg = logger.New(logger.Options{
		ServiceName: "closer-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	publisher, err := notifications.NewPublisher(outboxService, notifications.NewWriter(logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification publisher", err)
		os.Exit(1)
	}

	service, err := closer.NewService(
		closer.NewRepository(dbClient.DB()),
		dbClient,
		publisher,
		logg,
		cfg.Marketplace.BidGracePeriod,
		cfg.Closer.BatchSize,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create closer service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting closer worker")

	metricsServer := &http.Server{Addr: ":" + cfg.App.Port, Handler: metricsHandler(registry)}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer metricsServer.Close()

	if err := run(ctx, logg, service, jobMetrics, cfg.Closer.SweepInterval); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "closer worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "closer worker shutting down gracefully")
}

func run(ctx context.Context, logg *logger.Logger, service closer.Service, jobs *metrics.JobMetrics, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweep(ctx, logg, service, jobs)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, logg *logger.Logger, service closer.Service, jobs *metrics.JobMetrics) {
	start := time.Now()
	result, err := service.SweepOnce(ctx)
	jobs.ObserveDuration(jobName, time.Since(start))
	if err != nil {
		jobs.IncFailure(jobName)
		logg.Error(ctx, "auction close sweep failed", err)
		return
	}
	jobs.IncSuccess(jobName)

	fields := map[string]any{
		"scanned": result.Scanned,
		"closed":  result.Closed,
		"paid":    result.Paid,
		"unpaid":  result.Unpaid,
	}
	logg.Info(logg.WithFields(ctx, fields), "auction close sweep finished")
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}
