package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrisense-io/crop-advisor/internal/api"
	"github.com/agrisense-io/crop-advisor/internal/config"
	"github.com/agrisense-io/crop-advisor/internal/db"
	"github.com/agrisense-io/crop-advisor/internal/ingest"
	"github.com/agrisense-io/crop-advisor/internal/repository"
	"github.com/agrisense-io/crop-advisor/internal/scoring"
	"github.com/agrisense-io/crop-advisor/internal/weather"
)

func main() {
	// Initialize structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting crop-advisor service")

	// Load configuration
	cfg := config.Load()

	// Connect to database with retry
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool := connectWithRetry(ctx, cfg, 30)
	defer dbPool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, dbPool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Optional telemetry stream to InfluxDB
	var telemetry *ingest.Telemetry
	if cfg.Influx.URL != "" {
		telemetry = ingest.NewTelemetry(cfg.Influx)
		defer telemetry.Close()
		slog.Info("telemetry writer enabled", "bucket", cfg.Influx.Bucket)
	}

	// Optional MQTT sensor ingestion
	if cfg.MQTT.BrokerURL != "" {
		sensorRepo := repository.NewSensorRepository(dbPool)
		fieldRepo := repository.NewFieldRepository(dbPool)
		analysisRepo := repository.NewAnalysisRepository(dbPool)
		recommender := scoring.NewRecommender(
			repository.NewCropRepository(dbPool),
			repository.NewRecommendationRepository(dbPool),
		)

		ingestor := ingest.NewIngestor(cfg.MQTT, sensorRepo, fieldRepo, analysisRepo, recommender, telemetry)
		if err := ingestor.Start(ctx); err != nil {
			slog.Error("failed to start sensor ingestion", "error", err)
			os.Exit(1)
		}
	}

	// Hourly sweep of expired idempotency keys
	idemRepo := repository.NewIdempotencyRepository(dbPool)
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := idemRepo.CleanExpired(ctx)
				if err != nil {
					slog.Error("idempotency key sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("expired idempotency keys removed", "count", removed)
				}
			}
		}
	}()

	// Weather provider behind a circuit breaker, mirrored in Postgres
	weatherSvc := weather.NewService(
		weather.NewHTTPProvider(cfg.Weather),
		repository.NewWeatherRepository(dbPool),
		cfg.Weather,
	)

	// Initialize router with all dependencies
	router := api.NewRouter(dbPool, cfg, weatherSvc, telemetry)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server listening",
			"port", cfg.Server.Port,
			"service", "crop-advisor",
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	<-ctx.Done()

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server exited")
}

func connectWithRetry(ctx context.Context, cfg *config.Config, maxRetries int) *db.Pool {
	for i := 0; i < maxRetries; i++ {
		pool, err := db.Connect(ctx, cfg.Database)
		if err == nil {
			return pool
		}
		slog.Warn("database not ready, retrying...",
			"attempt", i+1,
			"max_retries", maxRetries,
			"error", err,
		)
		time.Sleep(2 * time.Second)
	}
	slog.Error("failed to connect to database after retries")
	os.Exit(1)
	return nil
}
