package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carebridge-health/carebridge-ai-platform/internal/api/router"
	appconfig "github.com/carebridge-health/carebridge-ai-platform/internal/config"
	"github.com/carebridge-health/carebridge-ai-platform/internal/facilities"
	"github.com/carebridge-health/carebridge-ai-platform/internal/generation"
	"github.com/carebridge-health/carebridge-ai-platform/internal/interactions"
	"github.com/carebridge-health/carebridge-ai-platform/internal/observability/metrics"
	"github.com/carebridge-health/carebridge-ai-platform/internal/patients"
	"github.com/carebridge-health/carebridge-ai-platform/internal/pipeline"
	"github.com/carebridge-health/carebridge-ai-platform/internal/safety"
	"github.com/carebridge-health/carebridge-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting carebridge-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	backend, closeBackend, err := buildBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize generation backend", "error", err.Error())
		os.Exit(1)
	}
	defer closeBackend()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	genMetrics := metrics.NewGenerationMetrics(registry)

	genClient := generation.NewClient(backend, cfg.GeminiModelID, genMetrics, logger.Logger).
		WithLimits(cfg.GenerationTimeout, int32(cfg.GenerationMaxToken))

	directory := facilities.NewDirectory(cfg.FacilityDirectoryURL, cfg.FacilityDirectoryTimeout, genMetrics, logger.Named("facilities"))

	pl := pipeline.New(
		genClient,
		interactions.NewEngine(),
		directory,
		safety.Default(),
		nil, // speech synthesis not wired in this deployment
		logger.Named("pipeline"),
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err.Error())
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping database", "error", err.Error())
		os.Exit(1)
	}
	store := patients.NewStore(db)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, caching disabled", "error", err.Error())
			redisClient = nil
		}
	}
	cache := patients.NewCache(redisClient)

	handler := patients.NewHandler(pl, store, cache, directory, cfg.FacilitySearchRadiusKm, cfg.CoachVoice, logger.Named("patients"))

	r := router.New(&router.Config{
		Logger:             logger,
		PatientsHandler:    handler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err.Error())
	}
	logger.Info("server stopped")
}

// buildBackend wires the Gemini backend and, when Bedrock is configured,
// wraps both in a fallback pair.
func buildBackend(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (generation.Backend, func(), error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil, generation.ErrBackendUnavailable
	}

	gemini, err := generation.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = gemini.Close() }

	if cfg.BedrockModelID == "" || cfg.AWSRegion == "" {
		return gemini, closeFn, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Warn("AWS config unavailable, running without Bedrock fallback", "error", err.Error())
		return gemini, closeFn, nil
	}
	bedrock, err := generation.NewBedrockBackend(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	if err != nil {
		logger.Warn("Bedrock unavailable, running without fallback", "error", err.Error())
		return gemini, closeFn, nil
	}

	logger.Info("generation fallback enabled", "primary", cfg.GeminiModelID, "secondary", cfg.BedrockModelID)
	return generation.NewFallbackBackend(gemini, bedrock, logger.Logger), closeFn, nil
}
