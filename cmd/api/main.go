package main

import (
	"context"
	"encoding/hex"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"precheck/internal/config"
	"precheck/internal/crypto"
	"precheck/internal/database"
	"precheck/internal/database/migration"
	handlers "precheck/internal/http/handler"
	"precheck/internal/http/middleware"
	"precheck/internal/logging"
	"precheck/internal/metrics"
	"precheck/internal/otel"
	"precheck/internal/repository/postgres"
	"precheck/internal/retry"
	"precheck/internal/service"
	"precheck/internal/storage"
	"precheck/internal/verifier"
	"precheck/internal/worker"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger := logging.New(os.Stdout, slog.LevelInfo)
	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// PostgreSQL connection (pooled via database/sql, traced via otelsql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics, err := metrics.New(registry)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	// Object storage behind the circuit breaker
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}
	breaker := storage.NewBreaker(storage.BreakerSettings{
		Window:       cfg.Breaker.Window,
		MinSamples:   cfg.Breaker.MinSamples,
		FailureRate:  cfg.Breaker.FailureRate,
		ResetTimeout: cfg.Breaker.ResetTimeout,
	})
	resilientStore := storage.NewResilient(objStore, breaker, cfg.Breaker.CallTimeout, logger, pipelineMetrics)

	// Envelope encryption keyring, seeded from the configured master key
	var seed []byte
	if cfg.Crypto.MasterKeyHex != "" {
		seed, err = hex.DecodeString(cfg.Crypto.MasterKeyHex)
		if err != nil {
			log.Fatalf("invalid CRYPTO_MASTER_KEY: %v", err)
		}
	}
	keyring, err := crypto.NewKeyring(seed)
	if err != nil {
		log.Fatalf("failed to initialize keyring: %v", err)
	}
	engine := crypto.NewEngine(keyring)

	// External verification client; the stub keeps dev setups self-contained
	var verifierClient verifier.Client
	if cfg.Verifier.URL != "" {
		verifierClient, err = verifier.NewHTTPClient(cfg.Verifier)
		if err != nil {
			log.Fatalf("failed to initialize verifier client: %v", err)
		}
	} else {
		logger.Warn(ctx, "VERIFIER_URL not set, using stub verifier")
		verifierClient = verifier.StubClient{}
	}

	docRepo := postgres.NewDocumentPostgres(db)
	docSvc := service.NewDocumentService(
		resilientStore,
		docRepo,
		engine,
		verifierClient,
		retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			Factor:      cfg.Retry.Factor,
			MaxDelay:    cfg.Retry.MaxDelay,
		},
		service.Config{
			MaxSizeBytes:        cfg.Pipeline.MaxSizeBytes,
			ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
			ValidityWindow:      cfg.Pipeline.ValidityWindow,
			OverallTimeout:      cfg.Pipeline.OverallTimeout,
		},
		logger,
		pipelineMetrics,
	)

	// Background poller that drives pending documents through verification
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	verifyWorker := worker.New(docSvc, docRepo, cfg.Worker.PollInterval, cfg.Worker.BatchSize, logger)
	go verifyWorker.Run(workerCtx)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())

	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to initialize http metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, db, registry)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")
	stopWorker()
	if err := app.Shutdown(); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
}
