package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediaref/clipscan/internal/cache"
	"github.com/mediaref/clipscan/internal/config"
	"github.com/mediaref/clipscan/internal/database"
	"github.com/mediaref/clipscan/internal/logging"
	"github.com/mediaref/clipscan/internal/metrics"
	"github.com/mediaref/clipscan/internal/queue"
	"github.com/mediaref/clipscan/internal/scan"
	"github.com/mediaref/clipscan/internal/storage"
	"github.com/mediaref/clipscan/internal/tracing"
	"github.com/mediaref/clipscan/internal/webhook"
	"github.com/mediaref/clipscan/pkg/models"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewDefaultLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize distributed tracing
	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName+"-worker", cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize tracer, continuing without tracing")
		} else {
			defer closer.Close()
		}
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize cache
	cacheClient, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cacheClient.Close()

	// Initialize artifact storage
	stor, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	artifacts := storage.NewArtifactStore(stor, 0)

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	if err := q.SetupDeadLetterQueue(); err != nil {
		logger.WithError(err).Warn("Failed to set up dead letter queue")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Webhook deliveries for scan lifecycle events
	webhookService := webhook.NewService(repo)
	go webhookService.RetryWorker(ctx)

	// Expose Prometheus metrics
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.WithError(err).Warn("Metrics server stopped")
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	// Initialize scan service
	scanService := scan.NewService(
		cfg.Pipeline,
		cfg.Vision,
		cfg.Fetcher,
		repo,
		cacheClient,
		artifacts,
		webhookService,
		q,
		logger,
	)

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	// Scan handler
	scanHandler := func(job *models.ScanJob) error {
		scanLog := logger.WithScanID(job.ScanID)
		scanLog.Infof("Processing scan for %s", job.SourceURL)

		if err := scanService.ProcessScan(ctx, job); err != nil {
			scanLog.WithError(err).Error("Failed to process scan")
			return err
		}

		scanLog.Info("Successfully processed scan")
		return nil
	}

	// Start consuming scans
	logger.Infof("Worker %s started, waiting for scans...", scanService.WorkerID())
	if err := q.ConsumeScans(ctx, scanHandler); err != nil {
		log.Fatalf("Failed to consume scans: %v", err)
	}

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("Worker stopped")
}
