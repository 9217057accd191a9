package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediaref/clipscan/internal/analytics"
	"github.com/mediaref/clipscan/internal/cache"
	"github.com/mediaref/clipscan/internal/config"
	"github.com/mediaref/clipscan/internal/database"
	"github.com/mediaref/clipscan/internal/logging"
	"github.com/mediaref/clipscan/internal/metrics"
	"github.com/mediaref/clipscan/internal/middleware"
	"github.com/mediaref/clipscan/internal/monitoring"
	"github.com/mediaref/clipscan/internal/queue"
	"github.com/mediaref/clipscan/internal/scheduler"
	"github.com/mediaref/clipscan/internal/webhook"
	"github.com/mediaref/clipscan/pkg/models"
)

// ScanStore is the slice of the repository the API handlers use
type ScanStore interface {
	Health(ctx context.Context) error
	CreateScan(ctx context.Context, scan *models.Scan) error
	GetScan(ctx context.Context, id string) (*models.Scan, error)
	ListScans(ctx context.Context, status string, limit, offset int) ([]*models.Scan, error)
	UpdateScanStatus(ctx context.Context, scanID, status string) error
	CancelScan(ctx context.Context, scanID string) error
	GetReportByScanID(ctx context.Context, scanID string) (*models.Report, error)
	CreateUser(ctx context.Context, user *models.User, password string) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ValidateAPIKey(ctx context.Context, apiKey string) (*models.User, error)
	CheckQuota(ctx context.Context, userID string) (bool, error)
	IncrementQuota(ctx context.Context, userID string) error
	CreateWebhook(ctx context.Context, webhook *models.Webhook) error
	GetUserWebhooks(ctx context.Context, userID string) ([]*models.Webhook, error)
}

// AnalyticsProvider serves the historical aggregates behind /analytics
type AnalyticsProvider interface {
	Overview(ctx context.Context, days int) (*models.ScanOverview, error)
	DailyCounts(ctx context.Context, days int) ([]*models.DailyScanCount, error)
	PlatformBreakdown(ctx context.Context, limit int) ([]*models.PlatformCount, error)
	TrendingPlatforms(ctx context.Context, limit int) ([]*models.TrendingPlatform, error)
}

type API struct {
	repo           ScanStore
	cache          *cache.Cache
	queue          *queue.Queue
	webhookService *webhook.Service
	scheduler      *scheduler.ScanScheduler
	monitor        *monitoring.Monitor
	analytics      AnalyticsProvider
	rateLimiter    *middleware.RateLimiter
	defaults       config.PipelineConfig
}

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

	// Initialize JWT secret from config
	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize cache
	redisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// Setup dead letter queue
	if err := q.SetupDeadLetterQueue(); err != nil {
		log.Printf("Warning: Failed to setup DLQ: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize webhook service
	webhookService := webhook.NewService(repo)

	// Start webhook retry worker
	go webhookService.RetryWorker(ctx)

	// Initialize scan scheduler
	scanScheduler := scheduler.NewScheduler(repo, q, cfg.Pipeline.MaxConcurrent)
	if err := scanScheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scanScheduler.Stop()

	// Initialize monitoring
	monitor := monitoring.NewMonitor(repo, q)
	monitor.Start(ctx)

	// Initialize analytics
	analyticsService := analytics.NewService(repo)

	// Initialize rate limiter (10 requests per second, burst of 20)
	rateLimiter := middleware.NewRateLimiter(10, 20)
	go rateLimiter.Cleanup()

	// Start metrics server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	// Create API instance
	api := &API{
		repo:           repo,
		cache:          redisCache,
		queue:          q,
		webhookService: webhookService,
		scheduler:      scanScheduler,
		monitor:        monitor,
		analytics:      analyticsService,
		rateLimiter:    rateLimiter,
		defaults:       cfg.Pipeline,
	}

	// Setup router
	router := setupRouter(api, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Cancel context for background workers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func setupRouter(api *API, logger *logging.Logger) *gin.Engine {
	router := gin.New()

	// Apply global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RateLimit(api.rateLimiter))

	// Health check
	router.GET("/health", api.healthCheck)

	// Public routes
	public := router.Group("/api/v1")
	{
		// Auth
		public.POST("/auth/register", api.register)
		public.POST("/auth/login", api.login)
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(middleware.OptionalAuth(api.repo))
	{
		// Scans
		protected.POST("/scans", middleware.QuotaLimit(api.repo), api.createScan)
		protected.GET("/scans/:id", api.getScan)
		protected.GET("/scans", api.listScans)
		protected.GET("/scans/:id/report", api.getScanReport)
		protected.GET("/scans/:id/stage", api.getScanStage)
		protected.POST("/scans/:id/cancel", api.cancelScan)

		// Webhooks
		protected.POST("/webhooks", api.createWebhook)
		protected.GET("/webhooks", api.listWebhooks)

		// Monitoring
		protected.GET("/stats", api.getStats)
		protected.GET("/workers/health", api.getWorkerHealth)
		protected.GET("/system/health", api.getSystemHealth)
		protected.GET("/queue/stats", api.getQueueStats)

		// Analytics
		protected.GET("/analytics/overview", api.getAnalyticsOverview)
		protected.GET("/analytics/daily", api.getDailyScanCounts)
		protected.GET("/analytics/platforms", api.getPlatformBreakdown)
		protected.GET("/analytics/platforms/trending", api.getTrendingPlatforms)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Check database health
	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}
