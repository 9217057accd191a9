package main

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mediaref/clipscan/internal/cache"
	"github.com/mediaref/clipscan/internal/middleware"
	"github.com/mediaref/clipscan/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	// scanURLLockTTL bounds how long a URL is considered in flight when the
	// worker dies before releasing its lock
	scanURLLockTTL = 30 * time.Minute

	scanCacheTTL = 5 * time.Minute

	reportCacheTTL = 1 * time.Hour
)

// Scan handlers

func (api *API) createScan(c *gin.Context) {
	var req struct {
		URL            string   `json:"url" binding:"required,url"`
		SceneThreshold *float64 `json:"scene_threshold"`
		HashDistance   *int     `json:"hash_distance"`
		Model          string   `json:"model"`
		KeepArtifacts  bool     `json:"keep_artifacts"`
		Priority       int      `json:"priority"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Omitted options fall back to the configured pipeline defaults. An
	// explicit hash_distance of 0 disables frame deduplication.
	options := models.ScanOptions{
		SceneThreshold: api.defaults.SceneThreshold,
		HashDistance:   api.defaults.HashDistance,
		Model:          req.Model,
		KeepArtifacts:  req.KeepArtifacts,
	}

	if req.SceneThreshold != nil {
		if *req.SceneThreshold <= 0 || *req.SceneThreshold >= 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scene_threshold must be between 0 and 1 exclusive"})
			return
		}
		options.SceneThreshold = *req.SceneThreshold
	}

	if req.HashDistance != nil {
		if *req.HashDistance < 0 || *req.HashDistance > 64 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hash_distance must be between 0 and 64"})
			return
		}
		options.HashDistance = *req.HashDistance
	}

	// Reject duplicate in-flight scans of the same URL
	urlLock := cache.URLLockKey(req.URL)
	locked, err := api.cache.AcquireLock(c.Request.Context(), urlLock, scanURLLockTTL)
	if err != nil {
		log.Printf("Warning: Failed to check URL lock: %v", err)
	} else if !locked {
		c.JSON(http.StatusConflict, gin.H{"error": "A scan for this URL is already in progress"})
		return
	}

	scan := &models.Scan{
		ID:        uuid.New().String(),
		SourceURL: req.URL,
		Status:    models.ScanStatusPending,
		Priority:  req.Priority,
		Options:   options,
	}

	if scan.Priority == 0 {
		scan.Priority = models.ScanPriorityNormal
	}

	if err := api.repo.CreateScan(c.Request.Context(), scan); err != nil {
		api.cache.ReleaseLock(c.Request.Context(), urlLock)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create scan: %v", err)})
		return
	}

	// Schedule scan using scheduler
	if api.scheduler != nil {
		if err := api.scheduler.ScheduleScan(scan); err != nil {
			log.Printf("Failed to schedule scan: %v", err)
			// Fallback to direct queue publish
			if err := api.publishScan(c, scan); err != nil {
				return
			}
		}
	} else if api.queue != nil {
		if err := api.publishScan(c, scan); err != nil {
			return
		}
	}

	c.JSON(http.StatusCreated, scan)
}

// publishScan pushes the scan straight onto the worker queue, bypassing the
// scheduler. Writes the error response itself on failure.
func (api *API) publishScan(c *gin.Context, scan *models.Scan) error {
	job := &models.ScanJob{
		ScanID:    scan.ID,
		SourceURL: scan.SourceURL,
		Options:   scan.Options,
		Priority:  scan.Priority,
		CreatedAt: scan.CreatedAt,
	}

	if err := api.queue.PublishScan(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to queue scan: %v", err)})
		return err
	}

	if err := api.repo.UpdateScanStatus(c.Request.Context(), scan.ID, models.ScanStatusQueued); err != nil {
		log.Printf("Failed to update scan status %s: %v", scan.ID, err)
	}
	scan.Status = models.ScanStatusQueued

	return nil
}

func (api *API) getScan(c *gin.Context) {
	scanID := c.Param("id")

	// Cache first, then database
	if cached, err := api.cache.GetScan(c.Request.Context(), scanID); err == nil && cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	scan, err := api.repo.GetScan(c.Request.Context(), scanID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
		return
	}

	_ = api.cache.SetScan(c.Request.Context(), scan, scanCacheTTL)

	c.JSON(http.StatusOK, scan)
}

func (api *API) listScans(c *gin.Context) {
	status := c.Query("status")
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	scans, err := api.repo.ListScans(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scans":  scans,
		"limit":  limit,
		"offset": offset,
	})
}

func (api *API) getScanReport(c *gin.Context) {
	scanID := c.Param("id")

	// Cache first, then database
	report, err := api.cache.GetReport(c.Request.Context(), scanID)
	if err == nil && report != nil {
		c.JSON(http.StatusOK, report)
		return
	}

	report, err = api.repo.GetReportByScanID(c.Request.Context(), scanID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	_ = api.cache.SetReport(c.Request.Context(), report, reportCacheTTL)

	c.JSON(http.StatusOK, report)
}

// getScanStage reports which pipeline stage a running scan is currently in
func (api *API) getScanStage(c *gin.Context) {
	scanID := c.Param("id")

	stage, err := api.cache.GetScanStage(c.Request.Context(), scanID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get scan stage"})
		return
	}

	if stage == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No stage recorded for scan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scan_id": scanID,
		"stage":   stage,
	})
}

func (api *API) cancelScan(c *gin.Context) {
	scanID := c.Param("id")

	scan, err := api.repo.GetScan(c.Request.Context(), scanID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
		return
	}

	if err := api.repo.CancelScan(c.Request.Context(), scanID); err != nil {
		if err.Error() == "scan not found or cannot be cancelled" {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to cancel scan: %v", err)})
		return
	}

	// Invalidate cache and free the in-flight URL lock
	api.cache.DeleteScan(c.Request.Context(), scanID)
	api.cache.ReleaseLock(c.Request.Context(), cache.URLLockKey(scan.SourceURL))

	// Notify scheduler
	if api.scheduler != nil {
		api.scheduler.ScanCompleted(scanID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Scan cancelled successfully", "scan_id": scanID})
}

// Auth handlers

func (api *API) register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Quota:    100, // Default quota
		IsActive: true,
	}

	if err := api.repo.CreateUser(c.Request.Context(), user, req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      user.ID,
		"email":   user.Email,
		"api_key": user.APIKey,
	})
}

func (api *API) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := api.repo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is inactive"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"user_id":    user.ID,
		"email":      user.Email,
		"api_key":    user.APIKey,
		"quota":      user.Quota,
		"used_quota": user.UsedQuota,
	})
}

// Webhook handlers

func (api *API) createWebhook(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		URL    string               `json:"url" binding:"required,url"`
		Events models.WebhookEvents `json:"events" binding:"required"`
		Secret string               `json:"secret"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	webhook := &models.Webhook{
		ID:       uuid.New().String(),
		UserID:   userID,
		URL:      req.URL,
		Events:   req.Events,
		Secret:   req.Secret,
		IsActive: true,
	}

	if err := api.repo.CreateWebhook(c.Request.Context(), webhook); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create webhook"})
		return
	}

	c.JSON(http.StatusCreated, webhook)
}

func (api *API) listWebhooks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	webhooks, err := api.repo.GetUserWebhooks(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"webhooks": webhooks})
}

// Monitoring handlers

func (api *API) getStats(c *gin.Context) {
	if api.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Monitoring not available"})
		return
	}

	metrics := api.monitor.GetMetrics()
	c.JSON(http.StatusOK, metrics)
}

func (api *API) getWorkerHealth(c *gin.Context) {
	if api.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Monitoring not available"})
		return
	}

	workers := api.monitor.GetWorkerHealth()
	c.JSON(http.StatusOK, gin.H{"workers": workers})
}

func (api *API) getSystemHealth(c *gin.Context) {
	if api.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Monitoring not available"})
		return
	}

	health := api.monitor.GetSystemHealth()
	alerts := api.monitor.GetAlerts()

	c.JSON(http.StatusOK, gin.H{
		"status": health,
		"alerts": alerts,
	})
}

// Analytics handlers

func (api *API) getAnalyticsOverview(c *gin.Context) {
	if api.analytics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analytics not available"})
		return
	}

	days, _ := strconv.Atoi(c.Query("days"))

	overview, err := api.analytics.Overview(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get analytics overview"})
		return
	}

	c.JSON(http.StatusOK, overview)
}

func (api *API) getDailyScanCounts(c *gin.Context) {
	if api.analytics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analytics not available"})
		return
	}

	days, _ := strconv.Atoi(c.Query("days"))

	counts, err := api.analytics.DailyCounts(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get daily scan counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"daily": counts})
}

func (api *API) getPlatformBreakdown(c *gin.Context) {
	if api.analytics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analytics not available"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	platforms, err := api.analytics.PlatformBreakdown(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get platform breakdown"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"platforms": platforms})
}

func (api *API) getTrendingPlatforms(c *gin.Context) {
	if api.analytics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analytics not available"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	trending, err := api.analytics.TrendingPlatforms(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get trending platforms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"trending": trending})
}

func (api *API) getQueueStats(c *gin.Context) {
	if api.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue not available"})
		return
	}

	queueDepth, err := api.queue.GetQueueDepth()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get queue depth"})
		return
	}

	dlqDepth, err := api.queue.GetDLQDepth()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get DLQ depth"})
		return
	}

	stats := gin.H{
		"queue_depth": queueDepth,
		"dlq_depth":   dlqDepth,
	}

	if api.scheduler != nil {
		stats["scheduler_depth"] = api.scheduler.GetQueueDepth()
		stats["active_scans"] = api.scheduler.GetActiveScans()
	}

	c.JSON(http.StatusOK, stats)
}
