package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/mediaref/clipscan/internal/cache"
	"github.com/mediaref/clipscan/internal/config"
	"github.com/mediaref/clipscan/internal/middleware"
	"github.com/mediaref/clipscan/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockRepo is a mock implementation of ScanStore
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepo) CreateScan(ctx context.Context, scan *models.Scan) error {
	args := m.Called(ctx, scan)
	return args.Error(0)
}

func (m *MockRepo) GetScan(ctx context.Context, id string) (*models.Scan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scan), args.Error(1)
}

func (m *MockRepo) ListScans(ctx context.Context, status string, limit, offset int) ([]*models.Scan, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Scan), args.Error(1)
}

func (m *MockRepo) UpdateScanStatus(ctx context.Context, scanID, status string) error {
	args := m.Called(ctx, scanID, status)
	return args.Error(0)
}

func (m *MockRepo) CancelScan(ctx context.Context, scanID string) error {
	args := m.Called(ctx, scanID)
	return args.Error(0)
}

func (m *MockRepo) GetReportByScanID(ctx context.Context, scanID string) (*models.Report, error) {
	args := m.Called(ctx, scanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockRepo) CreateUser(ctx context.Context, user *models.User, password string) error {
	args := m.Called(ctx, user, password)
	return args.Error(0)
}

func (m *MockRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepo) ValidateAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepo) CheckQuota(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) IncrementQuota(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepo) CreateWebhook(ctx context.Context, webhook *models.Webhook) error {
	args := m.Called(ctx, webhook)
	return args.Error(0)
}

func (m *MockRepo) GetUserWebhooks(ctx context.Context, userID string) ([]*models.Webhook, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Webhook), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func setupTestCache(t *testing.T) *cache.Cache {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	c, err := cache.NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	return c
}

func testDefaults() config.PipelineConfig {
	return config.PipelineConfig{
		SceneThreshold: 0.3,
		HashDistance:   8,
		Workers:        4,
	}
}

func TestCreateScanHandler_Success(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{
		repo:     mockRepo,
		cache:    setupTestCache(t),
		defaults: testDefaults(),
	}

	mockRepo.On("CreateScan", mock.Anything, mock.AnythingOfType("*models.Scan")).Return(nil)

	router.POST("/api/v1/scans", api.createScan)

	requestBody := map[string]interface{}{
		"url": "https://clips.example.com/v/abc123",
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/scans", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.Scan
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.NotEmpty(t, response.ID)
	assert.Equal(t, "https://clips.example.com/v/abc123", response.SourceURL)
	assert.Equal(t, models.ScanStatusPending, response.Status)
	assert.Equal(t, models.ScanPriorityNormal, response.Priority)
	assert.Equal(t, 0.3, response.Options.SceneThreshold)
	assert.Equal(t, 8, response.Options.HashDistance)

	mockRepo.AssertExpectations(t)
}

func TestCreateScanHandler_InvalidRequest(t *testing.T) {
	router := setupTestRouter()
	api := &API{
		cache:    setupTestCache(t),
		defaults: testDefaults(),
	}

	router.POST("/api/v1/scans", api.createScan)

	// Missing required url
	requestBody := map[string]interface{}{}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/scans", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateScanHandler_InvalidSceneThreshold(t *testing.T) {
	router := setupTestRouter()
	api := &API{
		cache:    setupTestCache(t),
		defaults: testDefaults(),
	}

	router.POST("/api/v1/scans", api.createScan)

	requestBody := map[string]interface{}{
		"url":             "https://clips.example.com/v/abc123",
		"scene_threshold": 1.5,
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/scans", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateScanHandler_HashDistanceZero(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{
		repo:     mockRepo,
		cache:    setupTestCache(t),
		defaults: testDefaults(),
	}

	mockRepo.On("CreateScan", mock.Anything, mock.AnythingOfType("*models.Scan")).Return(nil)

	router.POST("/api/v1/scans", api.createScan)

	// Explicit zero disables deduplication, it must not fall back to the default
	requestBody := map[string]interface{}{
		"url":           "https://clips.example.com/v/abc123",
		"hash_distance": 0,
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/scans", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.Scan
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 0, response.Options.HashDistance)

	mockRepo.AssertExpectations(t)
}

func TestCreateScanHandler_DuplicateURL(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)
	testCache := setupTestCache(t)

	api := &API{
		repo:     mockRepo,
		cache:    testCache,
		defaults: testDefaults(),
	}

	sourceURL := "https://clips.example.com/v/abc123"
	locked, err := testCache.AcquireLock(context.Background(), cache.URLLockKey(sourceURL), time.Minute)
	assert.NoError(t, err)
	assert.True(t, locked)

	router.POST("/api/v1/scans", api.createScan)

	requestBody := map[string]interface{}{
		"url": sourceURL,
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/scans", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestGetScanHandler_Success(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{
		repo:  mockRepo,
		cache: setupTestCache(t),
	}

	scanID := "scan-123"
	scan := &models.Scan{
		ID:        scanID,
		SourceURL: "https://clips.example.com/v/abc123",
		Status:    models.ScanStatusProcessing,
		Priority:  models.ScanPriorityNormal,
		CreatedAt: time.Now(),
	}

	// Second request must be served from cache
	mockRepo.On("GetScan", mock.Anything, scanID).Return(scan, nil).Once()

	router.GET("/api/v1/scans/:id", api.getScan)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/scans/"+scanID, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response models.Scan
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, scanID, response.ID)
	}

	mockRepo.AssertExpectations(t)
}

func TestGetScanHandler_NotFound(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{
		repo:  mockRepo,
		cache: setupTestCache(t),
	}

	mockRepo.On("GetScan", mock.Anything, "nonexistent").Return(nil, errors.New("scan not found"))

	router.GET("/api/v1/scans/:id", api.getScan)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/scans/nonexistent", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestListScansHandler(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{repo: mockRepo}

	scans := []*models.Scan{
		{ID: "scan-1", Status: models.ScanStatusCompleted},
		{ID: "scan-2", Status: models.ScanStatusCompleted},
	}

	mockRepo.On("ListScans", mock.Anything, "completed", 5, 0).Return(scans, nil)

	router.GET("/api/v1/scans", api.listScans)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/scans?status=completed&limit=5", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response["scans"], 2)
	assert.Equal(t, float64(5), response["limit"])

	mockRepo.AssertExpectations(t)
}

func TestGetScanReportHandler_Success(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{
		repo:  mockRepo,
		cache: setupTestCache(t),
	}

	scanID := "scan-123"
	platform := "youtube"
	title := "Never Gonna Give You Up"
	confidence := 0.92
	report := &models.Report{
		ID:        "report-123",
		ScanID:    scanID,
		SourceURL: "https://clips.example.com/v/abc123",
		Caption:   "what a throwback",
		Media: models.MediaList{
			{
				Type:       models.MediaTypeMusic,
				Platform:   &platform,
				Title:      &title,
				Confidence: &confidence,
			},
		},
		FramesSampled: 12,
		FramesUnique:  5,
	}

	mockRepo.On("GetReportByScanID", mock.Anything, scanID).Return(report, nil).Once()

	router.GET("/api/v1/scans/:id/report", api.getScanReport)

	// Second request must be served from cache
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/scans/"+scanID+"/report", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response models.Report
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, scanID, response.ScanID)
		assert.Len(t, response.Media, 1)
		assert.Equal(t, models.MediaTypeMusic, response.Media[0].Type)
	}

	mockRepo.AssertExpectations(t)
}

func TestGetScanReportHandler_NotFound(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{
		repo:  mockRepo,
		cache: setupTestCache(t),
	}

	mockRepo.On("GetReportByScanID", mock.Anything, "scan-123").Return(nil, errors.New("report not found"))

	router.GET("/api/v1/scans/:id/report", api.getScanReport)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/scans/scan-123/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestGetScanStageHandler(t *testing.T) {
	router := setupTestRouter()
	testCache := setupTestCache(t)

	api := &API{cache: testCache}

	scanID := "scan-123"
	err := testCache.SetScanStage(context.Background(), scanID, "analyze", time.Minute)
	assert.NoError(t, err)

	router.GET("/api/v1/scans/:id/stage", api.getScanStage)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/scans/"+scanID+"/stage", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "analyze", response["stage"])

	// Unknown scan has no recorded stage
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/scans/unknown/stage", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelScanHandler_Success(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)
	testCache := setupTestCache(t)

	api := &API{
		repo:  mockRepo,
		cache: testCache,
	}

	scanID := "scan-123"
	sourceURL := "https://clips.example.com/v/abc123"
	scan := &models.Scan{
		ID:        scanID,
		SourceURL: sourceURL,
		Status:    models.ScanStatusQueued,
	}

	// Simulate the in-flight lock taken at submission
	locked, err := testCache.AcquireLock(context.Background(), cache.URLLockKey(sourceURL), time.Minute)
	assert.NoError(t, err)
	assert.True(t, locked)

	mockRepo.On("GetScan", mock.Anything, scanID).Return(scan, nil)
	mockRepo.On("CancelScan", mock.Anything, scanID).Return(nil)

	router.POST("/api/v1/scans/:id/cancel", api.cancelScan)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/scans/"+scanID+"/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Cancelling must free the URL for a fresh scan
	locked, err = testCache.AcquireLock(context.Background(), cache.URLLockKey(sourceURL), time.Minute)
	assert.NoError(t, err)
	assert.True(t, locked)

	mockRepo.AssertExpectations(t)
}

func TestCancelScanHandler_Conflict(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{
		repo:  mockRepo,
		cache: setupTestCache(t),
	}

	scanID := "scan-123"
	scan := &models.Scan{
		ID:     scanID,
		Status: models.ScanStatusCompleted,
	}

	mockRepo.On("GetScan", mock.Anything, scanID).Return(scan, nil)
	mockRepo.On("CancelScan", mock.Anything, scanID).Return(errors.New("scan not found or cannot be cancelled"))

	router.POST("/api/v1/scans/:id/cancel", api.cancelScan)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/scans/"+scanID+"/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestHealthCheckHandler(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{repo: mockRepo}

	mockRepo.On("Health", mock.Anything).Return(nil).Once()

	router.GET("/health", api.healthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	mockRepo.On("Health", mock.Anything).Return(errors.New("connection refused")).Once()

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestRegisterHandler_Success(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{repo: mockRepo}

	mockRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User"), "password123").Return(nil)

	router.POST("/api/v1/auth/register", api.register)

	requestBody := map[string]string{
		"email":    "user@example.com",
		"password": "password123",
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/auth/register", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "user@example.com", response["email"])
	assert.NotEmpty(t, response["id"])

	mockRepo.AssertExpectations(t)
}

func TestRegisterHandler_WeakPassword(t *testing.T) {
	router := setupTestRouter()
	api := &API{}

	router.POST("/api/v1/auth/register", api.register)

	requestBody := map[string]string{
		"email":    "user@example.com",
		"password": "short",
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/auth/register", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginHandler_Success(t *testing.T) {
	middleware.SetJWTSecret("test-secret")

	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{repo: mockRepo}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	assert.NoError(t, err)

	user := &models.User{
		ID:           "user-1",
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Quota:        100,
		IsActive:     true,
	}

	mockRepo.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil)

	router.POST("/api/v1/auth/login", api.login)

	requestBody := map[string]string{
		"email":    "user@example.com",
		"password": "password123",
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotEmpty(t, response["token"])
	assert.Equal(t, "user-1", response["user_id"])

	mockRepo.AssertExpectations(t)
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{repo: mockRepo}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	assert.NoError(t, err)

	user := &models.User{
		ID:           "user-1",
		Email:        "user@example.com",
		PasswordHash: string(hash),
		IsActive:     true,
	}

	mockRepo.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil)

	router.POST("/api/v1/auth/login", api.login)

	requestBody := map[string]string{
		"email":    "user@example.com",
		"password": "wrong-password",
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestCreateWebhookHandler_Success(t *testing.T) {
	router := setupTestRouter()
	mockRepo := new(MockRepo)

	api := &API{repo: mockRepo}

	mockRepo.On("CreateWebhook", mock.Anything, mock.AnythingOfType("*models.Webhook")).Return(nil)

	router.POST("/api/v1/webhooks", func(c *gin.Context) {
		c.Set(middleware.AuthContextKey, "user-1")
	}, api.createWebhook)

	requestBody := map[string]interface{}{
		"url": "https://hooks.example.com/clipscan",
		"events": map[string]bool{
			"scan_completed": true,
			"scan_failed":    true,
		},
		"secret": "whsec_test",
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/webhooks", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.Webhook
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "user-1", response.UserID)
	assert.True(t, response.Events.ScanCompleted)
	assert.False(t, response.Events.ScanStarted)

	mockRepo.AssertExpectations(t)
}

func TestCreateWebhookHandler_Unauthorized(t *testing.T) {
	router := setupTestRouter()
	api := &API{}

	router.POST("/api/v1/webhooks", api.createWebhook)

	requestBody := map[string]interface{}{
		"url":    "https://hooks.example.com/clipscan",
		"events": map[string]bool{"scan_completed": true},
	}
	jsonBody, _ := json.Marshal(requestBody)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/webhooks", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// MockAnalytics is a mock implementation of AnalyticsProvider
type MockAnalytics struct {
	mock.Mock
}

func (m *MockAnalytics) Overview(ctx context.Context, days int) (*models.ScanOverview, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScanOverview), args.Error(1)
}

func (m *MockAnalytics) DailyCounts(ctx context.Context, days int) ([]*models.DailyScanCount, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DailyScanCount), args.Error(1)
}

func (m *MockAnalytics) PlatformBreakdown(ctx context.Context, limit int) ([]*models.PlatformCount, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PlatformCount), args.Error(1)
}

func (m *MockAnalytics) TrendingPlatforms(ctx context.Context, limit int) ([]*models.TrendingPlatform, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TrendingPlatform), args.Error(1)
}

func TestGetAnalyticsOverviewHandler_Success(t *testing.T) {
	router := setupTestRouter()
	mockAnalytics := new(MockAnalytics)

	api := &API{analytics: mockAnalytics}

	overview := &models.ScanOverview{
		TotalScans:      42,
		CompletedScans:  30,
		FailedScans:     10,
		CancelledScans:  2,
		SuccessRate:     75.0,
		TotalMediaFound: 118,
	}

	mockAnalytics.On("Overview", mock.Anything, 30).Return(overview, nil)

	router.GET("/api/v1/analytics/overview", api.getAnalyticsOverview)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/analytics/overview?days=30", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.ScanOverview
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(42), response.TotalScans)
	assert.Equal(t, 75.0, response.SuccessRate)

	mockAnalytics.AssertExpectations(t)
}

func TestGetPlatformBreakdownHandler_Success(t *testing.T) {
	router := setupTestRouter()
	mockAnalytics := new(MockAnalytics)

	api := &API{analytics: mockAnalytics}

	platforms := []*models.PlatformCount{
		{Platform: "spotify", Count: 24},
		{Platform: "youtube", Count: 17},
	}

	mockAnalytics.On("PlatformBreakdown", mock.Anything, 0).Return(platforms, nil)

	router.GET("/api/v1/analytics/platforms", api.getPlatformBreakdown)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/analytics/platforms", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response["platforms"], 2)

	mockAnalytics.AssertExpectations(t)
}

func TestGetAnalyticsOverviewHandler_Unavailable(t *testing.T) {
	router := setupTestRouter()
	api := &API{}

	router.GET("/api/v1/analytics/overview", api.getAnalyticsOverview)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/analytics/overview", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetStatsHandler_MonitorUnavailable(t *testing.T) {
	router := setupTestRouter()
	api := &API{}

	router.GET("/api/v1/stats", api.getStats)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/stats", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetQueueStatsHandler_QueueUnavailable(t *testing.T) {
	router := setupTestRouter()
	api := &API{}

	router.GET("/api/v1/queue/stats", api.getQueueStats)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/queue/stats", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
