package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mediaref/clipscan/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	// Create a mini Redis server for testing
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	if cache == nil {
		t.Fatal("Cache should not be nil")
	}

	// Test ping
	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_ScanOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	scan := &models.Scan{
		ID:        "test-scan-1",
		SourceURL: "https://example.com/v/1",
		Status:    models.ScanStatusPending,
		Priority:  models.ScanPriorityNormal,
	}

	// Test SetScan
	err := cache.SetScan(ctx, scan, 5*time.Minute)
	if err != nil {
		t.Fatalf("SetScan failed: %v", err)
	}

	// Test GetScan
	retrieved, err := cache.GetScan(ctx, scan.ID)
	if err != nil {
		t.Fatalf("GetScan failed: %v", err)
	}

	if retrieved == nil {
		t.Fatal("Retrieved scan should not be nil")
	}

	if retrieved.ID != scan.ID {
		t.Errorf("Expected ID %s, got %s", scan.ID, retrieved.ID)
	}

	if retrieved.SourceURL != scan.SourceURL {
		t.Errorf("Expected source URL %s, got %s", scan.SourceURL, retrieved.SourceURL)
	}

	// Test GetScan for non-existent scan
	nonExistent, err := cache.GetScan(ctx, "non-existent")
	if err != nil {
		t.Fatalf("GetScan for non-existent should not error: %v", err)
	}

	if nonExistent != nil {
		t.Error("Non-existent scan should return nil")
	}

	// Test DeleteScan
	err = cache.DeleteScan(ctx, scan.ID)
	if err != nil {
		t.Fatalf("DeleteScan failed: %v", err)
	}

	// Verify deletion
	deleted, err := cache.GetScan(ctx, scan.ID)
	if err != nil {
		t.Fatalf("GetScan after delete failed: %v", err)
	}

	if deleted != nil {
		t.Error("Deleted scan should return nil")
	}
}

func TestCache_ScanStage(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	scanID := "test-scan-1"

	// Test SetScanStage
	err := cache.SetScanStage(ctx, scanID, "analyzing", 5*time.Minute)
	if err != nil {
		t.Fatalf("SetScanStage failed: %v", err)
	}

	// Test GetScanStage
	stage, err := cache.GetScanStage(ctx, scanID)
	if err != nil {
		t.Fatalf("GetScanStage failed: %v", err)
	}

	if stage != "analyzing" {
		t.Errorf("Expected stage analyzing, got %s", stage)
	}

	// Test non-existent stage
	missing, err := cache.GetScanStage(ctx, "non-existent")
	if err != nil {
		t.Fatalf("GetScanStage for non-existent should not error: %v", err)
	}

	if missing != "" {
		t.Error("Non-existent stage should return empty string")
	}
}

func TestCache_ReportOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	platform := "spotify"
	title := "blinding lights"
	confidence := 0.9

	report := &models.Report{
		ID:        "report-1",
		ScanID:    "test-scan-1",
		SourceURL: "https://example.com/v/1",
		Caption:   "check out this track",
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

	// Test SetReport
	err := cache.SetReport(ctx, report, 10*time.Minute)
	if err != nil {
		t.Fatalf("SetReport failed: %v", err)
	}

	// Test GetReport
	retrieved, err := cache.GetReport(ctx, report.ScanID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	if retrieved == nil {
		t.Fatal("Retrieved report should not be nil")
	}

	if retrieved.Caption != report.Caption {
		t.Errorf("Expected caption %s, got %s", report.Caption, retrieved.Caption)
	}

	if len(retrieved.Media) != 1 {
		t.Fatalf("Expected 1 media item, got %d", len(retrieved.Media))
	}

	if retrieved.Media[0].Type != models.MediaTypeMusic {
		t.Errorf("Expected media type music, got %s", retrieved.Media[0].Type)
	}

	// Test DeleteReport
	err = cache.DeleteReport(ctx, report.ScanID)
	if err != nil {
		t.Fatalf("DeleteReport failed: %v", err)
	}

	// Verify deletion
	deleted, err := cache.GetReport(ctx, report.ScanID)
	if err != nil {
		t.Fatalf("GetReport after delete failed: %v", err)
	}

	if deleted != nil {
		t.Error("Deleted report should return nil")
	}
}

func TestCache_StatOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	stat := "scans_processed"

	// Test IncrementStat
	err := cache.IncrementStat(ctx, stat)
	if err != nil {
		t.Fatalf("IncrementStat failed: %v", err)
	}

	// Increment again
	err = cache.IncrementStat(ctx, stat)
	if err != nil {
		t.Fatalf("IncrementStat failed: %v", err)
	}

	// Test GetStat
	value, err := cache.GetStat(ctx, stat)
	if err != nil {
		t.Fatalf("GetStat failed: %v", err)
	}

	if value != 2 {
		t.Errorf("Expected stat value 2, got %d", value)
	}

	// Test SetStat
	err = cache.SetStat(ctx, stat, 100, 5*time.Minute)
	if err != nil {
		t.Fatalf("SetStat failed: %v", err)
	}

	value, err = cache.GetStat(ctx, stat)
	if err != nil {
		t.Fatalf("GetStat failed: %v", err)
	}

	if value != 100 {
		t.Errorf("Expected stat value 100, got %d", value)
	}
}

func TestCache_RateLimit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	key := "user:123"
	limit := int64(5)
	window := 1 * time.Minute

	// Should allow first 5 requests
	for i := 0; i < 5; i++ {
		allowed, err := cache.CheckRateLimit(ctx, key, limit, window)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}

		if !allowed {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// Should deny 6th request
	allowed, err := cache.CheckRateLimit(ctx, key, limit, window)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}

	if allowed {
		t.Error("Request beyond limit should be denied")
	}
}

func TestCache_Locking(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	resource := "scan:test-123"

	// Test AcquireLock
	acquired, err := cache.AcquireLock(ctx, resource, 1*time.Minute)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	if !acquired {
		t.Error("First lock acquisition should succeed")
	}

	// Test acquiring same lock again (should fail)
	acquired, err = cache.AcquireLock(ctx, resource, 1*time.Minute)
	if err != nil {
		t.Fatalf("Second AcquireLock failed: %v", err)
	}

	if acquired {
		t.Error("Second lock acquisition should fail")
	}

	// Test ReleaseLock
	err = cache.ReleaseLock(ctx, resource)
	if err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}

	// Should be able to acquire again
	acquired, err = cache.AcquireLock(ctx, resource, 1*time.Minute)
	if err != nil {
		t.Fatalf("AcquireLock after release failed: %v", err)
	}

	if !acquired {
		t.Error("Lock acquisition after release should succeed")
	}
}

func TestURLLockKey(t *testing.T) {
	a := URLLockKey("https://example.com/v/1")
	b := URLLockKey("https://example.com/v/1")
	c := URLLockKey("https://example.com/v/2")

	if a != b {
		t.Error("Same URL should produce the same lock key")
	}

	if a == c {
		t.Error("Different URLs should produce different lock keys")
	}

	if !strings.HasPrefix(a, "url:") {
		t.Errorf("Lock key should have url: prefix, got %s", a)
	}
}

func TestCache_Exists(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	key := "test:key"

	// Key should not exist initially
	exists, err := cache.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}

	if exists {
		t.Error("Key should not exist initially")
	}

	// Set a value
	err = cache.SetWithJSON(ctx, key, map[string]string{"test": "value"}, 5*time.Minute)
	if err != nil {
		t.Fatalf("SetWithJSON failed: %v", err)
	}

	// Key should exist now
	exists, err = cache.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}

	if !exists {
		t.Error("Key should exist after setting")
	}
}

func TestCache_SetGetWithJSON(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	key := "test:json"

	type TestData struct {
		Name  string
		Count int
	}

	original := TestData{
		Name:  "test",
		Count: 42,
	}

	// Test SetWithJSON
	err := cache.SetWithJSON(ctx, key, original, 5*time.Minute)
	if err != nil {
		t.Fatalf("SetWithJSON failed: %v", err)
	}

	// Test GetWithJSON
	var retrieved TestData
	err = cache.GetWithJSON(ctx, key, &retrieved)
	if err != nil {
		t.Fatalf("GetWithJSON failed: %v", err)
	}

	if retrieved.Name != original.Name {
		t.Errorf("Expected Name %s, got %s", original.Name, retrieved.Name)
	}

	if retrieved.Count != original.Count {
		t.Errorf("Expected Count %d, got %d", original.Count, retrieved.Count)
	}
}

// Benchmark tests
func BenchmarkCache_SetScan(b *testing.B) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	cache, _ := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	defer cache.Close()

	ctx := context.Background()
	scan := &models.Scan{
		ID:        "benchmark-scan",
		SourceURL: "https://example.com/v/1",
		Status:    models.ScanStatusPending,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.SetScan(ctx, scan, 5*time.Minute)
	}
}

func BenchmarkCache_GetScan(b *testing.B) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	cache, _ := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	defer cache.Close()

	ctx := context.Background()
	scan := &models.Scan{
		ID:        "benchmark-scan",
		SourceURL: "https://example.com/v/1",
		Status:    models.ScanStatusPending,
	}

	cache.SetScan(ctx, scan, 5*time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.GetScan(ctx, scan.ID)
	}
}
