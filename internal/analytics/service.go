package analytics

import (
	"context"
	"time"

	"github.com/mediaref/clipscan/internal/database"
	"github.com/mediaref/clipscan/pkg/models"
)

const (
	DefaultWindowDays = 7
	MaxWindowDays     = 90

	DefaultPlatformLimit = 10
	MaxPlatformLimit     = 50
)

// Service aggregates historical scan and report statistics
type Service struct {
	repo *database.Repository
}

// NewService creates a new analytics service
func NewService(repo *database.Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Overview returns aggregated scan statistics for the last N days
func (s *Service) Overview(ctx context.Context, days int) (*models.ScanOverview, error) {
	days = clampDays(days)
	since := time.Now().AddDate(0, 0, -days)
	return s.repo.GetScanOverview(ctx, since)
}

// DailyCounts returns per-day scan volume for the last N days
func (s *Service) DailyCounts(ctx context.Context, days int) ([]*models.DailyScanCount, error) {
	return s.repo.GetDailyScanCounts(ctx, clampDays(days))
}

// PlatformBreakdown returns the most frequently detected platforms
func (s *Service) PlatformBreakdown(ctx context.Context, limit int) ([]*models.PlatformCount, error) {
	return s.repo.GetPlatformCounts(ctx, clampLimit(limit))
}

// TrendingPlatforms returns platforms ranked by recent detection growth
func (s *Service) TrendingPlatforms(ctx context.Context, limit int) ([]*models.TrendingPlatform, error) {
	return s.repo.GetTrendingPlatforms(ctx, clampLimit(limit))
}

// EfficiencyScore computes how well the scan parameters fit the clip (0-100).
// Higher score = less wasted work.
func EfficiencyScore(report *models.Report) float64 {
	score := 100.0

	// Penalize sampling redundancy (up to -40 points): frames extracted and
	// hashed only to be dropped as near-duplicates suggest the scene
	// threshold was too low for this clip
	if report.FramesSampled > 0 {
		redundancy := float64(report.FramesSampled-report.FramesUnique) / float64(report.FramesSampled)
		score -= redundancy * 40
	}

	// Penalize failed frame analyses (up to -60 points): each failure burned
	// a backend call without contributing to the report
	if report.FramesUnique > 0 {
		failureRatio := float64(report.FramesFailed) / float64(report.FramesUnique)
		score -= failureRatio * 60
	}

	if score < 0 {
		score = 0
	}

	return score
}

func clampDays(days int) int {
	if days <= 0 {
		return DefaultWindowDays
	}
	if days > MaxWindowDays {
		return MaxWindowDays
	}
	return days
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPlatformLimit
	}
	if limit > MaxPlatformLimit {
		return MaxPlatformLimit
	}
	return limit
}
