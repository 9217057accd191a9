package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mediaref/clipscan/pkg/models"
)

// Analytics Repository Methods

// GetScanOverview aggregates scan and report statistics since the given time
func (r *Repository) GetScanOverview(ctx context.Context, since time.Time) (*models.ScanOverview, error) {
	overview := &models.ScanOverview{
		Since:       since,
		LastUpdated: time.Now(),
	}

	scanQuery := `
		SELECT
			COUNT(*) as total,
			COUNT(*) FILTER (WHERE status = 'completed') as completed,
			COUNT(*) FILTER (WHERE status = 'failed') as failed,
			COUNT(*) FILTER (WHERE status = 'cancelled') as cancelled,
			COALESCE(AVG(EXTRACT(EPOCH FROM (started_at - created_at))) FILTER (WHERE started_at IS NOT NULL), 0) as avg_wait,
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at))) FILTER (WHERE status = 'completed' AND started_at IS NOT NULL AND completed_at IS NOT NULL), 0) as avg_scan
		FROM scans
		WHERE created_at >= $1
	`

	err := r.db.Pool.QueryRow(ctx, scanQuery, since).Scan(
		&overview.TotalScans,
		&overview.CompletedScans,
		&overview.FailedScans,
		&overview.CancelledScans,
		&overview.AvgWaitTime,
		&overview.AvgScanTime,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan overview: %w", err)
	}

	settled := overview.CompletedScans + overview.FailedScans
	if settled > 0 {
		overview.SuccessRate = float64(overview.CompletedScans) / float64(settled) * 100
	}

	reportQuery := `
		SELECT
			COALESCE(SUM(jsonb_array_length(media)), 0) as total_media,
			COALESCE(AVG(jsonb_array_length(media)), 0) as avg_media,
			COALESCE(AVG(frames_sampled), 0) as avg_sampled,
			COALESCE(AVG(frames_unique), 0) as avg_unique,
			COALESCE(SUM(frames_failed), 0) as total_failed,
			COALESCE(SUM(frames_unique), 0) as total_unique
		FROM reports
		WHERE created_at >= $1
	`

	var totalFailed, totalUnique int64
	err = r.db.Pool.QueryRow(ctx, reportQuery, since).Scan(
		&overview.TotalMediaFound,
		&overview.AvgMediaPerReport,
		&overview.AvgFramesSampled,
		&overview.AvgFramesUnique,
		&totalFailed,
		&totalUnique,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get report overview: %w", err)
	}

	if totalUnique > 0 {
		overview.FrameFailureRate = float64(totalFailed) / float64(totalUnique) * 100
	}

	return overview, nil
}

// GetDailyScanCounts returns per-day scan volume for the last N days
func (r *Repository) GetDailyScanCounts(ctx context.Context, days int) ([]*models.DailyScanCount, error) {
	query := `
		SELECT
			date_trunc('day', created_at) as day,
			COUNT(*) as total,
			COUNT(*) FILTER (WHERE status = 'completed') as completed,
			COUNT(*) FILTER (WHERE status = 'failed') as failed
		FROM scans
		WHERE created_at > NOW() - ($1 * INTERVAL '1 day')
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily scan counts: %w", err)
	}
	defer rows.Close()

	var counts []*models.DailyScanCount
	for rows.Next() {
		var count models.DailyScanCount
		if err := rows.Scan(&count.Date, &count.Total, &count.Completed, &count.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		counts = append(counts, &count)
	}

	return counts, nil
}

// GetPlatformCounts returns how often each platform appears across all
// reported media, normalized the same way report deduplication normalizes
func (r *Repository) GetPlatformCounts(ctx context.Context, limit int) ([]*models.PlatformCount, error) {
	query := `
		SELECT lower(trim(item->>'platform')) as platform, COUNT(*) as count
		FROM reports, jsonb_array_elements(media) AS item
		WHERE item->>'platform' IS NOT NULL AND trim(item->>'platform') != ''
		GROUP BY platform
		ORDER BY count DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query platform counts: %w", err)
	}
	defer rows.Close()

	var counts []*models.PlatformCount
	for rows.Next() {
		var count models.PlatformCount
		if err := rows.Scan(&count.Platform, &count.Count); err != nil {
			return nil, fmt.Errorf("failed to scan platform count: %w", err)
		}
		counts = append(counts, &count)
	}

	return counts, nil
}

// GetTrendingPlatforms ranks platforms by detection growth over the last
// 24 hours compared to the 24 hours before
func (r *Repository) GetTrendingPlatforms(ctx context.Context, limit int) ([]*models.TrendingPlatform, error) {
	query := `
		WITH recent AS (
			SELECT lower(trim(item->>'platform')) as platform, COUNT(*) as detections
			FROM reports, jsonb_array_elements(media) AS item
			WHERE created_at > NOW() - INTERVAL '24 hours'
			AND item->>'platform' IS NOT NULL AND trim(item->>'platform') != ''
			GROUP BY platform
		),
		previous AS (
			SELECT lower(trim(item->>'platform')) as platform, COUNT(*) as detections
			FROM reports, jsonb_array_elements(media) AS item
			WHERE created_at BETWEEN NOW() - INTERVAL '48 hours' AND NOW() - INTERVAL '24 hours'
			AND item->>'platform' IS NOT NULL AND trim(item->>'platform') != ''
			GROUP BY platform
		)
		SELECT
			r.platform,
			r.detections,
			CASE
				WHEN COALESCE(p.detections, 0) = 0 THEN 100.0
				ELSE ((r.detections::float - p.detections::float) / p.detections::float * 100)
			END as growth,
			r.detections::float as trending_score,
			NOW() as last_updated
		FROM recent r
		LEFT JOIN previous p ON r.platform = p.platform
		ORDER BY trending_score DESC, growth DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending platforms: %w", err)
	}
	defer rows.Close()

	var trending []*models.TrendingPlatform
	for rows.Next() {
		var platform models.TrendingPlatform
		err := rows.Scan(
			&platform.Platform, &platform.Detections, &platform.Growth,
			&platform.TrendingScore, &platform.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trending platform: %w", err)
		}
		trending = append(trending, &platform)
	}

	return trending, nil
}
