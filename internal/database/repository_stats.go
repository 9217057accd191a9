package database

import (
	"context"
	"fmt"
)

// Stats-related repository methods backing the /stats endpoint

// GetScanStats returns overall scan counters
func (r *Repository) GetScanStats(ctx context.Context) (total, completed, failed, cancelled int64, err error) {
	query := `
		SELECT
			COUNT(*) as total,
			COUNT(*) FILTER (WHERE status = 'completed') as completed,
			COUNT(*) FILTER (WHERE status = 'failed') as failed,
			COUNT(*) FILTER (WHERE status = 'cancelled') as cancelled
		FROM scans
	`

	err = r.db.Pool.QueryRow(ctx, query).Scan(&total, &completed, &failed, &cancelled)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get scan stats: %w", err)
	}

	return total, completed, failed, cancelled, nil
}

// GetScansByStatus returns count of scans by status
func (r *Repository) GetScansByStatus(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT status, COUNT(*)
		FROM scans
		GROUP BY status
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get scans by status: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stats[status] = count
	}

	return stats, nil
}

// GetAverageWaitTime returns the average seconds scans spent queued over the
// last 24 hours
func (r *Repository) GetAverageWaitTime(ctx context.Context) (float64, error) {
	query := `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (started_at - created_at))), 0)
		FROM scans
		WHERE started_at IS NOT NULL
		AND created_at > NOW() - INTERVAL '24 hours'
	`

	var avgWaitTime float64
	err := r.db.Pool.QueryRow(ctx, query).Scan(&avgWaitTime)
	if err != nil {
		return 0, fmt.Errorf("failed to get average wait time: %w", err)
	}

	return avgWaitTime, nil
}

// GetAverageScanTime returns the average seconds completed scans took over
// the last 24 hours
func (r *Repository) GetAverageScanTime(ctx context.Context) (float64, error) {
	query := `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at))), 0)
		FROM scans
		WHERE started_at IS NOT NULL
		AND completed_at IS NOT NULL
		AND status = 'completed'
		AND created_at > NOW() - INTERVAL '24 hours'
	`

	var avgScanTime float64
	err := r.db.Pool.QueryRow(ctx, query).Scan(&avgScanTime)
	if err != nil {
		return 0, fmt.Errorf("failed to get average scan time: %w", err)
	}

	return avgScanTime, nil
}

// GetActiveWorkers returns the number of workers seen in the last 5 minutes
func (r *Repository) GetActiveWorkers(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(DISTINCT worker_id)
		FROM scans
		WHERE worker_id IS NOT NULL
		AND worker_id != ''
		AND updated_at > NOW() - INTERVAL '5 minutes'
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get active workers: %w", err)
	}

	return count, nil
}

// GetMediaTypeCounts returns how many reported media items exist per type
func (r *Repository) GetMediaTypeCounts(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT item->>'type' AS media_type, COUNT(*)
		FROM reports, jsonb_array_elements(media) AS item
		GROUP BY media_type
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get media type counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var mediaType string
		var count int64
		if err := rows.Scan(&mediaType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[mediaType] = count
	}

	return counts, nil
}
