package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mediaref/clipscan/pkg/models"
)

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks if the underlying database connection is healthy
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Scans

// CreateScan creates a new scan record
func (r *Repository) CreateScan(ctx context.Context, scan *models.Scan) error {
	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}

	query := `
		INSERT INTO scans (id, source_url, status, priority, options, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		scan.ID, scan.SourceURL, scan.Status, scan.Priority, scan.Options, scan.RetryCount,
	).Scan(&scan.CreatedAt, &scan.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}

	return nil
}

// GetScan retrieves a scan by ID
func (r *Repository) GetScan(ctx context.Context, id string) (*models.Scan, error) {
	var scan models.Scan

	query := `
		SELECT id, source_url, status, priority, options, error_msg, retry_count,
		       worker_id, started_at, completed_at, created_at, updated_at
		FROM scans
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&scan.ID, &scan.SourceURL, &scan.Status, &scan.Priority, &scan.Options,
		&scan.ErrorMsg, &scan.RetryCount, &scan.WorkerID, &scan.StartedAt,
		&scan.CompletedAt, &scan.CreatedAt, &scan.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("scan not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	return &scan, nil
}

// UpdateScan updates a scan record
func (r *Repository) UpdateScan(ctx context.Context, scan *models.Scan) error {
	query := `
		UPDATE scans
		SET status = $2, priority = $3, options = $4, error_msg = $5,
		    retry_count = $6, worker_id = $7, started_at = $8, completed_at = $9
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		scan.ID, scan.Status, scan.Priority, scan.Options, scan.ErrorMsg,
		scan.RetryCount, scan.WorkerID, scan.StartedAt, scan.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}

	return nil
}

// UpdateScanStatus updates a scan's status
func (r *Repository) UpdateScanStatus(ctx context.Context, scanID, status string) error {
	query := `
		UPDATE scans
		SET status = $2
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, scanID, status)
	return err
}

// ListScans retrieves scans with pagination and optional status filtering
func (r *Repository) ListScans(ctx context.Context, status string, limit, offset int) ([]*models.Scan, error) {
	query := `
		SELECT id, source_url, status, priority, options, error_msg, retry_count,
		       worker_id, started_at, completed_at, created_at, updated_at
		FROM scans
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var scans []*models.Scan
	for rows.Next() {
		var scan models.Scan
		err := rows.Scan(
			&scan.ID, &scan.SourceURL, &scan.Status, &scan.Priority, &scan.Options,
			&scan.ErrorMsg, &scan.RetryCount, &scan.WorkerID, &scan.StartedAt,
			&scan.CompletedAt, &scan.CreatedAt, &scan.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, &scan)
	}

	return scans, nil
}

// GetPendingScans retrieves pending scans ordered by priority then age
func (r *Repository) GetPendingScans(ctx context.Context, limit int) ([]*models.Scan, error) {
	query := `
		SELECT id, source_url, status, priority, options, error_msg, retry_count,
		       worker_id, started_at, completed_at, created_at, updated_at
		FROM scans
		WHERE status = $1
		ORDER BY priority DESC, created_at ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, models.ScanStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending scans: %w", err)
	}
	defer rows.Close()

	var scans []*models.Scan
	for rows.Next() {
		var scan models.Scan
		err := rows.Scan(
			&scan.ID, &scan.SourceURL, &scan.Status, &scan.Priority, &scan.Options,
			&scan.ErrorMsg, &scan.RetryCount, &scan.WorkerID, &scan.StartedAt,
			&scan.CompletedAt, &scan.CreatedAt, &scan.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, &scan)
	}

	return scans, nil
}

// CancelScan marks a scan as cancelled while it is still waiting to run
func (r *Repository) CancelScan(ctx context.Context, scanID string) error {
	query := `
		UPDATE scans
		SET status = $2,
		    completed_at = CURRENT_TIMESTAMP
		WHERE id = $1
		AND status IN ($3, $4)
	`

	result, err := r.db.Pool.Exec(ctx, query, scanID,
		models.ScanStatusCancelled, models.ScanStatusPending, models.ScanStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to cancel scan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("scan not found or cannot be cancelled")
	}

	return nil
}

// Reports

// CreateReport creates a new report record
func (r *Repository) CreateReport(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}

	query := `
		INSERT INTO reports (id, scan_id, source_url, caption, media,
		                     frames_sampled, frames_unique, frames_failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		report.ID, report.ScanID, report.SourceURL, report.Caption, report.Media,
		report.FramesSampled, report.FramesUnique, report.FramesFailed,
	).Scan(&report.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// GetReportByScanID retrieves the report produced by a scan
func (r *Repository) GetReportByScanID(ctx context.Context, scanID string) (*models.Report, error) {
	var report models.Report

	query := `
		SELECT id, scan_id, source_url, caption, media,
		       frames_sampled, frames_unique, frames_failed, created_at
		FROM reports
		WHERE scan_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, scanID).Scan(
		&report.ID, &report.ScanID, &report.SourceURL, &report.Caption, &report.Media,
		&report.FramesSampled, &report.FramesUnique, &report.FramesFailed, &report.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("report not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}
