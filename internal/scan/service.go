package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mediaref/clipscan/internal/cache"
	"github.com/mediaref/clipscan/internal/config"
	"github.com/mediaref/clipscan/internal/database"
	"github.com/mediaref/clipscan/internal/logging"
	"github.com/mediaref/clipscan/internal/metrics"
	"github.com/mediaref/clipscan/internal/queue"
	"github.com/mediaref/clipscan/internal/report"
	"github.com/mediaref/clipscan/internal/storage"
	"github.com/mediaref/clipscan/internal/tracing"
	"github.com/mediaref/clipscan/internal/webhook"
	"github.com/mediaref/clipscan/pkg/models"
)

const (
	// How long a worker may hold a scan before the lock expires
	scanLockTTL = 30 * time.Minute

	reportCacheTTL = 1 * time.Hour
	stageCacheTTL  = 1 * time.Hour
)

// Requeuer re-enqueues scan jobs whose failure looks transient
type Requeuer interface {
	PublishToRetryQueue(ctx context.Context, job *models.ScanJob, retryCount int) error
}

// Service orchestrates scan processing for queue workers
type Service struct {
	pipeline  *Pipeline
	repo      *database.Repository
	cache     *cache.Cache
	artifacts *storage.ArtifactStore
	webhooks  *webhook.Service
	requeuer  Requeuer
	log       *logging.Logger
	cfg       config.PipelineConfig
	workerID  string
}

// NewService creates a new scan service
func NewService(
	cfg config.PipelineConfig,
	visionCfg config.VisionConfig,
	fetcherCfg config.FetcherConfig,
	repo *database.Repository,
	cache *cache.Cache,
	artifacts *storage.ArtifactStore,
	webhooks *webhook.Service,
	requeuer Requeuer,
	log *logging.Logger,
) *Service {
	return &Service{
		pipeline:  NewPipeline(cfg, visionCfg, fetcherCfg, log),
		repo:      repo,
		cache:     cache,
		artifacts: artifacts,
		webhooks:  webhooks,
		requeuer:  requeuer,
		log:       log,
		cfg:       cfg,
		workerID:  uuid.New().String(),
	}
}

// WorkerID returns this worker's identity as recorded on processed scans
func (s *Service) WorkerID() string {
	return s.workerID
}

// ProcessScan processes one scan job end to end: it runs the pipeline,
// persists the report and settles the scan's terminal status. Per-frame
// analysis failures are recorded in the report; only failures of the scan
// itself mark it failed.
func (s *Service) ProcessScan(ctx context.Context, job *models.ScanJob) error {
	scan, err := s.repo.GetScan(ctx, job.ScanID)
	if err != nil {
		return fmt.Errorf("failed to get scan: %w", err)
	}

	// Redelivered message for a scan that already settled
	switch scan.Status {
	case models.ScanStatusCompleted, models.ScanStatusFailed, models.ScanStatusCancelled:
		s.log.WithScanID(scan.ID).Infof("Skipping scan in terminal status %s", scan.Status)
		return nil
	}

	// One worker per scan; a redelivered message must not run twice in parallel
	locked, err := s.cache.AcquireLock(ctx, "scan:"+scan.ID, scanLockTTL)
	if err != nil {
		s.log.WithScanID(scan.ID).WithError(err).Warn("Failed to acquire scan lock")
	} else if !locked {
		s.log.WithScanID(scan.ID).Info("Scan is already being processed")
		return nil
	}
	defer s.cache.ReleaseLock(context.Background(), "scan:"+scan.ID)

	start := time.Now()
	metrics.ScanQueueTime.Observe(start.Sub(job.CreatedAt).Seconds())
	metrics.ScansInProgress.Inc()
	defer metrics.ScansInProgress.Dec()

	span, ctx := tracing.StartScanSpan(ctx, "process_scan", scan.ID)
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "source.url", scan.SourceURL)

	// Update scan status to processing
	scan.Status = models.ScanStatusProcessing
	scan.WorkerID = s.workerID
	scan.StartedAt = &start

	if err := s.repo.UpdateScan(ctx, scan); err != nil {
		return fmt.Errorf("failed to update scan status: %w", err)
	}
	s.cache.DeleteScan(ctx, scan.ID)

	if err := s.webhooks.NotifyScanStarted(ctx, scan); err != nil {
		s.log.WithScanID(scan.ID).WithError(err).Warn("Failed to send scan.started webhook")
	}

	// Create temporary directory
	tempDir := filepath.Join(s.cfg.TempDir, scan.ID)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return s.failScan(ctx, scan, fmt.Errorf("failed to create temp directory: %w", err))
	}
	defer os.RemoveAll(tempDir)

	onStage := func(stage string) {
		s.cache.SetScanStage(ctx, scan.ID, stage, stageCacheTTL)
	}

	result, err := s.pipeline.Run(ctx, scan.ID, scan.SourceURL, tempDir, scan.Options, onStage)
	if err != nil {
		tracing.LogError(span, err)

		// Fetch failures are usually transient; give them a bounded number
		// of delayed retries before settling the scan as failed
		var stageErr *StageError
		if errors.As(err, &stageErr) && stageErr.Stage == StageFetch {
			if scan.RetryCount < queue.MaxRetries {
				return s.retryScan(ctx, scan, job, err)
			}
			if dlqErr := s.requeuer.PublishToRetryQueue(ctx, job, scan.RetryCount); dlqErr != nil {
				s.log.WithScanID(scan.ID).WithError(dlqErr).Warn("Failed to dead-letter scan job")
			}
		}

		return s.failScan(ctx, scan, err)
	}

	// Persist the report
	rep := &models.Report{
		ScanID:        scan.ID,
		SourceURL:     scan.SourceURL,
		Caption:       result.Report.Caption,
		Media:         result.Report.Media,
		FramesSampled: result.SampledFrames,
		FramesUnique:  result.UniqueFrames,
		FramesFailed:  report.CountFailed(result.FrameResults),
	}

	if err := s.repo.CreateReport(ctx, rep); err != nil {
		return s.failScan(ctx, scan, fmt.Errorf("failed to create report: %w", err))
	}
	s.cache.SetReport(ctx, rep, reportCacheTTL)

	// Keep artifacts in object storage when the scan asked for it
	if scan.Options.KeepArtifacts {
		keys, err := s.artifacts.UploadScanArtifacts(ctx, scan.ID, tempDir)
		if err != nil {
			s.log.WithScanID(scan.ID).WithError(err).Warn("Failed to upload scan artifacts")
		} else {
			s.log.WithScanID(scan.ID).Infof("Uploaded %d scan artifacts", len(keys))
		}
	}

	// Update scan as completed
	scan.Status = models.ScanStatusCompleted
	completed := time.Now()
	scan.CompletedAt = &completed

	if err := s.repo.UpdateScan(ctx, scan); err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	s.cache.DeleteScan(ctx, scan.ID)
	s.cache.ReleaseLock(ctx, cache.URLLockKey(scan.SourceURL))

	metrics.RecordScanCompleted(scan.Status, time.Since(start).Seconds())
	metrics.WorkerScansProcessed.WithLabelValues(s.workerID).Inc()
	metrics.VideoDurationScanned.Add(result.Clip.Duration)

	clipReport := result.Report
	if err := s.webhooks.NotifyScanCompleted(ctx, scan, &clipReport); err != nil {
		s.log.WithScanID(scan.ID).WithError(err).Warn("Failed to send scan.completed webhook")
	}

	s.log.LogScanEvent(scan.ID, "scan_completed", scan.Status, map[string]interface{}{
		"frames_sampled": result.SampledFrames,
		"frames_unique":  result.UniqueFrames,
		"frames_failed":  rep.FramesFailed,
		"media_items":    len(result.Report.Media),
	})

	return nil
}

// retryScan re-enqueues the scan with backoff after a transient failure
func (s *Service) retryScan(ctx context.Context, scan *models.Scan, job *models.ScanJob, cause error) error {
	retries := scan.RetryCount
	scan.RetryCount++
	scan.Status = models.ScanStatusQueued
	scan.ErrorMsg = cause.Error()

	if err := s.repo.UpdateScan(ctx, scan); err != nil {
		return fmt.Errorf("failed to update scan: %w (original error: %v)", err, cause)
	}
	s.cache.DeleteScan(ctx, scan.ID)

	if err := s.requeuer.PublishToRetryQueue(ctx, job, retries); err != nil {
		return s.failScan(ctx, scan, cause)
	}

	s.log.WithScanID(scan.ID).Warnf("Scan retry %d/%d scheduled: %v",
		scan.RetryCount, queue.MaxRetries, cause)
	return nil
}

// failScan marks a scan as failed and updates the database
func (s *Service) failScan(ctx context.Context, scan *models.Scan, err error) error {
	scan.Status = models.ScanStatusFailed
	scan.ErrorMsg = err.Error()
	completed := time.Now()
	scan.CompletedAt = &completed

	if updateErr := s.repo.UpdateScan(ctx, scan); updateErr != nil {
		return fmt.Errorf("failed to update scan: %w (original error: %v)", updateErr, err)
	}
	s.cache.DeleteScan(ctx, scan.ID)
	s.cache.ReleaseLock(ctx, cache.URLLockKey(scan.SourceURL))

	duration := 0.0
	if scan.StartedAt != nil {
		duration = completed.Sub(*scan.StartedAt).Seconds()
	}
	metrics.RecordScanCompleted(scan.Status, duration)
	metrics.RecordError("scan", "pipeline")

	if notifyErr := s.webhooks.NotifyScanFailed(ctx, scan); notifyErr != nil {
		s.log.WithScanID(scan.ID).WithError(notifyErr).Warn("Failed to send scan.failed webhook")
	}

	return err
}
