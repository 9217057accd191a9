package monitoring

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Metrics holds system metrics
type Metrics struct {
	QueueDepth      int              `json:"queue_depth"`
	DLQDepth        int              `json:"dlq_depth"`
	ActiveScans     int              `json:"active_scans"`
	TotalScans      int64            `json:"total_scans"`
	CompletedScans  int64            `json:"completed_scans"`
	FailedScans     int64            `json:"failed_scans"`
	CancelledScans  int64            `json:"cancelled_scans"`
	AverageWaitTime float64          `json:"average_wait_time_seconds"`
	AverageScanTime float64          `json:"average_scan_time_seconds"`
	MediaTypeCounts map[string]int64 `json:"media_type_counts"`
	WorkerCount     int              `json:"worker_count"`
	HealthyWorkers  int              `json:"healthy_workers"`
	LastUpdated     time.Time        `json:"last_updated"`
}

// WorkerHealth holds worker health information
type WorkerHealth struct {
	WorkerID       string    `json:"worker_id"`
	Status         string    `json:"status"`
	LastHeartbeat  time.Time `json:"last_heartbeat"`
	CurrentScan    string    `json:"current_scan,omitempty"`
	ProcessedScans int64     `json:"processed_scans"`
}

// Monitor provides system monitoring and health checks
type Monitor struct {
	metrics       *Metrics
	workers       map[string]*WorkerHealth
	mu            sync.RWMutex
	repo          MetricsRepository
	queueProvider QueueProvider
}

// MetricsRepository defines the interface for metrics data
type MetricsRepository interface {
	GetScanStats(ctx context.Context) (total, completed, failed, cancelled int64, err error)
	GetAverageWaitTime(ctx context.Context) (float64, error)
	GetAverageScanTime(ctx context.Context) (float64, error)
	GetActiveWorkers(ctx context.Context) (int, error)
	GetMediaTypeCounts(ctx context.Context) (map[string]int64, error)
}

// QueueProvider defines the interface for queue metrics
type QueueProvider interface {
	GetQueueDepth() (int, error)
	GetDLQDepth() (int, error)
}

// NewMonitor creates a new monitoring service
func NewMonitor(repo MetricsRepository, queueProvider QueueProvider) *Monitor {
	return &Monitor{
		metrics: &Metrics{
			MediaTypeCounts: make(map[string]int64),
			LastUpdated:     time.Now(),
		},
		workers:       make(map[string]*WorkerHealth),
		repo:          repo,
		queueProvider: queueProvider,
	}
}

// Start begins the monitoring service
func (m *Monitor) Start(ctx context.Context) {
	go m.collectMetrics(ctx)
	go m.checkWorkerHealth(ctx)
}

// collectMetrics periodically collects system metrics
func (m *Monitor) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.updateMetrics(ctx); err != nil {
				log.Printf("Failed to update metrics: %v", err)
			}
		}
	}
}

// updateMetrics updates the current metrics
func (m *Monitor) updateMetrics(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Get queue depths
	queueDepth, err := m.queueProvider.GetQueueDepth()
	if err != nil {
		return fmt.Errorf("failed to get queue depth: %w", err)
	}
	m.metrics.QueueDepth = queueDepth

	dlqDepth, err := m.queueProvider.GetDLQDepth()
	if err != nil {
		return fmt.Errorf("failed to get DLQ depth: %w", err)
	}
	m.metrics.DLQDepth = dlqDepth

	// Get scan statistics
	total, completed, failed, cancelled, err := m.repo.GetScanStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get scan stats: %w", err)
	}
	m.metrics.TotalScans = total
	m.metrics.CompletedScans = completed
	m.metrics.FailedScans = failed
	m.metrics.CancelledScans = cancelled

	// Calculate active scans
	m.metrics.ActiveScans = int(total - completed - failed - cancelled)

	// Get average times
	avgWait, err := m.repo.GetAverageWaitTime(ctx)
	if err == nil {
		m.metrics.AverageWaitTime = avgWait
	}

	avgScan, err := m.repo.GetAverageScanTime(ctx)
	if err == nil {
		m.metrics.AverageScanTime = avgScan
	}

	// Get media type breakdown across completed reports
	typeCounts, err := m.repo.GetMediaTypeCounts(ctx)
	if err == nil {
		m.metrics.MediaTypeCounts = typeCounts
	}

	// Get worker count
	workerCount, err := m.repo.GetActiveWorkers(ctx)
	if err == nil {
		m.metrics.WorkerCount = workerCount
	}

	// Count healthy workers
	healthyCount := 0
	for _, worker := range m.workers {
		if worker.Status == "healthy" {
			healthyCount++
		}
	}
	m.metrics.HealthyWorkers = healthyCount

	m.metrics.LastUpdated = time.Now()

	return nil
}

// checkWorkerHealth checks worker health status
func (m *Monitor) checkWorkerHealth(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.updateWorkerHealth()
		}
	}
}

// updateWorkerHealth updates worker health status
func (m *Monitor) updateWorkerHealth() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for workerID, worker := range m.workers {
		// Mark worker as unhealthy if no heartbeat in 2 minutes
		if now.Sub(worker.LastHeartbeat) > 2*time.Minute {
			worker.Status = "unhealthy"
			log.Printf("Worker %s marked as unhealthy (no heartbeat)", workerID)
		}
	}
}

// RegisterWorkerHeartbeat registers a worker heartbeat
func (m *Monitor) RegisterWorkerHeartbeat(workerID, currentScan string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	worker, exists := m.workers[workerID]
	if !exists {
		worker = &WorkerHealth{
			WorkerID: workerID,
			Status:   "healthy",
		}
		m.workers[workerID] = worker
	}

	worker.LastHeartbeat = time.Now()
	worker.CurrentScan = currentScan
	worker.Status = "healthy"
}

// IncrementWorkerScanCount increments processed scan count for a worker
func (m *Monitor) IncrementWorkerScanCount(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if worker, exists := m.workers[workerID]; exists {
		worker.ProcessedScans++
	}
}

// GetMetrics returns current system metrics
func (m *Monitor) GetMetrics() *Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Create a copy to avoid race conditions
	metrics := *m.metrics
	return &metrics
}

// GetWorkerHealth returns health status of all workers
func (m *Monitor) GetWorkerHealth() []*WorkerHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	workers := make([]*WorkerHealth, 0, len(m.workers))
	for _, worker := range m.workers {
		// Create a copy
		w := *worker
		workers = append(workers, &w)
	}

	return workers
}

// GetSystemHealth returns overall system health
func (m *Monitor) GetSystemHealth() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Check various health indicators
	if m.metrics.DLQDepth > 100 {
		return "critical"
	}

	if m.metrics.QueueDepth > 1000 {
		return "warning"
	}

	if m.metrics.WorkerCount > 0 {
		healthyRatio := float64(m.metrics.HealthyWorkers) / float64(m.metrics.WorkerCount)
		if healthyRatio < 0.5 {
			return "critical"
		} else if healthyRatio < 0.8 {
			return "warning"
		}
	}

	if m.metrics.TotalScans > 0 {
		failureRate := float64(m.metrics.FailedScans) / float64(m.metrics.TotalScans)
		if failureRate > 0.1 {
			return "warning"
		}
	}

	return "healthy"
}

// GetAlerts returns current system alerts
func (m *Monitor) GetAlerts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var alerts []string

	if m.metrics.DLQDepth > 100 {
		alerts = append(alerts, fmt.Sprintf("High DLQ depth: %d messages", m.metrics.DLQDepth))
	}

	if m.metrics.QueueDepth > 1000 {
		alerts = append(alerts, fmt.Sprintf("High queue depth: %d scans pending", m.metrics.QueueDepth))
	}

	if m.metrics.WorkerCount > 0 {
		healthyRatio := float64(m.metrics.HealthyWorkers) / float64(m.metrics.WorkerCount)
		if healthyRatio < 0.8 {
			alerts = append(alerts, fmt.Sprintf("Unhealthy workers: %d/%d",
				m.metrics.WorkerCount-m.metrics.HealthyWorkers, m.metrics.WorkerCount))
		}
	}

	if m.metrics.TotalScans > 0 {
		failureRate := float64(m.metrics.FailedScans) / float64(m.metrics.TotalScans)
		if failureRate > 0.1 {
			alerts = append(alerts, fmt.Sprintf("High failure rate: %.1f%%", failureRate*100))
		}
	}

	return alerts
}
