package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mediaref/clipscan/pkg/models"
)

// ScanScheduler manages scan scheduling with priority and resource awareness
type ScanScheduler struct {
	queue         *PriorityQueue
	mu            sync.RWMutex
	maxConcurrent int
	activeScans   int
	repo          Repository
	publisher     ScanPublisher
	ctx           context.Context
	cancel        context.CancelFunc
}

// Repository defines the interface for scan persistence
type Repository interface {
	GetPendingScans(ctx context.Context, limit int) ([]*models.Scan, error)
	GetScansByStatus(ctx context.Context) (map[string]int64, error)
	UpdateScanStatus(ctx context.Context, scanID, status string) error
	GetScan(ctx context.Context, id string) (*models.Scan, error)
}

// ScanPublisher defines the interface for publishing scans to the queue
type ScanPublisher interface {
	PublishScan(ctx context.Context, job *models.ScanJob) error
}

// NewScheduler creates a new scan scheduler
func NewScheduler(repo Repository, publisher ScanPublisher, maxConcurrent int) *ScanScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &ScanScheduler{
		queue:         &PriorityQueue{},
		maxConcurrent: maxConcurrent,
		activeScans:   0,
		repo:          repo,
		publisher:     publisher,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins the scheduler
func (s *ScanScheduler) Start() error {
	heap.Init(s.queue)

	// Load pending scans from database
	if err := s.loadPendingScans(); err != nil {
		return fmt.Errorf("failed to load pending scans: %w", err)
	}

	// Start scheduler loop
	go s.scheduleLoop()

	log.Println("Scan scheduler started")
	return nil
}

// Stop stops the scheduler
func (s *ScanScheduler) Stop() {
	s.cancel()
	log.Println("Scan scheduler stopped")
}

// ScheduleScan adds a scan to the scheduling queue
func (s *ScanScheduler) ScheduleScan(scan *models.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &QueueItem{
		Scan:      scan,
		Priority:  scan.Priority,
		Timestamp: time.Now(),
	}

	heap.Push(s.queue, item)
	return nil
}

// loadPendingScans loads pending scans from the database
func (s *ScanScheduler) loadPendingScans() error {
	scans, err := s.repo.GetPendingScans(s.ctx, 1000)
	if err != nil {
		return err
	}

	for _, scan := range scans {
		if err := s.ScheduleScan(scan); err != nil {
			log.Printf("Failed to schedule scan %s: %v", scan.ID, err)
		}
	}

	log.Printf("Loaded %d pending scans", len(scans))
	return nil
}

// scheduleLoop is the main scheduling loop
func (s *ScanScheduler) scheduleLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.refreshActiveScans()
			s.processQueue()
		}
	}
}

// refreshActiveScans rebuilds the in-flight count from scan statuses.
// Completions happen in worker processes, so the local count drifts
// between ticks.
func (s *ScanScheduler) refreshActiveScans() {
	counts, err := s.repo.GetScansByStatus(s.ctx)
	if err != nil {
		log.Printf("Failed to refresh active scan count: %v", err)
		return
	}

	s.mu.Lock()
	s.activeScans = int(counts[models.ScanStatusQueued] + counts[models.ScanStatusProcessing])
	s.mu.Unlock()
}

// processQueue dispatches scans from the priority queue
func (s *ScanScheduler) processQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check if we can dispatch more scans
	for s.activeScans < s.maxConcurrent && s.queue.Len() > 0 {
		item := heap.Pop(s.queue).(*QueueItem)

		job := &models.ScanJob{
			ScanID:    item.Scan.ID,
			SourceURL: item.Scan.SourceURL,
			Options:   item.Scan.Options,
			Priority:  item.Scan.Priority,
			CreatedAt: item.Scan.CreatedAt,
		}

		// Publish scan to worker queue
		if err := s.publisher.PublishScan(s.ctx, job); err != nil {
			log.Printf("Failed to publish scan %s: %v", item.Scan.ID, err)
			// Re-queue the scan
			heap.Push(s.queue, item)
			break
		}

		// Update scan status to queued
		if err := s.repo.UpdateScanStatus(s.ctx, item.Scan.ID, models.ScanStatusQueued); err != nil {
			log.Printf("Failed to update scan status %s: %v", item.Scan.ID, err)
		}

		s.activeScans++
		log.Printf("Scheduled scan %s (priority: %d, active: %d/%d)",
			item.Scan.ID, item.Priority, s.activeScans, s.maxConcurrent)
	}
}

// ScanCompleted notifies the scheduler that a scan has finished
func (s *ScanScheduler) ScanCompleted(scanID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeScans > 0 {
		s.activeScans--
	}

	log.Printf("Scan %s completed (active: %d/%d)", scanID, s.activeScans, s.maxConcurrent)
}

// GetQueueDepth returns the current queue depth
func (s *ScanScheduler) GetQueueDepth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queue.Len()
}

// GetActiveScans returns the number of active scans
func (s *ScanScheduler) GetActiveScans() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeScans
}

// PriorityQueue implements a priority queue for scans
type PriorityQueue []*QueueItem

// QueueItem represents a scan in the priority queue
type QueueItem struct {
	Scan      *models.Scan
	Priority  int
	Timestamp time.Time
	Index     int
}

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	// Higher priority first
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority > pq[j].Priority
	}
	// If same priority, FIFO (earlier timestamp first)
	return pq[i].Timestamp.Before(pq[j].Timestamp)
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*QueueItem)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	*pq = old[0 : n-1]
	return item
}
