package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipscan_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan Metrics
	ScansCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_scans_created_total",
			Help: "Total number of scans created",
		},
		[]string{"priority"},
	)

	ScansCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_scans_completed_total",
			Help: "Total number of finished scans",
		},
		[]string{"status"},
	)

	ScansInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipscan_scans_in_progress",
			Help: "Number of scans currently being processed",
		},
	)

	ScanQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipscan_scan_queue_depth",
			Help: "Number of scans waiting in queue",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipscan_scan_duration_seconds",
			Help:    "Scan processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		},
	)

	ScanQueueTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipscan_scan_queue_time_seconds",
			Help:    "Time scans spend waiting in queue",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// Pipeline Metrics
	FramesSampled = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipscan_frames_sampled",
			Help:    "Scene frames sampled per scan",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1 to 128 frames
		},
	)

	FramesUnique = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipscan_frames_unique",
			Help:    "Frames surviving deduplication per scan",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
	)

	FramesAnalyzedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_frames_analyzed_total",
			Help: "Total number of frames sent through vision analysis",
		},
		[]string{"status"},
	)

	// Vision Backend Metrics
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_backend_requests_total",
			Help: "Total number of vision backend requests",
		},
		[]string{"model", "status"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipscan_backend_request_duration_seconds",
			Help:    "Vision backend request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"model"},
	)

	MediaItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_media_items_total",
			Help: "Total number of media references reported",
		},
		[]string{"type"},
	)

	// Worker Metrics
	WorkerActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clipscan_worker_active",
			Help: "Number of active workers",
		},
		[]string{"worker_type"},
	)

	WorkerScansProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_worker_scans_processed_total",
			Help: "Total number of scans processed by workers",
		},
		[]string{"worker_id"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipscan_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipscan_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DatabaseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipscan_database_connections_active",
			Help: "Number of active database connections",
		},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipscan_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Business Metrics
	VideoDurationScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipscan_video_duration_scanned_seconds_total",
			Help: "Total duration of video scanned in seconds",
		},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordScanCreated records a scan creation
func RecordScanCreated(priority string) {
	ScansCreatedTotal.WithLabelValues(priority).Inc()
}

// RecordScanCompleted records a finished scan
func RecordScanCompleted(status string, duration float64) {
	ScansCompletedTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(duration)
}

// UpdateScanMetrics updates current scan gauges
func UpdateScanMetrics(inProgress, queueDepth int) {
	ScansInProgress.Set(float64(inProgress))
	ScanQueueDepth.Set(float64(queueDepth))
}

// RecordFrameCounts records per-scan pipeline frame counts
func RecordFrameCounts(sampled, unique int) {
	FramesSampled.Observe(float64(sampled))
	FramesUnique.Observe(float64(unique))
}

// RecordFrameAnalyzed records one frame passing through analysis
func RecordFrameAnalyzed(status string) {
	FramesAnalyzedTotal.WithLabelValues(status).Inc()
}

// RecordBackendRequest records a vision backend request
func RecordBackendRequest(model, status string, duration float64) {
	BackendRequestsTotal.WithLabelValues(model, status).Inc()
	BackendRequestDuration.WithLabelValues(model).Observe(duration)
}

// RecordMediaItem records one reported media reference
func RecordMediaItem(mediaType string) {
	MediaItemsTotal.WithLabelValues(mediaType).Inc()
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
