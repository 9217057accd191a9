package models

import (
	"time"
)

// ScanOverview represents aggregated scan statistics over a time window
type ScanOverview struct {
	TotalScans        int64     `json:"total_scans" db:"total_scans"`
	CompletedScans    int64     `json:"completed_scans" db:"completed_scans"`
	FailedScans       int64     `json:"failed_scans" db:"failed_scans"`
	CancelledScans    int64     `json:"cancelled_scans" db:"cancelled_scans"`
	SuccessRate       float64   `json:"success_rate" db:"success_rate"`               // Completed / settled, 0-100
	AvgWaitTime       float64   `json:"avg_wait_time" db:"avg_wait_time"`             // Seconds queued before a worker picked up
	AvgScanTime       float64   `json:"avg_scan_time" db:"avg_scan_time"`             // Seconds from pickup to report
	TotalMediaFound   int64     `json:"total_media_found" db:"total_media_found"`     // Media items across all reports
	AvgMediaPerReport float64   `json:"avg_media_per_report" db:"avg_media_per_report"`
	AvgFramesSampled  float64   `json:"avg_frames_sampled" db:"avg_frames_sampled"`
	AvgFramesUnique   float64   `json:"avg_frames_unique" db:"avg_frames_unique"`
	FrameFailureRate  float64   `json:"frame_failure_rate" db:"frame_failure_rate"`   // Failed frame analyses / unique frames, 0-100
	Since             time.Time `json:"since"`
	LastUpdated       time.Time `json:"last_updated"`
}

// DailyScanCount represents scan volume for one calendar day
type DailyScanCount struct {
	Date      time.Time `json:"date" db:"date"`
	Total     int64     `json:"total" db:"total"`
	Completed int64     `json:"completed" db:"completed"`
	Failed    int64     `json:"failed" db:"failed"`
}

// PlatformCount represents how often one platform appears in detected media
type PlatformCount struct {
	Platform string `json:"platform" db:"platform"`
	Count    int64  `json:"count" db:"count"`
}

// TrendingPlatform represents a platform ranked by recent detection growth
type TrendingPlatform struct {
	Platform      string    `json:"platform"`
	Detections    int64     `json:"detections"`      // Appearances in the last 24 hours
	Growth        float64   `json:"growth"`          // Percentage growth vs the previous 24 hours
	TrendingScore float64   `json:"trending_score"`  // Composite score for ranking
	LastUpdated   time.Time `json:"last_updated"`
}
