package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Scan represents one requested analysis of a clip
type Scan struct {
	ID          string      `json:"id" db:"id"`
	SourceURL   string      `json:"source_url" db:"source_url"`
	Status      string      `json:"status" db:"status"`
	Priority    int         `json:"priority" db:"priority"`
	Options     ScanOptions `json:"options" db:"options"`
	ErrorMsg    string      `json:"error_msg,omitempty" db:"error_msg"`
	RetryCount  int         `json:"retry_count" db:"retry_count"`
	WorkerID    string      `json:"worker_id,omitempty" db:"worker_id"`
	StartedAt   *time.Time  `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// ScanOptions holds the tunable pipeline parameters for a scan.
// SceneThreshold is the scene-change sensitivity (lower finds more frames),
// HashDistance the Hamming bound below which two frames count as duplicates.
type ScanOptions struct {
	SceneThreshold float64 `json:"scene_threshold"`
	HashDistance   int     `json:"hash_distance"`
	Model          string  `json:"model"`
	KeepArtifacts  bool    `json:"keep_artifacts"`
}

// Value implements driver.Valuer for database storage
func (so ScanOptions) Value() (driver.Value, error) {
	return json.Marshal(so)
}

// Scan implements sql.Scanner for database retrieval
func (so *ScanOptions) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, so)
}

// ScanJob is the queue message dispatched to workers
type ScanJob struct {
	ScanID    string      `json:"scan_id"`
	SourceURL string      `json:"source_url"`
	Options   ScanOptions `json:"options"`
	Priority  int         `json:"priority"`
	CreatedAt time.Time   `json:"created_at"`
}

// ScanStatus constants
const (
	ScanStatusPending    = "pending"
	ScanStatusQueued     = "queued"
	ScanStatusProcessing = "processing"
	ScanStatusCompleted  = "completed"
	ScanStatusFailed     = "failed"
	ScanStatusCancelled  = "cancelled"
)

// ScanPriority constants
const (
	ScanPriorityLow    = 0
	ScanPriorityNormal = 5
	ScanPriorityHigh   = 10
)
