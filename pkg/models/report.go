package models

import (
	"time"
)

// FrameResult holds the outcome of analyzing a single unique frame.
// A non-empty Error means analysis failed for this frame and Items is empty;
// other frames are unaffected.
type FrameResult struct {
	FrameIndex int         `json:"frame_index"`
	Items      []MediaItem `json:"items"`
	Error      string      `json:"error,omitempty"`
}

// Failed reports whether analysis of this frame produced an error
func (fr FrameResult) Failed() bool {
	return fr.Error != ""
}

// ClipReport is the terminal artifact of a scan: the clip's caption plus the
// ordered, deduplicated media references found across all analyzed frames.
// A report with zero media items is a valid, successful result.
type ClipReport struct {
	SourceURL string    `json:"url"`
	Caption   string    `json:"caption"`
	Media     MediaList `json:"media"`
}

// Report is the persisted form of a ClipReport with per-scan frame counters
type Report struct {
	ID            string    `json:"id" db:"id"`
	ScanID        string    `json:"scan_id" db:"scan_id"`
	SourceURL     string    `json:"source_url" db:"source_url"`
	Caption       string    `json:"caption" db:"caption"`
	Media         MediaList `json:"media" db:"media"`
	FramesSampled int       `json:"frames_sampled" db:"frames_sampled"`
	FramesUnique  int       `json:"frames_unique" db:"frames_unique"`
	FramesFailed  int       `json:"frames_failed" db:"frames_failed"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Clip returns the wire-form ClipReport carried by this row
func (r *Report) Clip() ClipReport {
	media := r.Media
	if media == nil {
		media = MediaList{}
	}
	return ClipReport{
		SourceURL: r.SourceURL,
		Caption:   r.Caption,
		Media:     media,
	}
}
