package models

import (
	"database/sql/driver"
	"encoding/json"
)

// MediaType enumerates the kinds of media a frame can reference
type MediaType string

const (
	MediaTypeMusic   MediaType = "music"
	MediaTypeVideo   MediaType = "video"
	MediaTypeArticle MediaType = "article"
	MediaTypeBook    MediaType = "book"
)

// IsValid reports whether the type is one of the four recognized kinds
func (t MediaType) IsValid() bool {
	switch t {
	case MediaTypeMusic, MediaTypeVideo, MediaTypeArticle, MediaTypeBook:
		return true
	}
	return false
}

// MediaItem is one media reference recognized in a frame. Optional fields
// are nil when the model could not determine them; nil reflects model
// uncertainty, not a pipeline failure.
type MediaItem struct {
	Type       MediaType `json:"type"`
	Platform   *string   `json:"platform"`
	Title      *string   `json:"title"`
	Creator    *string   `json:"creator"`
	Confidence *float64  `json:"confidence"`
}

// MediaList is an ordered list of media items stored as a JSONB column
type MediaList []MediaItem

// Value implements driver.Valuer for database storage
func (ml MediaList) Value() (driver.Value, error) {
	if ml == nil {
		ml = MediaList{}
	}
	return json.Marshal(ml)
}

// Scan implements sql.Scanner for database retrieval
func (ml *MediaList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, ml)
}
