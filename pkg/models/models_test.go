package models

import (
	"encoding/json"
	"testing"
)

func TestScanOptionsValue(t *testing.T) {
	opts := ScanOptions{
		SceneThreshold: 0.05,
		HashDistance:   10,
		Model:          "gemini-2.5-flash-lite",
		KeepArtifacts:  true,
	}

	value, err := opts.Value()
	if err != nil {
		t.Fatalf("Failed to get value: %v", err)
	}

	// Value should be JSON
	var result ScanOptions
	if err := json.Unmarshal(value.([]byte), &result); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if result.SceneThreshold != 0.05 {
		t.Errorf("Expected scene threshold 0.05, got %v", result.SceneThreshold)
	}
	if result.HashDistance != 10 {
		t.Errorf("Expected hash distance 10, got %v", result.HashDistance)
	}
}

func TestScanOptionsScan(t *testing.T) {
	jsonData := []byte(`{"scene_threshold":0.3,"hash_distance":4,"model":"m","keep_artifacts":false}`)

	var opts ScanOptions
	if err := opts.Scan(jsonData); err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}

	if opts.SceneThreshold != 0.3 {
		t.Errorf("Expected scene threshold 0.3, got %v", opts.SceneThreshold)
	}
	if opts.Model != "m" {
		t.Errorf("Expected model m, got %v", opts.Model)
	}
}

func TestScanOptionsScanNil(t *testing.T) {
	var opts ScanOptions
	if err := opts.Scan(nil); err != nil {
		t.Fatalf("Failed to scan nil: %v", err)
	}

	if opts.HashDistance != 0 {
		t.Error("Expected zero options after scanning nil")
	}
}

func TestMediaListValue(t *testing.T) {
	title := "Blinding Lights"
	platform := "spotify"
	conf := 0.9
	list := MediaList{
		{Type: MediaTypeMusic, Platform: &platform, Title: &title, Confidence: &conf},
	}

	value, err := list.Value()
	if err != nil {
		t.Fatalf("Failed to get value: %v", err)
	}

	var result MediaList
	if err := json.Unmarshal(value.([]byte), &result); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result))
	}
	if result[0].Type != MediaTypeMusic {
		t.Errorf("Expected music, got %s", result[0].Type)
	}
	if result[0].Title == nil || *result[0].Title != "Blinding Lights" {
		t.Errorf("Expected title to round-trip, got %v", result[0].Title)
	}
	if result[0].Creator != nil {
		t.Errorf("Expected nil creator, got %v", *result[0].Creator)
	}
}

func TestMediaListValueNil(t *testing.T) {
	var list MediaList

	value, err := list.Value()
	if err != nil {
		t.Fatalf("Failed to get value: %v", err)
	}

	// A nil list must serialize as an empty array, not JSON null
	if string(value.([]byte)) != "[]" {
		t.Errorf("Expected [], got %s", value.([]byte))
	}
}

func TestMediaListScan(t *testing.T) {
	jsonData := []byte(`[{"type":"book","platform":null,"title":"Dune","creator":"Frank Herbert","confidence":0.8}]`)

	var list MediaList
	if err := list.Scan(jsonData); err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}

	if len(list) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(list))
	}
	if list[0].Platform != nil {
		t.Errorf("Expected nil platform, got %v", *list[0].Platform)
	}
	if list[0].Creator == nil || *list[0].Creator != "Frank Herbert" {
		t.Errorf("Expected creator Frank Herbert, got %v", list[0].Creator)
	}
}

func TestMediaTypeIsValid(t *testing.T) {
	valid := []MediaType{MediaTypeMusic, MediaTypeVideo, MediaTypeArticle, MediaTypeBook}
	for _, mt := range valid {
		if !mt.IsValid() {
			t.Errorf("Expected %s to be valid", mt)
		}
	}

	invalid := []MediaType{"", "podcast", "Music", "MUSIC", "song"}
	for _, mt := range invalid {
		if mt.IsValid() {
			t.Errorf("Expected %q to be invalid", mt)
		}
	}
}

func TestFrameResultFailed(t *testing.T) {
	ok := FrameResult{FrameIndex: 0, Items: []MediaItem{{Type: MediaTypeVideo}}}
	if ok.Failed() {
		t.Error("Expected successful result not to be failed")
	}

	bad := FrameResult{FrameIndex: 1, Error: "backend timeout"}
	if !bad.Failed() {
		t.Error("Expected errored result to be failed")
	}
}

func TestReportClipEmptyMedia(t *testing.T) {
	r := Report{ScanID: "s1", SourceURL: "https://example.com/clip", Caption: "caption text"}

	clip := r.Clip()
	if clip.Media == nil {
		t.Error("Expected empty media list, not nil")
	}
	if len(clip.Media) != 0 {
		t.Errorf("Expected 0 media items, got %d", len(clip.Media))
	}
	if clip.Caption != "caption text" {
		t.Errorf("Expected caption preserved, got %q", clip.Caption)
	}
}

func TestScanStatusConstants(t *testing.T) {
	statuses := []string{
		ScanStatusPending,
		ScanStatusQueued,
		ScanStatusProcessing,
		ScanStatusCompleted,
		ScanStatusFailed,
		ScanStatusCancelled,
	}

	for _, status := range statuses {
		if status == "" {
			t.Error("Scan status constant is empty")
		}
	}
}
