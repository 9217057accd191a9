package report

import (
	"strings"

	"github.com/mediaref/clipscan/pkg/models"
)

// mediaKey is the normalized identity of a media item: two items with the
// same key are the same reference seen in different frames.
type mediaKey struct {
	mediaType models.MediaType
	platform  string
	title     string
}

func keyFor(item models.MediaItem) mediaKey {
	return mediaKey{
		mediaType: item.Type,
		platform:  normalize(item.Platform),
		title:     normalize(item.Title),
	}
}

func normalize(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

// confidenceValue orders confidences with null below every real value
func confidenceValue(c *float64) float64 {
	if c == nil {
		return -1
	}
	return *c
}

// Build merges per-frame results into the final ClipReport. Items from
// errored frames contribute nothing; non-error items are flattened in frame
// order and deduplicated on (type, platform, title) normalized
// case/whitespace-insensitively. On a duplicate the higher confidence wins,
// remaining ties keep the first occurrence, and the output order is always
// first-occurrence order, never confidence order. Pure data transformation:
// it cannot fail, and a report with zero media items is a valid result.
func Build(sourceURL, caption string, results []models.FrameResult) models.ClipReport {
	media := make(models.MediaList, 0)
	positions := make(map[mediaKey]int)

	for _, frame := range results {
		if frame.Failed() {
			continue
		}

		for _, item := range frame.Items {
			k := keyFor(item)
			pos, seen := positions[k]
			if !seen {
				positions[k] = len(media)
				media = append(media, item)
				continue
			}

			if confidenceValue(item.Confidence) > confidenceValue(media[pos].Confidence) {
				// Replacing in place keeps the first occurrence's position
				media[pos] = item
			}
		}
	}

	return models.ClipReport{
		SourceURL: sourceURL,
		Caption:   caption,
		Media:     media,
	}
}

// CountFailed returns how many frames carry an analysis error
func CountFailed(results []models.FrameResult) int {
	failed := 0
	for _, frame := range results {
		if frame.Failed() {
			failed++
		}
	}
	return failed
}
