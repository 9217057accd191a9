package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mediaref/clipscan/pkg/models"
)

// rawItem is the loosely-typed shape of one item as the model reports it,
// before schema validation.
type rawItem struct {
	Type       *string  `json:"type"`
	Platform   *string  `json:"platform"`
	Title      *string  `json:"title"`
	Creator    *string  `json:"creator"`
	Confidence *float64 `json:"confidence"`
}

// ParseItems validates a textual model response into MediaItems. Accepted
// shapes: a bare object, an array of objects, null, or any of those wrapped
// in a {"media": ...} envelope, optionally inside markdown code fences.
// Malformed JSON is a *ParseError for the whole response. An item whose type
// is not one of the four enumerated kinds is dropped on its own; remaining
// items in the same response are kept. Out-of-range confidence is clamped to
// [0,1], never rejected. Zero items with a nil error is a valid outcome.
func ParseItems(raw string) ([]models.MediaItem, error) {
	text := stripCodeFences(raw)
	if text == "" {
		return nil, &ParseError{Reason: "empty response", Raw: raw}
	}

	payload := []byte(text)

	// Unwrap the {"media": ...} envelope when present. RawMessage keeps an
	// explicit null distinct from an absent key.
	var envelope struct {
		Media json.RawMessage `json:"media"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && len(envelope.Media) > 0 {
		payload = envelope.Media
	}

	raws, err := decodeItems(payload)
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Raw: raw}
	}

	items := make([]models.MediaItem, 0, len(raws))
	for _, r := range raws {
		if item, ok := validateItem(r); ok {
			items = append(items, item)
		}
	}

	return items, nil
}

// decodeItems accepts null, a single object, or an array of objects
func decodeItems(payload []byte) ([]rawItem, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var raws []rawItem
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("invalid item array: %w", err)
		}
		return raws, nil
	case '{':
		var raw rawItem
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("invalid item object: %w", err)
		}
		return []rawItem{raw}, nil
	default:
		return nil, fmt.Errorf("response is neither an object nor an array")
	}
}

// validateItem enforces the schema on one item. Returns ok=false when the
// type tag is missing or not one of the enumerated kinds; that single item
// is dropped without affecting its siblings.
func validateItem(raw rawItem) (models.MediaItem, bool) {
	if raw.Type == nil {
		return models.MediaItem{}, false
	}

	mediaType := models.MediaType(*raw.Type)
	if !mediaType.IsValid() {
		return models.MediaItem{}, false
	}

	item := models.MediaItem{
		Type:       mediaType,
		Platform:   raw.Platform,
		Title:      raw.Title,
		Creator:    raw.Creator,
		Confidence: clampConfidence(raw.Confidence),
	}

	return item, true
}

func clampConfidence(confidence *float64) *float64 {
	if confidence == nil {
		return nil
	}

	v := *confidence
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return &v
}

// stripCodeFences removes a leading ``` or ```json line and a trailing ```
// line, which models add despite being asked for bare JSON.
func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	if strings.HasSuffix(text, "```") {
		if idx := strings.LastIndex(text, "\n"); idx >= 0 {
			text = text[:idx]
		} else {
			text = strings.TrimSuffix(text, "```")
		}
	}

	return strings.TrimSpace(text)
}
