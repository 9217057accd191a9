package vision

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaref/clipscan/pkg/models"
)

func TestParseItemsEnvelopeArray(t *testing.T) {
	raw := `{"media": [
		{"type": "music", "platform": "spotify", "title": "Blinding Lights", "creator": "The Weeknd", "confidence": 0.95},
		{"type": "book", "platform": null, "title": "Dune", "creator": "Frank Herbert", "confidence": 0.7}
	]}`

	items, err := ParseItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, models.MediaTypeMusic, items[0].Type)
	require.NotNil(t, items[0].Platform)
	assert.Equal(t, "spotify", *items[0].Platform)
	require.NotNil(t, items[0].Confidence)
	assert.Equal(t, 0.95, *items[0].Confidence)

	assert.Equal(t, models.MediaTypeBook, items[1].Type)
	assert.Nil(t, items[1].Platform)
}

func TestParseItemsEnvelopeSingleObject(t *testing.T) {
	raw := `{"media": {"type": "video", "platform": "youtube", "title": "some title", "creator": "a channel", "confidence": 0.5}}`

	items, err := ParseItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.MediaTypeVideo, items[0].Type)
}

func TestParseItemsEnvelopeNull(t *testing.T) {
	items, err := ParseItems(`{"media": null}`)
	require.NoError(t, err)
	assert.Empty(t, items, "null media means nothing recognized, not a failure")
}

func TestParseItemsEmptyArray(t *testing.T) {
	items, err := ParseItems(`{"media": []}`)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseItemsBareShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{
			name: "bare array",
			raw:  `[{"type": "article", "title": "headline"}]`,
			want: 1,
		},
		{
			name: "bare object",
			raw:  `{"type": "music", "title": "a song"}`,
			want: 1,
		},
		{
			name: "bare null",
			raw:  `null`,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseItems(tt.raw)
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestParseItemsCodeFences(t *testing.T) {
	raw := "```json\n{\"media\": [{\"type\": \"music\", \"title\": \"fenced\"}]}\n```"

	items, err := ParseItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Title)
	assert.Equal(t, "fenced", *items[0].Title)
}

func TestParseItemsInvalidTypeDropsOnlyThatItem(t *testing.T) {
	// One bad enum value must not poison its siblings
	raw := `{"media": [
		{"type": "podcast", "title": "dropped"},
		{"type": "music", "title": "kept", "confidence": 0.8},
		{"type": "MUSIC", "title": "also dropped"}
	]}`

	items, err := ParseItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Title)
	assert.Equal(t, "kept", *items[0].Title)
}

func TestParseItemsMissingTypeDropsItem(t *testing.T) {
	raw := `{"media": [{"title": "no type at all"}, {"type": "book", "title": "ok"}]}`

	items, err := ParseItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.MediaTypeBook, items[0].Type)
}

func TestParseItemsConfidenceClamped(t *testing.T) {
	raw := `{"media": [
		{"type": "music", "title": "hot", "confidence": 1.7},
		{"type": "music", "title": "cold", "confidence": -0.3},
		{"type": "music", "title": "unset"}
	]}`

	items, err := ParseItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.NotNil(t, items[0].Confidence)
	assert.Equal(t, 1.0, *items[0].Confidence)
	require.NotNil(t, items[1].Confidence)
	assert.Equal(t, 0.0, *items[1].Confidence)
	assert.Nil(t, items[2].Confidence, "missing confidence stays null, never fabricated")
}

func TestParseItemsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "the frame shows a spotify player"},
		{name: "truncated", raw: `{"media": [{"type": "mus`},
		{name: "scalar", raw: `42`},
		{name: "empty", raw: ""},
		{name: "fences only", raw: "```\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItems(tt.raw)
			require.Error(t, err)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "expected a ParseError, got %T", err)
		})
	}
}

func TestParseItemsIdempotent(t *testing.T) {
	raw := `{"media": [{"type": "music", "platform": "spotify", "title": "Blinding Lights", "creator": "The Weeknd", "confidence": 0.9}]}`

	first, err := ParseItems(raw)
	require.NoError(t, err)
	second, err := ParseItems(raw)
	require.NoError(t, err)

	assert.Equal(t, first, second, "a fixed response must always parse to the same items")
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "no fences",
			raw:  `{"media": []}`,
			want: `{"media": []}`,
		},
		{
			name: "json fence",
			raw:  "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "plain fence",
			raw:  "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "surrounding whitespace",
			raw:  "\n  ```json\n{\"a\": 1}\n```  \n",
			want: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.raw))
		})
	}
}
