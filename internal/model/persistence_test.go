package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
)

func calibratedTable() analyzer.ThresholdTable {
	t := analyzer.DefaultThresholds()
	t.Patterns.SharpEdges = 0.1234567890123456789
	t.Colors.UniqueColors = 4217.5
	t.Noise.NaturalNoiseThreshold = 1e-17
	t.Symmetry.VerticalThreshold = 0.68
	return t
}

func TestExportImport_RoundTrip(t *testing.T) {
	table := calibratedTable()
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	data, err := Export(table, 12, 34, now)
	require.NoError(t, err)

	got, stats, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, table, got, "thresholds must round-trip exactly")
	assert.Equal(t, 12, stats.AIImagesCount)
	assert.Equal(t, 34, stats.RealImagesCount)
	assert.Equal(t, "2025-03-04T05:06:07Z", stats.LastUpdate)
}

func TestImport_MissingMetric(t *testing.T) {
	doc := mutate(t, func(m map[string]any) {
		delete(m["thresholds"].(map[string]any)["colors"].(map[string]any), "uniqueColors")
	})

	_, _, err := Import(doc)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedModel), "got %v", err)
	assert.Contains(t, err.Error(), "colors.uniqueColors")
}

func TestImport_MissingCategory(t *testing.T) {
	doc := mutate(t, func(m map[string]any) {
		delete(m["thresholds"].(map[string]any), "noise")
	})

	_, _, err := Import(doc)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedModel), "got %v", err)
	assert.Contains(t, err.Error(), "missing category: noise")
}

func TestImport_InvalidNumbers(t *testing.T) {
	testCases := []struct {
		name  string
		value any
	}{
		{"String", "0.5"},
		{"Null", nil},
		{"Bool", true},
		{"Overflow", json.Number("1e400")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := mutate(t, func(m map[string]any) {
				m["thresholds"].(map[string]any)["patterns"].(map[string]any)["sharpEdges"] = tc.value
			})
			_, _, err := Import(doc)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidNumber), "got %v", err)
		})
	}
}

func TestImport_Malformed(t *testing.T) {
	testCases := map[string]string{
		"Not JSON":           "{thresholds:",
		"Array":              "[]",
		"No thresholds":      `{"trainingStats":{"aiImagesCount":1}}`,
		"Category not map":   `{"thresholds":{"patterns":3}}`,
		"Negative count":     `{"thresholds":{},"trainingStats":{"aiImagesCount":-1}}`,
		"Fractional count":   `{"thresholds":{},"trainingStats":{"realImagesCount":1.5}}`,
		"Trailing document":  `{"thresholds":{}} {}`,
		"Non-string updated": `{"thresholds":{},"trainingStats":{"lastUpdate":5}}`,
	}

	for name, doc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Import([]byte(doc))
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedModel), "got %v", err)
		})
	}
}

func TestImport_IgnoresUnknownEntries(t *testing.T) {
	doc := mutate(t, func(m map[string]any) {
		th := m["thresholds"].(map[string]any)
		th["jpegBlocks"] = map[string]any{"blockiness": 0.05}
		th["patterns"].(map[string]any)["extra"] = 1
	})

	got, _, err := Import(doc)
	require.NoError(t, err)
	assert.Equal(t, calibratedTable(), got)
}

func TestImport_StatsOptional(t *testing.T) {
	data, err := json.Marshal(map[string]any{"thresholds": analyzer.DefaultThresholds()})
	require.NoError(t, err)

	got, stats, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, analyzer.DefaultThresholds(), got)
	assert.Zero(t, stats.AIImagesCount)
	assert.Empty(t, stats.LastUpdate)
}

// mutate exports calibratedTable, applies fn to the decoded document and
// re-encodes it.
func mutate(t *testing.T, fn func(m map[string]any)) []byte {
	t.Helper()
	data, err := Export(calibratedTable(), 1, 1, time.Now())
	require.NoError(t, err)

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	fn(m)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}
