// Package model serializes threshold tables and keeps a model file in sync.
package model

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
)

//go:embed model.schema.json
var schemaSource string

const schemaURL = "https://github.com/anime-shed/ai-detector-go/model.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// TrainingStats records how many samples produced a table.
type TrainingStats struct {
	AIImagesCount   int    `json:"aiImagesCount"`
	RealImagesCount int    `json:"realImagesCount"`
	LastUpdate      string `json:"lastUpdate"`
}

// Document is the persisted model.
type Document struct {
	Thresholds    analyzer.ThresholdTable `json:"thresholds"`
	TrainingStats TrainingStats           `json:"trainingStats"`
}

// Export serializes the table and sample counts. now is stamped as
// lastUpdate in RFC 3339 UTC.
func Export(t analyzer.ThresholdTable, aiCount, realCount int, now time.Time) ([]byte, error) {
	doc := Document{
		Thresholds: t,
		TrainingStats: TrainingStats{
			AIImagesCount:   aiCount,
			RealImagesCount: realCount,
			LastUpdate:      now.UTC().Format(time.RFC3339Nano),
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode model", err)
	}
	return data, nil
}

// Import parses and validates a model. Every default category and threshold
// must be present with a finite numeric value; unknown entries are ignored.
func Import(data []byte) (analyzer.ThresholdTable, TrainingStats, error) {
	var zero analyzer.ThresholdTable

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return zero, TrainingStats{}, apperrors.NewMalformedModelError("model is not valid JSON", err)
	}
	if dec.More() {
		return zero, TrainingStats{}, apperrors.NewMalformedModelError("trailing data after model document", nil)
	}

	sch, err := documentSchema()
	if err != nil {
		return zero, TrainingStats{}, apperrors.NewInternalError("model schema unavailable", err)
	}
	if err := sch.Validate(raw); err != nil {
		return zero, TrainingStats{}, apperrors.NewMalformedModelError("model does not match schema", err)
	}

	root := raw.(map[string]any)
	categories := root["thresholds"].(map[string]any)

	var table analyzer.ThresholdTable
	for _, b := range analyzer.ThresholdBindings() {
		cat, ok := categories[b.Category].(map[string]any)
		if !ok {
			return zero, TrainingStats{}, apperrors.NewMalformedModelError("missing category: "+b.Category, nil)
		}
		rv, ok := cat[b.Name]
		if !ok {
			return zero, TrainingStats{}, apperrors.NewMalformedModelError("missing threshold: "+b.Key(), nil)
		}
		v, err := finiteNumber(rv)
		if err != nil {
			return zero, TrainingStats{}, apperrors.NewInvalidNumberError(fmt.Sprintf("%s: %v", b.Key(), err))
		}
		table.Set(b, v)
	}

	return table, trainingStats(root["trainingStats"]), nil
}

func finiteNumber(v any) (float64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("value %v is not a number", v)
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %s is not a finite number", n)
	}
	return f, nil
}

// trainingStats reads the already schema-checked stats block.
func trainingStats(v any) TrainingStats {
	var ts TrainingStats
	m, ok := v.(map[string]any)
	if !ok {
		return ts
	}
	if n, ok := m["aiImagesCount"].(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			ts.AIImagesCount = int(i)
		}
	}
	if n, ok := m["realImagesCount"].(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			ts.RealImagesCount = int(i)
		}
	}
	if s, ok := m["lastUpdate"].(string); ok {
		ts.LastUpdate = s
	}
	return ts
}
