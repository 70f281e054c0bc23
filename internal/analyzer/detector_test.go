package analyzer_test

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"testing"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	"github.com/anime-shed/ai-detector-go/internal/analyzer/analyzertest"
	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
)

func TestAnalyze_Idempotent(t *testing.T) {
	det := analyzer.NewDetector(analyzer.DefaultOptions())
	buf := analyzertest.Noise(120, 90, 21)
	table := analyzer.DefaultThresholds()

	first, err := det.Analyze(buf, table)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := det.Analyze(buf, table)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("Expected identical results:\n%s\n%s", a, b)
	}
}

func TestAnalyze_ComposesComponents(t *testing.T) {
	det := analyzer.NewDetector(analyzer.DefaultOptions())
	buf := analyzertest.Solid(64, 64, color.NRGBA{128, 128, 128, 255})

	res, err := det.Analyze(buf, analyzer.DefaultThresholds())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !approx(res.Score, 15) {
		t.Errorf("Expected score 15, got %f", res.Score)
	}
	if len(res.Indicators) == 0 {
		t.Error("Expected indicators for a flat image")
	}
	if res.Features.Colors.UniqueColors != 1 {
		t.Errorf("Expected feature set to be attached, got %+v", res.Features.Colors)
	}
}

func TestAnalyze_ValidationErrorBeforeScan(t *testing.T) {
	det := analyzer.NewDetector(analyzer.DefaultOptions())
	_, err := det.Analyze(&analyzer.PixelBuffer{Width: 5000, Height: 60, Pix: make([]byte, 5000*60*4)}, analyzer.DefaultThresholds())
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestAnalyzeBatch_PreservesOrder(t *testing.T) {
	pool := analyzer.NewWorkerPool(3)
	pool.Start()
	defer pool.Close()

	det := analyzer.NewDetector(analyzer.DefaultOptions())
	bufs := []*analyzer.PixelBuffer{
		analyzertest.Solid(64, 64, color.NRGBA{1, 2, 3, 255}),
		analyzertest.Checkerboard(64, 64),
		analyzertest.Noise(64, 64, 4),
	}

	results, err := analyzer.AnalyzeBatch(context.Background(), pool, det, bufs, analyzer.DefaultThresholds())
	if err != nil {
		t.Fatalf("AnalyzeBatch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Features.Colors.UniqueColors != 1 || results[1].Features.Colors.UniqueColors != 2 {
		t.Error("Expected results in input order")
	}
}

func TestAnalyzeBatch_ReportsFirstFailure(t *testing.T) {
	det := analyzer.NewDetector(analyzer.DefaultOptions())
	bufs := []*analyzer.PixelBuffer{
		analyzertest.Solid(64, 64, color.NRGBA{1, 2, 3, 255}),
		{Width: 64, Height: 64, Pix: make([]byte, 3)},
	}

	results, err := analyzer.AnalyzeBatch(context.Background(), nil, det, bufs, analyzer.DefaultThresholds())
	if err == nil || results != nil {
		t.Fatal("Expected batch failure with no results")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected wrapped validation error, got %v", err)
	}
}

func TestAnalyzeBatch_CancelledContext(t *testing.T) {
	det := analyzer.NewDetector(analyzer.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := analyzer.AnalyzeBatch(ctx, nil, det, []*analyzer.PixelBuffer{analyzertest.Noise(64, 64, 1)}, analyzer.DefaultThresholds())
	if !errors.Is(err, context.Canceled) || results != nil {
		t.Fatalf("Expected context.Canceled with no results, got %v, %v", results, err)
	}
}

func TestThresholdTable_LookupAndMap(t *testing.T) {
	table := analyzer.DefaultThresholds()

	v, ok := table.Lookup("colors", "uniqueColors")
	if !ok || v != 3500 {
		t.Errorf("Expected uniqueColors 3500, got %f (%v)", v, ok)
	}
	if _, ok := table.Lookup("colors", "nope"); ok {
		t.Error("Expected unknown threshold lookup to fail")
	}

	m := table.Map()
	if len(m) != len(analyzer.ThresholdCategories()) {
		t.Errorf("Expected %d categories, got %d", len(analyzer.ThresholdCategories()), len(m))
	}
	if m["noise"]["naturalNoiseThreshold"] != 0.03 {
		t.Errorf("Unexpected map %v", m["noise"])
	}

	copied := table
	copied.Patterns.SharpEdges = 0.5
	if table.Patterns.SharpEdges != 0.06 {
		t.Error("ThresholdTable assignment must copy")
	}
}
