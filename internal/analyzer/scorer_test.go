package analyzer_test

import (
	"image/color"
	"testing"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	"github.com/anime-shed/ai-detector-go/internal/analyzer/analyzertest"
)

func uniformTable(v float64) analyzer.ThresholdTable {
	var t analyzer.ThresholdTable
	for _, b := range analyzer.ThresholdBindings() {
		t.Set(b, v)
	}
	return t
}

func TestScore_SolidBuffer(t *testing.T) {
	det := analyzer.NewDetector(analyzer.DefaultOptions())
	fs, err := det.Extract(analyzertest.Solid(64, 64, color.NRGBA{128, 128, 128, 255}))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	res := det.Score(fs, analyzer.DefaultThresholds())

	// colorBanding 0 < 0.22 gives the full 10, symmetry 1.0 gives 5
	if !approx(res.Score, 15) {
		t.Errorf("Expected score 15, got %f", res.Score)
	}
	if len(res.Details) != 2 || !approx(res.Details["colorBanding"], 10) || !approx(res.Details["symmetry"], 5) {
		t.Errorf("Unexpected details %v", res.Details)
	}
}

func TestScore_CheckerboardCapsContributions(t *testing.T) {
	det := analyzer.NewDetector(analyzer.DefaultOptions())
	fs, err := det.Extract(analyzertest.Checkerboard(100, 100))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	res := det.Score(fs, analyzer.DefaultThresholds())

	// sharpEdges 15 (capped) + uniformity 20 + complexity 15 (capped) + colorBanding 10
	if !approx(res.Score, 60) {
		t.Errorf("Expected score 60, got %f (%v)", res.Score, res.Details)
	}
	if res.Details["sharpEdges"] != 15 || res.Details["complexity"] != 15 {
		t.Errorf("Expected capped contributions, got %v", res.Details)
	}
}

func TestScore_ClampedForPathologicalTables(t *testing.T) {
	det := analyzer.NewDetector(analyzer.DefaultOptions())
	buffers := []*analyzer.PixelBuffer{
		analyzertest.Solid(64, 64, color.NRGBA{0, 0, 0, 255}),
		analyzertest.Checkerboard(64, 64),
		analyzertest.DiagonalGradient(64, 64),
		analyzertest.Noise(64, 64, 11),
	}
	tables := map[string]analyzer.ThresholdTable{
		"zeros":    uniformTable(0),
		"ones":     uniformTable(1),
		"negative": uniformTable(-1),
		"huge":     uniformTable(1e9),
		"default":  analyzer.DefaultThresholds(),
	}

	for name, table := range tables {
		for _, buf := range buffers {
			fs, err := det.Extract(buf)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			res := det.Score(fs, table)
			if res.Score < 0 || res.Score > 100 {
				t.Errorf("%s: score %f out of range", name, res.Score)
			}
			for k, v := range res.Details {
				if v < 0 || v > 20 {
					t.Errorf("%s: detail %s=%f outside its budget", name, k, v)
				}
			}
		}
	}
}

func TestScore_ZeroThresholdGivesFullBudget(t *testing.T) {
	fs := analyzer.FeatureSet{Patterns: analyzer.PatternFeatures{SharpEdges: 0.01}}
	table := analyzer.DefaultThresholds()
	table.Patterns.SharpEdges = 0

	res := analyzer.NewScorer().Score(fs, table)
	if res.Details["sharpEdges"] != 15 {
		t.Errorf("Expected full budget 15 for zero threshold, got %v", res.Details)
	}
}

func TestEventPhotoDampening(t *testing.T) {
	rule := analyzer.DefaultEventPhotoDampening()
	busy := analyzer.FeatureSet{
		Textures: analyzer.TextureFeatures{Complexity: 0.5, Uniformity: 0.9},
		Noise:    analyzer.NoiseFeatures{NaturalNoise: 0.2, ArtificialNoise: 0.9},
		Colors:   analyzer.ColorFeatures{SaturationVariance: 0.2, ColorBanding: 0.5, UniqueColors: 100},
		Symmetry: analyzer.SymmetryFeatures{HorizontalSymmetry: 0.1, VerticalSymmetry: 0.9},
		Patterns: analyzer.PatternFeatures{RepeatingPatterns: 0.9},
	}

	if !rule.Applies(busy) {
		t.Fatal("Expected rule to apply to busy photo features")
	}
	if got := rule.Adjust(10); got != 8 {
		t.Errorf("Expected floor of 8, got %f", got)
	}
	if got := rule.Adjust(40); !approx(got, 18) {
		t.Errorf("Expected 40*0.45=18, got %f", got)
	}

	table := analyzer.DefaultThresholds()
	plain := analyzer.NewScorer().Score(busy, table)
	damped := analyzer.NewScorer(rule).Score(busy, table)
	// complexity 0.5/0.15 caps at 15, artificialNoise 0.9/0.35 caps at 10, symmetry 0.9*5 = 4.5
	if !approx(plain.Score, 29.5) {
		t.Fatalf("Expected undamped score 29.5, got %f (%v)", plain.Score, plain.Details)
	}
	if !approx(damped.Score, 29.5*0.45) {
		t.Errorf("Expected damped score %f, got %f", 29.5*0.45, damped.Score)
	}

	calm := busy
	calm.Noise.NaturalNoise = 0.01
	if rule.Applies(calm) {
		t.Error("Expected rule not to apply without natural noise")
	}
}

func TestScoringRules_TableIsStatic(t *testing.T) {
	rules := analyzer.ScoringRules()
	if len(rules) != 8 {
		t.Fatalf("Expected 8 single-metric rules, got %d", len(rules))
	}
	rules[0].Budget = 999
	if analyzer.ScoringRules()[0].Budget == 999 {
		t.Error("ScoringRules must return a copy")
	}
}
