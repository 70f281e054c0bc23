package training

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
)

// Blend weights for bounded thresholds.
const (
	aiMeanWeight   = 0.6
	realMeanWeight = 0.4
	stdDevWeight   = 0.5
)

var paletteSize = analyzer.FeatureKey{Category: analyzer.CategoryColors, Metric: "uniqueColors"}

// Calibrate recomputes every threshold from the class statistics of its bound
// feature and returns the new table. current is not modified.
//
// The update is a single pass over the labelled batch with no hold-out set,
// so small batches can move thresholds a long way.
func Calibrate(current analyzer.ThresholdTable, ai, real []analyzer.FeatureSet) analyzer.ThresholdTable {
	next := current
	for _, b := range analyzer.ThresholdBindings() {
		aiVals := collect(ai, b.Feature)
		realVals := collect(real, b.Feature)
		if len(aiVals) == 0 || len(realVals) == 0 {
			continue
		}
		next.Set(b, CalibrateValue(b.Feature, aiVals, realVals))
	}
	return next
}

// CalibrateValue computes one threshold from the two class samples.
// uniqueColors is unbounded and takes the midpoint of the class means;
// every other threshold blends means and spreads and is clamped to [0,1].
func CalibrateValue(feature analyzer.FeatureKey, aiVals, realVals []float64) float64 {
	aiMean, aiStd := stat.PopMeanStdDev(aiVals, nil)
	realMean, realStd := stat.PopMeanStdDev(realVals, nil)

	if feature == paletteSize {
		return (aiMean + realMean) / 2
	}
	v := aiMeanWeight*aiMean + realMeanWeight*realMean + stdDevWeight*(aiStd+realStd)
	return math.Max(0, math.Min(1, v))
}

// collect gathers the finite values of key, skipping sets that lack it.
func collect(sets []analyzer.FeatureSet, key analyzer.FeatureKey) []float64 {
	out := make([]float64, 0, len(sets))
	for _, fs := range sets {
		v, ok := fs.Value(key)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
