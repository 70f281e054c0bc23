package training

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
)

// SignificantDifference is the minimum gap between class averages reported
// by Compare.
const SignificantDifference = 0.1

// ScoreDistribution summarizes the scores of one class.
type ScoreDistribution struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// ClassStatistics describes one labelled set.
type ClassStatistics struct {
	Count             int                           `json:"count"`
	Averages          map[string]map[string]float64 `json:"averageCharacteristics,omitempty"`
	ScoreDistribution *ScoreDistribution            `json:"scoreDistribution,omitempty"`
}

// Report is the full training statistics document.
type Report struct {
	AI                     ClassStatistics               `json:"aiImages"`
	Real                   ClassStatistics               `json:"realImages"`
	SignificantDifferences map[string]map[string]float64 `json:"significantDifferences"`
	CurrentThresholds      analyzer.ThresholdTable       `json:"currentThresholds"`
}

// Summarize computes averages and score distribution for one class.
// An empty class yields only a zero count.
func Summarize(results []analyzer.AnalysisResult) ClassStatistics {
	cs := ClassStatistics{Count: len(results)}
	if len(results) == 0 {
		return cs
	}

	sums := make(map[analyzer.FeatureKey][]float64)
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
		r.Features.Each(func(key analyzer.FeatureKey, v float64) {
			sums[key] = append(sums[key], v)
		})
	}

	cs.Averages = make(map[string]map[string]float64)
	for _, key := range analyzer.FeatureKeys() {
		vals, ok := sums[key]
		if !ok {
			continue
		}
		if cs.Averages[key.Category] == nil {
			cs.Averages[key.Category] = make(map[string]float64)
		}
		cs.Averages[key.Category][key.Metric] = stat.Mean(vals, nil)
	}

	mean, std := stat.PopMeanStdDev(scores, nil)
	cs.ScoreDistribution = &ScoreDistribution{
		Min:    floats.Min(scores),
		Max:    floats.Max(scores),
		Mean:   mean,
		StdDev: std,
	}
	return cs
}

// Compare returns metrics whose class averages differ by more than
// SignificantDifference, grouped by category.
func Compare(ai, real ClassStatistics) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for category, metrics := range ai.Averages {
		for metric, aiAvg := range metrics {
			realAvg, ok := real.Averages[category][metric]
			if !ok {
				continue
			}
			if diff := math.Abs(aiAvg - realAvg); diff > SignificantDifference {
				if out[category] == nil {
					out[category] = make(map[string]float64)
				}
				out[category][metric] = diff
			}
		}
	}
	return out
}

// BuildReport summarizes both classes and compares them.
func BuildReport(ai, real []analyzer.AnalysisResult, current analyzer.ThresholdTable) Report {
	aiStats := Summarize(ai)
	realStats := Summarize(real)
	return Report{
		AI:                     aiStats,
		Real:                   realStats,
		SignificantDifferences: Compare(aiStats, realStats),
		CurrentThresholds:      current,
	}
}
