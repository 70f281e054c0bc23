package session

import (
	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	"github.com/anime-shed/ai-detector-go/internal/training"
)

// cachedDetector serves feature sets from a digest-keyed cache. Scores and
// indicators are always recomputed since they depend on the live table.
type cachedDetector struct {
	analyzer.Detector
	cache *training.FeatureCache
}

func (d cachedDetector) Extract(buf *analyzer.PixelBuffer) (analyzer.FeatureSet, error) {
	if err := analyzer.ValidateBuffer(buf); err != nil {
		return analyzer.FeatureSet{}, err
	}
	key := training.DigestBuffer(buf)
	if fs, ok := d.cache.Get(key); ok {
		return fs, nil
	}
	fs, err := d.Detector.Extract(buf)
	if err != nil {
		return analyzer.FeatureSet{}, err
	}
	d.cache.Put(key, fs)
	return fs, nil
}

func (d cachedDetector) Analyze(buf *analyzer.PixelBuffer, t analyzer.ThresholdTable) (analyzer.AnalysisResult, error) {
	fs, err := d.Extract(buf)
	if err != nil {
		return analyzer.AnalysisResult{}, err
	}
	sr := d.Score(fs, t)
	return analyzer.AnalysisResult{
		Score:      sr.Score,
		Features:   fs,
		Indicators: d.Indicators(fs, t),
		Details:    sr.Details,
	}, nil
}
