package analyzer

// Detector is the single entry point used by the session layer.
// Implementations hold no threshold state; the caller passes the table.
type Detector interface {
	Extract(buf *PixelBuffer) (FeatureSet, error)
	Score(fs FeatureSet, t ThresholdTable) ScoreResult
	Indicators(fs FeatureSet, t ThresholdTable) []string
	Analyze(buf *PixelBuffer, t ThresholdTable) (AnalysisResult, error)
	BlockMap(buf *PixelBuffer) (*BlockMap, error)
}
