package analyzer

// detector composes the extractor, scorer and indicator generator.
type detector struct {
	extractor  FeatureExtractor
	scorer     Scorer
	indicators IndicatorGenerator
}

// NewDetector creates a detector from options.
func NewDetector(opts DetectorOptions) Detector {
	return &detector{
		extractor:  NewFeatureExtractor(opts),
		scorer:     NewScorer(opts.adjusters()...),
		indicators: NewIndicatorGenerator(),
	}
}

// NewDetectorWithComponents allows custom component injection
func NewDetectorWithComponents(extractor FeatureExtractor, scorer Scorer, indicators IndicatorGenerator) Detector {
	return &detector{
		extractor:  extractor,
		scorer:     scorer,
		indicators: indicators,
	}
}

func (d *detector) Extract(buf *PixelBuffer) (FeatureSet, error) {
	return d.extractor.Extract(buf)
}

func (d *detector) Score(fs FeatureSet, t ThresholdTable) ScoreResult {
	return d.scorer.Score(fs, t)
}

func (d *detector) Indicators(fs FeatureSet, t ThresholdTable) []string {
	return d.indicators.Indicators(fs, t)
}

// Analyze validates, extracts, scores and describes buf against t.
func (d *detector) Analyze(buf *PixelBuffer, t ThresholdTable) (AnalysisResult, error) {
	fs, err := d.extractor.Extract(buf)
	if err != nil {
		return AnalysisResult{}, err
	}
	sr := d.scorer.Score(fs, t)
	return AnalysisResult{
		Score:      sr.Score,
		Features:   fs,
		Indicators: d.indicators.Indicators(fs, t),
		Details:    sr.Details,
	}, nil
}

func (d *detector) BlockMap(buf *PixelBuffer) (*BlockMap, error) {
	return BuildBlockMap(buf)
}
