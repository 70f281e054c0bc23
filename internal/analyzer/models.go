package analyzer

// Category names, in the order they are scored and reported.
const (
	CategoryPatterns   = "patterns"
	CategoryTextures   = "textures"
	CategoryColors     = "colors"
	CategorySymmetry   = "symmetry"
	CategoryNoise      = "noise"
	CategoryArtifacts  = "artifacts"
	CategoryJPEGBlocks = "jpegBlocks"
	CategoryFrequency  = "frequency"
)

type PatternFeatures struct {
	RepeatingPatterns float64 `json:"repeatingPatterns"`
	SharpEdges        float64 `json:"sharpEdges"`
}

type TextureFeatures struct {
	Uniformity         float64 `json:"uniformity"`
	UnnaturalGradients float64 `json:"unnaturalGradients"`
	Complexity         float64 `json:"complexity"`
}

// ColorFeatures. UniqueColors counts 8-level RGB buckets and is not a ratio;
// the two variances are small unbounded positives.
type ColorFeatures struct {
	UniqueColors       float64 `json:"uniqueColors"`
	SaturationVariance float64 `json:"saturationVariance"`
	ColorBanding       float64 `json:"colorBanding"`
	AverageSaturation  float64 `json:"averageSaturation"`
	LuminanceVariance  float64 `json:"luminanceVariance"`
}

type SymmetryFeatures struct {
	HorizontalSymmetry float64 `json:"horizontalSymmetry"`
	VerticalSymmetry   float64 `json:"verticalSymmetry"`
}

type NoiseFeatures struct {
	ArtificialNoise float64 `json:"artificialNoise"`
	NaturalNoise    float64 `json:"naturalNoise"`
}

type ArtifactFeatures struct {
	CompressionArtifacts float64 `json:"compressionArtifacts"`
	PerfectEdges         float64 `json:"perfectEdges"`
}

type JPEGBlockFeatures struct {
	Blockiness float64 `json:"blockiness"`
}

type FrequencyFeatures struct {
	HighFrequency float64 `json:"highFrequency"`
	LowFrequency  float64 `json:"lowFrequency"`
	Balance       float64 `json:"balance"`
}

// FeatureSet is the per-image output of the extractor. The two auxiliary
// categories are nil when they were not computed.
type FeatureSet struct {
	Patterns   PatternFeatures    `json:"patterns"`
	Textures   TextureFeatures    `json:"textures"`
	Colors     ColorFeatures      `json:"colors"`
	Symmetry   SymmetryFeatures   `json:"symmetry"`
	Noise      NoiseFeatures      `json:"noise"`
	Artifacts  ArtifactFeatures   `json:"artifacts"`
	JPEGBlocks *JPEGBlockFeatures `json:"jpegBlocks,omitempty"`
	Frequency  *FrequencyFeatures `json:"frequency,omitempty"`
}

// AnalysisResult is the outcome of one Analyze call.
type AnalysisResult struct {
	Score      float64            `json:"score"`
	Features   FeatureSet         `json:"analysis"`
	Indicators []string           `json:"indicators"`
	Details    map[string]float64 `json:"details"`
}

// ScoreResult is the score synthesizer output.
type ScoreResult struct {
	Score   float64
	Details map[string]float64
}

// FeatureKey addresses one metric inside a FeatureSet.
type FeatureKey struct {
	Category string
	Metric   string
}

func (k FeatureKey) String() string {
	return k.Category + "." + k.Metric
}

type featureAccessor struct {
	key FeatureKey
	get func(fs *FeatureSet) (float64, bool)
}

func always(f func(fs *FeatureSet) float64) func(fs *FeatureSet) (float64, bool) {
	return func(fs *FeatureSet) (float64, bool) { return f(fs), true }
}

// featureAccessors enumerates every metric in category then declaration order.
var featureAccessors = []featureAccessor{
	{FeatureKey{CategoryPatterns, "repeatingPatterns"}, always(func(fs *FeatureSet) float64 { return fs.Patterns.RepeatingPatterns })},
	{FeatureKey{CategoryPatterns, "sharpEdges"}, always(func(fs *FeatureSet) float64 { return fs.Patterns.SharpEdges })},
	{FeatureKey{CategoryTextures, "uniformity"}, always(func(fs *FeatureSet) float64 { return fs.Textures.Uniformity })},
	{FeatureKey{CategoryTextures, "unnaturalGradients"}, always(func(fs *FeatureSet) float64 { return fs.Textures.UnnaturalGradients })},
	{FeatureKey{CategoryTextures, "complexity"}, always(func(fs *FeatureSet) float64 { return fs.Textures.Complexity })},
	{FeatureKey{CategoryColors, "uniqueColors"}, always(func(fs *FeatureSet) float64 { return fs.Colors.UniqueColors })},
	{FeatureKey{CategoryColors, "saturationVariance"}, always(func(fs *FeatureSet) float64 { return fs.Colors.SaturationVariance })},
	{FeatureKey{CategoryColors, "colorBanding"}, always(func(fs *FeatureSet) float64 { return fs.Colors.ColorBanding })},
	{FeatureKey{CategoryColors, "averageSaturation"}, always(func(fs *FeatureSet) float64 { return fs.Colors.AverageSaturation })},
	{FeatureKey{CategoryColors, "luminanceVariance"}, always(func(fs *FeatureSet) float64 { return fs.Colors.LuminanceVariance })},
	{FeatureKey{CategorySymmetry, "horizontalSymmetry"}, always(func(fs *FeatureSet) float64 { return fs.Symmetry.HorizontalSymmetry })},
	{FeatureKey{CategorySymmetry, "verticalSymmetry"}, always(func(fs *FeatureSet) float64 { return fs.Symmetry.VerticalSymmetry })},
	{FeatureKey{CategoryNoise, "artificialNoise"}, always(func(fs *FeatureSet) float64 { return fs.Noise.ArtificialNoise })},
	{FeatureKey{CategoryNoise, "naturalNoise"}, always(func(fs *FeatureSet) float64 { return fs.Noise.NaturalNoise })},
	{FeatureKey{CategoryArtifacts, "compressionArtifacts"}, always(func(fs *FeatureSet) float64 { return fs.Artifacts.CompressionArtifacts })},
	{FeatureKey{CategoryArtifacts, "perfectEdges"}, always(func(fs *FeatureSet) float64 { return fs.Artifacts.PerfectEdges })},
	{FeatureKey{CategoryJPEGBlocks, "blockiness"}, func(fs *FeatureSet) (float64, bool) {
		if fs.JPEGBlocks == nil {
			return 0, false
		}
		return fs.JPEGBlocks.Blockiness, true
	}},
	{FeatureKey{CategoryFrequency, "highFrequency"}, func(fs *FeatureSet) (float64, bool) {
		if fs.Frequency == nil {
			return 0, false
		}
		return fs.Frequency.HighFrequency, true
	}},
	{FeatureKey{CategoryFrequency, "lowFrequency"}, func(fs *FeatureSet) (float64, bool) {
		if fs.Frequency == nil {
			return 0, false
		}
		return fs.Frequency.LowFrequency, true
	}},
	{FeatureKey{CategoryFrequency, "balance"}, func(fs *FeatureSet) (float64, bool) {
		if fs.Frequency == nil {
			return 0, false
		}
		return fs.Frequency.Balance, true
	}},
}

// FeatureKeys lists every metric the extractor can produce.
func FeatureKeys() []FeatureKey {
	keys := make([]FeatureKey, len(featureAccessors))
	for i, a := range featureAccessors {
		keys[i] = a.key
	}
	return keys
}

// Value looks up one metric. ok is false for unknown keys and for metrics of
// an auxiliary category that was not computed.
func (fs FeatureSet) Value(key FeatureKey) (float64, bool) {
	for _, a := range featureAccessors {
		if a.key == key {
			return a.get(&fs)
		}
	}
	return 0, false
}

// Each calls fn for every present metric in deterministic order.
func (fs FeatureSet) Each(fn func(key FeatureKey, value float64)) {
	for _, a := range featureAccessors {
		if v, ok := a.get(&fs); ok {
			fn(a.key, v)
		}
	}
}

// IsRatio reports whether the metric is nominally within [0,1].
func IsRatio(key FeatureKey) bool {
	if key.Category != CategoryColors {
		return true
	}
	switch key.Metric {
	case "uniqueColors", "saturationVariance", "luminanceVariance":
		return false
	}
	return true
}
