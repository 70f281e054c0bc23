package analyzer

// Severity multipliers applied to a threshold to get the "highly
// suspicious" cut for rules that fire above or below it.
const (
	severeAboveFactor = 1.5
	severeBelowFactor = 0.5
)

// IndicatorGenerator produces human-readable warnings for a FeatureSet.
type IndicatorGenerator interface {
	Indicators(fs FeatureSet, t ThresholdTable) []string
}

type indicatorRule struct {
	feature FeatureKey
	cut     func(t ThresholdTable) float64
	dir     Direction
	severe  string
	mild    string
}

func tableCut(category, name string) func(ThresholdTable) float64 {
	b := binding(category, name)
	return func(t ThresholdTable) float64 { return t.Get(b) }
}

func fixedCut(v float64) func(ThresholdTable) float64 {
	return func(ThresholdTable) float64 { return v }
}

// indicatorRules are evaluated in order; symmetry is handled separately
// between colors and noise.
var (
	leadingIndicatorRules = []indicatorRule{
		{FeatureKey{CategoryPatterns, "repeatingPatterns"}, tableCut(CategoryPatterns, "repeatingPatterns"), Below,
			"Near-total absence of repeating patterns", "Unusual absence of repeating patterns"},
		{FeatureKey{CategoryPatterns, "sharpEdges"}, tableCut(CategoryPatterns, "sharpEdges"), Above,
			"Artificial sharp edges detected", "Significant presence of sharp edges"},
		{FeatureKey{CategoryTextures, "uniformity"}, tableCut(CategoryTextures, "uniformity"), Below,
			"Severe lack of texture uniformity", "Characteristic lack of uniformity"},
		{FeatureKey{CategoryTextures, "unnaturalGradients"}, tableCut(CategoryTextures, "unnaturalGradients"), Above,
			"Extremely artificial gradients", "Unnatural gradients detected"},
		{FeatureKey{CategoryTextures, "complexity"}, tableCut(CategoryTextures, "complexity"), Above,
			"Extremely high texture complexity", "Abnormally high complexity"},
		{FeatureKey{CategoryColors, "colorBanding"}, tableCut(CategoryColors, "colorBanding"), Below,
			"Highly atypical color distribution", "Atypical color distribution"},
		{FeatureKey{CategoryColors, "uniqueColors"}, tableCut(CategoryColors, "uniqueColors"), Above,
			"Extremely large number of unique colors", "Unusual number of unique colors"},
		{FeatureKey{CategoryColors, "saturationVariance"}, tableCut(CategoryColors, "saturationVariance"), Below,
			"Too uniform saturation variation", "Low saturation variation"},
		{FeatureKey{CategoryColors, "averageSaturation"}, fixedCut(0.7), Above,
			"", "Abnormally high saturation"},
	}

	trailingIndicatorRules = []indicatorRule{
		{FeatureKey{CategoryNoise, "artificialNoise"}, tableCut(CategoryNoise, "artificialNoiseThreshold"), Above,
			"Highly artificial digital noise", "Artificial digital noise detected"},
		{FeatureKey{CategoryNoise, "naturalNoise"}, tableCut(CategoryNoise, "naturalNoiseThreshold"), Below,
			"Total absence of natural noise", "Absence of natural noise"},
		{FeatureKey{CategoryArtifacts, "compressionArtifacts"}, tableCut(CategoryArtifacts, "compressionArtifacts"), Above,
			"Heavy compression artifacts", "Suspicious compression artifacts"},
		{FeatureKey{CategoryArtifacts, "perfectEdges"}, tableCut(CategoryArtifacts, "perfectEdges"), Above,
			"Abundant perfectly hard edges", "Too perfect edges"},
		{FeatureKey{CategoryJPEGBlocks, "blockiness"}, fixedCut(0.05), Below,
			"", "Missing JPEG block structure"},
		{FeatureKey{CategoryFrequency, "balance"}, fixedCut(0.15), Below,
			"", "Unnaturally uniform frequency content"},
	}
)

type indicatorGenerator struct{}

// NewIndicatorGenerator returns the default generator.
func NewIndicatorGenerator() IndicatorGenerator {
	return indicatorGenerator{}
}

// Indicators emits at most one string per metric. The result is never nil.
func (indicatorGenerator) Indicators(fs FeatureSet, t ThresholdTable) []string {
	out := make([]string, 0, 8)
	out = appendIndicators(out, leadingIndicatorRules, fs, t)

	h, v := fs.Symmetry.HorizontalSymmetry, fs.Symmetry.VerticalSymmetry
	hCut, vCut := t.Symmetry.HorizontalThreshold, t.Symmetry.VerticalThreshold
	switch {
	case h > hCut && v > vCut:
		out = append(out, "Almost perfect symmetry (rare in natural photos)")
	case h > hCut:
		out = append(out, "Suspicious horizontal symmetry")
	case v > vCut:
		out = append(out, "Suspicious vertical symmetry")
	}

	return appendIndicators(out, trailingIndicatorRules, fs, t)
}

func appendIndicators(out []string, rules []indicatorRule, fs FeatureSet, t ThresholdTable) []string {
	for _, r := range rules {
		v, ok := fs.Value(r.feature)
		if !ok {
			continue
		}
		cut := r.cut(t)
		if r.severe != "" && r.dir.crossed(v, severeCut(cut, r.dir)) {
			out = append(out, r.severe)
			continue
		}
		if r.dir.crossed(v, cut) {
			out = append(out, r.mild)
		}
	}
	return out
}

func severeCut(cut float64, d Direction) float64 {
	if d == Below {
		return cut * severeBelowFactor
	}
	return cut * severeAboveFactor
}
