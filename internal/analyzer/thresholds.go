package analyzer

type PatternThresholds struct {
	RepeatingPatterns float64 `json:"repeatingPatterns"`
	SharpEdges        float64 `json:"sharpEdges"`
}

type TextureThresholds struct {
	Uniformity         float64 `json:"uniformity"`
	UnnaturalGradients float64 `json:"unnaturalGradients"`
	Complexity         float64 `json:"complexity"`
}

type ColorThresholds struct {
	ColorBanding       float64 `json:"colorBanding"`
	UniqueColors       float64 `json:"uniqueColors"`
	SaturationVariance float64 `json:"saturationVariance"`
}

type SymmetryThresholds struct {
	HorizontalThreshold float64 `json:"horizontalThreshold"`
	VerticalThreshold   float64 `json:"verticalThreshold"`
}

type NoiseThresholds struct {
	ArtificialNoiseThreshold float64 `json:"artificialNoiseThreshold"`
	NaturalNoiseThreshold    float64 `json:"naturalNoiseThreshold"`
}

type ArtifactThresholds struct {
	CompressionArtifacts float64 `json:"compressionArtifacts"`
	PerfectEdges         float64 `json:"perfectEdges"`
}

// ThresholdTable holds the decision boundary for every scored metric.
// It is a plain value: assigning it copies it.
type ThresholdTable struct {
	Patterns  PatternThresholds  `json:"patterns"`
	Textures  TextureThresholds  `json:"textures"`
	Colors    ColorThresholds    `json:"colors"`
	Symmetry  SymmetryThresholds `json:"symmetry"`
	Noise     NoiseThresholds    `json:"noise"`
	Artifacts ArtifactThresholds `json:"artifacts"`
}

// DefaultThresholds returns the initial table.
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		Patterns: PatternThresholds{
			RepeatingPatterns: 0.45,
			SharpEdges:        0.06,
		},
		Textures: TextureThresholds{
			Uniformity:         0.60,
			UnnaturalGradients: 0.25,
			Complexity:         0.15,
		},
		Colors: ColorThresholds{
			ColorBanding:       0.22,
			UniqueColors:       3500,
			SaturationVariance: 0.04,
		},
		Symmetry: SymmetryThresholds{
			HorizontalThreshold: 0.85,
			VerticalThreshold:   0.85,
		},
		Noise: NoiseThresholds{
			ArtificialNoiseThreshold: 0.35,
			NaturalNoiseThreshold:    0.03,
		},
		Artifacts: ArtifactThresholds{
			CompressionArtifacts: 0.35,
			PerfectEdges:         0.25,
		},
	}
}

// ThresholdBinding ties a threshold entry to the feature metric it bounds.
// Most share a name; symmetry and noise thresholds do not.
type ThresholdBinding struct {
	Category string
	Name     string
	Feature  FeatureKey
	field    func(t *ThresholdTable) *float64
}

// Key returns the dotted "category.name" form.
func (b ThresholdBinding) Key() string {
	return b.Category + "." + b.Name
}

var thresholdBindings = []ThresholdBinding{
	{CategoryPatterns, "repeatingPatterns", FeatureKey{CategoryPatterns, "repeatingPatterns"}, func(t *ThresholdTable) *float64 { return &t.Patterns.RepeatingPatterns }},
	{CategoryPatterns, "sharpEdges", FeatureKey{CategoryPatterns, "sharpEdges"}, func(t *ThresholdTable) *float64 { return &t.Patterns.SharpEdges }},
	{CategoryTextures, "uniformity", FeatureKey{CategoryTextures, "uniformity"}, func(t *ThresholdTable) *float64 { return &t.Textures.Uniformity }},
	{CategoryTextures, "unnaturalGradients", FeatureKey{CategoryTextures, "unnaturalGradients"}, func(t *ThresholdTable) *float64 { return &t.Textures.UnnaturalGradients }},
	{CategoryTextures, "complexity", FeatureKey{CategoryTextures, "complexity"}, func(t *ThresholdTable) *float64 { return &t.Textures.Complexity }},
	{CategoryColors, "colorBanding", FeatureKey{CategoryColors, "colorBanding"}, func(t *ThresholdTable) *float64 { return &t.Colors.ColorBanding }},
	{CategoryColors, "uniqueColors", FeatureKey{CategoryColors, "uniqueColors"}, func(t *ThresholdTable) *float64 { return &t.Colors.UniqueColors }},
	{CategoryColors, "saturationVariance", FeatureKey{CategoryColors, "saturationVariance"}, func(t *ThresholdTable) *float64 { return &t.Colors.SaturationVariance }},
	{CategorySymmetry, "horizontalThreshold", FeatureKey{CategorySymmetry, "horizontalSymmetry"}, func(t *ThresholdTable) *float64 { return &t.Symmetry.HorizontalThreshold }},
	{CategorySymmetry, "verticalThreshold", FeatureKey{CategorySymmetry, "verticalSymmetry"}, func(t *ThresholdTable) *float64 { return &t.Symmetry.VerticalThreshold }},
	{CategoryNoise, "artificialNoiseThreshold", FeatureKey{CategoryNoise, "artificialNoise"}, func(t *ThresholdTable) *float64 { return &t.Noise.ArtificialNoiseThreshold }},
	{CategoryNoise, "naturalNoiseThreshold", FeatureKey{CategoryNoise, "naturalNoise"}, func(t *ThresholdTable) *float64 { return &t.Noise.NaturalNoiseThreshold }},
	{CategoryArtifacts, "compressionArtifacts", FeatureKey{CategoryArtifacts, "compressionArtifacts"}, func(t *ThresholdTable) *float64 { return &t.Artifacts.CompressionArtifacts }},
	{CategoryArtifacts, "perfectEdges", FeatureKey{CategoryArtifacts, "perfectEdges"}, func(t *ThresholdTable) *float64 { return &t.Artifacts.PerfectEdges }},
}

// ThresholdBindings lists every threshold entry in table order.
func ThresholdBindings() []ThresholdBinding {
	out := make([]ThresholdBinding, len(thresholdBindings))
	copy(out, thresholdBindings)
	return out
}

// ThresholdCategories lists the table's categories in order.
func ThresholdCategories() []string {
	return []string{CategoryPatterns, CategoryTextures, CategoryColors, CategorySymmetry, CategoryNoise, CategoryArtifacts}
}

// Get returns the value bound by b.
func (t ThresholdTable) Get(b ThresholdBinding) float64 {
	return *b.field(&t)
}

// Set writes the value bound by b.
func (t *ThresholdTable) Set(b ThresholdBinding, v float64) {
	*b.field(t) = v
}

// Lookup finds a threshold by category and name.
func (t ThresholdTable) Lookup(category, name string) (float64, bool) {
	for _, b := range thresholdBindings {
		if b.Category == category && b.Name == name {
			return t.Get(b), true
		}
	}
	return 0, false
}

// Map renders the table as nested category/name maps.
func (t ThresholdTable) Map() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(ThresholdCategories()))
	for _, b := range thresholdBindings {
		if out[b.Category] == nil {
			out[b.Category] = make(map[string]float64)
		}
		out[b.Category][b.Name] = t.Get(b)
	}
	return out
}
