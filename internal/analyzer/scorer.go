package analyzer

import "math"

// Direction says which side of a threshold is suspicious.
type Direction int

const (
	Above Direction = iota
	Below
)

func (d Direction) String() string {
	if d == Below {
		return "below"
	}
	return "above"
}

// crossed reports whether v lies on the suspicious side of t.
func (d Direction) crossed(v, t float64) bool {
	if d == Below {
		return v < t
	}
	return v > t
}

type contributionFunc func(v, t float64) float64

// proportional scales the overshoot by v/t (above) or 1-v/t (below).
func proportional(d Direction) contributionFunc {
	return func(v, t float64) float64 {
		if t <= 0 {
			return math.Inf(1)
		}
		if d == Below {
			return 1 - v/t
		}
		return v / t
	}
}

// relativeExcess scales by (v-t)/t, used for the unbounded palette size.
func relativeExcess(v, t float64) float64 {
	if t <= 0 {
		return math.Inf(1)
	}
	return (v - t) / t
}

// MetricRule is one row of the static scoring table.
type MetricRule struct {
	Detail     string
	Feature    FeatureKey
	Threshold  ThresholdBinding
	Direction  Direction
	Budget     float64
	contribute contributionFunc
}

func binding(category, name string) ThresholdBinding {
	for _, b := range thresholdBindings {
		if b.Category == category && b.Name == name {
			return b
		}
	}
	panic("analyzer: unknown threshold " + category + "." + name)
}

func rule(detail string, category, name string, d Direction, budget float64, f contributionFunc) MetricRule {
	b := binding(category, name)
	if f == nil {
		f = proportional(d)
	}
	return MetricRule{Detail: detail, Feature: b.Feature, Threshold: b, Direction: d, Budget: budget, contribute: f}
}

// scoringRules excludes symmetry, which is scored jointly across both axes.
var scoringRules = []MetricRule{
	rule("sharpEdges", CategoryPatterns, "sharpEdges", Above, 15, nil),
	rule("repeatingPatterns", CategoryPatterns, "repeatingPatterns", Below, 10, nil),
	rule("uniformity", CategoryTextures, "uniformity", Below, 20, nil),
	rule("complexity", CategoryTextures, "complexity", Above, 15, nil),
	rule("unnaturalGradients", CategoryTextures, "unnaturalGradients", Above, 10, nil),
	rule("uniqueColors", CategoryColors, "uniqueColors", Above, 15, relativeExcess),
	rule("colorBanding", CategoryColors, "colorBanding", Below, 10, nil),
	rule("artificialNoise", CategoryNoise, "artificialNoiseThreshold", Above, 10, nil),
}

const symmetryBudget = 5

// ScoringRules returns a copy of the static rule table.
func ScoringRules() []MetricRule {
	out := make([]MetricRule, len(scoringRules))
	copy(out, scoringRules)
	return out
}

// ScoreAdjuster rewrites a finished score. Adjusters run after the rule
// table and before the final clamp.
type ScoreAdjuster interface {
	Name() string
	Applies(fs FeatureSet) bool
	Adjust(score float64) float64
}

// EventPhotoDampening lowers the score of busy, noisy, asymmetric photos
// that the texture rules otherwise over-flag.
type EventPhotoDampening struct {
	MinComplexity         float64
	MinNaturalNoise       float64
	MinSaturationVariance float64
	MaxSymmetry           float64
	Factor                float64
	Floor                 float64
}

// DefaultEventPhotoDampening returns the rule with its stock constants.
func DefaultEventPhotoDampening() EventPhotoDampening {
	return EventPhotoDampening{
		MinComplexity:         0.35,
		MinNaturalNoise:       0.15,
		MinSaturationVariance: 0.15,
		MaxSymmetry:           0.6,
		Factor:                0.45,
		Floor:                 8,
	}
}

func (r EventPhotoDampening) Name() string { return "event_photo_dampening" }

func (r EventPhotoDampening) Applies(fs FeatureSet) bool {
	return fs.Textures.Complexity > r.MinComplexity &&
		fs.Noise.NaturalNoise > r.MinNaturalNoise &&
		fs.Colors.SaturationVariance > r.MinSaturationVariance &&
		(fs.Symmetry.HorizontalSymmetry < r.MaxSymmetry || fs.Symmetry.VerticalSymmetry < r.MaxSymmetry)
}

func (r EventPhotoDampening) Adjust(score float64) float64 {
	return math.Max(r.Floor, score*r.Factor)
}

// Scorer turns a FeatureSet into a 0-100 suspicion score.
type Scorer interface {
	Score(fs FeatureSet, t ThresholdTable) ScoreResult
}

type scorer struct {
	adjusters []ScoreAdjuster
}

// NewScorer creates a scorer running the given adjusters in order.
func NewScorer(adjusters ...ScoreAdjuster) Scorer {
	return &scorer{adjusters: adjusters}
}

// Score sums the capped contribution of every crossed rule. Details hold the
// capped contribution keyed by rule name, only for rules that fired.
func (s *scorer) Score(fs FeatureSet, t ThresholdTable) ScoreResult {
	details := make(map[string]float64)
	total := 0.0

	for _, r := range scoringRules {
		v, ok := fs.Value(r.Feature)
		if !ok {
			continue
		}
		th := t.Get(r.Threshold)
		if !r.Direction.crossed(v, th) {
			continue
		}
		c := capContribution(r.contribute(v, th)*r.Budget, r.Budget)
		details[r.Detail] = c
		total += c
	}

	h, v := fs.Symmetry.HorizontalSymmetry, fs.Symmetry.VerticalSymmetry
	if h > t.Symmetry.HorizontalThreshold || v > t.Symmetry.VerticalThreshold {
		c := capContribution(math.Max(h, v)*symmetryBudget, symmetryBudget)
		details["symmetry"] = c
		total += c
	}

	for _, a := range s.adjusters {
		if a.Applies(fs) {
			total = a.Adjust(total)
		}
	}

	return ScoreResult{Score: clampScore(total), Details: details}
}

func capContribution(c, budget float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return math.Min(c, budget)
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(100, s))
}
