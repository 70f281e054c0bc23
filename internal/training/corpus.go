package training

import (
	"strings"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
)

// Label names a training class.
type Label string

const (
	LabelAI   Label = "ai"
	LabelReal Label = "real"
)

// DefaultMaxSamples bounds each class of a corpus.
const DefaultMaxSamples = 1000

// ParseLabel accepts "ai" or "real", case-insensitively.
func ParseLabel(s string) (Label, error) {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case LabelAI:
		return LabelAI, nil
	case LabelReal:
		return LabelReal, nil
	}
	return "", apperrors.NewInvalidTrainingTypeError(s)
}

// Corpus holds labelled analyses. It is not safe for concurrent use; the
// owning session serializes access.
type Corpus struct {
	maxSamples int
	ai         []analyzer.AnalysisResult
	real       []analyzer.AnalysisResult
}

// NewCorpus creates an empty corpus; maxSamples <= 0 uses DefaultMaxSamples.
func NewCorpus(maxSamples int) *Corpus {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Corpus{maxSamples: maxSamples}
}

// MaxSamples returns the per-class capacity.
func (c *Corpus) MaxSamples() int {
	return c.maxSamples
}

func (c *Corpus) class(label Label) *[]analyzer.AnalysisResult {
	if label == LabelAI {
		return &c.ai
	}
	return &c.real
}

// CheckCapacity reports whether n more samples fit in the class.
func (c *Corpus) CheckCapacity(label Label, n int) error {
	if label != LabelAI && label != LabelReal {
		return apperrors.NewInvalidTrainingTypeError(string(label))
	}
	have := len(*c.class(label))
	if have+n > c.maxSamples {
		return apperrors.NewCapacityExceededError(string(label), have, n, c.maxSamples)
	}
	return nil
}

// Append adds every result or none of them.
func (c *Corpus) Append(label Label, results ...analyzer.AnalysisResult) error {
	if err := c.CheckCapacity(label, len(results)); err != nil {
		return err
	}
	cls := c.class(label)
	*cls = append(*cls, results...)
	return nil
}

// Samples returns a copy of one class.
func (c *Corpus) Samples(label Label) []analyzer.AnalysisResult {
	src := *c.class(label)
	out := make([]analyzer.AnalysisResult, len(src))
	copy(out, src)
	return out
}

// Features returns the feature sets of one class.
func (c *Corpus) Features(label Label) []analyzer.FeatureSet {
	src := *c.class(label)
	out := make([]analyzer.FeatureSet, len(src))
	for i, r := range src {
		out[i] = r.Features
	}
	return out
}

// Counts returns the number of samples per class.
func (c *Corpus) Counts() (ai, real int) {
	return len(c.ai), len(c.real)
}

// Reset drops all samples.
func (c *Corpus) Reset() {
	c.ai = nil
	c.real = nil
}
