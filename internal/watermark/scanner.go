package watermark

import (
	"context"
	"fmt"
	"strings"
)

// Recognizer extracts text from encoded image bytes.
type Recognizer interface {
	Recognize(ctx context.Context, imageData []byte) (string, error)
}

// Result is the outcome of one scan. It is attached to analysis output as
// collaborator metadata; scores never depend on it.
type Result struct {
	Text    string  `json:"text,omitempty"`
	Matches []Match `json:"matches"`
}

// Detected reports whether any signature matched.
func (r *Result) Detected() bool {
	return r != nil && len(r.Matches) > 0
}

// Scanner runs OCR and matches the text against signatures.
type Scanner struct {
	recognizer Recognizer
	matcher    *Matcher
}

// NewScanner creates a scanner; a nil matcher uses DefaultSignatures.
func NewScanner(recognizer Recognizer, matcher *Matcher) *Scanner {
	if matcher == nil {
		matcher = NewMatcher()
	}
	return &Scanner{recognizer: recognizer, matcher: matcher}
}

// Scan recognizes text in imageData and returns any signature matches.
func (s *Scanner) Scan(ctx context.Context, imageData []byte) (*Result, error) {
	text, err := s.recognizer.Recognize(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("watermark OCR: %w", err)
	}
	text = strings.Join(strings.Fields(text), " ")
	matches := s.matcher.Match(text)
	if matches == nil {
		matches = []Match{}
	}
	return &Result{Text: text, Matches: matches}, nil
}
