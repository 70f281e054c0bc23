// Package watermark looks for visible image-generator signatures in OCR text.
package watermark

import (
	"strings"
	"unicode"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// MaxPhraseWER is the highest word error rate at which a multi-word
// signature still matches.
const MaxPhraseWER = 0.34

// Signature is a known generator mark. Exact signatures skip OCR tolerance;
// use it for phrases one edit away from everyday words.
type Signature struct {
	Name   string `json:"name"`
	Phrase string `json:"phrase"`
	Exact  bool   `json:"exact,omitempty"`
}

// DefaultSignatures lists common generator watermarks and captions.
var DefaultSignatures = []Signature{
	{Name: "Midjourney", Phrase: "midjourney"},
	{Name: "DALL-E", Phrase: "dall-e"},
	{Name: "Stable Diffusion", Phrase: "stable diffusion"},
	{Name: "Adobe Firefly", Phrase: "firefly"},
	{Name: "Imagen", Phrase: "imagen", Exact: true},
	{Name: "Bing Image Creator", Phrase: "bing image creator"},
	{Name: "Generated by AI", Phrase: "generated by ai"},
	{Name: "Made with AI", Phrase: "made with ai"},
}

// Match is one signature found in the text.
type Match struct {
	Signature  string  `json:"signature"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Matcher compares OCR text against signatures, tolerating small OCR errors.
type Matcher struct {
	signatures []Signature
	tokens     [][]string
}

// NewMatcher builds a matcher; with no signatures DefaultSignatures is used.
func NewMatcher(signatures ...Signature) *Matcher {
	if len(signatures) == 0 {
		signatures = DefaultSignatures
	}
	m := &Matcher{signatures: signatures, tokens: make([][]string, len(signatures))}
	for i, s := range signatures {
		m.tokens[i] = Tokenize(s.Phrase)
	}
	return m
}

// Tokenize lowercases text and splits it on anything that is not a letter or
// digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// allowedEdits scales the edit budget with token length.
func allowedEdits(token string) int {
	switch n := len(token); {
	case n < 5:
		return 0
	case n < 9:
		return 1
	default:
		return 2
	}
}

// tokenMatch reports whether word is an OCR rendering of token.
func tokenMatch(word, token string, exact bool) (bool, int) {
	if exact {
		return word == token, 0
	}
	d := levenshtein.Distance(word, token)
	return d <= allowedEdits(token), d
}

// Match returns each signature found in text at most once, in signature order.
func (m *Matcher) Match(text string) []Match {
	words := Tokenize(text)
	var out []Match
	for i, sig := range m.signatures {
		toks := m.tokens[i]
		if len(toks) == 0 || len(words) < len(toks) {
			continue
		}
		if match, ok := m.find(sig, toks, words); ok {
			out = append(out, match)
		}
	}
	return out
}

func (m *Matcher) find(sig Signature, toks, words []string) (Match, bool) {
	if len(toks) == 1 {
		for _, w := range words {
			if ok, d := tokenMatch(w, toks[0], sig.Exact); ok {
				return Match{
					Signature:  sig.Name,
					Text:       w,
					Confidence: 1 - float64(d)/float64(len(toks[0])),
				}, true
			}
		}
		return Match{}, false
	}

	for start := 0; start+len(toks) <= len(words); start++ {
		window := words[start : start+len(toks)]
		rate := phraseErrorRate(toks, window, sig.Exact)
		if rate <= MaxPhraseWER {
			return Match{
				Signature:  sig.Name,
				Text:       strings.Join(window, " "),
				Confidence: 1 - rate,
			}, true
		}
	}
	return Match{}, false
}

// phraseErrorRate snaps near-miss OCR words onto the reference tokens and
// returns the word error rate of what remains.
func phraseErrorRate(reference, window []string, exact bool) float64 {
	candidate := make([]string, len(window))
	for i, w := range window {
		candidate[i] = w
		if i < len(reference) {
			if ok, _ := tokenMatch(w, reference[i], exact); ok {
				candidate[i] = reference[i]
			}
		}
	}
	rate, _ := wer.WER(reference, candidate)
	return rate
}
