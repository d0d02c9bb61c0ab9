// Package scoring computes the surface similarity between a candidate span
// and a dictionary entry.
//
// Each string is padded with its own first and last character and split
// into character bigrams. Similarity of two bigram sets is their Jaccard
// coefficient. The combined score weighs the raw surface, norm1 and norm2
// representations; norm2 dominates when present.
package scoring

import (
	"errors"
	"fmt"

	"github.com/hbollon/go-edlib"
	"github.com/poiesic/annotit/core"
)

// DefaultThreshold is the default surface acceptance threshold.
const DefaultThreshold = 0.85

const norm2Weight = 10

// ErrInvalidThreshold indicates a threshold outside [0,1].
var ErrInvalidThreshold = errors.New("threshold must be within [0,1]")

// Term is the three-form representation of a span or an entry.
type Term struct {
	Surface string
	Norm1   string
	Norm2   string
}

// EntryTerm returns the Term of a dictionary entry.
func EntryTerm(e *core.Entry) Term {
	return Term{Surface: e.Label, Norm1: e.Norm1, Norm2: e.Norm2}
}

// Scorer scores terms and applies an acceptance threshold.
type Scorer struct {
	threshold float64
}

// NewScorer creates a Scorer accepting scores at or above threshold.
func NewScorer(threshold float64) (*Scorer, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	return &Scorer{threshold: threshold}, nil
}

// Threshold returns the acceptance threshold.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Accept scores span against entry and reports whether the score meets
// the threshold.
func (s *Scorer) Accept(span, entry Term) (float64, bool) {
	score := Score(span, entry)
	return score, score >= s.threshold
}

// Score returns the combined similarity of span and entry in [0,1].
// Equal non-empty norm2 forms score 1 without computing bigrams.
func Score(span, entry Term) float64 {
	if span.Norm2 != "" && span.Norm2 == entry.Norm2 {
		return 1
	}

	surface := Similarity(span.Surface, entry.Surface)
	norm1 := Similarity(span.Norm1, entry.Norm1)
	if span.Norm2 == "" && entry.Norm2 == "" {
		return (surface + norm1) / 2
	}
	norm2 := Similarity(span.Norm2, entry.Norm2)
	return (surface + norm1 + norm2Weight*norm2) / (2 + norm2Weight)
}

// Similarity is the Jaccard coefficient of the padded bigram sets of a and
// b, or 0 when either string is empty.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return jaccard(Bigrams(a), Bigrams(b))
}

// Bigrams returns the bigram set of s padded with its first and last
// character.
func Bigrams(s string) map[string]int {
	r := []rune(s)
	if len(r) == 0 {
		return map[string]int{}
	}
	padded := make([]rune, 0, len(r)+2)
	padded = append(padded, r[0])
	padded = append(padded, r...)
	padded = append(padded, r[len(r)-1])
	return edlib.Shingle(string(padded), 2)
}

func jaccard(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for g := range a {
		if _, ok := b[g]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
