package core

import "cmp"

// Span is a half-open range of code point offsets into a text.
type Span struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Len returns the number of code points covered by the span.
func (s Span) Len() int {
	return s.End - s.Begin
}

// Overlaps reports whether the spans share at least one code point.
func (s Span) Overlaps(o Span) bool {
	return s.Begin < o.End && s.End > o.Begin
}

// Contains reports whether o lies within s. Equal spans contain each other.
func (s Span) Contains(o Span) bool {
	return s.Begin <= o.Begin && o.End <= s.End
}

// Crosses reports whether the spans partially overlap, neither one
// containing the other.
func (s Span) Crosses(o Span) bool {
	return s.Overlaps(o) && !s.Contains(o) && !o.Contains(s)
}

// Text returns the slice of text covered by the span.
func (s Span) Text(text []rune) string {
	return string(text[s.Begin:s.End])
}

// Denotation associates a text span with a dictionary identifier.
// Score is always within [0,1].
type Denotation struct {
	Span  Span      `json:"span"`
	Obj   string    `json:"obj"`
	Score float64   `json:"score"`
	Match MatchType `json:"match,omitempty"`

	// Populated in verbose mode only.
	Label      string `json:"label,omitempty"`
	Norm1      string `json:"norm1,omitempty"`
	Norm2      string `json:"norm2,omitempty"`
	Dictionary string `json:"dictionary,omitempty"`
}

// CompareDenotations orders denotations by begin ascending, end descending,
// then score descending. Identifier breaks the remaining ties so that the
// order is total.
func CompareDenotations(a, b Denotation) int {
	if c := cmp.Compare(a.Span.Begin, b.Span.Begin); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Span.End, a.Span.End); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.Obj, b.Obj)
}

// ClampScore bounds a score to [0,1].
func ClampScore(score float64) float64 {
	return min(max(score, 0), 1)
}
