package pattern

import (
	"slices"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"github.com/poiesic/annotit/core"
)

// An abbreviation is a short token in parentheses right after the words it
// abbreviates: "tumor necrosis factor (TNF)".
var abbreviationRe = regexp2.MustCompile(`(?<=[^\s(])(\s*)\(([\p{L}\p{N}][\p{L}\p{N}\-]{0,11})\)`, regexp2.None)

// Abbreviation is a parenthesized abbreviation found in a text.
type Abbreviation struct {
	// Anchor is the end offset of the text preceding the parentheses. A
	// denotation ending at Anchor is the candidate expansion.
	Anchor int
	// Span covers the abbreviation inside the parentheses.
	Span core.Span
	Text string
}

// FindAbbreviations returns the parenthesized abbreviations of text in
// order. Candidates need at least two letters or digits, one of them an
// uppercase letter.
func FindAbbreviations(text string) ([]Abbreviation, error) {
	var out []Abbreviation
	match, err := abbreviationRe.FindStringMatch(text)
	for ; match != nil && err == nil; match, err = abbreviationRe.FindNextMatch(match) {
		abbr := match.GroupByNumber(2)
		if !plausible(abbr.String()) {
			continue
		}
		out = append(out, Abbreviation{
			Anchor: match.Index,
			Span:   core.Span{Begin: abbr.Index, End: abbr.Index + abbr.Length},
			Text:   abbr.String(),
		})
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Occurrences returns the spans of a and of every later whole-word
// occurrence of its text.
func (a Abbreviation) Occurrences(text []rune) []core.Span {
	out := []core.Span{a.Span}
	needle := []rune(a.Text)
	for i := a.Span.End; i+len(needle) <= len(text); i++ {
		if !slices.Equal(text[i:i+len(needle)], needle) {
			continue
		}
		end := i + len(needle)
		if i > 0 && isWordRune(text[i-1]) {
			continue
		}
		if end < len(text) && isWordRune(text[end]) {
			continue
		}
		out = append(out, core.Span{Begin: i, End: end})
		i = end - 1
	}
	return out
}

var expansionStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "by": {}, "for": {}, "in": {},
	"of": {}, "on": {}, "the": {}, "to": {}, "with": {},
}

// Classify decides whether abbr abbreviates expansion. Word initials or
// the capital letters of the expansion spelling abbr give a regular
// abbreviation; abbr's characters appearing in order in the expansion,
// starting with the same letter, give a free one.
func Classify(expansion, abbr string) (core.MatchType, bool) {
	short := compact(abbr)
	if len([]rune(short)) < 2 || expansion == "" {
		return "", false
	}

	words := strings.FieldsFunc(expansion, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '/'
	})

	var all, content strings.Builder
	for _, w := range words {
		first := []rune(strings.ToLower(w))[0]
		all.WriteRune(first)
		if _, stop := expansionStopwords[strings.ToLower(w)]; !stop {
			content.WriteRune(first)
		}
	}
	if all.String() == short || content.String() == short {
		return core.MatchRegAbbreviation, true
	}

	var caps strings.Builder
	for _, r := range expansion {
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			caps.WriteRune(unicode.ToLower(r))
		}
	}
	if caps.String() == short {
		return core.MatchRegAbbreviation, true
	}

	long := []rune(strings.ToLower(expansion))
	s := []rune(short)
	if long[0] != s[0] {
		return "", false
	}
	k := 0
	for _, r := range long {
		if k < len(s) && r == s[k] {
			k++
		}
	}
	if k == len(s) {
		return core.MatchFreeAbbreviation, true
	}
	return "", false
}

// compact lowercases s and keeps letters and digits only.
func compact(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func plausible(s string) bool {
	n, upper := 0, false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
		if unicode.IsUpper(r) {
			upper = true
		}
	}
	return n >= 2 && upper
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
