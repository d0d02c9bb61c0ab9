package spans

import "strings"

// Default lexical filters, compared against typographically normalized tokens.
var (
	// DefaultNoTermWords may neither start nor end a span.
	DefaultNoTermWords = []string{
		"am", "an", "and", "are", "as", "at", "be", "been", "but", "by",
		"did", "do", "does", "for", "from", "had", "has", "have", "he", "how",
		"i", "if", "in", "is", "it", "its", "not", "of", "on", "or", "she",
		"that", "the", "these", "they", "this", "those", "to", "was", "we",
		"were", "what", "when", "where", "which", "who", "with", "you",
	}

	// DefaultNoBeginWords may not start a span.
	DefaultNoBeginWords = []string{
		"a", "about", "after", "all", "also", "any", "before", "between",
		"each", "during", "into", "than", "then", "through", "under", "very",
	}

	// DefaultNoEndWords may not end a span.
	DefaultNoEndWords = []string{
		"a", "about", "after", "before", "between", "during", "into",
		"than", "then", "through", "under",
	}
)

// WordSet is a set of lowercase words.
type WordSet map[string]struct{}

// NewWordSet builds a set from the union of lists.
func NewWordSet(lists ...[]string) WordSet {
	s := make(WordSet)
	for _, list := range lists {
		for _, w := range list {
			s[strings.ToLower(w)] = struct{}{}
		}
	}
	return s
}

// Has reports whether w is in the set.
func (s WordSet) Has(w string) bool {
	_, ok := s[w]
	return ok
}
