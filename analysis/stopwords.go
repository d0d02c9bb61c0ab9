package analysis

// DefaultStopwords are removed by the Morphosyntactic profile.
var DefaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "been", "but", "by",
	"for", "from", "if", "in", "into", "is", "it", "its", "no", "not",
	"of", "on", "or", "such", "that", "the", "their", "then", "there",
	"these", "they", "this", "those", "to", "was", "were", "which", "will",
	"with",
}
