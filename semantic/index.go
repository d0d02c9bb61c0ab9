package semantic

import (
	"github.com/poiesic/annotit/core"
)

// Index is an in-memory vector index over the searchable entries of one
// dictionary that carry an embedding.
type Index struct {
	dictionary string
	entries    []*core.Entry
	vectors    [][]float32
}

// NewIndex builds an index. When tags is non-empty only entries carrying
// at least one of the tags are indexed.
func NewIndex(dictionary string, entries []*core.Entry, tags []string) *Index {
	ix := &Index{dictionary: dictionary}
	for _, entry := range entries {
		if entry == nil || !entry.Searchable || len(entry.Embedding) == 0 {
			continue
		}
		if len(tags) > 0 && !entry.HasAnyTag(tags) {
			continue
		}
		ix.entries = append(ix.entries, entry)
		ix.vectors = append(ix.vectors, core.NormalizeVector(entry.Embedding))
	}
	return ix
}

// Dictionary returns the name of the indexed dictionary.
func (ix *Index) Dictionary() string {
	return ix.dictionary
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Search returns every entry whose cosine similarity to query is at least
// threshold. Scores are clamped to [0,1]. Vectors of a different
// dimension never match.
func (ix *Index) Search(query []float32, threshold float64) []core.Candidate {
	if len(query) == 0 {
		return nil
	}
	q := core.NormalizeVector(query)
	var out []core.Candidate
	for i, v := range ix.vectors {
		if len(v) != len(q) {
			continue
		}
		score := core.ClampScore(core.Dot(q, v))
		if score < threshold {
			continue
		}
		out = append(out, core.Candidate{Entry: ix.entries[i], Score: score, Match: core.MatchSemantic})
	}
	return out
}
