// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package simstring implements an approximate string index over normalized
// dictionary labels.
//
// Strings are decomposed into character n-grams padded with begin and end
// markers. An inverted index maps each n-gram hash to the strings that
// contain it. Retrieval gathers strings sharing n-grams with the query,
// skipping posting entries whose n-gram count falls outside the bounds
// implied by the measure and threshold, and keeps those whose exact
// similarity meets the threshold.
package simstring

import (
	"cmp"
	"iter"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultN is the default n-gram length.
	DefaultN = 3

	beginMarker = '\x02'
	endMarker   = '\x03'
)

// Measure selects the similarity used for retrieval.
type Measure int

const (
	// Jaccard is |X∩Y| / |X∪Y|.
	Jaccard Measure = iota
	// Overlap is |X∩Y| / min(|X|,|Y|).
	Overlap
)

func (m Measure) String() string {
	if m == Overlap {
		return "overlap"
	}
	return "jaccard"
}

// Hit is a retrieved string and its similarity to the query.
type Hit struct {
	Value      string
	Similarity float64
}

// Index is an n-gram inverted index. It is not safe for concurrent
// mutation; once built it may be queried concurrently.
type Index struct {
	n        int
	values   []string
	sizes    []int
	postings map[uint64][]int32
	seen     map[string]struct{}
	// exact holds strings too short to produce meaningful n-grams
	exact map[string]struct{}
}

// New creates an empty index using n-grams of length n.
// Values of n below 2 fall back to DefaultN.
func New(n int) *Index {
	if n < 2 {
		n = DefaultN
	}
	return &Index{
		n:        n,
		postings: make(map[uint64][]int32),
		seen:     make(map[string]struct{}),
		exact:    make(map[string]struct{}),
	}
}

// Build creates a trigram index over strs.
func Build(strs iter.Seq[string]) *Index {
	ix := New(DefaultN)
	for s := range strs {
		ix.Add(s)
	}
	return ix
}

// Add inserts s. Empty and duplicate strings are ignored.
func (ix *Index) Add(s string) {
	if s == "" {
		return
	}
	if _, dup := ix.seen[s]; dup {
		return
	}
	ix.seen[s] = struct{}{}

	if ix.short(s) {
		ix.exact[s] = struct{}{}
		return
	}

	grams := ix.grams(s)
	id := int32(len(ix.values))
	ix.values = append(ix.values, s)
	ix.sizes = append(ix.sizes, len(grams))
	for _, g := range grams {
		ix.postings[g] = append(ix.postings[g], id)
	}
}

// Len returns the number of indexed strings.
func (ix *Index) Len() int {
	return len(ix.seen)
}

// Contains reports whether s was indexed.
func (ix *Index) Contains(s string) bool {
	_, ok := ix.seen[s]
	return ok
}

// Retrieve returns the indexed strings whose similarity to query under
// measure is at least threshold, ordered by similarity descending then
// value. An empty index yields no hits.
func (ix *Index) Retrieve(query string, threshold float64, measure Measure) []Hit {
	if query == "" || ix.Len() == 0 {
		return nil
	}

	if ix.short(query) {
		if _, ok := ix.exact[query]; ok {
			return []Hit{{Value: query, Similarity: 1}}
		}
		return nil
	}

	grams := ix.grams(query)
	qsize := len(grams)
	lo, hi := sizeBounds(qsize, threshold, measure)

	counts := make(map[int32]int)
	for _, g := range grams {
		for _, id := range ix.postings[g] {
			if size := ix.sizes[id]; size < lo || size > hi {
				continue
			}
			counts[id]++
		}
	}

	hits := make([]Hit, 0, len(counts))
	for id, overlap := range counts {
		sim := similarity(qsize, ix.sizes[id], overlap, measure)
		if sim >= threshold {
			hits = append(hits, Hit{Value: ix.values[id], Similarity: sim})
		}
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return hits
}

func (ix *Index) short(s string) bool {
	return len([]rune(s)) < ix.n-1
}

// grams returns the distinct n-gram hashes of s padded with n-1 markers on
// each side.
func (ix *Index) grams(s string) []uint64 {
	padded := make([]rune, 0, len(s)+2*(ix.n-1))
	for i := 0; i < ix.n-1; i++ {
		padded = append(padded, beginMarker)
	}
	padded = append(padded, []rune(s)...)
	for i := 0; i < ix.n-1; i++ {
		padded = append(padded, endMarker)
	}

	out := make([]uint64, 0, len(padded)-ix.n+1)
	seen := make(map[uint64]struct{}, cap(out))
	for i := 0; i+ix.n <= len(padded); i++ {
		h := xxhash.Sum64String(string(padded[i : i+ix.n]))
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// sizeBounds returns the range of candidate n-gram counts that can reach
// threshold against a query of qsize n-grams.
func sizeBounds(qsize int, threshold float64, measure Measure) (int, int) {
	if threshold <= 0 || measure == Overlap {
		return 1, math.MaxInt
	}
	t := math.Min(threshold, 1)
	lo := int(math.Ceil(t*float64(qsize) - 1e-9))
	hi := int(math.Floor(float64(qsize)/t + 1e-9))
	return max(lo, 1), hi
}

func similarity(x, y, overlap int, measure Measure) float64 {
	switch measure {
	case Overlap:
		return float64(overlap) / float64(min(x, y))
	default:
		return float64(overlap) / float64(x+y-overlap)
	}
}
