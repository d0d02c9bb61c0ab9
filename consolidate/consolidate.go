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


// Package consolidate reduces the raw pattern, surface and semantic
// denotations of one text to the final annotation set.
//
// Every step is a pure function: it reads a sorted slice, selects a set
// of indexes to keep and returns a new slice. Inputs are never modified.
package consolidate

import (
	"slices"

	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/pattern"
)

// Options selects the pruning behavior.
type Options struct {
	// Longest keeps denotations with equal spans and equal scores side by
	// side instead of keeping the first one only.
	Longest bool
	// Superfluous disables embedded-span pruning.
	Superfluous bool
	// Abbreviation enables expansion of parenthesized abbreviations.
	Abbreviation bool
}

// DefaultOptions returns the default consolidation options.
func DefaultOptions() Options {
	return Options{Longest: true, Abbreviation: true}
}

// Consolidate runs every step in order and returns the final denotations
// sorted by position.
func Consolidate(text []rune, denotations []core.Denotation, abbreviations []pattern.Abbreviation, opts Options) []core.Denotation {
	ds := Sort(denotations)
	ds = MergeSameIdentifier(ds)
	ds = EliminateCrossings(ds)
	ds = PruneNested(ds, opts)
	if opts.Abbreviation {
		ds = ExpandAbbreviations(text, ds, abbreviations)
	}
	return ds
}

// Sort returns a copy of ds ordered by begin ascending, end descending and
// score descending.
func Sort(ds []core.Denotation) []core.Denotation {
	out := slices.Clone(ds)
	slices.SortStableFunc(out, core.CompareDenotations)
	return out
}

// MergeSameIdentifier keeps, among overlapping denotations sharing an
// identifier, only the highest scoring one. Input must be sorted.
func MergeSameIdentifier(ds []core.Denotation) []core.Denotation {
	order := make([]int, len(ds))
	for i := range order {
		order[i] = i
	}
	// Best first; position decides among equal scores.
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case ds[a].Score > ds[b].Score:
			return -1
		case ds[a].Score < ds[b].Score:
			return 1
		}
		return 0
	})

	kept := make(map[string][]core.Span)
	keep := make([]bool, len(ds))
	for _, i := range order {
		d := ds[i]
		if slices.ContainsFunc(kept[d.Obj], d.Span.Overlaps) {
			continue
		}
		kept[d.Obj] = append(kept[d.Obj], d.Span)
		keep[i] = true
	}
	return pick(ds, keep)
}

// EliminateCrossings sweeps left to right. A denotation crossing open
// denotations replaces them when its score beats the best of them and is
// dropped otherwise. Input must be sorted.
func EliminateCrossings(ds []core.Denotation) []core.Denotation {
	keep := make([]bool, len(ds))
	var open []int
	for i, d := range ds {
		best := -1.0
		var crossed []int
		for _, j := range open {
			if ds[j].Span.Crosses(d.Span) {
				crossed = append(crossed, j)
				best = max(best, ds[j].Score)
			}
		}
		if len(crossed) > 0 && d.Score <= best {
			continue
		}
		for _, j := range crossed {
			keep[j] = false
		}
		open = slices.DeleteFunc(open, func(j int) bool { return !keep[j] })
		keep[i] = true
		open = append(open, i)
	}
	return pick(ds, keep)
}

// PruneNested drops denotations nested inside a selected outer one. A
// nested denotation with the outer's identifier and a strictly higher
// score replaces the outer one. With opts.Longest, denotations with equal
// spans and scores are all kept. With opts.Superfluous nothing is pruned.
// Input must be sorted and free of crossings.
func PruneNested(ds []core.Denotation, opts Options) []core.Denotation {
	if opts.Superfluous {
		return slices.Clone(ds)
	}
	keep := make([]bool, len(ds))
	var selected []int
	for i, d := range ds {
		loses := false
		var beaten []int
		for _, j := range selected {
			outer := ds[j]
			if !outer.Span.Contains(d.Span) {
				continue
			}
			switch {
			case outer.Obj == d.Obj && d.Score > outer.Score:
				beaten = append(beaten, j)
			case outer.Span == d.Span && opts.Longest && outer.Score == d.Score:
			default:
				loses = true
			}
		}
		if loses {
			continue
		}
		for _, j := range beaten {
			keep[j] = false
		}
		selected = slices.DeleteFunc(selected, func(j int) bool { return !keep[j] })
		keep[i] = true
		selected = append(selected, i)
	}
	return pick(ds, keep)
}

// ExpandAbbreviations adds, for every denotation ending at an abbreviation
// anchor whose text the abbreviation plausibly abbreviates, a denotation
// at each occurrence of the abbreviation with the same identifier and
// score. Added spans that overlap a denotation of the same identifier are
// skipped. The result is sorted.
func ExpandAbbreviations(text []rune, ds []core.Denotation, abbreviations []pattern.Abbreviation) []core.Denotation {
	out := slices.Clone(ds)
	if len(abbreviations) == 0 {
		return out
	}
	anchors := make(map[int][]pattern.Abbreviation, len(abbreviations))
	for _, a := range abbreviations {
		anchors[a.Anchor] = append(anchors[a.Anchor], a)
	}

	for _, d := range ds {
		for _, a := range anchors[d.Span.End] {
			kind, ok := pattern.Classify(d.Span.Text(text), a.Text)
			if !ok {
				continue
			}
			for _, span := range a.Occurrences(text) {
				taken := slices.ContainsFunc(out, func(o core.Denotation) bool {
					return o.Obj == d.Obj && o.Span.Overlaps(span)
				})
				if taken {
					continue
				}
				abbr := d
				abbr.Span = span
				abbr.Match = kind
				out = append(out, abbr)
			}
		}
	}
	slices.SortStableFunc(out, core.CompareDenotations)
	return out
}

func pick(ds []core.Denotation, keep []bool) []core.Denotation {
	out := make([]core.Denotation, 0, len(ds))
	for i, d := range ds {
		if keep[i] {
			out = append(out, d)
		}
	}
	return out
}
