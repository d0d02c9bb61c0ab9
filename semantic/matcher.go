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


package semantic

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/poiesic/annotit/core"
)

// Matcher selects semantic candidates for a span across several
// dictionary indexes.
type Matcher struct {
	indexes   []*Index
	policy    Policy
	threshold float64
}

// NewMatcher creates a matcher. threshold must be within (0,1].
func NewMatcher(indexes []*Index, policy Policy, threshold float64) (*Matcher, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	if policy != PolicyTop && policy != PolicyOrder {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, policy)
	}
	return &Matcher{indexes: indexes, policy: policy, threshold: threshold}, nil
}

// Match returns the candidates for a span vector. document is the
// embedding of the whole text; under PolicyOrder it breaks score ties in
// favor of entries closer to the document. It may be nil.
func (m *Matcher) Match(span, document []float32) []core.Candidate {
	return m.MatchIn(span, document, nil)
}

// MatchIn is Match restricted to the dictionaries accept reports true for.
// Selection runs over the accepted dictionaries only. A nil accept admits
// every dictionary.
func (m *Matcher) MatchIn(span, document []float32, accept func(dictionary string) bool) []core.Candidate {
	var all []core.Candidate
	for _, ix := range m.indexes {
		if accept != nil && !accept(ix.Dictionary()) {
			continue
		}
		all = append(all, ix.Search(span, m.threshold)...)
	}
	if len(all) == 0 {
		return nil
	}

	switch m.policy {
	case PolicyOrder:
		closeness := make(map[*core.Entry]float64, len(all))
		if len(document) > 0 {
			for _, c := range all {
				closeness[c.Entry] = core.CosineSimilarity(c.Entry.Embedding, document)
			}
		}
		slices.SortStableFunc(all, func(a, b core.Candidate) int {
			if c := cmp.Compare(b.Score, a.Score); c != 0 {
				return c
			}
			if c := cmp.Compare(closeness[b.Entry], closeness[a.Entry]); c != 0 {
				return c
			}
			return cmp.Compare(a.Entry.Identifier, b.Entry.Identifier)
		})
		return all
	default:
		best := all[0].Score
		for _, c := range all[1:] {
			best = max(best, c.Score)
		}
		top := all[:0]
		for _, c := range all {
			if c.Score == best {
				top = append(top, c)
			}
		}
		return top
	}
}
