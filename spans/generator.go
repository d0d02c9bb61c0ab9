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


// Package spans enumerates candidate spans over analyzed text.
//
// A candidate is a window of consecutive tokens bounded by a token length
// range. Windows never cross a sentence boundary, respect the lexical
// filters and are adjusted by one character to keep a single enclosing
// parenthesis balanced.
package spans

import (
	"errors"
	"fmt"
	"sort"
	"unicode"

	"github.com/poiesic/annotit/analysis"
	"github.com/poiesic/annotit/core"
)

// Defaults for the token window.
const (
	DefaultTokensLenMin = 1
	DefaultTokensLenMax = 6
)

// ErrInvalidWindow indicates an unusable token length range.
var ErrInvalidWindow = errors.New("invalid token window")

// Config controls span generation.
type Config struct {
	TokensLenMin int
	TokensLenMax int
	NoTermWords  WordSet
	NoBeginWords WordSet
	NoEndWords   WordSet
}

// DefaultConfig returns the default window and word lists.
func DefaultConfig() Config {
	return Config{
		TokensLenMin: DefaultTokensLenMin,
		TokensLenMax: DefaultTokensLenMax,
		NoTermWords:  NewWordSet(DefaultNoTermWords),
		NoBeginWords: NewWordSet(DefaultNoBeginWords),
		NoEndWords:   NewWordSet(DefaultNoEndWords),
	}
}

// Validate checks the token window.
func (c Config) Validate() error {
	if c.TokensLenMin < 1 {
		return fmt.Errorf("%w: tokens_len_min %d must be at least 1", ErrInvalidWindow, c.TokensLenMin)
	}
	if c.TokensLenMax < c.TokensLenMin {
		return fmt.Errorf("%w: tokens_len_max %d below tokens_len_min %d", ErrInvalidWindow, c.TokensLenMax, c.TokensLenMin)
	}
	return nil
}

// Occurrence is one place in the text where a candidate span occurs.
type Occurrence struct {
	Span   core.Span
	Norm1  string
	Norm2  string
	Tokens int
}

// Candidate groups every occurrence of the same surface string.
type Candidate struct {
	Text        string
	Occurrences []Occurrence
}

// Norm1 returns the norm1 form of the first occurrence.
func (c *Candidate) Norm1() string {
	return c.Occurrences[0].Norm1
}

// Norm2 returns the norm2 form of the first occurrence.
func (c *Candidate) Norm2() string {
	return c.Occurrences[0].Norm2
}

// Tokens returns the token count of the first occurrence.
func (c *Candidate) Tokens() int {
	return c.Occurrences[0].Tokens
}

// Generator produces candidate spans. It holds no per-text state.
type Generator struct {
	cfg Config
}

// NewGenerator validates cfg and returns a Generator. Nil word sets are
// treated as empty.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg}, nil
}

// Generate enumerates candidates over text. tokens1 and tokens2 are the
// Typographic and Morphosyntactic analyses of text. Candidates are ordered
// by first occurrence; occurrences are kept in text order.
func (g *Generator) Generate(text []rune, tokens1, tokens2 []core.Token) []Candidate {
	if len(tokens1) == 0 {
		return nil
	}

	breaks := SentenceBreaks(text)
	depth := parenDepths(text)

	var out []Candidate
	byText := make(map[string]int)
	seen := make(map[core.Span]struct{})

	for i := range tokens1 {
		first := tokens1[i].Text
		if g.cfg.NoTermWords.Has(first) || g.cfg.NoBeginWords.Has(first) {
			continue
		}

		for tlen := g.cfg.TokensLenMin; tlen <= g.cfg.TokensLenMax; tlen++ {
			j := i + tlen - 1
			if j >= len(tokens1) {
				break
			}
			if tokens1[j].Position-tokens1[i].Position+1 > g.cfg.TokensLenMax {
				break
			}

			begin, end := tokens1[i].Start, tokens1[j].End
			if crossesBreak(breaks, begin, end) {
				break
			}

			last := tokens1[j].Text
			if g.cfg.NoTermWords.Has(last) || g.cfg.NoEndWords.Has(last) {
				continue
			}

			// longer windows cannot recover the parenthesis level
			span, ok := balanceParens(text, depth, begin, end)
			if !ok {
				break
			}
			if _, dup := seen[span]; dup {
				continue
			}
			seen[span] = struct{}{}

			occ := Occurrence{
				Span:   span,
				Norm1:  analysis.Join(tokens1[i : j+1]),
				Norm2:  analysis.Join(positionRange(tokens2, tokens1[i].Position, tokens1[j].Position)),
				Tokens: tlen,
			}

			surface := span.Text(text)
			if k, ok := byText[surface]; ok {
				out[k].Occurrences = append(out[k].Occurrences, occ)
				continue
			}
			byText[surface] = len(out)
			out = append(out, Candidate{Text: surface, Occurrences: []Occurrence{occ}})
		}
	}

	for k := range out {
		sort.SliceStable(out[k].Occurrences, func(a, b int) bool {
			return out[k].Occurrences[a].Span.Begin < out[k].Occurrences[b].Span.Begin
		})
	}
	return out
}

// SentenceBreaks returns the offsets of sentence boundaries in text. A span
// [b,e) crosses boundary p when b < p < e.
func SentenceBreaks(text []rune) []int {
	var out []int
	for i, r := range text {
		switch r {
		case '\n':
			out = append(out, i)
		case '.', '!', '?':
			if i == 0 || i+2 >= len(text) {
				continue
			}
			prev := text[i-1]
			if !(unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				continue
			}
			if text[i+1] == ' ' && unicode.IsUpper(text[i+2]) {
				out = append(out, i+1)
			}
		}
	}
	return out
}

func crossesBreak(breaks []int, begin, end int) bool {
	k := sort.SearchInts(breaks, begin+1)
	return k < len(breaks) && breaks[k] < end
}

// parenDepths returns, for each offset 0..len(text), the number of
// unclosed '(' before it.
func parenDepths(text []rune) []int {
	depth := make([]int, len(text)+1)
	d := 0
	for i, r := range text {
		depth[i] = d
		switch r {
		case '(':
			d++
		case ')':
			if d > 0 {
				d--
			}
		}
	}
	depth[len(text)] = d
	return depth
}

// balanceParens extends [begin,end) by one character to enclose a single
// unbalanced parenthesis. Windows off by more than one level, or that one
// character cannot fix, are rejected.
func balanceParens(text []rune, depth []int, begin, end int) (core.Span, bool) {
	switch depth[end] - depth[begin] {
	case 0:
		return core.Span{Begin: begin, End: end}, true
	case 1:
		if end < len(text) && text[end] == ')' {
			return core.Span{Begin: begin, End: end + 1}, true
		}
	case -1:
		if begin > 0 && text[begin-1] == '(' {
			return core.Span{Begin: begin - 1, End: end}, true
		}
	}
	return core.Span{}, false
}

// positionRange returns the tokens whose Position lies in [from,to].
// tokens must be ordered by Position.
func positionRange(tokens []core.Token, from, to int) []core.Token {
	lo := sort.Search(len(tokens), func(i int) bool { return tokens[i].Position >= from })
	hi := lo
	for hi < len(tokens) && tokens[hi].Position <= to {
		hi++
	}
	return tokens[lo:hi]
}
