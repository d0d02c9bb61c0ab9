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


// Package analysis adapts text normalization and tokenization services to
// the annotation engine.
//
// The engine needs two analyzer profiles over the same text: Typographic
// (norm1) and Morphosyntactic (norm2, stopwords removed). Token offsets are
// code point offsets into the analyzed text and positions keep gaps left by
// removed stopwords, so span generation can align both token streams.
package analysis

import (
	"context"
	"errors"
	"strings"

	"github.com/poiesic/annotit/core"
)

// ErrUnknownProfile indicates a profile the analyzer does not implement.
var ErrUnknownProfile = errors.New("unknown analyzer profile")

// Profile names an analyzer configuration.
type Profile int

const (
	// Typographic applies compatibility normalization, case folding and
	// diacritic removal.
	Typographic Profile = iota + 1
	// Morphosyntactic applies Typographic, removes stopwords and stems.
	Morphosyntactic
)

func (p Profile) String() string {
	switch p {
	case Typographic:
		return "typographic"
	case Morphosyntactic:
		return "morphosyntactic"
	default:
		return "unknown"
	}
}

// Analyzer tokenizes and normalizes text under a named profile.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(ctx context.Context, text string, profile Profile) ([]core.Token, error)
}

// Join concatenates token texts with single spaces.
func Join(tokens []core.Token) string {
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		return tokens[0].Text
	}
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

// Normalize returns the norm1 and norm2 forms of a label.
func Normalize(ctx context.Context, a Analyzer, text string) (norm1, norm2 string, err error) {
	t1, err := a.Analyze(ctx, text, Typographic)
	if err != nil {
		return "", "", err
	}
	t2, err := a.Analyze(ctx, text, Morphosyntactic)
	if err != nil {
		return "", "", err
	}
	return Join(t1), Join(t2), nil
}
