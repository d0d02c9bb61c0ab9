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


package analysis

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/poiesic/annotit/core"
	"github.com/surgebase/porter2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const defaultStemMinLength = 3

// LocalAnalyzer is an in-process Analyzer. Tokens are maximal runs of
// letters, digits and combining marks.
type LocalAnalyzer struct {
	stopwords     map[string]struct{}
	stemMinLength int
	logger        *slog.Logger
}

var _ Analyzer = (*LocalAnalyzer)(nil)

// LocalOption configures a LocalAnalyzer.
type LocalOption func(*LocalAnalyzer)

// WithStopwords replaces the default English stopword list.
func WithStopwords(words []string) LocalOption {
	return func(a *LocalAnalyzer) {
		a.stopwords = make(map[string]struct{}, len(words))
		for _, w := range words {
			a.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithStemMinLength sets the shortest token that is stemmed.
func WithStemMinLength(n int) LocalOption {
	return func(a *LocalAnalyzer) {
		a.stemMinLength = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LocalOption {
	return func(a *LocalAnalyzer) {
		a.logger = logger
	}
}

// NewLocalAnalyzer creates an analyzer with English defaults.
func NewLocalAnalyzer(opts ...LocalOption) *LocalAnalyzer {
	a := &LocalAnalyzer{
		stemMinLength: defaultStemMinLength,
		logger:        slog.Default(),
	}
	WithStopwords(DefaultStopwords)(a)
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "local-analyzer")
	return a
}

// Analyze tokenizes text under profile.
func (a *LocalAnalyzer) Analyze(ctx context.Context, text string, profile Profile) ([]core.Token, error) {
	if profile != Typographic && profile != Morphosyntactic {
		return nil, ErrUnknownProfile
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// transform chains carry state; one per call keeps Analyze reentrant
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	raw := []rune(text)
	tokens := make([]core.Token, 0, len(raw)/5+1)
	position := 0
	for i := 0; i < len(raw); {
		if !isWordRune(raw[i]) {
			i++
			continue
		}
		start := i
		for i < len(raw) && isWordRune(raw[i]) {
			i++
		}

		form, _, err := transform.String(fold, strings.ToLower(string(raw[start:i])))
		if err != nil {
			return nil, err
		}
		form = strings.ToLower(form)
		if form == "" {
			continue
		}

		pos := position
		position++

		if profile == Morphosyntactic {
			if _, stop := a.stopwords[form]; stop {
				continue
			}
			form = a.stem(form)
		}

		tokens = append(tokens, core.Token{
			Text:     form,
			Start:    start,
			End:      i,
			Position: pos,
		})
	}

	a.logger.Debug("analyzed text", "profile", profile, "runes", len(raw), "tokens", len(tokens))
	return tokens, nil
}

func (a *LocalAnalyzer) stem(word string) string {
	if len(word) < a.stemMinLength {
		return word
	}
	for _, r := range word {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return word
		}
	}
	return porter2.Stem(word)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
