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


// Package pattern matches dictionary regular expressions directly against
// text and detects parenthesized abbreviations.
//
// Expressions use .NET-style syntax (lookaround and backreferences are
// supported) through regexp2. Match offsets are code point offsets.
package pattern

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/poiesic/annotit/core"
)

// DefaultMatchTimeout bounds a single regex scan.
const DefaultMatchTimeout = 2 * time.Second

// ErrMatchFailed indicates a pattern scan aborted, usually on timeout.
var ErrMatchFailed = errors.New("pattern match failed")

type compiled struct {
	re      *regexp2.Regexp
	pattern *core.Pattern
}

// Matcher scans text with a fixed set of active patterns.
type Matcher struct {
	patterns []compiled
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithMatchTimeout bounds each regex scan.
func WithMatchTimeout(d time.Duration) Option {
	return func(m *Matcher) error {
		if d <= 0 {
			return fmt.Errorf("match timeout must be positive, got %v", d)
		}
		m.timeout = d
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		m.logger = logger
		return nil
	}
}

// NewMatcher compiles the active patterns. Inactive patterns are skipped;
// an expression that does not compile is a configuration error.
func NewMatcher(patterns []*core.Pattern, opts ...Option) (*Matcher, error) {
	m := &Matcher{
		timeout: DefaultMatchTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "pattern-matcher")

	for _, p := range patterns {
		if p == nil || !p.Active {
			continue
		}
		if err := core.ValidatePattern(p); err != nil {
			return nil, err
		}
		re, err := regexp2.Compile(p.Expression, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", core.ErrInvalidPattern, p.Expression, err)
		}
		re.MatchTimeout = m.timeout
		m.patterns = append(m.patterns, compiled{re: re, pattern: p})
	}

	return m, nil
}

// Len returns the number of active patterns.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// Match returns one denotation with score 1 per non-overlapping,
// non-empty match of every active pattern, in pattern order. A pattern
// whose scan fails contributes no denotations; the others are still
// returned alongside the joined scan errors.
func (m *Matcher) Match(text string) ([]core.Denotation, error) {
	var (
		out  []core.Denotation
		errs []error
	)
	for _, c := range m.patterns {
		found, err := c.scan(text)
		if err != nil {
			m.logger.Error("pattern scan failed", "expression", c.pattern.Expression, "err", err)
			errs = append(errs, fmt.Errorf("%w: %q: %w", ErrMatchFailed, c.pattern.Expression, err))
			continue
		}
		out = append(out, found...)
	}
	return out, errors.Join(errs...)
}

func (c compiled) scan(text string) ([]core.Denotation, error) {
	var out []core.Denotation
	match, err := c.re.FindStringMatch(text)
	for ; match != nil && err == nil; match, err = c.re.FindNextMatch(match) {
		if match.Length == 0 {
			continue
		}
		out = append(out, core.Denotation{
			Span:       core.Span{Begin: match.Index, End: match.Index + match.Length},
			Obj:        c.pattern.Identifier,
			Score:      1,
			Match:      core.MatchPattern,
			Dictionary: c.pattern.Dictionary,
		})
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
