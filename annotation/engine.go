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



package annotation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/annotit/ai"
	"github.com/poiesic/annotit/analysis"
	"github.com/poiesic/annotit/cache"
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/pattern"
	"github.com/poiesic/annotit/semantic"
)

// DictionarySource is the read side of the dictionary store.
type DictionarySource interface {
	GetDictionary(ctx context.Context, name string) (*core.Dictionary, error)
	GetEntries(ctx context.Context, dictionary string, tags []string) ([]*core.Entry, error)
	GetPatterns(ctx context.Context, dictionary string, activeOnly bool) ([]*core.Pattern, error)
}

// Result is the annotation of one text.
type Result struct {
	Text        string            `json:"text"`
	Denotations []core.Denotation `json:"denotations"`
	// Err reports what went wrong for this text. A failed analysis leaves
	// Denotations empty; a failed embedding batch or pattern scan only
	// removes the affected matches.
	Err error `json:"-"`
}

// Engine annotates texts against stored dictionaries.
// It is safe for concurrent use; every call owns its resources.
type Engine struct {
	store          DictionarySource
	analyzer       analysis.Analyzer
	embedder       ai.Embedder
	semanticConfig *semantic.Config
	cacheCapacity  int
	patternTimeout time.Duration
	logger         *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithEmbedder enables semantic matching.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(e *Engine) error {
		e.embedder = embedder
		return nil
	}
}

// WithSemanticConfig sets how span embeddings are requested.
// Default is semantic.DefaultConfig().
func WithSemanticConfig(config *semantic.Config) Option {
	return func(e *Engine) error {
		if config == nil {
			return nil
		}
		if err := config.Validate(); err != nil {
			return err
		}
		e.semanticConfig = config
		return nil
	}
}

// WithCacheCapacity bounds the per-batch span cache.
// Default is cache.DefaultCapacity.
func WithCacheCapacity(capacity int) Option {
	return func(e *Engine) error {
		if capacity < 1 {
			return fmt.Errorf("%w: cache capacity must be positive, got %d", core.ErrInvalidOptions, capacity)
		}
		e.cacheCapacity = capacity
		return nil
	}
}

// WithPatternTimeout bounds each pattern scan.
// Default is pattern.DefaultMatchTimeout.
func WithPatternTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return fmt.Errorf("%w: pattern timeout must be positive, got %v", core.ErrInvalidOptions, d)
		}
		e.patternTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates an annotation engine.
func NewEngine(store DictionarySource, analyzer analysis.Analyzer, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}

	e := &Engine{
		store:          store,
		analyzer:       analyzer,
		semanticConfig: semantic.DefaultConfig(),
		cacheCapacity:  cache.DefaultCapacity,
		patternTimeout: pattern.DefaultMatchTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "annotation-engine")
	return e, nil
}

// Annotate annotates texts against the named dictionaries.
// Configuration errors and store failures are returned; failures specific
// to one text are reported on its Result.
func (e *Engine) Annotate(ctx context.Context, dictionaries []string, texts []string, opts Options) ([]Result, error) {
	return e.AnnotateWithMonitor(ctx, dictionaries, texts, opts, nil)
}

// AnnotateWithMonitor annotates texts with monitoring.
// The monitor receives callbacks at each stage of the process.
func (e *Engine) AnnotateWithMonitor(ctx context.Context, dictionaries []string, texts []string, opts Options, monitor Monitor) ([]Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if len(dictionaries) == 0 {
		return nil, core.ErrNoDictionary
	}
	if err := core.ValidateTexts(texts); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Semantic() && e.embedder == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidOptions, ErrEmbedderRequired)
	}

	started := time.Now()
	b, err := e.newBatch(ctx, dictionaries, opts)
	if err != nil {
		return nil, err
	}
	defer b.close()

	monitor.Start(b.names(), len(texts))

	results := make([]Result, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		denotations, err := b.annotate(ctx, i, text, monitor)
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		if err != nil {
			e.logger.Warn("text annotated with errors", "text", i, "err", err)
		}
		results[i] = Result{Text: text, Denotations: denotations, Err: err}
	}

	stats := b.cache.Stats()
	e.logger.Debug("batch annotated",
		"texts", len(texts),
		"dictionaries", len(b.dictionaries),
		"cacheHits", stats.Hits,
		"cacheMisses", stats.Misses,
		"elapsed", time.Since(started))

	monitor.Finish(results)
	return results, nil
}
