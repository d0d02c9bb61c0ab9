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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/annotit/ai"
	"github.com/poiesic/annotit/core"
	"github.com/tmc/langchaingo/embeddings"
)

const releaseTimeout = 5 * time.Second

// Report summarizes one Resolve call.
type Report struct {
	// Requested is the number of distinct strings sent for embedding.
	Requested int
	// Resolved is the number of strings that received a vector.
	Resolved int
	// Batches is the number of embedding requests issued.
	Batches int
	// FailedBatches is the number of requests that failed after retries.
	FailedBatches int
	// Err joins the failures of every failed batch.
	Err error
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger != nil {
			r.logger = logger.With("component", "semantic-resolver")
		}
		return nil
	}
}

// Resolver embeds span strings in concurrent batches and remembers the
// outcome. A string is attempted at most once per Resolver; failures are
// not retried by later calls.
type Resolver struct {
	embedder  ai.Embedder
	config    Config
	pool      *ants.Pool
	logger    *slog.Logger
	mu        sync.RWMutex
	vectors   map[string][]float32
	attempted map[string]struct{}
}

// NewResolver creates a resolver. Release must be called when done.
func NewResolver(embedder ai.Embedder, config *Config, opts ...Option) (*Resolver, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	r := &Resolver{
		embedder:  embedder,
		config:    *config,
		logger:    slog.Default().With("component", "semantic-resolver"),
		vectors:   make(map[string][]float32),
		attempted: make(map[string]struct{}),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	pool, err := ants.NewPool(r.config.Parallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// Filterable reports whether s is worth embedding: at least minChars
// characters and at least one letter.
func Filterable(s string, minChars int) bool {
	if utf8.RuneCountInString(s) < minChars {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Resolve embeds every string in texts that has not been attempted yet.
// A failed batch only affects its own strings; the other batches and
// previously resolved vectors stay available through Vector.
func (r *Resolver) Resolve(ctx context.Context, texts []string) Report {
	pending := r.claim(texts)
	report := Report{Requested: len(pending)}
	if len(pending) == 0 {
		return report
	}

	batches := embeddings.BatchTexts(pending, r.config.BatchSize)
	report.Batches = len(batches)
	results := make([][][]float32, len(batches))
	failures := make([]error, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			results[i], failures[i] = r.embedBatch(ctx, i, batch)
		})
		if err != nil {
			wg.Done()
			failures[i] = fmt.Errorf("batch %d: %w", i, err)
		}
	}
	wg.Wait()

	r.mu.Lock()
	for i, batch := range batches {
		if failures[i] != nil {
			report.FailedBatches++
			continue
		}
		for j, text := range batch {
			r.vectors[text] = core.NormalizeVector(results[i][j])
			report.Resolved++
		}
	}
	r.mu.Unlock()

	report.Err = errors.Join(failures...)
	if report.FailedBatches > 0 {
		r.logger.Warn("semantic resolution incomplete",
			"requested", report.Requested,
			"resolved", report.Resolved,
			"failedBatches", report.FailedBatches)
	}
	return report
}

// Vector returns the normalized embedding of text, if it was resolved.
func (r *Resolver) Vector(text string) ([]float32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vectors[text]
	return v, ok
}

// Release stops the worker pool.
func (r *Resolver) Release() {
	if err := r.pool.ReleaseTimeout(releaseTimeout); err != nil {
		r.logger.Warn("embedding pool did not drain", "err", err)
	}
}

// claim dedupes texts and marks the new ones as attempted.
func (r *Resolver) claim(texts []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := make([]string, 0, len(texts))
	for _, text := range texts {
		if _, seen := r.attempted[text]; seen {
			continue
		}
		r.attempted[text] = struct{}{}
		pending = append(pending, text)
	}
	return pending
}

func (r *Resolver) embedBatch(ctx context.Context, index int, batch []string) ([][]float32, error) {
	var vectors [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.config.RequestTimeout)
		defer cancel()
		v, err := r.embedder.EmbedTexts(callCtx, batch)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return ai.NewTransientError("embedder", err)
			}
			return err
		}
		if len(v) != len(batch) {
			return ai.NewTransientError("embedder",
				fmt.Errorf("got %d embeddings for %d texts", len(v), len(batch)))
		}
		vectors = v
		return nil
	}, r.config.MaxAttempts, r.config.RetryDelay)
	if err == nil {
		return vectors, nil
	}

	if ai.IsRetryable(err) && ctx.Err() == nil {
		err = fmt.Errorf("%w: batch %d (%d spans): %w", ai.ErrServiceUnavailable, index, len(batch), err)
	} else {
		err = fmt.Errorf("batch %d (%d spans): %w", index, len(batch), err)
	}
	r.logger.Error("embedding batch failed", "batch", index, "size", len(batch), "err", err)
	return nil, err
}
