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



package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/annotit/ai"
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of entries embedded in one request
	BatchSize int

	// Parallelism is the number of batches embedded concurrently
	Parallelism int

	// ReportInterval is how often to report progress (number of entries)
	ReportInterval int

	// MaxAttempts is the maximum number of attempts for failed requests
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Model identifies the embedding model in checkpoints. A checkpoint
	// written for another model is discarded.
	Model string

	// Force reembeds entries that already carry an embedding.
	Force bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		Parallelism:    2,
		ReportInterval: 100,
		MaxAttempts:    3,
		RetryDelay:     1 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be positive", ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ai.ErrInvalidMaxAttempts)
	}
	if c.ReportInterval < 1 {
		return fmt.Errorf("%w: report interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// CheckpointName returns the checkpoint key of a dictionary's embedding run.
func CheckpointName(dictionary string) string {
	return "embed:" + dictionary
}

// Reembedder orchestrates the embedding of all entries of a dictionary.
type Reembedder struct {
	repo        storage.DictionaryRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	logger      *slog.Logger
}

// NewReembedder creates a new reembedder.
// checkpoints may be nil, in which case every run starts from the first entry.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.DictionaryRepository, checkpoints storage.CheckpointRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Reembedder{
		repo:        repo,
		checkpoints: checkpoints,
		config:      config,
		progress:    progress,
		processor:   NewBatchProcessor(repo, embedder, config.MaxAttempts, config.RetryDelay),
		logger:      slog.Default().With("component", "reembedder"),
	}, nil
}

// Run embeds the entries of dictionary.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context, dictionary string) error {
	if _, err := r.repo.GetDictionary(ctx, dictionary); err != nil {
		return err
	}
	total, err := r.repo.CountEntries(ctx, dictionary)
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No entries found in dictionary %q (0 entries)\n", dictionary)
		return nil
	}

	checkpoint, err := r.resume(ctx, dictionary)
	if err != nil {
		return err
	}
	if checkpoint.Processed > 0 {
		fmt.Fprintf(r.progress, "Resuming embedding of %q after %d entries\n", dictionary, checkpoint.Processed)
	} else {
		fmt.Fprintf(r.progress, "Starting embedding of %d entries of %q (batch size: %d)\n",
			total, dictionary, r.config.BatchSize)
	}

	pool, err := ants.NewPool(r.config.Parallelism)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer func() {
		if err := pool.ReleaseTimeout(5 * time.Second); err != nil {
			r.logger.Warn("worker pool did not drain", "err", err)
		}
	}()

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.StartAt(checkpoint.Processed)

	embedded := 0
	window := make([][]*core.Entry, 0, r.config.Parallelism)
	flush := func() error {
		if len(window) == 0 {
			return nil
		}
		n, err := r.processWindow(ctx, pool, window)
		if err != nil {
			return err
		}
		embedded += n

		last := window[len(window)-1]
		for _, batch := range window {
			checkpoint.Processed += len(batch)
		}
		checkpoint.LastID = last[len(last)-1].Id
		checkpoint.UpdatedAt = time.Now()
		if err := r.save(ctx, checkpoint); err != nil {
			return err
		}

		tracker.Update(checkpoint.Processed)
		window = window[:0]
		return nil
	}

	iterator := NewEntryIterator(r.repo, dictionary, r.config.BatchSize)
	err = iterator.ForEach(ctx, checkpoint.LastID, func(entries []*core.Entry) error {
		window = append(window, entries)
		if len(window) < r.config.Parallelism {
			return nil
		}
		return flush()
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return err
	}

	tracker.Finish()
	if r.checkpoints != nil {
		if err := r.checkpoints.DeleteCheckpoint(ctx, checkpoint.Name); err != nil {
			return fmt.Errorf("failed to delete checkpoint: %w", err)
		}
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Embedding complete. Embedded %d of %d entries in %v (%.1f entries/sec)\n",
		embedded, total, elapsed.Round(time.Second), float64(embedded)/elapsed.Seconds())
	return nil
}

// processWindow embeds up to Parallelism batches concurrently and returns
// the number of entries embedded.
func (r *Reembedder) processWindow(ctx context.Context, pool *ants.Pool, window [][]*core.Entry) (int, error) {
	pending := make([][]*core.Entry, len(window))
	count := 0
	for i, batch := range window {
		pending[i] = r.pending(batch)
		count += len(pending[i])
	}

	errs := make([]error, len(pending))
	var wg sync.WaitGroup
	for i, batch := range pending {
		if len(batch) == 0 {
			continue
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			errs[i] = r.processor.Process(ctx, batch)
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return 0, fmt.Errorf("failed to process batch: %w", err)
	}
	return count, nil
}

// pending drops entries that already carry an embedding unless Force is set.
func (r *Reembedder) pending(batch []*core.Entry) []*core.Entry {
	if r.config.Force {
		return batch
	}
	out := make([]*core.Entry, 0, len(batch))
	for _, entry := range batch {
		if len(entry.Embedding) == 0 {
			out = append(out, entry)
		}
	}
	return out
}

// resume loads the checkpoint of a previous interrupted run. A checkpoint
// written for another model is discarded.
func (r *Reembedder) resume(ctx context.Context, dictionary string) (*core.Checkpoint, error) {
	fresh := &core.Checkpoint{Name: CheckpointName(dictionary), Model: r.config.Model}
	if r.checkpoints == nil {
		return fresh, nil
	}

	checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, fresh.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if checkpoint == nil {
		return fresh, nil
	}
	if checkpoint.Model != r.config.Model {
		r.logger.Info("discarding checkpoint of another model",
			"dictionary", dictionary,
			"checkpointModel", checkpoint.Model,
			"model", r.config.Model)
		return fresh, nil
	}
	return checkpoint, nil
}

func (r *Reembedder) save(ctx context.Context, checkpoint *core.Checkpoint) error {
	if r.checkpoints == nil {
		return nil
	}
	if err := r.checkpoints.SaveCheckpoint(ctx, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
