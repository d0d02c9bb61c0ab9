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



package annotit

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/annotit/ai"
	"github.com/poiesic/annotit/ai/openai"
	"github.com/poiesic/annotit/analysis"
	"github.com/poiesic/annotit/annotation"
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/reembed"
	"github.com/poiesic/annotit/semantic"
	"github.com/poiesic/annotit/storage"
	"github.com/poiesic/annotit/storage/badger"
)

// importChunkSize bounds the number of entries written in one transaction.
const importChunkSize = 1000

// Annotator wires the dictionary store, the analyzer, the embedding
// provider and the annotation engine together.
type Annotator struct {
	backend        *badger.Backend
	dictRepo       storage.DictionaryRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.AIProvider
	analyzer       analysis.Analyzer
	engine         *annotation.Engine
	logger         *slog.Logger
}

// AnnotatorOption configures an Annotator.
type AnnotatorOption func(*annotatorOptions)

type annotatorOptions struct {
	aiConfig       *ai.Config
	provider       ai.AIProvider
	analyzer       analysis.Analyzer
	semanticConfig *semantic.Config
	cacheCapacity  int
	inMemory       bool
	logger         *slog.Logger
}

// WithAIConfig enables semantic matching through an OpenAI-compatible
// embedding service.
func WithAIConfig(config *ai.Config) AnnotatorOption {
	return func(o *annotatorOptions) {
		o.aiConfig = config
	}
}

// WithProvider enables semantic matching through provider. It takes
// precedence over WithAIConfig. The Annotator closes it.
func WithProvider(provider ai.AIProvider) AnnotatorOption {
	return func(o *annotatorOptions) {
		o.provider = provider
	}
}

// WithAnalyzer replaces the local analyzer.
func WithAnalyzer(analyzer analysis.Analyzer) AnnotatorOption {
	return func(o *annotatorOptions) {
		o.analyzer = analyzer
	}
}

// WithSemanticConfig sets how span embeddings are requested.
func WithSemanticConfig(config *semantic.Config) AnnotatorOption {
	return func(o *annotatorOptions) {
		o.semanticConfig = config
	}
}

// WithCacheCapacity bounds the per-batch span cache.
func WithCacheCapacity(capacity int) AnnotatorOption {
	return func(o *annotatorOptions) {
		o.cacheCapacity = capacity
	}
}

// InMemory keeps the store in memory. The path is ignored.
func InMemory() AnnotatorOption {
	return func(o *annotatorOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger of every component.
func WithLogger(logger *slog.Logger) AnnotatorOption {
	return func(o *annotatorOptions) {
		o.logger = logger
	}
}

// NewAnnotator opens the dictionary store at filePath.
// Without WithAIConfig or WithProvider only surface and pattern matching
// are available.
func NewAnnotator(filePath string, opts ...AnnotatorOption) (*Annotator, error) {
	options := &annotatorOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	var (
		dictRepo       storage.DictionaryRepository
		checkpointRepo storage.CheckpointRepository
		backend        *badger.Backend
		err            error
	)
	if options.inMemory {
		dictRepo, checkpointRepo, backend, err = badger.NewMemoryRepositories()
	} else {
		dictRepo, checkpointRepo, backend, err = badger.NewRepositories(filePath, options.logger)
	}
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil && options.aiConfig != nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			dictRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	analyzer := options.analyzer
	if analyzer == nil {
		analyzer = analysis.NewLocalAnalyzer(analysis.WithLogger(options.logger))
	}

	engineOpts := []annotation.Option{
		annotation.WithLogger(options.logger),
		annotation.WithSemanticConfig(options.semanticConfig),
	}
	if provider != nil {
		engineOpts = append(engineOpts, annotation.WithEmbedder(provider.Embedder()))
	}
	if options.cacheCapacity != 0 {
		engineOpts = append(engineOpts, annotation.WithCacheCapacity(options.cacheCapacity))
	}
	engine, err := annotation.NewEngine(dictRepo, analyzer, engineOpts...)
	if err != nil {
		if provider != nil {
			provider.Close()
		}
		dictRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Annotator{
		backend:        backend,
		dictRepo:       dictRepo,
		checkpointRepo: checkpointRepo,
		provider:       provider,
		analyzer:       analyzer,
		engine:         engine,
		logger:         options.logger.With("component", "annotator"),
	}, nil
}

func (a *Annotator) Close() error {
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
		}
	}

	if err := a.dictRepo.Close(); err != nil {
		a.logger.Error("error closing dictionary repository", "err", err)
		return err
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (a *Annotator) DictionaryRepository() storage.DictionaryRepository {
	return a.dictRepo
}

func (a *Annotator) CheckpointRepository() storage.CheckpointRepository {
	return a.checkpointRepo
}

// Annotate annotates texts against the named dictionaries.
func (a *Annotator) Annotate(ctx context.Context, dictionaries, texts []string, opts annotation.Options) ([]annotation.Result, error) {
	return a.engine.Annotate(ctx, dictionaries, texts, opts)
}

// AnnotateWithMonitor annotates texts and reports every stage to monitor.
func (a *Annotator) AnnotateWithMonitor(ctx context.Context, dictionaries, texts []string, opts annotation.Options, monitor annotation.Monitor) ([]annotation.Result, error) {
	return a.engine.AnnotateWithMonitor(ctx, dictionaries, texts, opts, monitor)
}

// CreateDictionary stores a new dictionary, or updates the configuration
// of an existing one when replace is set.
func (a *Annotator) CreateDictionary(ctx context.Context, dict *core.Dictionary, replace bool) (*core.Dictionary, error) {
	if replace {
		if _, err := a.dictRepo.GetDictionary(ctx, dict.Name); err == nil {
			return a.dictRepo.UpdateDictionary(ctx, dict)
		}
	}
	return a.dictRepo.AddDictionary(ctx, dict)
}

// AddEntries normalizes entries that lack normalized forms and stores them
// in chunks. The entries are updated in place.
func (a *Annotator) AddEntries(ctx context.Context, entries ...*core.Entry) (int, error) {
	for _, e := range entries {
		if e.Norm1 != "" {
			continue
		}
		norm1, norm2, err := analysis.Normalize(ctx, a.analyzer, e.Label)
		if err != nil {
			return 0, fmt.Errorf("failed to normalize %q: %w", e.Label, err)
		}
		e.Norm1, e.Norm2 = norm1, norm2
	}

	added := 0
	for start := 0; start < len(entries); start += importChunkSize {
		end := min(start+importChunkSize, len(entries))
		stored, err := a.dictRepo.AddEntries(ctx, entries[start:end]...)
		if err != nil {
			return added, err
		}
		added += len(stored)
	}
	a.logger.Debug("entries added", "count", added)
	return added, nil
}

// AddPatterns stores patterns.
func (a *Annotator) AddPatterns(ctx context.Context, patterns ...*core.Pattern) (int, error) {
	stored, err := a.dictRepo.AddPatterns(ctx, patterns...)
	return len(stored), err
}

// NewReembedder creates a reembedder that writes entry embeddings with the
// configured provider.
func (a *Annotator) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	if a.provider == nil {
		return nil, annotation.ErrEmbedderRequired
	}
	return reembed.NewReembedder(a.dictRepo, a.checkpointRepo, a.provider.Embedder(), config, progress)
}
