package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/annotit/ai"
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/storage"
)

// BatchProcessor handles embedding generation for batches of entries.
type BatchProcessor struct {
	repo           storage.DictionaryRepository
	embedder       ai.Embedder
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxAttempts: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.DictionaryRepository, embedder ai.Embedder, maxAttempts int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxAttempts:    maxAttempts,
		retryBaseDelay: retryBaseDelay,
	}
}

// EmbeddingText returns the string embedded for an entry. Spans are
// embedded by their typographic normalization, so entries are too.
func EmbeddingText(entry *core.Entry) string {
	if entry.Norm1 != "" {
		return entry.Norm1
	}
	return entry.Label
}

// Process generates embeddings for a batch of entries and updates them in the store.
// Vectors are normalized after embedding to ensure compatibility with cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, entries []*core.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = EmbeddingText(entry)
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxAttempts, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxAttempts, err)
	}

	if len(embeddings) != len(entries) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(entries), len(embeddings))
	}

	// work on copies; callers may still hold the entries
	updated := make([]*core.Entry, len(entries))
	for i, entry := range entries {
		e := *entry
		e.Embedding = core.NormalizeVector(embeddings[i])
		updated[i] = &e
	}

	if _, err := bp.repo.UpdateEntries(ctx, updated...); err != nil {
		return fmt.Errorf("failed to update entries: %w", err)
	}
	return nil
}
