package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/annotit/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const providerName = "openai"

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// Failures are returned as *ai.ProviderError.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		classified := ClassifyError(err)
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", classified)
		return nil, classified
	}

	if len(vectors) != len(texts) {
		err := fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
		e.logger.Warn("malformed embedding response", "err", err)
		return nil, ai.NewTransientError(providerName, err)
	}

	return vectors, nil
}

// ClassifyError maps a langchaingo OpenAI error onto the ai error taxonomy.
// Rejected requests become client errors; everything else is transient.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var lerr *llms.Error
	if !errors.As(err, &lerr) {
		if mapped := openai.MapError(err); !errors.As(mapped, &lerr) {
			return ai.NewTransientError(providerName, err)
		}
	}

	switch lerr.Code {
	case llms.ErrCodeAuthentication,
		llms.ErrCodeInvalidRequest,
		llms.ErrCodeResourceNotFound,
		llms.ErrCodeTokenLimit,
		llms.ErrCodeContentFilter,
		llms.ErrCodeQuotaExceeded,
		llms.ErrCodeNotImplemented:
		return ai.NewClientError(providerName, fmt.Errorf("%s: %w", lerr.Code, err))
	default:
		return ai.NewTransientError(providerName, fmt.Errorf("%s: %w", lerr.Code, err))
	}
}
