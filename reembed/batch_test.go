package reembed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/annotit/ai"
	"github.com/poiesic/annotit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder for testing
type mockEmbedder struct {
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
	calls          atomic.Int64
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	v, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.embedTextsFunc != nil {
		return m.embedTextsFunc(ctx, texts)
	}
	// Default: return unnormalized vectors for each text
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 2.0, 2.0} // magnitude = 3.0
	}
	return result, nil
}

func magnitude(v []float32) float32 {
	var m float32
	for _, x := range v {
		m += x * x
	}
	return m
}

func TestEmbeddingText(t *testing.T) {
	assert.Equal(t, "fever", EmbeddingText(&core.Entry{Label: "Fever", Norm1: "fever"}))
	assert.Equal(t, "Fever", EmbeddingText(&core.Entry{Label: "Fever"}))
}

func TestBatchProcessor_Process(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	added := seedEntries(t, repo, 2)

	var seen []string
	embedder := &mockEmbedder{}
	embedder.embedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		seen = append(seen, texts...)
		return [][]float32{{1, 2, 2}, {0, 3, 4}}, nil
	}
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	require.NoError(t, processor.Process(ctx, added))
	assert.Equal(t, []string{"term 000", "term 001"}, seen)

	for _, e := range added {
		assert.Empty(t, e.Embedding, "input entries must not be modified")
	}

	updated, err := repo.GetEntries(ctx, testDictionary, nil)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, e := range updated {
		require.NotEmpty(t, e.Embedding, "should have embedding")
		assert.InDelta(t, 1.0, magnitude(e.Embedding), 0.01, "vector should be normalized")
		assert.True(t, e.Searchable)
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	embedder := &mockEmbedder{}
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	require.NoError(t, processor.Process(context.Background(), nil), "empty batch should not error")
	assert.Zero(t, embedder.calls.Load())
}

func TestBatchProcessor_Errors(t *testing.T) {
	tests := []struct {
		name      string
		embed     func(context.Context, []string) ([][]float32, error)
		wantCalls int64
		wantErr   string
	}{
		{
			name: "transient error retried until exhausted",
			embed: func(context.Context, []string) ([][]float32, error) {
				return nil, ai.NewTransientError("mock", errors.New("connection reset"))
			},
			wantCalls: 3,
			wantErr:   "connection reset",
		},
		{
			name: "client error not retried",
			embed: func(context.Context, []string) ([][]float32, error) {
				return nil, ai.NewClientError("mock", errors.New("bad request"))
			},
			wantCalls: 1,
			wantErr:   "bad request",
		},
		{
			name: "count mismatch",
			embed: func(context.Context, []string) ([][]float32, error) {
				return [][]float32{{1}}, nil
			},
			wantCalls: 1,
			wantErr:   "embedding count mismatch",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, cleanup := setupTestDB(t)
			defer cleanup()
			added := seedEntries(t, repo, 2)

			embedder := &mockEmbedder{embedTextsFunc: tt.embed}
			processor := NewBatchProcessor(repo, embedder, 3, time.Millisecond)

			err := processor.Process(context.Background(), added)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantCalls, embedder.calls.Load())
		})
	}
}

func TestBatchProcessor_RetrySucceeds(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	added := seedEntries(t, repo, 1)

	embedder := &mockEmbedder{}
	embedder.embedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		if embedder.calls.Load() < 3 {
			return nil, ai.NewTransientError("mock", errors.New("timeout"))
		}
		return [][]float32{{3, 4}}, nil
	}
	processor := NewBatchProcessor(repo, embedder, 3, time.Millisecond)

	require.NoError(t, processor.Process(context.Background(), added))
	assert.Equal(t, int64(3), embedder.calls.Load())
}

func TestBatchProcessor_DeletedEntry(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	added := seedEntries(t, repo, 1)
	require.NoError(t, repo.DeleteEntries(ctx, testDictionary, added[0].Id))

	processor := NewBatchProcessor(repo, &mockEmbedder{}, 3, time.Millisecond)
	err := processor.Process(ctx, added)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update entries")
}
