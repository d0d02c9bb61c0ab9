// Package mock provides test double implementations of AI service interfaces.
//
// The mocks allow tests to run without an embedding service and enable
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Pin vectors for specific strings
//	embedder := mock.NewMockEmbedder().
//	    WithVector("fever", []float32{1, 0, 0}).
//	    WithVector("pyrexia", []float32{0.98, 0.2, 0})
//
//	// Fail selected batches
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, ai.NewTransientError("mock", errors.New("503"))
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
package mock
