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


// Package ai provides abstractions for the embedding service used by the
// semantic matcher and the entry re-embedder.
//
// The package defines two interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder) return
// CONCRETE types so tests can inject behavior and assert on call counts.
//
// # Errors
//
// Provider failures are reported as *ProviderError values classified as
// client errors (the request was rejected, retrying cannot help) or transient
// errors (timeouts, connection resets, server failures, malformed responses).
// RetryWithBackoff stops immediately on client errors.
//
//	err := ai.RetryWithBackoff(ctx, func() error {
//	    vectors, err = embedder.EmbedTexts(ctx, batch)
//	    return err
//	}, 3, 500*time.Millisecond)
//	if errors.Is(err, ai.ErrClient) {
//	    // rejected: report with provider detail, do not retry
//	}
package ai
