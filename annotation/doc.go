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


// Package annotation runs dictionary-based named-entity recognition over
// batches of texts.
//
// An Engine reads dictionaries from a store and, for every call to
// Annotate, builds the per-batch resources once: an approximate string
// index per dictionary, a span cache, pattern matchers and, when semantic
// matching is enabled, vector indexes and an embedding resolver. The
// resources are discarded when the call returns.
//
// For every text the engine generates candidate spans, resolves them by
// surface similarity, embedding similarity and regular expressions, and
// consolidates the raw denotations into the final annotation set.
package annotation
