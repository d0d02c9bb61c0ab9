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

import "errors"

var (
	// ErrStoreRequired indicates a nil dictionary source.
	ErrStoreRequired = errors.New("dictionary store is required")

	// ErrAnalyzerRequired indicates a nil analyzer.
	ErrAnalyzerRequired = errors.New("analyzer is required")

	// ErrEmbedderRequired indicates semantic matching was requested from an
	// engine built without an embedder.
	ErrEmbedderRequired = errors.New("semantic matching requires an embedder")
)
