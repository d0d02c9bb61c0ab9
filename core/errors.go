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


package core

import "errors"

// Configuration errors. These are returned to the caller immediately and
// never retried.
var (
	// ErrEmptyText indicates an input text is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrNoTexts indicates an annotation call without any text.
	ErrNoTexts = errors.New("no texts to annotate")

	// ErrNoDictionary indicates an annotation call without any dictionary.
	ErrNoDictionary = errors.New("no dictionary specified")

	// ErrUnknownDictionary indicates a dictionary name that is not in the store.
	ErrUnknownDictionary = errors.New("unknown dictionary")

	// ErrInvalidOptions indicates annotation options failed validation.
	ErrInvalidOptions = errors.New("invalid annotation options")
)

// Domain validation errors
var (
	// ErrInvalidDictionary indicates a Dictionary failed validation.
	ErrInvalidDictionary = errors.New("invalid dictionary")

	// ErrInvalidEntry indicates an Entry failed validation.
	ErrInvalidEntry = errors.New("invalid dictionary entry")

	// ErrInvalidPattern indicates a Pattern failed validation.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrEmptyDictionaryName indicates the dictionary Name field is empty.
	ErrEmptyDictionaryName = errors.New("dictionary name cannot be empty")

	// ErrEmptyLabel indicates the entry Label field is empty.
	ErrEmptyLabel = errors.New("label cannot be empty")

	// ErrEmptyIdentifier indicates the Identifier field is empty.
	ErrEmptyIdentifier = errors.New("identifier cannot be empty")

	// ErrEmptyExpression indicates the pattern Expression field is empty.
	ErrEmptyExpression = errors.New("expression cannot be empty")
)
