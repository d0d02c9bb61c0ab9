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

import (
	"fmt"
	"strings"
)

// ValidateDictionary validates a Dictionary according to domain rules.
//
// Validation rules:
//   - Name must not be empty and must not contain ':' (used as a key separator)
//   - TokensLenMin and TokensLenMax must not be negative
//   - TokensLenMax, when set, must not be below TokensLenMin
//   - Threshold must be within [0,1]
func ValidateDictionary(dict *Dictionary) error {
	if dict == nil {
		return fmt.Errorf("%w: dictionary is nil", ErrInvalidDictionary)
	}

	if dict.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDictionary, ErrEmptyDictionaryName)
	}

	if strings.ContainsRune(dict.Name, ':') {
		return fmt.Errorf("%w: name %q contains ':'", ErrInvalidDictionary, dict.Name)
	}

	if dict.TokensLenMin < 0 || dict.TokensLenMax < 0 {
		return fmt.Errorf("%w: negative token length", ErrInvalidDictionary)
	}

	if dict.TokensLenMax > 0 && dict.TokensLenMax < dict.TokensLenMin {
		return fmt.Errorf("%w: tokens_len_max %d below tokens_len_min %d",
			ErrInvalidDictionary, dict.TokensLenMax, dict.TokensLenMin)
	}

	if dict.Threshold < 0 || dict.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v out of range", ErrInvalidDictionary, dict.Threshold)
	}

	return nil
}

// ValidateEntry validates an Entry according to domain rules.
//
// Validation rules:
//   - Dictionary must not be empty
//   - Label must not be empty
//   - Identifier must not be empty
//
// NOT validated (populated by the importer or the embedder):
//   - Norm1, Norm2 (Norm2 may legitimately be empty)
//   - Embedding (can be empty until embedded)
func ValidateEntry(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.Dictionary == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyDictionaryName)
	}

	if strings.TrimSpace(entry.Label) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyLabel)
	}

	if entry.Identifier == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyIdentifier)
	}

	return nil
}

// ValidatePattern validates a Pattern. The expression is not compiled here;
// compilation errors surface when the pattern matcher is built.
func ValidatePattern(pattern *Pattern) error {
	if pattern == nil {
		return fmt.Errorf("%w: pattern is nil", ErrInvalidPattern)
	}

	if pattern.Dictionary == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, ErrEmptyDictionaryName)
	}

	if pattern.Expression == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, ErrEmptyExpression)
	}

	if pattern.Identifier == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, ErrEmptyIdentifier)
	}

	return nil
}

// ValidateTexts checks an annotation batch. Every text must be non-empty.
func ValidateTexts(texts []string) error {
	if len(texts) == 0 {
		return ErrNoTexts
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: text %d", ErrEmptyText, i)
		}
	}
	return nil
}
