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



package reembed

import (
	"context"

	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/storage"
)

const (
	// DefaultBatchSize is the default number of entries in each batch
	DefaultBatchSize = 100
)

// EntryIterator iterates over the entries of one dictionary in batches.
type EntryIterator struct {
	repo       storage.DictionaryRepository
	dictionary string
	batchSize  int
}

// NewEntryIterator creates a new entry iterator.
// batchSize: number of entries in each batch (defaults when <= 0)
func NewEntryIterator(repo storage.DictionaryRepository, dictionary string, batchSize int) *EntryIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &EntryIterator{
		repo:       repo,
		dictionary: dictionary,
		batchSize:  batchSize,
	}
}

// ForEach calls fn for each batch of entries with an ID greater than after.
// Iteration stops on first error from fn or when all entries are processed.
// Context cancellation is checked between batches.
func (it *EntryIterator) ForEach(ctx context.Context, after core.ID, fn func([]*core.Entry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := make([]*core.Entry, 0, it.batchSize)
	err := it.repo.ForEachEntry(ctx, it.dictionary, after, func(entry *core.Entry) error {
		batch = append(batch, entry)
		if len(batch) < it.batchSize {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = make([]*core.Entry, 0, it.batchSize)
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}
