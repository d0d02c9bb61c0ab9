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


package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/storage"
)

// DictionaryRepository implements storage.DictionaryRepository for BadgerDB.
type DictionaryRepository struct {
	backend *Backend
}

var _ storage.DictionaryRepository = (*DictionaryRepository)(nil)

// NewDictionaryRepository creates a new DictionaryRepository.
func NewDictionaryRepository(backend *Backend) (*DictionaryRepository, error) {
	return &DictionaryRepository{
		backend: backend,
	}, nil
}

// Close releases resources. DictionaryRepository has no resources to release.
func (r *DictionaryRepository) Close() error {
	return nil
}

// AddDictionary stores a new dictionary.
func (r *DictionaryRepository) AddDictionary(ctx context.Context, dict *core.Dictionary) (*core.Dictionary, error) {
	if err := core.ValidateDictionary(dict); err != nil {
		return nil, err
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDictionaryKey(dict.Name)
		if _, err := tx.Get(key); err == nil {
			return fmt.Errorf("%w: dictionary %q", storage.ErrDuplicateKey, dict.Name)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		dict.InsertedAt = time.Now().UTC()
		dict.UpdatedAt = dict.InsertedAt
		value, err := storage.MarshalDictionary(dict)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return dict, nil
}

// UpdateDictionary replaces the configuration of an existing dictionary.
func (r *DictionaryRepository) UpdateDictionary(ctx context.Context, dict *core.Dictionary) (*core.Dictionary, error) {
	if err := core.ValidateDictionary(dict); err != nil {
		return nil, err
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readDictionary(tx, dict.Name)
		if err != nil {
			return err
		}
		dict.InsertedAt = old.InsertedAt
		dict.UpdatedAt = time.Now().UTC()
		value, err := storage.MarshalDictionary(dict)
		if err != nil {
			return err
		}
		if err := tx.Set(makeDictionaryKey(dict.Name), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return dict, nil
}

// GetDictionary retrieves a dictionary by name.
func (r *DictionaryRepository) GetDictionary(ctx context.Context, name string) (*core.Dictionary, error) {
	var result *core.Dictionary
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDictionary(tx, name)
		return err
	}, false)
	return result, err
}

// ListDictionaries returns every dictionary ordered by name.
func (r *DictionaryRepository) ListDictionaries(ctx context.Context) ([]*core.Dictionary, error) {
	var results []*core.Dictionary
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, []byte(dictionaryPrefix), nil, false, func(_, val []byte) error {
			dict, err := storage.UnmarshalDictionary(val)
			if err != nil {
				return err
			}
			results = append(results, dict)
			return nil
		})
	}, false)
	return results, err
}

// DeleteDictionary removes a dictionary with all its entries and patterns.
func (r *DictionaryRepository) DeleteDictionary(ctx context.Context, name string) error {
	// Collect keys first; a single transaction may be too large for big
	// dictionaries, so deletion runs through a write batch.
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readDictionary(tx, name); err != nil {
			return err
		}
		keys = append(keys, makeDictionaryKey(name))
		for _, prefix := range [][]byte{makeEntryPrefix(name), makeEntryTagPrefix(name, ""), makePatternPrefix(name)} {
			err := scan(tx, prefix, nil, true, func(key, _ []byte) error {
				keys = append(keys, key)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	wb := r.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// AddEntries stores entries with content-derived IDs.
func (r *DictionaryRepository) AddEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error) {
	for _, entry := range entries {
		if err := core.ValidateEntry(entry); err != nil {
			return nil, err
		}
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		known := make(map[string]bool)
		now := time.Now().UTC()
		for _, entry := range entries {
			if err := requireDictionary(tx, known, entry.Dictionary); err != nil {
				return err
			}
			if entry.Id == 0 {
				entry.Id = core.IDFromContent(entry.Key())
			}

			key := makeEntryKey(entry.Dictionary, entry.Id)
			old, err := readEntry(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				if err := deleteTags(tx, old); err != nil {
					return err
				}
				entry.InsertedAt = old.InsertedAt
			} else {
				entry.InsertedAt = now
			}
			entry.UpdatedAt = now

			if err := writeEntry(tx, key, entry); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateEntries updates existing entries and their tag index.
func (r *DictionaryRepository) UpdateEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			key := makeEntryKey(entry.Dictionary, entry.Id)
			old, err := readEntry(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: entry %d in %q", storage.ErrNotFound, entry.Id, entry.Dictionary)
			}
			if err := deleteTags(tx, old); err != nil {
				return err
			}

			entry.InsertedAt = old.InsertedAt
			entry.UpdatedAt = time.Now().UTC()
			if err := writeEntry(tx, key, entry); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteEntries removes entries of a dictionary by ID.
func (r *DictionaryRepository) DeleteEntries(ctx context.Context, dictionary string, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEntryKey(dictionary, id)
			entry, err := readEntry(tx, key)
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("%w: entry %d in %q", storage.ErrNotFound, id, dictionary)
			}
			if err := deleteTags(tx, entry); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEntries returns the entries of a dictionary, optionally filtered by tag.
func (r *DictionaryRepository) GetEntries(ctx context.Context, dictionary string, tags []string) ([]*core.Entry, error) {
	var results []*core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readDictionary(tx, dictionary); err != nil {
			return err
		}
		if len(tags) == 0 {
			return scan(tx, makeEntryPrefix(dictionary), nil, false, func(_, val []byte) error {
				entry, err := storage.UnmarshalEntry(val)
				if err != nil {
					return err
				}
				results = append(results, entry)
				return nil
			})
		}

		seen := make(map[core.ID]struct{})
		var ids []core.ID
		for _, tag := range tags {
			err := scan(tx, makeEntryTagPrefix(dictionary, tag), nil, true, func(key, _ []byte) error {
				id := idFromKey(key)
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		slices.Sort(ids)
		for _, id := range ids {
			entry, err := readEntry(tx, makeEntryKey(dictionary, id))
			if err != nil {
				return err
			}
			if entry != nil {
				results = append(results, entry)
			}
		}
		return nil
	}, false)
	return results, err
}

// CountEntries returns the number of entries of a dictionary.
func (r *DictionaryRepository) CountEntries(ctx context.Context, dictionary string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, makeEntryPrefix(dictionary), nil, true, func(_, _ []byte) error {
			count++
			return nil
		})
	}, false)
	return count, err
}

// ForEachEntry calls fn for every entry with an ID greater than after.
// Context cancellation is checked between entries.
func (r *DictionaryRepository) ForEachEntry(ctx context.Context, dictionary string, after core.ID, fn func(*core.Entry) error) error {
	var from []byte
	if after != 0 {
		from = makeEntryKey(dictionary, after)
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readDictionary(tx, dictionary); err != nil {
			return err
		}
		return scan(tx, makeEntryPrefix(dictionary), from, false, func(key, val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if after != 0 && idFromKey(key) <= after {
				return nil
			}
			entry, err := storage.UnmarshalEntry(val)
			if err != nil {
				return err
			}
			return fn(entry)
		})
	}, false)
}

// AddPatterns stores patterns with content-derived IDs.
func (r *DictionaryRepository) AddPatterns(ctx context.Context, patterns ...*core.Pattern) ([]*core.Pattern, error) {
	for _, p := range patterns {
		if err := core.ValidatePattern(p); err != nil {
			return nil, err
		}
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		known := make(map[string]bool)
		now := time.Now().UTC()
		for _, p := range patterns {
			if err := requireDictionary(tx, known, p.Dictionary); err != nil {
				return err
			}
			if p.Id == 0 {
				p.Id = core.IDFromContent(p.Key())
			}
			p.InsertedAt = now
			p.UpdatedAt = now
			value, err := storage.MarshalPattern(p)
			if err != nil {
				return err
			}
			if err := tx.Set(makePatternKey(p.Dictionary, p.Id), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return patterns, nil
}

// GetPatterns returns the patterns of a dictionary.
func (r *DictionaryRepository) GetPatterns(ctx context.Context, dictionary string, activeOnly bool) ([]*core.Pattern, error) {
	var results []*core.Pattern
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scan(tx, makePatternPrefix(dictionary), nil, false, func(_, val []byte) error {
			p, err := storage.UnmarshalPattern(val)
			if err != nil {
				return err
			}
			if activeOnly && !p.Active {
				return nil
			}
			results = append(results, p)
			return nil
		})
	}, false)
	return results, err
}

// DeletePatterns removes patterns of a dictionary by ID.
func (r *DictionaryRepository) DeletePatterns(ctx context.Context, dictionary string, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makePatternKey(dictionary, id)
			if _, err := tx.Get(key); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("%w: pattern %d in %q", storage.ErrNotFound, id, dictionary)
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Helper methods

// readDictionary reads a dictionary, returning ErrNotFound if it is missing.
func readDictionary(tx *badger.Txn, name string) (*core.Dictionary, error) {
	item, err := tx.Get(makeDictionaryKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: dictionary %q", storage.ErrNotFound, name)
		}
		return nil, err
	}
	var dict *core.Dictionary
	err = item.Value(func(val []byte) error {
		var err error
		dict, err = storage.UnmarshalDictionary(val)
		return err
	})
	return dict, err
}

// requireDictionary checks that a dictionary exists, caching positive
// answers in known.
func requireDictionary(tx *badger.Txn, known map[string]bool, name string) error {
	if known[name] {
		return nil
	}
	if _, err := readDictionary(tx, name); err != nil {
		return err
	}
	known[name] = true
	return nil
}

// readEntry reads an entry from the transaction. Returns nil, nil if the
// entry doesn't exist.
func readEntry(tx *badger.Txn, key []byte) (*core.Entry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.Entry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalEntry(val)
		return err
	})
	return entry, err
}

// writeEntry stores an entry and its tag index.
func writeEntry(tx *badger.Txn, key []byte, entry *core.Entry) error {
	value, err := storage.MarshalEntry(entry)
	if err != nil {
		return err
	}
	if err := tx.Set(key, value); err != nil {
		return err
	}
	for _, tag := range entry.Tags {
		if err := tx.Set(makeEntryTagKey(entry.Dictionary, tag, entry.Id), nil); err != nil {
			return err
		}
	}
	return nil
}

// deleteTags removes the tag index of an entry.
func deleteTags(tx *badger.Txn, entry *core.Entry) error {
	for _, tag := range entry.Tags {
		if err := tx.Delete(makeEntryTagKey(entry.Dictionary, tag, entry.Id)); err != nil {
			return err
		}
	}
	return nil
}
