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
	"log/slog"

	"github.com/poiesic/annotit/storage"
)

// NewRepositories opens a BadgerDB database at path and returns its
// dictionary and checkpoint repositories. Caller must close the backend
// when done.
func NewRepositories(path string, logger *slog.Logger) (storage.DictionaryRepository, storage.CheckpointRepository, *Backend, error) {
	return newRepositories(path, false, logger)
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the backend when done.
func NewMemoryRepositories() (storage.DictionaryRepository, storage.CheckpointRepository, *Backend, error) {
	return newRepositories("", true, nil)
}

func newRepositories(path string, inMemory bool, logger *slog.Logger) (storage.DictionaryRepository, storage.CheckpointRepository, *Backend, error) {
	backend, err := OpenBackend(path, inMemory, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	dictRepo, err := NewDictionaryRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	return dictRepo, NewCheckpointRepository(backend), backend, nil
}
