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


// Package storage defines the dictionary store consumed by the annotation
// engine.
//
// The engine only reads from the store: dictionaries with their matching
// configuration, entries (label, identifier, normalized forms, tags,
// embedding) filtered by tag, and active patterns. Writes come from import
// and embedding jobs.
//
// # Constructor Return Type Pattern
//
// Public constructors of backend packages return the interfaces defined
// here:
//
//	dicts, checkpoints, backend, err := badger.NewRepositories("/path/to/db")
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	dicts, checkpoints, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
