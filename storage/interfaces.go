package storage

import (
	"context"

	"github.com/poiesic/annotit/core"
)

// Repository is the lifecycle shared by all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// DictionaryRepository stores dictionaries together with their entries and
// patterns. Entries and patterns always belong to an existing dictionary.
type DictionaryRepository interface {
	Repository

	// AddDictionary stores a new dictionary.
	// Returns ErrDuplicateKey if a dictionary with the same name exists.
	AddDictionary(ctx context.Context, dict *core.Dictionary) (*core.Dictionary, error)

	// UpdateDictionary replaces the configuration of an existing dictionary.
	// Returns ErrNotFound if the dictionary doesn't exist.
	UpdateDictionary(ctx context.Context, dict *core.Dictionary) (*core.Dictionary, error)

	// GetDictionary retrieves a dictionary by name.
	// Returns ErrNotFound if the dictionary doesn't exist.
	GetDictionary(ctx context.Context, name string) (*core.Dictionary, error)

	// ListDictionaries returns every dictionary ordered by name.
	ListDictionaries(ctx context.Context) ([]*core.Dictionary, error)

	// DeleteDictionary removes a dictionary with all its entries and patterns.
	// Returns ErrNotFound if the dictionary doesn't exist.
	DeleteDictionary(ctx context.Context, name string) error

	// AddEntries stores entries. IDs are derived from the entry content, so
	// adding the same entry twice overwrites it.
	// Returns ErrNotFound if an entry names an unknown dictionary.
	AddEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error)

	// UpdateEntries updates existing entries and their tag index.
	// Returns ErrNotFound if any entry doesn't exist.
	UpdateEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error)

	// DeleteEntries removes entries of a dictionary by ID.
	// Returns ErrNotFound if any entry doesn't exist.
	DeleteEntries(ctx context.Context, dictionary string, ids ...core.ID) error

	// GetEntries returns the entries of a dictionary ordered by ID. When tags
	// is non-empty only entries carrying at least one of them are returned.
	// Returns ErrNotFound if the dictionary doesn't exist.
	GetEntries(ctx context.Context, dictionary string, tags []string) ([]*core.Entry, error)

	// CountEntries returns the number of entries of a dictionary.
	CountEntries(ctx context.Context, dictionary string) (int, error)

	// ForEachEntry calls fn for every entry of a dictionary with an ID
	// greater than after, in ID order. Iteration stops at the first error.
	// Returns ErrNotFound if the dictionary doesn't exist.
	ForEachEntry(ctx context.Context, dictionary string, after core.ID, fn func(*core.Entry) error) error

	// AddPatterns stores patterns with content-derived IDs.
	// Returns ErrNotFound if a pattern names an unknown dictionary.
	AddPatterns(ctx context.Context, patterns ...*core.Pattern) ([]*core.Pattern, error)

	// GetPatterns returns the patterns of a dictionary ordered by ID.
	GetPatterns(ctx context.Context, dictionary string, activeOnly bool) ([]*core.Pattern, error)

	// DeletePatterns removes patterns of a dictionary by ID.
	// Returns ErrNotFound if any pattern doesn't exist.
	DeletePatterns(ctx context.Context, dictionary string, ids ...core.ID) error
}

// CheckpointRepository persists progress of resumable jobs.
type CheckpointRepository interface {
	// SaveCheckpoint stores a checkpoint, replacing any previous one.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint stored under name.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes a checkpoint. Deleting a missing one is not
	// an error.
	DeleteCheckpoint(ctx context.Context, name string) error
}
