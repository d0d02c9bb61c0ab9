package core

import (
	"encoding/binary"
	"slices"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored dictionary records.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Dictionary holds the matching configuration of a named terminology
// dictionary. Entries and patterns are stored separately and keyed by Name.
type Dictionary struct {
	Name        string
	Description string
	Language    string

	// Lexical filters applied during span generation. Empty lists fall back
	// to the engine defaults.
	NoTermWords  []string
	NoBeginWords []string
	NoEndWords   []string

	// TokensLenMin and TokensLenMax restrict the token length of spans
	// matched against this dictionary. Zero means unrestricted.
	TokensLenMin int
	TokensLenMax int

	// Threshold raises the surface threshold for this dictionary when it is
	// stricter than the per-call threshold. Zero means no override.
	Threshold float64

	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Entry is a single label to identifier mapping of a dictionary.
// Entries are read-only inputs to the annotation engine.
type Entry struct {
	Id         ID
	Dictionary string
	Label      string
	Identifier string
	// Norm1 is the typographic normalization of Label.
	Norm1 string
	// Norm2 is the typographic+morphosyntactic normalization of Label with
	// stopwords removed. May be empty.
	Norm2      string
	Searchable bool
	Tags       []string
	Embedding  []float32
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Key returns the content key used to derive the entry ID.
func (e *Entry) Key() string {
	return e.Dictionary + "\x1f" + e.Label + "\x1f" + e.Identifier
}

// IndexKey returns the normalized form used for approximate lookup:
// Norm2 when present, Norm1 otherwise.
func (e *Entry) IndexKey() string {
	if e.Norm2 != "" {
		return e.Norm2
	}
	return e.Norm1
}

// HasAnyTag reports whether the entry carries at least one of tags.
// An empty filter matches every entry.
func (e *Entry) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if slices.Contains(e.Tags, t) {
			return true
		}
	}
	return false
}

// Pattern is a regular expression registered with a dictionary.
type Pattern struct {
	Id         ID
	Dictionary string
	Expression string
	Identifier string
	Active     bool
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Key returns the content key used to derive the pattern ID.
func (p *Pattern) Key() string {
	return p.Dictionary + "\x1f" + p.Expression + "\x1f" + p.Identifier
}

// MatchType records how a denotation was produced.
type MatchType string

const (
	MatchTerm             MatchType = "term"
	MatchSemantic         MatchType = "semantic"
	MatchPattern          MatchType = "pattern"
	MatchRegAbbreviation  MatchType = "regAbbreviation"
	MatchFreeAbbreviation MatchType = "freeAbbreviation"
)

// Candidate is a dictionary entry resolved for a span together with the
// score it obtained.
type Candidate struct {
	Entry *Entry
	Score float64
	Match MatchType
}

// Token is a single analyzer token. Start and End are code point offsets
// into the analyzed text; Position is the token ordinal, which keeps gaps
// for removed stopwords.
type Token struct {
	Text     string
	Start    int
	End      int
	Position int
}

// Checkpoint records how far a resumable job got through a dictionary.
type Checkpoint struct {
	// Name identifies the job, for example "embed:<dictionary>".
	Name string
	// Model is the embedding model the job runs with. A checkpoint written
	// for another model is stale.
	Model string
	// LastID is the last entry ID fully processed.
	LastID    ID
	Processed int
	UpdatedAt time.Time
}
