package badger

import (
	"encoding/binary"

	"github.com/poiesic/annotit/core"
)

// Dictionary names never contain ':' so every per-dictionary prefix is
// unambiguous. Tags may contain anything, so the tag index separates them
// with a zero byte.
const (
	dictionaryPrefix = "dict:"
	entryPrefix      = "entry:"
	entryTagPrefix   = "etag:"
	patternPrefix    = "pat:"
	checkpointPrefix = "chkpt:"
)

// makeDictionaryKey generates a key for a dictionary by name.
func makeDictionaryKey(name string) []byte {
	return []byte(dictionaryPrefix + name)
}

// makeEntryPrefix generates the prefix shared by the entries of a dictionary.
// Format: entry:dictionary:
func makeEntryPrefix(dictionary string) []byte {
	return []byte(entryPrefix + dictionary + ":")
}

// makeEntryKey generates a key for an entry. IDs are written BigEndian so
// that keys sort by ID.
// Format: entry:dictionary:id
func makeEntryKey(dictionary string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(makeEntryPrefix(dictionary), uint64(id))
}

// makeEntryTagPrefix generates the prefix of the tag index of a dictionary,
// or of one tag when tag is non-empty.
// Format: etag:dictionary:tag\x00
func makeEntryTagPrefix(dictionary, tag string) []byte {
	key := []byte(entryTagPrefix + dictionary + ":")
	if tag == "" {
		return key
	}
	key = append(key, tag...)
	return append(key, 0)
}

// makeEntryTagKey generates a tag index key.
// Format: etag:dictionary:tag\x00id
func makeEntryTagKey(dictionary, tag string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(makeEntryTagPrefix(dictionary, tag), uint64(id))
}

// makePatternPrefix generates the prefix shared by the patterns of a
// dictionary.
func makePatternPrefix(dictionary string) []byte {
	return []byte(patternPrefix + dictionary + ":")
}

// makePatternKey generates a key for a pattern.
// Format: pat:dictionary:id
func makePatternKey(dictionary string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(makePatternPrefix(dictionary), uint64(id))
}

// makeCheckpointKey generates a key for job checkpoints.
func makeCheckpointKey(name string) []byte {
	return []byte(checkpointPrefix + name)
}

// idFromKey extracts the trailing ID of an entry, tag or pattern key.
func idFromKey(key []byte) core.ID {
	if len(key) < 8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
