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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/annotit/core"
)

// Values are encoded field by field in declaration order with mus-go
// serializers. Times are stored as Unix microseconds in UTC.

type serializer[T any] interface {
	Marshal(v T, bs []byte) (n int)
	Unmarshal(bs []byte) (v T, n int, err error)
	Size(v T) (size int)
}

// encoder sizes values when bs is nil and writes them otherwise.
type encoder struct {
	bs []byte
	n  int
}

func put[T any](e *encoder, s serializer[T], v T) {
	if e.bs == nil {
		e.n += s.Size(v)
		return
	}
	e.n += s.Marshal(v, e.bs[e.n:])
}

func putTime(e *encoder, t time.Time) {
	put[int64](e, varint.Int64, t.UnixMicro())
}

func putStrings(e *encoder, ss []string) {
	put[int](e, varint.Int, len(ss))
	for _, s := range ss {
		put[string](e, ord.String, s)
	}
}

func putVector(e *encoder, v []float32) {
	put[int](e, varint.Int, len(v))
	for _, f := range v {
		put[float32](e, raw.Float32, f)
	}
}

func encode(fields func(*encoder)) []byte {
	sizer := &encoder{}
	fields(sizer)
	e := &encoder{bs: make([]byte, sizer.n)}
	fields(e)
	return e.bs
}

// decoder reads fields in order and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func get[T any](d *decoder, s serializer[T]) (v T) {
	if d.err != nil {
		return v
	}
	var n int
	v, n, d.err = s.Unmarshal(d.bs[d.n:])
	d.n += n
	return v
}

func (d *decoder) time() time.Time {
	usec := get[int64](d, varint.Int64)
	if d.err != nil {
		return time.Time{}
	}
	return time.UnixMicro(usec).UTC()
}

// length reads a collection length whose elements take at least minSize
// bytes each.
func (d *decoder) length(minSize int) int {
	l := get[int](d, varint.Int)
	if d.err == nil && (l < 0 || l*minSize > len(d.bs)-d.n) {
		d.err = fmt.Errorf("invalid length %d", l)
	}
	if d.err != nil {
		return 0
	}
	return l
}

func (d *decoder) strings() []string {
	l := d.length(1)
	if l == 0 {
		return nil
	}
	out := make([]string, l)
	for i := range out {
		out[i] = get[string](d, ord.String)
	}
	return out
}

func (d *decoder) vector() []float32 {
	l := d.length(4)
	if l == 0 {
		return nil
	}
	out := make([]float32, l)
	for i := range out {
		out[i] = get[float32](d, raw.Float32)
	}
	return out
}

func (d *decoder) finish(kind string) error {
	if d.err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, kind, d.err)
	}
	if d.n != len(d.bs) {
		return fmt.Errorf("%w: %s: %d trailing bytes", ErrSerializationFailed, kind, len(d.bs)-d.n)
	}
	return nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	return encode(func(e *encoder) {
		put[uint64](e, raw.Uint64, uint64(id))
	})
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	d := &decoder{bs: data}
	id := core.ID(get[uint64](d, raw.Uint64))
	return id, d.finish("id")
}

// MarshalDictionary serializes a Dictionary to bytes.
func MarshalDictionary(dict *core.Dictionary) ([]byte, error) {
	return encode(func(e *encoder) {
		put[string](e, ord.String, dict.Name)
		put[string](e, ord.String, dict.Description)
		put[string](e, ord.String, dict.Language)
		putStrings(e, dict.NoTermWords)
		putStrings(e, dict.NoBeginWords)
		putStrings(e, dict.NoEndWords)
		put[int](e, varint.Int, dict.TokensLenMin)
		put[int](e, varint.Int, dict.TokensLenMax)
		put[float64](e, raw.Float64, dict.Threshold)
		putTime(e, dict.InsertedAt)
		putTime(e, dict.UpdatedAt)
	}), nil
}

// UnmarshalDictionary deserializes a Dictionary from bytes.
func UnmarshalDictionary(data []byte) (*core.Dictionary, error) {
	d := &decoder{bs: data}
	dict := &core.Dictionary{
		Name:         get[string](d, ord.String),
		Description:  get[string](d, ord.String),
		Language:     get[string](d, ord.String),
		NoTermWords:  d.strings(),
		NoBeginWords: d.strings(),
		NoEndWords:   d.strings(),
		TokensLenMin: get[int](d, varint.Int),
		TokensLenMax: get[int](d, varint.Int),
		Threshold:    get[float64](d, raw.Float64),
		InsertedAt:   d.time(),
		UpdatedAt:    d.time(),
	}
	if err := d.finish("dictionary"); err != nil {
		return nil, err
	}
	return dict, nil
}

// MarshalEntry serializes an Entry to bytes.
func MarshalEntry(entry *core.Entry) ([]byte, error) {
	return encode(func(e *encoder) {
		put[uint64](e, raw.Uint64, uint64(entry.Id))
		put[string](e, ord.String, entry.Dictionary)
		put[string](e, ord.String, entry.Label)
		put[string](e, ord.String, entry.Identifier)
		put[string](e, ord.String, entry.Norm1)
		put[string](e, ord.String, entry.Norm2)
		put[bool](e, ord.Bool, entry.Searchable)
		putStrings(e, entry.Tags)
		putVector(e, entry.Embedding)
		putTime(e, entry.InsertedAt)
		putTime(e, entry.UpdatedAt)
	}), nil
}

// UnmarshalEntry deserializes an Entry from bytes.
func UnmarshalEntry(data []byte) (*core.Entry, error) {
	d := &decoder{bs: data}
	entry := &core.Entry{
		Id:         core.ID(get[uint64](d, raw.Uint64)),
		Dictionary: get[string](d, ord.String),
		Label:      get[string](d, ord.String),
		Identifier: get[string](d, ord.String),
		Norm1:      get[string](d, ord.String),
		Norm2:      get[string](d, ord.String),
		Searchable: get[bool](d, ord.Bool),
		Tags:       d.strings(),
		Embedding:  d.vector(),
		InsertedAt: d.time(),
		UpdatedAt:  d.time(),
	}
	if err := d.finish("entry"); err != nil {
		return nil, err
	}
	return entry, nil
}

// MarshalPattern serializes a Pattern to bytes.
func MarshalPattern(pattern *core.Pattern) ([]byte, error) {
	return encode(func(e *encoder) {
		put[uint64](e, raw.Uint64, uint64(pattern.Id))
		put[string](e, ord.String, pattern.Dictionary)
		put[string](e, ord.String, pattern.Expression)
		put[string](e, ord.String, pattern.Identifier)
		put[bool](e, ord.Bool, pattern.Active)
		putTime(e, pattern.InsertedAt)
		putTime(e, pattern.UpdatedAt)
	}), nil
}

// UnmarshalPattern deserializes a Pattern from bytes.
func UnmarshalPattern(data []byte) (*core.Pattern, error) {
	d := &decoder{bs: data}
	pattern := &core.Pattern{
		Id:         core.ID(get[uint64](d, raw.Uint64)),
		Dictionary: get[string](d, ord.String),
		Expression: get[string](d, ord.String),
		Identifier: get[string](d, ord.String),
		Active:     get[bool](d, ord.Bool),
		InsertedAt: d.time(),
		UpdatedAt:  d.time(),
	}
	if err := d.finish("pattern"); err != nil {
		return nil, err
	}
	return pattern, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) ([]byte, error) {
	return encode(func(e *encoder) {
		put[string](e, ord.String, checkpoint.Name)
		put[string](e, ord.String, checkpoint.Model)
		put[uint64](e, raw.Uint64, uint64(checkpoint.LastID))
		put[int](e, varint.Int, checkpoint.Processed)
		putTime(e, checkpoint.UpdatedAt)
	}), nil
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	d := &decoder{bs: data}
	checkpoint := &core.Checkpoint{
		Name:      get[string](d, ord.String),
		Model:     get[string](d, ord.String),
		LastID:    core.ID(get[uint64](d, raw.Uint64)),
		Processed: get[int](d, varint.Int),
		UpdatedAt: d.time(),
	}
	if err := d.finish("checkpoint"); err != nil {
		return nil, err
	}
	return checkpoint, nil
}
