package semantic

import (
	"testing"

	"github.com/poiesic/annotit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(dict, id string, emb []float32, tags ...string) *core.Entry {
	return &core.Entry{
		Dictionary: dict,
		Label:      id,
		Identifier: id,
		Searchable: true,
		Embedding:  emb,
		Tags:       tags,
	}
}

func TestIndex_Search(t *testing.T) {
	entries := []*core.Entry{
		entry("d", "A", []float32{1, 0}),
		entry("d", "B", []float32{0.8, 0.6}),
		entry("d", "C", []float32{-1, 0}),
		entry("d", "D", nil),
		{Dictionary: "d", Identifier: "E", Embedding: []float32{1, 0}},
		entry("d", "F", []float32{1, 0, 0}),
	}
	ix := NewIndex("d", entries, nil)
	assert.Equal(t, 4, ix.Len())
	assert.Equal(t, "d", ix.Dictionary())

	got := ix.Search([]float32{2, 0}, 0.5)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
		assert.Equal(t, core.MatchSemantic, c.Match)
	}
	assert.Equal(t, "A", got[0].Entry.Identifier)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.InDelta(t, 0.8, got[1].Score, 1e-6)

	all := ix.Search([]float32{-1, 0}, 0.0001)
	require.Len(t, all, 1)
	assert.Equal(t, "C", all[0].Entry.Identifier)

	assert.Empty(t, ix.Search(nil, 0.5))
}

func TestIndex_TagFilter(t *testing.T) {
	entries := []*core.Entry{
		entry("d", "A", []float32{1, 0}, "disease"),
		entry("d", "B", []float32{1, 0}, "drug"),
	}
	ix := NewIndex("d", entries, []string{"drug"})
	require.Equal(t, 1, ix.Len())
	got := ix.Search([]float32{1, 0}, 0.9)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Entry.Identifier)
}

func TestMatcher_TopKeepsTies(t *testing.T) {
	d1 := NewIndex("d1", []*core.Entry{
		entry("d1", "A", []float32{1, 0}),
		entry("d1", "B", []float32{0.8, 0.6}),
	}, nil)
	d2 := NewIndex("d2", []*core.Entry{
		entry("d2", "X", []float32{3, 0}),
	}, nil)

	m, err := NewMatcher([]*Index{d1, d2}, PolicyTop, 0.5)
	require.NoError(t, err)

	got := m.Match([]float32{1, 0}, nil)
	require.Len(t, got, 2)
	ids := []string{got[0].Entry.Identifier, got[1].Entry.Identifier}
	assert.ElementsMatch(t, []string{"A", "X"}, ids)
}

func TestMatcher_MatchInSelectsAmongAcceptedDictionaries(t *testing.T) {
	d1 := NewIndex("d1", []*core.Entry{
		entry("d1", "BEST", []float32{1, 0}),
	}, nil)
	d2 := NewIndex("d2", []*core.Entry{
		entry("d2", "NEXT", []float32{0.8, 0.6}),
	}, nil)

	m, err := NewMatcher([]*Index{d1, d2}, PolicyTop, 0.5)
	require.NoError(t, err)

	got := m.Match([]float32{1, 0}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "BEST", got[0].Entry.Identifier)

	got = m.MatchIn([]float32{1, 0}, nil, func(dictionary string) bool { return dictionary != "d1" })
	require.Len(t, got, 1, "top selection ignores rejected dictionaries")
	assert.Equal(t, "NEXT", got[0].Entry.Identifier)
	assert.InDelta(t, 0.8, got[0].Score, 1e-6)
}

func TestMatcher_OrderUsesDocumentContext(t *testing.T) {
	ix := NewIndex("d", []*core.Entry{
		entry("d", "A", []float32{1, 0, 0.2}),
		entry("d", "B", []float32{1, 0, -0.2}),
		entry("d", "C", []float32{0.6, 0.8, 0}),
	}, nil)

	m, err := NewMatcher([]*Index{ix}, PolicyOrder, 0.5)
	require.NoError(t, err)

	got := m.Match([]float32{1, 0, 0}, []float32{0, 0, -1})
	require.Len(t, got, 3)
	assert.Equal(t, "B", got[0].Entry.Identifier)
	assert.Equal(t, "A", got[1].Entry.Identifier)
	assert.Equal(t, "C", got[2].Entry.Identifier)
	assert.InDelta(t, got[0].Score, got[1].Score, 1e-9)
}

func TestMatcher_NoMatch(t *testing.T) {
	ix := NewIndex("d", []*core.Entry{entry("d", "A", []float32{1, 0})}, nil)
	m, err := NewMatcher([]*Index{ix}, PolicyTop, 0.9)
	require.NoError(t, err)
	assert.Empty(t, m.Match([]float32{0, 1}, nil))
}

func TestNewMatcher_Validation(t *testing.T) {
	_, err := NewMatcher(nil, PolicyTop, 0)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
	_, err = NewMatcher(nil, PolicyTop, 1.5)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
	_, err = NewMatcher(nil, Policy(9), 0.5)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
