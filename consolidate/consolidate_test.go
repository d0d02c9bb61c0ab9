package consolidate

import (
	"testing"

	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func den(begin, end int, obj string, score float64) core.Denotation {
	return core.Denotation{Span: core.Span{Begin: begin, End: end}, Obj: obj, Score: score}
}

type spanObj struct {
	Begin, End int
	Obj        string
}

func summary(ds []core.Denotation) []spanObj {
	out := make([]spanObj, len(ds))
	for i, d := range ds {
		out[i] = spanObj{d.Span.Begin, d.Span.End, d.Obj}
	}
	return out
}

func TestSort(t *testing.T) {
	in := []core.Denotation{
		den(5, 9, "B", 0.9),
		den(0, 4, "A", 0.9),
		den(0, 9, "C", 0.8),
		den(0, 9, "D", 0.95),
	}
	got := Sort(in)
	assert.Equal(t, []spanObj{{0, 9, "D"}, {0, 9, "C"}, {0, 4, "A"}, {5, 9, "B"}}, summary(got))
	assert.Equal(t, "B", in[0].Obj, "input must not be reordered")
}

func TestMergeSameIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   []core.Denotation
		want []spanObj
	}{
		{
			name: "overlapping keeps highest score",
			in:   []core.Denotation{den(0, 35, "X", 0.87), den(17, 33, "X", 0.95)},
			want: []spanObj{{17, 33, "X"}},
		},
		{
			name: "repeated terms are kept",
			in:   []core.Denotation{den(0, 5, "X", 1), den(10, 15, "X", 1)},
			want: []spanObj{{0, 5, "X"}, {10, 15, "X"}},
		},
		{
			name: "different identifiers untouched",
			in:   []core.Denotation{den(0, 10, "X", 0.9), den(5, 15, "Y", 0.8)},
			want: []spanObj{{0, 10, "X"}, {5, 15, "Y"}},
		},
		{
			name: "equal scores keep the first",
			in:   []core.Denotation{den(0, 10, "X", 0.9), den(2, 8, "X", 0.9)},
			want: []spanObj{{0, 10, "X"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summary(MergeSameIdentifier(Sort(tt.in))))
		})
	}
}

func TestEliminateCrossings(t *testing.T) {
	tests := []struct {
		name string
		in   []core.Denotation
		want []spanObj
	}{
		{
			name: "lower score crossing is dropped",
			in:   []core.Denotation{den(0, 10, "A", 0.9), den(5, 15, "B", 0.8)},
			want: []spanObj{{0, 10, "A"}},
		},
		{
			name: "higher score crossing replaces",
			in:   []core.Denotation{den(0, 10, "A", 0.8), den(5, 15, "B", 0.9)},
			want: []spanObj{{5, 15, "B"}},
		},
		{
			name: "equal score crossing is dropped",
			in:   []core.Denotation{den(0, 10, "A", 0.9), den(5, 15, "B", 0.9)},
			want: []spanObj{{0, 10, "A"}},
		},
		{
			name: "must beat every crossed denotation",
			in: []core.Denotation{
				den(0, 10, "A", 0.7),
				den(2, 12, "B", 0.95),
				den(8, 20, "C", 0.9),
			},
			want: []spanObj{{2, 12, "B"}},
		},
		{
			name: "nested spans do not cross",
			in:   []core.Denotation{den(0, 20, "A", 0.8), den(5, 10, "B", 0.9)},
			want: []spanObj{{0, 20, "A"}, {5, 10, "B"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summary(EliminateCrossings(Sort(tt.in))))
		})
	}
}

func TestPruneNested(t *testing.T) {
	tests := []struct {
		name string
		in   []core.Denotation
		opts Options
		want []spanObj
	}{
		{
			name: "outer wins",
			in:   []core.Denotation{den(0, 20, "A", 0.8), den(5, 10, "B", 0.9)},
			opts: Options{Longest: true},
			want: []spanObj{{0, 20, "A"}},
		},
		{
			name: "same identifier higher score wins",
			in:   []core.Denotation{den(0, 20, "A", 0.8), den(5, 10, "A", 0.9)},
			opts: Options{Longest: true},
			want: []spanObj{{5, 10, "A"}},
		},
		{
			name: "longest keeps equal ties",
			in:   []core.Denotation{den(0, 10, "A", 0.9), den(0, 10, "B", 0.9)},
			opts: Options{Longest: true},
			want: []spanObj{{0, 10, "A"}, {0, 10, "B"}},
		},
		{
			name: "without longest first tie wins",
			in:   []core.Denotation{den(0, 10, "A", 0.9), den(0, 10, "B", 0.9)},
			opts: Options{},
			want: []spanObj{{0, 10, "A"}},
		},
		{
			name: "equal span lower score dropped",
			in:   []core.Denotation{den(0, 10, "A", 0.9), den(0, 10, "B", 0.8)},
			opts: Options{Longest: true},
			want: []spanObj{{0, 10, "A"}},
		},
		{
			name: "superfluous skips pruning",
			in:   []core.Denotation{den(0, 20, "A", 0.8), den(5, 10, "B", 0.9)},
			opts: Options{Superfluous: true},
			want: []spanObj{{0, 20, "A"}, {5, 10, "B"}},
		},
		{
			name: "disjoint spans kept",
			in:   []core.Denotation{den(0, 5, "A", 0.8), den(6, 10, "B", 0.9)},
			opts: Options{},
			want: []spanObj{{0, 5, "A"}, {6, 10, "B"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summary(PruneNested(Sort(tt.in), tt.opts)))
		})
	}
}

func TestConsolidate_SameIdentifierOverlap(t *testing.T) {
	in := []core.Denotation{den(0, 35, "X", 0.87), den(17, 33, "X", 0.95)}
	got := Consolidate(nil, in, nil, DefaultOptions())
	require.Len(t, got, 1)
	assert.Equal(t, core.Span{Begin: 17, End: 33}, got[0].Span)
	assert.Equal(t, 0.95, got[0].Score)
}

func TestConsolidate_MergeRunsBeforeCrossingElimination(t *testing.T) {
	// X(0,10) loses to X(2,7). Y(8,20) only crosses the loser and must
	// survive.
	in := []core.Denotation{
		den(0, 10, "X", 0.9),
		den(2, 7, "X", 0.95),
		den(8, 20, "Y", 0.85),
	}
	got := Consolidate(nil, in, nil, DefaultOptions())
	assert.Equal(t, []spanObj{{2, 7, "X"}, {8, 20, "Y"}}, summary(got))

	// Running the steps the other way round loses Y.
	wrong := MergeSameIdentifier(EliminateCrossings(Sort(in)))
	assert.Equal(t, []spanObj{{2, 7, "X"}}, summary(wrong))
}

func TestConsolidate_NoSameIdentifierOverlapInOutput(t *testing.T) {
	in := []core.Denotation{
		den(0, 12, "X", 0.7),
		den(3, 9, "X", 0.8),
		den(5, 14, "X", 0.9),
		den(10, 20, "Y", 0.85),
		den(11, 13, "Y", 0.6),
		den(15, 25, "X", 0.88),
		den(30, 40, "Z", 1),
		den(30, 40, "Z", 0.5),
	}
	for _, opts := range []Options{
		DefaultOptions(),
		{Superfluous: true},
		{Longest: false},
	} {
		got := Consolidate(nil, in, nil, opts)
		for i := range got {
			for j := i + 1; j < len(got); j++ {
				if got[i].Obj == got[j].Obj {
					assert.False(t, got[i].Span.Overlaps(got[j].Span), "%v overlaps %v", got[i], got[j])
				}
			}
		}
	}
}

func TestConsolidate_DoesNotMutateInput(t *testing.T) {
	in := []core.Denotation{den(5, 10, "B", 0.9), den(0, 10, "A", 0.8)}
	before := append([]core.Denotation(nil), in...)
	Consolidate(nil, in, nil, DefaultOptions())
	assert.Equal(t, before, in)
}

func TestExpandAbbreviations(t *testing.T) {
	text := "tumor necrosis factor (TNF) binds. TNF levels rise"
	runes := []rune(text)
	abbrs, err := pattern.FindAbbreviations(text)
	require.NoError(t, err)
	require.Len(t, abbrs, 1)

	in := []core.Denotation{{Span: core.Span{Begin: 0, End: 21}, Obj: "TNF-ID", Score: 0.92, Match: core.MatchTerm}}
	got := Consolidate(runes, in, abbrs, DefaultOptions())
	require.Len(t, got, 3)

	assert.Equal(t, core.Span{Begin: 0, End: 21}, got[0].Span)
	assert.Equal(t, core.Span{Begin: 23, End: 26}, got[1].Span)
	assert.Equal(t, core.Span{Begin: 35, End: 38}, got[2].Span)
	for _, d := range got[1:] {
		assert.Equal(t, "TNF-ID", d.Obj)
		assert.Equal(t, 0.92, d.Score)
		assert.Equal(t, core.MatchRegAbbreviation, d.Match)
	}

	off := DefaultOptions()
	off.Abbreviation = false
	assert.Len(t, Consolidate(runes, in, abbrs, off), 1)
}

func TestExpandAbbreviations_SkipsExistingAndUnrelated(t *testing.T) {
	text := "tumor necrosis factor (TNF) and heat (XYZ)"
	runes := []rune(text)
	abbrs, err := pattern.FindAbbreviations(text)
	require.NoError(t, err)
	require.Len(t, abbrs, 2)

	in := []core.Denotation{
		{Span: core.Span{Begin: 0, End: 21}, Obj: "T", Score: 0.9},
		{Span: core.Span{Begin: 23, End: 26}, Obj: "T", Score: 1},
		{Span: core.Span{Begin: 32, End: 36}, Obj: "H", Score: 1},
	}
	got := ExpandAbbreviations(runes, Sort(in), abbrs)
	assert.Equal(t, []spanObj{{0, 21, "T"}, {23, 26, "T"}, {32, 36, "H"}}, summary(got))
}
