package annotation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/annotit/ai"
	"github.com/poiesic/annotit/ai/mock"
	"github.com/poiesic/annotit/analysis"
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/pattern"
	"github.com/poiesic/annotit/semantic"
	"github.com/poiesic/annotit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeStore struct {
	dictionaries map[string]*core.Dictionary
	entries      map[string][]*core.Entry
	patterns     map[string][]*core.Pattern
	err          error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		dictionaries: make(map[string]*core.Dictionary),
		entries:      make(map[string][]*core.Entry),
		patterns:     make(map[string][]*core.Pattern),
	}
}

func (s *fakeStore) addEntry(dict, label, id string, tags ...string) *core.Entry {
	s.ensure(dict)
	norm1, norm2, err := analysis.Normalize(context.Background(), analysis.NewLocalAnalyzer(), label)
	if err != nil {
		panic(err)
	}
	e := &core.Entry{
		Dictionary: dict,
		Label:      label,
		Identifier: id,
		Norm1:      norm1,
		Norm2:      norm2,
		Tags:       tags,
	}
	s.entries[dict] = append(s.entries[dict], e)
	return e
}

func (s *fakeStore) addPattern(dict, expr, id string) {
	s.ensure(dict)
	s.patterns[dict] = append(s.patterns[dict], &core.Pattern{
		Dictionary: dict, Expression: expr, Identifier: id, Active: true,
	})
}

func (s *fakeStore) ensure(dict string) {
	if _, ok := s.dictionaries[dict]; !ok {
		s.dictionaries[dict] = &core.Dictionary{Name: dict}
	}
}

func (s *fakeStore) GetDictionary(_ context.Context, name string) (*core.Dictionary, error) {
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.dictionaries[name]
	if !ok {
		return nil, fmt.Errorf("dictionary %q: %w", name, storage.ErrNotFound)
	}
	return d, nil
}

func (s *fakeStore) GetEntries(_ context.Context, dict string, tags []string) ([]*core.Entry, error) {
	var out []*core.Entry
	for _, e := range s.entries[dict] {
		if len(tags) == 0 || e.HasAnyTag(tags) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetPatterns(_ context.Context, dict string, activeOnly bool) ([]*core.Pattern, error) {
	var out []*core.Pattern
	for _, p := range s.patterns[dict] {
		if !activeOnly || p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

type recordingMonitor struct {
	noopMonitor
	mu       sync.Mutex
	started  []string
	surface  map[int]int
	reports  []semantic.Report
	finished int
}

func newRecordingMonitor() *recordingMonitor {
	return &recordingMonitor{surface: make(map[int]int)}
}

func (m *recordingMonitor) Start(dictionaries []string, _ int) {
	m.started = dictionaries
}

func (m *recordingMonitor) AfterSurfaceMatch(text int, ds []core.Denotation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surface[text] = len(ds)
}

func (m *recordingMonitor) AfterSemanticMatch(_ int, _ []core.Denotation, report semantic.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
}

func (m *recordingMonitor) Finish(results []Result) {
	m.finished = len(results)
}

func newTestEngine(t *testing.T, store DictionarySource, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(store, analysis.NewLocalAnalyzer(), opts...)
	require.NoError(t, err)
	return e
}

func spansOf(ds []core.Denotation) []core.Span {
	out := make([]core.Span, len(ds))
	for i, d := range ds {
		out[i] = d.Span
	}
	return out
}

func assertConsolidated(t *testing.T, ds []core.Denotation) {
	t.Helper()
	for i := range ds {
		assert.GreaterOrEqual(t, ds[i].Score, 0.0)
		assert.LessOrEqual(t, ds[i].Score, 1.0)
		for j := i + 1; j < len(ds); j++ {
			assert.False(t, ds[i].Span.Crosses(ds[j].Span), "%v crosses %v", ds[i], ds[j])
			if ds[i].Obj == ds[j].Obj {
				assert.False(t, ds[i].Span.Overlaps(ds[j].Span), "%v overlaps %v", ds[i], ds[j])
			}
		}
	}
}

func TestNewEngine_Requirements(t *testing.T) {
	_, err := NewEngine(nil, analysis.NewLocalAnalyzer())
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewEngine(newFakeStore(), nil)
	assert.ErrorIs(t, err, ErrAnalyzerRequired)

	_, err = NewEngine(newFakeStore(), analysis.NewLocalAnalyzer(), WithCacheCapacity(0))
	assert.ErrorIs(t, err, core.ErrInvalidOptions)

	_, err = NewEngine(newFakeStore(), analysis.NewLocalAnalyzer(), WithSemanticConfig(&semantic.Config{}))
	assert.ErrorIs(t, err, semantic.ErrInvalidConfig)
}

func TestAnnotate_RepeatedSurfaceTerm(t *testing.T) {
	store := newFakeStore()
	store.addEntry("symptoms", "fever", "HP:0001945")
	e := newTestEngine(t, store)

	results, err := e.Annotate(context.Background(), []string{"symptoms"}, []string{"Fever and fever again"}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	ds := results[0].Denotations
	assert.Equal(t, []core.Span{{Begin: 0, End: 5}, {Begin: 10, End: 15}}, spansOf(ds))
	for _, d := range ds {
		assert.Equal(t, "HP:0001945", d.Obj)
		assert.InDelta(t, 1.0, d.Score, 1e-9)
	}
}

func TestAnnotate_PatternOnlyDictionary(t *testing.T) {
	store := newFakeStore()
	store.addPattern("taxon", `E\. ?coli`, "NCBITaxon:562")
	e := newTestEngine(t, store)

	results, err := e.Annotate(context.Background(), []string{"taxon"}, []string{"E. coli and then E. coli again"}, DefaultOptions())
	require.NoError(t, err)

	ds := results[0].Denotations
	assert.Equal(t, []core.Span{{Begin: 0, End: 7}, {Begin: 17, End: 24}}, spansOf(ds))
	for _, d := range ds {
		assert.Equal(t, "NCBITaxon:562", d.Obj)
		assert.Equal(t, 1.0, d.Score)
	}
}

func TestAnnotate_FailedPatternScanKeepsOtherMatches(t *testing.T) {
	store := newFakeStore()
	store.addPattern("taxon", `E\. ?coli`, "NCBITaxon:562")
	store.addPattern("taxon", `(a+)+$`, "RUNAWAY")
	e := newTestEngine(t, store, WithPatternTimeout(50*time.Millisecond))

	text := "E. coli " + strings.Repeat("a", 40) + "!"
	results, err := e.Annotate(context.Background(), []string{"taxon"}, []string{text}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.ErrorIs(t, results[0].Err, pattern.ErrMatchFailed)
	require.Len(t, results[0].Denotations, 1)
	assert.Equal(t, "NCBITaxon:562", results[0].Denotations[0].Obj)
	assert.Equal(t, core.Span{Begin: 0, End: 7}, results[0].Denotations[0].Span)
}

func TestAnnotate_ConfigurationErrors(t *testing.T) {
	store := newFakeStore()
	store.addEntry("symptoms", "fever", "HP:0001945")
	e := newTestEngine(t, store)
	ctx := context.Background()

	semanticOpts := DefaultOptions()
	semanticOpts.SemanticThreshold = 0.7

	badOpts := DefaultOptions()
	badOpts.TokensLenMin = 0

	tests := []struct {
		name    string
		dicts   []string
		texts   []string
		opts    Options
		wantErr error
	}{
		{"no dictionary", nil, []string{"fever"}, DefaultOptions(), core.ErrNoDictionary},
		{"no texts", []string{"symptoms"}, nil, DefaultOptions(), core.ErrNoTexts},
		{"empty text", []string{"symptoms"}, []string{"fever", ""}, DefaultOptions(), core.ErrEmptyText},
		{"unknown dictionary", []string{"symptoms", "missing"}, []string{"fever"}, DefaultOptions(), core.ErrUnknownDictionary},
		{"invalid options", []string{"symptoms"}, []string{"fever"}, badOpts, core.ErrInvalidOptions},
		{"semantic without embedder", []string{"symptoms"}, []string{"fever"}, semanticOpts, ErrEmbedderRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := e.Annotate(ctx, tt.dicts, tt.texts, tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, results)
		})
	}
}

func TestAnnotate_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("disk on fire")
	e := newTestEngine(t, store)

	_, err := e.Annotate(context.Background(), []string{"symptoms"}, []string{"fever"}, DefaultOptions())
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrUnknownDictionary)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestAnnotate_Cancelled(t *testing.T) {
	store := newFakeStore()
	store.addEntry("symptoms", "fever", "HP:0001945")
	e := newTestEngine(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Annotate(ctx, []string{"symptoms"}, []string{"fever"}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnnotate_ThresholdMonotonicity(t *testing.T) {
	store := newFakeStore()
	store.addEntry("symptoms", "fever", "HP:0001945")
	store.addEntry("symptoms", "chills", "HP:0025143")
	store.addEntry("symptoms", "high fever", "HP:0011134")
	e := newTestEngine(t, store)

	texts := []string{
		"Fever and fevers, a feverish chill.",
		"The patient had high fevers and chills.",
	}

	previous := map[int]int{}
	for i, th := range []float64{0.5, 0.7, 0.85, 0.95, 1.0} {
		opts := DefaultOptions()
		opts.SurfaceThreshold = th
		opts.RetrievalThreshold = 0.3

		monitor := newRecordingMonitor()
		_, err := e.AnnotateWithMonitor(context.Background(), []string{"symptoms"}, texts, opts, monitor)
		require.NoError(t, err)

		if i > 0 {
			for text, n := range monitor.surface {
				assert.LessOrEqual(t, n, previous[text], "threshold %v text %d", th, text)
			}
		}
		previous = monitor.surface
	}
}

func TestAnnotate_Idempotent(t *testing.T) {
	store := newFakeStore()
	store.addEntry("symptoms", "fever", "HP:0001945")
	store.addEntry("symptoms", "yellow fever", "DOID:9682")
	store.addPattern("taxon", `E\. ?coli`, "NCBITaxon:562")
	e := newTestEngine(t, store)

	texts := []string{"Yellow fever with fever. E. coli was found.", "fever"}
	first, err := e.Annotate(context.Background(), []string{"symptoms", "taxon"}, texts, DefaultOptions())
	require.NoError(t, err)
	second, err := e.Annotate(context.Background(), []string{"symptoms", "taxon"}, texts, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, r := range first {
		assertConsolidated(t, r.Denotations)
	}
}

func TestAnnotate_LongestAcrossDictionaries(t *testing.T) {
	store := newFakeStore()
	store.addEntry("symptoms", "fever", "HP:0001945")
	store.addEntry("diseases", "yellow fever", "DOID:9682")
	e := newTestEngine(t, store)

	monitor := newRecordingMonitor()
	results, err := e.AnnotateWithMonitor(context.Background(), []string{"symptoms", "diseases", "symptoms"},
		[]string{"Yellow fever."}, DefaultOptions(), monitor)
	require.NoError(t, err)

	assert.Equal(t, []string{"symptoms", "diseases"}, monitor.started)
	assert.Equal(t, 1, monitor.finished)
	require.Len(t, results[0].Denotations, 1)
	assert.Equal(t, "DOID:9682", results[0].Denotations[0].Obj)
	assert.Equal(t, core.Span{Begin: 0, End: 12}, results[0].Denotations[0].Span)
}

func TestAnnotate_Verbose(t *testing.T) {
	store := newFakeStore()
	store.addEntry("symptoms", "fever", "HP:0001945")
	e := newTestEngine(t, store)

	opts := DefaultOptions()
	results, err := e.Annotate(context.Background(), []string{"symptoms"}, []string{"fever"}, opts)
	require.NoError(t, err)
	require.Len(t, results[0].Denotations, 1)
	terse := results[0].Denotations[0]
	assert.Empty(t, terse.Label)
	assert.Empty(t, terse.Match)
	assert.Empty(t, terse.Dictionary)

	opts.Verbose = true
	results, err = e.Annotate(context.Background(), []string{"symptoms"}, []string{"fever"}, opts)
	require.NoError(t, err)
	require.Len(t, results[0].Denotations, 1)
	verbose := results[0].Denotations[0]
	assert.Equal(t, "fever", verbose.Label)
	assert.Equal(t, core.MatchTerm, verbose.Match)
	assert.Equal(t, "symptoms", verbose.Dictionary)
	assert.Equal(t, "fever", verbose.Norm1)
	assert.Equal(t, terse.Span, verbose.Span)
	assert.Equal(t, terse.Score, verbose.Score)
}

func TestAnnotate_TagFilter(t *testing.T) {
	store := newFakeStore()
	store.addEntry("symptoms", "fever", "HP:0001945", "core")
	store.addEntry("symptoms", "chills", "HP:0025143", "extra")
	e := newTestEngine(t, store)

	opts := DefaultOptions()
	opts.Tags = []string{"extra"}
	results, err := e.Annotate(context.Background(), []string{"symptoms"}, []string{"fever and chills"}, opts)
	require.NoError(t, err)
	require.Len(t, results[0].Denotations, 1)
	assert.Equal(t, "HP:0025143", results[0].Denotations[0].Obj)
}

func TestAnnotate_Abbreviation(t *testing.T) {
	store := newFakeStore()
	store.addEntry("genes", "tumor necrosis factor", "HGNC:11892")
	e := newTestEngine(t, store)

	text := "tumor necrosis factor (TNF) binds. TNF levels rise"
	results, err := e.Annotate(context.Background(), []string{"genes"}, []string{text}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []core.Span{{Begin: 0, End: 21}, {Begin: 23, End: 26}, {Begin: 35, End: 38}}, spansOf(results[0].Denotations))

	opts := DefaultOptions()
	opts.Abbreviation = false
	results, err = e.Annotate(context.Background(), []string{"genes"}, []string{text}, opts)
	require.NoError(t, err)
	assert.Equal(t, []core.Span{{Begin: 0, End: 21}}, spansOf(results[0].Denotations))
}

func semanticConfig() *semantic.Config {
	cfg := semantic.DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestAnnotate_FailedEmbeddingBatchIsIsolated(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := newFakeStore()
	store.addEntry("concepts", "fever", "HP:0001945")
	var text strings.Builder
	text.WriteString("fever")
	for i := range 150 {
		token := fmt.Sprintf("tok%03d", i)
		text.WriteString(" " + token)
		e := store.addEntry("concepts", fmt.Sprintf("concept %03d", i), fmt.Sprintf("C:%03d", i))
		e.Searchable = true
		e.Embedding = mock.DeterministicVector(token, mock.DefaultDimension)
	}

	var mu sync.Mutex
	var failed []string
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		if slices.Contains(texts, "tok075") {
			mu.Lock()
			failed = slices.Clone(texts)
			mu.Unlock()
			return nil, ai.NewTransientError("mock", errors.New("upstream timeout"))
		}
		out := make([][]float32, len(texts))
		for i, t := range texts {
			out[i] = mock.DeterministicVector(t, mock.DefaultDimension)
		}
		return out, nil
	}

	e := newTestEngine(t, store, WithEmbedder(embedder), WithSemanticConfig(semanticConfig()))
	opts := DefaultOptions()
	opts.TokensLenMax = 1
	opts.SemanticThreshold = 0.99
	opts.Verbose = true

	monitor := newRecordingMonitor()
	results, err := e.AnnotateWithMonitor(context.Background(), []string{"concepts"}, []string{text.String()}, opts, monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ai.ErrServiceUnavailable)

	require.Len(t, failed, semantic.DefaultConfig().BatchSize)
	require.Len(t, monitor.reports, 1)
	assert.Equal(t, 1, monitor.reports[0].FailedBatches)
	assert.Equal(t, 101, monitor.reports[0].Resolved)

	semanticObjs := map[string]bool{}
	surface := 0
	for _, d := range results[0].Denotations {
		switch d.Match {
		case core.MatchSemantic:
			semanticObjs[d.Obj] = true
		case core.MatchTerm:
			assert.Equal(t, "HP:0001945", d.Obj)
			surface++
		}
	}
	assert.Equal(t, 1, surface)
	for i := range 150 {
		obj := fmt.Sprintf("C:%03d", i)
		if slices.Contains(failed, fmt.Sprintf("tok%03d", i)) {
			assert.False(t, semanticObjs[obj], "%s resolved despite failed batch", obj)
		} else {
			assert.True(t, semanticObjs[obj], "%s missing", obj)
		}
	}
	assertConsolidated(t, results[0].Denotations)
}

func TestAnnotate_SemanticOrderPolicy(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := newFakeStore()
	a := store.addEntry("concepts", "alpha concept", "C:A")
	a.Searchable = true
	a.Embedding = mock.DeterministicVector("pyrexia", mock.DefaultDimension)

	embedder := mock.NewMockEmbedder()
	e := newTestEngine(t, store, WithEmbedder(embedder), WithSemanticConfig(semanticConfig()))

	opts := DefaultOptions()
	opts.SemanticThreshold = 0.99
	opts.SemanticPolicy = semantic.PolicyOrder
	opts.Verbose = true

	monitor := newRecordingMonitor()
	results, err := e.AnnotateWithMonitor(context.Background(), []string{"concepts"}, []string{"Severe pyrexia noted"}, opts, monitor)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	require.Len(t, results[0].Denotations, 1)
	d := results[0].Denotations[0]
	assert.Equal(t, "C:A", d.Obj)
	assert.Equal(t, core.Span{Begin: 7, End: 14}, d.Span)
	assert.Equal(t, core.MatchSemantic, d.Match)
	assert.LessOrEqual(t, d.Score, 1.0)

	require.Len(t, monitor.reports, 1)
	assert.Equal(t, monitor.reports[0].Requested, monitor.reports[0].Resolved)
}

func TestAnnotate_SemanticTopRespectsDictionaryLength(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := newFakeStore()
	long := store.addEntry("phrases", "long concept", "P:LONG")
	long.Searchable = true
	long.Embedding = []float32{1, 0, 0}
	store.dictionaries["phrases"].TokensLenMin = 2

	near := store.addEntry("terms", "near concept", "T:NEAR")
	near.Searchable = true
	near.Embedding = []float32{0.95, 0.312, 0}

	embedder := mock.NewMockEmbedder().WithVector("pyrexia", []float32{1, 0, 0})
	e := newTestEngine(t, store, WithEmbedder(embedder), WithSemanticConfig(semanticConfig()))

	opts := DefaultOptions()
	opts.SemanticThreshold = 0.9
	opts.SemanticPolicy = semantic.PolicyTop

	results, err := e.Annotate(context.Background(), []string{"phrases", "terms"}, []string{"Pyrexia"}, opts)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	require.Len(t, results[0].Denotations, 1, "the single-token span falls back to the dictionary that accepts it")
	d := results[0].Denotations[0]
	assert.Equal(t, "T:NEAR", d.Obj)
	assert.Equal(t, core.Span{Begin: 0, End: 7}, d.Span)
	assert.InDelta(t, 0.95, d.Score, 0.01)
}

var _ Monitor = (*recordingMonitor)(nil)
