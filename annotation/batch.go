package annotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/annotit/analysis"
	"github.com/poiesic/annotit/cache"
	"github.com/poiesic/annotit/consolidate"
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/pattern"
	"github.com/poiesic/annotit/scoring"
	"github.com/poiesic/annotit/semantic"
	"github.com/poiesic/annotit/simstring"
	"github.com/poiesic/annotit/spans"
	"github.com/poiesic/annotit/storage"
	"golang.org/x/sync/errgroup"
)

// dictionaryIndex holds the per-batch matching resources of one dictionary.
type dictionaryIndex struct {
	dict     *core.Dictionary
	entries  []*core.Entry
	patterns []*core.Pattern
	strings  *simstring.Index
	byKey    map[string][]*core.Entry
	scorer   *scoring.Scorer
	vectors  *semantic.Index
}

// acceptsLength applies the dictionary's own token length bounds.
func (d *dictionaryIndex) acceptsLength(tokens int) bool {
	if d.dict.TokensLenMin > 0 && tokens < d.dict.TokensLenMin {
		return false
	}
	if d.dict.TokensLenMax > 0 && tokens > d.dict.TokensLenMax {
		return false
	}
	return true
}

// batch owns everything built for one Annotate call. Nothing in it is
// shared with other calls.
type batch struct {
	analyzer     analysis.Analyzer
	opts         Options
	dictionaries []*dictionaryIndex
	byName       map[string]*dictionaryIndex
	generator    *spans.Generator
	patterns     *pattern.Matcher
	cache        *cache.LRU[[]core.Candidate]
	resolver     *semantic.Resolver
	matcher      *semantic.Matcher
	minSpanChars int
	logger       *slog.Logger
}

func (e *Engine) newBatch(ctx context.Context, names []string, opts Options) (*batch, error) {
	names = dedupe(names)

	loaded := make([]*dictionaryIndex, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			d, err := e.loadDictionary(gctx, name, opts)
			if err != nil {
				return err
			}
			loaded[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &batch{
		analyzer:     e.analyzer,
		opts:         opts,
		dictionaries: loaded,
		byName:       make(map[string]*dictionaryIndex, len(loaded)),
		cache:        cache.New[[]core.Candidate](e.cacheCapacity),
		minSpanChars: e.semanticConfig.MinSpanChars,
		logger:       e.logger,
	}

	var patterns []*core.Pattern
	for _, d := range loaded {
		b.byName[d.dict.Name] = d
		patterns = append(patterns, d.patterns...)
	}

	generator, err := spans.NewGenerator(spans.Config{
		TokensLenMin: opts.TokensLenMin,
		TokensLenMax: opts.TokensLenMax,
		NoTermWords:  wordSet(loaded, func(d *core.Dictionary) []string { return d.NoTermWords }, spans.DefaultNoTermWords),
		NoBeginWords: wordSet(loaded, func(d *core.Dictionary) []string { return d.NoBeginWords }, spans.DefaultNoBeginWords),
		NoEndWords:   wordSet(loaded, func(d *core.Dictionary) []string { return d.NoEndWords }, spans.DefaultNoEndWords),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidOptions, err)
	}
	b.generator = generator

	b.patterns, err = pattern.NewMatcher(patterns, pattern.WithMatchTimeout(e.patternTimeout), pattern.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}

	if opts.Semantic() {
		indexes := make([]*semantic.Index, 0, len(loaded))
		for _, d := range loaded {
			indexes = append(indexes, d.vectors)
		}
		b.matcher, err = semantic.NewMatcher(indexes, opts.SemanticPolicy, opts.SemanticThreshold)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidOptions, err)
		}
		b.resolver, err = semantic.NewResolver(e.embedder, e.semanticConfig, semantic.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (e *Engine) loadDictionary(ctx context.Context, name string, opts Options) (*dictionaryIndex, error) {
	dict, err := e.store.GetDictionary(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownDictionary, name)
		}
		return nil, fmt.Errorf("failed to load dictionary %q: %w", name, err)
	}
	entries, err := e.store.GetEntries(ctx, name, opts.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries of %q: %w", name, err)
	}
	patterns, err := e.store.GetPatterns(ctx, name, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns of %q: %w", name, err)
	}

	scorer, err := scoring.NewScorer(max(opts.SurfaceThreshold, dict.Threshold))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidDictionary, err)
	}

	d := &dictionaryIndex{
		dict:     dict,
		entries:  entries,
		patterns: patterns,
		strings:  simstring.New(simstring.DefaultN),
		byKey:    make(map[string][]*core.Entry),
		scorer:   scorer,
	}
	for _, entry := range entries {
		key := entry.IndexKey()
		if key == "" {
			continue
		}
		d.strings.Add(key)
		d.byKey[key] = append(d.byKey[key], entry)
	}
	if opts.Semantic() {
		d.vectors = semantic.NewIndex(name, entries, nil)
	}

	e.logger.Debug("dictionary loaded",
		"dictionary", name,
		"entries", len(entries),
		"strings", d.strings.Len(),
		"patterns", len(patterns))
	return d, nil
}

func (b *batch) close() {
	if b.resolver != nil {
		b.resolver.Release()
	}
	b.cache.Clear()
}

func (b *batch) names() []string {
	out := make([]string, len(b.dictionaries))
	for i, d := range b.dictionaries {
		out[i] = d.dict.Name
	}
	return out
}

// annotate runs the full pipeline over one text.
func (b *batch) annotate(ctx context.Context, index int, text string, monitor Monitor) ([]core.Denotation, error) {
	tokens1, err := b.analyzer.Analyze(ctx, text, analysis.Typographic)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	tokens2, err := b.analyzer.Analyze(ctx, text, analysis.Morphosyntactic)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	runes := []rune(text)
	candidates := b.generator.Generate(runes, tokens1, tokens2)
	monitor.AfterSpanGeneration(index, candidates)

	var errs []error

	patternDenotations, err := b.patterns.Match(text)
	if err != nil {
		errs = append(errs, err)
	}
	monitor.AfterPatternMatch(index, patternDenotations)

	surface := b.surfaceDenotations(candidates)
	monitor.AfterSurfaceMatch(index, surface)

	var semanticDenotations []core.Denotation
	if b.matcher != nil {
		var report semantic.Report
		semanticDenotations, report = b.semanticDenotations(ctx, text, candidates)
		if report.Err != nil {
			errs = append(errs, report.Err)
		}
		monitor.AfterSemanticMatch(index, semanticDenotations, report)
	}

	var abbreviations []pattern.Abbreviation
	if b.opts.Abbreviation {
		abbreviations, err = pattern.FindAbbreviations(text)
		if err != nil {
			b.logger.Warn("abbreviation scan failed", "text", index, "err", err)
			abbreviations = nil
		}
	}

	raw := make([]core.Denotation, 0, len(patternDenotations)+len(surface)+len(semanticDenotations))
	raw = append(raw, patternDenotations...)
	raw = append(raw, surface...)
	raw = append(raw, semanticDenotations...)

	final := consolidate.Consolidate(runes, raw, abbreviations, consolidate.Options{
		Longest:      b.opts.Longest,
		Superfluous:  b.opts.Superfluous,
		Abbreviation: b.opts.Abbreviation,
	})
	if !b.opts.Verbose {
		for i := range final {
			final[i] = terse(final[i])
		}
	}
	monitor.AfterConsolidation(index, final)

	return final, errors.Join(errs...)
}

// surfaceCandidates resolves a span against every dictionary by string
// similarity. Results are cached by surface string: the score depends on
// the surface form as well as on the normalized ones.
func (b *batch) surfaceCandidates(c *spans.Candidate) []core.Candidate {
	if cached, ok := b.cache.Get(c.Text); ok {
		return cached
	}

	term := scoring.Term{Surface: c.Text, Norm1: c.Norm1(), Norm2: c.Norm2()}
	query := term.Norm2
	if query == "" {
		query = term.Norm1
	}

	var out []core.Candidate
	if query != "" {
		for _, d := range b.dictionaries {
			if !d.acceptsLength(c.Tokens()) {
				continue
			}
			for _, hit := range d.strings.Retrieve(query, b.opts.RetrievalThreshold, simstring.Jaccard) {
				for _, entry := range d.byKey[hit.Value] {
					if score, ok := d.scorer.Accept(term, scoring.EntryTerm(entry)); ok {
						out = append(out, core.Candidate{Entry: entry, Score: score, Match: core.MatchTerm})
					}
				}
			}
		}
	}
	b.cache.Put(c.Text, out)
	return out
}

func (b *batch) surfaceDenotations(candidates []spans.Candidate) []core.Denotation {
	var out []core.Denotation
	for i := range candidates {
		c := &candidates[i]
		for _, match := range b.surfaceCandidates(c) {
			for _, occ := range c.Occurrences {
				out = append(out, denotation(occ.Span, match))
			}
		}
	}
	return out
}

// semanticDenotations embeds every filterable span of the text in one
// fan-out and matches the resolved vectors. Spans without a vector are
// skipped.
func (b *batch) semanticDenotations(ctx context.Context, text string, candidates []spans.Candidate) ([]core.Denotation, semantic.Report) {
	keys := make([]string, 0, len(candidates)+1)
	for i := range candidates {
		if key := candidates[i].Norm1(); semantic.Filterable(key, b.minSpanChars) {
			keys = append(keys, key)
		}
	}
	if b.opts.SemanticPolicy == semantic.PolicyOrder {
		keys = append(keys, text)
	}
	report := b.resolver.Resolve(ctx, keys)

	var document []float32
	if b.opts.SemanticPolicy == semantic.PolicyOrder {
		document, _ = b.resolver.Vector(text)
	}

	var out []core.Denotation
	for i := range candidates {
		c := &candidates[i]
		vec, ok := b.resolver.Vector(c.Norm1())
		if !ok {
			continue
		}
		tokens := c.Tokens()
		accept := func(dictionary string) bool {
			d := b.byName[dictionary]
			return d == nil || d.acceptsLength(tokens)
		}
		for _, match := range b.matcher.MatchIn(vec, document, accept) {
			for _, occ := range c.Occurrences {
				out = append(out, denotation(occ.Span, match))
			}
		}
	}
	return out, report
}

func denotation(span core.Span, c core.Candidate) core.Denotation {
	return core.Denotation{
		Span:       span,
		Obj:        c.Entry.Identifier,
		Score:      core.ClampScore(c.Score),
		Match:      c.Match,
		Label:      c.Entry.Label,
		Norm1:      c.Entry.Norm1,
		Norm2:      c.Entry.Norm2,
		Dictionary: c.Entry.Dictionary,
	}
}

// terse strips the verbose fields.
func terse(d core.Denotation) core.Denotation {
	return core.Denotation{Span: d.Span, Obj: d.Obj, Score: d.Score}
}

func wordSet(dicts []*dictionaryIndex, list func(*core.Dictionary) []string, defaults []string) spans.WordSet {
	lists := make([][]string, 0, len(dicts))
	for _, d := range dicts {
		if words := list(d.dict); len(words) > 0 {
			lists = append(lists, words)
		} else {
			lists = append(lists, defaults)
		}
	}
	return spans.NewWordSet(lists...)
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
