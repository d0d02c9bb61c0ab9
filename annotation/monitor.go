package annotation

import (
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/semantic"
	"github.com/poiesic/annotit/spans"
)

// Monitor provides hooks to observe the annotation process.
// The text argument is the index of the text within the batch. Slices
// passed to hooks must not be modified.
type Monitor interface {
	Start(dictionaries []string, texts int)
	AfterSpanGeneration(text int, candidates []spans.Candidate)
	AfterPatternMatch(text int, denotations []core.Denotation)
	AfterSurfaceMatch(text int, denotations []core.Denotation)
	// AfterSemanticMatch is only called when semantic matching is enabled.
	AfterSemanticMatch(text int, denotations []core.Denotation, report semantic.Report)
	AfterConsolidation(text int, denotations []core.Denotation)
	Finish(results []Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ []string, _ int)                                          {}
func (n *noopMonitor) AfterSpanGeneration(_ int, _ []spans.Candidate)                   {}
func (n *noopMonitor) AfterPatternMatch(_ int, _ []core.Denotation)                     {}
func (n *noopMonitor) AfterSurfaceMatch(_ int, _ []core.Denotation)                     {}
func (n *noopMonitor) AfterSemanticMatch(_ int, _ []core.Denotation, _ semantic.Report) {}
func (n *noopMonitor) AfterConsolidation(_ int, _ []core.Denotation)                    {}
func (n *noopMonitor) Finish(_ []Result)                                                {}
