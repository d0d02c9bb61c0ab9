package annotation

import (
	"fmt"
	"slices"

	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/scoring"
	"github.com/poiesic/annotit/semantic"
	"github.com/poiesic/annotit/spans"
)

// DefaultRetrievalThreshold is the trigram similarity a dictionary string
// needs to be scored against a span at all.
const DefaultRetrievalThreshold = 0.5

// Options controls a single Annotate call.
type Options struct {
	// TokensLenMin and TokensLenMax bound the number of tokens of a span.
	TokensLenMin int `json:"tokens_len_min" toml:"tokens_len_min"`
	TokensLenMax int `json:"tokens_len_max" toml:"tokens_len_max"`

	// SurfaceThreshold is the minimum string similarity score.
	SurfaceThreshold float64 `json:"surface_threshold" toml:"surface_threshold"`

	// SemanticThreshold is the minimum embedding similarity. Zero disables
	// semantic matching.
	SemanticThreshold float64 `json:"semantic_threshold" toml:"semantic_threshold"`

	// SemanticPolicy selects which semantic candidates of a span are kept.
	SemanticPolicy semantic.Policy `json:"-" toml:"-"`

	// RetrievalThreshold prefilters dictionary strings before scoring.
	RetrievalThreshold float64 `json:"retrieval_threshold" toml:"retrieval_threshold"`

	Abbreviation bool `json:"abbreviation" toml:"abbreviation"`
	Longest      bool `json:"longest" toml:"longest"`
	Superfluous  bool `json:"superfluous" toml:"superfluous"`

	// Verbose adds label, normalized forms, match type and dictionary to
	// every denotation.
	Verbose bool `json:"verbose" toml:"verbose"`

	// Tags restricts matching to entries carrying one of the tags.
	Tags []string `json:"tags,omitempty" toml:"tags"`
}

// DefaultOptions returns the default annotation options.
func DefaultOptions() Options {
	return Options{
		TokensLenMin:       spans.DefaultTokensLenMin,
		TokensLenMax:       spans.DefaultTokensLenMax,
		SurfaceThreshold:   scoring.DefaultThreshold,
		SemanticPolicy:     semantic.PolicyTop,
		RetrievalThreshold: DefaultRetrievalThreshold,
		Abbreviation:       true,
		Longest:            true,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.TokensLenMin < 1 {
		return fmt.Errorf("%w: tokens_len_min %d must be at least 1", core.ErrInvalidOptions, o.TokensLenMin)
	}
	if o.TokensLenMax < o.TokensLenMin {
		return fmt.Errorf("%w: tokens_len_max %d below tokens_len_min %d", core.ErrInvalidOptions, o.TokensLenMax, o.TokensLenMin)
	}
	if o.SurfaceThreshold <= 0 || o.SurfaceThreshold > 1 {
		return fmt.Errorf("%w: surface_threshold %v must be within (0,1]", core.ErrInvalidOptions, o.SurfaceThreshold)
	}
	if o.SemanticThreshold < 0 || o.SemanticThreshold > 1 {
		return fmt.Errorf("%w: semantic_threshold %v must be within [0,1]", core.ErrInvalidOptions, o.SemanticThreshold)
	}
	if o.RetrievalThreshold <= 0 || o.RetrievalThreshold > 1 {
		return fmt.Errorf("%w: retrieval_threshold %v must be within (0,1]", core.ErrInvalidOptions, o.RetrievalThreshold)
	}
	if o.SemanticPolicy != semantic.PolicyTop && o.SemanticPolicy != semantic.PolicyOrder {
		return fmt.Errorf("%w: %w", core.ErrInvalidOptions, semantic.ErrUnknownPolicy)
	}
	if slices.Contains(o.Tags, "") {
		return fmt.Errorf("%w: empty tag", core.ErrInvalidOptions)
	}
	return nil
}

// Semantic reports whether semantic matching is enabled.
func (o Options) Semantic() bool {
	return o.SemanticThreshold > 0
}
