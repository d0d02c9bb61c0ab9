package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/poiesic/annotit/ai"
	"github.com/poiesic/annotit/annotation"
	"github.com/poiesic/annotit/semantic"
)

// fileConfig is the layout of the --config TOML file. Every section is
// optional; flags override file values.
type fileConfig struct {
	Annotation annotationConfig `toml:"annotation"`
	Embedding  embeddingConfig  `toml:"embedding"`
	Semantic   semanticConfig   `toml:"semantic"`
}

type annotationConfig struct {
	annotation.Options
	Policy string `toml:"semantic_policy"`
}

type embeddingConfig struct {
	Host  string `toml:"host"`
	Model string `toml:"model"`
	Token string `toml:"token"`
}

type semanticConfig struct {
	BatchSize      int           `toml:"batch_size"`
	Parallelism    int           `toml:"parallelism"`
	MaxAttempts    int           `toml:"max_attempts"`
	RetryDelay     time.Duration `toml:"retry_delay"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	MinSpanChars   int           `toml:"min_span_chars"`
}

func defaultFileConfig() *fileConfig {
	sc := semantic.DefaultConfig()
	return &fileConfig{
		Annotation: annotationConfig{
			Options: annotation.DefaultOptions(),
			Policy:  semantic.PolicyTop.String(),
		},
		Embedding: embeddingConfig{
			Host: ai.DefaultConfig().EmbeddingHost,
		},
		Semantic: semanticConfig{
			BatchSize:      sc.BatchSize,
			Parallelism:    sc.Parallelism,
			MaxAttempts:    sc.MaxAttempts,
			RetryDelay:     sc.RetryDelay,
			RequestTimeout: sc.RequestTimeout,
			MinSpanChars:   sc.MinSpanChars,
		},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (*fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	policy, err := semantic.ParsePolicy(cfg.Annotation.Policy)
	if err != nil {
		return nil, err
	}
	cfg.Annotation.SemanticPolicy = policy
	return cfg, nil
}

func (c *fileConfig) aiConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIToken(c.Embedding.Token),
	)
}

func (c *fileConfig) semanticConfig() *semantic.Config {
	return &semantic.Config{
		BatchSize:      c.Semantic.BatchSize,
		Parallelism:    c.Semantic.Parallelism,
		MaxAttempts:    c.Semantic.MaxAttempts,
		RetryDelay:     c.Semantic.RetryDelay,
		RequestTimeout: c.Semantic.RequestTimeout,
		MinSpanChars:   c.Semantic.MinSpanChars,
	}
}
