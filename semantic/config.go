package semantic

import (
	"fmt"
	"strings"
	"time"
)

// Policy selects which semantic candidates of a span are kept.
type Policy int

const (
	// PolicyTop keeps the candidates whose score equals the best score
	// found for the span across all dictionaries.
	PolicyTop Policy = iota
	// PolicyOrder keeps every candidate above threshold, best first.
	PolicyOrder
)

func (p Policy) String() string {
	if p == PolicyOrder {
		return "order"
	}
	return "top"
}

// ParsePolicy parses "top" or "order". The empty string is PolicyTop.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "top":
		return PolicyTop, nil
	case "order":
		return PolicyOrder, nil
	default:
		return PolicyTop, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Config controls how span embeddings are requested.
type Config struct {
	// BatchSize is the number of strings per embedding request.
	// Default: 50
	BatchSize int

	// Parallelism bounds concurrent embedding requests.
	// Default: 4
	Parallelism int

	// MaxAttempts bounds attempts per batch on transient failures.
	// Default: 3
	MaxAttempts int

	// RetryDelay is the base backoff delay, doubled after every attempt.
	// Default: 500ms
	RetryDelay time.Duration

	// RequestTimeout bounds a single embedding request.
	// Default: 30s
	RequestTimeout time.Duration

	// MinSpanChars is the shortest span, in characters, that is embedded.
	// Default: 3
	MinSpanChars int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      50,
		Parallelism:    4,
		MaxAttempts:    3,
		RetryDelay:     500 * time.Millisecond,
		RequestTimeout: 30 * time.Second,
		MinSpanChars:   3,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be positive, got %d", ErrInvalidConfig, c.Parallelism)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}
	if c.MinSpanChars < 1 {
		return fmt.Errorf("%w: min span chars must be positive, got %d", ErrInvalidConfig, c.MinSpanChars)
	}
	return nil
}
