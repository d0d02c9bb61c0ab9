package semantic

import "errors"

var (
	// ErrInvalidConfig indicates invalid resolver configuration.
	ErrInvalidConfig = errors.New("invalid semantic configuration")

	// ErrUnknownPolicy indicates an unrecognized selection policy.
	ErrUnknownPolicy = errors.New("unknown semantic policy")

	// ErrEmbedderRequired indicates a nil embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidThreshold indicates a threshold outside (0,1].
	ErrInvalidThreshold = errors.New("semantic threshold must be within (0,1]")
)
