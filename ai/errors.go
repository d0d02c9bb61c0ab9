package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrClient indicates the provider rejected the request. Not retried.
	ErrClient = errors.New("embedding request rejected")

	// ErrTransient indicates a timeout, connection failure, server error or
	// malformed response. Retried with backoff.
	ErrTransient = errors.New("transient embedding failure")

	// ErrServiceUnavailable indicates that retries were exhausted.
	ErrServiceUnavailable = errors.New("embedding service unavailable")

	// ErrInvalidMaxAttempts indicates an invalid retry bound.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)

// ErrorKind classifies provider failures.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindClient
)

func (k ErrorKind) String() string {
	if k == KindClient {
		return "client"
	}
	return "transient"
}

// ProviderError carries the provider detail of a failed request.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrClient) and errors.Is(err, ErrTransient) match
// on the classification.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrClient:
		return e.Kind == KindClient
	case ErrTransient:
		return e.Kind == KindTransient
	}
	return false
}

// NewClientError wraps err as a non-retryable provider failure.
func NewClientError(provider string, err error) error {
	return &ProviderError{Kind: KindClient, Provider: provider, Err: err}
}

// NewTransientError wraps err as a retryable provider failure.
func NewTransientError(provider string, err error) error {
	return &ProviderError{Kind: KindTransient, Provider: provider, Err: err}
}

// IsRetryable reports whether an operation that failed with err may be
// attempted again. Client errors and context cancellation are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrClient) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
