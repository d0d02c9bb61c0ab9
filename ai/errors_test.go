package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorClassification(t *testing.T) {
	cause := errors.New("status 400")

	clientErr := NewClientError("openai", cause)
	assert.ErrorIs(t, clientErr, ErrClient)
	assert.NotErrorIs(t, clientErr, ErrTransient)
	assert.ErrorIs(t, clientErr, cause)
	assert.Contains(t, clientErr.Error(), "openai")
	assert.Contains(t, clientErr.Error(), "client")

	transientErr := NewTransientError("openai", cause)
	assert.ErrorIs(t, transientErr, ErrTransient)
	assert.NotErrorIs(t, transientErr, ErrClient)

	var perr *ProviderError
	wrapped := fmt.Errorf("batch 2: %w", clientErr)
	assert.ErrorAs(t, wrapped, &perr)
	assert.Equal(t, KindClient, perr.Kind)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("connection reset"), true},
		{"transient", NewTransientError("openai", errors.New("503")), true},
		{"client", NewClientError("openai", errors.New("400")), false},
		{"wrapped client", fmt.Errorf("embed: %w", NewClientError("openai", errors.New("401"))), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
