package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError_ClassifiesFromMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"rate limit", errors.New("429 too many requests"), ErrRateLimit},
		{"auth", errors.New("401 unauthorized: invalid api key"), ErrAuth},
		{"timeout", errors.New("context deadline exceeded"), ErrTimeout},
		{"other", errors.New("connection reset by peer"), ErrTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			perr := NewError("openai", "gpt-4o", tc.err)
			require.NotNil(t, perr)
			assert.Equal(t, tc.want, perr.Kind)
		})
	}
}

func TestError_WithStatusReclassifies(t *testing.T) {
	perr := NewError("anthropic", "claude-3-5-sonnet-latest", errors.New("boom"))
	perr.WithStatus(429)
	assert.Equal(t, ErrRateLimit, perr.Kind)
	assert.True(t, perr.Kind.Retryable())

	perr.WithStatus(401)
	assert.Equal(t, ErrAuth, perr.Kind)
	assert.False(t, perr.Kind.Retryable())
}

func TestError_ErrorStringIncludesContext(t *testing.T) {
	perr := NewError("openai", "gpt-4o", errors.New("rate limit exceeded")).WithStatus(429)
	msg := perr.Error()
	assert.Contains(t, msg, "provider_rate_limit")
	assert.Contains(t, msg, "openai")
	assert.Contains(t, msg, "gpt-4o")
}
