package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_StringIncludesCodeAndMessage(t *testing.T) {
	e := NewError("subscribe_failed", "could not bind", nil)
	assert.Equal(t, "[subscribe_failed] could not bind", e.Error())
}

func TestError_StringIncludesWrappedError(t *testing.T) {
	inner := errors.New("boom")
	e := NewError("publish_failed", "publishing run result", inner)
	assert.Equal(t, "[publish_failed] publishing run result: boom", e.Error())
}

func TestError_UnwrapReturnsInner(t *testing.T) {
	inner := errors.New("boom")
	e := NewError("publish_failed", "publishing run result", inner)
	assert.Equal(t, inner, e.Unwrap())
	assert.True(t, errors.Is(e, inner))
}

func TestIsTimeout_MatchesSentinelDirectlyAndWrapped(t *testing.T) {
	assert.True(t, IsTimeout(ErrTimeout))
	wrapped := NewError("timeout", "node exceeded deadline", ErrTimeout)
	assert.True(t, IsTimeout(wrapped))
	assert.False(t, IsTimeout(ErrNotConnected))
}

func TestIsNotConnected_MatchesSentinelDirectlyAndWrapped(t *testing.T) {
	assert.True(t, IsNotConnected(ErrNotConnected))
	wrapped := NewError("connection", "nats unavailable", ErrNotConnected)
	assert.True(t, IsNotConnected(wrapped))
	assert.False(t, IsNotConnected(ErrTimeout))
}
