package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewFromSettings(t *testing.T) {
	logger := NewFromSettings("warn", false)
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(-1)) // debug disabled at warn

	fallback := NewFromSettings("loud", false)
	require.NotNil(t, fallback)
	fallback.Info("dropped")
}

func TestComponent(t *testing.T) {
	logger := NewNop()
	assert.NotNil(t, logger.Component("registry"))
}
