package logging

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]log.Level{
		"debug":   log.DebugLevel,
		"info":    log.InfoLevel,
		"warn":    log.WarnLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
		"DEBUG":   log.DebugLevel,
	} {
		level, err := ParseLevel(input)
		require.NoError(t, err, "level %q should parse", input)
		assert.Equal(t, want, level)
	}

	_, err := ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestInitAdjustsExistingLoggers(t *testing.T) {
	logger := Get("test-component")
	require.NotNil(t, logger)

	// The same component always yields the same logger.
	assert.Same(t, logger, Get("test-component"))

	require.NoError(t, Init("debug"))
	assert.Equal(t, log.DebugLevel, logger.GetLevel())

	require.NoError(t, Init("error"))
	assert.Equal(t, log.ErrorLevel, logger.GetLevel())

	assert.ErrorIs(t, Init("loud"), ErrInvalidLevel)
}
