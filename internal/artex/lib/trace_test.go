package lib

import (
	"strings"
	"testing"

	"github.com/gingerrexayers/artex-go/internal/artex/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foldLog(t *testing.T, log string) (map[string]types.TraceState, error) {
	t.Helper()
	events, err := ParseTraceEvents(strings.NewReader(log))
	require.NoError(t, err)
	return FoldTraceEvents(events)
}

func TestParseTraceEvents(t *testing.T) {
	t.Run("plain events", func(t *testing.T) {
		events, err := ParseTraceEvents(strings.NewReader("r|/a\nw|/b\nd|/c\n"))
		require.NoError(t, err)
		assert.Equal(t, []TraceEvent{
			{Kind: 'r', Path: "/a"},
			{Kind: 'w', Path: "/b"},
			{Kind: 'd', Path: "/c"},
		}, events)
	})

	t.Run("move rewrites to delete then write", func(t *testing.T) {
		events, err := ParseTraceEvents(strings.NewReader("m|/t/y|/t/x\n"))
		require.NoError(t, err)
		assert.Equal(t, []TraceEvent{
			{Kind: 'd', Path: "/t/x"},
			{Kind: 'w', Path: "/t/y"},
		}, events)
	})

	t.Run("unknown kind is fatal", func(t *testing.T) {
		_, err := ParseTraceEvents(strings.NewReader("x|/a\n"))
		assert.ErrorIs(t, err, ErrTracerFailure)
	})

	t.Run("malformed move is fatal", func(t *testing.T) {
		_, err := ParseTraceEvents(strings.NewReader("m|/only-dst\n"))
		assert.ErrorIs(t, err, ErrTracerFailure)
	})
}

func TestFoldTraceEvents(t *testing.T) {
	t.Run("terminal states", func(t *testing.T) {
		states, err := foldLog(t, "r|/in\nw|/out\nr|/both\nw|/both\nw|/tmp\nd|/tmp\n")
		require.NoError(t, err)
		assert.Equal(t, types.TraceRead, states["/in"])
		assert.Equal(t, types.TraceWritten, states["/out"])
		assert.Equal(t, types.TraceReadWritten, states["/both"])
		assert.Equal(t, types.TraceDeleted, states["/tmp"])
	})

	t.Run("reading an own write stays a write", func(t *testing.T) {
		states, err := foldLog(t, "w|/out\nr|/out\n")
		require.NoError(t, err)
		assert.Equal(t, types.TraceWritten, states["/out"])
	})

	t.Run("rewrite after delete is a write", func(t *testing.T) {
		states, err := foldLog(t, "w|/f\nd|/f\nw|/f\n")
		require.NoError(t, err)
		assert.Equal(t, types.TraceWritten, states["/f"])
	})

	t.Run("read-write paths absorb deletes", func(t *testing.T) {
		states, err := foldLog(t, "r|/f\nw|/f\nd|/f\n")
		require.NoError(t, err)
		assert.Equal(t, types.TraceReadWritten, states["/f"])
	})

	t.Run("move makes the source transient and the destination an output", func(t *testing.T) {
		states, err := foldLog(t, "w|/t/x\nm|/t/y|/t/x\n")
		require.NoError(t, err)

		inputs, outputs := ClassifyTraceStates(states)
		assert.Empty(t, inputs)
		assert.Equal(t, []string{"/t/y"}, outputs)
	})

	t.Run("delete before write is fatal", func(t *testing.T) {
		_, err := foldLog(t, "d|/f\n")
		assert.ErrorIs(t, err, ErrTraceState)
	})

	t.Run("read then delete is fatal", func(t *testing.T) {
		_, err := foldLog(t, "r|/f\nd|/f\n")
		assert.ErrorIs(t, err, ErrTraceState)
	})

	t.Run("read after delete is fatal", func(t *testing.T) {
		_, err := foldLog(t, "w|/f\nd|/f\nr|/f\n")
		assert.ErrorIs(t, err, ErrTraceState)
	})

	t.Run("double delete is fatal", func(t *testing.T) {
		_, err := foldLog(t, "w|/f\nd|/f\nd|/f\n")
		assert.ErrorIs(t, err, ErrTraceState)
	})
}

func TestClassifyTraceStates(t *testing.T) {
	states := map[string]types.TraceState{
		"/in":   types.TraceRead,
		"/out2": types.TraceWritten,
		"/out1": types.TraceWritten,
		"/both": types.TraceReadWritten,
		"/gone": types.TraceDeleted,
	}

	inputs, outputs := ClassifyTraceStates(states)
	assert.Equal(t, []string{"/both", "/in"}, inputs)
	assert.Equal(t, []string{"/both", "/out1", "/out2"}, outputs)
}
