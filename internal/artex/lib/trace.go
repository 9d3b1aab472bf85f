package lib

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gingerrexayers/artex-go/internal/artex/types"
)

// TraceEvent is one filesystem access reported by the tracer. Kind is 'r',
// 'w', or 'd'; moves are rewritten into a delete of the source followed by a
// write of the destination before they reach the fold.
type TraceEvent struct {
	Kind byte
	Path string
}

// ParseTraceEvents reads the tracer's line-oriented event log. Lines are
// "<kind>|<path>", or "m|<dst>|<src>" for moves. An unknown event kind is
// fatal.
func ParseTraceEvents(r io.Reader) ([]TraceEvent, error) {
	var events []TraceEvent

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		kind, rest, found := strings.Cut(line, "|")
		if !found || kind == "" {
			return nil, fmt.Errorf("%w: malformed trace event %q", ErrTracerFailure, line)
		}

		switch kind {
		case "r", "w", "d":
			events = append(events, TraceEvent{Kind: kind[0], Path: rest})
		case "m":
			dst, src, found := strings.Cut(rest, "|")
			if !found {
				return nil, fmt.Errorf("%w: malformed move event %q", ErrTracerFailure, line)
			}
			// A move is a delete of the source then a write of the destination.
			events = append(events, TraceEvent{Kind: 'd', Path: src})
			events = append(events, TraceEvent{Kind: 'w', Path: dst})
		default:
			return nil, fmt.Errorf("%w: unknown trace event kind %q", ErrTracerFailure, kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading trace events: %v", ErrTracerFailure, err)
	}

	return events, nil
}

// FoldTraceEvents reduces the event stream to a terminal state per path.
// The fold is pure; its only output is the per-path map.
func FoldTraceEvents(events []TraceEvent) (map[string]types.TraceState, error) {
	states := make(map[string]types.TraceState)

	for _, event := range events {
		state := states[event.Path]
		next, err := transition(state, event)
		if err != nil {
			return nil, err
		}
		states[event.Path] = next
	}

	return states, nil
}

// transition implements the state machine's transition table. Illegal
// transitions describe filesystem histories that cannot happen, so observing
// one means the trace is corrupt.
func transition(state types.TraceState, event TraceEvent) (types.TraceState, error) {
	switch state {
	case types.TraceNone:
		switch event.Kind {
		case 'r':
			return types.TraceRead, nil
		case 'w':
			return types.TraceWritten, nil
		case 'd':
			return 0, fmt.Errorf("%w: %s deleted before being written", ErrTraceState, event.Path)
		}
	case types.TraceRead:
		switch event.Kind {
		case 'r':
			return types.TraceRead, nil
		case 'w':
			return types.TraceReadWritten, nil
		case 'd':
			return 0, fmt.Errorf("%w: %s read as an input and then deleted", ErrTraceState, event.Path)
		}
	case types.TraceWritten:
		switch event.Kind {
		case 'r', 'w':
			return types.TraceWritten, nil
		case 'd':
			return types.TraceDeleted, nil
		}
	case types.TraceReadWritten:
		switch event.Kind {
		case 'r', 'w', 'd':
			return types.TraceReadWritten, nil
		}
	case types.TraceDeleted:
		switch event.Kind {
		case 'r':
			return 0, fmt.Errorf("%w: %s read after being deleted", ErrTraceState, event.Path)
		case 'w':
			return types.TraceWritten, nil
		case 'd':
			return 0, fmt.Errorf("%w: %s deleted twice", ErrTraceState, event.Path)
		}
	}
	return 0, fmt.Errorf("%w: unknown event kind %q for %s", ErrTracerFailure, string(event.Kind), event.Path)
}

// ClassifyTraceStates derives the final per-path classification: reads are
// inputs, writes are outputs, read-then-written paths are both, and deleted
// paths are transient and reported as neither. Both slices are sorted.
func ClassifyTraceStates(states map[string]types.TraceState) (inputs, outputs []string) {
	for path, state := range states {
		switch state {
		case types.TraceRead:
			inputs = append(inputs, path)
		case types.TraceWritten:
			outputs = append(outputs, path)
		case types.TraceReadWritten:
			inputs = append(inputs, path)
			outputs = append(outputs, path)
		}
	}
	sort.Strings(inputs)
	sort.Strings(outputs)
	return inputs, outputs
}
