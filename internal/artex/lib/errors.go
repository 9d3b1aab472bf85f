package lib

import "errors"

// Error kinds reported at component boundaries. All are fatal for the current
// action except ErrNonHermeticIdentical, which is logged as a warning.
var (
	// ErrConfig indicates a missing cache directory or required manifest.
	ErrConfig = errors.New("configuration error")

	// ErrNotFound indicates a declared input, an expected sandbox file, or an
	// expected cached object does not exist on disk.
	ErrNotFound = errors.New("file not found")

	// ErrHashMismatch indicates a cache-hit record whose stored sub-digests
	// disagree with the freshly computed ones.
	ErrHashMismatch = errors.New("action record digest mismatch")

	// ErrNonHermeticDivergent indicates a traced access outside the sandbox
	// whose sandboxed and unsandboxed contents differ.
	ErrNonHermeticDivergent = errors.New("non-hermetic file access with divergent contents")

	// ErrNonHermeticIdentical is the warning-only variant: contents were
	// byte-equal inside and outside the sandbox.
	ErrNonHermeticIdentical = errors.New("non-hermetic file access with identical contents")

	// ErrUndeclaredInput indicates the program read a file missing from the
	// declared inputs.
	ErrUndeclaredInput = errors.New("undeclared input")

	// ErrMissingOutput indicates a declared output the traced program never
	// produced.
	ErrMissingOutput = errors.New("missing output")

	// ErrTraceState indicates an impossible transition in the trace event
	// stream (delete before write, read after delete, double delete).
	ErrTraceState = errors.New("impossible trace state transition")

	// ErrTracerFailure indicates the tracer subprocess failed or emitted an
	// unknown event kind.
	ErrTracerFailure = errors.New("tracer failure")
)
