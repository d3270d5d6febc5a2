// Package errors provides structured error types for the simulation bridge.
//
// Errors are categorized by Phase (which operation group failed) and Kind
// (error category). The Error type carries the handle and signal involved,
// the offending value and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAccess, errors.KindLengthMismatch).
//		Handle(h).
//		Signal(3).
//		Detail("buffer length %d, signal byte width %d", 4, 12).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(errors.PhaseStep, h)
//	err := errors.OutOfBounds(errors.PhaseAccess, id, index, depth)
//
// Kind sentinels match through the standard library regardless of phase:
//
//	if errors.Is(err, simerrors.ErrInvalidHandle) { ... }
//
// Resource errors (model not found, allocation, unwritable waveform) are
// reported by handle creation. Protocol misuse (stale handles, unknown
// signals, length mismatches, out-of-range indices, overlapping use of one
// handle) is reported by the offending call. None of them are retried.
package errors
