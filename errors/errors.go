package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which bridge operation group raised the error
type Phase string

const (
	PhaseLoad      Phase = "load"      // model lookup and compilation
	PhaseLifecycle Phase = "lifecycle" // handle creation and release
	PhaseStep      Phase = "step"      // eval and sleep
	PhaseAccess    Phase = "access"    // signal and memory read/write
	PhaseWave      Phase = "wave"      // waveform capture
	PhaseConfig    Phase = "config"    // configuration parsing
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindInvalidHandle  Kind = "invalid_handle"
	KindUnknownSignal  Kind = "unknown_signal"
	KindLengthMismatch Kind = "length_mismatch"
	KindWidthMismatch  Kind = "width_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindConcurrentUse  Kind = "concurrent_use"
	KindNativeFault    Kind = "native_fault"
	KindAllocation     Kind = "allocation"
	KindClosed         Kind = "closed"
	KindUnsupported    Kind = "unsupported"
	KindOverflow       Kind = "overflow"
	KindIO             Kind = "io"
)

// Error is the structured error type returned by every bridge operation.
// Signal is -1 when the error is not tied to a signal.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Handle string
	Detail string
	Signal int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Handle != "" || e.Signal >= 0 {
		b.WriteString(" at ")
		if e.Handle != "" {
			b.WriteString("handle ")
			b.WriteString(e.Handle)
		}
		if e.Signal >= 0 {
			if e.Handle != "" {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "signal %d", e.Signal)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Kinds must match; the phase is compared only when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels usable with errors.Is regardless of phase.
var (
	ErrNotFound       = &Error{Kind: KindNotFound, Signal: -1}
	ErrInvalidHandle  = &Error{Kind: KindInvalidHandle, Signal: -1}
	ErrUnknownSignal  = &Error{Kind: KindUnknownSignal, Signal: -1}
	ErrLengthMismatch = &Error{Kind: KindLengthMismatch, Signal: -1}
	ErrWidthMismatch  = &Error{Kind: KindWidthMismatch, Signal: -1}
	ErrOutOfBounds    = &Error{Kind: KindOutOfBounds, Signal: -1}
	ErrConcurrentUse  = &Error{Kind: KindConcurrentUse, Signal: -1}
	ErrNativeFault    = &Error{Kind: KindNativeFault, Signal: -1}
	ErrClosed         = &Error{Kind: KindClosed, Signal: -1}
	ErrUnsupported    = &Error{Kind: KindUnsupported, Signal: -1}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Signal: -1,
		},
	}
}

// Handle sets the textual form of the handle involved
func (b *Builder) Handle(h fmt.Stringer) *Builder {
	b.err.Handle = h.String()
	return b
}

// Signal sets the signal id involved
func (b *Builder) Signal(id uint32) *Builder {
	b.err.Signal = int64(id)
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Signal: -1,
	}
}

// InvalidHandle creates an error for a zero, stale or released handle
func InvalidHandle(phase Phase, h fmt.Stringer) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Handle: h.String(),
		Detail: "handle is not live",
		Signal: -1,
	}
}

// UnknownSignal creates an error for a signal id absent from the model layout
func UnknownSignal(phase Phase, id uint32, count int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownSignal,
		Signal: int64(id),
		Detail: fmt.Sprintf("model has %d signals", count),
		Value:  id,
	}
}

// LengthMismatch creates a vector length error
func LengthMismatch(phase Phase, id uint32, got, want int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLengthMismatch,
		Signal: int64(id),
		Detail: fmt.Sprintf("buffer length %d, signal byte width %d", got, want),
		Value:  got,
	}
}

// WidthMismatch creates an error for scalar access to a wide signal
func WidthMismatch(phase Phase, id uint32, bits uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindWidthMismatch,
		Signal: int64(id),
		Detail: fmt.Sprintf("signal is %d bits wide, scalar access is limited to 64", bits),
		Value:  bits,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, id uint32, index, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Signal: int64(id),
		Detail: fmt.Sprintf("index %d out of bounds (depth %d)", index, length),
		Value:  index,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
		Signal: -1,
	}
}

// InvalidData creates an error for malformed artifacts or layouts
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
		Signal: -1,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
		Signal: -1,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v overflows %s", value, what),
		Value:  value,
		Signal: -1,
	}
}

// Native wraps a failure raised inside an engine call
func Native(phase Phase, op string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNativeFault,
		Detail: op,
		Cause:  cause,
		Signal: -1,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
		Signal: -1,
	}
}

// Load creates a model loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
		Signal: -1,
	}
}

// Closed creates an error for operations on a closed bridge or engine
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", component),
		Signal: -1,
	}
}
