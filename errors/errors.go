package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseInit     Phase = "init"     // handle cache and interpreter startup
	PhaseEncode   Phase = "encode"   // Go to foreign
	PhaseDecode   Phase = "decode"   // foreign to Go
	PhaseDispatch Phase = "dispatch" // conversion path selection
	PhaseCursor   Phase = "cursor"   // array cursor operations
	PhaseInvoke   Phase = "invoke"   // foreign function calls
	PhaseBridge   Phase = "bridge"   // exception translation itself
	PhaseHeap     Phase = "heap"     // interpreter heap and linear memory
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch    Kind = "type_mismatch"
	KindOverflow        Kind = "overflow"
	KindState           Kind = "state"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindUnsupportedKind Kind = "unsupported_kind"
	KindForeign         Kind = "foreign"
	KindFatal           Kind = "fatal"
	KindAllocation      Kind = "allocation"
	KindNotFound        Kind = "not_found"
	KindNotInitialized  Kind = "not_initialized"
	KindInvalidInput    Kind = "invalid_input"
)

// Frame is one entry of a merged foreign and host stack trace.
type Frame struct {
	Module   string // foreign: file path without extension; host: package path
	Function string
	File     string // base name
	Line     int
	Foreign  bool
}

func (f Frame) String() string {
	return fmt.Sprintf("%s.%s(%s:%d)", f.Module, f.Function, f.File, f.Line)
}

// Error is the structured error type used throughout the bridge
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	GoType      string
	ForeignType string
	Detail      string
	Path        []string
	Trace       []Frame
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.ForeignType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ForeignType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", foreign type ")
			b.WriteString(e.ForeignType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("foreign type ")
			b.WriteString(e.ForeignType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ForeignType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Message returns "<type>: <message>" for translated foreign errors and the
// detail for everything else.
func (e *Error) Message() string {
	if e.ForeignType != "" && e.GoType == "" {
		return e.ForeignType + ": " + e.Detail
	}
	return e.Detail
}

// StackTrace formats the merged trace one frame per line.
func (e *Error) StackTrace() string {
	var b strings.Builder
	for _, f := range e.Trace {
		b.WriteString("\tat ")
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Kind sentinels for errors.Is checks that do not care about the phase.
var (
	ErrTypeMismatch    = &Error{Kind: KindTypeMismatch}
	ErrOverflow        = &Error{Kind: KindOverflow}
	ErrState           = &Error{Kind: KindState}
	ErrOutOfBounds     = &Error{Kind: KindOutOfBounds}
	ErrUnsupportedKind = &Error{Kind: KindUnsupportedKind}
	ErrForeign         = &Error{Kind: KindForeign}
	ErrFatal           = &Error{Kind: KindFatal}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ForeignType sets the foreign type name
func (b *Builder) ForeignType(t string) *Builder {
	b.err.ForeignType = t
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

// Trace sets the merged stack trace
func (b *Builder) Trace(frames []Frame) *Builder {
	b.err.Trace = frames
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

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, foreignType string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindTypeMismatch,
		Path:        path,
		GoType:      goType,
		ForeignType: foreignType,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// State creates an error for an operation invalid in the current state
func State(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindState,
		Detail: detail,
	}
}

// UnsupportedKind creates an error for an element kind outside the supported set
func UnsupportedKind(phase Phase, kind string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedKind,
		Value:  kind,
		Detail: "Unknown type",
	}
}

// Foreign creates a translated foreign runtime error
func Foreign(phase Phase, kind Kind, typeName, message string, trace []Frame) *Error {
	return &Error{
		Phase:       phase,
		Kind:        kind,
		ForeignType: typeName,
		Detail:      message,
		Trace:       trace,
	}
}

// Fatal creates an unrecoverable bridge error
func Fatal(phase Phase, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFatal,
		Detail: detail,
		Cause:  cause,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}
