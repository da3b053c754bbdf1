package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConstruct Phase = "construct" // type constructors
	PhaseCommit    Phase = "commit"    // segment list materialization
	PhaseFree      Phase = "free"      // reference release
	PhasePack      Phase = "pack"      // typed memory to linear bytes
	PhaseUnpack    Phase = "unpack"    // linear bytes to typed memory
	PhaseIOV       Phase = "iov"       // segment descriptor generation
	PhaseExternal  Phase = "external"  // canonical external32 codec
	PhaseFlatten   Phase = "flatten"   // portable descriptor encoding
	PhaseUnflatten Phase = "unflatten" // portable descriptor decoding
	PhaseConfig    Phase = "config"    // type catalog loading
	PhaseMemory    Phase = "memory"    // linear memory addressing
	PhaseEnvelope  Phase = "envelope"  // self-describing message framing
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidArgument       Kind = "invalid_argument"
	KindNotCommitted          Kind = "not_committed"
	KindInvalidOffset         Kind = "invalid_offset"
	KindOutOfMemory           Kind = "out_of_memory"
	KindUnsupportedConversion Kind = "unsupported_conversion"
	KindOverflow              Kind = "overflow"
	KindInvalidData           Kind = "invalid_data"
	KindNotFound              Kind = "not_found"
	KindOutOfBounds           Kind = "out_of_bounds"
)

// Sentinels for errors.Is checks that do not care about the phase.
var (
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrNotCommitted          = &Error{Kind: KindNotCommitted}
	ErrInvalidOffset         = &Error{Kind: KindInvalidOffset}
	ErrOutOfMemory           = &Error{Kind: KindOutOfMemory}
	ErrUnsupportedConversion = &Error{Kind: KindUnsupportedConversion}
	ErrOverflow              = &Error{Kind: KindOverflow}
	ErrInvalidData           = &Error{Kind: KindInvalidData}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrOutOfBounds           = &Error{Kind: KindOutOfBounds}
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
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

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
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

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

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

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the datatype description
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
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

// InvalidArgument creates a malformed-parameter error
func InvalidArgument(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Path:   path,
		Detail: detail,
	}
}

// NegativeArgument creates an error for a negative count or length
func NegativeArgument(phase Phase, path []string, value int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Path:   path,
		Detail: fmt.Sprintf("value %d must be non-negative", value),
		Value:  value,
	}
}

// LengthMismatch creates an error for parallel argument arrays of different lengths
func LengthMismatch(phase Phase, what string, got, want int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Path:   []string{what},
		Detail: fmt.Sprintf("length %d does not match count %d", got, want),
		Value:  got,
	}
}

// NotCommitted creates an error for a transfer on an uncommitted type
func NotCommitted(phase Phase, typeName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotCommitted,
		Type:   typeName,
		Detail: "datatype must be committed before transfer",
	}
}

// InvalidOffset creates an error for a resume offset outside the logical region
func InvalidOffset(phase Phase, offset, limit int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidOffset,
		Detail: fmt.Sprintf("offset %d outside region [0, %d]", offset, limit),
		Value:  offset,
	}
}

// OutOfMemory creates an allocation failure error
func OutOfMemory(phase Phase, size int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Value:  size,
	}
}

// UnsupportedConversion creates an error for an elementary kind without a canonical mapping
func UnsupportedConversion(phase Phase, typeName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedConversion,
		Type:   typeName,
		Detail: "no fixed-width canonical representation",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Type:   target,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
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

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, offset, length, limit int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) exceeds %d bytes", offset, offset+length, limit),
		Value:  offset,
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
