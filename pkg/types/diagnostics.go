package types

import (
	"errors"
	"fmt"
	"strings"
)

// DiagnosticLevel represents the severity of a diagnostic.
type DiagnosticLevel string

const (
	// DiagnosticLevelError indicates a failure that blocks execution of the
	// construct that produced it.
	DiagnosticLevelError DiagnosticLevel = "error"

	// DiagnosticLevelWarning indicates a condition worth surfacing that does
	// not block execution.
	DiagnosticLevelWarning DiagnosticLevel = "warning"

	// DiagnosticLevelNote carries informational context attached to another
	// diagnostic.
	DiagnosticLevelNote DiagnosticLevel = "note"
)

// Diagnostic codes for programmatic handling.
const (
	DiagCodeParseError       = "PARSE_ERROR"
	DiagCodeDuplicate        = "DUPLICATE_CONSTRUCT"
	DiagCodeCycle            = "CYCLE_DETECTED"
	DiagCodeUnknownReference = "UNKNOWN_REFERENCE"
	DiagCodeMissingInput     = "MISSING_REQUIRED_INPUT"
	DiagCodeTypeMismatch     = "TYPE_MISMATCH"
	DiagCodeDependencyFailed = "DEPENDENCY_FAILED"
	DiagCodeExecutionFailed  = "EXECUTION_FAILED"
	DiagCodeFatal            = "FATAL"
)

// DiagnosticSpan locates a diagnostic in source text.
type DiagnosticSpan struct {
	// Location is the file the diagnostic points at.
	Location string `json:"location,omitempty"`

	// Line is the 1-based line number, 0 when unknown.
	Line uint `json:"line,omitempty"`

	// Column is the 1-based column number, 0 when unknown.
	Column uint `json:"column,omitempty"`
}

// Diagnostic is the uniform error and warning type carried through
// evaluation, execution, and the frontend event stream.
type Diagnostic struct {
	// Level is the severity.
	Level DiagnosticLevel `json:"level"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Code is an optional code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Span locates the diagnostic in source, when known.
	Span *DiagnosticSpan `json:"span,omitempty"`

	// ConstructDid identifies the construct the diagnostic belongs to.
	ConstructDid *ConstructDid `json:"construct_did,omitempty"`

	// Documentation links to remediation guidance.
	Documentation string `json:"documentation,omitempty"`

	// Err is the underlying error, when the diagnostic wraps one.
	Err error `json:"-"`
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", d.Level)
	if d.Code != "" {
		fmt.Fprintf(&sb, "[%s]", d.Code)
	}
	sb.WriteString(" ")
	sb.WriteString(d.Message)
	if d.Span != nil && d.Span.Location != "" {
		fmt.Fprintf(&sb, " (%s", d.Span.Location)
		if d.Span.Line > 0 {
			fmt.Fprintf(&sb, ":%d", d.Span.Line)
			if d.Span.Column > 0 {
				fmt.Fprintf(&sb, ":%d", d.Span.Column)
			}
		}
		sb.WriteString(")")
	}
	if d.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(d.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Is implements error equality for errors.Is: two diagnostics match when
// their level and code agree.
func (d *Diagnostic) Is(target error) bool {
	t, ok := target.(*Diagnostic)
	if !ok {
		return false
	}
	return d.Level == t.Level && d.Code == t.Code
}

// ErrorDiag creates an error-level diagnostic.
func ErrorDiag(message string) *Diagnostic {
	return &Diagnostic{Level: DiagnosticLevelError, Message: message}
}

// ErrorDiagf creates an error-level diagnostic with a formatted message.
func ErrorDiagf(format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Level: DiagnosticLevelError, Message: fmt.Sprintf(format, args...)}
}

// WarningDiag creates a warning-level diagnostic.
func WarningDiag(message string) *Diagnostic {
	return &Diagnostic{Level: DiagnosticLevelWarning, Message: message}
}

// NoteDiag creates a note-level diagnostic.
func NoteDiag(message string) *Diagnostic {
	return &Diagnostic{Level: DiagnosticLevelNote, Message: message}
}

// FromError wraps an error into an error-level diagnostic.
func FromError(err error) *Diagnostic {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d
	}
	return &Diagnostic{Level: DiagnosticLevelError, Message: err.Error(), Err: err}
}

// WithCode adds a code to the diagnostic.
func (d *Diagnostic) WithCode(code string) *Diagnostic {
	d.Code = code
	return d
}

// WithSpan attaches a source location to the diagnostic.
func (d *Diagnostic) WithSpan(location string, line, column uint) *Diagnostic {
	d.Span = &DiagnosticSpan{Location: location, Line: line, Column: column}
	return d
}

// WithConstruct attaches the owning construct to the diagnostic.
func (d *Diagnostic) WithConstruct(did ConstructDid) *Diagnostic {
	d.ConstructDid = &did
	return d
}

// WithDocumentation links remediation guidance to the diagnostic.
func (d *Diagnostic) WithDocumentation(url string) *Diagnostic {
	d.Documentation = url
	return d
}

// WithError records the underlying error.
func (d *Diagnostic) WithError(err error) *Diagnostic {
	d.Err = err
	return d
}

// IsError reports whether the diagnostic is error-level.
func (d *Diagnostic) IsError() bool {
	return d.Level == DiagnosticLevelError
}

// HasErrors reports whether any diagnostic in the slice is error-level.
func HasErrors(diags []*Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}
