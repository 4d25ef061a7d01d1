// Package diag holds the diagnostic types shared by the emission engine.
//
// Diagnostics are pushed into a Collector rather than raised as control
// flow: a fatal error stops emission for the affected function only, and
// the driver is responsible for formatting and surfacing the aggregate.
package diag

import "fmt"

// Stage identifies which compiler phase produced the diagnostic.
type Stage string

const (
	StageLexer    Stage = "lexer"
	StageParser   Stage = "parser"
	StageChecker  Stage = "checker"
	StageCodegen  Stage = "codegen"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Type-checker invariant failures: an AST shape the checker must have
	// rejected. These are compiler-internal, not user errors.
	CodeCheckerInvariant Code = "CODEGEN_CHECKER_INVARIANT"
	// A legal AST node whose code path is not implemented.
	CodeUnsupportedConstruct Code = "CODEGEN_UNSUPPORTED_CONSTRUCT"
	// @extern symbol without a matching @link; does not stop emission.
	CodeMissingLink Code = "CODEGEN_MISSING_LINK"
	// An unsupported type variant reached the mangler or type lowerer.
	CodeUnsupportedType Code = "CODEGEN_UNSUPPORTED_TYPE"
)

// Span represents a location in source code.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// IsValid reports whether the span carries real position information.
func (s Span) IsValid() bool {
	return s.Filename != "" || s.Line != 0
}

func (s Span) String() string {
	if s.Filename == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
}

// Diagnostic is a compiler diagnostic surfaced to end-users.
//
// Every diagnostic carries (code, span, one-line message, optional hint) as
// required by the error handling contract; the driver formats these into
// terminal output or JSON.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Code     Code
	Message  string
	Span     Span
	Hint     string
}

func (d Diagnostic) String() string {
	if d.Hint != "" {
		return fmt.Sprintf("%s[%s] %s: %s (hint: %s)", d.Severity, d.Code, d.Span, d.Message, d.Hint)
	}
	return fmt.Sprintf("%s[%s] %s: %s", d.Severity, d.Code, d.Span, d.Message)
}

// Fatal reports whether this diagnostic should stop emission of the
// function currently in progress.
func (d Diagnostic) Fatal() bool {
	return d.Severity == SeverityError
}
