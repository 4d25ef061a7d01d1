package diag

import "fmt"

// Collector accumulates diagnostics pushed during emission. It never panics
// or unwinds the call stack; callers consult HasErrors/Fatal after pushing
// to decide whether to abandon the function currently being emitted.
type Collector struct {
	diags []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Push records a diagnostic.
func (c *Collector) Push(d Diagnostic) {
	c.diags = append(c.diags, d)
}

// Errorf pushes a SeverityError diagnostic with the given code/span/message.
func (c *Collector) Errorf(stage Stage, code Code, span Span, format string, args ...any) {
	c.Push(Diagnostic{
		Stage:    stage,
		Severity: SeverityError,
		Code:     code,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Warnf pushes a SeverityWarning diagnostic; emission continues.
func (c *Collector) Warnf(stage Stage, code Code, span Span, format string, args ...any) {
	c.Push(Diagnostic{
		Stage:    stage,
		Severity: SeverityWarning,
		Code:     code,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any fatal diagnostic was pushed.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Fatal() {
			return true
		}
	}
	return false
}

// All returns every diagnostic pushed so far, in push order.
func (c *Collector) All() []Diagnostic {
	return c.diags
}

