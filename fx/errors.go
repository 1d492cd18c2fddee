package fx

import (
	"fmt"
	"strings"
)

// Severity of a diagnostic.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is an error or warning with source location information.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     Span
	Source   string // Original source text (for context display)
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	if d.Span.Line == 0 {
		if d.Span.File == "" {
			return fmt.Sprintf("%s: %s", d.Severity, d.Message)
		}
		return fmt.Sprintf("%s: %s: %s", d.Span.File, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message)
}

// FormatWithContext returns the message with the offending source line and
// a caret under the reported column.
func (d *Diagnostic) FormatWithContext() string {
	if d.Source == "" || d.Span.Line == 0 {
		return d.Error()
	}

	lines := strings.Split(d.Source, "\n")
	lineNum := d.Span.Line
	if lineNum < 1 || lineNum > len(lines) {
		return d.Error()
	}

	line := strings.TrimRight(lines[lineNum-1], "\r")
	col := d.Span.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", d.Severity, d.Message)
	fmt.Fprintf(&sb, "  --> %s\n", d.Span)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))

	return sb.String()
}

// Diagnostics accumulates the diagnostics of one compilation.
type Diagnostics []*Diagnostic

// Error implements the error interface, summarizing the errors only.
func (dl Diagnostics) Error() string {
	errs := dl.Errors()
	if len(errs) == 0 {
		return "no errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", errs[0].Error(), len(errs)-1)
}

// Err returns the list as an error when it holds at least one error.
func (dl Diagnostics) Err() error {
	if !dl.HasErrors() {
		return nil
	}
	return dl
}

// FormatAll returns all diagnostics formatted with context.
func (dl Diagnostics) FormatAll() string {
	var sb strings.Builder
	for i, d := range dl {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.FormatWithContext())
	}
	return sb.String()
}

// Add appends a diagnostic.
func (dl *Diagnostics) Add(d *Diagnostic) {
	*dl = append(*dl, d)
}

// Errorf appends an error at span.
func (dl *Diagnostics) Errorf(span Span, format string, args ...interface{}) {
	dl.Add(&Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, args...), Span: span})
}

// Warningf appends a warning at span.
func (dl *Diagnostics) Warningf(span Span, format string, args ...interface{}) {
	dl.Add(&Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Span: span})
}

// Append adds every diagnostic of other.
func (dl *Diagnostics) Append(other Diagnostics) {
	*dl = append(*dl, other...)
}

// WithSource attaches source text for context display to diagnostics
// reported against file.
func (dl Diagnostics) WithSource(file, source string) {
	for _, d := range dl {
		if d.Span.File == file && d.Source == "" {
			d.Source = source
		}
	}
}

// HasErrors returns true if any diagnostic is an error.
func (dl Diagnostics) HasErrors() bool {
	for _, d := range dl {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the error diagnostics.
func (dl Diagnostics) Errors() Diagnostics {
	return dl.filter(SeverityError)
}

// Warnings returns the warning diagnostics.
func (dl Diagnostics) Warnings() Diagnostics {
	return dl.filter(SeverityWarning)
}

func (dl Diagnostics) filter(s Severity) Diagnostics {
	var out Diagnostics
	for _, d := range dl {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}
