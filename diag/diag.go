// Package diag provides the diagnostic model shared by the parser, SPIR-V
// reflector, and interface linker.
//
// Diagnostics are modeled as plain records rather than Go errors that
// unwind a call stack (spec §9, "model diagnostics as records rather than
// exceptions"): callers accumulate them in a Bag and inspect it at
// convenient boundaries, the same shape naga's wgsl.SourceErrors uses for
// its own accumulated parse errors.
package diag

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/gogpu/mslc/token"
)

// Level is the severity of a Diagnostic.
type Level uint8

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is a single compiler message keyed to a source location.
// Continued messages are emitted immediately after the primary message
// they annotate (e.g. "see other declaration of X") and are never shown
// without their primary.
type Diagnostic struct {
	Level     Level
	Origin    token.Origin
	Continued bool
	Text      string
}

// Error implements the error interface so a Diagnostic can be wrapped by
// multierr and by fmt.Errorf's %w.
func (d Diagnostic) Error() string {
	if d.Origin.FileName == "" {
		return d.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", d.Origin.FileName, d.Origin.Line, d.Origin.Column, d.Text)
}

// Bag accumulates diagnostics in emission order across independent scans
// (per-element classification, per-stage linking, ...). It keeps the
// records in an ordered slice, which Merge appends from, and mirrors each
// one into a go.uber.org/multierr error returned by Err.
type Bag struct {
	err error
	msgs []Diagnostic
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.msgs = append(b.msgs, d)
	b.err = multierr.Append(b.err, d)
}

// Addf appends a formatted Error-level diagnostic at origin.
func (b *Bag) Addf(origin token.Origin, format string, args ...any) {
	b.Add(Diagnostic{Level: Error, Origin: origin, Text: fmt.Sprintf(format, args...)})
}

// Continuedf appends a formatted Error-level continuation diagnostic,
// flagged so renderers know it annotates the immediately preceding
// message rather than standing alone.
func (b *Bag) Continuedf(origin token.Origin, format string, args ...any) {
	b.Add(Diagnostic{Level: Error, Origin: origin, Continued: true, Text: fmt.Sprintf(format, args...)})
}

// Merge appends all diagnostics from other, preserving order.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for _, d := range other.msgs {
		b.Add(d)
	}
}

// Messages returns the accumulated diagnostics in emission order.
func (b *Bag) Messages() []Diagnostic {
	return b.msgs
}

// HasErrors reports whether any Error-level diagnostic was recorded.
func (b *Bag) HasErrors() bool {
	for _, m := range b.msgs {
		if m.Level == Error {
			return true
		}
	}
	return false
}

// Err returns the accumulated diagnostics as a single multierr-joined
// error, or nil if none were recorded. Useful for callers that just want
// an idiomatic Go error rather than structured records.
func (b *Bag) Err() error {
	return b.err
}

// Len returns the number of accumulated diagnostics.
func (b *Bag) Len() int {
	return len(b.msgs)
}
