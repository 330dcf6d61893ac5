// Package ccerr implements the ErrorSink collaborator threaded through
// every pipeline stage (spec.md §2, §7): an append-only, ordered list of
// diagnostics with a sticky error flag the driver polls between stages.
package ccerr

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ccc-lang/ccc/pkg/token"
)

// Level is a diagnostic's severity.
type Level int

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
	default:
		return "error"
	}
}

// Diagnostic is one reported message, attributed to a source position.
type Diagnostic struct {
	Level    Level
	Message  string
	Filename string
	Line     int
	Column   int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Filename, d.Line, d.Column, d.Level, d.Message)
}

// Sink accumulates diagnostics across all stages and tracks whether any
// error-level diagnostic has been reported. It is never read concurrently
// (spec.md §5): one sink per compilation, passed by pointer.
type Sink struct {
	diagnostics []Diagnostic
	hasErrors   bool
}

// New returns an empty sink.
func New() *Sink { return &Sink{} }

func (s *Sink) add(level Level, tok token.Token, format string, args ...interface{}) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Level:    level,
		Message:  fmt.Sprintf(format, args...),
		Filename: tok.Filename,
		Line:     tok.Line,
		Column:   tok.Column,
	})
	if level == Error {
		s.hasErrors = true
	}
}

// Info records an info-level diagnostic.
func (s *Sink) Info(tok token.Token, format string, args ...interface{}) {
	s.add(Info, tok, format, args...)
}

// Warn records a warning-level diagnostic.
func (s *Sink) Warn(tok token.Token, format string, args ...interface{}) {
	s.add(Warning, tok, format, args...)
}

// Error records an error-level diagnostic and sets the sticky error flag.
func (s *Sink) Error(tok token.Token, format string, args ...interface{}) {
	s.add(Error, tok, format, args...)
}

// HasErrors reports whether any error-level diagnostic has been recorded.
// The driver polls this between stages (spec.md §2) and aborts the
// pipeline once it is true.
func (s *Sink) HasErrors() bool { return s.hasErrors }

// ErrorCount returns the number of error-level diagnostics.
func (s *Sink) ErrorCount() int { return s.count(Error) }

// WarningCount returns the number of warning-level diagnostics.
func (s *Sink) WarningCount() int { return s.count(Warning) }

func (s *Sink) count(level Level) int {
	n := 0
	for _, d := range s.diagnostics {
		if d.Level == level {
			n++
		}
	}
	return n
}

// Diagnostics returns the accumulated diagnostics in insertion order.
func (s *Sink) Diagnostics() []Diagnostic { return s.diagnostics }

// Print writes every diagnostic to w, one per line, in insertion order
// (spec.md §7's diagnostic format), colorizing the severity keyword when
// w looks like a terminal.
func (s *Sink) Print(w io.Writer) {
	color := isTerminal(w)
	for _, d := range s.diagnostics {
		if color {
			fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", d.Filename, d.Line, d.Column, colorize(d.Level), d.Message)
			continue
		}
		fmt.Fprintln(w, d.String())
	}
}

func colorize(level Level) string {
	switch level {
	case Info:
		return "\033[36minfo\033[0m"
	case Warning:
		return "\033[33mwarning\033[0m"
	default:
		return "\033[31merror\033[0m"
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
