// Package ui prints build status lines in the style of classic build tools:
// a right-aligned colored action verb followed by a message.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Printer writes status and diagnostic lines to a single output stream.
type Printer struct {
	out     io.Writer
	verbose bool

	status *color.Color
	warn   *color.Color
}

// New returns a Printer writing to w. Verbose-only lines are dropped unless
// verbose is set.
func New(w io.Writer, verbose bool) *Printer {
	return &Printer{
		out:     w,
		verbose: verbose,
		status:  color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
	}
}

// Default returns a Printer writing to stderr.
func Default(verbose bool) *Printer {
	return New(os.Stderr, verbose)
}

// Status prints an action line, e.g. "  Installing pkg-config file".
func (p *Printer) Status(action, msg string) {
	fmt.Fprintf(p.out, "%s %s\n", p.status.Sprintf("%12s", action), msg)
}

// Verbose prints an action line only when verbose output is enabled.
func (p *Printer) Verbose(action, msg string) {
	if p.verbose {
		p.Status(action, msg)
	}
}

// Warnf prints a warning line.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.warn.Sprintf("%12s", "warning:"), fmt.Sprintf(format, args...))
}
