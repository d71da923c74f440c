package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes UI components to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer. If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	h := NewHeader(title, command, params...)
	h.Width = p.width
	p.Println(h.Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	r := NewSuccessResult(title, details...)
	r.Width = p.width
	p.Println(r.Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Param) {
	r := NewWarningResult(title, details...)
	r.Width = p.width
	p.Println(r.Render())
}

// PrintFailure prints a failure result box with troubleshooting tips
func (p *Printer) PrintFailure(title string, err error, troubleshooting []string) {
	r := NewFailureResult(title, err, troubleshooting)
	r.Width = p.width
	p.Println(r.Render())
}

var stdout = NewPrinter(nil)

// PrintHeader prints a header to stdout
func PrintHeader(title, command string, params ...Param) {
	stdout.PrintHeader(title, command, params...)
}

// PrintSuccess prints a success box to stdout
func PrintSuccess(title string, details ...Param) {
	stdout.PrintSuccess(title, details...)
}

// PrintWarning prints a warning box to stdout
func PrintWarning(title string, details ...Param) {
	stdout.PrintWarning(title, details...)
}

// PrintFailure prints a failure box to stdout
func PrintFailure(title string, err error, troubleshooting []string) {
	stdout.PrintFailure(title, err, troubleshooting)
}
