package render

import (
	"strings"
)

// IndentString is written once per nesting level in text output.
const IndentString = "\t"

// printer manages output and indentation state for the text renderers.
type printer struct {
	output  strings.Builder
	indent  int
	linePos int // bytes written since the last newline
}

func newPrinter() *printer {
	return &printer{}
}

// String returns the output so far
func (p *printer) String() string {
	return p.output.String()
}

// write appends s and updates the line position
func (p *printer) write(s string) {
	p.output.WriteString(s)
	if idx := strings.LastIndex(s, "\n"); idx >= 0 {
		p.linePos = len(s) - idx - 1
	} else {
		p.linePos += len(s)
	}
}

// writeln appends s followed by a newline
func (p *printer) writeln(s string) {
	p.write(s)
	p.newline()
}

func (p *printer) newline() {
	p.output.WriteString("\n")
	p.linePos = 0
}

// writeIndent writes the current indentation
func (p *printer) writeIndent() {
	p.write(strings.Repeat(IndentString, p.indent))
}

// setIndent sets the nesting level. Negative levels print as zero.
func (p *printer) setIndent(n int) {
	p.indent = max(n, 0)
}

// pad writes spaces until the line is at least width bytes long.
func (p *printer) pad(width int) {
	if n := width - p.linePos; n > 0 {
		p.write(strings.Repeat(" ", n))
	}
}
