package render

import (
	"html"
	"strconv"
	"strings"

	"github.com/sambeau/xbview/pkg/xb/lexer"
	"github.com/sambeau/xbview/pkg/xb/program"
)

// DefaultIndentEm is the left margin per nesting level in HTML output.
const DefaultIndentEm = 2.0

// Options controls HTML rendering.
type Options struct {
	// IndentEm is the margin per nesting level, in em. Zero means DefaultIndentEm.
	IndentEm float64
	// Anchors adds id="L<n>" to numbered lines so they can be linked to.
	Anchors bool
	// BackRefs adds a title listing the lines that branch to each line.
	BackRefs bool
}

func (o Options) indentEm() float64 {
	if o.IndentEm <= 0 {
		return DefaultIndentEm
	}
	return o.IndentEm
}

// Fragment renders a program as a tree of spans. Each line is a
// span.line holding a span.line-number and a span.instructions, which
// holds one span.instruction per group. Tokens are spans whose class is
// the token class; references carry data-line-ref or data-sub-ref so a
// host can wire navigation to them.
func Fragment(p *program.Program, opts Options) string {
	pr := newPrinter()
	for _, line := range p.Lines {
		writeLine(pr, p, line, opts)
		pr.newline()
	}
	return pr.String()
}

func writeLine(pr *printer, p *program.Program, line *lexer.Line, opts Options) {
	pr.write(`<span class="line"`)
	// Only the line a number or sub name resolves to carries it, so
	// anchors and navigation agree with Program.Line and Program.Sub.
	numbered := false
	if !line.IsImmediate() {
		target, _ := p.Line(line.Number)
		numbered = target == line
	}
	if numbered {
		if opts.Anchors {
			pr.write(` id="L` + strconv.Itoa(line.Number) + `"`)
		}
		pr.write(` data-line="` + strconv.Itoa(line.Number) + `"`)
	}
	if line.Sub != "" {
		if target, _ := p.Sub(line.Sub); target == line {
			pr.write(` data-sub="` + html.EscapeString(line.Sub) + `"`)
		}
	}
	if opts.BackRefs && numbered {
		if from := p.ReferencesTo(line.Number); len(from) > 0 {
			labels := make([]string, len(from))
			for i, l := range from {
				labels[i] = l.Label()
			}
			pr.write(` title="Referenced by ` + strings.Join(labels, ", ") + `"`)
		}
	}
	pr.write(`>`)

	pr.write(`<span class="line-number">` + html.EscapeString(line.Label()) + `</span>`)
	pr.write(`<span class="instructions">`)
	for _, in := range line.Instructions {
		writeInstruction(pr, in, opts)
	}
	pr.write(`</span></span>`)
}

func writeInstruction(pr *printer, in lexer.Instruction, opts Options) {
	class := "instruction"
	if in.Join == lexer.JoinBranch {
		class += " no-double-colon"
	}
	margin := float64(max(in.Indent, 0)) * opts.indentEm()
	pr.write(`<span class="` + class + `" style="margin-left:` +
		strconv.FormatFloat(margin, 'f', -1, 64) + `em">`)
	for _, t := range in.Tokens {
		writeToken(pr, t)
	}
	pr.write(`</span>`)
}

func writeToken(pr *printer, t lexer.Token) {
	pr.write(`<span class="` + t.CSSClass() + `"`)
	switch t.Class {
	case lexer.LineReference:
		pr.write(` data-line-ref="` + strconv.Itoa(t.TargetLine) + `"`)
	case lexer.SubReference:
		pr.write(` data-sub-ref="` + html.EscapeString(t.TargetSub) + `"`)
	}
	pr.write(`>` + html.EscapeString(t.Text) + `</span>`)
}

// Inline renders one line of code as bare token spans, for use inside
// running text.
func Inline(text string) string {
	line, _ := lexer.TokenizeLine(lexer.Immediate, text, 0)
	pr := newPrinter()
	for _, t := range line.Tokens() {
		writeToken(pr, t)
	}
	return pr.String()
}
