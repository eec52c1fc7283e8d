package render

import (
	"github.com/sambeau/xbview/pkg/xb/lexer"
	"github.com/sambeau/xbview/pkg/xb/program"
)

// Text prettifies a program as plain text. Each instruction group gets its
// own line, indented with tabs by nesting depth, behind a right-aligned
// line number gutter. Groups joined by :: keep the marker at the end of
// the line.
func Text(p *program.Program) string {
	rows, gutter := layout(p.Lines)
	pr := newPrinter()
	for _, r := range rows {
		pr.pad(gutter - len(r.label))
		pr.write(r.label)
		pr.write(" ")
		pr.setIndent(r.indent)
		pr.writeIndent()
		for _, t := range r.tokens {
			pr.write(tokenText(t))
		}
		if r.more {
			pr.write(" ::")
		}
		pr.newline()
	}
	return pr.String()
}

// tokenText returns the source form of a token. String literals are
// re-escaped so the output reads back as the same program.
func tokenText(t lexer.Token) string {
	if t.Class == lexer.String || t.Class == lexer.Hex {
		return escapeQuotes(t.Text)
	}
	return t.Text
}

func escapeQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, s[i])
	}
	return string(out)
}
