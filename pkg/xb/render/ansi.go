package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/sambeau/xbview/pkg/xb/lexer"
	"github.com/sambeau/xbview/pkg/xb/program"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "monokai"

// DefaultFormatter is the chroma terminal formatter used for ANSI output.
const DefaultFormatter = "terminal256"

// chromaTypes maps token classes onto chroma token types so any chroma
// style can colour a listing.
var chromaTypes = map[lexer.Class]chroma.TokenType{
	lexer.Keyword:       chroma.Keyword,
	lexer.Comment:       chroma.Comment,
	lexer.String:        chroma.LiteralString,
	lexer.Number:        chroma.LiteralNumber,
	lexer.Hex:           chroma.LiteralNumberHex,
	lexer.Operator:      chroma.Operator,
	lexer.Separator:     chroma.Punctuation,
	lexer.Identifier:    chroma.Name,
	lexer.LineReference: chroma.NameLabel,
	lexer.SubReference:  chroma.NameFunction,
}

// chromaTokens lays lines out like Text and returns the result as a
// chroma token stream.
func chromaTokens(lines []*lexer.Line) []chroma.Token {
	rows, gutter := layout(lines)
	var out []chroma.Token
	for _, r := range rows {
		if n := gutter - len(r.label); n > 0 {
			out = append(out, chroma.Token{Type: chroma.Text, Value: strings.Repeat(" ", n)})
		}
		if r.label != "" {
			out = append(out, chroma.Token{Type: chroma.LineNumbers, Value: r.label})
		}
		out = append(out, chroma.Token{Type: chroma.Text, Value: " " + strings.Repeat(IndentString, max(r.indent, 0))})
		for _, t := range r.tokens {
			typ := chromaTypes[t.Class]
			if isBlank(t) {
				typ = chroma.Text
			}
			out = append(out, chroma.Token{Type: typ, Value: tokenText(t)})
		}
		if r.more {
			out = append(out, chroma.Token{Type: chroma.Punctuation, Value: " ::"})
		}
		out = append(out, chroma.Token{Type: chroma.Text, Value: "\n"})
	}
	return out
}

// ANSI writes a program laid out like Text, coloured for a terminal with
// the named chroma style. Unknown style names fall back to chroma's default.
func ANSI(w io.Writer, p *program.Program, style string) error {
	return ANSILines(w, p.Lines, style)
}

// ANSILines is ANSI for lines tokenized outside a Program.
func ANSILines(w io.Writer, lines []*lexer.Line, style string) error {
	if style == "" {
		style = DefaultStyle
	}
	f := formatters.Get(DefaultFormatter)
	if err := f.Format(w, styles.Get(style), chroma.Literator(chromaTokens(lines)...)); err != nil {
		return fmt.Errorf("formatting listing: %w", err)
	}
	return nil
}

// Styles returns the names of the available chroma styles.
func Styles() []string {
	return styles.Names()
}
