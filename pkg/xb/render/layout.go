package render

import (
	"strings"

	"github.com/sambeau/xbview/pkg/xb/lexer"
)

// row is one visual line of a laid-out listing: a single instruction group.
type row struct {
	label  string // line label, empty on continuation rows
	indent int
	tokens []lexer.Token
	more   bool // a :: statement join follows
}

// layout flattens lines into rows, one per instruction group, and
// returns the width of the widest line label.
func layout(lines []*lexer.Line) ([]row, int) {
	var rows []row
	gutter := 0
	for _, line := range lines {
		label := line.Label()
		gutter = max(gutter, len(label))
		if len(line.Instructions) == 0 {
			rows = append(rows, row{label: label})
			continue
		}
		for i, in := range line.Instructions {
			r := row{
				indent: in.Indent,
				tokens: trimBlank(in.Tokens),
				more:   in.Join == lexer.JoinStatement,
			}
			if i == 0 {
				r.label = label
			}
			rows = append(rows, r)
		}
	}
	return rows, gutter
}

// trimBlank drops whitespace separators at either end of a group.
func trimBlank(tokens []lexer.Token) []lexer.Token {
	start, end := 0, len(tokens)
	for start < end && isBlank(tokens[start]) {
		start++
	}
	for end > start && isBlank(tokens[end-1]) {
		end--
	}
	return tokens[start:end]
}

func isBlank(t lexer.Token) bool {
	return t.Class == lexer.Separator && strings.TrimSpace(t.Text) == ""
}
