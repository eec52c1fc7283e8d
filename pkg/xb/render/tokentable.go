package render

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sambeau/xbview/pkg/xb/lexer"
)

var tokenClassStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)

// TokenTable renders the tokens of a line, one per row, with their class,
// text and reference target.
func TokenTable(line *lexer.Line) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("group", "class", "text", "target").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return hexHeaderStyle
			}
			if col == 1 {
				return tokenClassStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for i, in := range line.Instructions {
		for _, tok := range in.Tokens {
			target := ""
			switch tok.Class {
			case lexer.LineReference:
				target = strconv.Itoa(tok.TargetLine)
			case lexer.SubReference:
				target = tok.TargetSub
			}
			t.Row(strconv.Itoa(i), string(tok.Class), strconv.Quote(tok.Text), target)
		}
	}
	return t.String()
}
