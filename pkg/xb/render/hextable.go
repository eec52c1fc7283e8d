package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sambeau/xbview/pkg/xb/hexview"
)

var (
	hexHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8")).Padding(0, 1)
	hexBitsStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Padding(0, 1)
	hexByteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Padding(0, 1)
	hexValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Padding(0, 1).Align(lipgloss.Right)
)

// Bit glyphs. A nibble row uses double-width cells so it lines up with a
// full byte.
const (
	bitOn  = "█"
	bitOff = "·"
)

// HexTable renders byte rows as a terminal table of bit cells, hex and
// decimal columns.
func HexTable(rows []hexview.ByteRow) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("bits", "hex", "dec").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return hexHeaderStyle
			}
			switch col {
			case 0:
				return hexBitsStyle
			case 1:
				return hexByteStyle
			}
			return hexValueStyle
		})

	for _, r := range rows {
		t.Row(bitCells(r), r.Hex, strconv.Itoa(r.Value))
	}
	return t.String()
}

func bitCells(r hexview.ByteRow) string {
	width := 1
	if r.IsNibble() {
		width = 2
	}
	var sb strings.Builder
	for _, on := range r.Bits {
		glyph := bitOff
		if on {
			glyph = bitOn
		}
		sb.WriteString(strings.Repeat(glyph, width))
	}
	return sb.String()
}
