package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sambeau/xbview/pkg/xb/lexer"
	"github.com/sambeau/xbview/pkg/xb/program"
)

// Document is the JSON form of a parsed program: the line, instruction
// and token tree plus the subprogram table.
type Document struct {
	Name  string         `json:"name,omitempty"`
	Lines []*lexer.Line  `json:"lines"`
	Subs  map[string]int `json:"subs"`
	Stats program.Stats  `json:"stats"`
}

// NewDocument builds the JSON form of p.
func NewDocument(name string, p *program.Program) Document {
	doc := Document{
		Name:  name,
		Lines: p.Lines,
		Subs:  make(map[string]int),
		Stats: p.Stats(),
	}
	if doc.Lines == nil {
		doc.Lines = []*lexer.Line{}
	}
	for _, sub := range p.Subs() {
		if l, ok := p.Sub(sub); ok {
			doc.Subs[sub] = l.Number
		}
	}
	return doc
}

// JSON writes the indented JSON form of p to w.
func JSON(w io.Writer, name string, p *program.Program) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(name, p)); err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}
	return nil
}
