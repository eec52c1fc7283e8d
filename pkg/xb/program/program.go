// Package program parses a whole Extended Basic listing into tokenized
// lines and answers navigation queries over the result.
//
// A Program is built once by Parse and never mutated afterwards, so its
// lookup methods are safe to call concurrently and in any order.
package program

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sambeau/xbview/pkg/xb/lexer"
)

var (
	lineBreaks   = regexp.MustCompile(`[\r\n]+`)
	numberPrefix = regexp.MustCompile(`^(\d+)\s+(.*)$`)
)

// Program is a parsed listing.
type Program struct {
	// Lines holds every line in document order, duplicates included.
	Lines []*lexer.Line

	byNumber map[int]*lexer.Line
	bySub    map[string]*lexer.Line
	backRefs map[int][]*lexer.Line
}

// Stats counts the parts of a program.
type Stats struct {
	Lines        int `json:"lines"`
	Immediate    int `json:"immediate"`
	Instructions int `json:"instructions"`
	Tokens       int `json:"tokens"`
	References   int `json:"references"`
	Subs         int `json:"subs"`
}

// Dangling is a reference whose target is not in the program.
type Dangling struct {
	From  *lexer.Line
	Token lexer.Token
}

// Parse tokenizes src line by line, threading block indentation from each
// line to the next. Blank lines are skipped. A line without a numeric
// prefix is an immediate command and is not entered in the line map. When
// a line number repeats, the last occurrence wins the lookup, as re-entering
// a line does in BASIC; every occurrence is kept in Lines.
func Parse(src string) *Program {
	p := &Program{
		byNumber: make(map[int]*lexer.Line),
		bySub:    make(map[string]*lexer.Line),
		backRefs: make(map[int][]*lexer.Line),
	}

	indent := 0
	for _, raw := range lineBreaks.Split(src, -1) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		var line *lexer.Line
		line, indent = ParseLine(raw, indent)
		p.Lines = append(p.Lines, line)

		if !line.IsImmediate() {
			p.byNumber[line.Number] = line
		}
		if line.Sub != "" {
			if _, ok := p.bySub[line.Sub]; !ok {
				p.bySub[line.Sub] = line
			}
		}
	}

	for _, line := range p.Lines {
		seen := make(map[int]bool)
		for _, ref := range line.References() {
			if ref.Class != lexer.LineReference || seen[ref.TargetLine] {
				continue
			}
			seen[ref.TargetLine] = true
			p.backRefs[ref.TargetLine] = append(p.backRefs[ref.TargetLine], line)
		}
	}

	return p
}

// ParseLine tokenizes one raw line, line number prefix included, starting
// at block depth indent. It returns the line and the depth for the next one.
func ParseLine(raw string, indent int) (*lexer.Line, int) {
	number, text := splitNumber(raw)
	return lexer.TokenizeLine(number, text, indent)
}

// splitNumber separates the line number prefix from the rest of the line.
func splitNumber(raw string) (int, string) {
	m := numberPrefix.FindStringSubmatch(raw)
	if m == nil {
		return lexer.Immediate, raw
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return lexer.Immediate, raw
	}
	return n, m[2]
}

// Line returns the line numbered n.
func (p *Program) Line(n int) (*lexer.Line, bool) {
	l, ok := p.byNumber[n]
	return l, ok
}

// Sub returns the line that declares subprogram name.
func (p *Program) Sub(name string) (*lexer.Line, bool) {
	l, ok := p.bySub[name]
	return l, ok
}

// Resolve returns the line a reference token points at. Tokens that are
// not references, and references to absent targets, resolve to nothing.
func (p *Program) Resolve(tok lexer.Token) (*lexer.Line, bool) {
	switch tok.Class {
	case lexer.LineReference:
		return p.Line(tok.TargetLine)
	case lexer.SubReference:
		return p.Sub(tok.TargetSub)
	}
	return nil, false
}

// ReferencesTo returns the lines that branch to line n, in document order.
func (p *Program) ReferencesTo(n int) []*lexer.Line {
	return p.backRefs[n]
}

// Dangling returns every reference whose target does not exist.
func (p *Program) Dangling() []Dangling {
	var out []Dangling
	for _, line := range p.Lines {
		for _, ref := range line.References() {
			if _, ok := p.Resolve(ref); !ok {
				out = append(out, Dangling{From: line, Token: ref})
			}
		}
	}
	return out
}

// Subs returns the declared subprogram names in declaration order.
func (p *Program) Subs() []string {
	var out []string
	for _, line := range p.Lines {
		if line.Sub != "" {
			if first, _ := p.Sub(line.Sub); first == line {
				out = append(out, line.Sub)
			}
		}
	}
	return out
}

// Stats counts lines, instruction groups, tokens and references.
func (p *Program) Stats() Stats {
	s := Stats{Lines: len(p.Lines), Subs: len(p.bySub)}
	for _, line := range p.Lines {
		if line.IsImmediate() {
			s.Immediate++
		}
		s.Instructions += len(line.Instructions)
		for _, in := range line.Instructions {
			s.Tokens += len(in.Tokens)
			for _, t := range in.Tokens {
				if t.IsReference() {
					s.References++
				}
			}
		}
	}
	return s
}
