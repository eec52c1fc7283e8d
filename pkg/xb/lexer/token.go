// Package lexer tokenizes TI-99/4A Extended Basic one line at a time.
//
// This is not a grammar parser. Each line is scanned once, left to right,
// to classify tokens for highlighting, split the line into instruction
// groups, compute block indentation and tag line-number and subprogram
// references for navigation. Malformed input never fails; it degrades to
// a best-effort classification.
package lexer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Immediate is the line number given to lines without a numeric prefix.
const Immediate = -1

// Class is the classification of a token. Its value doubles as the CSS
// class a render host applies.
type Class string

const (
	Keyword       Class = "keyword"
	Comment       Class = "comment"
	String        Class = "string"
	Number        Class = "number"
	Hex           Class = "hex"
	Operator      Class = "operator"
	Separator     Class = "separator"
	Identifier    Class = "token"
	LineReference Class = "line-number-reference"
	SubReference  Class = "sub-reference"
)

// Token is a classified piece of a line.
type Token struct {
	Text  string `json:"text"`
	Class Class  `json:"class"`
	// TargetLine is set on LineReference tokens.
	TargetLine int `json:"target_line,omitempty"`
	// TargetSub is set on SubReference tokens.
	TargetSub string `json:"target_sub,omitempty"`
}

// MarshalJSON writes target_line on every line reference, including
// references to line 0, and omits it on all other tokens.
func (t Token) MarshalJSON() ([]byte, error) {
	type plain Token
	out := struct {
		plain
		TargetLine *int `json:"target_line,omitempty"`
	}{plain: plain(t)}
	if t.Class == LineReference {
		out.TargetLine = &t.TargetLine
	}
	return json.Marshal(out)
}

// IsReference reports whether the token points at another line.
func (t Token) IsReference() bool {
	return t.Class == LineReference || t.Class == SubReference
}

// CSSClass returns the full class attribute for the token. References keep
// their base class so they are styled like numbers and identifiers.
func (t Token) CSSClass() string {
	switch t.Class {
	case LineReference:
		return string(Number) + " " + string(LineReference)
	case SubReference:
		return string(Identifier) + " " + string(SubReference)
	}
	return string(t.Class)
}

// String returns a debug representation of the token.
func (t Token) String() string {
	switch t.Class {
	case LineReference:
		return fmt.Sprintf("{%s %q -> %d}", t.Class, t.Text, t.TargetLine)
	case SubReference:
		return fmt.Sprintf("{%s %q -> %s}", t.Class, t.Text, t.TargetSub)
	}
	return fmt.Sprintf("{%s %q}", t.Class, t.Text)
}

// Join says how an instruction group connects to the next one.
type Join int

const (
	// JoinEnd closes the last group of a line.
	JoinEnd Join = iota
	// JoinStatement is an explicit :: separator; renderers show it.
	JoinStatement
	// JoinBranch follows THEN or ELSE, and precedes ELSE; renderers start
	// a new visual line without the :: marker.
	JoinBranch
)

func (j Join) String() string {
	switch j {
	case JoinStatement:
		return "statement"
	case JoinBranch:
		return "branch"
	}
	return "end"
}

// MarshalText lets Join appear by name in JSON.
func (j Join) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

// Instruction is one rendered group of tokens within a line.
type Instruction struct {
	Tokens []Token `json:"tokens"`
	// Indent is the nesting depth of the group, never negative.
	Indent int `json:"indent"`
	// Source is the raw text covered by Tokens.
	Source string `json:"source"`
	// Separator is the raw :: text ending the group, if any.
	Separator string `json:"separator,omitempty"`
	Join      Join   `json:"join"`
}

// Line is one tokenized line of source.
type Line struct {
	// Number is the line number, or Immediate.
	Number int `json:"number"`
	// Src is the text after the line number prefix.
	Src          string        `json:"src"`
	Instructions []Instruction `json:"instructions"`
	// Indent is the block depth after the line; the next line starts there.
	// It is not clamped and can go negative on unbalanced input.
	Indent int `json:"indent"`
	// Sub is the subprogram name declared on this line by SUB.
	Sub string `json:"sub,omitempty"`
}

// IsImmediate reports whether the line had no line number.
func (l *Line) IsImmediate() bool {
	return l.Number == Immediate
}

// Label returns the line number as text, or ">" for immediate lines.
func (l *Line) Label() string {
	if l.IsImmediate() {
		return ">"
	}
	return fmt.Sprintf("%d", l.Number)
}

// Sources returns the source text of each instruction group.
func (l *Line) Sources() []string {
	out := make([]string, 0, len(l.Instructions))
	for _, in := range l.Instructions {
		if s := strings.TrimSpace(in.Source); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Text reconstructs the raw line text from its groups.
func (l *Line) Text() string {
	var sb strings.Builder
	for _, in := range l.Instructions {
		sb.WriteString(in.Source)
		sb.WriteString(in.Separator)
	}
	return sb.String()
}

// Tokens returns every token of the line in order.
func (l *Line) Tokens() []Token {
	var out []Token
	for _, in := range l.Instructions {
		out = append(out, in.Tokens...)
	}
	return out
}

// References returns the reference tokens of the line.
func (l *Line) References() []Token {
	var out []Token
	for _, in := range l.Instructions {
		for _, t := range in.Tokens {
			if t.IsReference() {
				out = append(out, t)
			}
		}
	}
	return out
}
