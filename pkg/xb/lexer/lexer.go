package lexer

import (
	"strings"
)

// boundary kinds, in tie-break priority order.
const (
	boundaryEnd = iota
	boundaryStatement
	boundaryQuote
	boundarySeparator
)

// scanner holds the transient state of one line's scan.
type scanner struct {
	line *Line
	rest string

	indent  int // block depth, carried across lines
	ifDepth int // IF nesting, reset with each line

	cur    *Instruction
	src    strings.Builder // raw text of cur
	groups []Instruction

	inString bool
	str      strings.Builder

	first           bool   // next token starts an instruction
	lastInstruction string // leading keyword of the current instruction
	lastToken       string
	inLineList      bool // inside ON ... GOTO/GOSUB targets
}

// TokenizeLine scans the text of one line (line number prefix already
// removed) starting at block depth indent. It returns the tokenized line
// and the block depth for the next line.
//
// TokenizeLine never fails: an unterminated string runs to the end of the
// line and unknown words become identifiers.
func TokenizeLine(number int, text string, indent int) (*Line, int) {
	s := &scanner{
		line:   &Line{Number: number, Src: text},
		rest:   text,
		indent: indent,
		groups: []Instruction{},
	}
	s.startInstruction(indent)
	s.run()
	s.line.Indent = s.indent
	return s.line, s.indent
}

func (s *scanner) run() {
	for s.rest != "" {
		if s.inString {
			s.scanString()
			continue
		}
		if !s.first && s.lastInstruction == kwRem {
			s.emitRaw(Token{Text: s.rest, Class: Comment}, s.rest)
			s.rest = ""
			break
		}
		s.scanToken()
	}
	if s.inString {
		s.closeString(false)
	}
	s.endInstruction(JoinEnd, "")
	s.line.Instructions = s.groups
}

// scanString consumes string content up to the next lone quote. A doubled
// quote is an escaped quote and stays inside the string.
func (s *scanner) scanString() {
	i := strings.IndexByte(s.rest, quoteChar)
	if i < 0 {
		s.str.WriteString(s.rest)
		s.src.WriteString(s.rest)
		s.rest = ""
		return
	}
	s.str.WriteString(s.rest[:i])
	if i+1 < len(s.rest) && s.rest[i+1] == quoteChar {
		s.str.WriteByte(quoteChar)
		s.src.WriteString(s.rest[:i+2])
		s.rest = s.rest[i+2:]
		return
	}
	s.src.WriteString(s.rest[:i])
	s.rest = s.rest[i+1:]
	s.closeString(true)
}

// closeString emits the pending string literal. Literals made only of hex
// digits are tagged Hex so they can be inspected as bytes.
func (s *scanner) closeString(terminated bool) {
	text := s.str.String()
	s.str.Reset()
	s.inString = false

	class := String
	if IsHex(text) {
		class = Hex
	}
	if text != "" || terminated {
		s.cur.Tokens = append(s.cur.Tokens, Token{Text: text, Class: class})
	}
	if terminated {
		s.emitRaw(Token{Text: `"`, Class: Separator}, `"`)
	}
}

// nextBoundary finds where the current token ends. The earliest boundary
// wins; ties go to the statement separator, then the quote.
func nextBoundary(rest string) (pos int, sep string, kind int) {
	pos, kind = len(rest), boundaryEnd
	if loc := statementSeparator.FindStringIndex(rest); loc != nil && loc[0] < pos {
		pos, kind, sep = loc[0], boundaryStatement, rest[loc[0]:loc[1]]
	}
	if q := strings.IndexByte(rest, quoteChar); q >= 0 && q < pos {
		pos, kind, sep = q, boundaryQuote, `"`
	}
	for i := 0; i < pos; i++ {
		if isSeparator(rest[i]) {
			return i, rest[i : i+1], boundarySeparator
		}
	}
	return pos, sep, kind
}

func (s *scanner) scanToken() {
	pos, sep, kind := nextBoundary(s.rest)
	word := s.rest[:pos]
	s.rest = s.rest[pos+len(sep):]

	if word != "" {
		s.word(word)
	}

	switch kind {
	case boundarySeparator:
		class := Separator
		if isOperator(sep[0]) {
			class = Operator
		}
		s.emitRaw(Token{Text: sep, Class: class}, sep)
	case boundaryQuote:
		s.emitRaw(Token{Text: sep, Class: Separator}, sep)
		s.inString = true
	case boundaryStatement:
		s.endInstruction(JoinStatement, sep)
		s.startInstruction(s.depth())
		s.lastInstruction = ""
	}

	if word == kwThen || word == kwElse {
		s.endInstruction(JoinBranch, "")
		s.lastInstruction = word
		s.startInstruction(s.depth())
	}
}

// word classifies a non-empty token and does the structural bookkeeping.
func (s *scanner) word(word string) {
	class := s.classify(word)

	if s.first {
		if class == Keyword {
			s.lastInstruction = word
		}
		switch word {
		case kwFor, kwSub:
			s.indent++
		case kwNext, kwSubEnd:
			s.indent--
			s.cur.Indent = clamp(s.depth())
		case kwIf:
			s.ifDepth++
		}
	}

	if word == kwElse {
		s.endInstruction(JoinBranch, "")
		s.startInstruction(s.depth() - 1)
	}

	if s.lastInstruction == kwOn && (word == kwGoto || word == kwGosub) {
		s.inLineList = true
	}

	tok := Token{Text: word, Class: class}
	if class == Number && (s.inLineList || (CanBranch(s.lastInstruction) && CanBranch(s.lastToken))) {
		if n, ok := leadingInt(word); ok {
			tok.Class = LineReference
			tok.TargetLine = n
		}
	}
	if class == Identifier && s.lastToken == kwCall {
		tok.Class = SubReference
		tok.TargetSub = word
	}
	if s.lastInstruction == kwSub && s.lastToken == kwSub {
		s.line.Sub = word
	}

	s.emitRaw(tok, word)
	s.first = false
	s.lastToken = word
}

// classify applies the classification chain. Keywords win; a name after
// CALL or SUB is never a number or hex literal.
func (s *scanner) classify(word string) Class {
	switch {
	case IsKeyword(word):
		return Keyword
	case s.lastToken == kwRem:
		return Comment
	case s.lastToken == kwCall || s.lastToken == kwSub:
		return Identifier
	case IsNumber(word):
		return Number
	case IsHex(word):
		return Hex
	}
	return Identifier
}

func (s *scanner) emitRaw(tok Token, raw string) {
	s.cur.Tokens = append(s.cur.Tokens, tok)
	s.src.WriteString(raw)
}

func (s *scanner) depth() int {
	return s.indent + s.ifDepth
}

// startInstruction opens a group at depth. An empty open group is reused.
func (s *scanner) startInstruction(depth int) {
	s.first = true
	s.inLineList = false
	if s.cur != nil && len(s.cur.Tokens) == 0 && s.cur.Separator == "" {
		s.cur.Indent = clamp(depth)
		return
	}
	s.cur = &Instruction{Indent: clamp(depth)}
}

// endInstruction closes the open group. Empty groups are dropped unless
// they carry a separator.
func (s *scanner) endInstruction(join Join, sep string) {
	if s.cur == nil {
		return
	}
	if len(s.cur.Tokens) == 0 && sep == "" {
		return
	}
	s.cur.Source = s.src.String()
	s.cur.Separator = sep
	s.cur.Join = join
	s.groups = append(s.groups, *s.cur)
	s.src.Reset()
	s.cur = &Instruction{Indent: s.cur.Indent}
}

// leadingInt parses the integer prefix of a numeric literal, the way a
// line number reference is read.
func leadingInt(s string) (int, bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	n := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	if i == start {
		return 0, false
	}
	if s[0] == '-' {
		n = -n
	}
	return n, true
}

func clamp(depth int) int {
	if depth < 0 {
		return 0
	}
	return depth
}
