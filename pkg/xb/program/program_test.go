package program

import (
	"testing"

	"github.com/sambeau/xbview/pkg/xb/lexer"
)

const sample = `100 REM BOUNCE
110 CALL CLEAR :: GOSUB 1000
120 FOR I=1 TO 10
130 CALL DRAW(I,I)
140 NEXT I
150 IF I>10 THEN 170 ELSE 999
160 GOTO 110
170 END

1000 SUB DRAW(X,Y)
1010 CALL HCHAR(X,Y,42)
1020 SUBEND
RUN
`

func TestParseLines(t *testing.T) {
	p := Parse(sample)

	if len(p.Lines) != 12 {
		t.Fatalf("expected 12 lines, got %d", len(p.Lines))
	}

	last := p.Lines[len(p.Lines)-1]
	if !last.IsImmediate() || last.Src != "RUN" {
		t.Errorf("expected immediate RUN line, got %d %q", last.Number, last.Src)
	}

	l, ok := p.Line(130)
	if !ok {
		t.Fatal("line 130 not found")
	}
	if l.Src != "CALL DRAW(I,I)" {
		t.Errorf("expected prefix stripped, got %q", l.Src)
	}
	if l.Instructions[0].Indent != 1 {
		t.Errorf("expected loop body indent 1, got %d", l.Instructions[0].Indent)
	}
}

func TestParseThreadsIndentation(t *testing.T) {
	p := Parse(sample)

	tests := []struct {
		line   int
		indent int
	}{
		{110, 0},
		{120, 1},
		{130, 1},
		{140, 0},
		{1000, 1},
		{1010, 1},
		{1020, 0},
	}

	for _, tt := range tests {
		l, ok := p.Line(tt.line)
		if !ok {
			t.Fatalf("line %d not found", tt.line)
		}
		if l.Indent != tt.indent {
			t.Errorf("line %d: expected outgoing indent %d, got %d", tt.line, tt.indent, l.Indent)
		}
	}
}

func TestCRLFAndBlankLines(t *testing.T) {
	p := Parse("10 PRINT 1\r\n\r\n   \r\n20 PRINT 2\r\n")
	if len(p.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(p.Lines))
	}
	if p.Lines[1].Number != 20 || p.Lines[1].Src != "PRINT 2" {
		t.Errorf("unexpected second line %d %q", p.Lines[1].Number, p.Lines[1].Src)
	}
}

func TestResolve(t *testing.T) {
	p := Parse(sample)

	tests := []struct {
		name  string
		token lexer.Token
		found bool
		line  int
	}{
		{"existing line", lexer.Token{Class: lexer.LineReference, TargetLine: 170}, true, 170},
		{"missing line", lexer.Token{Class: lexer.LineReference, TargetLine: 999}, false, 0},
		{"existing sub", lexer.Token{Class: lexer.SubReference, TargetSub: "DRAW"}, true, 1000},
		{"missing sub", lexer.Token{Class: lexer.SubReference, TargetSub: "NOPE"}, false, 0},
		{"not a reference", lexer.Token{Class: lexer.Number, Text: "170"}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := p.Resolve(tt.token)
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, ok)
			}
			if ok && l.Number != tt.line {
				t.Errorf("expected line %d, got %d", tt.line, l.Number)
			}
			if !ok && l != nil {
				t.Errorf("expected nil line, got %v", l)
			}
		})
	}
}

func TestResolveRepeatedIsStable(t *testing.T) {
	p := Parse(sample)
	tok := lexer.Token{Class: lexer.LineReference, TargetLine: 110}
	for i := 0; i < 3; i++ {
		l, ok := p.Resolve(tok)
		if !ok || l.Number != 110 {
			t.Fatalf("resolve %d: got %v %v", i, l, ok)
		}
	}
}

func TestDuplicateLineNumbers(t *testing.T) {
	p := Parse("10 PRINT 1\n10 PRINT 2\n20 GOTO 10\n")
	if len(p.Lines) != 3 {
		t.Fatalf("expected every occurrence kept, got %d lines", len(p.Lines))
	}
	l, _ := p.Line(10)
	if l.Src != "PRINT 2" {
		t.Errorf("expected the last occurrence to win, got %q", l.Src)
	}
}

func TestFirstSubDefinitionWins(t *testing.T) {
	p := Parse("10 SUB A\n20 SUBEND\n30 SUB A\n40 SUBEND\n")
	l, ok := p.Sub("A")
	if !ok || l.Number != 10 {
		t.Errorf("expected SUB A at 10, got %v", l)
	}
	if subs := p.Subs(); len(subs) != 1 || subs[0] != "A" {
		t.Errorf("expected one sub, got %v", subs)
	}
}

func TestReferencesTo(t *testing.T) {
	p := Parse(sample)

	refs := p.ReferencesTo(110)
	if len(refs) != 1 || refs[0].Number != 160 {
		t.Errorf("expected 110 referenced by 160, got %v", refs)
	}
	if refs := p.ReferencesTo(120); len(refs) != 0 {
		t.Errorf("expected no references to 120, got %v", refs)
	}
}

func TestDangling(t *testing.T) {
	p := Parse(sample)

	dangling := p.Dangling()
	if len(dangling) != 1 {
		t.Fatalf("expected 1 dangling reference, got %d: %v", len(dangling), dangling)
	}
	d := dangling[0]
	if d.From.Number != 150 || d.Token.TargetLine != 999 {
		t.Errorf("expected 150 -> 999, got %d -> %v", d.From.Number, d.Token)
	}
}

func TestStats(t *testing.T) {
	p := Parse(sample)
	s := p.Stats()

	if s.Lines != 12 {
		t.Errorf("expected 12 lines, got %d", s.Lines)
	}
	if s.Immediate != 1 {
		t.Errorf("expected 1 immediate line, got %d", s.Immediate)
	}
	if s.Subs != 1 {
		t.Errorf("expected 1 sub, got %d", s.Subs)
	}
	// GOSUB 1000, DRAW, 170, 999, 110
	if s.References != 5 {
		t.Errorf("expected 5 references, got %d", s.References)
	}
	if s.Tokens == 0 || s.Instructions < s.Lines {
		t.Errorf("implausible counts %+v", s)
	}
}

func TestParseEmpty(t *testing.T) {
	p := Parse("")
	if len(p.Lines) != 0 {
		t.Errorf("expected no lines, got %d", len(p.Lines))
	}
	if _, ok := p.Line(10); ok {
		t.Error("expected lookup on empty program to miss")
	}
	if d := p.Dangling(); len(d) != 0 {
		t.Errorf("expected no dangling references, got %v", d)
	}
}
