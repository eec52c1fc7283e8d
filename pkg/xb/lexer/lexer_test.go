package lexer

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTokenizeLineClasses(t *testing.T) {
	line, _ := TokenizeLine(100, `CALL HCHAR(12,3,42)`, 0)

	tests := []struct {
		expectedClass Class
		expectedText  string
	}{
		{Keyword, "CALL"},
		{Separator, " "},
		{Keyword, "HCHAR"},
		{Separator, "("},
		{Number, "12"},
		{Separator, ","},
		{Number, "3"},
		{Separator, ","},
		{Number, "42"},
		{Separator, ")"},
	}

	tokens := line.Tokens()
	if len(tokens) != len(tests) {
		t.Fatalf("expected %d tokens, got %d: %v", len(tests), len(tokens), tokens)
	}
	for i, tt := range tests {
		if tokens[i].Class != tt.expectedClass {
			t.Errorf("tokens[%d] - class wrong. expected=%q, got=%q", i, tt.expectedClass, tokens[i].Class)
		}
		if tokens[i].Text != tt.expectedText {
			t.Errorf("tokens[%d] - text wrong. expected=%q, got=%q", i, tt.expectedText, tokens[i].Text)
		}
	}
}

func TestOperatorsAndSeparators(t *testing.T) {
	line, _ := TokenizeLine(10, `LET A=B*2+C`, 0)
	var ops []string
	for _, tok := range line.Tokens() {
		if tok.Class == Operator {
			ops = append(ops, tok.Text)
		}
	}
	if strings.Join(ops, "") != "=*+" {
		t.Errorf("expected operators =*+, got %q", strings.Join(ops, ""))
	}
}

func TestReconstructsSourceText(t *testing.T) {
	inputs := []string{
		`FOR I=1 TO 10 STEP 2`,
		`CALL HCHAR(ROW,COL,32,  5)`,
		`LET X=(A+B)/C^2`,
		`PRINT A;B,C`,
		`X=1 :: Y=2::Z=3`,
		`IF X>5 THEN 200 ELSE 300`,
		`PRINT "HELLO, ""WORLD""";X`,
		`REM this :: is all a comment`,
		`ON K GOSUB 100,200,300`,
		`DISPLAY AT(3,5):"SCORE"`,
	}

	for _, input := range inputs {
		line, _ := TokenizeLine(10, input, 0)
		if got := line.Text(); got != input {
			t.Errorf("Text() for %q: got %q", input, got)
		}
	}
}

func TestSingleInstructionTokensConcatenate(t *testing.T) {
	input := `CALL COLOR(2,16,1)`
	line, _ := TokenizeLine(10, input, 0)
	if len(line.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(line.Instructions))
	}
	var sb strings.Builder
	for _, tok := range line.Instructions[0].Tokens {
		sb.WriteString(tok.Text)
	}
	if sb.String() != input {
		t.Errorf("expected %q, got %q", input, sb.String())
	}
}

func TestDoubledQuoteInString(t *testing.T) {
	line, _ := TokenizeLine(10, `PRINT "a""b"`, 0)

	var strs []Token
	for _, tok := range line.Tokens() {
		if tok.Class == String || tok.Class == Hex {
			strs = append(strs, tok)
		}
	}
	if len(strs) != 1 {
		t.Fatalf("expected 1 string token, got %d: %v", len(strs), strs)
	}
	if strs[0].Text != `a"b` {
		t.Errorf("expected string text %q, got %q", `a"b`, strs[0].Text)
	}
}

func TestUnterminatedString(t *testing.T) {
	line, out := TokenizeLine(10, `PRINT "abc`, 2)
	if out != 2 {
		t.Errorf("expected indentation 2, got %d", out)
	}

	tokens := line.Tokens()
	last := tokens[len(tokens)-1]
	if last.Text != "abc" {
		t.Errorf("expected last token %q, got %q", "abc", last.Text)
	}
	if last.Class != String && last.Class != Hex {
		t.Errorf("expected string or hex class, got %q", last.Class)
	}

	line, _ = TokenizeLine(10, `PRINT "HELLO WORLD`, 0)
	tokens = line.Tokens()
	last = tokens[len(tokens)-1]
	if last.Class != String || last.Text != "HELLO WORLD" {
		t.Errorf("expected string %q, got %v", "HELLO WORLD", last)
	}
}

func TestHexClassification(t *testing.T) {
	tests := []struct {
		input string
		text  string
		class Class
	}{
		{`DATA FF`, "FF", Hex},
		{`DATA 1F2E`, "1F2E", Hex},
		{`DATA F`, "F", Identifier},
		{`CALL CHAR(65,"FF818181818181FF")`, "FF818181818181FF", Hex},
		{`PRINT "HELLO"`, "HELLO", String},
		{`CALL BEEF`, "BEEF", SubReference},
		{`SUB CAFE`, "CAFE", Identifier},
	}

	for _, tt := range tests {
		line, _ := TokenizeLine(10, tt.input, 0)
		found := false
		for _, tok := range line.Tokens() {
			if tok.Text == tt.text {
				found = true
				if tok.Class != tt.class {
					t.Errorf("%q: expected %q to be %q, got %q", tt.input, tt.text, tt.class, tok.Class)
				}
			}
		}
		if !found {
			t.Errorf("%q: token %q not found", tt.input, tt.text)
		}
	}
}

func TestNumberPattern(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"123", true},
		{"-1.5", true},
		{"3.14E10", true},
		{".5", true},
		{"1E-3", true},
		{"1234567890", true},
		{"12345678901", false},
		{"1.2.3", false},
		{"ABC", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsNumber(tt.input); got != tt.expected {
			t.Errorf("IsNumber(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestElevenDigitsFallThroughToHex(t *testing.T) {
	line, _ := TokenizeLine(10, `PRINT 12345678901`, 0)
	tokens := line.Tokens()
	last := tokens[len(tokens)-1]
	if last.Class != Hex {
		t.Errorf("expected hex, got %q", last.Class)
	}
}

func TestForNextIndentation(t *testing.T) {
	first, indent := TokenizeLine(100, `FOR I=1 TO 10`, 0)
	if indent != 1 {
		t.Fatalf("expected indentation 1 after FOR, got %d", indent)
	}
	if first.Instructions[0].Indent != 0 {
		t.Errorf("FOR line should render at 0, got %d", first.Instructions[0].Indent)
	}

	body, indent := TokenizeLine(105, `PRINT I`, indent)
	if body.Instructions[0].Indent != 1 {
		t.Errorf("loop body should render at 1, got %d", body.Instructions[0].Indent)
	}

	next, indent := TokenizeLine(110, `NEXT I`, indent)
	if indent != 0 {
		t.Errorf("expected indentation 0 after NEXT, got %d", indent)
	}
	if next.Instructions[0].Indent != 0 {
		t.Errorf("NEXT should render at 0, got %d", next.Instructions[0].Indent)
	}
}

func TestSubIndentationAndName(t *testing.T) {
	line, indent := TokenizeLine(1000, `SUB DRAW(X,Y)`, 0)
	if indent != 1 {
		t.Errorf("expected indentation 1 after SUB, got %d", indent)
	}
	if line.Sub != "DRAW" {
		t.Errorf("expected sub name DRAW, got %q", line.Sub)
	}

	_, indent = TokenizeLine(1010, `SUBEND`, indent)
	if indent != 0 {
		t.Errorf("expected indentation 0 after SUBEND, got %d", indent)
	}
}

func TestStrayNextIsNotClamped(t *testing.T) {
	line, indent := TokenizeLine(10, `NEXT I`, 0)
	if indent != -1 {
		t.Errorf("expected outgoing indentation -1, got %d", indent)
	}
	if line.Instructions[0].Indent != 0 {
		t.Errorf("rendered indentation should never be negative, got %d", line.Instructions[0].Indent)
	}
}

func TestIfThenElseReferences(t *testing.T) {
	line, indent := TokenizeLine(100, `IF X THEN 200 ELSE 300`, 0)
	if indent != 0 {
		t.Errorf("IF must not change block indentation, got %d", indent)
	}

	refs := line.References()
	if len(refs) != 2 {
		t.Fatalf("expected 2 references, got %d: %v", len(refs), refs)
	}
	if refs[0].TargetLine != 200 || refs[1].TargetLine != 300 {
		t.Errorf("expected targets 200 and 300, got %d and %d", refs[0].TargetLine, refs[1].TargetLine)
	}

	groups := line.Instructions
	if len(groups) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(groups))
	}
	expected := []struct {
		source string
		indent int
		join   Join
	}{
		{"IF X THEN ", 0, JoinBranch},
		{"200 ", 1, JoinBranch},
		{"ELSE ", 0, JoinBranch},
		{"300", 1, JoinEnd},
	}
	for i, e := range expected {
		if groups[i].Source != e.source {
			t.Errorf("groups[%d] source: expected %q, got %q", i, e.source, groups[i].Source)
		}
		if groups[i].Indent != e.indent {
			t.Errorf("groups[%d] indent: expected %d, got %d", i, e.indent, groups[i].Indent)
		}
		if groups[i].Join != e.join {
			t.Errorf("groups[%d] join: expected %s, got %s", i, e.join, groups[i].Join)
		}
	}
	if groups[2].Tokens[0].Text != "ELSE" {
		t.Errorf("ELSE should open its own group, got %v", groups[2].Tokens)
	}
	if groups[2].Indent != groups[1].Indent-1 {
		t.Errorf("ELSE group should sit one level below the branch body")
	}
}

func TestNestedIfInsideLoop(t *testing.T) {
	line, _ := TokenizeLine(20, `IF A THEN IF B THEN 100`, 1)
	groups := line.Instructions
	last := groups[len(groups)-1]
	if last.Indent != 3 {
		t.Errorf("expected innermost branch body at 3, got %d", last.Indent)
	}
	if refs := line.References(); len(refs) != 1 || refs[0].TargetLine != 100 {
		t.Errorf("expected one reference to 100, got %v", refs)
	}
}

func TestBranchTargets(t *testing.T) {
	tests := []struct {
		input   string
		targets []int
	}{
		{`GOTO 100`, []int{100}},
		{`GOSUB 2000`, []int{2000}},
		{`RESTORE 500`, []int{500}},
		{`ON ERROR 900`, []int{900}},
		{`ON K GOTO 100,200,300`, []int{100, 200, 300}},
		{`ON K GOSUB 100, 200`, []int{100, 200}},
		{`RETURN 300`, []int{300}},
		{`RUN 10`, []int{10}},
		{`PRINT 100`, nil},
		{`FOR I=1 TO 100`, nil},
		{`X=100 :: GOTO 50`, []int{50}},
		{`ON K GOTO 100 :: PRINT 7`, []int{100}},
	}

	for _, tt := range tests {
		line, _ := TokenizeLine(10, tt.input, 0)
		refs := line.References()
		if len(refs) != len(tt.targets) {
			t.Errorf("%q: expected %d references, got %d: %v", tt.input, len(tt.targets), len(refs), refs)
			continue
		}
		for i, ref := range refs {
			if ref.Class != LineReference || ref.TargetLine != tt.targets[i] {
				t.Errorf("%q: refs[%d] expected line %d, got %v", tt.input, i, tt.targets[i], ref)
			}
		}
	}
}

func TestCallReference(t *testing.T) {
	line, _ := TokenizeLine(10, `CALL DRAW(1,2) :: CALL CLEAR`, 0)
	refs := line.References()
	if len(refs) != 1 {
		t.Fatalf("expected 1 reference, got %v", refs)
	}
	if refs[0].Class != SubReference || refs[0].TargetSub != "DRAW" {
		t.Errorf("expected sub reference to DRAW, got %v", refs[0])
	}
	if refs[0].CSSClass() != "token sub-reference" {
		t.Errorf("unexpected css class %q", refs[0].CSSClass())
	}
}

func TestCallNameWithDigitsIsNotNumeric(t *testing.T) {
	line, _ := TokenizeLine(10, `CALL 42`, 0)
	refs := line.References()
	if len(refs) != 1 || refs[0].Class != SubReference || refs[0].TargetSub != "42" {
		t.Errorf("expected sub reference to 42, got %v", refs)
	}
}

func TestRemComment(t *testing.T) {
	line, _ := TokenizeLine(10, `REM FOR "loop" :: GOTO 10`, 0)
	tokens := line.Tokens()
	if len(tokens) != 3 {
		t.Fatalf("expected REM, separator and comment, got %v", tokens)
	}
	if tokens[2].Class != Comment || tokens[2].Text != `FOR "loop" :: GOTO 10` {
		t.Errorf("unexpected comment token %v", tokens[2])
	}
	if len(line.References()) != 0 {
		t.Errorf("comments must not hold references")
	}
}

func TestRemAfterStatementSeparator(t *testing.T) {
	line, _ := TokenizeLine(10, `X=1 :: REM SET X`, 0)
	if len(line.Instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(line.Instructions))
	}
	tokens := line.Instructions[1].Tokens
	if tokens[len(tokens)-1].Class != Comment || tokens[len(tokens)-1].Text != "SET X" {
		t.Errorf("unexpected comment %v", tokens[len(tokens)-1])
	}
}

func TestStatementSeparatorSplitsInstructions(t *testing.T) {
	line, _ := TokenizeLine(10, `A=1 :: B=2::C=3`, 1)
	sources := line.Sources()
	expected := []string{"A=1", "B=2", "C=3"}
	if len(sources) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, sources)
	}
	for i := range expected {
		if sources[i] != expected[i] {
			t.Errorf("sources[%d]: expected %q, got %q", i, expected[i], sources[i])
		}
	}
	if line.Instructions[0].Separator != " :: " {
		t.Errorf("expected raw separator %q, got %q", " :: ", line.Instructions[0].Separator)
	}
	for i, in := range line.Instructions {
		if in.Indent != 1 {
			t.Errorf("instructions[%d]: expected indent 1, got %d", i, in.Indent)
		}
	}
}

func TestEmptyLine(t *testing.T) {
	line, indent := TokenizeLine(10, "", 3)
	if indent != 3 {
		t.Errorf("expected indentation to pass through, got %d", indent)
	}
	if len(line.Instructions) != 0 {
		t.Errorf("expected no instructions, got %d", len(line.Instructions))
	}
}

func TestImmediateLabel(t *testing.T) {
	line, _ := TokenizeLine(Immediate, "RUN", 0)
	if !line.IsImmediate() || line.Label() != ">" {
		t.Errorf("expected immediate line labelled >, got %q", line.Label())
	}
}

func TestLeadingInt(t *testing.T) {
	tests := []struct {
		input string
		n     int
		ok    bool
	}{
		{"100", 100, true},
		{"+20", 20, true},
		{"1.5", 1, true},
		{".5", 0, false},
	}
	for _, tt := range tests {
		n, ok := leadingInt(tt.input)
		if n != tt.n || ok != tt.ok {
			t.Errorf("leadingInt(%q) = %d, %v; expected %d, %v", tt.input, n, ok, tt.n, tt.ok)
		}
	}
}

func TestTokenJSONTargetLine(t *testing.T) {
	line, _ := TokenizeLine(10, "GOTO 0", 0)

	var refs, others int
	for _, tok := range line.Tokens() {
		data, err := json.Marshal(tok)
		if err != nil {
			t.Fatal(err)
		}
		has := strings.Contains(string(data), `"target_line"`)
		switch {
		case tok.Class == LineReference:
			refs++
			if !strings.Contains(string(data), `"target_line":0`) {
				t.Errorf("reference to line 0 lost its target: %s", data)
			}
		case has:
			t.Errorf("%q should not carry target_line: %s", tok.Text, data)
		default:
			others++
		}
	}
	if refs != 1 || others == 0 {
		t.Errorf("expected one reference among other tokens, got %d refs, %d others", refs, others)
	}
}
