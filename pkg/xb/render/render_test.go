package render

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/sambeau/xbview/pkg/xb/hexview"
	"github.com/sambeau/xbview/pkg/xb/program"
)

const listing = `100 FOR I=1 TO 3
110 PRINT "A""B";I :: GOSUB 1000
120 NEXT I
130 IF I>3 THEN 150 ELSE 999
140 CALL CHAR(65,"FF81")
150 END
1000 SUB DRAW
1010 SUBEND
`

// parseFragment parses an HTML fragment and returns its root nodes.
func parseFragment(t *testing.T, s string) []*html.Node {
	t.Helper()
	body := &html.Node{Type: html.ElementNode, Data: "div"}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		t.Fatalf("parsing fragment: %v", err)
	}
	return nodes
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// findAll collects element nodes below n for which match is true.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func lineNodes(t *testing.T, frag string) []*html.Node {
	var lines []*html.Node
	for _, n := range parseFragment(t, frag) {
		if n.Type == html.ElementNode && hasClass(n, "line") {
			lines = append(lines, n)
		}
	}
	return lines
}

func TestFragmentStructure(t *testing.T) {
	p := program.Parse(listing)
	lines := lineNodes(t, Fragment(p, Options{Anchors: true, BackRefs: true}))

	if len(lines) != len(p.Lines) {
		t.Fatalf("expected %d lines, got %d", len(p.Lines), len(lines))
	}

	first := lines[0]
	if id, _ := attr(first, "id"); id != "L100" {
		t.Errorf("expected id L100, got %q", id)
	}
	if v, _ := attr(first, "data-line"); v != "100" {
		t.Errorf("expected data-line 100, got %q", v)
	}
	numbers := findAll(first, func(n *html.Node) bool { return hasClass(n, "line-number") })
	if len(numbers) != 1 || textOf(numbers[0]) != "100" {
		t.Errorf("expected line number 100, got %v", numbers)
	}

	sub := lines[6]
	if v, _ := attr(sub, "data-sub"); v != "DRAW" {
		t.Errorf("expected data-sub DRAW, got %q", v)
	}
	if v, _ := attr(sub, "title"); v != "Referenced by 110" {
		t.Errorf("expected back reference title, got %q", v)
	}
}

func TestFragmentTextMatchesSource(t *testing.T) {
	p := program.Parse(listing)
	lines := lineNodes(t, Fragment(p, Options{}))

	for i, n := range lines {
		instr := findAll(n, func(n *html.Node) bool { return hasClass(n, "instructions") })
		if len(instr) != 1 {
			t.Fatalf("line %d: expected one instructions span", i)
		}
		if got, want := textOf(instr[0]), strings.NewReplacer(" :: ", "", `""`, `"`).Replace(p.Lines[i].Text()); got != want {
			t.Errorf("line %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestFragmentReferences(t *testing.T) {
	p := program.Parse(listing)
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range parseFragment(t, Fragment(p, Options{})) {
		root.AppendChild(n)
	}

	lineRefs := findAll(root, func(n *html.Node) bool { return hasClass(n, "line-number-reference") })
	var targets []string
	for _, n := range lineRefs {
		if !hasClass(n, "number") {
			t.Errorf("line reference %q should keep the number class", textOf(n))
		}
		v, _ := attr(n, "data-line-ref")
		targets = append(targets, v)
	}
	if got := strings.Join(targets, ","); got != "1000,150,999" {
		t.Errorf("expected line refs 1000,150,999, got %s", got)
	}

	hex := findAll(root, func(n *html.Node) bool { return hasClass(n, "hex") })
	if len(hex) != 1 || textOf(hex[0]) != "FF81" {
		t.Errorf("expected one hex token FF81, got %d", len(hex))
	}

	str := findAll(root, func(n *html.Node) bool { return hasClass(n, "string") })
	if len(str) != 1 || textOf(str[0]) != `A"B` {
		t.Errorf("expected string A\"B, got %d nodes", len(str))
	}
}

func TestFragmentIndentation(t *testing.T) {
	p := program.Parse("10 FOR I=1 TO 2\n20 PRINT I\n30 IF A THEN 10 ELSE 20\n40 NEXT I\n50 NEXT J\n")
	lines := lineNodes(t, Fragment(p, Options{IndentEm: 1.5}))

	var margins []string
	var classes []string
	for _, n := range lines {
		for _, in := range findAll(n, func(n *html.Node) bool { return hasClass(n, "instruction") }) {
			style, _ := attr(in, "style")
			margins = append(margins, style)
			class, _ := attr(in, "class")
			classes = append(classes, class)
		}
	}

	expected := []string{
		"margin-left:0em",   // FOR
		"margin-left:1.5em", // PRINT
		"margin-left:1.5em", // IF ... THEN
		"margin-left:3em",   // 10
		"margin-left:1.5em", // ELSE
		"margin-left:3em",   // 20
		"margin-left:0em",   // NEXT I
		"margin-left:0em",   // stray NEXT never renders negative
	}
	if len(margins) != len(expected) {
		t.Fatalf("expected %d instructions, got %d: %v", len(expected), len(margins), margins)
	}
	for i := range expected {
		if margins[i] != expected[i] {
			t.Errorf("instruction %d: expected %q, got %q", i, expected[i], margins[i])
		}
	}
	if classes[2] != "instruction no-double-colon" || classes[5] != "instruction" {
		t.Errorf("unexpected instruction classes %v", classes)
	}
}

func TestImmediateLine(t *testing.T) {
	p := program.Parse("RUN\n")
	lines := lineNodes(t, Fragment(p, Options{Anchors: true}))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if _, ok := attr(lines[0], "id"); ok {
		t.Error("immediate lines must not get an anchor")
	}
	numbers := findAll(lines[0], func(n *html.Node) bool { return hasClass(n, "line-number") })
	if textOf(numbers[0]) != ">" {
		t.Errorf("expected > label, got %q", textOf(numbers[0]))
	}
}

func TestFragmentDuplicateLineNumbers(t *testing.T) {
	p := program.Parse("10 A\n10 B\n20 GOTO 10\n30 SUB S\n40 SUB S\n")
	frag := Fragment(p, Options{Anchors: true, BackRefs: true})

	for needle, want := range map[string]int{
		`data-line="10"`:           1,
		`id="L10"`:                 1,
		`data-sub="S"`:             1,
		`title="Referenced by 20"`: 1,
	} {
		if got := strings.Count(frag, needle); got != want {
			t.Errorf("%s appears %d times, want %d", needle, got, want)
		}
	}

	lines := lineNodes(t, frag)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if _, ok := attr(lines[0], "data-line"); ok {
		t.Error("the shadowed line 10 should not be a navigation target")
	}
	if id, _ := attr(lines[1], "id"); id != "L10" {
		t.Errorf("expected the last line 10 to carry the anchor, got %q", id)
	}
	if _, ok := attr(lines[4], "data-sub"); ok {
		t.Error("a repeated SUB should not be a navigation target")
	}
}

func TestFragmentEscapes(t *testing.T) {
	p := program.Parse(`10 PRINT "<b>&"` + "\n")
	frag := Fragment(p, Options{})
	if strings.Contains(frag, "<b>") {
		t.Errorf("string content was not escaped: %s", frag)
	}
	if !strings.Contains(frag, "&lt;b&gt;&amp;") {
		t.Errorf("expected escaped content in %s", frag)
	}
}

func TestPage(t *testing.T) {
	p := program.Parse(listing)

	t.Run("with endpoint", func(t *testing.T) {
		page := Page(p, PageOptions{Title: "demo.xb", Source: listing, HexEndpoint: "/api/hex/"})
		doc, err := html.Parse(strings.NewReader(page))
		if err != nil {
			t.Fatal(err)
		}
		titles := findAll(doc, func(n *html.Node) bool { return n.Data == "title" })
		if len(titles) != 1 || textOf(titles[0]) != "demo.xb" {
			t.Errorf("unexpected title")
		}
		pretty := findAll(doc, func(n *html.Node) bool { v, _ := attr(n, "id"); return v == "pretty-source" })
		if len(pretty) != 1 {
			t.Fatal("missing pretty source pane")
		}
		original := findAll(doc, func(n *html.Node) bool { v, _ := attr(n, "id"); return v == "original-source" })
		if len(original) != 1 || textOf(original[0]) != listing {
			t.Error("original pane should hold the raw source")
		}
		if strings.Contains(page, `id="hex-data"`) {
			t.Error("hex data should not be embedded when an endpoint is set")
		}
	})

	t.Run("standalone", func(t *testing.T) {
		page := Page(p, PageOptions{Title: "demo.xb"})
		m := regexp.MustCompile(`<script type="application/json" id="hex-data">(.*?)</script>`).FindStringSubmatch(page)
		if m == nil {
			t.Fatal("expected embedded hex data")
		}
		var data map[string][]hexview.ByteRow
		if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
			t.Fatalf("decoding hex data: %v", err)
		}
		rows := data["FF81"]
		if len(rows) != 2 || rows[0].Value != 255 || rows[1].Value != 129 {
			t.Errorf("unexpected rows %+v", rows)
		}
	})
}

func TestText(t *testing.T) {
	p := program.Parse("100 FOR I=1 TO 3\n110 PRINT \"A\"\"B\";I :: GOSUB 1000\n120 NEXT I\n130 IF I>3 THEN 150 ELSE 999\nRUN\n")

	expected := "100 FOR I=1 TO 3\n" +
		"110 \tPRINT \"A\"\"B\";I ::\n" +
		"    \tGOSUB 1000\n" +
		"120 NEXT I\n" +
		"130 IF I>3 THEN\n" +
		"    \t150\n" +
		"    ELSE\n" +
		"    \t999\n" +
		"  > RUN\n"

	if got := Text(p); got != expected {
		t.Errorf("Text() mismatch.\nexpected:\n%s\ngot:\n%s", expected, got)
	}
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestANSI(t *testing.T) {
	p := program.Parse(listing)

	var buf bytes.Buffer
	if err := ANSI(&buf, p, "monokai"); err != nil {
		t.Fatalf("ANSI error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Error("expected escape sequences in output")
	}
	if plain := ansiEscape.ReplaceAllString(out, ""); plain != Text(p) {
		t.Errorf("stripped ANSI output should equal Text().\nexpected:\n%s\ngot:\n%s", Text(p), plain)
	}
}

func TestANSIUnknownStyle(t *testing.T) {
	var buf bytes.Buffer
	if err := ANSI(&buf, program.Parse("10 PRINT 1\n"), "no-such-style"); err != nil {
		t.Fatalf("unknown style should fall back, got %v", err)
	}
	if !strings.Contains(ansiEscape.ReplaceAllString(buf.String(), ""), "PRINT 1") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestHexTable(t *testing.T) {
	rows, err := hexview.RenderBytes("FF3")
	if err != nil {
		t.Fatal(err)
	}
	out := ansiEscape.ReplaceAllString(HexTable(rows), "")

	for _, want := range []string{"bits", "hex", "dec", "0xFF", "255", "0x3", "3", "████████", "··████"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestJSON(t *testing.T) {
	p := program.Parse(listing)

	var buf bytes.Buffer
	if err := JSON(&buf, "demo.xb", p); err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Name  string `json:"name"`
		Lines []struct {
			Number       int `json:"number"`
			Instructions []struct {
				Join   string `json:"join"`
				Tokens []struct {
					Class      string `json:"class"`
					TargetLine int    `json:"target_line"`
				} `json:"tokens"`
			} `json:"instructions"`
		} `json:"lines"`
		Subs  map[string]int `json:"subs"`
		Stats program.Stats  `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if doc.Name != "demo.xb" || len(doc.Lines) != 8 {
		t.Errorf("unexpected document %q with %d lines", doc.Name, len(doc.Lines))
	}
	if doc.Subs["DRAW"] != 1000 {
		t.Errorf("expected DRAW at 1000, got %v", doc.Subs)
	}
	if doc.Lines[1].Instructions[0].Join != "statement" {
		t.Errorf("expected statement join, got %q", doc.Lines[1].Instructions[0].Join)
	}
}

func TestJSONEmptyProgram(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, "", program.Parse("")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"lines": []`) {
		t.Errorf("expected empty lines array, got %s", buf.String())
	}
}
