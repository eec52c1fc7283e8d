package render

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/sambeau/xbview/pkg/xb/hexview"
	"github.com/sambeau/xbview/pkg/xb/lexer"
	"github.com/sambeau/xbview/pkg/xb/program"
)

// Link is a header navigation link on a listing page.
type Link struct {
	Text string
	Href string
}

// PageOptions controls full page rendering.
type PageOptions struct {
	Options
	Title string
	// Source is shown verbatim on the original source tab.
	Source string
	// HexEndpoint is the URL prefix the page fetches byte rows from, e.g.
	// "/api/hex/". When empty, rows for every hex token are embedded.
	HexEndpoint string
	Links       []Link
}

// StyleSheet is the inline CSS for listing pages and embedded listings.
const StyleSheet = `
<style>
  * { box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    background: #1a1a2e;
    color: #eee;
    margin: 0;
    padding: 1.5rem 2rem;
  }
  header { display: flex; gap: 1.5rem; align-items: baseline; margin-bottom: 1rem; }
  header h1 { font-size: 1.25rem; margin: 0; color: #8be9fd; }
  header a { color: #aaa; }
  .tabs label { margin-right: 1rem; cursor: pointer; }
  .source {
    font-family: 'SF Mono', Monaco, 'Cascadia Code', monospace;
    font-size: 0.9rem;
    line-height: 1.5;
    background: #16213e;
    border-radius: 8px;
    padding: 1rem;
    overflow-x: auto;
  }
  body[data-pane="original"] #pretty-source,
  body[data-pane="pretty"] #original-source { display: none; }
  .line { display: grid; grid-template-columns: 5em 1fr; border-radius: 3px; }
  .line.hovered { background: #24345a; }
  .line.selected { background: #3a3f6b; }
  .line-number { color: #666; text-align: right; padding-right: 1em; user-select: none; }
  .instruction { display: block; white-space: pre; }
  .instruction:not(.no-double-colon):not(:last-child)::after { content: " ::"; color: #666; }
  .keyword { color: #ff79c6; }
  .comment { color: #6272a4; font-style: italic; }
  .string { color: #f1fa8c; }
  .hex { color: #ffb86c; cursor: pointer; }
  .hex.selected { outline: 1px solid #ffb86c; }
  .number { color: #bd93f9; }
  .operator { color: #ff5555; }
  .separator { color: #aaa; }
  .line-number-reference, .sub-reference { cursor: pointer; text-decoration: underline dotted; }
  .sub-reference { color: #50fa7b; }
  #hex-view {
    position: absolute;
    visibility: hidden;
    background: #0f0f1a;
    border: 1px solid #444;
    border-collapse: collapse;
    font-family: monospace;
  }
  #hex-view td { padding: 0 0.4em; }
  #hex-view td.bit { width: 1em; height: 1em; border: 1px solid #333; padding: 0; }
  #hex-view td.bit.on { background: #eee; }
</style>
`

// pageScript wires navigation, hover highlighting, tabs and the hex popup.
const pageScript = `
<script>
(function () {
  const pretty = document.getElementById("pretty-source");
  const hexView = document.getElementById("hex-view");
  const endpoint = document.body.dataset.hexEndpoint || "";
  const embedded = document.getElementById("hex-data");
  const hexData = embedded ? JSON.parse(embedded.textContent) : {};

  function target(el) {
    const d = el.dataset || {};
    if (d.lineRef) return pretty.querySelector('span.line[data-line="' + d.lineRef + '"]');
    if (d.subRef) return pretty.querySelector('span.line[data-sub="' + CSS.escape(d.subRef) + '"]');
    return null;
  }
  function mark(cls, el) {
    pretty.querySelectorAll("span.line." + cls).forEach(e => e.classList.remove(cls));
    if (el) el.classList.add(cls);
  }
  function cell(cls, text) {
    const td = document.createElement("td");
    td.className = cls;
    if (text !== undefined) td.textContent = text;
    return td;
  }
  function showRows(rows, x, y) {
    hexView.innerHTML = "";
    const tbody = document.createElement("tbody");
    rows.forEach(r => {
      const tr = document.createElement("tr");
      r.bits.forEach(on => {
        const td = cell(on ? "bit on" : "bit");
        if (r.bits.length === 4) td.colSpan = 2;
        tr.appendChild(td);
      });
      tr.appendChild(cell("byte", r.hex));
      tr.appendChild(cell("decimal", r.value));
      tbody.appendChild(tr);
    });
    hexView.appendChild(tbody);
    hexView.style.top = (y + 8) + "px";
    hexView.style.left = (x + 4) + "px";
    hexView.style.visibility = "visible";
  }
  async function rowsFor(digits) {
    if (hexData[digits]) return hexData[digits];
    if (!endpoint) return null;
    const res = await fetch(endpoint + encodeURIComponent(digits));
    if (!res.ok) return null;
    return hexData[digits] = await res.json();
  }

  pretty.addEventListener("click", async e => {
    const t = target(e.target);
    if (t) {
      mark("selected", t);
      t.scrollIntoView({ block: "center" });
    }
    if (e.target.classList.contains("hex")) {
      pretty.querySelectorAll(".hex.selected").forEach(el => el.classList.remove("selected"));
      e.target.classList.add("selected");
      const rows = await rowsFor(e.target.textContent);
      if (rows) showRows(rows, e.pageX, e.pageY);
    } else {
      hexView.style.visibility = "hidden";
    }
  });
  pretty.addEventListener("mouseover", e => mark("hovered", target(e.target)));
  document.querySelectorAll("input[name=pane]").forEach(r =>
    r.addEventListener("change", () => { document.body.dataset.pane = r.value; }));
  if (location.hash) mark("selected", document.getElementById(location.hash.slice(1)));
})();
</script>
`

// Page renders a complete HTML document for a program listing with a
// prettified tab and an original source tab.
func Page(p *program.Program, opts PageOptions) string {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>" + html.EscapeString(opts.Title) + "</title>\n")
	sb.WriteString(StyleSheet)
	sb.WriteString("</head>\n")
	sb.WriteString(`<body data-pane="pretty" data-hex-endpoint="` + html.EscapeString(opts.HexEndpoint) + "\">\n")

	sb.WriteString("<header>\n")
	sb.WriteString("<h1>" + html.EscapeString(opts.Title) + "</h1>\n")
	for _, l := range opts.Links {
		sb.WriteString(`<a href="` + html.EscapeString(l.Href) + `">` + html.EscapeString(l.Text) + "</a>\n")
	}
	sb.WriteString("<span class=\"tabs\">")
	sb.WriteString(`<label><input type="radio" name="pane" value="pretty" checked> Pretty</label>`)
	sb.WriteString(`<label><input type="radio" name="pane" value="original"> Original</label>`)
	sb.WriteString("</span>\n")
	sb.WriteString("</header>\n")

	sb.WriteString("<div class=\"source\" id=\"pretty-source\">")
	sb.WriteString(Fragment(p, opts.Options))
	sb.WriteString("</div>\n")
	sb.WriteString("<pre class=\"source\" id=\"original-source\">")
	sb.WriteString(html.EscapeString(opts.Source))
	sb.WriteString("</pre>\n")
	sb.WriteString("<table id=\"hex-view\"></table>\n")

	if opts.HexEndpoint == "" {
		if data, err := json.Marshal(hexRows(p)); err == nil {
			sb.WriteString("<script type=\"application/json\" id=\"hex-data\">")
			sb.Write(data)
			sb.WriteString("</script>\n")
		}
	}
	sb.WriteString(pageScript)
	sb.WriteString("</body>\n</html>\n")

	return sb.String()
}

// hexRows decodes every distinct hex token of a program.
func hexRows(p *program.Program) map[string][]hexview.ByteRow {
	out := make(map[string][]hexview.ByteRow)
	for _, line := range p.Lines {
		for _, t := range line.Tokens() {
			if t.Class != lexer.Hex {
				continue
			}
			if _, ok := out[t.Text]; ok {
				continue
			}
			if rows, err := hexview.RenderBytes(t.Text); err == nil {
				out[t.Text] = rows
			}
		}
	}
	return out
}
