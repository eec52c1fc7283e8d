package refdoc

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/sambeau/xbview/pkg/xb/render"
)

const referenceStyles = `
<style>
  .ref-index { columns: 4 12em; list-style: none; padding: 0; }
  .ref-index a, .ref-details-item h2 a { color: #8be9fd; text-decoration: none; }
  .ref-details { list-style: none; padding: 0; }
  .ref-details-item { border-top: 1px solid #333; padding: 1rem 0; }
  .ref-details-item h2 { font-size: 1.1rem; margin: 0 0 0.5rem; }
  .ref-item-format { background: #16213e; padding: 0.5rem 1rem; border-radius: 6px; }
  code { font-family: 'SF Mono', Monaco, monospace; }
</style>
`

// RenderHTML writes the keyword index followed by the details of every
// keyword, in document order.
func (r *Reference) RenderHTML(w io.Writer, opts render.Options) error {
	md := newMarkdown(opts)

	var sb strings.Builder
	sb.WriteString("<ul class=\"ref-index\" id=\"index\">\n")
	for _, kw := range r.Keywords {
		id := anchor(kw.Name)
		sb.WriteString(`<li class="ref-index-item"><a class="ref-item-link" href="#` + id + `">`)
		sb.WriteString(html.EscapeString(kw.Name))
		sb.WriteString("</a></li>\n")
	}
	sb.WriteString("</ul>\n")

	sb.WriteString("<ul class=\"ref-details\" id=\"details-list\">\n")
	for _, kw := range r.Keywords {
		sb.WriteString("<li class=\"ref-details-item\">\n")
		sb.WriteString(`<h2 class="ref-item-title" id="` + anchor(kw.Name) + `">`)
		sb.WriteString(html.EscapeString(kw.Name))
		sb.WriteString("</h2>\n")
		sb.WriteString("<pre class=\"ref-item-format\"><code>")
		sb.WriteString(html.EscapeString(strings.TrimRight(kw.Format, "\n")))
		sb.WriteString("</code></pre>\n")

		sections := []struct{ class, text string }{
			{"ref-item-description", kw.Description},
			{"ref-item-options", kw.Options},
			{"ref-item-examples", kw.Examples},
			{"ref-item-program", kw.Program},
		}
		for _, s := range sections {
			if strings.TrimSpace(s.text) == "" {
				continue
			}
			var buf bytes.Buffer
			if err := md.Convert([]byte(s.text), &buf); err != nil {
				return fmt.Errorf("rendering %s of %s: %w", s.class, kw.Name, err)
			}
			sb.WriteString(`<div class="` + s.class + `">`)
			sb.Write(buf.Bytes())
			sb.WriteString("</div>\n")
		}
		sb.WriteString("</li>\n")
	}
	sb.WriteString("</ul>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// RenderPage writes a complete HTML document for the reference.
func (r *Reference) RenderPage(w io.Writer, title string, opts render.Options) error {
	var body bytes.Buffer
	if err := r.RenderHTML(&body, opts); err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	sb.WriteString(render.StyleSheet)
	sb.WriteString(referenceStyles)
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString("<header><h1>" + html.EscapeString(title) + "</h1></header>\n")
	sb.Write(body.Bytes())
	sb.WriteString("</body>\n</html>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// anchor turns a keyword name into an id attribute value.
func anchor(name string) string {
	return html.EscapeString(strings.ReplaceAll(name, " ", "-"))
}
