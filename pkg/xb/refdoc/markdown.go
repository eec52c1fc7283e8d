package refdoc

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/sambeau/xbview/pkg/xb/program"
	"github.com/sambeau/xbview/pkg/xb/render"
)

// sampleLanguage is the fence info string, and the inline code prefix,
// that marks an Extended Basic sample.
const sampleLanguage = "xb"

// sampleExtension renders xb samples in Markdown as highlighted listings.
type sampleExtension struct {
	opts render.Options
}

// Extend adds the sample renderer to goldmark.
func (e *sampleExtension) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&sampleRenderer{opts: e.opts}, 100),
	))
}

type sampleRenderer struct {
	opts render.Options
}

// RegisterFuncs takes over fenced code blocks and code spans.
func (r *sampleRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gmast.KindFencedCodeBlock, r.renderFencedCodeBlock)
	reg.Register(gmast.KindCodeSpan, r.renderCodeSpan)
}

func (r *sampleRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	n := node.(*gmast.FencedCodeBlock)

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lang := string(n.Language(source))
	if lang == sampleLanguage {
		w.WriteString(`<div class="source xb-sample">`)
		w.WriteString(render.Fragment(program.Parse(code.String()), r.opts))
		w.WriteString("</div>\n")
		return gmast.WalkSkipChildren, nil
	}

	w.WriteString("<pre><code")
	if lang != "" {
		w.WriteString(` class="language-` + html.EscapeString(lang) + `"`)
	}
	w.WriteString(">")
	w.WriteString(html.EscapeString(code.String()))
	w.WriteString("</code></pre>\n")
	return gmast.WalkSkipChildren, nil
}

// renderCodeSpan highlights inline code written as `xb CALL CLEAR`.
func (r *sampleRenderer) renderCodeSpan(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}

	var text strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *gmast.Text:
			text.Write(t.Segment.Value(source))
		case *gmast.String:
			text.Write(t.Value)
		}
	}

	code := strings.ReplaceAll(text.String(), "\n", " ")
	if rest, ok := strings.CutPrefix(code, sampleLanguage+" "); ok {
		w.WriteString(`<code class="language-xb">`)
		w.WriteString(render.Inline(rest))
		w.WriteString("</code>")
		return gmast.WalkSkipChildren, nil
	}

	w.WriteString("<code>")
	w.WriteString(html.EscapeString(code))
	w.WriteString("</code>")
	return gmast.WalkSkipChildren, nil
}

// newMarkdown returns a GFM goldmark instance with sample highlighting.
func newMarkdown(opts render.Options) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			&sampleExtension{opts: opts},
		),
	)
}
