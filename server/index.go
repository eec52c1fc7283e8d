package server

import (
	"html"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// indexEntry is one listing on the index page.
type indexEntry struct {
	Name    string
	Size    int64
	ModTime time.Time
	Lines   int
	Refs    int
}

const indexStyles = `
<style>
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    background: #1a1a2e;
    color: #eee;
    padding: 1.5rem 2rem;
  }
  h1 { font-size: 1.25rem; color: #8be9fd; }
  a { color: #8be9fd; }
  table { border-collapse: collapse; min-width: 40em; }
  th { text-align: left; color: #7f8c8d; font-weight: normal; font-size: 0.8rem; text-transform: uppercase; }
  th, td { padding: 0.35rem 1rem 0.35rem 0; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  tr + tr td { border-top: 1px solid #2d2d44; }
  .empty, footer { color: #7f8c8d; font-size: 0.85rem; margin-top: 1rem; }
</style>
`

// listingEntries reads the source directory and parses every listing in it.
func (s *Server) listingEntries() ([]indexEntry, error) {
	dirEntries, err := os.ReadDir(s.config.Source.Dir)
	if err != nil {
		return nil, err
	}

	var entries []indexEntry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		path, ok := s.listingPath(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		e := indexEntry{Name: de.Name(), Size: info.Size(), ModTime: info.ModTime()}
		if l, err := s.programs.get(path); err == nil {
			stats := l.program.Stats()
			e.Lines, e.Refs = stats.Lines, stats.References
		} else {
			s.logWarn("indexing %s: %v", path, err)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// handleIndex lists the source directory.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := s.listingEntries()
	if err != nil && !os.IsNotExist(err) {
		s.logError("reading source dir: %v", err)
		s.handle500(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(s.indexPage(entries, time.Now())))
}

func (s *Server) indexPage(entries []indexEntry, now time.Time) string {
	p := message.NewPrinter(language.English)
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>Listings</title>\n")
	sb.WriteString(indexStyles)
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString("<h1>Listings</h1>\n")

	if len(entries) == 0 {
		sb.WriteString("<p class=\"empty\">No listings in " + html.EscapeString(s.config.Source.Dir) + "</p>\n")
	} else {
		sb.WriteString("<table>\n<tr><th>Name</th><th>Lines</th><th>Refs</th><th>Size</th><th>Modified</th></tr>\n")
		var lines int
		var size int64
		for _, e := range entries {
			lines += e.Lines
			size += e.Size
			sb.WriteString("<tr>")
			sb.WriteString(`<td><a href="/view/` + html.EscapeString(url.PathEscape(e.Name)) + `">` + html.EscapeString(e.Name) + "</a></td>")
			sb.WriteString(`<td class="num">` + p.Sprintf("%d", e.Lines) + "</td>")
			sb.WriteString(`<td class="num">` + p.Sprintf("%d", e.Refs) + "</td>")
			sb.WriteString(`<td class="num">` + humanize.Bytes(uint64(e.Size)) + "</td>")
			sb.WriteString("<td>" + humanize.RelTime(e.ModTime, now, "ago", "from now") + "</td>")
			sb.WriteString("</tr>\n")
		}
		sb.WriteString("</table>\n")
		sb.WriteString("<footer>" + p.Sprintf("%d listings, %d lines, %s", len(entries), lines, humanize.Bytes(uint64(size))))
		if s.config.Reference != "" {
			sb.WriteString(` · <a href="/reference">Keyword reference</a>`)
		}
		sb.WriteString("</footer>\n")
	}

	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
