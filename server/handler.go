package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sambeau/xbview/pkg/xb/hexview"
	"github.com/sambeau/xbview/pkg/xb/lexer"
	"github.com/sambeau/xbview/pkg/xb/render"
)

// hexEndpoint is the prefix listing pages fetch byte rows from.
const hexEndpoint = "/api/hex/"

// listingPath maps a {name} path value onto a file in the source
// directory. Names that leave the directory, hidden files and files
// without a listing extension are refused.
func (s *Server) listingPath(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	if !s.config.Source.HasExtension(name) {
		return "", false
	}
	path := filepath.Join(s.config.Source.Dir, name)
	if !isUnder(path, s.config.Source.Dir) {
		return "", false
	}
	return path, true
}

// loadListing resolves and parses the listing named in the request,
// writing a 404 or 500 itself when it cannot.
func (s *Server) loadListing(w http.ResponseWriter, r *http.Request) (string, *listing, bool) {
	name := r.PathValue("name")
	path, ok := s.listingPath(name)
	if !ok {
		s.handle404(w, r)
		return "", nil, false
	}

	l, err := s.programs.get(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.handle404(w, r)
		} else {
			s.logError("loading %s: %v", path, err)
			s.handle500(w, r, err)
		}
		return "", nil, false
	}
	return name, l, true
}

// handleView renders a listing page.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name, l, ok := s.loadListing(w, r)
	if !ok {
		return
	}

	links := []render.Link{
		{Text: "Index", Href: "/"},
		{Text: "Raw", Href: "/raw/" + name},
		{Text: "JSON", Href: "/api/program/" + name},
	}
	if s.config.Reference != "" {
		links = append(links, render.Link{Text: "Reference", Href: "/reference"})
	}

	page := render.Page(l.program, render.PageOptions{
		Options:     s.renderOptions(),
		Title:       name,
		Source:      l.source,
		HexEndpoint: hexEndpoint,
		Links:       links,
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

// handleRaw serves a listing's original text.
func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	_, l, ok := s.loadListing(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(l.source))
}

// handleProgram serves the line, instruction and token tree as JSON.
func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	name, l, ok := s.loadListing(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, render.NewDocument(name, l.program))
}

// ResolveResult answers a navigation request.
type ResolveResult struct {
	Found        bool  `json:"found"`
	Line         int   `json:"line,omitempty"`
	ReferencedBy []int `json:"referenced_by,omitempty"`
}

// handleResolve resolves ?line=N or ?sub=NAME against a listing.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lineParam, subParam := q.Get("line"), q.Get("sub")
	if (lineParam == "") == (subParam == "") {
		s.writeError(w, r, http.StatusBadRequest, "exactly one of line or sub is required")
		return
	}

	tok := lexer.Token{Class: lexer.SubReference, TargetSub: subParam}
	if lineParam != "" {
		n, err := strconv.Atoi(lineParam)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, "line must be a number")
			return
		}
		tok = lexer.Token{Class: lexer.LineReference, TargetLine: n}
	}

	_, l, ok := s.loadListing(w, r)
	if !ok {
		return
	}

	var result ResolveResult
	if target, found := l.program.Resolve(tok); found {
		result.Found = true
		result.Line = target.Number
		for _, from := range l.program.ReferencesTo(target.Number) {
			result.ReferencedBy = append(result.ReferencedBy, from.Number)
		}
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

// handleHex decodes hex digits into byte rows.
func (s *Server) handleHex(w http.ResponseWriter, r *http.Request) {
	rows, err := hexview.RenderBytes(r.PathValue("digits"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, rows)
}

// handleReference renders the keyword reference.
func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	ref, err := s.reference.get()
	if err != nil {
		if errors.Is(err, errNoReference) || errors.Is(err, fs.ErrNotExist) {
			s.handle404(w, r)
			return
		}
		s.logError("loading reference: %v", err)
		s.handle500(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := ref.RenderPage(&buf, "Extended BASIC Reference", s.renderOptions()); err != nil {
		s.logError("rendering reference: %v", err)
		s.handle500(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logError("failed to marshal JSON: %v", err)
		s.handle500(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError writes a JSON error body
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, map[string]string{"error": message})
}
