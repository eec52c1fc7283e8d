package server

import (
	"fmt"
	"html"
	"net/http"
	"strings"
)

// DevError holds information about an error to display in dev mode.
type DevError struct {
	Status    int    // HTTP status code
	Title     string // Short heading, e.g. "Not Found"
	Path      string // The URL path that was requested
	Message   string // Error message, if any
	Hint      string // Suggestion for fixing the problem (may contain markup)
	RequestID string
}

// errorPageStyles is the CSS for dev error pages
const errorPageStyles = `
<style>
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    background: #1a1a2e;
    color: #eee;
    min-height: 100vh;
    padding: 2rem;
  }
  .container { max-width: 800px; margin: 0 auto; }
  h1 { font-size: 1.5rem; margin-bottom: 1.5rem; color: #ff6b6b; }
  h1.not-found { color: #f39c12; }
  .status-code {
    display: inline-block;
    background: currentColor;
    border-radius: 4px;
    padding: 0.2rem 0.5rem;
    margin-right: 0.5rem;
    font-size: 0.75rem;
    font-weight: 600;
  }
  .status-code span { color: #1a1a2e; }
  .info-box {
    background: #16213e;
    border-radius: 8px;
    padding: 1rem 1.25rem;
    margin-bottom: 1rem;
  }
  .info-box h2 {
    font-size: 0.75rem;
    text-transform: uppercase;
    color: #7f8c8d;
    margin-bottom: 0.5rem;
  }
  .path, .message {
    font-family: 'SF Mono', Monaco, 'Cascadia Code', monospace;
    font-size: 0.9rem;
    white-space: pre-wrap;
    word-break: break-word;
  }
  .hint {
    background: #16213e;
    border-radius: 8px;
    padding: 1rem 1.25rem;
    margin-top: 1.5rem;
    font-size: 0.85rem;
    color: #7f8c8d;
  }
  .hint code {
    background: #0f0f23;
    padding: 0.1rem 0.4rem;
    border-radius: 3px;
    color: #98c379;
  }
  .footer {
    margin-top: 2rem;
    padding-top: 1rem;
    border-top: 1px solid #2d2d44;
    font-size: 0.8rem;
    color: #5c6370;
  }
</style>
`

// renderDevErrorPage writes a styled error page for development mode.
func renderDevErrorPage(w http.ResponseWriter, devErr DevError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(devErr.Status)

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString(fmt.Sprintf("<title>%d %s - xbview dev</title>\n", devErr.Status, html.EscapeString(devErr.Title)))
	sb.WriteString(errorPageStyles)
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString("<div class=\"container\">\n")

	class := ""
	if devErr.Status == http.StatusNotFound {
		class = " class=\"not-found\""
	}
	sb.WriteString(fmt.Sprintf("<h1%s><span class=\"status-code\"><span>%d</span></span>%s</h1>\n",
		class, devErr.Status, html.EscapeString(devErr.Title)))

	sb.WriteString("<div class=\"info-box\">\n<h2>Requested</h2>\n")
	sb.WriteString("<div class=\"path\">" + html.EscapeString(devErr.Path) + "</div>\n")
	sb.WriteString("</div>\n")

	if devErr.Message != "" {
		sb.WriteString("<div class=\"info-box\">\n<h2>Error</h2>\n")
		sb.WriteString("<div class=\"message\">" + html.EscapeString(devErr.Message) + "</div>\n")
		sb.WriteString("</div>\n")
	}

	if devErr.Hint != "" {
		sb.WriteString("<div class=\"hint\">" + devErr.Hint + "</div>\n")
	}

	sb.WriteString("<div class=\"footer\">")
	sb.WriteString("This is a development-only page.")
	if devErr.RequestID != "" {
		sb.WriteString(" Request " + html.EscapeString(devErr.RequestID) + ".")
	}
	sb.WriteString("</div>\n")

	sb.WriteString("</div>\n") // .container
	sb.WriteString("</body>\n</html>")

	w.Write([]byte(sb.String()))
}

// handle404 renders a 404 error page
func (s *Server) handle404(w http.ResponseWriter, r *http.Request) {
	if !s.config.Server.Dev {
		http.NotFound(w, r)
		return
	}

	hint := fmt.Sprintf("Listings are served from <code>%s</code> with extensions <code>%s</code>.",
		html.EscapeString(s.config.Source.Dir),
		html.EscapeString(strings.Join(s.config.Source.Extensions, " ")))
	if r.URL.Path == "/reference" {
		hint = "Set <code>reference</code> in <code>xbview.yaml</code> to the keyword reference YAML file."
	}

	renderDevErrorPage(w, DevError{
		Status:    http.StatusNotFound,
		Title:     "Not Found",
		Path:      r.URL.Path,
		Hint:      hint,
		RequestID: requestID(r),
	})
}

// handle500 renders a 500 error page
func (s *Server) handle500(w http.ResponseWriter, r *http.Request, err error) {
	if !s.config.Server.Dev {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	renderDevErrorPage(w, DevError{
		Status:    http.StatusInternalServerError,
		Title:     "Internal Server Error",
		Path:      r.URL.Path,
		Message:   err.Error(),
		Hint:      "Fix the problem and save - this page will automatically reload.",
		RequestID: requestID(r),
	})
}
