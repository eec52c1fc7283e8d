package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/sambeau/xbview/config"
)

// corsMiddleware lets the configured origins read the JSON API. It only
// ever answers GET, the only method the API serves.
type corsMiddleware struct {
	config config.CORSConfig
	next   http.Handler
}

func newCORSMiddleware(next http.Handler, cfg config.CORSConfig) http.Handler {
	if len(cfg.Origins) == 0 {
		return next
	}
	return &corsMiddleware{config: cfg, next: next}
}

func (m *corsMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || !strings.HasPrefix(r.URL.Path, "/api/") || !m.config.AllowsOrigin(origin) {
		// Browser will block the response
		m.next.ServeHTTP(w, r)
		return
	}

	if slices.Contains(m.config.Origins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)

	if r.Method == http.MethodOptions {
		m.preflight(w, r)
		return
	}
	m.next.ServeHTTP(w, r)
}

func (m *corsMiddleware) preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD")

	if len(m.config.Headers) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(m.config.Headers, ", "))
	} else if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
		w.Header().Set("Access-Control-Allow-Headers", requested)
	}

	if m.config.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(m.config.MaxAge))
	}
	w.WriteHeader(http.StatusNoContent)
}
