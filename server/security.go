package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/sambeau/xbview/config"
)

// securityHeaders wraps an http.Handler to add security headers to all responses.
type securityHeaders struct {
	handler http.Handler
	cfg     config.SecurityConfig
	https   bool
	devMode bool
}

// newSecurityHeaders creates a middleware that adds security headers.
func newSecurityHeaders(handler http.Handler, cfg config.SecurityConfig, https, devMode bool) http.Handler {
	return &securityHeaders{
		handler: handler,
		cfg:     cfg,
		https:   https,
		devMode: devMode,
	}
}

func (s *securityHeaders) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()

	// Listings change under the browser in dev mode
	if s.devMode {
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}

	if s.https && !s.devMode && s.cfg.HSTS.Enabled {
		hsts := "max-age=" + strconv.Itoa(s.cfg.HSTS.MaxAge)
		if s.cfg.HSTS.IncludeSubDomains {
			hsts += "; includeSubDomains"
		}
		h.Set("Strict-Transport-Security", hsts)
	}

	if s.cfg.ContentTypeOptions != "" {
		h.Set("X-Content-Type-Options", s.cfg.ContentTypeOptions)
	}
	if s.cfg.FrameOptions != "" {
		h.Set("X-Frame-Options", s.cfg.FrameOptions)
	}
	if s.cfg.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", s.cfg.ReferrerPolicy)
	}
	if s.cfg.CSP != "" {
		h.Set("Content-Security-Policy", s.cfg.CSP)
	}

	s.handler.ServeHTTP(w, r)
}

// proxyAware wraps an http.Handler to extract the real client IP from proxy headers.
type proxyAware struct {
	handler    http.Handler
	trustedIPs map[string]bool
}

// newProxyAware rewrites RemoteAddr from proxy headers so the request log
// and the rate limiter see the real client.
func newProxyAware(handler http.Handler, cfg config.ProxyConfig) http.Handler {
	if !cfg.Trusted {
		return handler
	}

	trustedIPs := make(map[string]bool)
	for _, ip := range cfg.TrustedIPs {
		trustedIPs[ip] = true
	}
	return &proxyAware{handler: handler, trustedIPs: trustedIPs}
}

func (p *proxyAware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// With a trusted list, only those peers may speak for the client
	if len(p.trustedIPs) > 0 && !p.trustedIPs[extractIP(r.RemoteAddr)] {
		p.handler.ServeHTTP(w, r)
		return
	}

	if realIP := forwardedIP(r); realIP != "" {
		r.Header.Set("X-Original-Remote-Addr", r.RemoteAddr)
		r.RemoteAddr = realIP
	}
	p.handler.ServeHTTP(w, r)
}

// forwardedIP returns the original client from X-Forwarded-For (leftmost
// entry) or X-Real-IP.
func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}

// extractIP extracts just the IP address from an address:port string.
func extractIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
