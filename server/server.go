package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sambeau/xbview/config"
	"github.com/sambeau/xbview/pkg/xb/render"
)

// Server represents an xbview listing browser.
type Server struct {
	config     *config.Config
	configPath string
	stdout     io.Writer
	stderr     io.Writer
	mux        *http.ServeMux
	server     *http.Server
	programs   *programCache
	reference  *referenceCache
	watcher    *Watcher
	reload     *reloadHub
	devLog     *DevLog
	limiter    *rateLimiter
}

// New creates a new xbview server with the given configuration.
func New(cfg *config.Config, configPath string, stdout, stderr io.Writer) (*Server, error) {
	s := &Server{
		config:     cfg,
		configPath: configPath,
		stdout:     stdout,
		stderr:     stderr,
		mux:        http.NewServeMux(),
		programs:   newProgramCache(),
		reference:  newReferenceCache(cfg.Reference),
		reload:     newReloadHub(),
		limiter:    newRateLimiter(cfg.API.RateLimit.Requests, cfg.API.RateLimit.Window),
	}

	if cfg.Server.Dev {
		if err := s.openDevLog(); err != nil {
			s.logWarn("dev log disabled: %v", err)
		}
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures the HTTP mux.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /view/{name}", s.handleView)
	s.mux.HandleFunc("GET /raw/{name}", s.handleRaw)
	s.mux.HandleFunc("GET /api/program/{name}", s.handleProgram)
	s.mux.HandleFunc("GET /api/resolve/{name}", s.handleResolve)
	s.mux.HandleFunc("GET /api/hex/{digits}", s.handleHex)
	s.mux.HandleFunc("GET /reference", s.handleReference)

	if s.config.Server.Dev {
		s.mux.HandleFunc("GET /__dev/logs", s.handleDevLogs)
	}
}

// Handler returns the full handler chain. The live reload socket sits in
// front of it so the upgrade sees the raw connection.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux

	if s.config.Server.Dev {
		handler = injectLiveReload(handler)
	}

	handler = newAPIRateLimit(handler, s.config.API.RateLimit, s.limiter)
	handler = newCORSMiddleware(handler, s.config.CORS)
	handler = newSecurityHeaders(handler, s.config.Security, s.config.Server.HTTPS.Enabled(), s.config.Server.Dev)

	if s.config.Logging.Level != "error" && !s.config.Logging.Quiet {
		handler = newRequestLogger(handler, s.stdout, s.config.Logging.Format, s.devLog)
	} else {
		handler = withRequestID(handler)
	}

	handler = newProxyAware(handler, s.config.Server.Proxy)
	handler = newCompressionHandler(handler, s.config.Compression)
	if !s.config.Server.Dev {
		return handler
	}

	chain := handler
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == liveReloadPath {
			s.reload.ServeHTTP(w, r)
			return
		}
		chain.ServeHTTP(w, r)
	})
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.listenAddr()

	if s.config.Server.Dev {
		watcher, err := NewWatcher(s, s.configPath, s.stdout, s.stderr)
		if err != nil {
			s.logError("failed to create watcher: %v", err)
		} else {
			s.watcher = watcher
			if err := s.watcher.Start(ctx); err != nil {
				s.logError("failed to start watcher: %v", err)
			}
			defer s.watcher.Close()
		}
	}
	defer s.Close()

	if s.config.API.RateLimit.Requests > 0 {
		go s.pruneLimiter(ctx)
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		https := s.config.Server.HTTPS
		if https.Enabled() && !s.config.Server.Dev {
			fmt.Fprintf(s.stdout, "Starting xbview on https://%s\n", addr)
			errCh <- s.server.ListenAndServeTLS(https.Cert, https.Key)
			return
		}
		if s.config.Server.Dev {
			fmt.Fprintf(s.stdout, "Starting xbview in development mode on http://%s\n", addr)
		} else {
			fmt.Fprintf(s.stdout, "Starting xbview on http://%s\n", addr)
		}
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintf(s.stdout, "\nShutting down gracefully...\n")
		s.reload.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// pruneLimiter forgets idle clients once per rate limit window.
func (s *Server) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(s.limiter.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.prune()
		}
	}
}

// Close releases the dev log database.
func (s *Server) Close() error {
	if s.devLog != nil {
		return s.devLog.Close()
	}
	return nil
}

// listenAddr returns the address to listen on based on configuration.
func (s *Server) listenAddr() string {
	return net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
}

// renderOptions maps the render section of the config onto listing options.
func (s *Server) renderOptions() render.Options {
	return render.Options{
		IndentEm: s.config.Render.IndentEm,
		Anchors:  s.config.Render.Anchors,
		BackRefs: true,
	}
}

// changed drops cached programs and the reference, then tells connected
// browsers to reload.
func (s *Server) changed(path string) {
	s.programs.clear()
	s.reference.clear()
	s.reload.broadcast(path)
}

// logInfo logs an informational message
func (s *Server) logInfo(format string, args ...any) {
	fmt.Fprintf(s.stdout, "[INFO] "+format+"\n", args...)
}

// logWarn logs a warning message
func (s *Server) logWarn(format string, args ...any) {
	fmt.Fprintf(s.stderr, "[WARN] "+format+"\n", args...)
}

// logError logs an error message
func (s *Server) logError(format string, args ...any) {
	fmt.Fprintf(s.stderr, "[ERROR] "+format+"\n", args...)
}
