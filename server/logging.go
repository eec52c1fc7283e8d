package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// requestID returns the id assigned to the request by withRequestID.
func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// ensureRequestID keeps a client supplied id or generates a new one, and
// echoes it on the response.
func ensureRequestID(w http.ResponseWriter, r *http.Request) *http.Request {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	return r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
}

// withRequestID tags requests without logging them.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, ensureRequestID(w, r))
	})
}

// requestLogger is middleware that logs HTTP requests
type requestLogger struct {
	handler http.Handler
	output  io.Writer
	format  string // "json" or "text"
	devLog  *DevLog
}

// RequestLogEntry represents a single request log entry
type RequestLogEntry struct {
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	Duration   string `json:"duration"`
	DurationMs int64  `json:"duration_ms"`
	Bytes      int64  `json:"bytes"` // body size before compression
	ClientIP   string `json:"client_ip"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// responseCapture wraps http.ResponseWriter to capture status code and size
type responseCapture struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.status = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	n, err := rc.ResponseWriter.Write(b)
	rc.bytes += int64(n)
	return n, err
}

// newRequestLogger creates request logging middleware. devLog may be nil.
func newRequestLogger(handler http.Handler, output io.Writer, format string, devLog *DevLog) *requestLogger {
	if format == "" {
		format = "text"
	}
	return &requestLogger{
		handler: handler,
		output:  output,
		format:  format,
		devLog:  devLog,
	}
}

func (rl *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r = ensureRequestID(w, r)

	rc := &responseCapture{ResponseWriter: w, status: 0}
	rl.handler.ServeHTTP(rc, r)

	duration := time.Since(start)

	entry := RequestLogEntry{
		Timestamp:  start.Format(time.RFC3339),
		RequestID:  requestID(r),
		Method:     r.Method,
		Path:       r.URL.Path,
		Status:     rc.status,
		Duration:   duration.String(),
		DurationMs: duration.Milliseconds(),
		Bytes:      rc.bytes,
		ClientIP:   extractIP(r.RemoteAddr),
		UserAgent:  r.UserAgent(),
	}

	if rl.format == "json" {
		rl.writeJSON(entry)
	} else {
		rl.writeText(entry)
	}

	if rl.devLog != nil {
		if err := rl.devLog.Log(entry); err != nil {
			fmt.Fprintf(rl.output, "[WARN] dev log write failed: %v\n", err)
		}
	}
}

func (rl *requestLogger) writeJSON(entry RequestLogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	fmt.Fprintf(rl.output, "%s\n", data)
}

func (rl *requestLogger) writeText(entry RequestLogEntry) {
	fmt.Fprintf(rl.output, "%s %s %s %d %s %s %s\n",
		entry.Timestamp,
		entry.Method,
		entry.Path,
		entry.Status,
		entry.Duration,
		humanize.Bytes(uint64(entry.Bytes)),
		entry.RequestID,
	)
}
