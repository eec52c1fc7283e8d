package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggerText(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "text", nil)

	req := httptest.NewRequest("GET", "/view/game.xb", nil)
	rec := httptest.NewRecorder()
	logger.ServeHTTP(rec, req)

	log := buf.String()
	id := rec.Header().Get(RequestIDHeader)
	for _, want := range []string{"GET", "/view/game.xb", "200", " 2 B ", id} {
		if !strings.Contains(log, want) {
			t.Errorf("log should contain %q: %s", want, log)
		}
	}
	if id == "" {
		t.Error("expected a request id on the response")
	}
}

func TestRequestLoggerJSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID(r) != "fixed-id" {
			t.Errorf("handler should see the client's request id, got %q", requestID(r))
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad"))
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "json", nil)

	req := httptest.NewRequest("GET", "/api/hex/ZZ", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set(RequestIDHeader, "fixed-id")
	rec := httptest.NewRecorder()
	logger.ServeHTTP(rec, req)

	var entry RequestLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nlog: %s", err, buf.String())
	}

	if entry.Method != "GET" || entry.Path != "/api/hex/ZZ" || entry.Status != http.StatusBadRequest {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.RequestID != "fixed-id" {
		t.Errorf("expected request id fixed-id, got %q", entry.RequestID)
	}
	if entry.Bytes != 3 {
		t.Errorf("expected 3 body bytes, got %d", entry.Bytes)
	}
	if entry.UserAgent != "test-agent" {
		t.Errorf("expected user agent test-agent, got %q", entry.UserAgent)
	}
	if entry.Timestamp == "" || entry.Duration == "" {
		t.Error("timestamp and duration should be set")
	}
}

func TestRequestLoggerImplicitStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no explicit status"))
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "", nil)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	logger.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), " 200 ") {
		t.Errorf("expected implicit 200 in text log: %s", buf.String())
	}
}

func TestWithRequestID(t *testing.T) {
	var seen string
	handler := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("expected matching ids, handler saw %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}
	if len(seen) != 36 {
		t.Errorf("expected a UUID, got %q", seen)
	}
}
