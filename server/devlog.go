package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sambeau/xbview/config"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// DevLog keeps recent requests in a SQLite database for the dev tools.
type DevLog struct {
	mu          sync.RWMutex
	db          *sql.DB
	path        string
	maxSize     int64  // Maximum database size in bytes (default 10MB)
	truncatePct int    // Percentage to delete when truncating (default 25)
	seq         uint64 // Incremented on each log write
}

// LogEntry is one stored request.
type LogEntry struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	DurationMs int64     `json:"duration_ms"`
	ClientIP   string    `json:"client_ip"`
	Timestamp  time.Time `json:"timestamp"`
}

// DevLogConfig holds configuration for the dev log.
type DevLogConfig struct {
	Path        string // Database file path
	MaxSize     int64  // Max size in bytes (default 10MB)
	TruncatePct int    // Percentage to delete when truncating (default 25%)
}

// NewDevLog creates a new DevLog instance.
// If path is empty, creates a database named "dev_logs.db" in baseDir.
func NewDevLog(baseDir string, cfg DevLogConfig) (*DevLog, error) {
	path := cfg.Path
	if path == "" {
		path = filepath.Join(baseDir, "dev_logs.db")
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening dev log database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to dev log database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	dl := &DevLog{
		db:          db,
		path:        path,
		maxSize:     cfg.MaxSize,
		truncatePct: cfg.TruncatePct,
	}
	if dl.maxSize == 0 {
		dl.maxSize = 10 * 1024 * 1024
	}
	if dl.truncatePct == 0 {
		dl.truncatePct = 25
	}

	if err := dl.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating dev log schema: %w", err)
	}

	return dl, nil
}

func (dl *DevLog) createSchema() error {
	_, err := dl.db.Exec(`
		CREATE TABLE IF NOT EXISTS requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL DEFAULT '',
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			status INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			client_ip TEXT NOT NULL DEFAULT '',
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_requests_path ON requests(path);
		CREATE INDEX IF NOT EXISTS idx_requests_timestamp ON requests(timestamp);
	`)
	return err
}

// Log stores a request log entry.
func (dl *DevLog) Log(entry RequestLogEntry) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if err := dl.maybeAutoTruncate(); err != nil {
		// Log truncation errors but don't fail the log operation
		fmt.Fprintf(os.Stderr, "[WARN] dev log truncation failed: %v\n", err)
	}

	_, err := dl.db.Exec(`
		INSERT INTO requests (request_id, method, path, status, duration_ms, client_ip)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.RequestID, entry.Method, entry.Path, entry.Status, entry.DurationMs, entry.ClientIP)
	if err == nil {
		dl.seq++
	}
	return err
}

// Seq returns the number of entries written since the log was opened.
func (dl *DevLog) Seq() uint64 {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return dl.seq
}

// GetLogs retrieves the newest entries, optionally filtered by path.
func (dl *DevLog) GetLogs(path string, limit int) ([]LogEntry, error) {
	dl.mu.RLock()
	defer dl.mu.RUnlock()

	if limit <= 0 {
		limit = 1000
	}

	query := `SELECT id, request_id, method, path, status, duration_ms, client_ip, timestamp FROM requests`
	args := []any{}
	if path != "" {
		query += ` WHERE path = ?`
		args = append(args, path)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := dl.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Method, &e.Path, &e.Status, &e.DurationMs, &e.ClientIP, &ts); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		e.Timestamp = parseTimestamp(ts)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// parseTimestamp tries the layouts SQLite may hand back.
func parseTimestamp(ts string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ClearLogs removes log entries, optionally filtered by path.
func (dl *DevLog) ClearLogs(path string) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	var err error
	if path == "" {
		_, err = dl.db.Exec("DELETE FROM requests")
	} else {
		_, err = dl.db.Exec("DELETE FROM requests WHERE path = ?", path)
	}
	return err
}

// Count returns the number of log entries, optionally filtered by path.
func (dl *DevLog) Count(path string) (int, error) {
	dl.mu.RLock()
	defer dl.mu.RUnlock()

	var count int
	var err error
	if path == "" {
		err = dl.db.QueryRow("SELECT COUNT(*) FROM requests").Scan(&count)
	} else {
		err = dl.db.QueryRow("SELECT COUNT(*) FROM requests WHERE path = ?", path).Scan(&count)
	}
	return count, err
}

// maybeAutoTruncate drops the oldest entries once the database file
// outgrows maxSize. Must be called with lock held.
func (dl *DevLog) maybeAutoTruncate() error {
	info, err := os.Stat(dl.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < dl.maxSize {
		return nil
	}

	var total int
	if err := dl.db.QueryRow("SELECT COUNT(*) FROM requests").Scan(&total); err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	deleteCount := max((total*dl.truncatePct)/100, 1)
	_, err = dl.db.Exec(`
		DELETE FROM requests WHERE id IN (
			SELECT id FROM requests ORDER BY timestamp ASC, id ASC LIMIT ?
		)
	`, deleteCount)
	if err != nil {
		return fmt.Errorf("truncating logs: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (dl *DevLog) Close() error {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.db.Close()
}

// Path returns the path to the database file.
func (dl *DevLog) Path() string {
	return dl.path
}

// openDevLog opens the request log configured in the dev section.
func (s *Server) openDevLog() error {
	maxSize, err := config.ParseSize(s.config.Dev.LogMaxSize)
	if err != nil {
		return err
	}
	dl, err := NewDevLog(s.config.BaseDir, DevLogConfig{
		Path:        s.config.Dev.LogDatabase,
		MaxSize:     maxSize,
		TruncatePct: s.config.Dev.LogTruncatePct,
	})
	if err != nil {
		return err
	}
	s.devLog = dl
	s.logInfo("dev log: %s", dl.Path())
	return nil
}

// handleDevLogs serves recent requests as JSON. ?path= filters, ?limit=
// caps the count and ?clear=1 empties the log first.
func (s *Server) handleDevLogs(w http.ResponseWriter, r *http.Request) {
	if s.devLog == nil {
		http.Error(w, "dev log not available", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	path := q.Get("path")
	if q.Get("clear") == "1" {
		if err := s.devLog.ClearLogs(path); err != nil {
			s.handle500(w, r, err)
			return
		}
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := s.devLog.GetLogs(path, limit)
	if err != nil {
		s.handle500(w, r, err)
		return
	}

	if q.Has("text") {
		serveLogsText(w, entries)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(struct {
		Count   int        `json:"count"`
		Entries []LogEntry `json:"entries"`
	}{len(entries), entries})
}

// serveLogsText writes entries oldest first, one request per line.
func serveLogsText(w http.ResponseWriter, entries []LogEntry) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if len(entries) == 0 {
		fmt.Fprintln(w, "No logs")
		return
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Fprintf(w, "[%s] %d %s %s %dms %s\n",
			e.Timestamp.Format("15:04:05"), e.Status, e.Method, e.Path, e.DurationMs, e.RequestID)
	}
}
