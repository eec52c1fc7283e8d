package server

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors listings, the keyword reference and the config file,
// and reloads browsers when they change
type Watcher struct {
	watcher    *fsnotify.Watcher
	server     *Server
	configPath string
	sourceDir  string
	reference  string
	stdout     io.Writer
	stderr     io.Writer

	// Pending reloads, one trailing-edge timer per changed path
	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]*time.Timer
}

// NewWatcher creates a file watcher for hot reload in dev mode
func NewWatcher(s *Server, configPath string, stdout, stderr io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:    fsWatcher,
		server:     s,
		configPath: configPath,
		sourceDir:  s.config.Source.Dir,
		reference:  s.config.Reference,
		stdout:     stdout,
		stderr:     stderr,
		debounce:   100 * time.Millisecond,
		pending:    make(map[string]*time.Timer),
	}, nil
}

// Start begins watching for file changes
func (w *Watcher) Start(ctx context.Context) error {
	if w.configPath != "" {
		w.watchDir(filepath.Dir(w.configPath), "config", w.configPath)
	}

	// Listings are served from the top level only
	if err := w.watcher.Add(w.sourceDir); err != nil {
		w.logError("failed to watch source dir %s: %v", w.sourceDir, err)
	} else {
		w.logInfo("watching listings: %s", w.sourceDir)
	}

	// Editors often replace files, so watch the reference's directory
	if w.reference != "" {
		w.watchDir(filepath.Dir(w.reference), "reference", w.reference)
	}

	go w.eventLoop(ctx)

	return nil
}

func (w *Watcher) watchDir(dir, what, path string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logError("failed to watch %s dir %s: %v", what, dir, err)
		return
	}
	w.logInfo("watching %s: %s", what, path)
}

// eventLoop processes file system events
func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.classify(event.Name) == "" {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// schedule handles path once no further events for it have arrived
// within the debounce window, so the last write of a burst always lands.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.pending[path] != t {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.mu.Unlock()

		w.handleFileChange(path)
	})
	w.pending[path] = t
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// handleFileChange processes a file change event
func (w *Watcher) handleFileChange(path string) {
	switch w.classify(path) {
	case "config":
		w.logInfo("config changed: %s (restart server for config changes to take effect)", path)
	case "reference":
		w.logInfo("reference changed: %s", path)
		w.server.changed(filepath.Base(path))
	case "listing":
		w.logInfo("listing changed: %s", path)
		w.server.changed(filepath.Base(path))
	}
}

// classify says what a changed path is to the server, or "" when it is
// not of interest.
func (w *Watcher) classify(path string) string {
	if w.configPath != "" && sameFile(path, w.configPath) {
		return "config"
	}
	if w.reference != "" && sameFile(path, w.reference) {
		return "reference"
	}
	name := filepath.Base(path)
	if inDir(path, w.sourceDir) && !strings.HasPrefix(name, ".") && w.server.config.Source.HasExtension(name) {
		return "listing"
	}
	return ""
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// inDir reports whether path names an entry directly inside dir.
func inDir(path, dir string) bool {
	return sameFile(filepath.Dir(path), dir)
}

// isUnder checks if a file path is inside dir.
func isUnder(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...any) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...any) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}
