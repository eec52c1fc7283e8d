package server

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sambeau/xbview/pkg/xb/program"
	"github.com/sambeau/xbview/pkg/xb/refdoc"
)

// listing is a parsed source file together with its text.
type listing struct {
	source  string
	program *program.Program
	modTime time.Time
	size    int64
}

// programCache keeps parsed listings keyed by path. An entry is reused
// while the file's modification time and size are unchanged.
type programCache struct {
	mu      sync.RWMutex
	entries map[string]*listing
}

func newProgramCache() *programCache {
	return &programCache{entries: make(map[string]*listing)}
}

// get returns the parsed listing at path, reading it again when it changed.
func (c *programCache) get(path string) (*listing, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading listing %s: %w", path, err)
	}

	entry = &listing{
		source:  string(data),
		program: program.Parse(string(data)),
		modTime: info.ModTime(),
		size:    info.Size(),
	}

	c.mu.Lock()
	c.entries[path] = entry
	c.mu.Unlock()

	return entry, nil
}

func (c *programCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// clear removes all cached listings (for hot reload)
func (c *programCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]*listing)
	c.mu.Unlock()
}

// errNoReference is returned when no keyword reference is configured.
var errNoReference = errors.New("no keyword reference configured")

// referenceCache loads the keyword reference on first use.
type referenceCache struct {
	path string

	mu  sync.Mutex
	ref *refdoc.Reference
}

func newReferenceCache(path string) *referenceCache {
	return &referenceCache{path: path}
}

func (c *referenceCache) get() (*refdoc.Reference, error) {
	if c.path == "" {
		return nil, errNoReference
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ref != nil {
		return c.ref, nil
	}

	ref, err := refdoc.Load(c.path)
	if err != nil {
		return nil, err
	}
	c.ref = ref
	return ref, nil
}

func (c *referenceCache) clear() {
	c.mu.Lock()
	c.ref = nil
	c.mu.Unlock()
}
