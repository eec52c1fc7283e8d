// Package refdoc loads the Extended Basic keyword reference and renders
// it as HTML, with code samples highlighted as listings.
//
// The reference is a YAML document:
//
//	keywords:
//	  CALL CLEAR:
//	    format: CALL CLEAR
//	    description: Clears the screen.
//	    options: ...
//	    examples: ...
//	    program: ...
//
// Every field except format is Markdown.
package refdoc

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoKeywords is returned when a document has no keywords mapping.
var ErrNoKeywords = errors.New("reference has no keywords mapping")

// Keyword is one entry of the reference.
type Keyword struct {
	Name        string `yaml:"-" json:"name"`
	Format      string `yaml:"format" json:"format"`
	Description string `yaml:"description" json:"description"`
	Options     string `yaml:"options" json:"options,omitempty"`
	Examples    string `yaml:"examples" json:"examples,omitempty"`
	Program     string `yaml:"program" json:"program,omitempty"`
}

// Text returns the entry as plain text for terminal display.
func (k *Keyword) Text() string {
	var sb strings.Builder
	sb.WriteString(k.Name + "\n\n")
	for _, s := range []string{k.Format, k.Description, k.Options, k.Examples, k.Program} {
		if s = strings.TrimSpace(s); s != "" {
			sb.WriteString(s + "\n\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// Reference is a parsed keyword reference. Keywords keep document order.
type Reference struct {
	Keywords []*Keyword
	byName   map[string]*Keyword
}

// Load reads and parses the reference at path.
func Load(path string) (*Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference: %w", err)
	}
	ref, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}

// Parse parses a YAML reference document.
func Parse(data []byte) (*Reference, error) {
	var doc struct {
		Keywords yaml.Node `yaml:"keywords"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing reference: %w", err)
	}
	if doc.Keywords.Kind != yaml.MappingNode {
		return nil, ErrNoKeywords
	}

	ref := &Reference{byName: make(map[string]*Keyword)}
	content := doc.Keywords.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := content[i].Value
		kw := &Keyword{}
		if err := content[i+1].Decode(kw); err != nil {
			return nil, fmt.Errorf("keyword %s (line %d): %w", name, content[i].Line, err)
		}
		kw.Name = name

		key := strings.ToUpper(name)
		if _, dup := ref.byName[key]; dup {
			return nil, fmt.Errorf("keyword %s (line %d): duplicate entry", name, content[i].Line)
		}
		ref.byName[key] = kw
		ref.Keywords = append(ref.Keywords, kw)
	}
	return ref, nil
}

// Lookup finds a keyword by name, ignoring case.
func (r *Reference) Lookup(name string) (*Keyword, bool) {
	kw, ok := r.byName[strings.ToUpper(strings.TrimSpace(name))]
	return kw, ok
}

// Names returns the keyword names in sorted order.
func (r *Reference) Names() []string {
	names := make([]string, len(r.Keywords))
	for i, kw := range r.Keywords {
		names[i] = kw.Name
	}
	sort.Strings(names)
	return names
}
