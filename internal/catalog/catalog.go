// Package catalog reads the template catalog: a JSON object mapping template
// ids to their description, caption format, and tags.
//
// Catalog file shape:
//
//	{
//	  "drake_approve": {"description": "...", "format": "two_panels", "tags": ["choice"]},
//	  "this_is_fine":  {"description": "...", "format": "single_caption", "tags": []}
//	}
//
// The catalog is read-only to the renderer. [Store] adds atomic reloads for
// long-running callers.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrUnknownTemplate is returned when a template id is absent from the catalog.
var ErrUnknownTemplate = errors.New("template not found")

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Template describes one catalog entry.
type Template struct {
	// ID is the catalog key and the base name of the backing image file.
	ID string `json:"id"`
	// Description is the natural-language summary used by template selection.
	Description string `json:"description"`
	// Format is the caption-slot layout the template expects.
	Format Format `json:"format"`
	// Tags are free-form labels used for filtering.
	Tags []string `json:"tags"`
}

// HasTag reports whether t carries tag (case-insensitive).
func (t Template) HasTag(tag string) bool {
	return slices.ContainsFunc(t.Tags, func(s string) bool {
		return strings.EqualFold(s, tag)
	})
}

// Catalog is an immutable set of templates keyed by id.
type Catalog struct {
	templates map[string]Template
	ids       []string
}

// ///////////////////////////////////////////////
// Loading
// ///////////////////////////////////////////////

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes catalog JSON. Entries whose embedded "id" disagrees with
// their key are rejected; a missing "id" takes the key.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]Template
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	c := &Catalog{templates: make(map[string]Template, len(raw))}
	for key, t := range raw {
		if t.ID == "" {
			t.ID = key
		}
		if t.ID != key {
			return nil, fmt.Errorf("template %q: id field %q does not match key", key, t.ID)
		}
		if t.Format == 0 {
			return nil, fmt.Errorf("template %q: missing format", key)
		}
		c.templates[key] = t
		c.ids = append(c.ids, key)
	}
	slices.Sort(c.ids)
	return c, nil
}

// New builds a catalog from in-memory templates.
func New(templates ...Template) *Catalog {
	c := &Catalog{templates: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if _, dup := c.templates[t.ID]; !dup {
			c.ids = append(c.ids, t.ID)
		}
		c.templates[t.ID] = t
	}
	slices.Sort(c.ids)
	return c
}

// ///////////////////////////////////////////////
// Queries
// ///////////////////////////////////////////////

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.ids) }

// Lookup returns the template with the given id.
func (c *Catalog) Lookup(id string) (Template, error) {
	t, ok := c.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	return t, nil
}

// All returns every template sorted by id.
func (c *Catalog) All() []Template {
	out := make([]Template, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.templates[id])
	}
	return out
}

// Filter returns templates whose id matches the doublestar glob pattern and,
// when tag is non-empty, that carry tag. An empty pattern matches every id.
func (c *Catalog) Filter(pattern, tag string) ([]Template, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}
	var out []Template
	for _, id := range c.ids {
		t := c.templates[id]
		if pattern != "" {
			matched, err := doublestar.Match(pattern, id)
			if err != nil {
				return nil, fmt.Errorf("match %q: %w", pattern, err)
			}
			if !matched {
				continue
			}
		}
		if tag != "" && !t.HasTag(tag) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// ///////////////////////////////////////////////
// Store
// ///////////////////////////////////////////////

// Store holds the current catalog for a file and swaps it atomically on
// [Store.Reload]. Lookups never observe a partially loaded catalog.
type Store struct {
	// path is the catalog file backing this store.
	path string
	// cur is the most recently loaded catalog.
	cur atomic.Pointer[Catalog]
}

// NewStore loads the catalog at path.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the catalog file path.
func (s *Store) Path() string { return s.path }

// Reload re-reads the catalog file. On error the previous catalog stays active.
func (s *Store) Reload() error {
	c, err := Load(s.path)
	if err != nil {
		return err
	}
	s.cur.Store(c)
	return nil
}

// Current returns the active catalog.
func (s *Store) Current() *Catalog { return s.cur.Load() }

// Lookup resolves id against the active catalog.
func (s *Store) Lookup(id string) (Template, error) {
	return s.Current().Lookup(id)
}
