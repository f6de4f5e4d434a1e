// Package template provides the catalog of ready-made SDUI payloads.
//
// Templates are YAML documents with the payload embedded as JSON text:
//
//	id: hello-world
//	name: Hello World
//	category: Basic
//	description: Simple text and button
//	payload: |
//	  [{"id": "1", "type": "text", "props": {"content": "Hello"}}]
//
// Built-in templates ship embedded in the binary. Extra templates can be
// loaded from a directory. Every template is validated with the tree
// validator when loaded, so a catalog never holds a payload that would be
// rejected at render time. A built-in template that exceeds the active
// limits is left out and reported by Skipped; a directory template that
// does the same fails LoadDir.
package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

//go:embed templates/*.yaml
var builtin embed.FS

// Category groups templates
type Category string

const (
	CategoryBasic       Category = "Basic"
	CategoryForms       Category = "Forms"
	CategoryLayouts     Category = "Layouts"
	CategoryCards       Category = "Cards"
	CategoryInteractive Category = "Interactive"
)

// Categories lists every category in display order
func Categories() []Category {
	return []Category{CategoryBasic, CategoryForms, CategoryLayouts, CategoryCards, CategoryInteractive}
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

var (
	ErrNotFound     = errors.New("template not found")
	ErrDuplicateID  = errors.New("duplicate template id")
	ErrInvalidEntry = errors.New("invalid template")
)

// Template is one catalog entry
type Template struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Category    Category `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description"`
	Payload     string   `yaml:"payload" json:"payload,omitempty"`

	NodeCount int    `yaml:"-" json:"nodeCount"`
	Depth     int    `yaml:"-" json:"depth"`
	Source    string `yaml:"-" json:"source"`
}

// Summary returns the template without its payload
func (t Template) Summary() Template {
	t.Payload = ""
	return t
}

// Catalog holds validated templates in load order
type Catalog struct {
	mu        sync.RWMutex
	templates []*Template
	byID      map[string]*Template
	skipped   []string
	validator *tree.Validator
	logger    *zap.Logger
}

// NewCatalog loads the embedded templates. Embedded templates that exceed
// v's limits are skipped; any other failure is an error.
func NewCatalog(v *tree.Validator, logger *zap.Logger) (*Catalog, error) {
	if v == nil {
		v = tree.DefaultValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{
		byID:      make(map[string]*Template),
		validator: v,
		logger:    logger,
	}
	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		return nil, err
	}
	if err := c.loadFS(sub, "builtin", true); err != nil {
		return nil, fmt.Errorf("failed to load built-in templates: %w", err)
	}
	return c, nil
}

// LoadDir adds every *.yaml and *.yml file under dir, recursively
func (c *Catalog) LoadDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("templates dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("templates dir: %s is not a directory", dir)
	}
	return c.loadFS(os.DirFS(dir), dir, false)
}

// exceedsLimits reports whether err is a size, depth or count violation
func exceedsLimits(err error) bool {
	return errors.Is(err, tree.ErrPayloadTooLarge) ||
		errors.Is(err, tree.ErrMaxDepthExceeded) ||
		errors.Is(err, tree.ErrMaxNodeCountExceeded)
}

// loadFS loads every template in fsys. With skipOverLimit, templates that
// only fail on limits are logged and left out.
func (c *Catalog) loadFS(fsys fs.FS, source string, skipOverLimit bool) error {
	matches, err := doublestar.Glob(fsys, "**/*.{yaml,yml}")
	if err != nil {
		return err
	}
	sort.Strings(matches)

	loaded := make([]*Template, 0, len(matches))
	var skipped []string
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		t, err := c.parse(data)
		if err != nil && skipOverLimit && t != nil && exceedsLimits(err) {
			c.logger.Warn("Template exceeds limits, skipping",
				zap.String("id", t.ID),
				zap.String("source", source),
				zap.Error(err))
			skipped = append(skipped, t.ID)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		t.Source = source
		loaded = append(loaded, t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range loaded {
		if _, exists := c.byID[t.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
		}
	}
	for _, t := range loaded {
		c.templates = append(c.templates, t)
		c.byID[t.ID] = t
	}
	c.skipped = append(c.skipped, skipped...)

	c.logger.Info("Loaded templates",
		zap.String("source", source),
		zap.Int("count", len(loaded)),
		zap.Int("skipped", len(skipped)))
	return nil
}

// parse decodes and validates one template document. When only payload
// validation fails, the decoded template is returned with the error.
func (c *Catalog) parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.UnmarshalWithOptions(data, &t, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	switch {
	case t.ID == "":
		return nil, fmt.Errorf("%w: id is required", ErrInvalidEntry)
	case t.Name == "":
		return nil, fmt.Errorf("%w: %s: name is required", ErrInvalidEntry, t.ID)
	case !t.Category.Valid():
		return nil, fmt.Errorf("%w: %s: unknown category %q", ErrInvalidEntry, t.ID, t.Category)
	}

	parsed, err := c.validator.Load([]byte(t.Payload))
	if err != nil {
		return &t, fmt.Errorf("%w: %s: %w", ErrInvalidEntry, t.ID, err)
	}
	t.NodeCount = parsed.NodeCount()
	t.Depth = parsed.Depth()
	return &t, nil
}

// Len returns the number of templates
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Skipped returns the ids of built-in templates left out for exceeding
// the active limits
func (c *Catalog) Skipped() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.skipped...)
}

// List returns templates in load order. An empty category lists all.
func (c *Catalog) List(category Category) []Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Template, 0, len(c.templates))
	for _, t := range c.templates {
		if category == "" || t.Category == category {
			out = append(out, *t)
		}
	}
	return out
}

// Get returns a template by id
func (c *Catalog) Get(id string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byID[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *t, nil
}

// Tree loads a template's payload as a validated tree
func (c *Catalog) Tree(id string) (*tree.Tree, error) {
	t, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return c.validator.Load([]byte(t.Payload))
}
