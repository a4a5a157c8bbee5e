// Package patterns holds the catalog of known high-risk phrasing.
package patterns

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/parafrasa/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed data/patterns.yaml
var defaultCatalog []byte

// ErrLoad marks a catalog that could not be read or parsed
var ErrLoad = errors.New("pattern database load failed")

// category is the on-disk shape of one catalog section
type category struct {
	Weight  float64  `yaml:"weight,omitempty"`
	Phrases []string `yaml:"phrases"`
}

type catalog struct {
	Categories map[string]category `yaml:"categories"`
}

// Database is a read-mostly catalog of category -> phrases.
// Entries only change through Add, which persists and logs the change.
type Database struct {
	mu      sync.RWMutex
	path    string
	cat     catalog
	entries []model.PatternEntry
	version uint64
	logger  *slog.Logger
}

// Default loads the embedded catalog
func Default() (*Database, error) {
	return parse(defaultCatalog, "")
}

// Load reads a catalog file. An empty path loads the embedded catalog.
func Load(path string) (*Database, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrLoad, path, err)
	}
	return parse(data, path)
}

func parse(data []byte, path string) (*Database, error) {
	var cat catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrLoad, err)
	}
	db := &Database{path: path, cat: cat, logger: slog.Default()}
	db.rebuild()
	if len(db.entries) == 0 {
		return nil, fmt.Errorf("%w: catalog has no phrases", ErrLoad)
	}
	return db, nil
}

// SetLogger sets the logger used for the audit trail of Add
func (d *Database) SetLogger(logger *slog.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger = logger
}

// rebuild flattens the catalog into sorted entries. Caller holds the write lock.
func (d *Database) rebuild() {
	names := make([]string, 0, len(d.cat.Categories))
	for name := range d.cat.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	d.entries = d.entries[:0]
	for _, name := range names {
		c := d.cat.Categories[name]
		for _, phrase := range c.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			d.entries = append(d.entries, model.PatternEntry{
				Category: name,
				Phrase:   phrase,
				Weight:   c.Weight,
			})
		}
	}
	d.version++
}

// Entries returns a snapshot of every pattern
func (d *Database) Entries() []model.PatternEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.PatternEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Version changes whenever the catalog does
func (d *Database) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Categories lists category names with their phrase counts
func (d *Database) Categories() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int, len(d.cat.Categories))
	for name, c := range d.cat.Categories {
		out[name] = len(c.Phrases)
	}
	return out
}

// Add appends a phrase to a category and persists the catalog when it was
// loaded from a file. This is an administrative operation; processing never calls it.
func (d *Database) Add(categoryName, phrase string) error {
	categoryName = strings.TrimSpace(categoryName)
	phrase = strings.ToLower(strings.Join(strings.Fields(phrase), " "))
	if categoryName == "" || phrase == "" {
		return fmt.Errorf("category and phrase are required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cat.Categories == nil {
		d.cat.Categories = make(map[string]category)
	}
	c := d.cat.Categories[categoryName]
	for _, existing := range c.Phrases {
		if existing == phrase {
			return fmt.Errorf("phrase already present in %s", categoryName)
		}
	}
	c.Phrases = append(c.Phrases, phrase)
	d.cat.Categories[categoryName] = c
	d.rebuild()

	if d.path != "" {
		if err := d.save(); err != nil {
			return err
		}
	}

	d.logger.Info("Pattern added",
		"category", categoryName,
		"phrase", phrase,
		"path", d.path,
		"version", d.version,
	)
	return nil
}

// SaveAs writes the catalog to path and makes it the persistence target
func (d *Database) SaveAs(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = path
	return d.save()
}

// save writes the catalog atomically. Caller holds the write lock.
func (d *Database) save() error {
	data, err := yaml.Marshal(d.cat)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
