// Package catalog holds the static item catalog: every item definition the
// game knows, independent of any account. It is loaded once, from a JSON file
// (optionally zstd compressed) or from the local sqlite store, and never
// changes for the lifetime of a process.
package catalog

import (
	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/log"
)

// Catalog is an immutable set of entries keyed by id.
type Catalog struct {
	entries []core.CatalogEntry
	byID    map[int]int
}

// New builds a catalog. Entries without a positive id or a name are dropped,
// and so are later entries reusing an id; each drop is logged.
func New(entries []core.CatalogEntry) *Catalog {
	l := log.ForService("catalog")
	c := &Catalog{
		entries: make([]core.CatalogEntry, 0, len(entries)),
		byID:    make(map[int]int, len(entries)),
	}
	dropped := 0
	for _, e := range entries {
		if e.ID <= 0 || e.Name == "" {
			dropped++
			l.Debugf("dropping malformed entry %d %q", e.ID, e.Name)
			continue
		}
		if _, dup := c.byID[e.ID]; dup {
			dropped++
			l.Warnf("duplicate item id %d (%q), keeping the first", e.ID, e.Name)
			continue
		}
		c.byID[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	if dropped > 0 {
		l.Warnf("dropped %d of %d catalog entries", dropped, len(entries))
	}
	return c
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns the entries in load order. The slice must not be modified.
func (c *Catalog) Entries() []core.CatalogEntry {
	if c == nil {
		return nil
	}
	return c.entries
}

func (c *Catalog) Lookup(id int) (core.CatalogEntry, bool) {
	if c == nil {
		return core.CatalogEntry{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return core.CatalogEntry{}, false
	}
	return c.entries[i], true
}
