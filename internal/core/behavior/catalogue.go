package behavior

import (
	"fmt"
	"sync"

	"github.com/zeusync/behavior/internal/core/observability/log"
)

// Catalogue assigns stable ids to trees and resolves them by id or name.
// Trees are registered once at startup; after Seal the catalogue is read only.
type Catalogue struct {
	mu     sync.RWMutex
	trees  []*Tree
	byName map[string]*Tree
	sealed bool
	logger log.Log
}

func NewCatalogue(logger log.Log) *Catalogue {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Catalogue{
		byName: make(map[string]*Tree),
		logger: logger.Named("behavior"),
	}
}

// Register gives t the next id. Ids follow registration order.
func (c *Catalogue) Register(t *Tree) (TreeID, error) {
	if t == nil {
		return UnregisteredTree, fmt.Errorf("%w: nil tree", ErrUnknownTree)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return UnregisteredTree, fmt.Errorf("register tree %q: %w", t.name, ErrCatalogueSealed)
	}
	if t.catalogue != nil {
		return t.id, fmt.Errorf("%w: %q", ErrTreeRegistered, t.name)
	}
	if _, ok := c.byName[t.name]; ok {
		return UnregisteredTree, fmt.Errorf("%w: name %q taken", ErrTreeRegistered, t.name)
	}
	t.id = TreeID(len(c.trees))
	t.catalogue = c
	t.logger = c.logger.With(log.String("tree", t.name), log.Int("tree_id", int(t.id)))
	c.trees = append(c.trees, t)
	c.byName[t.name] = t
	c.logger.Debug("tree registered", log.String("tree", t.name), log.Int("tree_id", int(t.id)), log.Int("nodes", t.Len()))
	return t.id, nil
}

// MustRegister is Register that panics on error.
func (c *Catalogue) MustRegister(trees ...*Tree) {
	for _, t := range trees {
		if _, err := c.Register(t); err != nil {
			panic(err)
		}
	}
}

// Seal rejects further registrations.
func (c *Catalogue) Seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

func (c *Catalogue) Lookup(id TreeID) (*Tree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || int(id) >= len(c.trees) {
		return nil, false
	}
	return c.trees[id], true
}

func (c *Catalogue) ByName(name string) (*Tree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byName[name]
	return t, ok
}

// All returns the registered trees ordered by id.
func (c *Catalogue) All() []*Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Tree, len(c.trees))
	copy(out, c.trees)
	return out
}

func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.trees)
}
