package behavior

import (
	"fmt"
	"sync"
)

// Canceler is implemented by stored values that own background work. The
// store cancels them when their entry is deleted.
type Canceler interface {
	Cancel()
}

// Store holds every piece of per-agent and per-node state of one tree.
// It is safe for concurrent use so that one tree can be shared by worlds
// ticking on different goroutines.
type Store struct {
	mu   sync.RWMutex
	data map[Key]any
}

func NewStore() *Store {
	return &Store{data: make(map[Key]any)}
}

// Set stores value under k. A nil value deletes the entry.
func (s *Store) Set(k Key, value any) {
	if value == nil {
		s.Delete(k)
		return
	}
	s.mu.Lock()
	s.data[k] = value
	s.mu.Unlock()
}

// Load returns the raw value stored under k.
func (s *Store) Load(k Key) (any, bool) {
	s.mu.RLock()
	v, ok := s.data[k]
	s.mu.RUnlock()
	return v, ok
}

func (s *Store) Exists(k Key) bool {
	_, ok := s.Load(k)
	return ok
}

// Delete removes k and reports whether it was present.
func (s *Store) Delete(k Key) bool {
	s.mu.Lock()
	v, ok := s.data[k]
	delete(s.data, k)
	s.mu.Unlock()
	if ok {
		cancelValue(v)
	}
	return ok
}

// DeleteAgent removes every entry scoped to agent and returns how many were removed.
func (s *Store) DeleteAgent(agent AgentID) int {
	return s.deleteWhere(func(k Key) bool {
		return k.hasAgent && k.agent == agent
	})
}

// DeleteNodes removes the entries scoped to both agent and one of nodes.
// Node-only entries are shared between agents and survive.
func (s *Store) DeleteNodes(agent AgentID, nodes ...NodeID) int {
	if len(nodes) == 0 {
		return 0
	}
	set := make(map[NodeID]struct{}, len(nodes))
	for _, n := range nodes {
		set[n] = struct{}{}
	}
	return s.deleteWhere(func(k Key) bool {
		if !k.hasNode || !k.hasAgent || k.agent != agent {
			return false
		}
		_, ok := set[k.node]
		return ok
	})
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns a snapshot of the stored keys in no particular order.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Key, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}

func (s *Store) deleteWhere(match func(Key) bool) int {
	var removed []any
	s.mu.Lock()
	for k, v := range s.data {
		if match(k) {
			removed = append(removed, v)
			delete(s.data, k)
		}
	}
	s.mu.Unlock()
	for _, v := range removed {
		cancelValue(v)
	}
	return len(removed)
}

func cancelValue(v any) {
	if c, ok := v.(Canceler); ok {
		c.Cancel()
	}
}

// Get reads k as a T. An absent key yields (zero, false, nil); a value of a
// different type yields ErrVariableTypeMismatch.
func Get[T any](s *Store, k Key) (T, bool, error) {
	var zero T
	raw, ok := s.Load(k)
	if !ok {
		return zero, false, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, true, fmt.Errorf("%w: %q holds %T, want %T", ErrVariableTypeMismatch, k.name, raw, zero)
	}
	return v, true, nil
}
