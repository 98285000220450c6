// Package registry provides the small generic name-to-item store backing
// process-wide lookups such as the tool registry.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Named is a concurrency-safe registry keyed by unique, non-empty names.
// The zero value is not usable; construct with New.
type Named[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// New returns an empty registry.
func New[T any]() *Named[T] {
	return &Named[T]{items: make(map[string]T)}
}

// Register stores item under name. Empty and already-taken names are
// rejected so registrations never silently shadow each other.
func (r *Named[T]) Register(name string, item T) error {
	if name == "" {
		return fmt.Errorf("registry: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.items[name]; taken {
		return fmt.Errorf("registry: %q already registered", name)
	}
	r.items[name] = item
	return nil
}

// Lookup returns the item registered under name.
func (r *Named[T]) Lookup(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[name]
	return item, ok
}

// Names returns all registered names, sorted for deterministic iteration.
func (r *Named[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered items.
func (r *Named[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Deregister removes the item registered under name.
func (r *Named[T]) Deregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[name]; !ok {
		return fmt.Errorf("registry: %q not registered", name)
	}
	delete(r.items, name)
	return nil
}
