package jigsaw

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps names to view classes.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// DefaultRegistry is the registry used by the package-level Register and
// Lookup.
var DefaultRegistry = NewRegistry()

// Register adds c under its name. Registering a second class under the
// same name fails.
func (r *Registry) Register(c *Class) error {
	if c == nil {
		return fmt.Errorf("jigsaw: register of nil class")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.classes[c.name]; ok {
		return fmt.Errorf("jigsaw: class %q already registered", c.name)
	}
	r.classes[c.name] = c
	return nil
}

// Lookup returns the class registered under name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// MustLookup returns the class registered under name or panics.
func (r *Registry) MustLookup(name string) *Class {
	c, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Errorf("jigsaw: registry missing class %q", name))
	}
	return c
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register adds c to DefaultRegistry.
func Register(c *Class) error {
	return DefaultRegistry.Register(c)
}

// Lookup finds a class in DefaultRegistry.
func Lookup(name string) (*Class, bool) {
	return DefaultRegistry.Lookup(name)
}
