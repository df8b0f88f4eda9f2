package source

import (
	"fmt"
	"sort"
	"sync"

	"corsa-hq/quaestor/pkg/policy"
)

// Registry holds named custom predicates referenced by rule files.
// All methods are safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]policy.Predicate
}

// NewRegistry creates an empty predicate registry.
func NewRegistry() *Registry {
	return &Registry{
		predicates: make(map[string]policy.Predicate),
	}
}

// Register adds a predicate under the given name. Registering nil or an
// already-taken name is an error; predicates are wired once at startup
// and never silently replaced.
func (r *Registry) Register(name string, predicate policy.Predicate) error {
	if name == "" {
		return fmt.Errorf("predicate name must not be empty")
	}
	if predicate == nil {
		return fmt.Errorf("predicate %q must not be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.predicates[name]; exists {
		return fmt.Errorf("predicate %q already registered", name)
	}
	r.predicates[name] = predicate
	return nil
}

// Lookup returns the predicate registered under the name.
func (r *Registry) Lookup(name string) (policy.Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	predicate, ok := r.predicates[name]
	return predicate, ok
}

// Names returns the registered predicate names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
