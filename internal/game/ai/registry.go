package ai

import (
	"fmt"
	"sort"
	"sync"
)

// Registry indexes Planners by domain ID. It is safe for concurrent use so
// domains can be swapped while hostiles think.
type Registry struct {
	mu       sync.RWMutex
	planners map[string]*Planner
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{planners: make(map[string]*Planner)}
}

// Register adds a planner for domain.
//
// Precondition: domain and caller must not be nil.
// Postcondition: Returns an error when the domain ID is already registered.
func (r *Registry) Register(domain *Domain, caller ScriptCaller, scope string) error {
	p := NewPlanner(domain, caller, scope)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.planners[domain.ID]; exists {
		return fmt.Errorf("ai domain %q already registered", domain.ID)
	}
	r.planners[domain.ID] = p
	return nil
}

// Replace installs a planner for domain, overwriting any existing one.
func (r *Registry) Replace(domain *Domain, caller ScriptCaller, scope string) {
	p := NewPlanner(domain, caller, scope)
	r.mu.Lock()
	r.planners[domain.ID] = p
	r.mu.Unlock()
}

// PlannerFor returns the Planner for domainID.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.planners[domainID]
	return p, ok
}

// IDs returns the registered domain IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.planners))
	for id := range r.planners {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered domains.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.planners)
}
