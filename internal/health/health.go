// Package health aggregates liveness checks for the server's subsystems.
package health

import (
	"context"
	"sync"
)

// Checker probes one subsystem. A nil return means healthy; a non-nil
// error becomes the subsystem's detail string.
type Checker func(ctx context.Context) error

// Status is the outcome of a single subsystem check.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Registry holds named checkers and runs them on demand. Checkers run
// in registration order so /health output is stable.
type Registry struct {
	mu    sync.RWMutex
	names []string
	byName map[string]Checker
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Checker)}
}

// Register adds a checker under the given name. Registering the same
// name twice replaces the earlier checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; !exists {
		r.names = append(r.names, name)
	}
	r.byName[name] = check
}

// CheckAll runs every registered checker and reports whether all passed,
// along with per-subsystem results.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	checks := make(map[string]Checker, len(r.byName))
	for n, c := range r.byName {
		checks[n] = c
	}
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		st := Status{Name: name, Healthy: true}
		if err := checks[name](ctx); err != nil {
			st.Healthy = false
			st.Detail = err.Error()
			healthy = false
		}
		statuses = append(statuses, st)
	}
	return healthy, statuses
}
