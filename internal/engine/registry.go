package engine

import "fmt"

// Registry holds module descriptors in registration order.
//
// INVARIANTS:
//   - Handles are unique and non-empty
//   - Registration order NEVER changes; it is the tie-breaker in Resolve
type Registry struct {
	descs []Descriptor
	index map[Handle]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[Handle]int)}
}

// Register adds a descriptor to the pending set. Dependencies need not be
// registered yet; they are checked by Resolve.
//
// The dependency slice is copied to prevent later mutation by the caller.
func (r *Registry) Register(d Descriptor) error {
	if d.Handle == "" {
		return ErrEmptyHandle
	}
	if d.New == nil {
		return fmt.Errorf("module %s: %w", d.Handle, ErrNilConstructor)
	}
	if _, dup := r.index[d.Handle]; dup {
		return fmt.Errorf("module %s: %w", d.Handle, ErrDuplicateHandle)
	}

	seen := make(map[Handle]bool, len(d.Dependencies))
	deps := make([]Handle, 0, len(d.Dependencies))
	for _, dep := range d.Dependencies {
		if seen[dep] {
			continue
		}
		seen[dep] = true
		deps = append(deps, dep)
	}
	d.Dependencies = deps

	r.index[d.Handle] = len(r.descs)
	r.descs = append(r.descs, d)
	return nil
}

// MustRegister registers descriptors and panics on error. Intended for
// static catalogs and tests.
func (r *Registry) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Handles returns the registered handles in registration order.
func (r *Registry) Handles() []Handle {
	out := make([]Handle, len(r.descs))
	for i, d := range r.descs {
		out[i] = d.Handle
	}
	return out
}

// Descriptor returns the descriptor registered for h.
func (r *Registry) Descriptor(h Handle) (Descriptor, bool) {
	i, ok := r.index[h]
	if !ok {
		return Descriptor{}, false
	}
	return r.descs[i], true
}

// Len returns the number of registered modules.
func (r *Registry) Len() int { return len(r.descs) }

// Resolve returns the construction order: every dependency precedes its
// dependents, ties broken by registration order.
//
// Errors, checked in this order:
//   - *MissingDependencyError for the first unregistered dependency
//   - *CyclicDependencyError for the first cycle found
func (r *Registry) Resolve() ([]Handle, error) {
	for _, d := range r.descs {
		for _, dep := range d.Dependencies {
			if _, ok := r.index[dep]; !ok {
				return nil, &MissingDependencyError{Module: d.Handle, Dependency: dep}
			}
		}
	}

	if path := r.findCycle(); path != nil {
		return nil, &CyclicDependencyError{Path: path}
	}

	return r.topoOrder(), nil
}

// topoOrder repeatedly emits the earliest-registered module whose
// dependencies have all been emitted. Assumes the graph is acyclic.
func (r *Registry) topoOrder() []Handle {
	emitted := make([]bool, len(r.descs))
	order := make([]Handle, 0, len(r.descs))

	for len(order) < len(r.descs) {
		for i, d := range r.descs {
			if emitted[i] || !r.depsEmitted(d, emitted) {
				continue
			}
			emitted[i] = true
			order = append(order, d.Handle)
			break
		}
	}
	return order
}

func (r *Registry) depsEmitted(d Descriptor, emitted []bool) bool {
	for _, dep := range d.Dependencies {
		if !emitted[r.index[dep]] {
			return false
		}
	}
	return true
}
