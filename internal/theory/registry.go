package theory

import (
	"fmt"

	"github.com/li2092/cyber-mantic/internal/domain"
)

// Registry is the static catalog of available estimators. It is populated
// once at startup and read-only afterwards; sessions never mutate it.
type Registry struct {
	order   []string
	entries map[string]entry
}

type entry struct {
	descriptor *domain.TheoryDescriptor
	runner     domain.TheoryRunner
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a theory. Registration order is significant: it is the
// stable tie-break order during selection.
func (r *Registry) Register(d *domain.TheoryDescriptor, runner domain.TheoryRunner) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("descriptor requires a name")
	}
	if _, exists := r.entries[d.Name]; exists {
		return fmt.Errorf("theory %q already registered", d.Name)
	}
	if runner == nil {
		return fmt.Errorf("theory %q requires a runner", d.Name)
	}
	r.order = append(r.order, d.Name)
	r.entries[d.Name] = entry{descriptor: d, runner: runner}
	return nil
}

func (r *Registry) Descriptor(name string) (*domain.TheoryDescriptor, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.descriptor, true
}

func (r *Registry) Runner(name string) (domain.TheoryRunner, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.runner, true
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []*domain.TheoryDescriptor {
	out := make([]*domain.TheoryDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].descriptor)
	}
	return out
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.order) }

// Default builds a registry with the eight built-in estimators.
func Default() *Registry {
	r := NewRegistry()
	for _, b := range builtins() {
		// Built-in descriptors are well-formed; a failure here is a
		// programming error.
		if err := r.Register(b.descriptor, b.runner); err != nil {
			panic(err)
		}
	}
	return r
}
