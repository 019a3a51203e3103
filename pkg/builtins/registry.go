// Package builtins provides the Rev host function registry.
package builtins

import (
	"sort"

	"github.com/thomasrohde/rev/pkg/evaluator"
)

// Registry holds registered builtins.
type Registry struct {
	fns map[string]*evaluator.Builtin
}

// NewRegistry creates a new empty builtin registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*evaluator.Builtin),
	}
}

// Default returns a registry holding every standard builtin.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// Register adds a builtin to the registry, replacing any with the same name.
func (r *Registry) Register(fn evaluator.Builtin) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a builtin by name.
func (r *Registry) Get(name string) *evaluator.Builtin {
	return r.fns[name]
}

// Map returns a copy of the registry in the form ExecOptions expects.
func (r *Registry) Map() map[string]*evaluator.Builtin {
	out := make(map[string]*evaluator.Builtin, len(r.fns))
	for name, fn := range r.fns {
		out[name] = fn
	}
	return out
}

// Arity returns the parameter count of every builtin, for static validation.
func (r *Registry) Arity() map[string]int {
	out := make(map[string]int, len(r.fns))
	for name, fn := range r.fns {
		out[name] = fn.Arity
	}
	return out
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
