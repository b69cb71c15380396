// Package registry builds the immutable exposure table that maps
// (module, verb, function) to a handler and its middleware chain.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/telhawk-systems/schoolhub/internal/capability"
)

var (
	ErrMissingSeparator  = errors.New("exposure entry missing '='")
	ErrUnknownVerb       = errors.New("exposure entry has unknown verb")
	ErrEmptyFunction     = errors.New("exposure entry has empty function name")
	ErrDanglingFunction  = errors.New("exposed function is not defined")
	ErrDanglingGuard     = errors.New("middleware declared for unexposed function")
	ErrDuplicateEntry    = errors.New("duplicate exposure entry")
	ErrDuplicateModule   = errors.New("duplicate module")
	ErrEmptyModuleName   = errors.New("module name is empty")
	ErrNilHandlerOrGuard = errors.New("nil handler or middleware")
)

// Entry is a resolved exposure: the handler and the chain that runs before it.
// Chain holds the global middlewares first, then the entry's own; Globals is
// the number of leading global middlewares.
type Entry struct {
	Descriptor Descriptor
	Handler    capability.Handler
	Chain      []capability.Middleware
	Globals    int
}

// PerEntry returns the middlewares declared by the module for this entry.
func (e *Entry) PerEntry() []capability.Middleware {
	return e.Chain[e.Globals:]
}

// GlobalChain returns the middlewares shared by every entry.
func (e *Entry) GlobalChain() []capability.Middleware {
	return e.Chain[:e.Globals]
}

type key struct {
	module, verb, function string
}

// Registry is read-only after Build and safe for concurrent use.
type Registry struct {
	entries map[key]*Entry
	modules []string
}

// Build validates every module declaration and returns the registry.
// Any malformed declaration is returned as an error; callers treat it as fatal.
func Build(globals []capability.Middleware, modules ...capability.Module) (*Registry, error) {
	for _, mw := range globals {
		if mw == nil {
			return nil, fmt.Errorf("%w: global chain", ErrNilHandlerOrGuard)
		}
	}

	r := &Registry{entries: make(map[key]*Entry)}
	seenModules := make(map[string]bool)

	for _, m := range modules {
		if m.Name == "" {
			return nil, ErrEmptyModuleName
		}
		if seenModules[m.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModule, m.Name)
		}
		seenModules[m.Name] = true
		r.modules = append(r.modules, m.Name)

		exposed := make(map[string]bool)
		for _, raw := range m.Exposed {
			d, err := ParseDescriptor(m.Name, raw)
			if err != nil {
				return nil, err
			}

			handler, ok := m.Functions[d.Function]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrDanglingFunction, d)
			}
			if handler == nil {
				return nil, fmt.Errorf("%w: %s", ErrNilHandlerOrGuard, d)
			}

			k := key{d.Module, d.Verb, d.Function}
			if _, dup := r.entries[k]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, d)
			}

			perEntry := m.Middlewares[d.Function]
			for _, mw := range perEntry {
				if mw == nil {
					return nil, fmt.Errorf("%w: %s", ErrNilHandlerOrGuard, d)
				}
			}

			chain := make([]capability.Middleware, 0, len(globals)+len(perEntry))
			chain = append(chain, globals...)
			chain = append(chain, perEntry...)

			r.entries[k] = &Entry{
				Descriptor: d,
				Handler:    handler,
				Chain:      chain,
				Globals:    len(globals),
			}
			exposed[d.Function] = true
		}

		for function := range m.Middlewares {
			if !exposed[function] {
				return nil, fmt.Errorf("%w: %s.%s", ErrDanglingGuard, m.Name, function)
			}
		}
	}

	return r, nil
}

// MustBuild is Build that panics on error, for wiring known-good declarations in tests.
func MustBuild(globals []capability.Middleware, modules ...capability.Module) *Registry {
	r, err := Build(globals, modules...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve looks up an entry. The verb is matched case-insensitively.
// A miss does not say whether the module, the verb or the function was wrong.
func (r *Registry) Resolve(module, verb, function string) (*Entry, bool) {
	e, ok := r.entries[key{module, strings.ToLower(verb), function}]
	return e, ok
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Modules returns the registered module names in registration order.
func (r *Registry) Modules() []string {
	return append([]string(nil), r.modules...)
}

// Descriptors lists every exposure, for startup logging.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Descriptor)
	}
	return out
}
