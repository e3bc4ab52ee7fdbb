package functions

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"mercator-hq/cascade/pkg/less/ast"
)

// Func is a callable exposed to stylesheets.
type Func func(call *Call, args []ast.Node) (any, error)

// Definition is a registered callable.
type Definition struct {
	Fn Func
	// RawArgs callables receive their arguments unevaluated and evaluate
	// them through Call.Env.
	RawArgs bool
}

// Registry manages registered functions in a thread-safe manner.
type Registry struct {
	mu     sync.RWMutex
	parent *Registry
	funcs  map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Definition)}
}

// NewBuiltinRegistry creates a registry holding every builtin function.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	registerBoolean(r)
	registerTypes(r)
	registerList(r)
	registerStrings(r)
	registerMath(r)
	registerColor(r)
	return r
}

// Add registers fn under name, replacing any previous definition in this
// registry.
func (r *Registry) Add(name string, fn Func) {
	r.set(name, Definition{Fn: fn})
}

// AddRaw registers fn as a callable that receives unevaluated arguments.
func (r *Registry) AddRaw(name string, fn Func) {
	r.set(name, Definition{Fn: fn, RawArgs: true})
}

// AddMultiple registers every function of fns.
func (r *Registry) AddMultiple(fns map[string]Func) {
	for name, fn := range fns {
		r.Add(name, fn)
	}
}

func (r *Registry) set(name string, def Definition) {
	if name == "" || def.Fn == nil {
		panic(fmt.Sprintf("functions: invalid registration %q", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[strings.ToLower(name)] = def
}

// Get looks name up in the registry and then in its ancestors.
func (r *Registry) Get(name string) (Definition, bool) {
	name = strings.ToLower(name)
	for cur := r; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		def, ok := cur.funcs[name]
		cur.mu.RUnlock()
		if ok {
			return def, true
		}
	}
	return Definition{}, false
}

// Inherit returns an empty child registry that falls back to r.
func (r *Registry) Inherit() *Registry {
	child := NewRegistry()
	child.parent = r
	return child
}

// List returns all names visible from the registry, sorted.
func (r *Registry) List() []string {
	seen := map[string]bool{}
	for cur := r; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		for name := range cur.funcs {
			seen[name] = true
		}
		cur.mu.RUnlock()
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
