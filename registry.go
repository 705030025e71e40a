package cfgenius

import (
	"sort"
)

// Visibility controls whether a binding survives Exports().
type Visibility int

const (
	Private Visibility = iota
	Public
)

// String returns the declaration spelling of the visibility.
func (v Visibility) String() string {
	if v == Public {
		return "pub"
	}
	return "priv"
}

// MacroPredicate is the delegation contract for macro(path) predicates. The
// engine calls Expand with the optional argument block and the two candidate
// branches; the implementation must return exactly yes or exactly no and
// nothing else. Branch values are opaque, so a conforming implementation can
// only pick one of the two values it was handed.
type MacroPredicate interface {
	Expand(args *TokenSeq, yes, no Branch) (Branch, error)
}

// MacroPredicateFunc adapts a function to the MacroPredicate interface.
type MacroPredicateFunc func(args *TokenSeq, yes, no Branch) (Branch, error)

// Expand implements the MacroPredicate interface.
func (f MacroPredicateFunc) Expand(args *TokenSeq, yes, no Branch) (Branch, error) {
	return f(args, yes, no)
}

// Truthy and Falsy are the two canonical nullary selectors. Every named
// variable ultimately reduces to one of them, and any predicate result can be
// reified by binding a name to whichever one matches.
var (
	Truthy MacroPredicate = MacroPredicateFunc(
		func(_ *TokenSeq, yes, _ Branch) (Branch, error) { return yes, nil })
	Falsy MacroPredicate = MacroPredicateFunc(
		func(_ *TokenSeq, _, no Branch) (Branch, error) { return no, nil })
)

type binding struct {
	macro MacroPredicate
	vis   Visibility
}

// Registry maps dotted paths to macro predicates. Bindings are never mutated
// or removed once made; redefining a path replaces the binding wholesale.
type Registry struct {
	byPath map[string]binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byPath: map[string]binding{}}
}

// Register binds a macro predicate under a dotted path with Public visibility.
func (r *Registry) Register(path string, m MacroPredicate) {
	r.RegisterScoped(path, Public, m)
}

// RegisterScoped binds a macro predicate under an explicit visibility.
func (r *Registry) RegisterScoped(path string, vis Visibility, m MacroPredicate) {
	r.byPath[path] = binding{macro: m, vis: vis}
}

func (r *Registry) lookup(path string) (MacroPredicate, bool) {
	b, ok := r.byPath[path]
	return b.macro, ok
}

// Exports returns a new registry holding only the public bindings, for reuse
// in another scope.
func (r *Registry) Exports() *Registry {
	out := NewRegistry()
	for path, b := range r.byPath {
		if b.vis == Public {
			out.byPath[path] = b
		}
	}
	return out
}

// Paths lists the bound paths in sorted order.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.byPath))
	for path := range r.byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
