package tree

import (
	"fmt"
	"sync"
)

// Kind is a node's declared type tag, resolved from the template's string
// tag once at parse time. Widget handlers are keyed by Kind, so materialize
// never does a string lookup.
type Kind uint8

// KindUnknown is the zero Kind, used for tags the registry does not know.
// In debug mode a placeholder view is rendered for such nodes; in production
// they render as silently-empty views.
const KindUnknown Kind = 0

// KindSpec describes the static capabilities of one node kind.
type KindSpec struct {
	// Name is the template tag, e.g. "view", "text".
	Name string
	// Container is true for kinds that host children and have no intrinsic
	// content of their own. Container kinds are candidates for flattening.
	Container bool
	// Measurable is true for leaf kinds whose intrinsic size must be
	// supplied by a measurement callback during layout.
	Measurable bool
}

// Registry maps template tags to a closed set of kinds. It is populated
// during setup (typically once, before any parsing) and read-only afterward.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Kind
	specs  []KindSpec
}

// Built-in kinds present in every registry.
const (
	KindView Kind = iota + 1
	KindText
	KindImage
)

// NewRegistry returns a registry seeded with the built-in view, text and
// image kinds.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]Kind),
		// Index 0 is the unknown kind.
		specs: []KindSpec{{Name: "unknown"}},
	}
	for _, spec := range []KindSpec{
		{Name: "view", Container: true},
		{Name: "text", Measurable: true},
		{Name: "image"},
	} {
		if _, err := r.Register(spec); err != nil {
			panic(err) // unreachable: fresh registry
		}
	}
	return r
}

// Register adds a kind and returns its tag value.
// Registering a duplicate name or exceeding the Kind value space fails.
func (r *Registry) Register(spec KindSpec) (Kind, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if spec.Name == "" {
		return KindUnknown, fmt.Errorf("tree: kind name must not be empty")
	}
	if _, exists := r.byName[spec.Name]; exists {
		return KindUnknown, fmt.Errorf("tree: kind %q already registered", spec.Name)
	}
	if len(r.specs) > 255 {
		return KindUnknown, fmt.Errorf("tree: kind space exhausted registering %q", spec.Name)
	}
	kind := Kind(len(r.specs))
	r.specs = append(r.specs, spec)
	r.byName[spec.Name] = kind
	return kind, nil
}

// Lookup resolves a template tag to its Kind.
func (r *Registry) Lookup(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.byName[name]
	return kind, ok
}

// Spec returns the KindSpec for a kind. Unregistered values map to the
// unknown spec.
func (r *Registry) Spec(kind Kind) KindSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(kind) >= len(r.specs) {
		return r.specs[0]
	}
	return r.specs[kind]
}
