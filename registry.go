package relic

import (
	"fmt"
	"sort"
	"strings"

	radix "github.com/armon/go-radix"
	"github.com/zoobzio/sentinel"
)

// Registry is the compile-once descriptor table. Registration happens
// single-threaded while the engine is constructed; once the engine
// starts the registry is read-only, so request-time lookups and
// document builds need no locking.
type Registry struct {
	index      *radix.Tree // "route verb" -> *boundOperation
	components map[string]ComponentSpec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index:      radix.New(),
		components: make(map[string]ComponentSpec),
	}
}

// registryKey builds the index key. The route template leads so walks
// group operations by path in lexicographic order.
func registryKey(route, verb string) string {
	return route + " " + strings.ToLower(verb)
}

// Register compiles and indexes every operation the resource exposes.
// Registering a (route, verb) pair twice is an error.
func (reg *Registry) Register(res Resource) ([]*boundOperation, error) {
	ops, err := discoverOperations(res)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		key := registryKey(op.Route, op.Spec.Operation)
		if _, exists := reg.index.Get(key); exists {
			return nil, fmt.Errorf("duplicate operation %s %s", strings.ToUpper(op.Spec.Operation), op.Route)
		}
	}
	for _, op := range ops {
		reg.index.Insert(registryKey(op.Route, op.Spec.Operation), op)
	}
	return ops, nil
}

// Lookup returns the descriptor bound to (route, verb).
func (reg *Registry) Lookup(route, verb string) (*OperationSpec, bool) {
	v, ok := reg.index.Get(registryKey(route, verb))
	if !ok {
		return nil, false
	}
	return v.(*boundOperation).Spec, true
}

// Operations returns every registered operation in route order.
func (reg *Registry) Operations() []*boundOperation {
	out := make([]*boundOperation, 0, reg.index.Len())
	reg.index.Walk(func(_ string, v any) bool {
		out = append(out, v.(*boundOperation))
		return false
	})
	return out
}

// Len returns the number of registered operations.
func (reg *Registry) Len() int {
	return reg.index.Len()
}

// Skipped returns the annotation entries that failed to compile, keyed
// by operation ID. Useful for catching typos at startup.
func (reg *Registry) Skipped() map[string][]string {
	out := make(map[string][]string)
	reg.index.Walk(func(_ string, v any) bool {
		op := v.(*boundOperation)
		if len(op.Skipped) > 0 {
			out[op.Spec.OperationID] = op.Skipped
		}
		return false
	})
	return out
}

// ComponentSpec is a named schema component extracted from a Go struct.
// Annotation blocks reference components by name in :response entries.
type ComponentSpec struct {
	Name string
	Meta sentinel.ModelMetadata
}

// Component scans T and names its schema for :response references:
//
//	engine.WithComponents(relic.Component[User]("user"))
func Component[T any](name string) ComponentSpec {
	return ComponentSpec{Name: name, Meta: sentinel.Scan[T]()}
}

// AddComponent stores a named component. Later registrations under the
// same name replace earlier ones.
func (reg *Registry) AddComponent(c ComponentSpec) {
	reg.components[c.Name] = c
}

// Component returns the named component.
func (reg *Registry) Component(name string) (ComponentSpec, bool) {
	c, ok := reg.components[name]
	return c, ok
}

// ComponentNames returns registered component names in sorted order so
// document output is deterministic.
func (reg *Registry) ComponentNames() []string {
	names := make([]string, 0, len(reg.components))
	for name := range reg.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
