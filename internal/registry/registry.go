// Package registry provides the field registry: a mapping from field keys to
// derived-field specs, with an optional fallback registry consulted when a
// key is absent locally. Per-dataset registries are built with a fallback to
// a process-wide default registry so they transparently see the universal
// field set.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gridfire-labs/fieldkit/internal/field"
)

// ErrKeyNotFound is returned when a key is absent from a registry and its
// entire fallback chain.
var ErrKeyNotFound = errors.New("field not found")

// maxFallbackDepth bounds fallback-chain walks. A longer chain is a
// configuration error, not a legitimate layout.
const maxFallbackDepth = 16

// Registry maps field keys to specs. The fallback reference is lookup-only:
// a registry never mutates its fallback and does not own it.
type Registry struct {
	name string

	mu       sync.RWMutex
	specs    map[field.Key]*field.Spec
	order    []field.Key // insertion order; overwrites keep the original slot
	fallback *Registry
}

// New creates an empty registry with no fallback.
func New(name string) *Registry {
	return &Registry{
		name:  name,
		specs: make(map[field.Key]*field.Spec),
	}
}

// CreateWithFallback creates an empty registry whose lookups fall through to
// the given registry. A fallback chain containing a cycle is rejected.
func CreateWithFallback(fallback *Registry, name string) (*Registry, error) {
	r := New(name)
	if err := r.SetFallback(fallback); err != nil {
		return nil, err
	}
	return r, nil
}

// SetFallback installs the fallback registry, rejecting cycles.
func (r *Registry) SetFallback(fallback *Registry) error {
	depth := 0
	for fb := fallback; fb != nil; fb = fb.Fallback() {
		if fb == r {
			return field.Configf("registry %q: fallback cycle", r.name)
		}
		if depth++; depth > maxFallbackDepth {
			return field.Configf("registry %q: fallback chain deeper than %d", r.name, maxFallbackDepth)
		}
	}
	r.mu.Lock()
	r.fallback = fallback
	r.mu.Unlock()
	return nil
}

// Name returns the registry's name.
func (r *Registry) Name() string { return r.name }

// Fallback returns the fallback registry, or nil.
func (r *Registry) Fallback() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// Register stores a spec under its key. Registering a key that already
// exists overwrites it: last write wins.
func (r *Registry) Register(spec *field.Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := spec.Key()
	if _, exists := r.specs[key]; !exists {
		r.order = append(r.order, key)
	}
	r.specs[key] = spec
}

// Add builds a spec from a name, computation and options, and registers it.
func (r *Registry) Add(name string, fn field.ComputeFunc, opts ...field.Option) *field.Spec {
	spec := field.New(name, fn, opts...)
	r.Register(spec)
	return spec
}

// RegisterGradient installs the four gradient fields of a base field:
// Grad_<F>_x, Grad_<F>_y, Grad_<F>_z and Grad_<F>.
func (r *Registry) RegisterGradient(base string, opts ...field.Option) []*field.Spec {
	specs := field.GradientSpecs(base, opts...)
	for _, s := range specs {
		r.Register(s)
	}
	return specs
}

// Lookup resolves a key: the local mapping first, then the fallback chain.
// A key present locally always shadows the same key in the fallback chain.
func (r *Registry) Lookup(key field.Key) (*field.Spec, error) {
	r.mu.RLock()
	spec, ok := r.specs[key]
	fb := r.fallback
	r.mu.RUnlock()

	if ok {
		return spec, nil
	}
	if fb != nil {
		return fb.Lookup(key)
	}
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// Contains reports whether the key resolves locally or anywhere in the
// fallback chain.
func (r *Registry) Contains(key field.Key) bool {
	r.mu.RLock()
	_, ok := r.specs[key]
	fb := r.fallback
	r.mu.RUnlock()

	if ok {
		return true
	}
	if fb != nil {
		return fb.Contains(key)
	}
	return false
}

// LocalKeys returns the registry's own keys in registration order, ignoring
// the fallback.
func (r *Registry) LocalKeys() []field.Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]field.Key(nil), r.order...)
}

// Keys returns the local keys in registration order followed by the fallback
// chain's keys. A key shadowed locally appears again for the fallback that
// also defines it; callers that need a set must deduplicate themselves.
func (r *Registry) Keys() []field.Key {
	keys := r.LocalKeys()
	if fb := r.Fallback(); fb != nil {
		keys = append(keys, fb.Keys()...)
	}
	return keys
}

// Len returns the number of locally registered specs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
