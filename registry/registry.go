// Package registry holds the named collaboration units of a workspace.
//
// A Registry is an explicit object owned by the assembling code rather than
// process-global state, so independent workspaces (and tests) never see each
// other's units. All methods are safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/meshstate/model"
	"github.com/hupe1980/meshstate/unit"
)

var (
	// ErrDuplicateUnit is returned when a name is registered twice.
	ErrDuplicateUnit = errors.New("unit already registered")
	// ErrUnknownUnit is returned when no unit is registered under a name.
	ErrUnknownUnit = errors.New("unknown unit")
)

// Descriptor is a read-only summary of a registered unit.
type Descriptor struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Scope       string     `json:"scope"`
	Model       model.Info `json:"model"`
}

// Registry maps unit names to units.
type Registry struct {
	mu    sync.RWMutex
	units map[string]*unit.Unit
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{units: make(map[string]*unit.Unit)}
}

// Register validates u and adds it under its name. Registering a second unit
// with the same name fails with ErrDuplicateUnit; replacing a unit requires
// Unregister first.
func (r *Registry) Register(u *unit.Unit) error {
	if u == nil {
		return fmt.Errorf("%w: nil unit", unit.ErrInvalidUnit)
	}
	if err := u.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.units[u.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, u.Name)
	}
	r.units[u.Name] = u
	return nil
}

// Unregister removes a unit and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[name]; !ok {
		return false
	}
	delete(r.units, name)
	return true
}

// Lookup returns the unit registered under name.
func (r *Registry) Lookup(name string) (*unit.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[name]
	return u, ok
}

// Get is Lookup that reports a missing unit as ErrUnknownUnit.
func (r *Registry) Get(name string) (*unit.Unit, error) {
	u, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, name)
	}
	return u, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns descriptors for all units sorted by name.
func (r *Registry) Describe() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, Descriptor{
			Name:        u.Name,
			Description: u.Description,
			Scope:       u.ResultScope(),
			Model:       u.Model.Info(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}
