package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goran-ethernal/ChainDemux/pkg/handler"
)

// ErrNoVersions is returned when a registry is built from an empty version list.
var ErrNoVersions = errors.New("at least one handler version must be registered")

type bindingKey struct {
	version string
	action  string
}

// Registry is an immutable lookup table of (version, action) bindings.
// The first registered version is the initial active version.
type Registry[S any] struct {
	names    []string
	updaters map[bindingKey]handler.Updater[S]
	effects  map[bindingKey]handler.Effect[S]
}

// New validates versions and builds the lookup table.
func New[S any](versions []handler.Version[S]) (*Registry[S], error) {
	if len(versions) == 0 {
		return nil, ErrNoVersions
	}

	r := &Registry[S]{
		names:    make([]string, 0, len(versions)),
		updaters: make(map[bindingKey]handler.Updater[S]),
		effects:  make(map[bindingKey]handler.Effect[S]),
	}

	seen := make(map[string]struct{}, len(versions))
	for i, v := range versions {
		if strings.TrimSpace(v.Name) == "" {
			return nil, fmt.Errorf("version[%d]: name is required", i)
		}
		if _, ok := seen[v.Name]; ok {
			return nil, fmt.Errorf("version[%d]: duplicate version name %q", i, v.Name)
		}
		seen[v.Name] = struct{}{}
		r.names = append(r.names, v.Name)

		for action, u := range v.Updaters {
			if action == "" {
				return nil, fmt.Errorf("version %s: updater bound to empty action name", v.Name)
			}
			if u == nil {
				return nil, fmt.Errorf("version %s: nil updater for action %s", v.Name, action)
			}
			r.updaters[bindingKey{version: v.Name, action: action}] = u
		}

		for action, e := range v.Effects {
			if action == "" {
				return nil, fmt.Errorf("version %s: effect bound to empty action name", v.Name)
			}
			if e == nil {
				return nil, fmt.Errorf("version %s: nil effect for action %s", v.Name, action)
			}
			r.effects[bindingKey{version: v.Name, action: action}] = e
		}
	}

	return r, nil
}

// First returns the name of the first registered version.
func (r *Registry[S]) First() string {
	return r.names[0]
}

// Has reports whether a version with the given name is registered.
func (r *Registry[S]) Has(version string) bool {
	for _, n := range r.names {
		if n == version {
			return true
		}
	}

	return false
}

// Names returns the registered version names in registration order.
func (r *Registry[S]) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)

	return out
}

// Updater returns the updater bound to action under version.
func (r *Registry[S]) Updater(version, action string) (handler.Updater[S], bool) {
	u, ok := r.updaters[bindingKey{version: version, action: action}]
	return u, ok
}

// Effect returns the effect bound to action under version.
func (r *Registry[S]) Effect(version, action string) (handler.Effect[S], bool) {
	e, ok := r.effects[bindingKey{version: version, action: action}]
	return e, ok
}
