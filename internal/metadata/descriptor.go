// Package metadata is the process-wide catalog of module descriptors.
//
// A module type declares itself once with Declare, usually in a package-level
// variable. Nothing is built at declaration time: the descriptor is created
// and registered the first time something calls Ensure on the registration,
// exactly once per type. Dependencies between modules are expressed as
// references to other registrations, never as name lookups, so the graph of
// modules can be discovered by walking references from a set of roots.
package metadata

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Ref points at a declared module type.
type Ref interface {
	// Key is the stable identity of the referenced type. It is available
	// without building the descriptor.
	Key() string
	// Ensure builds and registers the descriptor if that has not happened
	// yet, and returns it.
	Ensure() (*Descriptor, error)
}

// Descriptor is the immutable metadata of one module type.
type Descriptor struct {
	Key           string
	Enabled       bool
	AllowMultiple bool
	DependsOn     []Ref
	Phases        lifecycle.PhaseMask
	Affinity      lifecycle.Affinity

	// New creates a fresh instance. The returned value is what phase
	// callbacks are bound to.
	New func(*threadctx.Context) (any, error)

	binders [lifecycle.NumPhases]binder
}

// ID returns the descriptor key. Together with DependencyIDs it lets the
// dependency resolver order descriptors.
func (d *Descriptor) ID() string { return d.Key }

// DependencyIDs returns the keys of the declared dependencies.
func (d *Descriptor) DependencyIDs() []string {
	keys := make([]string, len(d.DependsOn))
	for i, ref := range d.DependsOn {
		keys[i] = ref.Key()
	}
	return keys
}

// Bind returns the callback of instance for phase p. ok is false if the type
// does not take part in p.
func (d *Descriptor) Bind(p lifecycle.Phase, instance any) (fn PhaseFunc, ok bool) {
	if int(p) >= lifecycle.NumPhases || d.binders[p] == nil {
		return nil, false
	}
	return d.binders[p](instance), true
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s(%s %s)", d.Key, d.Affinity, d.Phases)
}

// ConfigError reports an invalid declaration or registration.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("module %q: %s", e.Key, e.Reason)
}

// TypeKey returns the package-qualified name of T, the default descriptor key.
func TypeKey[T any]() string {
	t := reflect.TypeFor[T]()
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func validKey(key string) bool {
	return key != "" && strings.TrimSpace(key) == key
}
