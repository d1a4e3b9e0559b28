// Package services is the runtime's service locator: a type-keyed registry
// with lock-free reads and copy-on-write updates.
//
// # Structure
//
// A Registry node is either the root (no parent) or a child created with
// Child. A lookup that misses in a node continues in its parent, up to the
// root. Children see their parent through a cached read-only View, so a child
// can never write into an ancestor.
//
// # Concurrency
//
// Each node keeps its entries in an immutable map published through an
// atomic pointer. Writers serialise on a short mutex, copy the current map,
// apply the change and publish the copy. Readers load the pointer once and
// probe that map without any locking; a map, once published, is never
// modified, so a reader always sees a complete version of the node.
package services

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

type table map[reflect.Type]any

var emptyTable = table{}

// Reader is anything services can be looked up in: a Registry or a View.
type Reader interface {
	// LookupValue finds the value stored for t in this scope or its ancestors.
	LookupValue(t reflect.Type) (any, bool)
}

// Registry is a writable scope.
type Registry struct {
	mu      sync.Mutex // serialises writers only
	entries atomic.Pointer[table]
	parent  *View

	viewOnce sync.Once
	view     *View
}

// New returns an empty root registry.
func New() *Registry {
	r := &Registry{}
	r.entries.Store(&emptyTable)
	return r
}

// Child returns a new writable scope whose lookups fall back to r.
func (r *Registry) Child() *Registry {
	c := New()
	c.parent = r.View()
	return c
}

// View returns the cached read-only view of r.
func (r *Registry) View() *View {
	r.viewOnce.Do(func() { r.view = &View{node: r} })
	return r.view
}

// Parent returns the read-only view of the parent scope, or nil for a root.
func (r *Registry) Parent() *View {
	return r.parent
}

// Len returns the number of entries stored directly in r.
func (r *Registry) Len() int {
	return len(*r.entries.Load())
}

// LookupValue implements Reader.
func (r *Registry) LookupValue(t reflect.Type) (any, bool) {
	for node := r; node != nil; {
		if v, ok := (*node.entries.Load())[t]; ok {
			return v, true
		}
		if node.parent == nil {
			break
		}
		node = node.parent.node
	}
	return nil, false
}

// ContainsLocal reports whether t is stored directly in r, ignoring ancestors.
func (r *Registry) ContainsLocal(t reflect.Type) bool {
	_, ok := (*r.entries.Load())[t]
	return ok
}

// AddValue stores v under t if this scope has no entry for t yet. It returns
// false, leaving the stored value untouched, when t is already present in r.
// Ancestors are not consulted.
func (r *Registry) AddValue(t reflect.Type, v any) bool {
	added := false
	r.update(func(cur table) table {
		if _, exists := cur[t]; exists {
			return nil
		}
		added = true
		next := copyTable(cur, 1)
		next[t] = v
		return next
	})
	return added
}

// ReplaceValue stores v under t unconditionally and reports whether a
// previous local entry was overwritten.
func (r *Registry) ReplaceValue(t reflect.Type, v any) bool {
	replaced := false
	r.update(func(cur table) table {
		_, replaced = cur[t]
		next := copyTable(cur, 1)
		next[t] = v
		return next
	})
	return replaced
}

// RemoveValue deletes the local entry for t and reports whether one existed.
func (r *Registry) RemoveValue(t reflect.Type) bool {
	removed := false
	r.update(func(cur table) table {
		if _, exists := cur[t]; !exists {
			return nil
		}
		removed = true
		next := copyTable(cur, 0)
		delete(next, t)
		return next
	})
	return removed
}

// update runs fn on the current table under the writer lock and publishes
// its result. A nil result means "no change".
func (r *Registry) update(fn func(cur table) table) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if next := fn(*r.entries.Load()); next != nil {
		r.entries.Store(&next)
	}
}

func copyTable(cur table, extra int) table {
	next := make(table, len(cur)+extra)
	for k, v := range cur {
		next[k] = v
	}
	return next
}

// View is a read-only handle on a Registry node.
type View struct {
	node *Registry
}

// LookupValue implements Reader.
func (v *View) LookupValue(t reflect.Type) (any, bool) {
	return v.node.LookupValue(t)
}

// NotFoundError is returned by Get when no scope in the chain holds the type.
type NotFoundError struct {
	Type reflect.Type
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("service not registered: %s", e.Type)
}
