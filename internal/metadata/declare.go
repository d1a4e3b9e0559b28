package metadata

import (
	"sync"

	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Options describe a module type at declaration time.
type Options[T any] struct {
	// Key overrides the default package-qualified type name.
	Key string
	// Affinity is the one role the module runs on. Required.
	Affinity lifecycle.Affinity
	// Disabled keeps the module out of enabled-only enumerations unless
	// configuration turns it back on.
	Disabled bool
	// AllowMultiple permits more than one instance per kernel.
	AllowMultiple bool
	// DependsOn lists modules that must be loaded first when they share
	// the same role.
	DependsOn []Ref
	// New constructs an instance. If nil, new(T) is used.
	New func(*threadctx.Context) (*T, error)
}

// Registration is the handle returned by Declare. It implements Ref.
type Registration[T any] struct {
	catalog *Catalog
	opts    Options[T]
	key     string

	once sync.Once
	desc *Descriptor
	err  error
}

// Declare declares T in the default catalog.
func Declare[T any](opts Options[T]) *Registration[T] {
	return DeclareIn(Default(), opts)
}

// DeclareIn declares T in catalog c.
func DeclareIn[T any](c *Catalog, opts Options[T]) *Registration[T] {
	key := opts.Key
	if key == "" {
		key = TypeKey[T]()
	}
	return &Registration[T]{catalog: c, opts: opts, key: key}
}

// Key returns the descriptor key.
func (r *Registration[T]) Key() string { return r.key }

// Ensure builds the descriptor and registers it, once. Concurrent callers
// all get the same descriptor, or the same error. It does not follow
// DependsOn; use Catalog.Discover for that.
func (r *Registration[T]) Ensure() (*Descriptor, error) {
	r.once.Do(func() {
		r.desc, r.err = r.build()
		if r.err != nil {
			return
		}
		if err := r.catalog.Register(r.desc); err != nil {
			r.desc, r.err = nil, err
		}
	})
	return r.desc, r.err
}

// MustEnsure is Ensure for declarations whose failure is a programming error.
func (r *Registration[T]) MustEnsure() *Descriptor {
	d, err := r.Ensure()
	if err != nil {
		panic(err)
	}
	return d
}

func (r *Registration[T]) build() (*Descriptor, error) {
	if !validKey(r.key) {
		return nil, &ConfigError{Key: r.key, Reason: "invalid key"}
	}
	switch r.opts.Affinity {
	case lifecycle.Control, lifecycle.Simulation, lifecycle.Presentation:
	case lifecycle.AffinityNone:
		return nil, &ConfigError{Key: r.key, Reason: "missing affinity"}
	default:
		return nil, &ConfigError{Key: r.key, Reason: "affinity must name exactly one role, got " + r.opts.Affinity.String()}
	}
	for _, dep := range r.opts.DependsOn {
		if dep == nil {
			return nil, &ConfigError{Key: r.key, Reason: "nil dependency"}
		}
		if dep.Key() == r.key {
			return nil, &ConfigError{Key: r.key, Reason: "depends on itself"}
		}
	}

	mask, binders := bindersFor[T]()
	newFn := r.opts.New
	d := &Descriptor{
		Key:           r.key,
		Enabled:       !r.opts.Disabled,
		AllowMultiple: r.opts.AllowMultiple,
		DependsOn:     append([]Ref(nil), r.opts.DependsOn...),
		Phases:        mask,
		Affinity:      r.opts.Affinity,
		binders:       binders,
		New: func(ctx *threadctx.Context) (any, error) {
			if newFn == nil {
				return new(T), nil
			}
			v, err := newFn(ctx)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
	return d, nil
}
