package metadata

import (
	"errors"
	"fmt"
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/specialistvlad/tricore/internal/lifecycle"
)

// Catalog holds registered descriptors, keyed by descriptor key. It is append
// only: a key, once registered, keeps its descriptor for the catalog's life.
type Catalog struct {
	entries cmap.ConcurrentMap[string, *Descriptor]
}

var defaultCatalog = NewCatalog()

// Default returns the process-wide catalog.
func Default() *Catalog { return defaultCatalog }

// NewCatalog returns an empty catalog. Tests and embedded runtimes use their
// own catalog to stay isolated from the process-wide one.
func NewCatalog() *Catalog {
	return &Catalog{entries: cmap.New[*Descriptor]()}
}

// Register adds d. Registering the same descriptor twice is a no-op; a
// different descriptor under an existing key is an error.
func (c *Catalog) Register(d *Descriptor) error {
	if d == nil {
		return errors.New("metadata: nil descriptor")
	}
	if c.entries.SetIfAbsent(d.Key, d) {
		return nil
	}
	if existing, _ := c.entries.Get(d.Key); existing == d {
		return nil
	}
	return &ConfigError{Key: d.Key, Reason: "duplicate registration"}
}

// Lookup returns the descriptor registered under key.
func (c *Catalog) Lookup(key string) (*Descriptor, bool) {
	return c.entries.Get(key)
}

// Len returns the number of registered descriptors.
func (c *Catalog) Len() int { return c.entries.Count() }

// Filter narrows an enumeration. The zero Filter matches everything.
type Filter struct {
	EnabledOnly bool
	// Affinities restricts results to these roles. Zero means all.
	Affinities lifecycle.AffinityMask
}

func (f Filter) match(d *Descriptor) bool {
	if f.EnabledOnly && !d.Enabled {
		return false
	}
	return f.Affinities == 0 || f.Affinities.Has(d.Affinity)
}

// Descriptors returns the registered descriptors that pass f, sorted by key.
// Only fully built descriptors are ever stored, so enumeration never sees a
// partial one.
func (c *Catalog) Descriptors(f Filter) []*Descriptor {
	var out []*Descriptor
	for _, d := range c.entries.Items() {
		if f.match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Discover ensures every declaration reachable from roots through DependsOn
// is built and registered, and returns the reachable descriptors in
// breadth-first order. The walk visits each key once, so cyclic declarations
// terminate here and are reported later by the resolver.
//
// Discover works against the catalogs the registrations were declared in; c
// is only checked to hold the results.
func (c *Catalog) Discover(roots ...Ref) ([]*Descriptor, error) {
	var (
		out   []*Descriptor
		queue = append([]Ref(nil), roots...)
		seen  = make(map[string]bool, len(roots))
	)
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if ref == nil {
			return nil, errors.New("metadata: nil module reference")
		}
		if seen[ref.Key()] {
			continue
		}
		seen[ref.Key()] = true

		d, err := ref.Ensure()
		if err != nil {
			return nil, fmt.Errorf("discovering %s: %w", ref.Key(), err)
		}
		if registered, ok := c.entries.Get(d.Key); !ok || registered != d {
			if err := c.Register(d); err != nil {
				return nil, fmt.Errorf("discovering %s: %w", ref.Key(), err)
			}
		}
		out = append(out, d)
		queue = append(queue, d.DependsOn...)
	}
	return out, nil
}
