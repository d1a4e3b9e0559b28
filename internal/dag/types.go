package dag

import "sync"

// Graph holds module IDs and the edges between them. It is safe for
// concurrent use.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

// node is one vertex. Callers address vertices by ID only.
type node struct {
	id         string
	deps       map[string]*node // must be ordered before this node
	dependents map[string]*node // ordered after this node
}

// Node is anything the resolver can order: it has a stable ID and declares
// the IDs it depends on.
type Node interface {
	ID() string
	DependencyIDs() []string
}
