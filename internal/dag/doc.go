// Package dag resolves the initialization order of modules from their
// declared dependencies.
//
// The graph is a plain adjacency structure keyed by string IDs. Ordering uses
// Kahn's algorithm: nodes with no unmet dependencies are emitted first, and
// ties are broken by key so that the same input always yields the same order.
// A graph that cannot be fully emitted contains a cycle; Sort reports it as a
// *CycleError naming the nodes involved instead of returning a truncated
// order.
//
// Resolve is the generic entry point used by the kernel: it builds a graph
// restricted to the given nodes (dependencies outside the set are ignored,
// which is how cross-affinity dependencies are handled) and returns the nodes
// themselves in dependency order.
package dag
