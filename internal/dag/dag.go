package dag

import (
	"fmt"
	"sort"
	"strings"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return &CycleError{Unresolved: []string{fromID}, Cycle: []string{fromID, fromID}}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Dependencies returns the sorted IDs of the nodes the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted IDs of the nodes that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.dependents), nil
}

// Sort returns every node ID in dependency order: each node appears after all
// of the nodes it depends on. Among nodes that are ready at the same time the
// smaller key comes first, so the result is deterministic.
//
// If the graph contains a cycle, Sort returns a *CycleError and no order.
func (g *Graph) Sort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	inDegree := make(map[string]int, len(g.nodes))
	var ready []string
	for id, n := range g.nodes {
		inDegree[id] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for depID := range g.nodes[id].dependents {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				unlocked = append(unlocked, depID)
			}
		}
		if len(unlocked) > 0 {
			ready = mergeSorted(ready, unlocked)
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}

	var unresolved []string
	for id, deg := range inDegree {
		if deg > 0 {
			unresolved = append(unresolved, id)
		}
	}
	sort.Strings(unresolved)
	return nil, &CycleError{Unresolved: unresolved, Cycle: g.findCycle(unresolved)}
}

// findCycle walks dependency edges among the unresolved nodes until it
// revisits one, and returns that loop. Every unresolved node has at least one
// unresolved dependency, so the walk always closes.
func (g *Graph) findCycle(unresolved []string) []string {
	if len(unresolved) == 0 {
		return nil
	}
	pending := make(map[string]bool, len(unresolved))
	for _, id := range unresolved {
		pending[id] = true
	}

	position := make(map[string]int)
	var path []string
	current := unresolved[0]
	for {
		if at, seen := position[current]; seen {
			cycle := append([]string{}, path[at:]...)
			return append(cycle, current)
		}
		position[current] = len(path)
		path = append(path, current)

		next := ""
		for _, depID := range sortedKeys(g.nodes[current].deps) {
			if pending[depID] {
				next = depID
				break
			}
		}
		if next == "" {
			// Only reachable if the caller passed nodes that are not blocked.
			return path
		}
		current = next
	}
}

// CycleError reports a dependency cycle found during ordering.
type CycleError struct {
	// Unresolved lists every node that could not be ordered, sorted by key.
	Unresolved []string
	// Cycle is one concrete loop among the unresolved nodes; the first and
	// last elements are the same node.
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("dependency cycle detected: %s (unresolved: %s)",
			strings.Join(e.Cycle, " -> "), strings.Join(e.Unresolved, ", "))
	}
	return fmt.Sprintf("dependency cycle detected among: %s", strings.Join(e.Unresolved, ", "))
}

func sortedKeys(m map[string]*node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mergeSorted merges b into the already sorted a, keeping the result sorted.
func mergeSorted(a, b []string) []string {
	sort.Strings(b)
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
