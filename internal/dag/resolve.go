package dag

import "fmt"

// Resolve orders nodes so that every node comes after the nodes it depends on.
//
// Only edges between members of the input are considered; a dependency key
// that names a node outside the input is ignored. The result is a permutation
// of the input. A cycle yields a *CycleError; a key used by two input nodes
// is reported as an error as well.
func Resolve[N Node](nodes []N) ([]N, error) {
	g := New()
	byKey := make(map[string]N, len(nodes))
	for _, n := range nodes {
		key := n.ID()
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("duplicate node key: %s", key)
		}
		byKey[key] = n
		g.AddNode(key)
	}

	for _, n := range nodes {
		for _, depKey := range n.DependencyIDs() {
			if _, inSet := byKey[depKey]; !inSet {
				continue
			}
			if err := g.AddEdge(depKey, n.ID()); err != nil {
				return nil, err
			}
		}
	}

	order, err := g.Sort()
	if err != nil {
		return nil, err
	}

	out := make([]N, len(order))
	for i, key := range order {
		out[i] = byKey[key]
	}
	return out, nil
}
