package dag

import (
	"slices"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/util"
)

// TopologicalSort groups nodes into layers with Kahn's algorithm. deps maps
// every node to the nodes it depends on. Each layer holds the nodes whose
// dependencies all sit in earlier layers, so the members of a layer can run
// in parallel. Layers are sorted by name.
//
// If nodes remain that can never be scheduled, the error names all of them;
// the set includes nodes blocked behind a cycle, not only its members.
func TopologicalSort(deps map[string][]string) ([][]string, error) {
	inDegree := make(map[string]int, len(deps))
	dependents := make(map[string][]string) // dependency -> nodes waiting on it

	for name := range deps {
		inDegree[name] += 0
	}
	for _, name := range util.SortedKeys(deps) {
		for _, dep := range util.Unique(deps[name]) {
			if _, ok := deps[dep]; !ok {
				return nil, errors.InvalidReference("node", dep, util.SortedKeys(deps)).
					WithDetail("node", name)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var layer []string
	for name, deg := range inDegree {
		if deg == 0 {
			layer = append(layer, name)
		}
	}

	var levels [][]string
	visited := 0
	for len(layer) > 0 {
		slices.Sort(layer)
		levels = append(levels, layer)
		visited += len(layer)

		var next []string
		for _, name := range layer {
			for _, dependent := range dependents[name] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		layer = next
	}

	if visited != len(deps) {
		var blocked []string
		for name, deg := range inDegree {
			if deg > 0 {
				blocked = append(blocked, name)
			}
		}
		slices.Sort(blocked)
		return nil, errors.CyclicDependency(blocked)
	}
	return levels, nil
}
