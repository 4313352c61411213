package pddl

import (
	"strings"
)

// sortTypes orders type names so that every parent precedes its children.
// parents maps a type to its declared parent. Returns the cycle path when the
// hierarchy is not a tree.
func sortTypes(names []string, parents map[string]string) ([]string, []string) {
	if len(names) == 0 {
		return nil, nil
	}

	nodeSet := make(map[string]bool, len(names))
	for _, n := range names {
		nodeSet[n] = true
	}

	// In-degree is 0 or 1: a type depends only on its parent.
	inDegree := make(map[string]int, len(names))
	children := make(map[string][]string)
	for _, n := range names {
		inDegree[n] = 0
	}
	for _, n := range names {
		parent := parents[n]
		if !nodeSet[parent] {
			continue // root or undeclared (reported elsewhere)
		}
		inDegree[n]++
		children[parent] = append(children[parent], n)
	}

	// Kahn's algorithm
	var queue []string
	for _, n := range names {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	var sorted []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)

		for _, child := range children[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(sorted) == len(names) {
		return sorted, nil
	}
	return nil, findTypeCycle(names, parents, inDegree)
}

// findTypeCycle follows parent links from a type left over by Kahn's
// algorithm until a type repeats.
func findTypeCycle(names []string, parents map[string]string, inDegree map[string]int) []string {
	for _, start := range names {
		if inDegree[start] == 0 {
			continue
		}
		index := make(map[string]int)
		var path []string
		for cur := start; cur != ""; cur = parents[cur] {
			if i, ok := index[cur]; ok {
				return append(path[i:], cur)
			}
			index[cur] = len(path)
			path = append(path, cur)
		}
	}
	return []string{"(cycle detected)"}
}

func formatCycle(path []string) string {
	return strings.Join(path, " -> ")
}
