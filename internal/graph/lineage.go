package graph

import (
	"gitnet/internal/errors"
)

// LineageSet holds the nodes reachable from a focus node. Both lists start
// with the focus itself and follow depth-first visiting order.
type LineageSet struct {
	Focus       string   `json:"focus"`
	Ancestors   []string `json:"ancestors"`
	Descendants []string `json:"descendants"`
}

// Contains reports whether id is an ancestor or a descendant of the focus.
func (l *LineageSet) Contains(id string) bool {
	for _, list := range [][]string{l.Ancestors, l.Descendants} {
		for _, v := range list {
			if v == id {
				return true
			}
		}
	}
	return false
}

// Lineage walks parent links for ancestors and child links for descendants
// of focus. Parents outside the layout are skipped.
func Lineage(data *VisualizationData, focus string) (*LineageSet, error) {
	index := make(map[string]int, len(data.Nodes))
	for i, n := range data.Nodes {
		index[n.ID] = i
	}
	if _, found := index[focus]; !found {
		return nil, errors.New(errors.NotFound, "commit not in graph: "+focus, nil, nil)
	}

	return &LineageSet{
		Focus: focus,
		Ancestors: walk(focus, index, func(n *GraphNode) []string {
			return n.Parents
		}, data.Nodes),
		Descendants: walk(focus, index, func(n *GraphNode) []string {
			return n.Children
		}, data.Nodes),
	}, nil
}

// walk is an iterative depth-first traversal with a visited set, so shared
// ancestors of a merge are visited once.
func walk(start string, index map[string]int, next func(*GraphNode) []string, nodes []GraphNode) []string {
	visited := map[string]bool{start: true}
	order := []string{}
	stack := []string{start}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, id)

		neighbors := next(&nodes[index[id]])
		// Push in reverse so the first neighbor is visited first.
		for i := len(neighbors) - 1; i >= 0; i-- {
			n := neighbors[i]
			if _, inGraph := index[n]; !inGraph || visited[n] {
				continue
			}
			visited[n] = true
			stack = append(stack, n)
		}
	}
	return order
}
