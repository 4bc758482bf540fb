// Package graph checks adjacency-list graphs for validity as dependency graphs, and reads, writes and
// generates the graph files the graph pipeline consumes.
package graph

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/casualjim/nestq/pkg/deque"
)

// DefaultSize is the number of adjacency lines per graph.
const DefaultSize = 30

// Graph maps a node to the nodes it points at.
type Graph map[int][]int

// Nodes returns the nodes that own an adjacency line, in ascending order.
func (g Graph) Nodes() []int {
	return slices.Sorted(maps.Keys(g))
}

// Format renders one "node, target, target" line per node, in node order.
func (g Graph) Format() []string {
	lines := make([]string, 0, len(g))
	var sb strings.Builder
	for _, n := range g.Nodes() {
		sb.Reset()
		sb.WriteString(strconv.Itoa(n))
		for _, m := range g[n] {
			sb.WriteString(", ")
			sb.WriteString(strconv.Itoa(m))
		}
		lines = append(lines, sb.String())
	}
	return lines
}

// HasCycle reports whether a breadth-first walk starting at the lowest node with outgoing edges reaches any
// node twice. Reaching a node over two different paths counts as well. A graph without any edge is reported
// as cyclic.
func HasCycle(g Graph) bool {
	start, ok := firstWithEdges(g)
	if !ok {
		return true
	}

	visited := make(map[int]struct{}, len(g))
	pending := deque.New[int]()
	pending.PushBack(start)
	for pending.Len() > 0 {
		n, _ := pending.PopFront()
		if _, seen := visited[n]; seen {
			return true
		}
		visited[n] = struct{}{}
		for _, m := range g[n] {
			pending.PushBack(m)
		}
	}
	return false
}

func firstWithEdges(g Graph) (int, bool) {
	for _, n := range g.Nodes() {
		if len(g[n]) > 0 {
			return n, true
		}
	}
	return 0, false
}

// IsConnected reports whether every node, including nodes that only appear as targets, belongs to one
// component when edges are taken as undirected.
func IsConnected(g Graph) bool {
	uf := newUnionFind()
	for _, n := range g.Nodes() {
		uf.add(n)
		for _, m := range g[n] {
			uf.union(n, m)
		}
	}
	return uf.components() == 1
}

// Valid reports whether g is a connected graph without cycles.
func Valid(g Graph) bool {
	return !HasCycle(g) && IsConnected(g)
}
