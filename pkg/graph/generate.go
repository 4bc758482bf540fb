package graph

import (
	"bufio"
	"io"
	"math"
	"math/rand/v2"
	"slices"
)

// DependencyGraph returns a random tree over nodes 1..n rooted at 1 in which every node has at most two
// children. Every node owns an adjacency line, leaves included.
func DependencyGraph(n int, rng *rand.Rand) Graph {
	g := make(Graph, n)
	for i := 1; i <= n; i++ {
		g[i] = []int{}
	}
	if n < 1 {
		return g
	}

	free := newPool(2, n)
	pending := []int{1}
	for len(pending) > 0 {
		parent := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		children := make([]int, 0, 2)
		for range min(free.len(), 2) {
			children = append(children, free.take(rng))
		}
		g[parent] = children
		// depth first, first child first
		for _, c := range slices.Backward(children) {
			pending = append(pending, c)
		}
	}
	return g
}

// RandomGraph returns a graph over nodes 1..n where each node points at up to sqrt(n) random targets. With
// cyclic false, targets are drawn without replacement from the nodes not yet seen, so the result is a forest;
// with cyclic true they are drawn from all nodes, self loops included.
func RandomGraph(n int, cyclic bool, rng *rand.Rand) Graph {
	g := make(Graph, n)
	bucket := max(int(math.Sqrt(float64(n))), 2)
	nodes := newPool(1, n)
	for i := 1; i <= n; i++ {
		if !cyclic {
			nodes.remove(i)
		}
		edges := min(nodes.len(), 1+rng.IntN(bucket-1))
		targets := make([]int, 0, edges)
		for range edges {
			if cyclic {
				targets = append(targets, nodes.pick(rng))
			} else {
				targets = append(targets, nodes.take(rng))
			}
		}
		g[i] = targets
	}
	return g
}

// GenerateFile writes count graphs of size nodes each, picking a dependency tree, a cyclic random graph or an
// acyclic random graph with equal probability.
func GenerateFile(w io.Writer, count, size int, rng *rand.Rand) error {
	bw := bufio.NewWriter(w)
	for range count {
		var g Graph
		switch rng.IntN(3) {
		case 0:
			g = DependencyGraph(size, rng)
		case 1:
			g = RandomGraph(size, true, rng)
		default:
			g = RandomGraph(size, false, rng)
		}
		if err := Write(bw, g); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Write writes g as Format lines followed by a blank line.
func Write(w io.Writer, g Graph) error {
	for _, line := range g.Format() {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// pool is a set of node ids that supports uniform random picks.
type pool struct {
	items []int
}

func newPool(from, to int) *pool {
	p := &pool{items: make([]int, 0, max(to-from+1, 0))}
	for i := from; i <= to; i++ {
		p.items = append(p.items, i)
	}
	return p
}

func (p *pool) len() int {
	return len(p.items)
}

func (p *pool) pick(rng *rand.Rand) int {
	return p.items[rng.IntN(len(p.items))]
}

func (p *pool) take(rng *rand.Rand) int {
	i := rng.IntN(len(p.items))
	v := p.items[i]
	p.items[i] = p.items[len(p.items)-1]
	p.items = p.items[:len(p.items)-1]
	return v
}

func (p *pool) remove(v int) {
	if i := slices.Index(p.items, v); i >= 0 {
		p.items[i] = p.items[len(p.items)-1]
		p.items = p.items[:len(p.items)-1]
	}
}
