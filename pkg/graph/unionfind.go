package graph

// unionFind is a disjoint-set forest with path halving and union by size.
type unionFind struct {
	parent map[int]int
	size   map[int]int
	sets   int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[int]int),
		size:   make(map[int]int),
	}
}

func (u *unionFind) add(n int) {
	if _, ok := u.parent[n]; ok {
		return
	}
	u.parent[n] = n
	u.size[n] = 1
	u.sets++
}

func (u *unionFind) find(n int) int {
	u.add(n)
	for u.parent[n] != n {
		u.parent[n] = u.parent[u.parent[n]]
		n = u.parent[n]
	}
	return n
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
	delete(u.size, rb)
	u.sets--
}

func (u *unionFind) components() int {
	return u.sets
}
