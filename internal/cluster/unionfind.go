package cluster

// unionFind is a disjoint-set forest over [0, n) with union by size and
// iterative path compression.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}
	return root
}

// union merges the sets of x and y and returns the new root.
func (uf *unionFind) union(x, y int) int {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return rx
	}
	if uf.size[rx] < uf.size[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	return rx
}

// groups returns the sets as index lists. Sets are ordered by their smallest
// element and members ascend.
func (uf *unionFind) groups() [][]int {
	slot := make(map[int]int)
	var out [][]int
	for i := range uf.parent {
		root := uf.find(i)
		s, ok := slot[root]
		if !ok {
			s = len(out)
			slot[root] = s
			out = append(out, nil)
		}
		out[s] = append(out[s], i)
	}
	return out
}
