package island

import "slices"

// Element is one union-find node. After SortIslands, ID is the island
// root and Index the body the element stands for.
type Element struct {
	ID    int
	Index int
}

// UnionFind is a weighted quick-union with path halving
type UnionFind struct {
	elements []Element
	sizes    []int
}

// Reset creates n singleton sets
func (u *UnionFind) Reset(n int) {
	u.elements = slices.Grow(u.elements[:0], n)[:n]
	u.sizes = slices.Grow(u.sizes[:0], n)[:n]
	for i := range u.elements {
		u.elements[i] = Element{ID: i, Index: i}
		u.sizes[i] = 1
	}
}

func (u *UnionFind) NumElements() int {
	return len(u.elements)
}

func (u *UnionFind) Element(i int) Element {
	return u.elements[i]
}

func (u *UnionFind) IsRoot(x int) bool {
	return u.elements[x].ID == x
}

// Find returns the root of x, halving the path on the way
func (u *UnionFind) Find(x int) int {
	for x != u.elements[x].ID {
		parent := u.elements[x].ID
		u.elements[x].ID = u.elements[parent].ID
		x = u.elements[x].ID
	}
	return x
}

// Unite merges the sets of p and q; the larger set keeps its root
func (u *UnionFind) Unite(p, q int) {
	i, j := u.Find(p), u.Find(q)
	if i == j {
		return
	}

	if u.sizes[i] < u.sizes[j] {
		i, j = j, i
	}
	u.elements[j].ID = i
	u.sizes[i] += u.sizes[j]
}

// SortIslands flattens every element to its root and groups the elements
// of one island together, ordered by root then by body index.
func (u *UnionFind) SortIslands() {
	for i := range u.elements {
		u.elements[i].Index = i
	}
	roots := make([]int, len(u.elements))
	for i := range u.elements {
		roots[i] = u.Find(i)
	}
	for i := range u.elements {
		u.elements[i].ID = roots[i]
	}

	slices.SortStableFunc(u.elements, func(a, b Element) int {
		return a.ID - b.ID
	})
}
