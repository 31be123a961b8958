package broadphase

import (
	"errors"
	"math"
	"slices"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrUnknownProxy = errors.New("broadphase: unknown proxy")
)

// maxCellsPerAxis bounds the cells a proxy may span before it is handled
// as a large proxy (planes, huge static geometry)
const maxCellsPerAxis = 32

// Interface is the proxy protocol the world drives the broadphase with
type Interface interface {
	CreateProxy(aabb actor.AABB, owner *actor.RigidBody, group, mask CollisionFilter) *Proxy
	DestroyProxy(proxy *Proxy) error
	SetAABB(proxy *Proxy, aabb actor.AABB) error
	CalculateOverlappingPairs()
	OverlappingPairCache() *PairCache
}

// CellKey is the integer coordinate of a grid cell
type CellKey struct {
	X, Y, Z int
}

// Cell holds the indices of the proxies overlapping it
type Cell struct {
	proxyIndices []int
}

type pairKey struct {
	lo, hi int
}

func makePairKey(a, b *Proxy) pairKey {
	if a.ID < b.ID {
		return pairKey{a.ID, b.ID}
	}
	return pairKey{b.ID, a.ID}
}

// Grid is a uniform hashed grid broadphase. Pairs are reported to a
// PairCache incrementally: only new overlaps are added and only vanished
// overlaps are removed, so cached narrowphase state survives between steps.
type Grid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	proxies []*Proxy
	nextID  int

	cache   *PairCache
	current map[pairKey]struct{}
	stamp   []int
}

var _ Interface = (*Grid)(nil)

// NewGrid creates a grid of numCells hashed cells (rounded to a power of two)
func NewGrid(cellSize float64, numCells int, cache *PairCache) *Grid {
	numCells = nextPowerOfTwo(numCells)
	if cache == nil {
		cache = NewPairCache()
	}

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].proxyIndices = make([]int, 0, 8)
	}

	return &Grid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
		cache:    cache,
		current:  make(map[pairKey]struct{}),
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

func (g *Grid) OverlappingPairCache() *PairCache {
	return g.cache
}

// Proxies returns the live proxies in creation order
func (g *Grid) Proxies() []*Proxy {
	return g.proxies
}

func (g *Grid) CreateProxy(aabb actor.AABB, owner *actor.RigidBody, group, mask CollisionFilter) *Proxy {
	proxy := &Proxy{
		ID:    g.nextID,
		AABB:  aabb,
		Owner: owner,
		Group: group,
		Mask:  mask,
	}
	proxy.large = g.isLarge(aabb)
	g.nextID++
	g.proxies = append(g.proxies, proxy)

	if owner != nil {
		owner.ProxyID = proxy.ID
	}

	return proxy
}

// DestroyProxy removes the proxy and every pair referencing it
func (g *Grid) DestroyProxy(proxy *Proxy) error {
	i := slices.Index(g.proxies, proxy)
	if i < 0 {
		return ErrUnknownProxy
	}
	g.proxies = slices.Delete(g.proxies, i, i+1)
	g.cache.RemoveOverlappingPairsContainingProxy(proxy)

	for key := range g.current {
		if key.lo == proxy.ID || key.hi == proxy.ID {
			delete(g.current, key)
		}
	}
	if proxy.Owner != nil {
		proxy.Owner.ProxyID = -1
	}

	return nil
}

func (g *Grid) SetAABB(proxy *Proxy, aabb actor.AABB) error {
	if !slices.Contains(g.proxies, proxy) {
		return ErrUnknownProxy
	}
	proxy.AABB = aabb
	proxy.large = g.isLarge(aabb)
	return nil
}

// CalculateOverlappingPairs rebuilds the cells, then brings the pair cache
// in sync with the overlaps found.
func (g *Grid) CalculateOverlappingPairs() {
	g.clear()

	var large []int
	for i, proxy := range g.proxies {
		if proxy.large {
			large = append(large, i)
			continue
		}
		g.insert(i, proxy)
	}

	if cap(g.stamp) < len(g.proxies) {
		g.stamp = make([]int, len(g.proxies))
	}
	g.stamp = g.stamp[:len(g.proxies)]
	for i := range g.stamp {
		g.stamp[i] = -1
	}

	found := make(map[pairKey]struct{}, len(g.current))
	var added [][2]*Proxy

	report := func(a, b *Proxy) {
		if !a.AABB.Overlaps(b.AABB) || !g.cache.NeedsBroadphaseCollision(a, b) {
			return
		}
		key := makePairKey(a, b)
		if _, ok := found[key]; ok {
			return
		}
		found[key] = struct{}{}
		if _, ok := g.current[key]; !ok {
			added = append(added, [2]*Proxy{a, b})
		}
	}

	for i, proxyA := range g.proxies {
		if proxyA.large {
			continue
		}
		minCell := g.worldToCell(proxyA.AABB.Min)
		maxCell := g.worldToCell(proxyA.AABB.Max)

		for x := minCell.X; x <= maxCell.X; x++ {
			for y := minCell.Y; y <= maxCell.Y; y++ {
				for z := minCell.Z; z <= maxCell.Z; z++ {
					cellIdx := g.hashCell(CellKey{x, y, z})

					for _, otherIdx := range g.cells[cellIdx].proxyIndices {
						// deterministic order, (A,B) only once
						if otherIdx <= i || g.stamp[otherIdx] == i {
							continue
						}
						g.stamp[otherIdx] = i
						report(proxyA, g.proxies[otherIdx])
					}
				}
			}
		}
	}

	for _, li := range large {
		for j, other := range g.proxies {
			if j == li || (other.large && j < li) {
				continue
			}
			report(g.proxies[li], other)
		}
	}

	g.cache.ProcessAllOverlappingPairs(func(pair *Pair) bool {
		_, ok := found[makePairKey(pair.Proxy0, pair.Proxy1)]
		return !ok
	})
	for _, pair := range added {
		if g.cache.FindPair(pair[0], pair[1]) == nil {
			g.cache.AddOverlappingPair(pair[0], pair[1])
		}
	}

	g.current = found
}

func (g *Grid) insert(index int, proxy *Proxy) {
	minCell := g.worldToCell(proxy.AABB.Min)
	maxCell := g.worldToCell(proxy.AABB.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := g.hashCell(CellKey{x, y, z})
				g.cells[cellIdx].proxyIndices = append(g.cells[cellIdx].proxyIndices, index)
			}
		}
	}
}

func (g *Grid) clear() {
	for i := range g.cells {
		g.cells[i].proxyIndices = g.cells[i].proxyIndices[:0]
	}
}

func (g *Grid) isLarge(aabb actor.AABB) bool {
	extent := aabb.Max.Sub(aabb.Min)
	limit := g.cellSize * maxCellsPerAxis
	return extent.X() > limit || extent.Y() > limit || extent.Z() > limit
}

// worldToCell converts a world position into cell coordinates
func (g *Grid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / g.cellSize)),
		Y: int(math.Floor(pos.Y() / g.cellSize)),
		Z: int(math.Floor(pos.Z() / g.cellSize)),
	}
}

// hashCell maps a cell to a slot of the cell array
func (g *Grid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & g.cellMask
}
