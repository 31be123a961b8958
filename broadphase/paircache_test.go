package broadphase

import (
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

type countingAlgorithm struct {
	destroyed int
}

func (a *countingAlgorithm) Destroy() {
	a.destroyed++
}

func newProxy(id int) *Proxy {
	return &Proxy{ID: id, Group: FilterDefault, Mask: FilterAll}
}

func TestPairCache_AddFind(t *testing.T) {
	pc := NewPairCache()
	a, b, c := newProxy(0), newProxy(1), newProxy(2)

	if pair := pc.AddOverlappingPair(a, a); pair != nil {
		t.Error("self pair must be rejected")
	}

	pair := pc.AddOverlappingPair(a, b)
	if pair == nil {
		t.Fatal("AddOverlappingPair returned nil")
	}

	if pc.FindPair(a, b) != pair || pc.FindPair(b, a) != pair {
		t.Error("FindPair must be order independent")
	}
	if pc.FindPair(a, c) != nil {
		t.Error("FindPair found a pair that was never added")
	}
	if pc.OverlapCount() != 1 || pc.Len() != 1 {
		t.Errorf("OverlapCount = %d, Len = %d, want 1", pc.OverlapCount(), pc.Len())
	}
}

func TestPairCache_Filter(t *testing.T) {
	pc := NewPairCache()
	static0 := &Proxy{ID: 0, Group: FilterStatic, Mask: FilterAll ^ FilterStatic}
	static1 := &Proxy{ID: 1, Group: FilterStatic, Mask: FilterAll ^ FilterStatic}
	dynamic := newProxy(2)

	if pc.AddOverlappingPair(static0, static1) != nil {
		t.Error("static-static pair should be filtered by group/mask")
	}
	if pc.AddOverlappingPair(static0, dynamic) == nil {
		t.Error("static-dynamic pair should pass the filter")
	}

	pc.SetOverlapFilter(func(a, b *Proxy) bool { return false })
	if pc.FindPair(static0, dynamic) != nil {
		t.Error("FindPair must apply the custom filter")
	}
}

func TestPairCache_RemoveDestroysAlgorithm(t *testing.T) {
	pc := NewPairCache()
	a, b, c := newProxy(0), newProxy(1), newProxy(2)

	algo := &countingAlgorithm{}
	pc.AddOverlappingPair(a, b).Algorithm = algo
	pc.AddOverlappingPair(a, c)

	if !pc.RemoveOverlappingPair(b, a) {
		t.Fatal("RemoveOverlappingPair(b, a) should find {a,b}")
	}
	if algo.destroyed != 1 {
		t.Errorf("algorithm destroyed %d times, want 1", algo.destroyed)
	}
	if pc.FindPair(a, b) != nil || pc.FindPair(a, c) == nil {
		t.Error("wrong pair removed")
	}
	if pc.RemoveOverlappingPair(a, b) {
		t.Error("removing twice should report false")
	}
	if pc.OverlapCount() != 1 {
		t.Errorf("OverlapCount = %d, want 1", pc.OverlapCount())
	}
}

func TestPairCache_ProcessAllOverlappingPairs(t *testing.T) {
	pc := NewPairCache()
	proxies := []*Proxy{newProxy(0), newProxy(1), newProxy(2), newProxy(3)}
	for i := 0; i < len(proxies); i++ {
		for j := i + 1; j < len(proxies); j++ {
			pc.AddOverlappingPair(proxies[i], proxies[j])
		}
	}

	visited := 0
	pc.ProcessAllOverlappingPairs(func(pair *Pair) bool {
		visited++
		return pair.Contains(proxies[0])
	})

	if visited != 6 {
		t.Errorf("visited %d pairs, want 6", visited)
	}
	if pc.Len() != 3 {
		t.Errorf("Len = %d after removing pairs with proxy 0, want 3", pc.Len())
	}
	for _, pair := range pc.Pairs() {
		if pair.Contains(proxies[0]) {
			t.Errorf("pair %d-%d should have been removed", pair.Proxy0.ID, pair.Proxy1.ID)
		}
	}
}

func TestPairCache_ProxyCleanup(t *testing.T) {
	pc := NewPairCache()
	a, b, c := newProxy(0), newProxy(1), newProxy(2)
	ab, bc := &countingAlgorithm{}, &countingAlgorithm{}
	pc.AddOverlappingPair(a, b).Algorithm = ab
	pc.AddOverlappingPair(b, c).Algorithm = bc

	pc.CleanProxyFromPairs(a)
	if ab.destroyed != 1 || bc.destroyed != 0 || pc.Len() != 2 {
		t.Errorf("CleanProxyFromPairs: destroyed %d/%d, len %d", ab.destroyed, bc.destroyed, pc.Len())
	}
	if pc.FindPair(a, b).Algorithm != nil {
		t.Error("cleaned pair should have no algorithm")
	}

	pc.RemoveOverlappingPairsContainingProxy(b)
	if pc.Len() != 0 || bc.destroyed != 1 {
		t.Errorf("RemoveOverlappingPairsContainingProxy left %d pairs", pc.Len())
	}
}

func TestPairCache_UniquenessUnderGrid(t *testing.T) {
	grid := NewGrid(1, 64, nil)
	box := func(x float64) actor.AABB {
		return actor.AABB{Min: mgl64.Vec3{x, 0, 0}, Max: mgl64.Vec3{x + 1, 1, 1}}
	}
	for i := 0; i < 5; i++ {
		grid.CreateProxy(box(float64(i)*0.5), nil, FilterDefault, FilterAll)
	}

	for step := 0; step < 3; step++ {
		grid.CalculateOverlappingPairs()
	}

	pairs := grid.OverlappingPairCache().Pairs()
	seen := map[pairKey]bool{}
	for _, pair := range pairs {
		key := makePairKey(pair.Proxy0, pair.Proxy1)
		if seen[key] {
			t.Errorf("duplicate pair %v", key)
		}
		seen[key] = true
	}
}
