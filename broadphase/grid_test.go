package broadphase

import (
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func TestWorldToCell(t *testing.T) {
	grid := NewGrid(1.0, 16, nil)

	tests := []struct {
		name     string
		position mgl64.Vec3
		expected CellKey
	}{
		{"origin", mgl64.Vec3{0, 0, 0}, CellKey{0, 0, 0}},
		{"positive", mgl64.Vec3{1.5, 2.3, 3.7}, CellKey{1, 2, 3}},
		{"negative", mgl64.Vec3{-1.5, -2.3, -3.7}, CellKey{-2, -3, -4}},
		{"large", mgl64.Vec3{100.7, -200.3, 50.1}, CellKey{100, -201, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := grid.worldToCell(tt.position); result != tt.expected {
				t.Errorf("worldToCell(%v) = %v, want %v", tt.position, result, tt.expected)
			}
		})
	}
}

func TestHashCell_InRange(t *testing.T) {
	grid := NewGrid(1.0, 10, nil)
	if len(grid.cells) != 16 {
		t.Fatalf("cell count = %d, want next power of two 16", len(grid.cells))
	}

	for _, key := range []CellKey{{0, 0, 0}, {1, 2, 3}, {-1, -2, -3}, {100, 200, 300}} {
		if idx := grid.hashCell(key); idx < 0 || idx >= len(grid.cells) {
			t.Errorf("hashCell(%v) = %d out of range", key, idx)
		}
	}
}

func unitBox(x, y, z float64) actor.AABB {
	return actor.AABB{Min: mgl64.Vec3{x, y, z}, Max: mgl64.Vec3{x + 1, y + 1, z + 1}}
}

func TestGrid_CalculateOverlappingPairs(t *testing.T) {
	grid := NewGrid(2, 64, nil)
	a := grid.CreateProxy(unitBox(0, 0, 0), nil, FilterDefault, FilterAll)
	b := grid.CreateProxy(unitBox(0.5, 0, 0), nil, FilterDefault, FilterAll)
	c := grid.CreateProxy(unitBox(10, 0, 0), nil, FilterDefault, FilterAll)

	grid.CalculateOverlappingPairs()
	cache := grid.OverlappingPairCache()

	if cache.Len() != 1 || cache.FindPair(a, b) == nil {
		t.Fatalf("want only {a,b}, got %d pairs", cache.Len())
	}

	algo := &countingAlgorithm{}
	cache.FindPair(a, b).Algorithm = algo

	// unchanged overlap keeps the cached algorithm
	grid.CalculateOverlappingPairs()
	if cache.FindPair(a, b).Algorithm != algo {
		t.Error("persisting overlap must keep its pair")
	}

	if err := grid.SetAABB(c, unitBox(0.2, 0.2, 0)); err != nil {
		t.Fatal(err)
	}
	if err := grid.SetAABB(b, unitBox(20, 0, 0)); err != nil {
		t.Fatal(err)
	}
	grid.CalculateOverlappingPairs()

	if cache.FindPair(a, b) != nil {
		t.Error("separated pair should be removed")
	}
	if algo.destroyed != 1 {
		t.Errorf("algorithm destroyed %d times, want 1", algo.destroyed)
	}
	if cache.FindPair(a, c) == nil {
		t.Error("new overlap {a,c} missing")
	}
}

func TestGrid_LargeProxy(t *testing.T) {
	grid := NewGrid(1, 64, nil)
	ground := grid.CreateProxy(actor.AABB{Min: mgl64.Vec3{-1e10, -1, -1e10}, Max: mgl64.Vec3{1e10, 0, 1e10}}, nil, FilterStatic, FilterAll^FilterStatic)
	ball := grid.CreateProxy(unitBox(500, -0.5, -300), nil, FilterDefault, FilterAll)
	far := grid.CreateProxy(unitBox(0, 50, 0), nil, FilterDefault, FilterAll)

	grid.CalculateOverlappingPairs()
	cache := grid.OverlappingPairCache()

	if cache.FindPair(ground, ball) == nil {
		t.Error("large proxy should pair with any overlapping proxy")
	}
	if cache.FindPair(ground, far) != nil {
		t.Error("non-overlapping proxy should not pair with the large proxy")
	}
}

func TestGrid_DestroyProxy(t *testing.T) {
	grid := NewGrid(1, 64, nil)
	owner := actor.NewRigidBody(actor.NewTransform(), &actor.Sphere{Radius: 0.5}, actor.BodyTypeDynamic, 1)
	a := grid.CreateProxy(unitBox(0, 0, 0), owner, FilterDefault, FilterAll)
	b := grid.CreateProxy(unitBox(0.5, 0, 0), nil, FilterDefault, FilterAll)

	if owner.ProxyID != a.ID {
		t.Errorf("owner ProxyID = %d, want %d", owner.ProxyID, a.ID)
	}

	grid.CalculateOverlappingPairs()
	if err := grid.DestroyProxy(a); err != nil {
		t.Fatal(err)
	}
	if grid.OverlappingPairCache().Len() != 0 {
		t.Error("pairs of a destroyed proxy must be removed")
	}
	if owner.ProxyID != -1 {
		t.Error("owner should lose its proxy handle")
	}
	if err := grid.DestroyProxy(a); err != ErrUnknownProxy {
		t.Errorf("second DestroyProxy error = %v, want ErrUnknownProxy", err)
	}
	if len(grid.Proxies()) != 1 || grid.Proxies()[0] != b {
		t.Error("remaining proxies should be [b]")
	}
}
