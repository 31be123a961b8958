package epa

import (
	"math"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// vecNear compares two vectors within an absolute distance
func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func sphereAt(position mgl64.Vec3, radius float64) gjk.Transformed {
	return gjk.Transformed{Shape: &actor.Sphere{Radius: radius}, Transform: actor.NewTransformAt(position, mgl64.QuatIdent())}
}

func boxAt(position, halfExtents mgl64.Vec3, rotation mgl64.Quat) gjk.Transformed {
	return gjk.Transformed{Shape: &actor.Box{HalfExtents: halfExtents}, Transform: actor.NewTransformAt(position, rotation)}
}

func penetrate(t *testing.T, a, b gjk.Transformed) Penetration {
	t.Helper()

	simplex := &gjk.Simplex{}
	if !gjk.GJK(a, b, simplex) {
		t.Fatal("GJK found no overlap")
	}
	result, err := EPA(a, b, simplex)
	if err != nil {
		t.Fatalf("EPA() error = %v", err)
	}
	return result
}

func TestSnapNormalToAxis(t *testing.T) {
	tests := []struct {
		name     string
		input    mgl64.Vec3
		expected mgl64.Vec3
	}{
		{"small x component", mgl64.Vec3{1e-9, 1.0, 0.0}, mgl64.Vec3{0, 1, 0}},
		{"small z component", mgl64.Vec3{0.0, 1.0, 1e-9}, mgl64.Vec3{0, 1, 0}},
		{"diagonal", mgl64.Vec3{1, 1, 1}.Normalize(), mgl64.Vec3{1, 1, 1}.Normalize()},
		{"near zero vector", mgl64.Vec3{1e-9, 1e-9, 1e-9}, mgl64.Vec3{0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := snapNormalToAxis(tt.input); !vecNear(result, tt.expected, 1e-9) {
				t.Errorf("snapNormalToAxis(%v) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestEPA(t *testing.T) {
	tests := []struct {
		name       string
		a, b       gjk.Transformed
		wantNormal mgl64.Vec3
		wantDepth  float64
		tolerance  float64
	}{
		{
			name:       "boxes stacked",
			a:          boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, mgl64.QuatIdent()),
			b:          boxAt(mgl64.Vec3{0, 1.8, 0}, mgl64.Vec3{1, 1, 1}, mgl64.QuatIdent()),
			wantNormal: mgl64.Vec3{0, 1, 0},
			wantDepth:  0.2,
			tolerance:  1e-3,
		},
		{
			name:       "spheres side by side",
			a:          sphereAt(mgl64.Vec3{0, 0, 0}, 1),
			b:          sphereAt(mgl64.Vec3{1.5, 0, 0}, 1),
			wantNormal: mgl64.Vec3{1, 0, 0},
			wantDepth:  0.5,
			tolerance:  2e-2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := penetrate(t, tt.a, tt.b)
			if math.Abs(result.Depth-tt.wantDepth) > tt.tolerance {
				t.Errorf("Depth = %v, want %v", result.Depth, tt.wantDepth)
			}
			if result.Normal.Dot(tt.wantNormal) < 0.98 {
				t.Errorf("Normal = %v, want %v", result.Normal, tt.wantNormal)
			}
		})
	}
}

func TestHandleDegenerateSimplex(t *testing.T) {
	a := sphereAt(mgl64.Vec3{0, 0, 0}, 1)
	b := sphereAt(mgl64.Vec3{0, 0, 1.9}, 1)

	t.Run("two points", func(t *testing.T) {
		simplex := &gjk.Simplex{Points: [4]mgl64.Vec3{{0, 0, 0.3}, {0, 0, 0.1}}, Count: 2}
		result := handleDegenerateSimplex(a, b, simplex)
		if math.Abs(result.Depth-0.1) > 1e-12 || !vecNear(result.Normal, mgl64.Vec3{0, 0, 1}, 1e-9) {
			t.Errorf("got %+v, want depth 0.1 along +z", result)
		}
	})

	t.Run("single point uses centers", func(t *testing.T) {
		simplex := &gjk.Simplex{Count: 1}
		result := handleDegenerateSimplex(a, b, simplex)
		if result.Depth != DegeneratePenetrationEstimate || !vecNear(result.Normal, mgl64.Vec3{0, 0, 1}, 1e-12) {
			t.Errorf("got %+v", result)
		}
	})
}

func TestGenerateManifold_BoxOnBox(t *testing.T) {
	a := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 1, 2}, mgl64.QuatIdent())
	b := boxAt(mgl64.Vec3{0, 1.9, 0}, mgl64.Vec3{1, 1, 1}, mgl64.QuatIdent())

	result := penetrate(t, a, b)
	contacts := GenerateManifold(a, b, result.Normal, result.Depth)

	if len(contacts) != 4 {
		t.Fatalf("got %d contacts, want the 4 corners of B's bottom face", len(contacts))
	}
	for _, c := range contacts {
		if math.Abs(c.Distance+0.1) > 1e-3 {
			t.Errorf("contact distance = %v, want -0.1", c.Distance)
		}
		if math.Abs(c.PointOnB.Y()-0.9) > 1e-3 {
			t.Errorf("point on B = %v, want y = 0.9", c.PointOnB)
		}
	}
}

func TestGenerateManifold_BoxUnderSmallerBox(t *testing.T) {
	// A is the small box on top of the large B: B's face is clipped to A's
	a := boxAt(mgl64.Vec3{0, 1.9, 0}, mgl64.Vec3{1, 1, 1}, mgl64.QuatIdent())
	b := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 1, 2}, mgl64.QuatIdent())

	result := penetrate(t, a, b)
	contacts := GenerateManifold(a, b, result.Normal, result.Depth)

	if len(contacts) == 0 {
		t.Fatal("no contacts")
	}
	for _, c := range contacts {
		if c.Distance >= 0 {
			t.Errorf("contact distance = %v, want negative", c.Distance)
		}
		if math.Abs(c.PointOnB.Y()-1) > 1e-3 {
			t.Errorf("point on B = %v, want on B's top face y = 1", c.PointOnB)
		}
	}
}

func TestGenerateManifold_SphereOnBox(t *testing.T) {
	a := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, mgl64.QuatIdent())
	b := sphereAt(mgl64.Vec3{0, 1.4, 0}, 0.5)

	result := penetrate(t, a, b)
	contacts := GenerateManifold(a, b, result.Normal, result.Depth)

	if len(contacts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(contacts))
	}
	if !vecNear(contacts[0].PointOnB, mgl64.Vec3{0, 0.9, 0}, 1e-2) {
		t.Errorf("PointOnB = %v, want sphere bottom {0,0.9,0}", contacts[0].PointOnB)
	}
}

func TestReduceTo4Points(t *testing.T) {
	var contacts []Contact
	for i := 0; i < 8; i++ {
		angle := float64(i) * math.Pi / 4
		contacts = append(contacts, Contact{PointOnB: mgl64.Vec3{math.Cos(angle), 0, math.Sin(angle)}})
	}

	reduced := reduceTo4Points(contacts, mgl64.Vec3{0, 1, 0})
	if len(reduced) > 4 || len(reduced) < 2 {
		t.Errorf("reduced to %d points", len(reduced))
	}
}
