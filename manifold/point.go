package manifold

import "github.com/go-gl/mathgl/mgl64"

// ManifoldPoint is one cached contact between the two bodies of a manifold.
type ManifoldPoint struct {
	// Anchors in each body's local space
	LocalPointA mgl64.Vec3
	LocalPointB mgl64.Vec3

	PositionWorldOnA mgl64.Vec3
	PositionWorldOnB mgl64.Vec3
	// NormalWorldOnB points from B toward A
	NormalWorldOnB mgl64.Vec3

	// Distance is signed along NormalWorldOnB, negative when penetrating
	Distance float64

	CombinedFriction    float64
	CombinedRestitution float64

	AppliedImpulse float64
	// LateralImpulse is the world space friction impulse of the last solve
	LateralImpulse mgl64.Vec3
	// LifeTime counts the refreshes the point survived
	LifeTime int

	// UserPersistentData is opaque application state kept across replacements
	UserPersistentData any

	PartID0, PartID1 int
	Index0, Index1   int
}

// NewManifoldPoint builds a point from its local anchors
func NewManifoldPoint(localA, localB, normalOnB mgl64.Vec3, distance float64) ManifoldPoint {
	return ManifoldPoint{
		LocalPointA:    localA,
		LocalPointB:    localB,
		NormalWorldOnB: normalOnB,
		Distance:       distance,
	}
}
