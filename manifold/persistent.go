package manifold

import (
	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// CacheSize is the maximum number of points of a manifold
const CacheSize = 4

// DefaultBreakingThreshold is the distance past which cached contacts are dropped
const DefaultBreakingThreshold = 0.02

// ContactDestroyedFunc is invoked with the user data of a point leaving the cache
type ContactDestroyedFunc func(userPersistentData any)

// PersistentManifold caches up to four contact points between two bodies
// and keeps them across steps while they stay valid.
type PersistentManifold struct {
	points [CacheSize]ManifoldPoint
	count  int

	Body0 *actor.RigidBody
	Body1 *actor.RigidBody

	BreakingThreshold float64

	// Index is the manifold's slot in the dispatcher pool
	Index int

	onDestroyed ContactDestroyedFunc
}

// NewPersistentManifold creates an empty manifold. onDestroyed may be nil,
// it is called with the user data of every point leaving the cache.
func NewPersistentManifold(body0, body1 *actor.RigidBody, breakingThreshold float64, onDestroyed ContactDestroyedFunc) *PersistentManifold {
	return &PersistentManifold{
		Body0:             body0,
		Body1:             body1,
		BreakingThreshold: breakingThreshold,
		Index:             -1,
		onDestroyed:       onDestroyed,
	}
}

func (m *PersistentManifold) NumContacts() int {
	return m.count
}

// Point returns the i-th cached point, valid until the next mutation
func (m *PersistentManifold) Point(i int) *ManifoldPoint {
	return &m.points[i]
}

// SetBodies rebinds a pooled manifold
func (m *PersistentManifold) SetBodies(body0, body1 *actor.RigidBody) {
	m.Body0 = body0
	m.Body1 = body1
}

// CacheEntry returns the index of the cached point whose A anchor is the
// closest to pt's, within the breaking threshold, or -1.
func (m *PersistentManifold) CacheEntry(pt ManifoldPoint) int {
	shortest := m.BreakingThreshold * m.BreakingThreshold
	nearest := -1

	for i := 0; i < m.count; i++ {
		diff := m.points[i].LocalPointA.Sub(pt.LocalPointA)
		if d := diff.LenSqr(); d < shortest {
			shortest = d
			nearest = i
		}
	}

	return nearest
}

// AddManifoldPoint stores a new point. When the cache is full, the point
// replaces the slot that maximises the contact area; the deepest point
// is always kept.
func (m *PersistentManifold) AddManifoldPoint(pt ManifoldPoint) int {
	insertIndex := m.count
	if insertIndex == CacheSize {
		insertIndex = m.sortCachedPoints(pt)
		m.clearUserCache(&m.points[insertIndex])
	} else {
		m.count++
	}

	m.points[insertIndex] = pt
	return insertIndex
}

// sortCachedPoints picks the slot to overwrite. Each candidate slot is
// scored by the area of the quad formed by the new point and the three
// other points; the deepest cached point is never a candidate and equal
// areas go to the lowest slot.
func (m *PersistentManifold) sortCachedPoints(pt ManifoldPoint) int {
	deepest := -1
	maxPenetration := pt.Distance
	for i := 0; i < CacheSize; i++ {
		if m.points[i].Distance < maxPenetration {
			deepest = i
			maxPenetration = m.points[i].Distance
		}
	}

	p := func(i int) mgl64.Vec3 {
		return m.points[i].LocalPointA
	}
	area := func(a, b mgl64.Vec3) float64 {
		return a.Cross(b).LenSqr()
	}

	scores := [CacheSize]float64{-1, -1, -1, -1}
	if deepest != 0 {
		scores[0] = area(pt.LocalPointA.Sub(p(1)), p(3).Sub(p(2)))
	}
	if deepest != 1 {
		scores[1] = area(pt.LocalPointA.Sub(p(0)), p(3).Sub(p(2)))
	}
	if deepest != 2 {
		scores[2] = area(pt.LocalPointA.Sub(p(0)), p(3).Sub(p(1)))
	}
	if deepest != 3 {
		scores[3] = area(pt.LocalPointA.Sub(p(0)), p(2).Sub(p(1)))
	}

	best := 0
	for i := 1; i < CacheSize; i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

// ReplaceContactPoint overwrites a slot, keeping its lifetime, its friction
// impulse and its user data
func (m *PersistentManifold) ReplaceContactPoint(pt ManifoldPoint, index int) {
	old := &m.points[index]
	pt.LifeTime = old.LifeTime
	pt.LateralImpulse = old.LateralImpulse
	pt.UserPersistentData = old.UserPersistentData

	m.points[index] = pt
}

// RemoveContactPoint drops a slot, moving the last point into it
func (m *PersistentManifold) RemoveContactPoint(index int) {
	m.clearUserCache(&m.points[index])

	last := m.count - 1
	if index != last {
		m.points[index] = m.points[last]
	}
	m.points[last] = ManifoldPoint{}
	m.count--
}

// ClearManifold drops every point
func (m *PersistentManifold) ClearManifold() {
	for i := 0; i < m.count; i++ {
		m.clearUserCache(&m.points[i])
		m.points[i] = ManifoldPoint{}
	}
	m.count = 0
}

// ValidContactDistance reports whether a point is close enough to be kept
func (m *PersistentManifold) ValidContactDistance(pt *ManifoldPoint) bool {
	return pt.Distance <= m.BreakingThreshold
}

// RefreshContactPoints re-projects the anchors with the current transforms
// and drops points that separated or slid past the breaking threshold.
func (m *PersistentManifold) RefreshContactPoints(trA, trB actor.Transform) {
	for i := m.count - 1; i >= 0; i-- {
		pt := &m.points[i]
		pt.PositionWorldOnA = trA.Apply(pt.LocalPointA)
		pt.PositionWorldOnB = trB.Apply(pt.LocalPointB)
		pt.Distance = pt.PositionWorldOnA.Sub(pt.PositionWorldOnB).Dot(pt.NormalWorldOnB)
		pt.LifeTime++
	}

	threshold := m.BreakingThreshold * m.BreakingThreshold
	for i := m.count - 1; i >= 0; i-- {
		pt := &m.points[i]
		if !m.ValidContactDistance(pt) {
			m.RemoveContactPoint(i)
			continue
		}

		projected := pt.PositionWorldOnA.Sub(pt.NormalWorldOnB.Mul(pt.Distance))
		drift := pt.PositionWorldOnB.Sub(projected)
		if drift.LenSqr() > threshold {
			m.RemoveContactPoint(i)
		}
	}
}

func (m *PersistentManifold) clearUserCache(pt *ManifoldPoint) {
	if pt.UserPersistentData == nil {
		return
	}
	if m.onDestroyed != nil {
		m.onDestroyed(pt.UserPersistentData)
	}
	pt.UserPersistentData = nil
}
