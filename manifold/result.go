package manifold

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxFriction bounds the combined friction coefficient
const MaxFriction = 10.0

// ContactAddedFunc lets the application override the material of a new or
// refreshed point. The returned value is informational.
type ContactAddedFunc func(pt *ManifoldPoint, body0 *actor.RigidBody, partID0, index0 int, body1 *actor.RigidBody, partID1, index1 int) bool

// Callbacks are the application hooks of the narrowphase
type Callbacks struct {
	ContactAdded     ContactAddedFunc
	ContactDestroyed ContactDestroyedFunc
}

// CombineFriction is the product of both frictions, clamped
func CombineFriction(body0, body1 *actor.RigidBody) float64 {
	friction := body0.Material.Friction * body1.Material.Friction
	return math.Max(-MaxFriction, math.Min(friction, MaxFriction))
}

// CombineRestitution is the product of both restitutions
func CombineRestitution(body0, body1 *actor.RigidBody) float64 {
	return body0.Material.Restitution * body1.Material.Restitution
}

// Result collects the contacts found by an algorithm for one pair into its
// persistent manifold.
type Result struct {
	manifold *PersistentManifold

	body0, body1           *actor.RigidBody
	rootTrans0, rootTrans1 actor.Transform

	partID0, index0 int
	partID1, index1 int

	callbacks *Callbacks
}

// NewResult records the bodies in the order the algorithm sees them.
// callbacks may be nil.
func NewResult(body0, body1 *actor.RigidBody, callbacks *Callbacks) *Result {
	return &Result{
		body0:      body0,
		body1:      body1,
		rootTrans0: body0.Transform,
		rootTrans1: body1.Transform,
		callbacks:  callbacks,
	}
}

func (r *Result) SetPersistentManifold(m *PersistentManifold) {
	r.manifold = m
}

func (r *Result) PersistentManifold() *PersistentManifold {
	return r.manifold
}

func (r *Result) Body0() *actor.RigidBody {
	return r.body0
}

func (r *Result) Body1() *actor.RigidBody {
	return r.body1
}

// SetShapeIdentifiers tags the next contacts with compound child indices
func (r *Result) SetShapeIdentifiers(partID0, index0, partID1, index1 int) {
	r.partID0 = partID0
	r.index0 = index0
	r.partID1 = partID1
	r.index1 = index1
}

// SetRootTransforms overrides the transforms anchors are expressed in
func (r *Result) SetRootTransforms(tr0, tr1 actor.Transform) {
	r.rootTrans0 = tr0
	r.rootTrans1 = tr1
}

// AddContactPoint stores a contact given on B's surface. normalOnB points
// from B toward A and depth is the signed distance along it.
func (r *Result) AddContactPoint(normalOnB, pointInWorld mgl64.Vec3, depth float64) {
	if r.manifold == nil {
		return
	}
	if depth > r.manifold.BreakingThreshold {
		return
	}

	pointA := pointInWorld.Add(normalOnB.Mul(depth))

	// the manifold may store the bodies in the other order
	swapped := r.manifold.Body0 != r.body0

	var pt ManifoldPoint
	if swapped {
		pt = NewManifoldPoint(
			r.rootTrans1.InverseApply(pointInWorld),
			r.rootTrans0.InverseApply(pointA),
			normalOnB.Mul(-1),
			depth,
		)
		pt.PositionWorldOnA = pointInWorld
		pt.PositionWorldOnB = pointA
		pt.PartID0, pt.Index0 = r.partID1, r.index1
		pt.PartID1, pt.Index1 = r.partID0, r.index0
	} else {
		pt = NewManifoldPoint(
			r.rootTrans0.InverseApply(pointA),
			r.rootTrans1.InverseApply(pointInWorld),
			normalOnB,
			depth,
		)
		pt.PositionWorldOnA = pointA
		pt.PositionWorldOnB = pointInWorld
		pt.PartID0, pt.Index0 = r.partID0, r.index0
		pt.PartID1, pt.Index1 = r.partID1, r.index1
	}

	pt.CombinedFriction = CombineFriction(r.body0, r.body1)
	pt.CombinedRestitution = CombineRestitution(r.body0, r.body1)

	index := r.manifold.CacheEntry(pt)
	if index >= 0 {
		r.manifold.ReplaceContactPoint(pt, index)
	} else {
		index = r.manifold.AddManifoldPoint(pt)
	}

	if r.callbacks == nil || r.callbacks.ContactAdded == nil {
		return
	}
	if r.body0.Flags&actor.FlagCustomMaterialCallback == 0 && r.body1.Flags&actor.FlagCustomMaterialCallback == 0 {
		return
	}

	b0, b1 := r.manifold.Body0, r.manifold.Body1
	stored := r.manifold.Point(index)
	r.callbacks.ContactAdded(stored, b0, stored.PartID0, stored.Index0, b1, stored.PartID1, stored.Index1)
}

// RefreshContactPoints refreshes the manifold with the root transforms,
// in the manifold's body order.
func (r *Result) RefreshContactPoints() {
	if r.manifold == nil || r.manifold.NumContacts() == 0 {
		return
	}

	if r.manifold.Body0 != r.body0 {
		r.manifold.RefreshContactPoints(r.rootTrans1, r.rootTrans0)
		return
	}
	r.manifold.RefreshContactPoints(r.rootTrans0, r.rootTrans1)
}
