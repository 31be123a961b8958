package dispatch

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/ccd"
	"github.com/akmonengine/quill/manifold"
	"github.com/go-gl/mathgl/mgl64"
)

// Algorithm is the narrowphase of one pair of bodies. It is cached on the
// broadphase pair and destroyed with it.
type Algorithm interface {
	// ProcessCollision adds the current contacts of the pair to result and
	// refreshes the manifold.
	ProcessCollision(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result)
	// CalculateTimeOfImpact returns the fraction of the step at which the
	// bodies first touch, 1 when they do not.
	CalculateTimeOfImpact(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result) float64
	// Manifolds lists the manifolds the algorithm fills
	Manifolds() []*manifold.PersistentManifold
	// Destroy releases the manifolds the algorithm allocated
	Destroy()
}

// AlgorithmFactory builds the algorithm of a pair. shared may be nil.
type AlgorithmFactory func(d *Dispatcher, body0, body1 *actor.RigidBody, shared *manifold.PersistentManifold) Algorithm

// EmptyAlgorithm is the algorithm of shape pairs without a handler
var EmptyAlgorithm Algorithm = emptyAlgorithm{}

type emptyAlgorithm struct{}

func newEmptyAlgorithm(*Dispatcher, *actor.RigidBody, *actor.RigidBody, *manifold.PersistentManifold) Algorithm {
	return EmptyAlgorithm
}

func (emptyAlgorithm) ProcessCollision(*actor.RigidBody, *actor.RigidBody, *DispatcherInfo, *manifold.Result) {
}

func (emptyAlgorithm) CalculateTimeOfImpact(*actor.RigidBody, *actor.RigidBody, *DispatcherInfo, *manifold.Result) float64 {
	return 1
}

func (emptyAlgorithm) Manifolds() []*manifold.PersistentManifold {
	return nil
}

func (emptyAlgorithm) Destroy() {}

// manifoldOwner holds the manifold of a leaf algorithm, allocated on the
// first contact unless a shared one was given.
type manifoldOwner struct {
	dispatcher *Dispatcher
	manifold   *manifold.PersistentManifold
	owns       bool
}

func (o *manifoldOwner) acquire(result *manifold.Result) *manifold.PersistentManifold {
	if o.manifold == nil {
		o.manifold = o.dispatcher.NewManifold(result.Body0(), result.Body1())
		o.owns = true
	}
	result.SetPersistentManifold(o.manifold)
	return o.manifold
}

func (o *manifoldOwner) refresh(result *manifold.Result) {
	if o.manifold == nil {
		return
	}
	result.SetPersistentManifold(o.manifold)
	if o.owns {
		result.RefreshContactPoints()
	}
}

func (o *manifoldOwner) Manifolds() []*manifold.PersistentManifold {
	if o.manifold == nil {
		return nil
	}
	return []*manifold.PersistentManifold{o.manifold}
}

func (o *manifoldOwner) Destroy() {
	if o.owns && o.manifold != nil {
		o.dispatcher.ReleaseManifold(o.manifold)
	}
	o.manifold = nil
	o.owns = false
}

// addContact reports a contact computed with body0 and body1 exchanged
// when swapped is set.
func addContact(result *manifold.Result, swapped bool, normalOnB, pointOnB mgl64.Vec3, distance float64) {
	if !swapped {
		result.AddContactPoint(normalOnB, pointOnB, distance)
		return
	}
	pointOnA := pointOnB.Add(normalOnB.Mul(distance))
	result.AddContactPoint(normalOnB.Mul(-1), pointOnA, distance)
}

// sweep computes the time of impact between the current and the predicted
// transforms of the bodies, lowering their hit fractions.
func sweep(body0, body1 *actor.RigidBody, info *DispatcherInfo) float64 {
	from0, to0 := body0.Transform, body0.PredictedTransform
	from1, to1 := body1.Transform, body1.PredictedTransform
	if !exceedsMotionThreshold(body0, from0, to0) && !exceedsMotionThreshold(body1, from1, to1) {
		return 1
	}

	shape0, shape1 := body0.Shape, body1.Shape
	if body0.CcdSweptSphereRadius > 0 {
		shape0 = &actor.Sphere{Radius: body0.CcdSweptSphereRadius}
	}
	if body1.CcdSweptSphereRadius > 0 {
		shape1 = &actor.Sphere{Radius: body1.CcdSweptSphereRadius}
	}

	result := ccd.CastResult{AllowedPenetration: info.CcdMargin}
	if !ccd.New(shape0, shape1).CalcTimeOfImpact(from0, to0, from1, to1, &result) {
		return 1
	}

	if body0.HitFraction > result.Fraction {
		body0.HitFraction = result.Fraction
	}
	if body1.HitFraction > result.Fraction {
		body1.HitFraction = result.Fraction
	}
	return result.Fraction
}

func exceedsMotionThreshold(body *actor.RigidBody, from, to actor.Transform) bool {
	threshold := body.CcdMotionThreshold
	return threshold > 0 && to.Position.Sub(from.Position).LenSqr() > threshold*threshold
}
