package dispatch

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/manifold"
)

// CompoundAlgorithm dispatches every child of a compound body against the
// other body. The children fill one manifold, anchored on the compound's
// root transform.
type CompoundAlgorithm struct {
	dispatcher *Dispatcher
	swapped    bool

	children []Algorithm
	manifold *manifold.PersistentManifold
	owns     bool
}

// NewCompoundAlgorithm handles body0 compound
func NewCompoundAlgorithm(d *Dispatcher, body0, body1 *actor.RigidBody, shared *manifold.PersistentManifold) Algorithm {
	return newCompoundAlgorithm(d, body0, body1, shared, false)
}

// NewSwappedCompoundAlgorithm handles body1 compound
func NewSwappedCompoundAlgorithm(d *Dispatcher, body0, body1 *actor.RigidBody, shared *manifold.PersistentManifold) Algorithm {
	return newCompoundAlgorithm(d, body0, body1, shared, true)
}

func newCompoundAlgorithm(d *Dispatcher, body0, body1 *actor.RigidBody, shared *manifold.PersistentManifold, swapped bool) Algorithm {
	a := &CompoundAlgorithm{dispatcher: d, swapped: swapped, manifold: shared}
	if a.manifold == nil {
		a.manifold = d.NewManifold(body0, body1)
		a.owns = true
	}

	compoundBody, otherBody := body0, body1
	if swapped {
		compoundBody, otherBody = body1, body0
	}
	compound, ok := compoundBody.Shape.(*actor.Compound)
	if !ok {
		return a
	}

	a.children = make([]Algorithm, len(compound.Children))
	for i := range compound.Children {
		restore := substitute(compoundBody, compound.Children[i])
		if swapped {
			a.children[i] = d.FindAlgorithm(otherBody, compoundBody, a.manifold)
		} else {
			a.children[i] = d.FindAlgorithm(compoundBody, otherBody, a.manifold)
		}
		restore()
	}

	return a
}

// substitute temporarily replaces the shape of a compound body by one of
// its children, placed at the child's world transforms.
func substitute(body *actor.RigidBody, child actor.CompoundChild) (restore func()) {
	shape, transform, predicted := body.Shape, body.Transform, body.PredictedTransform

	body.Shape = child.Shape
	body.Transform = transform.Mul(child.Transform)
	body.PredictedTransform = predicted.Mul(child.Transform)

	return func() {
		body.Shape = shape
		body.Transform = transform
		body.PredictedTransform = predicted
	}
}

func (a *CompoundAlgorithm) ProcessCollision(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result) {
	compoundBody, otherBody := body0, body1
	if a.swapped {
		compoundBody, otherBody = body1, body0
	}
	compound, ok := compoundBody.Shape.(*actor.Compound)
	if !ok || len(compound.Children) != len(a.children) {
		return
	}

	otherAABB := otherBody.Shape.GetAABB()
	for i, child := range compound.Children {
		if !child.Shape.GetAABB().Overlaps(otherAABB) {
			continue
		}

		if a.swapped {
			result.SetShapeIdentifiers(-1, 0, -1, i)
		} else {
			result.SetShapeIdentifiers(-1, i, -1, 0)
		}

		restore := substitute(compoundBody, child)
		a.children[i].ProcessCollision(body0, body1, info, result)
		restore()
	}

	result.SetShapeIdentifiers(-1, 0, -1, 0)
	result.SetPersistentManifold(a.manifold)
	if a.owns {
		result.RefreshContactPoints()
	}
}

// CalculateTimeOfImpact is the earliest impact of any child
func (a *CompoundAlgorithm) CalculateTimeOfImpact(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result) float64 {
	compoundBody := body0
	if a.swapped {
		compoundBody = body1
	}
	compound, ok := compoundBody.Shape.(*actor.Compound)
	if !ok || len(compound.Children) != len(a.children) {
		return 1
	}

	fraction := 1.0
	for i, child := range compound.Children {
		restore := substitute(compoundBody, child)
		if toi := a.children[i].CalculateTimeOfImpact(body0, body1, info, result); toi < fraction {
			fraction = toi
		}
		restore()
	}
	return fraction
}

func (a *CompoundAlgorithm) Manifolds() []*manifold.PersistentManifold {
	return []*manifold.PersistentManifold{a.manifold}
}

func (a *CompoundAlgorithm) Destroy() {
	for _, child := range a.children {
		child.Destroy()
	}
	a.children = nil

	if a.owns && a.manifold != nil {
		a.dispatcher.ReleaseManifold(a.manifold)
	}
	a.manifold = nil
	a.owns = false
}
