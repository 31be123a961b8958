package dispatch

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/manifold"
)

// ConvexPlaneAlgorithm collides a convex body with a plane analytically:
// the feature of the convex facing the plane is tested vertex by vertex.
type ConvexPlaneAlgorithm struct {
	manifoldOwner
	swapped bool
}

// NewConvexPlaneAlgorithm handles body0 convex and body1 a plane
func NewConvexPlaneAlgorithm(d *Dispatcher, body0, body1 *actor.RigidBody, shared *manifold.PersistentManifold) Algorithm {
	return &ConvexPlaneAlgorithm{manifoldOwner: manifoldOwner{dispatcher: d, manifold: shared}}
}

// NewSwappedConvexPlaneAlgorithm handles body0 a plane and body1 convex
func NewSwappedConvexPlaneAlgorithm(d *Dispatcher, body0, body1 *actor.RigidBody, shared *manifold.PersistentManifold) Algorithm {
	return &ConvexPlaneAlgorithm{manifoldOwner: manifoldOwner{dispatcher: d, manifold: shared}, swapped: true}
}

func (a *ConvexPlaneAlgorithm) ProcessCollision(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result) {
	convexBody, planeBody := body0, body1
	if a.swapped {
		convexBody, planeBody = body1, body0
	}
	plane, ok := planeBody.Shape.(*actor.Plane)
	if !ok {
		return
	}

	planeTr := planeBody.Transform
	normal := planeTr.Rotation.Rotate(plane.Normal)
	planePoint := planeTr.Apply(plane.Normal.Mul(-plane.Distance))

	convexTr := convexBody.Transform
	localDirection := convexTr.InverseRotation.Rotate(normal.Mul(-1))
	feature := convexBody.Shape.GetContactFeature(localDirection)

	threshold := a.dispatcher.BreakingThreshold()
	for _, local := range feature {
		vertex := convexTr.Apply(local)
		distance := vertex.Sub(planePoint).Dot(normal)
		if distance > threshold {
			continue
		}

		// contact computed with the convex as A and the plane as B
		a.acquire(result)
		onPlane := vertex.Sub(normal.Mul(distance))
		addContact(result, a.swapped, normal, onPlane, distance)
	}

	a.refresh(result)
}

func (a *ConvexPlaneAlgorithm) CalculateTimeOfImpact(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result) float64 {
	return sweep(body0, body1, info)
}
