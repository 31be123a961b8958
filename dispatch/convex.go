package dispatch

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/epa"
	"github.com/akmonengine/quill/gjk"
	"github.com/akmonengine/quill/manifold"
	"github.com/go-gl/mathgl/mgl64"
)

// ConvexConvexAlgorithm runs GJK, then EPA and face clipping on penetration
type ConvexConvexAlgorithm struct {
	manifoldOwner
}

func NewConvexConvexAlgorithm(d *Dispatcher, body0, body1 *actor.RigidBody, shared *manifold.PersistentManifold) Algorithm {
	return &ConvexConvexAlgorithm{manifoldOwner{dispatcher: d, manifold: shared}}
}

func (a *ConvexConvexAlgorithm) ProcessCollision(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result) {
	shape0, shape1 := gjk.FromBody(body0), gjk.FromBody(body1)

	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	simplex.Reset()
	defer gjk.SimplexPool.Put(simplex)

	if gjk.GJK(shape0, shape1, simplex) {
		penetration, err := epa.EPA(shape0, shape1, simplex)
		if err == nil {
			contacts := epa.GenerateManifold(shape0, shape1, penetration.Normal, penetration.Depth)
			if len(contacts) > 0 {
				a.acquire(result)
				normalOnB := penetration.Normal.Mul(-1)
				for _, contact := range contacts {
					result.AddContactPoint(normalOnB, contact.PointOnB, contact.Distance)
				}
			}
		}
	}

	a.refresh(result)
}

func (a *ConvexConvexAlgorithm) CalculateTimeOfImpact(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result) float64 {
	return sweep(body0, body1, info)
}

// SphereSphereAlgorithm is the analytic contact of two spheres
type SphereSphereAlgorithm struct {
	manifoldOwner
}

func NewSphereSphereAlgorithm(d *Dispatcher, body0, body1 *actor.RigidBody, shared *manifold.PersistentManifold) Algorithm {
	return &SphereSphereAlgorithm{manifoldOwner{dispatcher: d, manifold: shared}}
}

func (a *SphereSphereAlgorithm) ProcessCollision(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result) {
	sphere0, ok0 := body0.Shape.(*actor.Sphere)
	sphere1, ok1 := body1.Shape.(*actor.Sphere)
	if !ok0 || !ok1 {
		return
	}

	diff := body0.Transform.Position.Sub(body1.Transform.Position)
	length := diff.Len()
	radii := sphere0.Radius + sphere1.Radius

	if length > radii {
		a.refresh(result)
		return
	}

	// concentric spheres get an arbitrary normal
	normalOnB := mgl64.Vec3{1, 0, 0}
	if length > 1e-12 {
		normalOnB = diff.Mul(1 / length)
	}
	pointOnB := body1.Transform.Position.Add(normalOnB.Mul(sphere1.Radius))

	a.acquire(result)
	result.AddContactPoint(normalOnB, pointOnB, length-radii)
	a.refresh(result)
}

func (a *SphereSphereAlgorithm) CalculateTimeOfImpact(body0, body1 *actor.RigidBody, info *DispatcherInfo, result *manifold.Result) float64 {
	return sweep(body0, body1, info)
}
