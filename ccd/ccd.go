// Package ccd computes the first time of impact of two moving convex shapes
// by conservative advancement.
package ccd

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	MaxIterations = 64
	// DefaultRadius is the distance at which the shapes are considered touching
	DefaultRadius = 0.001

	epsilon = 1e-12
)

// CastResult is filled by a successful time of impact query
type CastResult struct {
	// Fraction of the motion at which the shapes first touch, in [0,1]
	Fraction float64
	// Normal on B, pointing from B toward A
	Normal   mgl64.Vec3
	HitPoint mgl64.Vec3
	// AllowedPenetration is added to every measured distance
	AllowedPenetration float64
}

// ContinuousConvexCollision sweeps two convex shapes over a unit interval
type ContinuousConvexCollision struct {
	ShapeA actor.Shape
	ShapeB actor.Shape

	// Radius is the target separation
	Radius        float64
	MaxIterations int

	closestPoints gjk.ClosestPointsFunc
}

// New creates a query with the default distance algorithm
func New(shapeA, shapeB actor.Shape) *ContinuousConvexCollision {
	return &ContinuousConvexCollision{
		ShapeA:        shapeA,
		ShapeB:        shapeB,
		Radius:        DefaultRadius,
		MaxIterations: MaxIterations,
		closestPoints: gjk.ClosestPoints,
	}
}

// WithClosestPoints swaps the distance query, mostly for tests
func (c *ContinuousConvexCollision) WithClosestPoints(f gjk.ClosestPointsFunc) *ContinuousConvexCollision {
	c.closestPoints = f
	return c
}

// CalcTimeOfImpact advances a fraction λ by distance / (projected relative
// velocity + maximum angular sweep) until the shapes are within Radius.
// It reports a miss when the shapes move apart, when λ leaves [0,1] or
// stops increasing, and when the iteration cap is reached.
func (c *ContinuousConvexCollision) CalcTimeOfImpact(fromA, toA, fromB, toB actor.Transform, result *CastResult) bool {
	linVelA, angVelA := actor.CalculateVelocity(fromA, toA, 1)
	linVelB, angVelB := actor.CalculateVelocity(fromB, toB, 1)

	maxAngularProjectedVelocity := angularSweep(angVelA, c.ShapeA) + angularSweep(angVelB, c.ShapeB)
	relLinVel := linVelB.Sub(linVelA)

	if relLinVel.Len()+maxAngularProjectedVelocity == 0 {
		return false
	}

	// penetration at the start is left to the discrete pass
	closest, overlap := c.query(fromA, fromB)
	if overlap {
		return false
	}

	lambda := 0.0
	lastLambda := lambda
	dist := closest.distance + result.AllowedPenetration
	normal := closest.normal
	hitPoint := closest.point

	projectedLinearVelocity := relLinVel.Dot(normal)
	if projectedLinearVelocity+maxAngularProjectedVelocity <= epsilon {
		return false
	}

	iterations := 0
	for dist > c.Radius {
		iterations++
		if iterations > c.MaxIterations {
			return false
		}

		lambda += dist / (projectedLinearVelocity + maxAngularProjectedVelocity)
		if !isFinite(lambda) || lambda > 1 || lambda < 0 {
			return false
		}
		if lambda <= lastLambda {
			return false
		}
		lastLambda = lambda

		closest, overlap = c.query(fromA.Lerp(toA, lambda), fromB.Lerp(toB, lambda))
		if overlap {
			break
		}
		dist = closest.distance + result.AllowedPenetration
		if !isFinite(dist) {
			return false
		}
		normal = closest.normal
		hitPoint = closest.point

		projectedLinearVelocity = relLinVel.Dot(normal)
		if projectedLinearVelocity+maxAngularProjectedVelocity <= epsilon {
			return false
		}
	}

	result.Fraction = lambda
	result.Normal = normal
	result.HitPoint = hitPoint
	return true
}

// angularSweep bounds how fast any point of the shape moves due to its
// rotation. A shape that does not rotate contributes nothing, even an
// unbounded one.
func angularSweep(angVel mgl64.Vec3, shape actor.Shape) float64 {
	w := angVel.Len()
	if w == 0 {
		return 0
	}
	return w * shape.BoundingRadius()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type closestPoint struct {
	distance float64
	normal   mgl64.Vec3
	point    mgl64.Vec3
}

// query measures the separation at the given transforms and reports an
// overlap instead when the shapes intersect. Planes are handled
// analytically, everything else goes through the distance query.
func (c *ContinuousConvexCollision) query(trA, trB actor.Transform) (closestPoint, bool) {
	if plane, ok := c.ShapeB.(*actor.Plane); ok {
		cp := planeDistance(c.ShapeA, trA, plane, trB, false)
		return cp, cp.distance <= 0
	}
	if plane, ok := c.ShapeA.(*actor.Plane); ok {
		cp := planeDistance(c.ShapeB, trB, plane, trA, true)
		return cp, cp.distance <= 0
	}

	res := c.closestPoints(
		gjk.Transformed{Shape: c.ShapeA, Transform: trA},
		gjk.Transformed{Shape: c.ShapeB, Transform: trB},
	)
	if res.Overlap {
		return closestPoint{}, true
	}

	return closestPoint{distance: res.Distance, normal: res.NormalOnB, point: res.PointOnB}, false
}

// planeDistance measures a convex shape against a plane. The normal always
// points from the manifold's B toward A.
func planeDistance(convex actor.Shape, convexTr actor.Transform, plane *actor.Plane, planeTr actor.Transform, planeIsA bool) closestPoint {
	normal := planeTr.Rotation.Rotate(plane.Normal)
	planePoint := planeTr.Apply(plane.Normal.Mul(-plane.Distance))

	deepest := actor.SupportAt(convex, convexTr, normal.Mul(-1))
	distance := deepest.Sub(planePoint).Dot(normal)
	onPlane := deepest.Sub(normal.Mul(distance))

	if planeIsA {
		return closestPoint{distance: distance, normal: normal.Mul(-1), point: deepest}
	}
	return closestPoint{distance: distance, normal: normal, point: onPlane}
}
