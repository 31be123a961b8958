package epa

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Contact is one clipped contact point
type Contact struct {
	// PointOnB lies on the surface of B
	PointOnB mgl64.Vec3
	// Distance is signed along the normal: negative when penetrating
	Distance float64
}

// GenerateManifold creates up to 4 contact points using Sutherland-Hodgman clipping.
//
//  1. Get the contact features of each shape (vertex, face)
//  2. The feature with more vertices is the reference, the other the incident
//  3. Clip the incident feature against the reference side planes
//  4. Keep the clipped points that are behind the reference plane
//
// normal points from A toward B and depth is the EPA penetration depth.
func GenerateManifold(a, b gjk.Transformed, normal mgl64.Vec3, depth float64) []Contact {
	featureA := worldFeature(a, normal)
	featureB := worldFeature(b, normal.Mul(-1))

	// A single-vertex feature is the deepest point of a curved shape
	if len(featureB) == 1 {
		return []Contact{{PointOnB: featureB[0], Distance: -depth}}
	}
	if len(featureA) == 1 {
		return []Contact{{PointOnB: featureA[0].Sub(normal.Mul(depth)), Distance: -depth}}
	}

	referenceIsA := len(featureA) >= len(featureB)
	reference, incident := featureA, featureB
	refNormal := normal
	if !referenceIsA {
		reference, incident = featureB, featureA
		refNormal = normal.Mul(-1)
	}

	clipped := clipIncidentAgainstReference(incident, reference, refNormal)

	// the reference face normal, oriented like refNormal
	faceNormal := reference[1].Sub(reference[0]).Cross(reference[2].Sub(reference[0]))
	if faceNormal.LenSqr() < 1e-20 {
		faceNormal = refNormal
	} else {
		faceNormal = faceNormal.Normalize()
		if faceNormal.Dot(refNormal) < 0 {
			faceNormal = faceNormal.Mul(-1)
		}
	}
	offset := reference[0].Dot(faceNormal)

	contacts := make([]Contact, 0, len(clipped))
	for _, point := range clipped {
		distance := point.Dot(faceNormal) - offset
		if distance > 0 {
			continue
		}

		if referenceIsA {
			// incident points lie on B
			contacts = append(contacts, Contact{PointOnB: point, Distance: distance})
		} else {
			// incident points lie on A, project them onto B's face
			contacts = append(contacts, Contact{PointOnB: point.Sub(faceNormal.Mul(distance)), Distance: distance})
		}
	}

	if len(contacts) == 0 {
		deepest := b.SupportWorld(normal.Mul(-1))
		contacts = append(contacts, Contact{PointOnB: deepest, Distance: -depth})
	}

	if len(contacts) > 4 {
		contacts = reduceTo4Points(contacts, normal)
	}

	return contacts
}

func worldFeature(shape gjk.Transformed, direction mgl64.Vec3) []mgl64.Vec3 {
	local := shape.Transform.Rotation.Conjugate().Rotate(direction)
	feature := shape.Shape.GetContactFeature(local)

	world := make([]mgl64.Vec3, len(feature))
	for i, point := range feature {
		world[i] = shape.Transform.Apply(point)
	}
	return world
}

// clipIncidentAgainstReference clips the incident polygon against the side
// planes of the reference polygon. Huge references (planes) are not clipped.
func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if isLargePlane(reference) || len(reference) < 2 {
		return incident
	}

	center := computeCenter(reference)
	output := incident

	for i := 0; i < len(reference); i++ {
		if len(output) == 0 {
			break
		}

		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		clipNormal := v2.Sub(v1).Cross(normal).Normalize()
		if center.Sub(v1).Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		output = clipPolygonAgainstPlane(output, v1, clipNormal)
	}

	return output
}

// clipPolygonAgainstPlane implements Sutherland-Hodgman for a single plane
func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	const tolerance = 1e-6

	var output []mgl64.Vec3
	for i := 0; i < len(polygon); i++ {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -tolerance {
			output = append(output, current)
			if nextDist < -tolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -tolerance {
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}
	}

	return output
}

func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	denom := dir.Dot(planeNormal)
	if math.Abs(denom) < 1e-10 {
		return p1
	}

	t := -p1.Sub(planePoint).Dot(planeNormal) / denom
	t = math.Max(0, math.Min(1, t))

	return p1.Add(dir.Mul(t))
}

func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{}
	}

	var sum mgl64.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// isLargePlane detects the oversized quad returned by actor.Plane
func isLargePlane(feature []mgl64.Vec3) bool {
	if len(feature) != 4 {
		return false
	}
	for i := 0; i < len(feature); i++ {
		for j := i + 1; j < len(feature); j++ {
			if feature[i].Sub(feature[j]).Len() > 100 {
				return true
			}
		}
	}
	return false
}

// reduceTo4Points keeps the extreme points along two tangent axes
func reduceTo4Points(points []Contact, normal mgl64.Vec3) []Contact {
	tangent1, tangent2 := actor.TangentBasis(normal)

	extremes := [4]int{}
	values := [4]float64{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for i, p := range points {
		x := p.PointOnB.Dot(tangent1)
		y := p.PointOnB.Dot(tangent2)
		if x < values[0] {
			values[0], extremes[0] = x, i
		}
		if x > values[1] {
			values[1], extremes[1] = x, i
		}
		if y < values[2] {
			values[2], extremes[2] = y, i
		}
		if y > values[3] {
			values[3], extremes[3] = y, i
		}
	}

	result := make([]Contact, 0, 4)
	for i, idx := range extremes {
		duplicate := false
		for _, prev := range extremes[:i] {
			if prev == idx {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, points[idx])
		}
	}
	return result
}
