// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA runs after GJK reports an overlap. It expands the GJK tetrahedron
// toward the boundary of the Minkowski difference until the face closest to
// the origin stops moving; that face gives the penetration normal and depth.
// GenerateManifold then clips the shapes' contact features to produce up to
// four contact points with individual signed distances.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"errors"

	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// EPAMaxIterations limits polytope expansion
	EPAMaxIterations = 32

	// EPAConvergenceTolerance is the minimum improvement of the closest face
	// distance for the expansion to continue
	EPAConvergenceTolerance = 0.001

	// EPAMinFaceDistance is the distance under which faces are treated as degenerate
	EPAMinFaceDistance = 0.0001

	// NormalSnapThreshold clamps nearly-zero normal components to exactly zero
	NormalSnapThreshold = 1e-8

	// DegeneratePenetrationEstimate is used when GJK could not build a tetrahedron
	DegeneratePenetrationEstimate = 0.01

	polytopeInitialCapacity = 4
)

var (
	ErrInvalidSimplex = errors.New("epa: simplex is not a tetrahedron")
	ErrNotConverged   = errors.New("epa: failed to converge")
)

// Penetration is the minimum translation separating two overlapping shapes
type Penetration struct {
	// Normal points from A toward B
	Normal mgl64.Vec3
	// Depth is positive
	Depth float64
}

// EPA computes the penetration of two overlapping convex shapes, starting
// from the simplex left by gjk.GJK.
func EPA(a, b gjk.Convex, simplex *gjk.Simplex) (Penetration, error) {
	if simplex.Count < 4 {
		return handleDegenerateSimplex(a, b, simplex), nil
	}

	builder := polytopeBuilderPool.Get().(*PolytopeBuilder)
	defer polytopeBuilderPool.Put(builder)
	builder.Reset()

	if err := builder.BuildInitialFaces(simplex); err != nil {
		return Penetration{}, err
	}

	for i := 0; i < EPAMaxIterations; i++ {
		if len(builder.faces) == 0 {
			break
		}

		closestFaceIndex := builder.FindClosestFaceIndex()
		closestFace := builder.faces[closestFaceIndex]

		// degenerate faces touching the origin are dropped
		if closestFace.Distance < EPAMinFaceDistance && len(builder.faces) > 1 {
			builder.faces[closestFaceIndex] = builder.faces[len(builder.faces)-1]
			builder.faces = builder.faces[:len(builder.faces)-1]
			continue
		}

		support := gjk.MinkowskiSupport(a, b, closestFace.Normal)
		distance := support.Dot(closestFace.Normal)

		if distance-closestFace.Distance < EPAConvergenceTolerance {
			return Penetration{Normal: closestFace.Normal, Depth: closestFace.Distance}, nil
		}

		builder.AddPointAndRebuildFaces(support, closestFaceIndex)
	}

	return Penetration{}, ErrNotConverged
}

// handleDegenerateSimplex estimates a penetration when GJK ended with fewer
// than 4 points, which happens for shapes barely touching.
func handleDegenerateSimplex(a, b gjk.Convex, simplex *gjk.Simplex) Penetration {
	if simplex.Count >= 2 {
		p0 := simplex.Points[0]
		p1 := simplex.Points[1]

		closest := p0
		if p1.LenSqr() < p0.LenSqr() {
			closest = p1
		}
		if depth := closest.Len(); depth > NormalSnapThreshold {
			return Penetration{Normal: closest.Mul(1 / depth), Depth: depth}
		}
	}

	normal := b.Origin().Sub(a.Origin())
	if length := normal.Len(); length < NormalSnapThreshold {
		normal = mgl64.Vec3{0, 1, 0}
	} else {
		normal = normal.Mul(1.0 / length)
	}

	return Penetration{Normal: normal, Depth: DegeneratePenetrationEstimate}
}
