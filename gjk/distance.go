package gjk

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	distanceMaxIterations = 64
	// relative convergence tolerance on |v|^2 - v.w
	distanceTolerance = 1e-10
	// squared length under which the shapes are considered touching
	overlapTolerance = 1e-14
)

// ClosestResult describes the closest features of two convex shapes.
type ClosestResult struct {
	// Overlap is set when the shapes intersect; the other fields are then unset
	Overlap bool

	Distance float64
	// NormalOnB is the unit direction from PointOnB toward PointOnA
	NormalOnB mgl64.Vec3
	PointOnA  mgl64.Vec3
	PointOnB  mgl64.Vec3

	Iterations int
}

// ClosestPointsFunc is the distance query signature expected by callers
// that accept an alternative implementation.
type ClosestPointsFunc func(a, b Convex) ClosestResult

type supportVertex struct {
	w, a, b mgl64.Vec3
}

func supportPoint(a, b Convex, direction mgl64.Vec3) supportVertex {
	pa := a.SupportWorld(direction)
	pb := b.SupportWorld(direction.Mul(-1))
	return supportVertex{w: pa.Sub(pb), a: pa, b: pb}
}

// distanceSimplex keeps the support vertices with their barycentric weights
// of the current closest point v.
type distanceSimplex struct {
	vertices [4]supportVertex
	weights  [4]float64
	count    int
}

func (s *distanceSimplex) closest() mgl64.Vec3 {
	var v mgl64.Vec3
	for i := 0; i < s.count; i++ {
		v = v.Add(s.vertices[i].w.Mul(s.weights[i]))
	}
	return v
}

func (s *distanceSimplex) witnesses() (mgl64.Vec3, mgl64.Vec3) {
	var pa, pb mgl64.Vec3
	for i := 0; i < s.count; i++ {
		pa = pa.Add(s.vertices[i].a.Mul(s.weights[i]))
		pb = pb.Add(s.vertices[i].b.Mul(s.weights[i]))
	}
	return pa, pb
}

func (s *distanceSimplex) contains(w mgl64.Vec3) bool {
	for i := 0; i < s.count; i++ {
		if s.vertices[i].w.Sub(w).LenSqr() < 1e-18 {
			return true
		}
	}
	return false
}

// keep reduces the simplex to the vertices at indices, with their weights
func (s *distanceSimplex) keep(indices []int, weights []float64) {
	var vertices [4]supportVertex
	for i, idx := range indices {
		vertices[i] = s.vertices[idx]
		s.weights[i] = weights[i]
	}
	s.vertices = vertices
	s.count = len(indices)
}

// ClosestPoints computes the distance between two convex shapes and the
// witness points realizing it.
func ClosestPoints(a, b Convex) ClosestResult {
	direction := a.Origin().Sub(b.Origin())
	if direction.LenSqr() < 1e-12 {
		direction = mgl64.Vec3{1, 0, 0}
	}

	var simplex distanceSimplex
	simplex.vertices[0] = supportPoint(a, b, direction.Mul(-1))
	simplex.weights[0] = 1
	simplex.count = 1
	v := simplex.vertices[0].w

	iterations := 0
	for ; iterations < distanceMaxIterations; iterations++ {
		vv := v.LenSqr()
		if vv < overlapTolerance {
			return ClosestResult{Overlap: true, Iterations: iterations}
		}

		w := supportPoint(a, b, v.Mul(-1))
		if vv-v.Dot(w.w) <= distanceTolerance*math.Max(1, vv) || simplex.contains(w.w) {
			break
		}

		simplex.vertices[simplex.count] = w
		simplex.count++

		if !reduceSimplex(&simplex) {
			return ClosestResult{Overlap: true, Iterations: iterations}
		}

		next := simplex.closest()
		// v must shrink monotonically; stop on numerical stall
		if next.LenSqr() >= vv {
			v = next
			break
		}
		v = next
	}

	pa, pb := simplex.witnesses()
	distance := v.Len()
	if distance*distance < overlapTolerance {
		return ClosestResult{Overlap: true, Iterations: iterations}
	}

	return ClosestResult{
		Distance:   distance,
		NormalOnB:  v.Mul(1 / distance),
		PointOnA:   pa,
		PointOnB:   pb,
		Iterations: iterations,
	}
}

// reduceSimplex replaces the simplex by the smallest sub-simplex containing
// the point closest to the origin. It returns false when the origin is
// inside a tetrahedron.
func reduceSimplex(s *distanceSimplex) bool {
	switch s.count {
	case 1:
		s.weights[0] = 1
	case 2:
		indices, weights := closestOnSegment(s.vertices[0].w, s.vertices[1].w)
		s.keep(remap(indices, 0, 1), weights)
	case 3:
		indices, weights := closestOnTriangle(s.vertices[0].w, s.vertices[1].w, s.vertices[2].w)
		s.keep(remap(indices, 0, 1, 2), weights)
	case 4:
		indices, weights, inside := closestOnTetrahedron(s.vertices[0].w, s.vertices[1].w, s.vertices[2].w, s.vertices[3].w)
		if inside {
			return false
		}
		s.keep(indices, weights)
	}
	return true
}

func remap(local []int, global ...int) []int {
	out := make([]int, len(local))
	for i, idx := range local {
		out[i] = global[idx]
	}
	return out
}

func closestOnSegment(a, b mgl64.Vec3) ([]int, []float64) {
	ab := b.Sub(a)
	denom := ab.LenSqr()
	if denom < 1e-20 {
		return []int{0}, []float64{1}
	}

	t := -a.Dot(ab) / denom
	if t <= 0 {
		return []int{0}, []float64{1}
	}
	if t >= 1 {
		return []int{1}, []float64{1}
	}
	return []int{0, 1}, []float64{1 - t, t}
}

// closestOnTriangle walks the Voronoi regions of the triangle for the
// origin (Ericson, ClosestPtPointTriangle).
func closestOnTriangle(a, b, c mgl64.Vec3) ([]int, []float64) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := a.Mul(-1)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return []int{0}, []float64{1}
	}

	bp := b.Mul(-1)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return []int{1}, []float64{1}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return []int{0, 1}, []float64{1 - v, v}
	}

	cp := c.Mul(-1)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return []int{2}, []float64{1}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return []int{0, 2}, []float64{1 - w, w}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return []int{1, 2}, []float64{1 - w, w}
	}

	sum := va + vb + vc
	if math.Abs(sum) < 1e-20 {
		// degenerate: keep the closest edge
		return closestDegenerateTriangle(a, b, c)
	}
	denom := 1 / sum
	v := vb * denom
	w := vc * denom
	return []int{0, 1, 2}, []float64{1 - v - w, v, w}
}

func closestDegenerateTriangle(a, b, c mgl64.Vec3) ([]int, []float64) {
	points := [3]mgl64.Vec3{a, b, c}
	edges := [3][2]int{{0, 1}, {0, 2}, {1, 2}}

	var bestIndices []int
	var bestWeights []float64
	best := math.Inf(1)
	for _, edge := range edges {
		indices, weights := closestOnSegment(points[edge[0]], points[edge[1]])
		var p mgl64.Vec3
		for i, idx := range indices {
			p = p.Add(points[edge[idx]].Mul(weights[i]))
		}
		if d := p.LenSqr(); d < best {
			best = d
			bestIndices = remap(indices, edge[0], edge[1])
			bestWeights = weights
		}
	}
	return bestIndices, bestWeights
}

// originOutsidePlane reports whether the origin and d lie on opposite sides
// of plane abc. Degenerate planes report false.
func originOutsidePlane(a, b, c, d mgl64.Vec3) bool {
	normal := b.Sub(a).Cross(c.Sub(a))
	signOrigin := a.Mul(-1).Dot(normal)
	signD := d.Sub(a).Dot(normal)
	if signD*signD < 1e-24 {
		return false
	}
	return signOrigin*signD < 0
}

func closestOnTetrahedron(a, b, c, d mgl64.Vec3) ([]int, []float64, bool) {
	points := [4]mgl64.Vec3{a, b, c, d}
	faces := [4][4]int{{0, 1, 2, 3}, {0, 2, 3, 1}, {0, 3, 1, 2}, {1, 3, 2, 0}}

	volume := b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a))
	degenerate := math.Abs(volume) < 1e-18

	var bestIndices []int
	var bestWeights []float64
	best := math.Inf(1)
	outside := false
	for _, face := range faces {
		p0, p1, p2 := points[face[0]], points[face[1]], points[face[2]]
		if !degenerate && !originOutsidePlane(p0, p1, p2, points[face[3]]) {
			continue
		}
		outside = true

		indices, weights := closestOnTriangle(p0, p1, p2)
		var p mgl64.Vec3
		for i, idx := range indices {
			p = p.Add(points[face[idx]].Mul(weights[i]))
		}
		if dist := p.LenSqr(); dist < best {
			best = dist
			bestIndices = remap(indices, face[0], face[1], face[2])
			bestWeights = weights
		}
	}

	if !outside {
		return nil, nil, true
	}
	return bestIndices, bestWeights, false
}
