package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind identifies a collision shape for narrowphase dispatch
type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
	ShapeBox
	ShapePlane
	ShapeCompound

	// NumShapeKinds sizes the dispatcher's algorithm table
	NumShapeKinds
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	case ShapePlane:
		return "plane"
	case ShapeCompound:
		return "compound"
	}
	return "unknown"
}

// IsConvex reports whether support mapping describes the whole shape
func (k ShapeKind) IsConvex() bool {
	return k == ShapeSphere || k == ShapeBox
}

// IsConcave reports whether the shape is handled as a static environment
// (triangle soups, height fields and planes)
func (k ShapeKind) IsConcave() bool {
	return k == ShapePlane
}

// IsCompound reports whether the shape is made of child shapes
func (k ShapeKind) IsCompound() bool {
	return k == ShapeCompound
}

// Shape is the interface that all collision shapes must implement
type Shape interface {
	Kind() ShapeKind
	// ComputeAABB calculates the axis-aligned bounding box for the shape
	// at the given transform
	ComputeAABB(transform Transform)
	GetAABB() AABB
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
	// Support returns the farthest local point along a local direction
	Support(direction mgl64.Vec3) mgl64.Vec3
	// GetContactFeature returns the local face or vertex most aligned with direction
	GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3
	// BoundingRadius bounds every local point's distance to the origin
	BoundingRadius() float64
}

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
	aabb        AABB
}

func (b *Box) Kind() ShapeKind {
	return ShapeBox
}

func (b *Box) ComputeAABB(transform Transform) {
	// A rotated box projects onto each world axis with |R| * halfExtents
	basis := transform.Basis()
	var extent mgl64.Vec3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			extent[row] += math.Abs(basis.At(row, col)) * b.HalfExtents[col]
		}
	}

	b.aabb = AABB{Min: transform.Position.Sub(extent), Max: transform.Position.Add(extent)}
}

func (b *Box) GetAABB() AABB {
	return b.aabb
}

// ComputeMass calculates mass data for the box
func (b *Box) ComputeMass(density float64) float64 {
	// full dimensions are 2*halfExtents
	volume := 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()

	return density * volume
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	factor := mass / 12.0

	return mgl64.Diag3(mgl64.Vec3{
		factor * (y*y + z*z),
		factor * (x*x + z*z),
		factor * (x*x + y*y),
	})
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	support := b.HalfExtents
	for i := 0; i < 3; i++ {
		if direction[i] < 0 {
			support[i] = -support[i]
		}
	}

	return support
}

func (b *Box) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	// Pick the face whose normal is most aligned with direction
	axis := 0
	best := math.Abs(direction[0])
	for i := 1; i < 3; i++ {
		if math.Abs(direction[i]) > best {
			best = math.Abs(direction[i])
			axis = i
		}
	}
	sign := 1.0
	if direction[axis] < 0 {
		sign = -1.0
	}

	u := (axis + 1) % 3
	v := (axis + 2) % 3
	corner := func(su, sv float64) mgl64.Vec3 {
		var p mgl64.Vec3
		p[axis] = sign * b.HalfExtents[axis]
		p[u] = su * b.HalfExtents[u]
		p[v] = sv * b.HalfExtents[v]
		return p
	}

	// counter-clockwise seen from outside
	if sign > 0 {
		return []mgl64.Vec3{corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)}
	}
	return []mgl64.Vec3{corner(-1, -1), corner(-1, 1), corner(1, 1), corner(1, -1)}
}

func (b *Box) BoundingRadius() float64 {
	return b.HalfExtents.Len()
}

// Sphere represents a spherical collision shape
type Sphere struct {
	Radius float64
	aabb   AABB
}

func (s *Sphere) Kind() ShapeKind {
	return ShapeSphere
}

// ComputeAABB calculates the axis-aligned bounding box for the sphere
func (s *Sphere) ComputeAABB(transform Transform) {
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	s.aabb = AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

func (s *Sphere) GetAABB() AABB {
	return s.aabb
}

// ComputeMass calculates mass data for the sphere
func (s *Sphere) ComputeMass(density float64) float64 {
	volume := (4.0 / 3.0) * math.Pi * math.Pow(s.Radius, 3)

	return density * volume
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.LenSqr() < 1e-24 {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

func (s *Sphere) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{s.Support(direction)}
}

func (s *Sphere) BoundingRadius() float64 {
	return s.Radius
}

// Plane represents an infinite plane collision shape
// The plane is defined by the equation: Normal · p + Distance = 0
// where Normal is the plane's normal vector (must be normalized)
// and Distance is the signed distance from the origin along the normal
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
	aabb     AABB
}

const planeExtent = 1e10

func (p *Plane) Kind() ShapeKind {
	return ShapePlane
}

func (p *Plane) ComputeAABB(transform Transform) {
	const thickness = 1.0

	normal := transform.Rotation.Rotate(p.Normal)
	planePoint := transform.Apply(p.Normal.Mul(-p.Distance))

	min := mgl64.Vec3{-planeExtent, -planeExtent, -planeExtent}
	max := mgl64.Vec3{planeExtent, planeExtent, planeExtent}

	// Only an axis-aligned plane gets finite bounds along its normal
	for i := 0; i < 3; i++ {
		if math.Abs(normal[i]) < 1-1e-9 {
			continue
		}
		if normal[i] > 0 {
			min[i] = planePoint[i] - thickness
			max[i] = planePoint[i]
		} else {
			min[i] = planePoint[i]
			max[i] = planePoint[i] + thickness
		}
	}

	p.aabb = AABB{Min: min, Max: max}
}

func (p *Plane) GetAABB() AABB {
	return p.aabb
}

// ComputeMass always reports infinite mass: planes are static
func (p *Plane) ComputeMass(density float64) float64 {
	return math.Inf(1)
}

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

// Support treats the plane as a thin slab bounded at planeExtent.
func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	tangent1, tangent2 := getTangentBasis(p.Normal)
	point := p.Normal.Mul(-p.Distance)

	if direction.Dot(p.Normal) < 0 {
		point = point.Sub(p.Normal)
	}
	if direction.Dot(tangent1) < 0 {
		point = point.Sub(tangent1.Mul(planeExtent))
	} else {
		point = point.Add(tangent1.Mul(planeExtent))
	}
	if direction.Dot(tangent2) < 0 {
		point = point.Sub(tangent2.Mul(planeExtent))
	} else {
		point = point.Add(tangent2.Mul(planeExtent))
	}

	return point
}

func (p *Plane) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	tangent1, tangent2 := getTangentBasis(p.Normal)
	origin := p.Normal.Mul(-p.Distance)
	size := 1000.0

	return []mgl64.Vec3{
		origin.Add(tangent1.Mul(-size)).Add(tangent2.Mul(-size)),
		origin.Add(tangent1.Mul(-size)).Add(tangent2.Mul(size)),
		origin.Add(tangent1.Mul(size)).Add(tangent2.Mul(size)),
		origin.Add(tangent1.Mul(size)).Add(tangent2.Mul(-size)),
	}
}

func (p *Plane) BoundingRadius() float64 {
	return math.Inf(1)
}

// SignedDistance returns the distance of a local point above the plane
func (p *Plane) SignedDistance(local mgl64.Vec3) float64 {
	return p.Normal.Dot(local) + p.Distance
}

// CompoundChild is a shape placed inside a compound at a local transform
type CompoundChild struct {
	Transform Transform
	Shape     Shape
}

// Compound groups convex child shapes rigidly attached to one body.
type Compound struct {
	Children []CompoundChild
	aabb     AABB
}

// NewCompound builds a compound, filling the children inverse rotations
func NewCompound(children ...CompoundChild) *Compound {
	for i := range children {
		children[i].Transform = NewTransformAt(children[i].Transform.Position, children[i].Transform.Rotation)
	}
	return &Compound{Children: children}
}

func (c *Compound) Kind() ShapeKind {
	return ShapeCompound
}

func (c *Compound) ComputeAABB(transform Transform) {
	for i, child := range c.Children {
		child.Shape.ComputeAABB(transform.Mul(child.Transform))
		if i == 0 {
			c.aabb = child.Shape.GetAABB()
			continue
		}
		c.aabb = c.aabb.Union(child.Shape.GetAABB())
	}
}

func (c *Compound) GetAABB() AABB {
	return c.aabb
}

func (c *Compound) ComputeMass(density float64) float64 {
	mass := 0.0
	for _, child := range c.Children {
		mass += child.Shape.ComputeMass(density)
	}
	return mass
}

// ComputeInertia distributes mass by child volume and shifts each child
// tensor to the compound origin (parallel axis theorem).
func (c *Compound) ComputeInertia(mass float64) mgl64.Mat3 {
	total := c.ComputeMass(1)
	var inertia mgl64.Mat3
	if total <= 0 {
		return inertia
	}

	for _, child := range c.Children {
		childMass := mass * child.Shape.ComputeMass(1) / total
		basis := child.Transform.Basis()
		local := basis.Mul3(child.Shape.ComputeInertia(childMass)).Mul3(basis.Transpose())

		d := child.Transform.Position
		shift := mgl64.Ident3().Mul(d.Dot(d)).Sub(outer(d, d)).Mul(childMass)
		inertia = inertia.Add(local).Add(shift)
	}

	return inertia
}

func (c *Compound) Support(direction mgl64.Vec3) mgl64.Vec3 {
	var best mgl64.Vec3
	bestDot := math.Inf(-1)
	for _, child := range c.Children {
		local := child.Transform.InverseRotation.Rotate(direction)
		point := child.Transform.Apply(child.Shape.Support(local))
		if dot := point.Dot(direction); dot > bestDot {
			bestDot = dot
			best = point
		}
	}
	return best
}

func (c *Compound) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{c.Support(direction)}
}

func (c *Compound) BoundingRadius() float64 {
	radius := 0.0
	for _, child := range c.Children {
		radius = math.Max(radius, child.Transform.Position.Len()+child.Shape.BoundingRadius())
	}
	return radius
}

func outer(a, b mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3FromCols(a.Mul(b[0]), a.Mul(b[1]), a.Mul(b[2]))
}

// Helper to generate the tangent basis
func getTangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}

// TangentBasis returns two unit vectors orthogonal to normal and to each other
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	return getTangentBasis(normal)
}
