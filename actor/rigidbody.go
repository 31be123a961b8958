package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType selects the collision flags a body is created with
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	BodyTypeDynamic BodyType = iota
	// BodyTypeStatic bodies are immovable and have infinite mass
	BodyTypeStatic
	// BodyTypeKinematic bodies are moved by their velocity only and push dynamic bodies
	BodyTypeKinematic
)

type Material struct {
	Density     float64
	mass        float64
	Restitution float64 // 0= no rebound, 1= perfect restitution
	Friction    float64

	LinearDamping  float64 // 0.0 - 1.0, typical: 0.01
	AngularDamping float64 // 0.0 - 1.0, typical: 0.05
}

func (material Material) GetMass() float64 {
	return material.mass
}

// RigidBody represents a rigid body in the physics simulation. It also
// carries the collision object state used by the broadphase, the islands
// and the narrowphase.
type RigidBody struct {
	ID int

	// InterpolationTransform is the transform at the start of the last step
	InterpolationTransform Transform
	Transform              Transform
	// PredictedTransform is where the body ends the current step if nothing stops it
	PredictedTransform Transform

	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3

	InertiaLocal        mgl64.Mat3
	InverseInertiaLocal mgl64.Mat3

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	Material Material
	Flags    CollisionFlags

	ActivationState  ActivationState
	DeactivationTime float64

	// Island bookkeeping, rebuilt every step
	IslandTag   int
	CompanionID int

	// HitFraction is the earliest time of impact found this step, in [0,1]
	HitFraction          float64
	CcdSweptSphereRadius float64
	// CcdMotionThreshold enables continuous collision when the body moves
	// farther than it in one step. Zero disables it.
	CcdMotionThreshold float64

	ProxyID int

	Shape    Shape
	UserData any

	ignoreCollision []*RigidBody
}

// NewRigidBody creates a new rigid body with the given properties
// density is used to calculate mass for dynamic bodies (ignored otherwise)
func NewRigidBody(transform Transform, shape Shape, bodyType BodyType, density float64) *RigidBody {
	if transform.Rotation == (mgl64.Quat{}) {
		transform.Rotation = mgl64.QuatIdent()
	}
	transform = NewTransformAt(transform.Position, transform.Rotation)

	rb := &RigidBody{
		InterpolationTransform: transform,
		Transform:              transform,
		PredictedTransform:     transform,
		Shape:                  shape,
		ActivationState:        ActiveTag,
		IslandTag:              -1,
		CompanionID:            -1,
		HitFraction:            1,
		ProxyID:                -1,
		Material: Material{
			Friction: 0.5,
		},
	}

	switch bodyType {
	case BodyTypeStatic:
		rb.Flags = FlagStatic
		rb.Material.mass = math.Inf(1)
	case BodyTypeKinematic:
		rb.Flags = FlagKinematic
		rb.Material.mass = math.Inf(1)
	default:
		rb.Material.Density = density
		rb.Material.mass = shape.ComputeMass(density)
		rb.InertiaLocal = shape.ComputeInertia(rb.Material.mass)
		rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
	}

	rb.Shape.ComputeAABB(rb.Transform)

	return rb
}

// InverseMass is zero for static, kinematic and massless bodies
func (rb *RigidBody) InverseMass() float64 {
	mass := rb.Material.mass
	if rb.IsStaticOrKinematic() || mass <= 0 || math.IsInf(mass, 1) {
		return 0
	}
	return 1.0 / mass
}

// IntegrateVelocities applies gravity, accumulated forces and damping
func (rb *RigidBody) IntegrateVelocities(dt float64, gravity mgl64.Vec3) {
	if rb.IsStaticOrKinematic() || !rb.IsActive() {
		return
	}

	invMass := rb.InverseMass()
	rb.Velocity = rb.Velocity.Add(gravity.Add(rb.accumulatedForce.Mul(invMass)).Mul(dt))
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque).Mul(dt))

	rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.Material.LinearDamping * dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.Material.AngularDamping * dt))

	rb.ClearForces()
}

// PredictIntegratedTransform stores the transform reached after dt at the current velocities
func (rb *RigidBody) PredictIntegratedTransform(dt float64) Transform {
	rb.PredictedTransform = IntegrateTransform(rb.Transform, rb.Velocity, rb.AngularVelocity, dt)
	return rb.PredictedTransform
}

// ProceedToTransform moves the body, keeping the previous transform for interpolation
func (rb *RigidBody) ProceedToTransform(transform Transform) {
	rb.InterpolationTransform = rb.Transform
	rb.Transform = transform
	rb.PredictedTransform = transform
	rb.Shape.ComputeAABB(rb.Transform)
}

// AABB returns the world bounds of the body's shape at its current transform
func (rb *RigidBody) AABB() AABB {
	return rb.Shape.GetAABB()
}

// UpdateAABB recomputes the shape bounds at the current transform
func (rb *RigidBody) UpdateAABB() AABB {
	rb.Shape.ComputeAABB(rb.Transform)
	return rb.Shape.GetAABB()
}

// AddForce accumulates a force applied at the center of mass until the next step
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.IsStaticOrKinematic() {
		return
	}
	rb.Activate(false)
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
}

// AddTorque accumulates a torque until the next step
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.IsStaticOrKinematic() {
		return
	}
	rb.Activate(false)
	rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// ApplyImpulse changes the velocities as if impulse hit the body at relPos,
// relative to the center of mass.
func (rb *RigidBody) ApplyImpulse(impulse, relPos mgl64.Vec3) {
	invMass := rb.InverseMass()
	if invMass == 0 {
		return
	}
	rb.Velocity = rb.Velocity.Add(impulse.Mul(invMass))
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(relPos.Cross(impulse)))
}

// ApplyTorqueImpulse changes the angular velocity only
func (rb *RigidBody) ApplyTorqueImpulse(torque mgl64.Vec3) {
	if rb.InverseMass() == 0 {
		return
	}
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(torque))
}

// VelocityInLocalPoint returns the velocity of a point at relPos from the center of mass
func (rb *RigidBody) VelocityInLocalPoint(relPos mgl64.Vec3) mgl64.Vec3 {
	return rb.Velocity.Add(rb.AngularVelocity.Cross(relPos))
}

// SupportWorld returns the farthest point of the shape along a world direction
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	return SupportAt(rb.Shape, rb.Transform, direction)
}

// SupportAt evaluates a shape support mapping at any transform
func SupportAt(shape Shape, transform Transform, direction mgl64.Vec3) mgl64.Vec3 {
	localDirection := transform.Rotation.Conjugate().Rotate(direction)
	return transform.Apply(shape.Support(localDirection))
}

// GetInertiaWorld returns R * I_local * R^T
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	R := rb.Transform.Basis()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// GetInverseInertiaWorld returns R * I_local^-1 * R^T, zero for non-dynamic bodies
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.InverseMass() == 0 {
		return mgl64.Mat3{}
	}

	R := rb.Transform.Basis()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}
