package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// angularMotionThreshold caps the rotation integrated in a single step
const angularMotionThreshold = 0.5 * math.Pi / 2

// Transform represents a position in 3D space
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// NewTransformAt creates a transform from a position and a rotation.
func NewTransformAt(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	rotation = rotation.Normalize()
	return Transform{
		Position:        position,
		Rotation:        rotation,
		InverseRotation: rotation.Inverse(),
	}
}

// Apply maps a point from local space to world space
func (t Transform) Apply(local mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(local).Add(t.Position)
}

// InverseApply maps a point from world space to local space
func (t Transform) InverseApply(world mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(world.Sub(t.Position))
}

// Basis returns the rotation as a column-major matrix
func (t Transform) Basis() mgl64.Mat3 {
	return t.Rotation.Mat4().Mat3()
}

// Mul composes two transforms: the result applies other first, then t.
func (t Transform) Mul(other Transform) Transform {
	return NewTransformAt(t.Apply(other.Position), t.Rotation.Mul(other.Rotation))
}

// Inverse returns the transform mapping world space back into t's local space.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return NewTransformAt(inv.Rotate(t.Position.Mul(-1)), inv)
}

// Lerp interpolates the position linearly and the rotation spherically.
func (t Transform) Lerp(to Transform, fraction float64) Transform {
	position := t.Position.Add(to.Position.Sub(t.Position).Mul(fraction))
	return NewTransformAt(position, mgl64.QuatSlerp(t.Rotation, to.Rotation, fraction))
}

// IntegrateTransform predicts where a transform ends up after moving with
// constant linear and angular velocity for dt seconds.
func IntegrateTransform(current Transform, linearVelocity, angularVelocity mgl64.Vec3, dt float64) Transform {
	position := current.Position.Add(linearVelocity.Mul(dt))

	angle := angularVelocity.Len()
	if angle*dt > angularMotionThreshold {
		angle = angularMotionThreshold / dt
	}

	var axis mgl64.Vec3
	if angle < 0.001 {
		// Taylor expansion of sin(x/2)/x
		axis = angularVelocity.Mul(0.5*dt - (dt*dt*dt)*0.020833333333*angle*angle)
	} else {
		// the direction comes from the velocity, the magnitude from the clamped angle
		axis = angularVelocity.Normalize().Mul(math.Sin(0.5 * angle * dt))
	}
	delta := mgl64.Quat{W: math.Cos(angle * dt * 0.5), V: axis}
	rotation := delta.Mul(current.Rotation).Normalize()

	return NewTransformAt(position, rotation)
}

// CalculateVelocity returns the constant velocities that move from one
// transform to another in dt seconds.
func CalculateVelocity(from, to Transform, dt float64) (linear, angular mgl64.Vec3) {
	linear = to.Position.Sub(from.Position).Mul(1.0 / dt)

	delta := to.Rotation.Mul(from.Rotation.Conjugate()).Normalize()
	if delta.W < 0 {
		delta = delta.Scale(-1)
	}
	sinHalf := delta.V.Len()
	if sinHalf < 1e-12 {
		return linear, mgl64.Vec3{}
	}
	angle := 2 * math.Atan2(sinHalf, delta.W)
	angular = delta.V.Mul(angle / (sinHalf * dt))

	return linear, angular
}
