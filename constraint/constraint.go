// Package constraint holds the joint family, the contact rows built from
// persistent manifolds and the row solver that resolves both.
//
// Every constraint describes itself as Jacobian rows (Info1 then Info2). The
// solver turns rows into impulses with projected Gauss-Seidel iterations:
// each row accumulates an impulse clamped to its bounds and only the change
// of the clamped accumulator is applied to the bodies.
package constraint

import (
	"errors"
	"math"
	"sync"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrFeedbackDisabled is returned when the applied impulse of a
	// constraint is read without EnableFeedback.
	ErrFeedbackDisabled = errors.New("constraint: feedback is not enabled")
	// ErrUnknownConstraint is returned for ids the registry does not hold
	ErrUnknownConstraint = errors.New("constraint: unknown constraint id")
	// ErrUnknownParam is returned for parameter indices a constraint type does not have
	ErrUnknownParam = errors.New("constraint: unknown parameter")
)

// Type tags the concrete constraint behind a TypedConstraint
type Type int

const (
	TypePoint2Point Type = iota
	TypeHinge
	TypeConeTwist
	TypeGeneric6Dof
	TypeGeneric6DofSpring
	TypeSlider
	TypeFixed
)

func (t Type) String() string {
	switch t {
	case TypePoint2Point:
		return "point2point"
	case TypeHinge:
		return "hinge"
	case TypeConeTwist:
		return "cone-twist"
	case TypeGeneric6Dof:
		return "generic6dof"
	case TypeGeneric6DofSpring:
		return "generic6dof-spring"
	case TypeSlider:
		return "slider"
	case TypeFixed:
		return "fixed"
	}
	return "unknown"
}

// TypedConstraint is a joint between two bodies, described as rows
type TypedConstraint interface {
	ID() int
	Type() Type
	BodyA() *actor.RigidBody
	BodyB() *actor.RigidBody
	IsEnabled() bool
	// Info1 reports how many rows the next Info2 call fills. It may test
	// limits against the current body transforms.
	Info1() Info1
	// Info2 fills info.Rows[:Info1().NumRows]
	Info2(info *Info2)

	base() *Base
}

var (
	fixedBodyOnce sync.Once
	fixedBody     *actor.RigidBody
)

// FixedBody is the shared static body used when a constraint anchors a
// body to the world.
func FixedBody() *actor.RigidBody {
	fixedBodyOnce.Do(func() {
		fixedBody = actor.NewRigidBody(actor.NewTransform(), &actor.Sphere{}, actor.BodyTypeStatic, 0)
	})
	return fixedBody
}

// Base is the state every constraint shares
type Base struct {
	id    int
	kind  Type
	bodyA *actor.RigidBody
	bodyB *actor.RigidBody

	enabled       bool
	needsFeedback bool
	// BreakingImpulseThreshold disables the constraint when a row needs a
	// larger impulse. +Inf never breaks.
	BreakingImpulseThreshold float64

	appliedImpulse float64
	rows           []Row
}

func newBase(kind Type, bodyA, bodyB *actor.RigidBody) Base {
	if bodyB == nil {
		bodyB = FixedBody()
	}
	return Base{
		kind:                     kind,
		bodyA:                    bodyA,
		bodyB:                    bodyB,
		enabled:                  true,
		BreakingImpulseThreshold: math.Inf(1),
	}
}

func (b *Base) base() *Base {
	return b
}

// ID is the registry id, 0 until the constraint is registered
func (b *Base) ID() int {
	return b.id
}

func (b *Base) Type() Type {
	return b.kind
}

func (b *Base) BodyA() *actor.RigidBody {
	return b.bodyA
}

func (b *Base) BodyB() *actor.RigidBody {
	return b.bodyB
}

func (b *Base) IsEnabled() bool {
	return b.enabled
}

func (b *Base) SetEnabled(enabled bool) {
	b.enabled = enabled
}

// EnableFeedback makes the solver record the applied impulse
func (b *Base) EnableFeedback(enabled bool) {
	b.needsFeedback = enabled
}

func (b *Base) NeedsFeedback() bool {
	return b.needsFeedback
}

// AppliedImpulse is the largest row impulse magnitude of the last solve
func (b *Base) AppliedImpulse() (float64, error) {
	if !b.needsFeedback {
		return 0, ErrFeedbackDisabled
	}
	return b.appliedImpulse, nil
}

// Rows returns the rows of the last solve with their applied impulses
func (b *Base) Rows() []Row {
	return b.rows
}

// prepareRows sizes the row buffer for n rows. Rows against the fixed body
// still fill both halves; the solver ignores the static one.
func (b *Base) prepareRows(n int) []Row {
	if cap(b.rows) < n {
		b.rows = make([]Row, n)
	}
	b.rows = b.rows[:n]
	return b.rows
}

func (b *Base) recordImpulses() {
	largest := 0.0
	for i := range b.rows {
		largest = math.Max(largest, math.Abs(b.rows[i].Applied))
	}
	if b.needsFeedback {
		b.appliedImpulse = largest
	}
	if largest >= b.BreakingImpulseThreshold {
		b.enabled = false
	}
}

var unitAxes = [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// frameAxis returns column i of a frame's rotation in world space
func frameAxis(frame actor.Transform, i int) mgl64.Vec3 {
	return frame.Rotation.Rotate(unitAxes[i])
}

// worldFrames composes the local frames with the current body transforms
func worldFrames(b *Base, frameA, frameB actor.Transform) (actor.Transform, actor.Transform) {
	return b.bodyA.Transform.Mul(frameA), b.bodyB.Transform.Mul(frameB)
}

// pinRows fills three rows joining the world points pivotA and pivotB
func pinRows(rows []Row, b *Base, pivotA, pivotB mgl64.Vec3, k float64) {
	rA := pivotA.Sub(b.bodyA.Transform.Position)
	rB := pivotB.Sub(b.bodyB.Transform.Position)
	diff := pivotB.Sub(pivotA)
	for i := 0; i < 3; i++ {
		rows[i].setLinear(unitAxes[i], rA, rB)
		rows[i].ConstraintError = k * diff[i]
	}
}

// normalizeAngle wraps an angle into [-π, π]
func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle < -math.Pi {
		return angle + 2*math.Pi
	}
	if angle > math.Pi {
		return angle - 2*math.Pi
	}
	return angle
}

// motorFactor scales a motor velocity down as the motor reaches a limit
func motorFactor(position, lower, upper, velocity, timeFactor float64) float64 {
	if lower > upper {
		return 1
	}
	if lower == upper {
		return 0
	}

	deltaMax := velocity / timeFactor
	switch {
	case deltaMax < 0:
		if position >= lower && position < lower-deltaMax {
			return (lower - position) / deltaMax
		}
		if position < lower {
			return 0
		}
		return 1
	case deltaMax > 0:
		if position <= upper && position > upper-deltaMax {
			return (upper - position) / deltaMax
		}
		if position > upper {
			return 0
		}
		return 1
	}
	return 0
}

// frameFromBasis builds a frame at origin with the given axes as columns.
// The axes must be orthonormal and right-handed.
func frameFromBasis(origin, x, y, z mgl64.Vec3) actor.Transform {
	rotation := mgl64.Mat4ToQuat(mgl64.Mat3FromCols(x, y, z).Mat4())
	return actor.NewTransformAt(origin, rotation)
}

// frameFromAxis builds a frame at origin whose z axis is axis
func frameFromAxis(origin, axis mgl64.Vec3) actor.Transform {
	axis = axis.Normalize()
	x, y := actor.TangentBasis(axis)
	return frameFromBasis(origin, x, y, axis)
}
