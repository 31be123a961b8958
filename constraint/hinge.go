package constraint

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Hinge lets two bodies rotate about a shared axis, the z axis of each
// frame. The hinge angle is measured from B's frame to A's frame.
type Hinge struct {
	Base

	FrameA actor.Transform
	FrameB actor.Transform
	// AngularOnly drops the three pivot rows
	AngularOnly bool

	EnableMotor         bool
	MotorTargetVelocity float64
	MaxMotorImpulse     float64

	lowerLimit       float64
	upperLimit       float64
	limitSoftness    float64
	biasFactor       float64
	relaxationFactor float64

	hingeAngle float64
	correction float64
	limitSign  float64
	solveLimit bool
}

// NewHinge builds a hinge from pivots and axes in each body's local space.
// A nil bodyB hinges A on the world.
func NewHinge(bodyA, bodyB *actor.RigidBody, pivotInA, pivotInB, axisInA, axisInB mgl64.Vec3) *Hinge {
	frameA := frameFromAxis(pivotInA, axisInA)

	// B's reference axes are A's, carried by the arc between the two hinge axes
	axisInA, axisInB = axisInA.Normalize(), axisInB.Normalize()
	arc := mgl64.QuatBetweenVectors(axisInA, axisInB)
	x := arc.Rotate(frameAxis(frameA, 0))
	y := axisInB.Cross(x)
	frameB := frameFromBasis(pivotInB, x, y, axisInB)

	return NewHingeFromFrames(bodyA, bodyB, frameA, frameB)
}

// NewHingeFromFrames builds a hinge from two local frames
func NewHingeFromFrames(bodyA, bodyB *actor.RigidBody, frameA, frameB actor.Transform) *Hinge {
	return &Hinge{
		Base:             newBase(TypeHinge, bodyA, bodyB),
		FrameA:           frameA,
		FrameB:           frameB,
		lowerLimit:       1,
		upperLimit:       -1,
		limitSoftness:    0.9,
		biasFactor:       0.3,
		relaxationFactor: 1,
	}
}

// SetLimit bounds the hinge angle. lower > upper leaves it free.
func (h *Hinge) SetLimit(lower, upper float64) {
	h.lowerLimit = normalizeAngle(lower)
	h.upperLimit = normalizeAngle(upper)
}

// SetLimitResponse sets how the limit engages: softness is the fraction of
// the range at which it starts acting, bias scales the correction and
// relaxation is the bounce off the stop.
func (h *Hinge) SetLimitResponse(softness, bias, relaxation float64) {
	h.limitSoftness = softness
	h.biasFactor = bias
	h.relaxationFactor = relaxation
}

func (h *Hinge) Limits() (lower, upper float64) {
	return h.lowerLimit, h.upperLimit
}

// EnableAngularMotor drives the hinge angle at targetVelocity using at most
// maxImpulse per step.
func (h *Hinge) EnableAngularMotor(enable bool, targetVelocity, maxImpulse float64) {
	h.EnableMotor = enable
	h.MotorTargetVelocity = targetVelocity
	h.MaxMotorImpulse = maxImpulse
}

// HingeAngle is the current rotation of A relative to B about the axis
func (h *Hinge) HingeAngle() float64 {
	frameA, frameB := worldFrames(&h.Base, h.FrameA, h.FrameB)
	refX := frameAxis(frameA, 0)
	refY := frameAxis(frameA, 1)
	swing := frameAxis(frameB, 1)
	return math.Atan2(swing.Dot(refX), swing.Dot(refY))
}

func (h *Hinge) testLimit() {
	h.hingeAngle = h.HingeAngle()
	h.correction = 0
	h.limitSign = 0
	h.solveLimit = false

	if h.lowerLimit > h.upperLimit {
		return
	}
	if h.hingeAngle <= h.limitSoftness*h.lowerLimit {
		h.correction = h.lowerLimit - h.hingeAngle
		h.limitSign = 1
		h.solveLimit = true
	} else if h.hingeAngle >= h.limitSoftness*h.upperLimit {
		h.correction = h.upperLimit - h.hingeAngle
		h.limitSign = -1
		h.solveLimit = true
	}
}

// SolveLimit reports whether the last Info1 found the angle at a stop
func (h *Hinge) SolveLimit() bool {
	return h.solveLimit
}

func (h *Hinge) Info1() Info1 {
	info := Info1{NumRows: 5, Nub: 1}
	if h.AngularOnly {
		info = Info1{NumRows: 2, Nub: 0}
	}

	h.testLimit()
	if h.solveLimit || h.EnableMotor {
		info.NumRows++
	}
	return info
}

func (h *Hinge) Info2(info *Info2) {
	frameA, frameB := worldFrames(&h.Base, h.FrameA, h.FrameB)
	k := info.FPS * info.ERP
	rows := info.Rows

	row := 0
	if !h.AngularOnly {
		pinRows(rows, &h.Base, frameA.Position, frameB.Position, k)
		row = 3
	}

	// ========== Keep the two hinge axes aligned ==========
	axisA := frameAxis(frameA, 2)
	axisB := frameAxis(frameB, 2)
	p := frameAxis(frameA, 0)
	q := frameAxis(frameA, 1)
	u := axisA.Cross(axisB)

	rows[row].setAngular(p)
	rows[row].ConstraintError = k * u.Dot(p)
	rows[row+1].setAngular(q)
	rows[row+1].ConstraintError = k * u.Dot(q)
	row += 2

	// ========== Limit and motor ==========
	limit := 0
	if h.solveLimit {
		limit = 2
		if h.limitSign > 0 {
			limit = 1
		}
	}
	powered := h.EnableMotor
	if limit == 0 && !powered {
		return
	}

	r := &rows[row]
	r.setAngular(axisA)
	lower, upper := h.lowerLimit, h.upperLimit
	if limit != 0 && lower == upper {
		powered = false
	}

	r.ConstraintError = 0
	if powered {
		factor := motorFactor(h.hingeAngle, lower, upper, h.MotorTargetVelocity, k)
		r.ConstraintError += factor * h.MotorTargetVelocity
		r.Lower = -h.MaxMotorImpulse
		r.Upper = h.MaxMotorImpulse
	}
	if limit == 0 {
		return
	}

	r.ConstraintError += k * h.correction
	switch {
	case lower == upper:
		r.Lower, r.Upper = math.Inf(-1), math.Inf(1)
	case limit == 1:
		r.Lower, r.Upper = 0, math.Inf(1)
	default:
		r.Lower, r.Upper = math.Inf(-1), 0
	}

	if bounce := h.relaxationFactor; bounce > 0 {
		velocity := h.bodyA.AngularVelocity.Sub(h.bodyB.AngularVelocity).Dot(axisA)
		if limit == 1 && velocity < 0 {
			r.ConstraintError = math.Max(r.ConstraintError, -bounce*velocity)
		} else if limit == 2 && velocity > 0 {
			r.ConstraintError = math.Min(r.ConstraintError, -bounce*velocity)
		}
	}
	r.ConstraintError *= h.biasFactor
}
