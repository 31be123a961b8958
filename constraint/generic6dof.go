package constraint

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Limit states of an axis
const (
	limitFree = iota
	limitLower
	limitUpper
	limitLocked
)

// LimitMotor is the limit and motor of one degree of freedom. Lower > Upper
// leaves the axis free, Lower == Upper locks it.
type LimitMotor struct {
	Lower, Upper float64

	EnableMotor    bool
	TargetVelocity float64
	MaxMotorForce  float64

	// ERP corrects limit violations, StopCFM softens the stop and
	// NormalCFM the motor.
	ERP       float64
	StopCFM   float64
	NormalCFM float64
	Bounce    float64

	currentLimit      int
	currentLimitError float64
	currentPosition   float64
}

func newLimitMotor(lower, upper, erp float64) LimitMotor {
	return LimitMotor{Lower: lower, Upper: upper, ERP: erp}
}

func (m *LimitMotor) IsLimited() bool {
	return m.Lower <= m.Upper
}

// CurrentPosition is the axis value seen by the last limit test
func (m *LimitMotor) CurrentPosition() float64 {
	return m.currentPosition
}

func (m *LimitMotor) testLimit(value float64) int {
	m.currentPosition = value
	m.currentLimitError = 0
	switch {
	case m.Lower > m.Upper:
		m.currentLimit = limitFree
	case m.Lower == m.Upper:
		m.currentLimit = limitLocked
		m.currentLimitError = value - m.Lower
	case value < m.Lower:
		m.currentLimit = limitLower
		m.currentLimitError = value - m.Lower
	case value > m.Upper:
		m.currentLimit = limitUpper
		m.currentLimitError = value - m.Upper
	default:
		m.currentLimit = limitFree
	}
	return m.currentLimit
}

func (m *LimitMotor) needsRow() bool {
	return m.currentLimit != limitFree || m.EnableMotor
}

// fillRow sets the error, softness and bounds of a row whose Jacobian
// already measures the rate of the axis value. rate is that rate now.
func (m *LimitMotor) fillRow(r *Row, fps, rate float64) {
	r.ConstraintError = 0

	if m.EnableMotor && m.currentLimit == limitFree {
		r.CFM = m.NormalCFM
		factor := motorFactor(m.currentPosition, m.Lower, m.Upper, m.TargetVelocity, fps*m.ERP)
		r.ConstraintError = factor * m.TargetVelocity
		impulse := m.MaxMotorForce / fps
		r.Lower, r.Upper = -impulse, impulse
		return
	}
	if m.currentLimit == limitFree {
		return
	}

	r.CFM = m.StopCFM
	r.ConstraintError = -fps * m.ERP * m.currentLimitError
	switch m.currentLimit {
	case limitLocked:
		r.Lower, r.Upper = math.Inf(-1), math.Inf(1)
	case limitLower:
		r.Lower, r.Upper = 0, math.Inf(1)
	default:
		r.Lower, r.Upper = math.Inf(-1), 0
	}

	if m.Bounce > 0 {
		if m.currentLimit == limitLower && rate < 0 {
			r.ConstraintError = math.Max(r.ConstraintError, -m.Bounce*rate)
		} else if m.currentLimit == limitUpper && rate > 0 {
			r.ConstraintError = math.Min(r.ConstraintError, -m.Bounce*rate)
		}
	}
}

// Generic6Dof constrains each of the three translations (measured along
// A's frame) and the three XYZ Euler angles of B's frame relative to A's.
type Generic6Dof struct {
	Base

	FrameA actor.Transform
	FrameB actor.Transform
	Linear  [3]LimitMotor
	Angular [3]LimitMotor

	calculatedA actor.Transform
	calculatedB actor.Transform
	linearDiff  mgl64.Vec3
	angleDiff   mgl64.Vec3
	angularAxes [3]mgl64.Vec3
	anchor      mgl64.Vec3
}

// NewGeneric6Dof joins two local frames with every translation locked and
// every rotation free. A nil bodyB anchors A to the world.
func NewGeneric6Dof(bodyA, bodyB *actor.RigidBody, frameA, frameB actor.Transform) *Generic6Dof {
	g := &Generic6Dof{
		Base:   newBase(TypeGeneric6Dof, bodyA, bodyB),
		FrameA: frameA,
		FrameB: frameB,
	}
	for i := 0; i < 3; i++ {
		g.Linear[i] = newLimitMotor(0, 0, 0.2)
		g.Angular[i] = newLimitMotor(1, -1, 0.5)
	}
	return g
}

// Axis returns the limit and motor of axis 0-5, translations first
func (g *Generic6Dof) Axis(axis int) *LimitMotor {
	if axis < 3 {
		return &g.Linear[axis]
	}
	return &g.Angular[axis-3]
}

// SetLimit bounds axis 0-5. Angular bounds are wrapped into [-π, π].
func (g *Generic6Dof) SetLimit(axis int, lower, upper float64) error {
	if axis < 0 || axis > 5 {
		return ErrUnknownParam
	}
	if axis >= 3 {
		lower, upper = normalizeAngle(lower), normalizeAngle(upper)
	}
	m := g.Axis(axis)
	m.Lower, m.Upper = lower, upper
	return nil
}

// IsLimited reports whether axis 0-5 is locked or bounded
func (g *Generic6Dof) IsLimited(axis int) bool {
	return g.Axis(axis).IsLimited()
}

// CalculateTransforms refreshes the measured translations and angles from
// the current body transforms.
func (g *Generic6Dof) CalculateTransforms() {
	g.calculatedA, g.calculatedB = worldFrames(&g.Base, g.FrameA, g.FrameB)

	diff := g.calculatedB.Position.Sub(g.calculatedA.Position)
	for i := 0; i < 3; i++ {
		g.linearDiff[i] = diff.Dot(frameAxis(g.calculatedA, i))
	}

	relative := g.calculatedA.Rotation.Conjugate().Mul(g.calculatedB.Rotation)
	g.angleDiff = eulerXYZ(relative.Mat4().Mat3())

	// rows measuring the Euler rates: dual axes of x(A), the line of nodes, z(B)
	axisX := frameAxis(g.calculatedA, 0)
	axisZ := frameAxis(g.calculatedB, 2)
	nodes := axisZ.Cross(axisX)
	if nodes.LenSqr() < 1e-12 {
		nodes = frameAxis(g.calculatedA, 1)
	}
	nodes = nodes.Normalize()
	g.angularAxes[0] = nodes.Cross(axisZ).Normalize()
	g.angularAxes[1] = nodes
	g.angularAxes[2] = axisX.Cross(nodes).Normalize()

	// anchor weighted toward the lighter body
	imA, imB := g.bodyA.InverseMass(), g.bodyB.InverseMass()
	weight := 1.0
	if imA+imB > 0 {
		weight = imA / (imA + imB)
	}
	g.anchor = g.calculatedA.Position.Mul(weight).Add(g.calculatedB.Position.Mul(1 - weight))
}

// RelativePivotPosition is the translation of B's frame along axis 0-2 of A's
func (g *Generic6Dof) RelativePivotPosition(axis int) float64 {
	return g.linearDiff[axis]
}

// Angle is the Euler angle 0-2 of B's frame relative to A's
func (g *Generic6Dof) Angle(axis int) float64 {
	return g.angleDiff[axis]
}

func (g *Generic6Dof) Info1() Info1 {
	g.CalculateTransforms()

	info := Info1{}
	for i := 0; i < 3; i++ {
		g.Linear[i].testLimit(g.linearDiff[i])
		if g.Linear[i].needsRow() {
			info.NumRows++
		}
	}
	for i := 0; i < 3; i++ {
		g.Angular[i].testLimit(g.angleDiff[i])
		if g.Angular[i].needsRow() {
			info.NumRows++
		}
	}
	return info
}

func (g *Generic6Dof) Info2(info *Info2) {
	row := 0
	rA := g.anchor.Sub(g.bodyA.Transform.Position)
	rB := g.anchor.Sub(g.bodyB.Transform.Position)

	for i := range g.Linear {
		m := &g.Linear[i]
		if !m.needsRow() {
			continue
		}
		r := &info.Rows[row]
		r.setLinear(frameAxis(g.calculatedA, i), rA, rB)
		r.negate()
		m.fillRow(r, info.FPS, rowVelocity(r, g.bodyA, g.bodyB))
		row++
	}

	for i := range g.Angular {
		m := &g.Angular[i]
		if !m.needsRow() {
			continue
		}
		r := &info.Rows[row]
		r.setAngular(g.angularAxes[i])
		r.negate()
		m.fillRow(r, info.FPS, rowVelocity(r, g.bodyA, g.bodyB))
		row++
	}
}

// rowVelocity is the current value of J·v for a filled row
func rowVelocity(r *Row, bodyA, bodyB *actor.RigidBody) float64 {
	return r.J1Linear.Dot(bodyA.Velocity) + r.J1Angular.Dot(bodyA.AngularVelocity) +
		r.J2Linear.Dot(bodyB.Velocity) + r.J2Angular.Dot(bodyB.AngularVelocity)
}

// eulerXYZ decomposes m = Rx(x)·Ry(y)·Rz(z)
func eulerXYZ(m mgl64.Mat3) mgl64.Vec3 {
	sy := m.At(0, 2)
	switch {
	case sy >= 1:
		return mgl64.Vec3{math.Atan2(m.At(1, 0), m.At(1, 1)), math.Pi / 2, 0}
	case sy <= -1:
		return mgl64.Vec3{-math.Atan2(m.At(1, 0), m.At(1, 1)), -math.Pi / 2, 0}
	}
	return mgl64.Vec3{
		math.Atan2(-m.At(1, 2), m.At(2, 2)),
		math.Asin(sy),
		math.Atan2(-m.At(0, 1), m.At(0, 0)),
	}
}
