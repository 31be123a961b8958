package constraint

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// unlimitedSpan disables a cone-twist span
const unlimitedSpan = 1e30

const (
	// spanThreshold is the smallest swing span the elliptic test considers,
	// narrower spans lock their axis
	spanThreshold = 0.05
	// lockedSwingSlop is the swing tolerated on a locked axis
	lockedSwingSlop = 1e-4
)

// ConeTwist is a ball-socket whose x axis of B must stay inside an
// elliptic cone around the x axis of A, with a bounded twist about it.
type ConeTwist struct {
	Base

	FrameA actor.Transform
	FrameB actor.Transform
	// AngularOnly drops the three pivot rows
	AngularOnly bool

	swingSpan1       float64
	swingSpan2       float64
	twistSpan        float64
	limitSoftness    float64
	biasFactor       float64
	relaxationFactor float64

	swingCorrection float64
	twistCorrection float64
	twistAngle      float64
	swingAxis       mgl64.Vec3
	twistAxis       mgl64.Vec3
	solveSwingLimit bool
	solveTwistLimit bool

	kSwing float64
	kTwist float64
}

// NewConeTwist joins two local frames. A nil bodyB anchors A to the world.
func NewConeTwist(bodyA, bodyB *actor.RigidBody, frameA, frameB actor.Transform) *ConeTwist {
	return &ConeTwist{
		Base:             newBase(TypeConeTwist, bodyA, bodyB),
		FrameA:           frameA,
		FrameB:           frameB,
		swingSpan1:       unlimitedSpan,
		swingSpan2:       unlimitedSpan,
		twistSpan:        unlimitedSpan,
		limitSoftness:    1,
		biasFactor:       0.3,
		relaxationFactor: 1,
	}
}

// SetLimits sets the two swing half-angles and the twist half-angle
func (c *ConeTwist) SetLimits(swingSpan1, swingSpan2, twistSpan float64) {
	c.swingSpan1 = swingSpan1
	c.swingSpan2 = swingSpan2
	c.twistSpan = twistSpan
}

// SetLimit changes one span by index: 3 twist, 4 swing 2, 5 swing 1. A
// negative value removes the limit.
func (c *ConeTwist) SetLimit(index int, value float64) error {
	if value < 0 {
		value = unlimitedSpan
	}
	switch index {
	case 3:
		c.twistSpan = value
	case 4:
		c.swingSpan2 = value
	case 5:
		c.swingSpan1 = value
	default:
		return ErrUnknownParam
	}
	return nil
}

func (c *ConeTwist) Spans() (swingSpan1, swingSpan2, twistSpan float64) {
	return c.swingSpan1, c.swingSpan2, c.twistSpan
}

// SetLimitResponse sets the twist softness, the error bias and the
// relaxation of both limits.
func (c *ConeTwist) SetLimitResponse(softness, bias, relaxation float64) {
	c.limitSoftness = softness
	c.biasFactor = bias
	c.relaxationFactor = relaxation
}

func (c *ConeTwist) TwistAngle() float64 {
	return c.twistAngle
}

// SwingEffectiveMass and TwistEffectiveMass are the inverse of the angular
// impulse denominators of both bodies about the active limit axes.
func (c *ConeTwist) SwingEffectiveMass() float64 {
	return c.kSwing
}

func (c *ConeTwist) TwistEffectiveMass() float64 {
	return c.kTwist
}

func (c *ConeTwist) SolveSwingLimit() bool {
	return c.solveSwingLimit
}

func (c *ConeTwist) SolveTwistLimit() bool {
	return c.solveTwistLimit
}

// calcAngleInfo measures the swing against the ellipse and the twist
// against its span.
func (c *ConeTwist) calcAngleInfo() {
	c.swingCorrection = 0
	c.twistCorrection = 0
	c.solveSwingLimit = false
	c.solveTwistLimit = false

	frameA, frameB := worldFrames(&c.Base, c.FrameA, c.FrameB)
	a1 := frameAxis(frameA, 0)
	a2 := frameAxis(frameA, 1)
	a3 := frameAxis(frameA, 2)
	b1 := frameAxis(frameB, 0)

	const thresh = 10.0
	swing := func(axis mgl64.Vec3) float64 {
		swx, swy := b1.Dot(a1), b1.Dot(axis)
		fact := (swy*swy + swx*swx) * thresh * thresh
		return math.Atan2(swy, swx) * fact / (fact + 1)
	}
	term1, locked1 := swingTerm(swing(a2), c.swingSpan1)
	term2, locked2 := swingTerm(swing(a3), c.swingSpan2)

	ellipse := term1 + term2
	lockedError := max(locked1, locked2)
	if ellipse > 1 || lockedError > lockedSwingSlop {
		c.swingCorrection = max(ellipse-1, lockedError)
		c.solveSwingLimit = true

		inPlane := a2.Mul(b1.Dot(a2)).Add(a3.Mul(b1.Dot(a3)))
		axis := b1.Cross(inPlane)
		if axis.LenSqr() > 1e-12 {
			axis = axis.Normalize()
		}
		if b1.Dot(a1) < 0 {
			axis = axis.Mul(-1)
		}
		c.swingAxis = axis
		c.kSwing = c.effectiveMass(axis)
	}

	if c.twistSpan >= 0 {
		b2 := frameAxis(frameB, 1)
		arc := mgl64.QuatBetweenVectors(b1, a1)
		twistRef := arc.Rotate(b2)
		twist := math.Atan2(twistRef.Dot(a3), twistRef.Dot(a2))
		c.twistAngle = twist

		lockedFreeFactor := 0.0
		if c.twistSpan > spanThreshold {
			lockedFreeFactor = c.limitSoftness
		}

		axis := b1.Add(a1).Mul(0.5)
		if axis.LenSqr() > 1e-12 {
			axis = axis.Normalize()
		}
		if twist <= -c.twistSpan*lockedFreeFactor {
			c.twistCorrection = -(twist + c.twistSpan)
			c.solveTwistLimit = true
			c.twistAxis = axis.Mul(-1)
		} else if twist > c.twistSpan*lockedFreeFactor {
			c.twistCorrection = twist - c.twistSpan
			c.solveTwistLimit = true
			c.twistAxis = axis
		}
		if c.solveTwistLimit {
			c.kTwist = c.effectiveMass(c.twistAxis)
		}
	}
}

// swingTerm returns the share of the ellipse taken by a swing, or for a
// locked axis the swing itself as an error.
func swingTerm(swing, span float64) (term, lockedError float64) {
	if span < spanThreshold {
		return 0, math.Abs(swing)
	}
	return swing * swing / (span * span), 0
}

func (c *ConeTwist) effectiveMass(axis mgl64.Vec3) float64 {
	denominator := axis.Dot(c.bodyA.GetInverseInertiaWorld().Mul3x1(axis)) +
		axis.Dot(c.bodyB.GetInverseInertiaWorld().Mul3x1(axis))
	if denominator < 1e-12 {
		return 0
	}
	return 1 / denominator
}

func (c *ConeTwist) Info1() Info1 {
	info := Info1{NumRows: 3, Nub: 3}
	if c.AngularOnly {
		info = Info1{}
	}

	c.calcAngleInfo()
	if c.solveSwingLimit {
		info.NumRows++
	}
	if c.solveTwistLimit {
		info.NumRows++
	}
	return info
}

func (c *ConeTwist) Info2(info *Info2) {
	rows := info.Rows
	row := 0
	if !c.AngularOnly {
		frameA, frameB := worldFrames(&c.Base, c.FrameA, c.FrameB)
		pinRows(rows, &c.Base, frameA.Position, frameB.Position, info.FPS*info.ERP)
		row = 3
	}

	k := info.FPS * c.biasFactor
	relaxation := c.relaxationFactor * c.relaxationFactor
	if c.solveSwingLimit {
		r := &rows[row]
		r.setAngular(c.swingAxis)
		r.ConstraintError = k * c.swingCorrection
		r.Damping = relaxation
		r.Lower, r.Upper = 0, math.Inf(1)
		row++
	}
	if c.solveTwistLimit {
		r := &rows[row]
		r.setAngular(c.twistAxis)
		r.ConstraintError = k * c.twistCorrection
		r.Damping = relaxation
		r.Lower, r.Upper = 0, math.Inf(1)
	}
}
