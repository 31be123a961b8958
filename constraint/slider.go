package constraint

import (
	"math"

	"github.com/akmonengine/quill/actor"
)

// SliderResponse shapes one family of slider rows. Restitution is the
// fraction of the positional error corrected per step, Damping the fraction
// of the velocity removed, and Softness scales both.
type SliderResponse struct {
	Softness    float64
	Restitution float64
	Damping     float64
}

func (r SliderResponse) apply(row *Row, fps, depth float64) {
	row.ConstraintError = -r.Softness * r.Restitution * fps * depth
	row.Damping = r.Softness * r.Damping
}

// Slider lets the bodies translate along and rotate about the x axis of
// the reference frame. Both motions have a limit and a motor.
type Slider struct {
	Base

	FrameA actor.Transform
	FrameB actor.Transform
	// UseLinearReferenceFrameA measures the slide in A's frame, else in B's
	UseLinearReferenceFrameA bool

	LowerLinLimit, UpperLinLimit float64
	LowerAngLimit, UpperAngLimit float64

	// Dir rows act inside the limits, Lim rows at a limit, Ortho rows
	// keep the other four degrees of freedom locked.
	DirLin, LimLin, OrthoLin SliderResponse
	DirAng, LimAng, OrthoAng SliderResponse

	PoweredLinMotor        bool
	TargetLinMotorVelocity float64
	MaxLinMotorForce       float64
	PoweredAngMotor        bool
	TargetAngMotorVelocity float64
	MaxAngMotorForce       float64

	refFrame, otherFrame actor.Transform
	refBody, otherBody   *actor.RigidBody
	linPos, angPos       float64
	linDepth, angDepth   float64
	solveLinLim          bool
	solveAngLim          bool
}

// NewSlider joins two local frames, sliding along their x axes. A nil
// bodyB slides A along a world axis.
func NewSlider(bodyA, bodyB *actor.RigidBody, frameA, frameB actor.Transform, useLinearReferenceFrameA bool) *Slider {
	dir := SliderResponse{Softness: 1, Restitution: 0.7, Damping: 0}
	lim := SliderResponse{Softness: 1, Restitution: 0.7, Damping: 1}
	return &Slider{
		Base:                     newBase(TypeSlider, bodyA, bodyB),
		FrameA:                   frameA,
		FrameB:                   frameB,
		UseLinearReferenceFrameA: useLinearReferenceFrameA,
		LowerLinLimit:            1,
		UpperLinLimit:            -1,
		DirLin:                   dir,
		LimLin:                   lim,
		OrthoLin:                 lim,
		DirAng:                   dir,
		LimAng:                   lim,
		OrthoAng:                 lim,
	}
}

// LinearPosition is the slide of the other frame along the reference x axis
func (s *Slider) LinearPosition() float64 {
	return s.linPos
}

// AngularPosition is the rotation of the other frame about the reference x axis
func (s *Slider) AngularPosition() float64 {
	return s.angPos
}

func (s *Slider) SolveLinearLimit() bool {
	return s.solveLinLim
}

func (s *Slider) SolveAngularLimit() bool {
	return s.solveAngLim
}

func (s *Slider) calculateTransforms() {
	frameA, frameB := worldFrames(&s.Base, s.FrameA, s.FrameB)
	if s.UseLinearReferenceFrameA {
		s.refFrame, s.otherFrame = frameA, frameB
		s.refBody, s.otherBody = s.bodyA, s.bodyB
	} else {
		s.refFrame, s.otherFrame = frameB, frameA
		s.refBody, s.otherBody = s.bodyB, s.bodyA
	}

	delta := s.otherFrame.Position.Sub(s.refFrame.Position)
	s.linPos = delta.Dot(frameAxis(s.refFrame, 0))

	otherY := frameAxis(s.otherFrame, 1)
	s.angPos = math.Atan2(otherY.Dot(frameAxis(s.refFrame, 2)), otherY.Dot(frameAxis(s.refFrame, 1)))
}

func (s *Slider) testLimits() {
	s.solveLinLim, s.linDepth = rangeDepth(s.linPos, s.LowerLinLimit, s.UpperLinLimit)
	s.solveAngLim, s.angDepth = rangeDepth(s.angPos, s.LowerAngLimit, s.UpperAngLimit)
}

// rangeDepth reports how far value lies outside [lower, upper], signed
func rangeDepth(value, lower, upper float64) (bool, float64) {
	switch {
	case lower > upper:
		return false, 0
	case value < lower:
		return true, value - lower
	case value > upper:
		return true, value - upper
	case lower == upper:
		return true, value - lower
	}
	return false, 0
}

func (s *Slider) Info1() Info1 {
	s.calculateTransforms()
	s.testLimits()

	info := Info1{NumRows: 4, Nub: 4}
	if s.solveLinLim || s.PoweredLinMotor || s.DirLin.Damping > 0 {
		info.NumRows++
	}
	if s.solveAngLim || s.PoweredAngMotor || s.DirAng.Damping > 0 {
		info.NumRows++
	}
	return info
}

func (s *Slider) Info2(info *Info2) {
	axisX := frameAxis(s.refFrame, 0)
	anchor := s.otherFrame.Position
	rRef := anchor.Sub(s.refBody.Transform.Position)
	rOther := anchor.Sub(s.otherBody.Transform.Position)
	delta := s.otherFrame.Position.Sub(s.refFrame.Position)

	rows := info.Rows
	row := 0

	// ========== Ortho rows ==========
	for i := 1; i < 3; i++ {
		axis := frameAxis(s.refFrame, i)
		rows[row].setLinear(axis, rRef, rOther)
		rows[row].negate()
		s.OrthoLin.apply(&rows[row], info.FPS, delta.Dot(axis))
		row++
	}

	u := axisX.Cross(frameAxis(s.otherFrame, 0))
	for i := 1; i < 3; i++ {
		axis := frameAxis(s.refFrame, i)
		rows[row].setAngular(axis)
		rows[row].negate()
		s.OrthoAng.apply(&rows[row], info.FPS, u.Dot(axis))
		row++
	}

	// ========== Slide along x ==========
	if s.solveLinLim || s.PoweredLinMotor || s.DirLin.Damping > 0 {
		r := &rows[row]
		r.setLinear(axisX, rRef, rOther)
		r.negate()
		s.axisRow(r, info.FPS, s.solveLinLim, s.linDepth, s.LowerLinLimit == s.UpperLinLimit,
			s.LimLin, s.DirLin, s.PoweredLinMotor, s.TargetLinMotorVelocity, s.MaxLinMotorForce)
		row++
	}

	// ========== Rotation about x ==========
	if s.solveAngLim || s.PoweredAngMotor || s.DirAng.Damping > 0 {
		r := &rows[row]
		r.setAngular(axisX)
		r.negate()
		s.axisRow(r, info.FPS, s.solveAngLim, s.angDepth, s.LowerAngLimit == s.UpperAngLimit,
			s.LimAng, s.DirAng, s.PoweredAngMotor, s.TargetAngMotorVelocity, s.MaxAngMotorForce)
		row++
	}

	// rows were built with the reference body first
	if !s.UseLinearReferenceFrameA {
		for i := 0; i < row; i++ {
			rows[i].swapBodies()
		}
	}
}

func (s *Slider) axisRow(r *Row, fps float64, atLimit bool, depth float64, locked bool,
	lim, dir SliderResponse, powered bool, targetVelocity, maxForce float64) {
	switch {
	case atLimit:
		lim.apply(r, fps, depth)
		switch {
		case locked:
			// pushes both ways
		case depth < 0:
			r.Lower = 0
		default:
			r.Upper = 0
		}
	case powered:
		r.ConstraintError = targetVelocity
		r.Damping = 1
		r.Lower, r.Upper = -maxForce/fps, maxForce/fps
	default:
		dir.apply(r, fps, 0)
	}
}

