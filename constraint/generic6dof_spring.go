package constraint

import (
	"math"

	"github.com/akmonengine/quill/actor"
)

// Generic6DofSpring adds a Hookean spring to each axis of a Generic6Dof.
// An enabled spring drives its axis motor toward the equilibrium point
// before the limits are evaluated.
type Generic6DofSpring struct {
	Generic6Dof

	springEnabled [6]bool
	equilibrium   [6]float64
	stiffness     [6]float64
	damping       [6]float64
}

func NewGeneric6DofSpring(bodyA, bodyB *actor.RigidBody, frameA, frameB actor.Transform) *Generic6DofSpring {
	s := &Generic6DofSpring{Generic6Dof: *NewGeneric6Dof(bodyA, bodyB, frameA, frameB)}
	s.kind = TypeGeneric6DofSpring
	for i := range s.damping {
		s.damping[i] = 1
	}
	return s
}

// EnableSpring turns the spring of axis 0-5 on or off
func (s *Generic6DofSpring) EnableSpring(axis int, enable bool) {
	s.springEnabled[axis] = enable
	s.Axis(axis).EnableMotor = enable
}

func (s *Generic6DofSpring) SpringEnabled(axis int) bool {
	return s.springEnabled[axis]
}

func (s *Generic6DofSpring) SetStiffness(axis int, stiffness float64) {
	s.stiffness[axis] = stiffness
}

func (s *Generic6DofSpring) SetDamping(axis int, damping float64) {
	s.damping[axis] = damping
}

// SetEquilibriumPoint makes the current value of axis its rest value
func (s *Generic6DofSpring) SetEquilibriumPoint(axis int) {
	s.CalculateTransforms()
	if axis < 3 {
		s.equilibrium[axis] = s.linearDiff[axis]
		return
	}
	s.equilibrium[axis] = s.angleDiff[axis-3]
}

func (s *Generic6DofSpring) SetEquilibriumValue(axis int, value float64) {
	s.equilibrium[axis] = value
}

func (s *Generic6DofSpring) EquilibriumPoint(axis int) float64 {
	return s.equilibrium[axis]
}

func (s *Generic6DofSpring) Info2(info *Info2) {
	s.updateSprings(info)
	s.Generic6Dof.Info2(info)
}

// updateSprings turns each spring force into a motor target: the motor may
// use up to the spring force and heads back to equilibrium at a speed
// scaled by the damping.
func (s *Generic6DofSpring) updateSprings(info *Info2) {
	iterations := float64(max(info.NumIterations, 1))
	for axis := 0; axis < 6; axis++ {
		if !s.springEnabled[axis] {
			continue
		}

		m := s.Axis(axis)
		force := (m.currentPosition - s.equilibrium[axis]) * s.stiffness[axis]
		velocityFactor := info.FPS * s.damping[axis] / iterations
		m.TargetVelocity = -velocityFactor * force
		m.MaxMotorForce = math.Abs(force)
	}
}
