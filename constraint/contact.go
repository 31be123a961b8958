package constraint

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/manifold"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactRows fills the rows of one manifold point: a non-negative normal
// row and two friction rows bounded by the combined friction times the
// normal impulse (FIndex 0). bodyA and bodyB are the manifold bodies.
func ContactRows(rows []Row, pt *manifold.ManifoldPoint, bodyA, bodyB *actor.RigidBody, info SolverInfo) {
	resetRows(rows[:3], 0, 1)

	rA := pt.PositionWorldOnA.Sub(bodyA.Transform.Position)
	rB := pt.PositionWorldOnB.Sub(bodyB.Transform.Position)
	normal := pt.NormalWorldOnB

	// ========== Normal row ==========
	normalRow := &rows[0]
	normalRow.setLinear(normal, rA, rB)
	normalRow.Lower = 0

	velocityA := bodyA.VelocityInLocalPoint(rA)
	velocityB := bodyB.VelocityInLocalPoint(rB)
	relativeVelocity := velocityA.Sub(velocityB)
	normalVelocity := relativeVelocity.Dot(normal)

	target := 0.0
	if -normalVelocity > info.RestitutionThreshold {
		target = -normalVelocity * pt.CombinedRestitution
	}
	if pt.Distance > 0 {
		// separated: the bodies may still close the gap this step
		target -= pt.Distance / info.TimeStep
	} else {
		target -= pt.Distance * info.ERP / info.TimeStep
	}
	normalRow.ConstraintError = target

	// ========== Friction rows ==========
	tangentVelocity := relativeVelocity.Sub(normal.Mul(normalVelocity))
	var tangent1, tangent2 mgl64.Vec3
	if speed := tangentVelocity.Len(); speed > 1e-6 {
		tangent1 = tangentVelocity.Mul(1.0 / speed)
		tangent2 = normal.Cross(tangent1)
	} else {
		tangent1, tangent2 = actor.TangentBasis(normal)
	}

	for i, tangent := range [2]mgl64.Vec3{tangent1, tangent2} {
		row := &rows[1+i]
		row.setLinear(tangent, rA, rB)
		row.Lower = -pt.CombinedFriction
		row.Upper = pt.CombinedFriction
		row.FIndex = 0
	}
}

// addManifold appends the rows of every contact of m. The normal impulse
// warm starts from AppliedImpulse, the friction rows from LateralImpulse.
func (s *Solver) addManifold(m *manifold.PersistentManifold, info SolverInfo) {
	bodyA, bodyB := m.Body0, m.Body1
	if !bodyA.HasContactResponse() || !bodyB.HasContactResponse() {
		return
	}

	var rows [3]Row
	for i := 0; i < m.NumContacts(); i++ {
		pt := m.Point(i)
		ContactRows(rows[:], pt, bodyA, bodyB, info)

		factor := 0.0
		if info.WarmStarting {
			factor = info.WarmStartingFactor
		}

		normal := s.addRow(bodyA, bodyB, &rows[0], -1, pt.AppliedImpulse*factor, rowSink{point: pt})

		previous := pt.LateralImpulse
		pt.LateralImpulse = mgl64.Vec3{}
		for j := 1; j < 3; j++ {
			warm := previous.Dot(rows[j].J1Linear) * factor
			s.addRow(bodyA, bodyB, &rows[j], normal, warm, rowSink{lateral: &pt.LateralImpulse, tangent: rows[j].J1Linear})
		}
	}
}
