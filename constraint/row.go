package constraint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Row is one scalar velocity constraint between two bodies:
//
//	J1Linear·vA + J1Angular·ωA + J2Linear·vB + J2Angular·ωB = ConstraintError
//
// solved for an impulse clamped to [Lower, Upper]. J2 terms are ignored
// when the second body is static.
type Row struct {
	J1Linear  mgl64.Vec3
	J1Angular mgl64.Vec3
	J2Linear  mgl64.Vec3
	J2Angular mgl64.Vec3

	// ConstraintError is the target relative velocity, usually erp/dt times
	// the positional error.
	ConstraintError float64
	CFM             float64
	Lower, Upper    float64
	// Damping scales the velocity the row removes, 1 removes all of it
	Damping float64
	// FIndex makes the bounds friction bounds: Lower and Upper are scaled by
	// the impulse magnitude of row FIndex of the same constraint. -1 for
	// ordinary rows.
	FIndex int

	// Applied is the impulse accumulated on the row by the last solve
	Applied float64
}

// Info1 is a constraint's row count for the coming solve. Nub counts the
// rows that are unbounded.
type Info1 struct {
	NumRows int
	Nub     int
}

// Info2 carries the step parameters a constraint needs to fill its rows
type Info2 struct {
	FPS float64
	ERP float64
	// NumIterations is the solver iteration count, springs divide by it
	NumIterations int
	Rows          []Row
}

func (info *Info2) TimeStep() float64 {
	if info.FPS == 0 {
		return 0
	}
	return 1 / info.FPS
}

// resetRows prepares n rows with open bounds and the global softness
func resetRows(rows []Row, cfm, damping float64) {
	for i := range rows {
		rows[i] = Row{
			CFM:     cfm,
			Lower:   math.Inf(-1),
			Upper:   math.Inf(1),
			Damping: damping,
			FIndex:  -1,
		}
	}
}

// setLinear fills a row constraining the velocity of the point at rA on
// body A relative to the point at rB on body B along axis.
func (r *Row) setLinear(axis, rA, rB mgl64.Vec3) {
	r.J1Linear = axis
	r.J1Angular = rA.Cross(axis)
	r.J2Linear = axis.Mul(-1)
	r.J2Angular = rB.Cross(axis).Mul(-1)
}

// setAngular fills a row constraining ωA - ωB along axis
func (r *Row) setAngular(axis mgl64.Vec3) {
	r.J1Linear = mgl64.Vec3{}
	r.J1Angular = axis
	r.J2Linear = mgl64.Vec3{}
	r.J2Angular = axis.Mul(-1)
}

// negate flips the measured direction, so the row measures B relative to A
func (r *Row) negate() {
	r.J1Linear = r.J1Linear.Mul(-1)
	r.J1Angular = r.J1Angular.Mul(-1)
	r.J2Linear = r.J2Linear.Mul(-1)
	r.J2Angular = r.J2Angular.Mul(-1)
}

// swapBodies exchanges the Jacobian halves, for rows built with the bodies
// in reversed roles.
func (r *Row) swapBodies() {
	r.J1Linear, r.J2Linear = r.J2Linear, r.J1Linear
	r.J1Angular, r.J2Angular = r.J2Angular, r.J1Angular
}
