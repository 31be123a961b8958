package constraint

import (
	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// PointSettings tune a ball-socket joint
type PointSettings struct {
	// Tau is the error reduction of the joint, used instead of the solver ERP
	Tau     float64
	Damping float64
	// ImpulseClamp bounds each row impulse when positive
	ImpulseClamp float64
}

// Point2Point keeps a pivot of A on a pivot of B, leaving rotation free
type Point2Point struct {
	Base

	PivotInA mgl64.Vec3
	PivotInB mgl64.Vec3
	Settings PointSettings
}

// NewPoint2Point joins the local pivots of two bodies. A nil bodyB pins
// pivotInB in world space.
func NewPoint2Point(bodyA, bodyB *actor.RigidBody, pivotInA, pivotInB mgl64.Vec3) *Point2Point {
	return &Point2Point{
		Base:     newBase(TypePoint2Point, bodyA, bodyB),
		PivotInA: pivotInA,
		PivotInB: pivotInB,
		Settings: PointSettings{Tau: 0.3, Damping: 1},
	}
}

func (p *Point2Point) Info1() Info1 {
	return Info1{NumRows: 3, Nub: 3}
}

func (p *Point2Point) Info2(info *Info2) {
	pivotA := p.bodyA.Transform.Apply(p.PivotInA)
	pivotB := p.bodyB.Transform.Apply(p.PivotInB)

	rows := info.Rows[:3]
	pinRows(rows, &p.Base, pivotA, pivotB, info.FPS*p.Settings.Tau)
	for i := range rows {
		rows[i].Damping = p.Settings.Damping
		if p.Settings.ImpulseClamp > 0 {
			rows[i].Lower = -p.Settings.ImpulseClamp
			rows[i].Upper = p.Settings.ImpulseClamp
		}
	}
}

