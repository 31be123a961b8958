package constraint

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/manifold"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

// SolverInfo holds the parameters of one solve
type SolverInfo struct {
	TimeStep      float64
	NumIterations int
	// ERP is the fraction of positional error corrected per step
	ERP float64
	// CFM softens every row that does not set its own
	CFM     float64
	Damping float64

	WarmStarting       bool
	WarmStartingFactor float64
	// RestitutionThreshold is the approach speed below which contacts do not bounce
	RestitutionThreshold float64
}

// DefaultSolverInfo returns the usual 10 iterations at erp 0.2 with warm starting
func DefaultSolverInfo(dt float64) SolverInfo {
	return SolverInfo{
		TimeStep:             dt,
		NumIterations:        10,
		ERP:                  0.2,
		Damping:              1,
		WarmStarting:         true,
		WarmStartingFactor:   0.85,
		RestitutionThreshold: 0.5,
	}
}

type solverBody struct {
	body       *actor.RigidBody
	invMass    float64
	invInertia mgl64.Mat3

	deltaLinear  mgl64.Vec3
	deltaAngular mgl64.Vec3
}

// rowSink says where a solved impulse is written back
type rowSink struct {
	owner    *Base
	rowIndex int

	point   *manifold.ManifoldPoint
	lateral *mgl64.Vec3
	tangent mgl64.Vec3
}

type solverRow struct {
	bodyA, bodyB int

	j1Linear, j1Angular mgl64.Vec3
	j2Linear, j2Angular mgl64.Vec3
	angularCompA        mgl64.Vec3
	angularCompB        mgl64.Vec3

	jacDiagInv float64
	rhs        float64
	cfm        float64

	lower, upper float64
	frictionOf   int
	applied      float64

	sink rowSink
}

// Solver is a projected Gauss-Seidel solver over joint and contact rows.
// The buffers are reused between solves; a Solver is not safe for
// concurrent use.
type Solver struct {
	// Settings is used by SolveConstraint
	Settings SolverInfo
	Logger   *log.Logger

	bodies    []solverBody
	bodyIndex map[*actor.RigidBody]int
	rows      []solverRow
	joints    []*Base
}

func NewSolver(settings SolverInfo, logger *log.Logger) *Solver {
	if logger == nil {
		logger = log.Default()
	}
	return &Solver{
		Settings:  settings,
		Logger:    logger,
		bodyIndex: make(map[*actor.RigidBody]int),
	}
}

// SolveConstraint solves a single constraint on its own for dt
func (s *Solver) SolveConstraint(c TypedConstraint, dt float64) {
	info := s.Settings
	info.TimeStep = dt
	s.SolveGroup(nil, nil, []TypedConstraint{c}, info)
}

// SolveGroup resolves the contacts of manifolds and the enabled constraints
// together, then writes the velocity changes back into the bodies. Bodies
// referenced by a manifold or a constraint but missing from bodies take
// part with their own mass.
func (s *Solver) SolveGroup(bodies []*actor.RigidBody, manifolds []*manifold.PersistentManifold, constraints []TypedConstraint, info SolverInfo) {
	if info.TimeStep <= 0 {
		return
	}
	s.reset()

	for _, body := range bodies {
		s.solverBody(body)
	}

	// ========== 1. Joint rows ==========
	for _, c := range constraints {
		if c.IsEnabled() {
			s.addConstraint(c, info)
		}
	}

	// ========== 2. Contact rows ==========
	for _, m := range manifolds {
		s.addManifold(m, info)
	}

	if len(s.rows) == 0 {
		return
	}

	if info.WarmStarting {
		for i := range s.rows {
			if s.rows[i].applied != 0 {
				s.applyImpulse(&s.rows[i], s.rows[i].applied)
			}
		}
	}

	// ========== 3. Iterations: bounded rows first, then friction ==========
	for iteration := 0; iteration < info.NumIterations; iteration++ {
		for i := range s.rows {
			if s.rows[i].frictionOf < 0 {
				s.resolveRow(&s.rows[i])
			}
		}
		for i := range s.rows {
			if s.rows[i].frictionOf >= 0 {
				s.resolveRow(&s.rows[i])
			}
		}
	}

	s.finish()
	s.Logger.Debug("solved group", "bodies", len(s.bodies), "rows", len(s.rows), "joints", len(s.joints))
}

func (s *Solver) reset() {
	s.bodies = s.bodies[:0]
	s.rows = s.rows[:0]
	s.joints = s.joints[:0]
	clear(s.bodyIndex)
}

func (s *Solver) solverBody(body *actor.RigidBody) int {
	if index, ok := s.bodyIndex[body]; ok {
		return index
	}

	sb := solverBody{body: body}
	if body.IsActive() || body.IsStaticOrKinematic() {
		sb.invMass = body.InverseMass()
		sb.invInertia = body.GetInverseInertiaWorld()
	}
	s.bodies = append(s.bodies, sb)
	s.bodyIndex[body] = len(s.bodies) - 1

	return len(s.bodies) - 1
}

// addRow turns a filled Row into a solver row. frictionOf is the absolute
// index of the row whose impulse scales the bounds, or -1.
func (s *Solver) addRow(bodyA, bodyB *actor.RigidBody, row *Row, frictionOf int, warmStart float64, sink rowSink) int {
	ia, ib := s.solverBody(bodyA), s.solverBody(bodyB)
	a, b := &s.bodies[ia], &s.bodies[ib]

	sr := solverRow{
		bodyA:      ia,
		bodyB:      ib,
		j1Linear:   row.J1Linear,
		j1Angular:  row.J1Angular,
		j2Linear:   row.J2Linear,
		j2Angular:  row.J2Angular,
		lower:      row.Lower,
		upper:      row.Upper,
		frictionOf: frictionOf,
		applied:    warmStart,
		sink:       sink,
	}
	sr.angularCompA = a.invInertia.Mul3x1(row.J1Angular)
	sr.angularCompB = b.invInertia.Mul3x1(row.J2Angular)

	denominator := a.invMass*row.J1Linear.Dot(row.J1Linear) + row.J1Angular.Dot(sr.angularCompA) +
		b.invMass*row.J2Linear.Dot(row.J2Linear) + row.J2Angular.Dot(sr.angularCompB)
	if denominator > 1e-12 {
		sr.jacDiagInv = 1 / denominator
	}
	sr.cfm = row.CFM * sr.jacDiagInv

	relativeVelocity := row.J1Linear.Dot(bodyA.Velocity) + row.J1Angular.Dot(bodyA.AngularVelocity) +
		row.J2Linear.Dot(bodyB.Velocity) + row.J2Angular.Dot(bodyB.AngularVelocity)
	sr.rhs = (row.ConstraintError - row.Damping*relativeVelocity) * sr.jacDiagInv

	s.rows = append(s.rows, sr)
	return len(s.rows) - 1
}

func (s *Solver) addConstraint(c TypedConstraint, info SolverInfo) {
	info1 := c.Info1()
	b := c.base()
	rows := b.prepareRows(info1.NumRows)
	if len(rows) == 0 {
		return
	}

	resetRows(rows, info.CFM, info.Damping)
	info2 := &Info2{
		FPS:           1 / info.TimeStep,
		ERP:           info.ERP,
		NumIterations: info.NumIterations,
		Rows:          rows,
	}
	c.Info2(info2)

	first := len(s.rows)
	for i := range rows {
		frictionOf := -1
		if rows[i].FIndex >= 0 {
			frictionOf = first + rows[i].FIndex
		}
		s.addRow(b.bodyA, b.bodyB, &rows[i], frictionOf, 0, rowSink{owner: b, rowIndex: i})
	}
	s.joints = append(s.joints, b)
}

// resolveRow applies the change of the clamped accumulated impulse
func (s *Solver) resolveRow(r *solverRow) {
	a, b := &s.bodies[r.bodyA], &s.bodies[r.bodyB]

	delta := r.rhs - r.applied*r.cfm
	velocityA := r.j1Linear.Dot(a.deltaLinear) + r.j1Angular.Dot(a.deltaAngular)
	velocityB := r.j2Linear.Dot(b.deltaLinear) + r.j2Angular.Dot(b.deltaAngular)
	delta -= (velocityA + velocityB) * r.jacDiagInv

	lower, upper := r.lower, r.upper
	if r.frictionOf >= 0 {
		normal := math.Abs(s.rows[r.frictionOf].applied)
		lower, upper = lower*normal, upper*normal
	}

	sum := r.applied + delta
	switch {
	case sum < lower:
		delta = lower - r.applied
		r.applied = lower
	case sum > upper:
		delta = upper - r.applied
		r.applied = upper
	default:
		r.applied = sum
	}

	s.applyImpulse(r, delta)
}

func (s *Solver) applyImpulse(r *solverRow, impulse float64) {
	a, b := &s.bodies[r.bodyA], &s.bodies[r.bodyB]

	a.deltaLinear = a.deltaLinear.Add(r.j1Linear.Mul(a.invMass * impulse))
	a.deltaAngular = a.deltaAngular.Add(r.angularCompA.Mul(impulse))
	b.deltaLinear = b.deltaLinear.Add(r.j2Linear.Mul(b.invMass * impulse))
	b.deltaAngular = b.deltaAngular.Add(r.angularCompB.Mul(impulse))
}

func (s *Solver) finish() {
	for i := range s.rows {
		r := &s.rows[i]
		switch {
		case r.sink.owner != nil:
			r.sink.owner.rows[r.sink.rowIndex].Applied = r.applied
		case r.sink.lateral != nil:
			*r.sink.lateral = r.sink.lateral.Add(r.sink.tangent.Mul(r.applied))
		case r.sink.point != nil:
			r.sink.point.AppliedImpulse = r.applied
		}
	}

	for _, joint := range s.joints {
		joint.recordImpulses()
	}

	for i := range s.bodies {
		sb := &s.bodies[i]
		if sb.invMass == 0 {
			continue
		}
		sb.body.Velocity = sb.body.Velocity.Add(sb.deltaLinear)
		sb.body.AngularVelocity = sb.body.AngularVelocity.Add(sb.deltaAngular)
		clampSmallVelocities(sb.body)
	}
}

func clampSmallVelocities(rb *actor.RigidBody) {
	const velocityThreshold = 1e-5

	if rb.Velocity.Len() < velocityThreshold {
		rb.Velocity = mgl64.Vec3{0, 0, 0}
	}
	if rb.AngularVelocity.Len() < velocityThreshold {
		rb.AngularVelocity = mgl64.Vec3{0, 0, 0}
	}
}
