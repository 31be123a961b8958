package constraint

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/manifold"
	"github.com/go-gl/mathgl/mgl64"
)

const testDt = 1.0 / 60.0

// Helper function to create a dynamic unit sphere for testing
func createDynamicBody(position mgl64.Vec3) *actor.RigidBody {
	return actor.NewRigidBody(
		actor.Transform{Position: position},
		&actor.Sphere{Radius: 1.0},
		actor.BodyTypeDynamic,
		1.0,
	)
}

// Helper function to create a static ground box whose top face is y=0
func createGround() *actor.RigidBody {
	return actor.NewRigidBody(
		actor.Transform{Position: mgl64.Vec3{0, -1, 0}},
		&actor.Box{HalfExtents: mgl64.Vec3{10, 1, 10}},
		actor.BodyTypeStatic,
		0.0,
	)
}

func newTestSolver() *Solver {
	return NewSolver(DefaultSolverInfo(testDt), nil)
}

func restingContact(sphere, ground *actor.RigidBody) *manifold.PersistentManifold {
	m := manifold.NewPersistentManifold(sphere, ground, manifold.DefaultBreakingThreshold, nil)
	result := manifold.NewResult(sphere, ground, nil)
	result.SetPersistentManifold(m)
	result.AddContactPoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 0}, -0.01)
	return m
}

func TestSolver_ImpulseClamp(t *testing.T) {
	tests := []struct {
		name  string
		build func(a *actor.RigidBody) TypedConstraint
	}{
		{
			name: "point2point clamp",
			build: func(a *actor.RigidBody) TypedConstraint {
				p := NewPoint2Point(a, nil, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 2, 0})
				p.Settings.ImpulseClamp = 0.05
				return p
			},
		},
		{
			name: "hinge limit",
			build: func(a *actor.RigidBody) TypedConstraint {
				h := NewHinge(a, nil, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1})
				h.SetLimit(-0.1, 0.1)
				return h
			},
		},
		{
			name: "hinge motor",
			build: func(a *actor.RigidBody) TypedConstraint {
				h := NewHinge(a, nil, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1})
				h.EnableAngularMotor(true, 50, 0.01)
				return h
			},
		},
		{
			name: "6dof limited axes",
			build: func(a *actor.RigidBody) TypedConstraint {
				g := NewGeneric6Dof(a, nil, actor.NewTransform(), actor.NewTransform())
				_ = g.SetLimit(0, -0.1, 0.1)
				_ = g.SetLimit(5, -0.2, 0.2)
				g.Axis(4).EnableMotor = true
				g.Axis(4).TargetVelocity = 10
				g.Axis(4).MaxMotorForce = 1
				return g
			},
		},
		{
			name: "cone-twist spans",
			build: func(a *actor.RigidBody) TypedConstraint {
				c := NewConeTwist(a, nil, actor.NewTransform(), actor.NewTransform())
				c.SetLimits(0.3, 0.3, 0.1)
				return c
			},
		},
		{
			name: "slider limits",
			build: func(a *actor.RigidBody) TypedConstraint {
				s := NewSlider(a, nil, actor.NewTransform(), actor.NewTransform(), true)
				s.LowerLinLimit, s.UpperLinLimit = -0.2, 0.2
				s.PoweredAngMotor = true
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createDynamicBody(mgl64.Vec3{0.5, -0.3, 0.2})
			body.Transform = actor.NewTransformAt(body.Transform.Position, mgl64.QuatRotate(0.7, mgl64.Vec3{0.3, 0.2, 1}.Normalize()))
			c := tt.build(body)
			solver := newTestSolver()

			for step := 0; step < 10; step++ {
				body.Velocity = mgl64.Vec3{float64(step) - 5, 3, -2}
				body.AngularVelocity = mgl64.Vec3{1, -4, float64(step)}
				solver.SolveConstraint(c, testDt)

				for i, row := range c.base().Rows() {
					if row.Applied < row.Lower-1e-9 || row.Applied > row.Upper+1e-9 {
						t.Fatalf("step %d row %d: impulse %v outside [%v, %v]", step, i, row.Applied, row.Lower, row.Upper)
					}
				}
			}
		})
	}
}

func TestSolver_Point2PointStopsPivot(t *testing.T) {
	body := createDynamicBody(mgl64.Vec3{0, -1, 0})
	body.Velocity = mgl64.Vec3{0, -1, 0}
	p := NewPoint2Point(body, nil, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 0})

	newTestSolver().SolveConstraint(p, testDt)

	pivotVelocity := body.VelocityInLocalPoint(mgl64.Vec3{0, 1, 0})
	if pivotVelocity.Len() > 1e-9 {
		t.Errorf("pivot still moves: %v", pivotVelocity)
	}
}

func TestSolver_Feedback(t *testing.T) {
	body := createDynamicBody(mgl64.Vec3{0, -1, 0})
	body.Velocity = mgl64.Vec3{0, -1, 0}
	p := NewPoint2Point(body, nil, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 0})
	solver := newTestSolver()

	solver.SolveConstraint(p, testDt)
	if _, err := p.AppliedImpulse(); !errors.Is(err, ErrFeedbackDisabled) {
		t.Fatalf("expected ErrFeedbackDisabled, got %v", err)
	}

	p.EnableFeedback(true)
	body.Velocity = mgl64.Vec3{0, -1, 0}
	solver.SolveConstraint(p, testDt)
	impulse, err := p.AppliedImpulse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expected := body.Material.GetMass(); math.Abs(impulse-expected) > 1e-6 {
		t.Errorf("applied impulse = %v, want %v", impulse, expected)
	}
}

func TestSolver_BreakingThreshold(t *testing.T) {
	body := createDynamicBody(mgl64.Vec3{0, -1, 0})
	body.Velocity = mgl64.Vec3{0, -10, 0}
	p := NewPoint2Point(body, nil, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 0})
	p.BreakingImpulseThreshold = 1

	solver := newTestSolver()
	solver.SolveConstraint(p, testDt)

	if p.IsEnabled() {
		t.Fatal("constraint should break above its threshold")
	}

	body.Velocity = mgl64.Vec3{0, -10, 0}
	solver.SolveConstraint(p, testDt)
	if body.Velocity.Y() != -10 {
		t.Errorf("a broken constraint must not act, velocity %v", body.Velocity)
	}
}

func TestSolver_ContactStopsApproach(t *testing.T) {
	sphere := createDynamicBody(mgl64.Vec3{0, 0.99, 0})
	ground := createGround()
	sphere.Velocity = mgl64.Vec3{0, -2, 0}
	m := restingContact(sphere, ground)

	newTestSolver().SolveGroup([]*actor.RigidBody{sphere}, []*manifold.PersistentManifold{m}, nil, DefaultSolverInfo(testDt))

	// no restitution: only the positional push-out remains
	pushOut := 0.01 * 0.2 / testDt
	if math.Abs(sphere.Velocity.Y()-pushOut) > 1e-6 {
		t.Errorf("velocity Y = %v, want %v", sphere.Velocity.Y(), pushOut)
	}
	if ground.Velocity.Len() != 0 {
		t.Errorf("static ground moved: %v", ground.Velocity)
	}

	pt := m.Point(0)
	if pt.AppliedImpulse <= 0 {
		t.Errorf("normal impulse should be stored for warm starting, got %v", pt.AppliedImpulse)
	}
	if pt.UserPersistentData != nil {
		t.Errorf("user data should be left to the application, got %v", pt.UserPersistentData)
	}
}

func TestSolver_Restitution(t *testing.T) {
	tests := []struct {
		name        string
		speed       float64
		restitution float64
		bounces     bool
	}{
		{"bouncy fast impact", 4, 1, true},
		{"below threshold", 0.3, 1, false},
		{"no restitution", 4, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sphere := createDynamicBody(mgl64.Vec3{0, 0.99, 0})
			ground := createGround()
			sphere.Material.Restitution = tt.restitution
			ground.Material.Restitution = tt.restitution
			sphere.Velocity = mgl64.Vec3{0, -tt.speed, 0}
			m := restingContact(sphere, ground)

			newTestSolver().SolveGroup(nil, []*manifold.PersistentManifold{m}, nil, DefaultSolverInfo(testDt))

			bounced := sphere.Velocity.Y() > tt.speed*tt.restitution*0.9
			if tt.restitution == 0 {
				bounced = sphere.Velocity.Y() > 1
			}
			if bounced != tt.bounces {
				t.Errorf("velocity Y = %v, bounce expected %v", sphere.Velocity.Y(), tt.bounces)
			}
		})
	}
}

func TestSolver_FrictionBounded(t *testing.T) {
	sphere := createDynamicBody(mgl64.Vec3{0, 0.99, 0})
	ground := createGround()
	sphere.Velocity = mgl64.Vec3{1, -2, 0}
	m := restingContact(sphere, ground)

	newTestSolver().SolveGroup(nil, []*manifold.PersistentManifold{m}, nil, DefaultSolverInfo(testDt))

	if sphere.Velocity.X() >= 1 {
		t.Errorf("friction should slow the slide, vx = %v", sphere.Velocity.X())
	}

	pt := m.Point(0)
	lateral := pt.LateralImpulse
	if lateral.Len() == 0 {
		t.Fatal("friction impulse should be stored for warm starting")
	}
	if lateral.Len() > pt.CombinedFriction*pt.AppliedImpulse+1e-9 {
		t.Errorf("friction impulse %v exceeds the cone %v", lateral.Len(), pt.CombinedFriction*pt.AppliedImpulse)
	}
}

func TestSolver_FrictionKeepsUserData(t *testing.T) {
	sphere := createDynamicBody(mgl64.Vec3{0, 0.99, 0})
	ground := createGround()
	sphere.Velocity = mgl64.Vec3{1, -2, 0}
	m := restingContact(sphere, ground)
	m.Point(0).UserPersistentData = "app"

	solver := newTestSolver()
	solver.SolveGroup(nil, []*manifold.PersistentManifold{m}, nil, DefaultSolverInfo(testDt))

	pt := m.Point(0)
	if pt.UserPersistentData != "app" {
		t.Errorf("user data = %v, want it untouched", pt.UserPersistentData)
	}
	if pt.LateralImpulse.X() >= 0 {
		t.Fatalf("friction should push against the slide, lateral impulse %v", pt.LateralImpulse)
	}

	// a resting second solve starts from the stored friction impulse
	stored := pt.LateralImpulse
	sphere.Velocity = mgl64.Vec3{}
	info := DefaultSolverInfo(testDt)
	info.NumIterations = 0
	solver.SolveGroup(nil, []*manifold.PersistentManifold{m}, nil, info)

	want := stored.X() * info.WarmStartingFactor / sphere.Material.GetMass()
	if math.Abs(sphere.Velocity.X()-want) > 1e-9 {
		t.Errorf("warm started vx = %v, want %v", sphere.Velocity.X(), want)
	}
}

func TestSolver_WarmStartReusesImpulse(t *testing.T) {
	sphere := createDynamicBody(mgl64.Vec3{0, 0.99, 0})
	ground := createGround()
	m := restingContact(sphere, ground)
	m.Point(0).AppliedImpulse = 3

	info := DefaultSolverInfo(testDt)
	info.NumIterations = 0
	newTestSolver().SolveGroup(nil, []*manifold.PersistentManifold{m}, nil, info)

	expected := 3 * info.WarmStartingFactor / sphere.Material.GetMass()
	if math.Abs(sphere.Velocity.Y()-expected) > 1e-9 {
		t.Errorf("warm start velocity = %v, want %v", sphere.Velocity.Y(), expected)
	}
}
