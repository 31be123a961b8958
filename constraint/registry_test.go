package constraint

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func TestRegistry_AddRemove(t *testing.T) {
	registry := NewRegistry()
	a := createDynamicBody(mgl64.Vec3{0, 0, 0})
	b := createDynamicBody(mgl64.Vec3{3, 0, 0})

	first := registry.Add(NewPoint2Point(a, b, mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{-1.5, 0, 0}), true)
	second := registry.Add(zHinge(a), false)

	if first != 1 || second != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", first, second)
	}
	if a.CheckCollideWith(b) {
		t.Error("linked bodies should ignore each other")
	}
	if got := len(registry.ConstraintsOf(a)); got != 2 {
		t.Errorf("constraints of a = %d, want 2", got)
	}

	if err := registry.Remove(first); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !a.CheckCollideWith(b) {
		t.Error("removing the constraint should restore collisions")
	}
	if _, ok := registry.ByID(first); ok {
		t.Error("removed constraint still found")
	}
	if c, ok := registry.ByID(second); !ok || c.ID() != second {
		t.Error("remaining constraint lost")
	}
	if err := registry.Remove(first); !errors.Is(err, ErrUnknownConstraint) {
		t.Errorf("second Remove: got %v, want ErrUnknownConstraint", err)
	}
}

func TestRegistry_SharedLink(t *testing.T) {
	registry := NewRegistry()
	a := createDynamicBody(mgl64.Vec3{0, 0, 0})
	b := createDynamicBody(mgl64.Vec3{3, 0, 0})

	first := registry.Add(NewPoint2Point(a, b, mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{-1.5, 0, 0}), true)
	second := registry.Add(NewPoint2Point(b, a, mgl64.Vec3{-1.5, 1, 0}, mgl64.Vec3{1.5, 1, 0}), true)
	unlinked := registry.Add(NewPoint2Point(a, b, mgl64.Vec3{1.5, -1, 0}, mgl64.Vec3{-1.5, -1, 0}), false)

	if err := registry.Remove(first); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if a.CheckCollideWith(b) || b.CheckCollideWith(a) {
		t.Error("bodies still joined by a linked constraint should keep ignoring each other")
	}

	if err := registry.Remove(second); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !a.CheckCollideWith(b) || !b.CheckCollideWith(a) {
		t.Error("removing the last linked constraint should restore collisions")
	}

	// an unlinked constraint never touches the flag
	if err := registry.Remove(unlinked); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !a.CheckCollideWith(b) {
		t.Error("bodies should still collide")
	}
}

func TestRegistry_RemoveBody(t *testing.T) {
	registry := NewRegistry()
	a := createDynamicBody(mgl64.Vec3{0, 0, 0})
	b := createDynamicBody(mgl64.Vec3{3, 0, 0})
	registry.Add(NewPoint2Point(a, b, mgl64.Vec3{}, mgl64.Vec3{}), false)
	registry.Add(zHinge(a), false)
	registry.Add(zHinge(b), false)

	registry.RemoveBody(a)

	if registry.Len() != 1 {
		t.Errorf("constraints left = %d, want 1", registry.Len())
	}
	if len(registry.ConstraintsOf(a)) != 0 {
		t.Error("body a still has constraints")
	}
}

func TestRegistry_SetParam(t *testing.T) {
	tests := []struct {
		name   string
		build  func(body *actor.RigidBody) TypedConstraint
		param  int
		v0, v1 float64
		check  func(t *testing.T, c TypedConstraint)
		err    error
	}{
		{
			name:  "6dof limit",
			build: func(body *actor.RigidBody) TypedConstraint { return NewGeneric6Dof(body, nil, actor.NewTransform(), actor.NewTransform()) },
			param: 1, v0: -0.5, v1: 0.5,
			check: func(t *testing.T, c TypedConstraint) {
				m := c.(*Generic6Dof).Axis(1)
				if m.Lower != -0.5 || m.Upper != 0.5 {
					t.Errorf("limits = [%v, %v]", m.Lower, m.Upper)
				}
			},
		},
		{
			name:  "6dof linear motor",
			build: func(body *actor.RigidBody) TypedConstraint { return NewGeneric6Dof(body, nil, actor.NewTransform(), actor.NewTransform()) },
			param: 7, v0: 2, v1: 10,
			check: func(t *testing.T, c TypedConstraint) {
				m := c.(*Generic6Dof).Axis(1)
				if !m.EnableMotor || m.TargetVelocity != 2 || m.MaxMotorForce != 10 {
					t.Errorf("motor = %+v", m)
				}
			},
		},
		{
			name:  "6dof angular motor without force stays off",
			build: func(body *actor.RigidBody) TypedConstraint { return NewGeneric6Dof(body, nil, actor.NewTransform(), actor.NewTransform()) },
			param: 11, v0: 2, v1: 0,
			check: func(t *testing.T, c TypedConstraint) {
				if c.(*Generic6Dof).Axis(5).EnableMotor {
					t.Error("motor enabled with zero force")
				}
			},
		},
		{
			name: "6dof spring",
			build: func(body *actor.RigidBody) TypedConstraint {
				return NewGeneric6DofSpring(body, nil, actor.NewTransform(), actor.NewTransform())
			},
			param: 12, v0: 40, v1: 0.3,
			check: func(t *testing.T, c TypedConstraint) {
				s := c.(*Generic6DofSpring)
				if !s.SpringEnabled(0) || s.stiffness[0] != 40 || s.damping[0] != 0.3 {
					t.Errorf("spring 0 not configured: %v %v %v", s.SpringEnabled(0), s.stiffness[0], s.damping[0])
				}
				if math.Abs(s.EquilibriumPoint(0)+0.5) > 1e-9 {
					t.Errorf("equilibrium = %v, want the current -0.5", s.EquilibriumPoint(0))
				}
			},
		},
		{
			name:  "cone-twist unlimited span",
			build: func(body *actor.RigidBody) TypedConstraint { return NewConeTwist(body, nil, actor.NewTransform(), actor.NewTransform()) },
			param: 4, v0: 0, v1: -1,
			check: func(t *testing.T, c TypedConstraint) {
				if _, swing2, _ := c.(*ConeTwist).Spans(); swing2 != unlimitedSpan {
					t.Errorf("swing 2 = %v", swing2)
				}
			},
		},
		{
			name:  "cone-twist twist span",
			build: func(body *actor.RigidBody) TypedConstraint { return NewConeTwist(body, nil, actor.NewTransform(), actor.NewTransform()) },
			param: 3, v0: 0, v1: 0.4,
			check: func(t *testing.T, c TypedConstraint) {
				if _, _, twist := c.(*ConeTwist).Spans(); twist != 0.4 {
					t.Errorf("twist = %v", twist)
				}
			},
		},
		{
			name:  "hinge limit",
			build: func(body *actor.RigidBody) TypedConstraint { return zHinge(body) },
			param: 3, v0: -0.3, v1: 0.6,
			check: func(t *testing.T, c TypedConstraint) {
				if lower, upper := c.(*Hinge).Limits(); lower != -0.3 || upper != 0.6 {
					t.Errorf("limits = [%v, %v]", lower, upper)
				}
			},
		},
		{
			name:  "point2point has no params",
			build: func(body *actor.RigidBody) TypedConstraint { return NewPoint2Point(body, nil, mgl64.Vec3{}, mgl64.Vec3{}) },
			param: 0, v0: 1, v1: 1,
			err:   ErrUnknownParam,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			c := tt.build(createDynamicBody(mgl64.Vec3{0.5, 0, 0}))
			id := registry.Add(c, false)

			err := registry.SetParam(id, tt.param, tt.v0, tt.v1)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("SetParam error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetParam: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestRegistry_Param(t *testing.T) {
	registry := NewRegistry()
	body := rotatedBody(mgl64.Vec3{0.5, 0, 0}, 0.25, mgl64.Vec3{0, 0, 1})
	id := registry.Add(NewGeneric6Dof(body, nil, actor.NewTransform(), actor.NewTransform()), false)

	position, err := registry.Param(id, 0)
	if err != nil {
		t.Fatalf("Param(0): %v", err)
	}
	if math.Abs(position+0.5*math.Cos(0.25)) > 1e-9 {
		t.Errorf("relative position = %v", position)
	}

	// B is the world frame, so it is rotated by -0.25 relative to A
	angle, err := registry.Param(id, 5)
	if err != nil {
		t.Fatalf("Param(5): %v", err)
	}
	if math.Abs(angle+0.25) > 1e-9 {
		t.Errorf("angle = %v, want -0.25", angle)
	}

	if _, err := registry.Param(id, 9); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Param(9) error = %v, want ErrUnknownParam", err)
	}
	if _, err := registry.Param(99, 0); !errors.Is(err, ErrUnknownConstraint) {
		t.Errorf("unknown id error = %v, want ErrUnknownConstraint", err)
	}
}
