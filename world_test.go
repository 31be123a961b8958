package quill

import (
	"io"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/constraint"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"
)

const dt = 1.0 / 60.0

func newGravityWorld() *World {
	return NewWorld(DefaultSettings(), log.New(io.Discard))
}

func stepFor(world *World, steps int) {
	for range steps {
		world.Step(dt)
	}
}

func TestWorld_FallingSphereComesToRest(t *testing.T) {
	g := NewWithT(t)
	world := newGravityWorld()
	ground := createPlane(mgl64.Vec3{0, 1, 0}, 0)
	sphere := createSphere(mgl64.Vec3{0, 3, 0}, 0.5, actor.BodyTypeDynamic)
	world.AddBody(ground)
	world.AddBody(sphere)

	var entered, slept int
	world.Events.Subscribe(COLLISION_ENTER, func(Event) { entered++ })
	world.Events.Subscribe(ON_SLEEP, func(e Event) {
		if e.(SleepEvent).Body == sphere {
			slept++
		}
	})

	stepFor(world, 60)
	g.Expect(sphere.Transform.Position.Y()).To(BeNumerically("~", 0.5, 0.02))
	g.Expect(entered).To(Equal(1))

	stepFor(world, 240)
	g.Expect(sphere.ActivationState).To(Equal(actor.IslandSleeping))
	g.Expect(slept).To(Equal(1))
	g.Expect(sphere.Velocity.Len()).To(BeZero())
	g.Expect(sphere.Transform.Position.Y()).To(BeNumerically("~", 0.5, 0.02))
}

func TestWorld_SleepingBodyWakesOnImpact(t *testing.T) {
	g := NewWithT(t)
	world := newGravityWorld()
	world.AddBody(createPlane(mgl64.Vec3{0, 1, 0}, 0))
	resting := createBox(mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{0.5, 0.5, 0.5}, actor.BodyTypeDynamic)
	world.AddBody(resting)

	stepFor(world, 240)
	g.Expect(resting.ActivationState).To(Equal(actor.IslandSleeping))

	woken := false
	world.Events.Subscribe(ON_WAKE, func(e Event) {
		if e.(WakeEvent).Body == resting {
			woken = true
		}
	})

	falling := createSphere(mgl64.Vec3{0, 3, 0}, 0.5, actor.BodyTypeDynamic)
	world.AddBody(falling)
	stepFor(world, 60)

	g.Expect(woken).To(BeTrue())
	g.Expect(falling.Transform.Position.Y()).To(BeNumerically(">", 1.3))
}

func TestWorld_HingeWithDisabledDeactivationNeverSleeps(t *testing.T) {
	g := NewWithT(t)
	world := NewWorld(func() Settings {
		s := DefaultSettings()
		s.Gravity = mgl64.Vec3{}
		return s
	}(), log.New(io.Discard))

	a := createSphere(mgl64.Vec3{0, 0, 0}, 0.5, actor.BodyTypeDynamic)
	b := createSphere(mgl64.Vec3{3, 0, 0}, 0.5, actor.BodyTypeDynamic)
	free := createSphere(mgl64.Vec3{10, 0, 0}, 0.5, actor.BodyTypeDynamic)
	a.ForceActivationState(actor.DisableDeactivation)
	b.ForceActivationState(actor.DisableDeactivation)
	world.AddBody(a)
	world.AddBody(b)
	world.AddBody(free)

	hinge := constraint.NewHinge(a, b, mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{-1.5, 0, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1})
	world.AddConstraint(hinge, true)

	stepFor(world, 300)

	g.Expect(free.ActivationState).To(Equal(actor.IslandSleeping))
	for _, body := range []*actor.RigidBody{a, b} {
		g.Expect(body.ActivationState).To(Equal(actor.DisableDeactivation))
		g.Expect(body.IsActive()).To(BeTrue())
	}
	g.Expect(a.CheckCollideWith(b)).To(BeFalse())
}

func TestWorld_PendulumKeepsItsLength(t *testing.T) {
	g := NewWithT(t)
	world := newGravityWorld()
	bob := createSphere(mgl64.Vec3{1, 5, 0}, 0.2, actor.BodyTypeDynamic)
	world.AddBody(bob)

	pivot := mgl64.Vec3{0, 5, 0}
	id := world.AddConstraint(constraint.NewPoint2Point(bob, nil, mgl64.Vec3{-1, 0, 0}, pivot), false)
	g.Expect(id).To(Equal(1))

	lowest := bob.Transform.Position.Y()
	for range 120 {
		world.Step(dt)
		lowest = min(lowest, bob.Transform.Position.Y())

		anchor := bob.Transform.Apply(mgl64.Vec3{-1, 0, 0})
		g.Expect(anchor.Sub(pivot).Len()).To(BeNumerically("<", 0.05))
	}
	g.Expect(lowest).To(BeNumerically("<", 4.2))
}

func TestWorld_TriggerLetsBodiesThrough(t *testing.T) {
	g := NewWithT(t)
	world := newGravityWorld()
	zone := createBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 1, 2}, actor.BodyTypeStatic)
	zone.Flags |= actor.FlagNoContactResponse
	sphere := createSphere(mgl64.Vec3{0, 2, 0}, 0.25, actor.BodyTypeDynamic)
	world.AddBody(zone)
	world.AddBody(sphere)

	counts := map[EventType]int{}
	for eventType := TRIGGER_ENTER; eventType <= COLLISION_EXIT; eventType++ {
		world.Events.Subscribe(eventType, func(e Event) { counts[e.Type()]++ })
	}

	stepFor(world, 90)

	g.Expect(sphere.Transform.Position.Y()).To(BeNumerically("<", -1.25))
	g.Expect(counts[TRIGGER_ENTER]).To(BeNumerically(">=", 1))
	g.Expect(counts[TRIGGER_EXIT]).To(Equal(counts[TRIGGER_ENTER]))
	g.Expect(counts[COLLISION_ENTER]).To(BeZero())
}

func TestWorld_RemoveBody(t *testing.T) {
	g := NewWithT(t)
	world := newGravityWorld()
	ground := createPlane(mgl64.Vec3{0, 1, 0}, 0)
	sphere := createSphere(mgl64.Vec3{0, 0.45, 0}, 0.5, actor.BodyTypeDynamic)
	world.AddBody(ground)
	world.AddBody(sphere)
	world.AddConstraint(constraint.NewPoint2Point(sphere, nil, mgl64.Vec3{}, mgl64.Vec3{0, 0.45, 0}), false)

	world.Step(dt)
	g.Expect(world.Dispatcher.NumManifolds()).To(Equal(1))

	world.RemoveBody(sphere)

	g.Expect(world.Bodies).To(ConsistOf(ground))
	g.Expect(world.Constraints.Len()).To(BeZero())
	g.Expect(world.Broadphase.OverlappingPairCache().Len()).To(BeZero())
	g.Expect(world.Dispatcher.NumManifolds()).To(BeZero())
	g.Expect(sphere.ProxyID).To(Equal(-1))

	world.Step(dt)
}

func TestWorld_ConstraintParams(t *testing.T) {
	g := NewWithT(t)
	world := newGravityWorld()
	body := createBox(mgl64.Vec3{0.5, 2, 0}, mgl64.Vec3{0.25, 0.25, 0.25}, actor.BodyTypeDynamic)
	world.AddBody(body)

	frame := actor.NewTransformAt(mgl64.Vec3{0, 2, 0}, mgl64.QuatIdent())
	id := world.AddConstraint(constraint.NewGeneric6Dof(body, nil, actor.NewTransform(), frame), false)

	// let the body slide freely along x between -1 and 1
	g.Expect(world.SetConstraintParam(id, 0, -1, 1)).To(Succeed())
	position, err := world.ConstraintParam(id, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(position).To(BeNumerically("~", -0.5, 1e-9))

	g.Expect(world.SetConstraintParam(99, 0, 0, 0)).To(MatchError(constraint.ErrUnknownConstraint))
	g.Expect(world.RemoveConstraint(id)).To(Succeed())
	g.Expect(world.RemoveConstraint(id)).To(MatchError(constraint.ErrUnknownConstraint))
}

func TestWorld_Substeps(t *testing.T) {
	g := NewWithT(t)
	settings := DefaultSettings()
	settings.Substeps = 4
	world := NewWorld(settings, log.New(io.Discard))
	sphere := createSphere(mgl64.Vec3{0, 10, 0}, 0.5, actor.BodyTypeDynamic)
	world.AddBody(sphere)

	world.Step(1.0)

	// four semi-implicit quarter steps of free fall
	expected := 10 - 9.81*0.25*0.25*(1+2+3+4)
	g.Expect(sphere.Transform.Position.Y()).To(BeNumerically("~", expected, 1e-9))
	g.Expect(sphere.Velocity.Y()).To(BeNumerically("~", -9.81, 1e-9))
}
