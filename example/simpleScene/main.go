package main

import (
	"fmt"

	"github.com/akmonengine/quill"
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/constraint"
	"github.com/akmonengine/quill/gjk"
	"github.com/akmonengine/quill/manifold"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

// SetupScene creates a ground plane, a tilted bouncing cube and a sphere
// hanging from a hinge above it.
func SetupScene(logger *log.Logger) (*quill.World, *actor.RigidBody, *actor.RigidBody) {
	settings := quill.DefaultSettings()

	// called for bodies flagged with a custom material: new contacts are
	// traced and the rebound on the ground is softened
	settings.Callbacks.ContactAdded = func(pt *manifold.ManifoldPoint, body0 *actor.RigidBody, _, _ int, body1 *actor.RigidBody, _, _ int) bool {
		if pt.LifeTime == 0 {
			logger.Debug("contact", "a", body0.ID, "b", body1.ID, "distance", pt.Distance, "normal", pt.NormalWorldOnB)
		}
		if body0.IsStatic() || body1.IsStatic() {
			pt.CombinedRestitution = min(pt.CombinedRestitution, 0.5)
		}
		return true
	}

	world := quill.NewWorld(settings, logger)

	ground := actor.NewRigidBody(actor.NewTransform(), &actor.Plane{Normal: mgl64.Vec3{0, 1, 0}}, actor.BodyTypeStatic, 0.0)
	ground.Material.Restitution = 1
	world.AddBody(ground)

	cube := actor.NewRigidBody(
		actor.NewTransformAt(mgl64.Vec3{-5, 5, -5}, mgl64.QuatRotate(mgl64.DegToRad(70), mgl64.Vec3{0, 0, 1})),
		&actor.Box{HalfExtents: mgl64.Vec3{1.5, 1.5, 1.5}},
		actor.BodyTypeDynamic,
		1.0,
	)
	cube.Material.Restitution = 0.8
	cube.Flags |= actor.FlagCustomMaterialCallback
	world.AddBody(cube)

	ball := actor.NewRigidBody(actor.NewTransformAt(mgl64.Vec3{2, 6, 0}, mgl64.QuatIdent()), &actor.Sphere{Radius: 0.5}, actor.BodyTypeDynamic, 1.0)
	world.AddBody(ball)

	// the ball swings about z around a world pivot 2m to its left
	hinge := constraint.NewHinge(ball, nil, mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{0, 6, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1})
	hinge.SetLimit(-mgl64.DegToRad(120), mgl64.DegToRad(120))
	world.AddConstraint(hinge, false)

	return world, cube, ball
}

func main() {
	logger := log.Default()
	logger.SetLevel(log.DebugLevel)

	world, cube, ball := SetupScene(logger)

	world.Events.Subscribe(quill.COLLISION_ENTER, func(e quill.Event) {
		event := e.(quill.CollisionEnterEvent)
		fmt.Printf("collision enter %d-%d, %d points\n", event.BodyA.ID, event.BodyB.ID, event.Manifold.NumContacts())
	})
	world.Events.Subscribe(quill.ON_SLEEP, func(e quill.Event) {
		fmt.Printf("body %d sleeps\n", e.(quill.SleepEvent).Body.ID)
	})

	const dt float64 = 1.0 / 60.0
	const maxSteps int = 400

	for step := 0; step < maxSteps; step++ {
		world.Step(dt)

		if step%20 != 0 {
			continue
		}
		fmt.Printf("--- step %d ---\n", step+1)
		fmt.Printf("  cube: position %v, velocity %v, state %v\n", cube.Transform.Position, cube.Velocity, cube.ActivationState)
		fmt.Printf("  ball: position %v, angular velocity %.3f\n", ball.Transform.Position, ball.AngularVelocity.Len())

		closest := gjk.ClosestPoints(gjk.FromBody(cube), gjk.FromBody(ball))
		if closest.Overlap {
			fmt.Println("  cube and ball overlap")
		} else {
			fmt.Printf("  cube to ball distance %.3f\n", closest.Distance)
		}
	}
}
