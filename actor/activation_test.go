package actor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newDynamicSphere() *RigidBody {
	return NewRigidBody(NewTransform(), &Sphere{Radius: 1}, BodyTypeDynamic, 1)
}

func TestSetActivationState(t *testing.T) {
	tests := []struct {
		name    string
		initial ActivationState
		set     ActivationState
		want    ActivationState
	}{
		{"active to sleeping", ActiveTag, IslandSleeping, IslandSleeping},
		{"wants deactivation to active", WantsDeactivation, ActiveTag, ActiveTag},
		{"disable deactivation is sticky", DisableDeactivation, IslandSleeping, DisableDeactivation},
		{"disable simulation is sticky", DisableSimulation, ActiveTag, DisableSimulation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newDynamicSphere()
			rb.ForceActivationState(tt.initial)
			rb.SetActivationState(tt.set)
			if rb.ActivationState != tt.want {
				t.Errorf("ActivationState = %v, want %v", rb.ActivationState, tt.want)
			}
		})
	}
}

func TestIsActive(t *testing.T) {
	rb := newDynamicSphere()
	for state, want := range map[ActivationState]bool{
		ActiveTag:           true,
		WantsDeactivation:   true,
		DisableDeactivation: true,
		IslandSleeping:      false,
		DisableSimulation:   false,
	} {
		rb.ForceActivationState(state)
		if rb.IsActive() != want {
			t.Errorf("IsActive() in state %v = %v, want %v", state, rb.IsActive(), want)
		}
	}
}

func TestActivate(t *testing.T) {
	rb := newDynamicSphere()
	rb.ForceActivationState(IslandSleeping)
	rb.DeactivationTime = 3
	rb.Activate(false)
	if rb.ActivationState != ActiveTag || rb.DeactivationTime != 0 {
		t.Errorf("Activate() left state %v, time %v", rb.ActivationState, rb.DeactivationTime)
	}

	static := NewRigidBody(NewTransform(), &Sphere{Radius: 1}, BodyTypeStatic, 0)
	static.ForceActivationState(IslandSleeping)
	static.Activate(false)
	if static.ActivationState != IslandSleeping {
		t.Error("static body should only wake when forced")
	}
	static.Activate(true)
	if static.ActivationState != ActiveTag {
		t.Error("forced Activate() should wake a static body")
	}
}

func TestUpdateDeactivation_WantsSleeping(t *testing.T) {
	settings := DefaultDeactivation()

	rb := newDynamicSphere()
	for i := 0; i < 10; i++ {
		rb.UpdateDeactivation(0.25, settings)
	}
	if !rb.WantsSleeping(settings) {
		t.Errorf("resting body should want to sleep after %v s", rb.DeactivationTime)
	}

	rb.Velocity = mgl64.Vec3{5, 0, 0}
	rb.UpdateDeactivation(0.25, settings)
	if rb.DeactivationTime != 0 || rb.WantsSleeping(settings) {
		t.Error("moving body should reset its deactivation timer")
	}

	rb.ForceActivationState(DisableDeactivation)
	rb.Velocity = mgl64.Vec3{}
	rb.DeactivationTime = 100
	if rb.WantsSleeping(settings) {
		t.Error("DisableDeactivation body must never want to sleep")
	}

	disabled := settings
	disabled.Disabled = true
	other := newDynamicSphere()
	other.DeactivationTime = 100
	if other.WantsSleeping(disabled) {
		t.Error("globally disabled deactivation must prevent sleeping")
	}
}

func TestFlags(t *testing.T) {
	rb := newDynamicSphere()
	if !rb.MergesSimulationIslands() || !rb.HasContactResponse() {
		t.Error("dynamic body should merge islands and respond to contacts")
	}

	rb.Flags |= FlagNoContactResponse
	if rb.MergesSimulationIslands() || rb.HasContactResponse() {
		t.Error("trigger body should neither merge islands nor respond")
	}

	kinematic := NewRigidBody(NewTransform(), &Sphere{Radius: 1}, BodyTypeKinematic, 0)
	if kinematic.MergesSimulationIslands() || !kinematic.IsStaticOrKinematic() {
		t.Error("kinematic body should not merge islands")
	}
}

func TestCheckCollideWith(t *testing.T) {
	a := newDynamicSphere()
	b := newDynamicSphere()

	if !a.CheckCollideWith(b) {
		t.Fatal("unlinked bodies should collide")
	}

	a.SetIgnoreCollisionCheck(b, true)
	a.SetIgnoreCollisionCheck(b, true)
	if a.CheckCollideWith(b) || b.CheckCollideWith(a) {
		t.Error("ignore must be symmetric")
	}
	if len(a.ignoreCollision) != 1 {
		t.Errorf("duplicate ignore entries: %d", len(a.ignoreCollision))
	}

	a.SetIgnoreCollisionCheck(b, false)
	if !a.CheckCollideWith(b) {
		t.Error("removing the ignore should restore collisions")
	}
}
