package actor

// CollisionFlags describe how a body takes part in collision handling
type CollisionFlags int

const (
	FlagStatic CollisionFlags = 1 << iota
	FlagKinematic
	// FlagNoContactResponse bodies report contacts but are never pushed (triggers)
	FlagNoContactResponse
	// FlagCustomMaterialCallback asks the contact-added callback to run for this body
	FlagCustomMaterialCallback
)

// ActivationState is the sleep state machine of a body
type ActivationState int

const (
	ActiveTag ActivationState = iota + 1
	IslandSleeping
	WantsDeactivation
	DisableDeactivation
	DisableSimulation
)

func (s ActivationState) String() string {
	switch s {
	case ActiveTag:
		return "active"
	case IslandSleeping:
		return "sleeping"
	case WantsDeactivation:
		return "wants-deactivation"
	case DisableDeactivation:
		return "disable-deactivation"
	case DisableSimulation:
		return "disable-simulation"
	}
	return "unknown"
}

// Deactivation holds the settings shared by every body of a world
type Deactivation struct {
	// Time a body must stay below the thresholds before it may sleep; 0 disables sleeping
	Time                     float64
	LinearSleepingThreshold  float64
	AngularSleepingThreshold float64
	Disabled                 bool
}

// DefaultDeactivation matches the usual 2 seconds below 0.8 m/s and 1 rad/s
func DefaultDeactivation() Deactivation {
	return Deactivation{
		Time:                     2.0,
		LinearSleepingThreshold:  0.8,
		AngularSleepingThreshold: 1.0,
	}
}

func (rb *RigidBody) IsStatic() bool {
	return rb.Flags&FlagStatic != 0
}

func (rb *RigidBody) IsKinematic() bool {
	return rb.Flags&FlagKinematic != 0
}

func (rb *RigidBody) IsStaticOrKinematic() bool {
	return rb.Flags&(FlagStatic|FlagKinematic) != 0
}

// HasContactResponse is false for trigger bodies
func (rb *RigidBody) HasContactResponse() bool {
	return rb.Flags&FlagNoContactResponse == 0
}

// MergesSimulationIslands reports whether contacts with this body join islands
func (rb *RigidBody) MergesSimulationIslands() bool {
	return rb.Flags&(FlagStatic|FlagKinematic|FlagNoContactResponse) == 0
}

func (rb *RigidBody) IsActive() bool {
	return rb.ActivationState != IslandSleeping && rb.ActivationState != DisableSimulation
}

// SetActivationState changes the state unless the body pinned it with
// DisableDeactivation or DisableSimulation.
func (rb *RigidBody) SetActivationState(state ActivationState) {
	if rb.ActivationState != DisableDeactivation && rb.ActivationState != DisableSimulation {
		rb.ActivationState = state
	}
}

// ForceActivationState changes the state unconditionally
func (rb *RigidBody) ForceActivationState(state ActivationState) {
	rb.ActivationState = state
}

// Activate wakes the body up. Static and kinematic bodies are only woken when forced.
func (rb *RigidBody) Activate(force bool) {
	if force || !rb.IsStaticOrKinematic() {
		rb.SetActivationState(ActiveTag)
		rb.DeactivationTime = 0
	}
}

// UpdateDeactivation accumulates the time spent below the sleeping thresholds
func (rb *RigidBody) UpdateDeactivation(dt float64, settings Deactivation) {
	if rb.ActivationState == IslandSleeping || rb.ActivationState == DisableDeactivation {
		return
	}

	linear := settings.LinearSleepingThreshold
	angular := settings.AngularSleepingThreshold
	if rb.Velocity.LenSqr() < linear*linear && rb.AngularVelocity.LenSqr() < angular*angular {
		rb.DeactivationTime += dt
		return
	}

	rb.DeactivationTime = 0
	rb.SetActivationState(ActiveTag)
}

// WantsSleeping reports whether the body is a candidate for island sleeping
func (rb *RigidBody) WantsSleeping(settings Deactivation) bool {
	if rb.ActivationState == DisableDeactivation {
		return false
	}
	if settings.Disabled || settings.Time == 0 {
		return false
	}
	if rb.ActivationState == IslandSleeping || rb.ActivationState == WantsDeactivation {
		return true
	}

	return rb.DeactivationTime > settings.Time
}

// SetIgnoreCollisionCheck makes the pair skip narrowphase, used for bodies
// linked by a constraint.
func (rb *RigidBody) SetIgnoreCollisionCheck(other *RigidBody, ignore bool) {
	for i, ignored := range rb.ignoreCollision {
		if ignored == other {
			if !ignore {
				rb.ignoreCollision = append(rb.ignoreCollision[:i], rb.ignoreCollision[i+1:]...)
			}
			return
		}
	}
	if ignore {
		rb.ignoreCollision = append(rb.ignoreCollision, other)
	}
}

// CheckCollideWith is false when either body ignores the other
func (rb *RigidBody) CheckCollideWith(other *RigidBody) bool {
	for _, ignored := range rb.ignoreCollision {
		if ignored == other {
			return false
		}
	}
	for _, ignored := range other.ignoreCollision {
		if ignored == rb {
			return false
		}
	}
	return true
}
