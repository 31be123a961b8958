package quill

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/manifold"
)

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_STAY
	COLLISION_STAY
	TRIGGER_EXIT
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
)

type pairKey struct {
	bodyA *actor.RigidBody
	bodyB *actor.RigidBody
}

// makePairKey orders the pair by body id, so {a,b} and {b,a} share a key
func makePairKey(bodyA, bodyB *actor.RigidBody) pairKey {
	if bodyB.ID < bodyA.ID {
		bodyA, bodyB = bodyB, bodyA
	}

	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

func (p pairKey) isTrigger() bool {
	return !p.bodyA.HasContactResponse() || !p.bodyB.HasContactResponse()
}

func (p pairKey) sleeping() bool {
	return !p.bodyA.IsActive() && !p.bodyB.IsActive()
}

type EventType uint8

func (t EventType) String() string {
	switch t {
	case TRIGGER_ENTER:
		return "trigger-enter"
	case COLLISION_ENTER:
		return "collision-enter"
	case TRIGGER_STAY:
		return "trigger-stay"
	case COLLISION_STAY:
		return "collision-stay"
	case TRIGGER_EXIT:
		return "trigger-exit"
	case COLLISION_EXIT:
		return "collision-exit"
	case ON_SLEEP:
		return "sleep"
	case ON_WAKE:
		return "wake"
	}
	return "unknown"
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Trigger events
type TriggerEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Collision events. Manifold is the contact cache of the pair, only valid
// during the listener call.
type CollisionEnterEvent struct {
	BodyA    *actor.RigidBody
	BodyB    *actor.RigidBody
	Manifold *manifold.PersistentManifold
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA    *actor.RigidBody
	BodyB    *actor.RigidBody
	Manifold *manifold.PersistentManifold
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Touching pairs of the previous and the current step
	previousActivePairs map[pairKey]*manifold.PersistentManifold
	currentActivePairs  map[pairKey]*manifold.PersistentManifold

	sleepStates map[*actor.RigidBody]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]*manifold.PersistentManifold),
		currentActivePairs:  make(map[pairKey]*manifold.PersistentManifold),
		sleepStates:         make(map[*actor.RigidBody]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordManifolds marks the pairs with at least one touching point. It is
// called after every substep's narrowphase.
func (e *Events) recordManifolds(manifolds []*manifold.PersistentManifold) {
	for _, m := range manifolds {
		if m.Body0 == nil || m.Body1 == nil || !touching(m) {
			continue
		}
		e.currentActivePairs[makePairKey(m.Body0, m.Body1)] = m
	}
}

func touching(m *manifold.PersistentManifold) bool {
	for i := 0; i < m.NumContacts(); i++ {
		if m.Point(i).Distance <= 0 {
			return true
		}
	}
	return false
}

// forget drops the tracking of a removed body
func (e *Events) forget(body *actor.RigidBody) {
	delete(e.sleepStates, body)
	for pair := range e.previousActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.previousActivePairs, pair)
		}
	}
	for pair := range e.currentActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.currentActivePairs, pair)
		}
	}
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit
// Should be called after all substeps
func (e *Events) processCollisionEvents() {
	for pair, m := range e.currentActivePairs {
		// no Stay spam between sleeping bodies
		if pair.sleeping() {
			continue
		}

		_, stay := e.previousActivePairs[pair]
		switch {
		case pair.isTrigger() && stay:
			e.buffer = append(e.buffer, TriggerStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		case pair.isTrigger():
			e.buffer = append(e.buffer, TriggerEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		case stay:
			e.buffer = append(e.buffer, CollisionStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB, Manifold: m})
		default:
			e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB, Manifold: m})
		}
	}

	for pair := range e.previousActivePairs {
		if _, ok := e.currentActivePairs[pair]; ok {
			continue
		}
		// a sleeping pair keeps its contact, it did not leave
		if pair.sleeping() {
			e.currentActivePairs[pair] = nil
			continue
		}

		if pair.isTrigger() {
			e.buffer = append(e.buffer, TriggerExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		} else {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

// processSleepEvents compares the activation of every dynamic body with the
// previous step. Static and kinematic bodies never sleep or wake.
func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		if body.IsStaticOrKinematic() {
			continue
		}
		sleeping := body.ActivationState == actor.IslandSleeping
		trackedState, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = sleeping
			continue
		}

		if !trackedState && sleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if trackedState && !sleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
