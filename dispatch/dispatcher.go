// Package dispatch selects and runs the narrowphase algorithm of every
// overlapping pair, and owns the persistent manifolds they fill.
package dispatch

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/broadphase"
	"github.com/akmonengine/quill/manifold"
	"github.com/charmbracelet/log"
)

// DispatchFunc selects between contact generation and time of impact
type DispatchFunc int

const (
	DispatchDiscrete DispatchFunc = iota + 1
	DispatchContinuous
)

// DispatcherInfo carries the per-step parameters of a dispatch pass
type DispatcherInfo struct {
	TimeStep     float64
	StepCount    int
	DispatchFunc DispatchFunc
	// TimeOfImpact is lowered to the earliest impact found by a continuous pass
	TimeOfImpact float64
	// CcdMargin is added to every distance measured by the time of impact,
	// so a swept body ends that far inside what it hits and the next
	// discrete pass finds the contact
	CcdMargin float64
}

// NewDispatcherInfo prepares a discrete pass
func NewDispatcherInfo(timeStep float64) *DispatcherInfo {
	return &DispatcherInfo{
		TimeStep:     timeStep,
		DispatchFunc: DispatchDiscrete,
		TimeOfImpact: 1,
	}
}

// Config holds the dependencies of a dispatcher
type Config struct {
	Logger            *log.Logger
	Callbacks         manifold.Callbacks
	BreakingThreshold float64
}

// Dispatcher maps every pair of shape kinds to an algorithm factory and
// pools the manifolds the algorithms allocate.
type Dispatcher struct {
	factories [actor.NumShapeKinds][actor.NumShapeKinds]AlgorithmFactory

	manifolds []*manifold.PersistentManifold
	free      []*manifold.PersistentManifold

	callbacks         manifold.Callbacks
	breakingThreshold float64

	logger              *log.Logger
	staticPairsReported bool
}

// NewDispatcher fills the factory table from the shape classification:
// convex-convex, convex-concave, compound and their swapped variants.
// Sphere-sphere is registered on top of the convex-convex entry.
func NewDispatcher(config Config) *Dispatcher {
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.BreakingThreshold <= 0 {
		config.BreakingThreshold = manifold.DefaultBreakingThreshold
	}

	d := &Dispatcher{
		callbacks:         config.Callbacks,
		breakingThreshold: config.BreakingThreshold,
		logger:            config.Logger,
	}

	for i := actor.ShapeKind(0); i < actor.NumShapeKinds; i++ {
		for j := actor.ShapeKind(0); j < actor.NumShapeKinds; j++ {
			d.factories[i][j] = defaultFactory(i, j)
		}
	}
	d.RegisterAlgorithm(actor.ShapeSphere, actor.ShapeSphere, NewSphereSphereAlgorithm)

	return d
}

func defaultFactory(kind0, kind1 actor.ShapeKind) AlgorithmFactory {
	switch {
	case kind0.IsConvex() && kind1.IsConvex():
		return NewConvexConvexAlgorithm
	case kind0.IsConvex() && kind1.IsConcave():
		return NewConvexPlaneAlgorithm
	case kind0.IsConcave() && kind1.IsConvex():
		return NewSwappedConvexPlaneAlgorithm
	case kind0.IsCompound():
		return NewCompoundAlgorithm
	case kind1.IsCompound():
		return NewSwappedCompoundAlgorithm
	}
	return newEmptyAlgorithm
}

// RegisterAlgorithm overrides one entry of the table
func (d *Dispatcher) RegisterAlgorithm(kind0, kind1 actor.ShapeKind, factory AlgorithmFactory) {
	d.factories[kind0][kind1] = factory
}

// FindAlgorithm creates the algorithm for the current shapes of the bodies.
// shared, when not nil, is the manifold the algorithm must fill instead of
// allocating its own.
func (d *Dispatcher) FindAlgorithm(body0, body1 *actor.RigidBody, shared *manifold.PersistentManifold) Algorithm {
	return d.factories[body0.Shape.Kind()][body1.Shape.Kind()](d, body0, body1, shared)
}

// NewManifold hands out a manifold bound to the two bodies
func (d *Dispatcher) NewManifold(body0, body1 *actor.RigidBody) *manifold.PersistentManifold {
	var m *manifold.PersistentManifold
	if n := len(d.free); n > 0 {
		m = d.free[n-1]
		d.free = d.free[:n-1]
		m.SetBodies(body0, body1)
		m.BreakingThreshold = d.breakingThreshold
	} else {
		m = manifold.NewPersistentManifold(body0, body1, d.breakingThreshold, d.contactDestroyed)
	}

	m.Index = len(d.manifolds)
	d.manifolds = append(d.manifolds, m)
	return m
}

// contactDestroyed forwards to the current callback, so pooled manifolds
// follow changes made through Callbacks.
func (d *Dispatcher) contactDestroyed(userPersistentData any) {
	if d.callbacks.ContactDestroyed != nil {
		d.callbacks.ContactDestroyed(userPersistentData)
	}
}

// ReleaseManifold clears a manifold and returns it to the pool
func (d *Dispatcher) ReleaseManifold(m *manifold.PersistentManifold) {
	if m.Index < 0 || m.Index >= len(d.manifolds) || d.manifolds[m.Index] != m {
		d.logger.Warn("release of a manifold the dispatcher does not own", "index", m.Index)
		return
	}

	m.ClearManifold()

	last := len(d.manifolds) - 1
	moved := d.manifolds[last]
	d.manifolds[m.Index] = moved
	moved.Index = m.Index
	d.manifolds[last] = nil
	d.manifolds = d.manifolds[:last]

	m.Index = -1
	m.SetBodies(nil, nil)
	d.free = append(d.free, m)
}

// ClearManifold drops the points of a manifold but keeps it alive
func (d *Dispatcher) ClearManifold(m *manifold.PersistentManifold) {
	m.ClearManifold()
}

// Manifolds exposes the live manifolds, valid until the next dispatch
func (d *Dispatcher) Manifolds() []*manifold.PersistentManifold {
	return d.manifolds
}

func (d *Dispatcher) NumManifolds() int {
	return len(d.manifolds)
}

func (d *Dispatcher) BreakingThreshold() float64 {
	return d.breakingThreshold
}

// SetBreakingThreshold applies to manifolds created from now on and to the
// live ones.
func (d *Dispatcher) SetBreakingThreshold(threshold float64) {
	d.breakingThreshold = threshold
	for _, m := range d.manifolds {
		m.BreakingThreshold = threshold
	}
}

func (d *Dispatcher) Callbacks() *manifold.Callbacks {
	return &d.callbacks
}

// NeedsCollision is false when both bodies sleep or when one ignores the
// other. A pair of static or kinematic bodies is reported once, since the
// broadphase should have filtered it.
func (d *Dispatcher) NeedsCollision(body0, body1 *actor.RigidBody) bool {
	if !d.staticPairsReported && body0.IsStaticOrKinematic() && body1.IsStaticOrKinematic() {
		d.staticPairsReported = true
		d.logger.Warn("static or kinematic pair reached the narrowphase", "body0", body0.ID, "body1", body1.ID)
	}

	if !body0.IsActive() && !body1.IsActive() {
		return false
	}
	return body0.CheckCollideWith(body1)
}

// NeedsResponse is true when both bodies respond to contacts and at least
// one of them is dynamic.
func (d *Dispatcher) NeedsResponse(body0, body1 *actor.RigidBody) bool {
	if !body0.HasContactResponse() || !body1.HasContactResponse() {
		return false
	}
	return !body0.IsStaticOrKinematic() || !body1.IsStaticOrKinematic()
}

// DispatchAllCollisionPairs runs the narrowphase on every pair of the
// cache, creating and caching the algorithm on the pair when missing.
func (d *Dispatcher) DispatchAllCollisionPairs(cache *broadphase.PairCache, info *DispatcherInfo) {
	cache.ProcessAllOverlappingPairs(func(pair *broadphase.Pair) bool {
		body0, body1 := pair.Proxy0.Owner, pair.Proxy1.Owner
		if body0 == nil || body1 == nil {
			return false
		}
		if !d.NeedsCollision(body0, body1) {
			return false
		}

		if pair.Algorithm == nil {
			pair.Algorithm = d.FindAlgorithm(body0, body1, nil)
		}
		algorithm, ok := pair.Algorithm.(Algorithm)
		if !ok {
			return false
		}

		result := manifold.NewResult(body0, body1, &d.callbacks)
		if info.DispatchFunc == DispatchContinuous {
			if toi := algorithm.CalculateTimeOfImpact(body0, body1, info, result); toi < info.TimeOfImpact {
				info.TimeOfImpact = toi
			}
			return false
		}

		algorithm.ProcessCollision(body0, body1, info, result)
		return false
	})
}
