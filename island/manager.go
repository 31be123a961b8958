// Package island groups bodies connected by contacts or joints into
// simulation islands that sleep, wake and get solved as a unit.
package island

import (
	"slices"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/broadphase"
	"github.com/akmonengine/quill/manifold"
	"github.com/charmbracelet/log"
)

const (
	// NoIsland tags static and kinematic bodies
	NoIsland = -1
	// NoCompanion is the companion id of static and kinematic bodies
	NoCompanion = -2
)

// Dispatcher is what the manager needs from the narrowphase
type Dispatcher interface {
	Manifolds() []*manifold.PersistentManifold
	NeedsResponse(a, b *actor.RigidBody) bool
}

// ProcessIslandFunc receives the awake bodies of one island and the
// manifolds that need a response between them.
type ProcessIslandFunc func(bodies []*actor.RigidBody, manifolds []*manifold.PersistentManifold, islandID int)

// Manager rebuilds the islands every step
type Manager struct {
	unionFind UnionFind

	islandManifolds []*manifold.PersistentManifold
	islandBodies    []*actor.RigidBody

	Logger *log.Logger
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{Logger: logger}
}

func (m *Manager) UnionFind() *UnionFind {
	return &m.unionFind
}

// UpdateActivationState tags every body with its index and unites the
// bodies of every overlapping pair that merges islands.
func (m *Manager) UpdateActivationState(bodies []*actor.RigidBody, cache *broadphase.PairCache) {
	m.unionFind.Reset(len(bodies))
	for i, body := range bodies {
		body.IslandTag = i
		body.CompanionID = -1
		body.HitFraction = 1
	}

	m.FindUnions(cache)
}

// FindUnions unites the pairs of the cache
func (m *Manager) FindUnions(cache *broadphase.PairCache) {
	for _, pair := range cache.Pairs() {
		a, b := pair.Proxy0.Owner, pair.Proxy1.Owner
		if a == nil || b == nil {
			continue
		}
		m.Unite(a, b)
	}
}

// Unite links two bodies, typically through a constraint
func (m *Manager) Unite(a, b *actor.RigidBody) {
	if !a.MergesSimulationIslands() || !b.MergesSimulationIslands() {
		return
	}
	if a.IslandTag < 0 || b.IslandTag < 0 {
		return
	}
	m.unionFind.Unite(a.IslandTag, b.IslandTag)
}

// StoreIslandActivationState copies the island roots into the bodies
func (m *Manager) StoreIslandActivationState(bodies []*actor.RigidBody) {
	for i, body := range bodies {
		if body.IsStaticOrKinematic() {
			body.IslandTag = NoIsland
			body.CompanionID = NoCompanion
			continue
		}
		body.IslandTag = m.unionFind.Find(i)
		body.CompanionID = -1
	}
}

// BuildIslands puts islands whose bodies all want to sleep to sleep, wakes
// up the sleeping members of the other islands, and collects the
// manifolds needing a response.
func (m *Manager) BuildIslands(dispatcher Dispatcher, bodies []*actor.RigidBody) {
	m.islandManifolds = m.islandManifolds[:0]
	m.unionFind.SortIslands()

	numElements := m.unionFind.NumElements()
	for start, end := 0, 0; start < numElements; start = end {
		islandID := m.unionFind.Element(start).ID
		for end = start + 1; end < numElements && m.unionFind.Element(end).ID == islandID; end++ {
		}

		allSleeping := true
		for i := start; i < end; i++ {
			body := bodies[m.unionFind.Element(i).Index]
			if body.IslandTag != islandID {
				if body.IslandTag != NoIsland {
					m.Logger.Warn("body island tag out of sync", "body", body.ID, "tag", body.IslandTag, "island", islandID)
				}
				continue
			}
			if body.ActivationState == actor.ActiveTag || body.ActivationState == actor.DisableDeactivation {
				allSleeping = false
			}
		}

		for i := start; i < end; i++ {
			body := bodies[m.unionFind.Element(i).Index]
			if body.IslandTag != islandID {
				continue
			}
			if allSleeping {
				body.SetActivationState(actor.IslandSleeping)
			} else if body.ActivationState == actor.IslandSleeping {
				body.SetActivationState(actor.WantsDeactivation)
			}
		}
	}

	for _, mf := range dispatcher.Manifolds() {
		a, b := mf.Body0, mf.Body1
		if a.ActivationState == actor.IslandSleeping && b.ActivationState == actor.IslandSleeping {
			continue
		}

		// kinematic motion wakes whatever it touches
		if a.IsKinematic() && a.ActivationState != actor.IslandSleeping {
			b.Activate(false)
		}
		if b.IsKinematic() && b.ActivationState != actor.IslandSleeping {
			a.Activate(false)
		}

		if dispatcher.NeedsResponse(a, b) {
			m.islandManifolds = append(m.islandManifolds, mf)
		}
	}
}

// IslandManifolds are the manifolds retained by the last BuildIslands
func (m *Manager) IslandManifolds() []*manifold.PersistentManifold {
	return m.islandManifolds
}

// BuildAndProcessIslands builds the islands and hands each awake one to
// process, in island id order. Islands holding an inactive body are skipped.
func (m *Manager) BuildAndProcessIslands(dispatcher Dispatcher, bodies []*actor.RigidBody, process ProcessIslandFunc) {
	m.BuildIslands(dispatcher, bodies)

	slices.SortStableFunc(m.islandManifolds, func(a, b *manifold.PersistentManifold) int {
		return ManifoldIslandID(a) - ManifoldIslandID(b)
	})

	numElements := m.unionFind.NumElements()
	numManifolds := len(m.islandManifolds)
	startManifold := 0

	for start, end := 0, 0; start < numElements; start = end {
		islandID := m.unionFind.Element(start).ID
		sleeping := false

		m.islandBodies = m.islandBodies[:0]
		for end = start; end < numElements && m.unionFind.Element(end).ID == islandID; end++ {
			body := bodies[m.unionFind.Element(end).Index]
			// static and kinematic bodies are never part of an island
			if body.IslandTag != islandID {
				continue
			}
			m.islandBodies = append(m.islandBodies, body)
			if !body.IsActive() {
				sleeping = true
			}
		}

		endManifold := startManifold
		for endManifold < numManifolds && ManifoldIslandID(m.islandManifolds[endManifold]) == islandID {
			endManifold++
		}

		if len(m.islandBodies) > 0 && !sleeping {
			process(m.islandBodies, m.islandManifolds[startManifold:endManifold], islandID)
		}
		startManifold = endManifold
	}
}

// ManifoldIslandID is the island of the first dynamic body of a manifold
func ManifoldIslandID(mf *manifold.PersistentManifold) int {
	if mf.Body0.IslandTag >= 0 {
		return mf.Body0.IslandTag
	}
	return mf.Body1.IslandTag
}
