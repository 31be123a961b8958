package island

import (
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/broadphase"
	"github.com/akmonengine/quill/manifold"
	. "github.com/onsi/gomega"
)

type fakeDispatcher struct {
	manifolds []*manifold.PersistentManifold
}

func (d *fakeDispatcher) Manifolds() []*manifold.PersistentManifold {
	return d.manifolds
}

func (d *fakeDispatcher) NeedsResponse(a, b *actor.RigidBody) bool {
	return a.HasContactResponse() && b.HasContactResponse() && (!a.IsStaticOrKinematic() || !b.IsStaticOrKinematic())
}

func (d *fakeDispatcher) link(a, b *actor.RigidBody) {
	d.manifolds = append(d.manifolds, manifold.NewPersistentManifold(a, b, manifold.DefaultBreakingThreshold, nil))
}

func newBodies(types ...actor.BodyType) []*actor.RigidBody {
	bodies := make([]*actor.RigidBody, len(types))
	for i, bodyType := range types {
		bodies[i] = actor.NewRigidBody(actor.NewTransform(), &actor.Sphere{Radius: 1}, bodyType, 1)
		bodies[i].ID = i
	}
	return bodies
}

// connect builds a pair cache and a dispatcher holding a manifold per link
func connect(bodies []*actor.RigidBody, links ...[2]int) (*broadphase.PairCache, *fakeDispatcher) {
	cache := broadphase.NewPairCache()
	proxies := make([]*broadphase.Proxy, len(bodies))
	for i, body := range bodies {
		proxies[i] = &broadphase.Proxy{ID: i, Owner: body, Group: broadphase.FilterDefault, Mask: broadphase.FilterAll}
	}

	dispatcher := &fakeDispatcher{}
	for _, link := range links {
		cache.AddOverlappingPair(proxies[link[0]], proxies[link[1]])
		dispatcher.link(bodies[link[0]], bodies[link[1]])
	}
	return cache, dispatcher
}

func build(bodies []*actor.RigidBody, links ...[2]int) (*Manager, *fakeDispatcher) {
	cache, dispatcher := connect(bodies, links...)
	m := NewManager(nil)
	m.UpdateActivationState(bodies, cache)
	m.StoreIslandActivationState(bodies)
	return m, dispatcher
}

func TestManager_IslandSoundness(t *testing.T) {
	g := NewWithT(t)
	bodies := newBodies(actor.BodyTypeDynamic, actor.BodyTypeDynamic, actor.BodyTypeDynamic, actor.BodyTypeDynamic, actor.BodyTypeStatic)
	// 0-1-2 chained, 3 alone, the static 4 touches 0 and 3
	m, dispatcher := build(bodies, [2]int{0, 1}, [2]int{1, 2}, [2]int{4, 0}, [2]int{3, 4})
	m.BuildIslands(dispatcher, bodies)

	g.Expect(bodies[1].IslandTag).To(Equal(bodies[0].IslandTag))
	g.Expect(bodies[2].IslandTag).To(Equal(bodies[0].IslandTag))
	g.Expect(bodies[3].IslandTag).NotTo(Equal(bodies[0].IslandTag))
	g.Expect(bodies[4].IslandTag).To(Equal(NoIsland))
	g.Expect(bodies[4].CompanionID).To(Equal(NoCompanion))
	g.Expect(m.IslandManifolds()).To(HaveLen(4))
}

func TestManager_NoResponsePairsDoNotMerge(t *testing.T) {
	g := NewWithT(t)
	bodies := newBodies(actor.BodyTypeDynamic, actor.BodyTypeDynamic)
	bodies[1].Flags |= actor.FlagNoContactResponse

	m, dispatcher := build(bodies, [2]int{0, 1})
	m.BuildIslands(dispatcher, bodies)

	g.Expect(bodies[0].IslandTag).NotTo(Equal(bodies[1].IslandTag))
	g.Expect(m.IslandManifolds()).To(BeEmpty())
}

func TestManager_SleepTransitions(t *testing.T) {
	tests := []struct {
		name   string
		states []actor.ActivationState
		want   []actor.ActivationState
	}{
		{
			name:   "all active stay active",
			states: []actor.ActivationState{actor.ActiveTag, actor.ActiveTag},
			want:   []actor.ActivationState{actor.ActiveTag, actor.ActiveTag},
		},
		{
			name:   "all wanting deactivation fall asleep",
			states: []actor.ActivationState{actor.WantsDeactivation, actor.WantsDeactivation},
			want:   []actor.ActivationState{actor.IslandSleeping, actor.IslandSleeping},
		},
		{
			name:   "an active member wakes sleepers up to pending",
			states: []actor.ActivationState{actor.ActiveTag, actor.IslandSleeping},
			want:   []actor.ActivationState{actor.ActiveTag, actor.WantsDeactivation},
		},
		{
			name:   "a pending member does not wake sleepers",
			states: []actor.ActivationState{actor.WantsDeactivation, actor.IslandSleeping},
			want:   []actor.ActivationState{actor.IslandSleeping, actor.IslandSleeping},
		},
		{
			name:   "deactivation disabled",
			states: []actor.ActivationState{actor.DisableDeactivation, actor.WantsDeactivation},
			want:   []actor.ActivationState{actor.DisableDeactivation, actor.WantsDeactivation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			bodies := newBodies(actor.BodyTypeDynamic, actor.BodyTypeDynamic)
			for i, state := range tt.states {
				bodies[i].ForceActivationState(state)
			}

			m, dispatcher := build(bodies, [2]int{0, 1})
			m.BuildIslands(dispatcher, bodies)

			for i, want := range tt.want {
				g.Expect(bodies[i].ActivationState).To(Equal(want), "body %d", i)
			}
		})
	}
}

func TestManager_DisabledDeactivationNeverSleeps(t *testing.T) {
	g := NewWithT(t)
	bodies := newBodies(actor.BodyTypeDynamic, actor.BodyTypeDynamic)
	for _, body := range bodies {
		body.ForceActivationState(actor.DisableDeactivation)
	}

	for step := 0; step < 100; step++ {
		m, dispatcher := build(bodies)
		m.Unite(bodies[0], bodies[1])
		m.StoreIslandActivationState(bodies)
		m.BuildIslands(dispatcher, bodies)

		for _, body := range bodies {
			body.SetActivationState(actor.WantsDeactivation)
		}
	}

	for _, body := range bodies {
		g.Expect(body.ActivationState).To(Equal(actor.DisableDeactivation))
		g.Expect(body.IsActive()).To(BeTrue())
	}
}

func TestManager_KinematicWakesTouchedBody(t *testing.T) {
	g := NewWithT(t)
	bodies := newBodies(actor.BodyTypeKinematic, actor.BodyTypeDynamic)
	bodies[1].ForceActivationState(actor.IslandSleeping)

	m, dispatcher := build(bodies, [2]int{0, 1})
	m.BuildIslands(dispatcher, bodies)

	g.Expect(bodies[1].ActivationState).To(Equal(actor.ActiveTag))
	g.Expect(m.IslandManifolds()).To(HaveLen(1))
}

func TestManager_BuildAndProcessIslands(t *testing.T) {
	g := NewWithT(t)
	bodies := newBodies(actor.BodyTypeDynamic, actor.BodyTypeDynamic, actor.BodyTypeDynamic, actor.BodyTypeDynamic, actor.BodyTypeStatic)
	bodies[3].ForceActivationState(actor.WantsDeactivation)

	// islands {0,1} and {2}, 3 falls asleep alone, 4 is static
	m, dispatcher := build(bodies, [2]int{0, 1}, [2]int{2, 4}, [2]int{1, 4})

	type visit struct {
		bodies    int
		manifolds int
		island    int
	}
	var visits []visit
	m.BuildAndProcessIslands(dispatcher, bodies, func(islandBodies []*actor.RigidBody, manifolds []*manifold.PersistentManifold, islandID int) {
		for _, body := range islandBodies {
			g.Expect(body.IslandTag).To(Equal(islandID))
		}
		for _, mf := range manifolds {
			g.Expect(ManifoldIslandID(mf)).To(Equal(islandID))
		}
		visits = append(visits, visit{len(islandBodies), len(manifolds), islandID})
	})

	g.Expect(visits).To(HaveLen(2))
	g.Expect(visits[0].island).To(BeNumerically("<", visits[1].island))
	g.Expect(visits).To(ContainElement(visit{2, 2, bodies[0].IslandTag}))
	g.Expect(visits).To(ContainElement(visit{1, 1, bodies[2].IslandTag}))
	g.Expect(bodies[3].ActivationState).To(Equal(actor.IslandSleeping))
}
