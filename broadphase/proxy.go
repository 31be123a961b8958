package broadphase

import "github.com/akmonengine/quill/actor"

// CollisionFilter is a bitmask of collision groups
type CollisionFilter int

const (
	FilterDefault CollisionFilter = 1 << iota
	FilterStatic
	FilterKinematic
	FilterDebris
	FilterSensorTrigger
	FilterCharacter

	FilterAll CollisionFilter = -1
)

// Proxy is the broadphase representative of a body
type Proxy struct {
	ID    int
	AABB  actor.AABB
	Owner *actor.RigidBody
	Group CollisionFilter
	Mask  CollisionFilter

	// large proxies bypass the grid cells and are tested against every proxy
	large bool
}

// Algorithm is the narrowphase state cached on a pair. The dispatcher owns
// its concrete type; the cache only needs to release it.
type Algorithm interface {
	Destroy()
}

// Pair is an unordered pair of overlapping proxies
type Pair struct {
	Proxy0    *Proxy
	Proxy1    *Proxy
	Algorithm Algorithm
}

// Equals compares pairs without regard to order: {a,b} == {b,a}
func (p *Pair) Equals(a, b *Proxy) bool {
	return (p.Proxy0 == a && p.Proxy1 == b) || (p.Proxy0 == b && p.Proxy1 == a)
}

// Contains reports whether proxy is one of the pair's members
func (p *Pair) Contains(proxy *Proxy) bool {
	return p.Proxy0 == proxy || p.Proxy1 == proxy
}

func (p *Pair) destroyAlgorithm() {
	if p.Algorithm != nil {
		p.Algorithm.Destroy()
		p.Algorithm = nil
	}
}
