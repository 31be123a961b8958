package broadphase

// OverlapFilter decides whether two proxies may form a pair. It replaces the
// default group/mask test when set.
type OverlapFilter func(a, b *Proxy) bool

// PairCache stores the overlapping pairs in a flat array. Lookups are
// linear; removal swaps the last pair into the hole, so pair order is not
// stable across removals.
type PairCache struct {
	pairs  []*Pair
	filter OverlapFilter

	overlapCount int
}

func NewPairCache() *PairCache {
	return &PairCache{pairs: make([]*Pair, 0, 64)}
}

// SetOverlapFilter installs a custom filter, nil restores the group/mask test
func (pc *PairCache) SetOverlapFilter(filter OverlapFilter) {
	pc.filter = filter
}

// NeedsBroadphaseCollision applies the overlap filter
func (pc *PairCache) NeedsBroadphaseCollision(a, b *Proxy) bool {
	if pc.filter != nil {
		return pc.filter(a, b)
	}
	return a.Group&b.Mask != 0 && b.Group&a.Mask != 0
}

// AddOverlappingPair appends a pair. Self pairs and filtered pairs are
// rejected with nil. Callers check FindPair first: no duplicate test is done.
func (pc *PairCache) AddOverlappingPair(a, b *Proxy) *Pair {
	if a == b || !pc.NeedsBroadphaseCollision(a, b) {
		return nil
	}

	pair := &Pair{Proxy0: a, Proxy1: b}
	pc.pairs = append(pc.pairs, pair)
	pc.overlapCount++

	return pair
}

// FindPair returns the pair {a,b} in any order, or nil
func (pc *PairCache) FindPair(a, b *Proxy) *Pair {
	if !pc.NeedsBroadphaseCollision(a, b) {
		return nil
	}
	for _, pair := range pc.pairs {
		if pair.Equals(a, b) {
			return pair
		}
	}
	return nil
}

// RemoveOverlappingPair deletes the pair {a,b} and destroys its algorithm
func (pc *PairCache) RemoveOverlappingPair(a, b *Proxy) bool {
	for i, pair := range pc.pairs {
		if pair.Equals(a, b) {
			pc.removeAt(i)
			return true
		}
	}
	return false
}

// RemovePair deletes a pair previously returned by the cache
func (pc *PairCache) RemovePair(pair *Pair) bool {
	return pc.RemoveOverlappingPair(pair.Proxy0, pair.Proxy1)
}

// CleanOverlappingPair destroys the cached algorithm but keeps the pair
func (pc *PairCache) CleanOverlappingPair(pair *Pair) {
	pair.destroyAlgorithm()
}

// ProcessAllOverlappingPairs visits each pair once. Pairs for which the
// callback returns true are removed; the pair swapped into the hole is
// visited next.
func (pc *PairCache) ProcessAllOverlappingPairs(callback func(pair *Pair) bool) {
	for i := 0; i < len(pc.pairs); {
		if callback(pc.pairs[i]) {
			pc.removeAt(i)
			continue
		}
		i++
	}
}

// RemoveOverlappingPairsContainingProxy drops every pair that references proxy
func (pc *PairCache) RemoveOverlappingPairsContainingProxy(proxy *Proxy) {
	pc.ProcessAllOverlappingPairs(func(pair *Pair) bool {
		return pair.Contains(proxy)
	})
}

// CleanProxyFromPairs destroys the algorithms of every pair that references
// proxy, keeping the pairs themselves.
func (pc *PairCache) CleanProxyFromPairs(proxy *Proxy) {
	pc.ProcessAllOverlappingPairs(func(pair *Pair) bool {
		if pair.Contains(proxy) {
			pc.CleanOverlappingPair(pair)
		}
		return false
	})
}

// Pairs exposes the current pairs, valid until the next mutation
func (pc *PairCache) Pairs() []*Pair {
	return pc.pairs
}

func (pc *PairCache) Len() int {
	return len(pc.pairs)
}

// OverlapCount is the number of pairs added minus the number removed
func (pc *PairCache) OverlapCount() int {
	return pc.overlapCount
}

func (pc *PairCache) removeAt(i int) {
	pc.pairs[i].destroyAlgorithm()

	last := len(pc.pairs) - 1
	pc.pairs[i] = pc.pairs[last]
	pc.pairs[last] = nil
	pc.pairs = pc.pairs[:last]
	pc.overlapCount--
}
