// Package hashset implements an open-addressed, quadratic-probing hash
// table: power-of-two capacity, load factor 0.8, tombstone deletion,
// FNV-1a string hashing. It backs the Filter and Subscription intern
// tables, which rely on its contract directly: every inserted key stays
// find-able until erased, erase is a single O(1) tombstone write, and
// iteration visits each live key exactly once.
package hashset

const loadFactor = 0.8

type entryState uint8

const (
	stateInvalid entryState = iota
	stateDeleted
	stateLive
)

type entry[V any] struct {
	key   string
	value V
	state entryState
}

// Map is a string-keyed open-addressed hash table with quadratic probing.
//
// It is not safe for concurrent use; callers that need concurrent access
// must serialize it externally, matching the single-threaded, cooperative
// concurrency model of the engine as a whole.
type Map[V any] struct {
	buckets []entry[V]
	live    int
}

// New returns a Map with enough capacity to hold expectedEntries without
// resizing.
func New[V any](expectedEntries int) *Map[V] {
	need := int(float64(expectedEntries)/loadFactor) + 1
	cap := 1
	for cap < need {
		cap <<= 1
	}

	return &Map[V]{buckets: make([]entry[V], cap)}
}

func fnv1a(s string) uint64 {
	const offset = 14695981039346656037
	const prime = 1099511628211

	h := uint64(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}

	return h
}

// findBucket returns the index of the live entry matching key. If key is
// absent, it returns the first deleted (tombstone) slot seen on the probe
// chain, or the first invalid (never-used) slot if there was none. A
// tombstone does not stop the probe, since a later insert of the same key
// may have been pushed further down the chain.
func (m *Map[V]) findBucket(key string) int {
	n := len(m.buckets)
	h := fnv1a(key)
	mask := uint64(n - 1)

	firstTombstone := -1
	for i := uint64(0); ; i++ {
		idx := (h + i*(i+1)/2) & mask
		e := &m.buckets[idx]
		switch e.state {
		case stateInvalid:
			if firstTombstone >= 0 {
				return firstTombstone
			}

			return int(idx)
		case stateLive:
			if e.key == key {
				return int(idx)
			}
		case stateDeleted:
			if firstTombstone < 0 {
				firstTombstone = int(idx)
			}
		}
	}
}

func (m *Map[V]) resize(newCap int) {
	old := m.buckets
	m.buckets = make([]entry[V], newCap)
	m.live = 0

	for _, e := range old {
		if e.state == stateLive {
			idx := m.findBucket(e.key)
			m.buckets[idx] = entry[V]{key: e.key, value: e.value, state: stateLive}
			m.live++
		}
	}
}

// Insert stores value under key, overwriting any existing entry.
func (m *Map[V]) Insert(key string, value V) {
	idx := m.findBucket(key)
	if m.buckets[idx].state != stateLive {
		if float64(m.live+1) >= float64(len(m.buckets))*loadFactor {
			m.resize(len(m.buckets) * 2)
			idx = m.findBucket(key)
		}

		m.live++
	}

	m.buckets[idx] = entry[V]{key: key, value: value, state: stateLive}
}

// Find returns the value stored under key, if any.
func (m *Map[V]) Find(key string) (value V, ok bool) {
	idx := m.findBucket(key)
	e := &m.buckets[idx]
	if e.state != stateLive {
		return value, false
	}

	return e.value, true
}

// Erase removes key, writing a tombstone in its place. It reports whether
// key was present.
func (m *Map[V]) Erase(key string) bool {
	idx := m.findBucket(key)
	if m.buckets[idx].state != stateLive {
		return false
	}

	var zero V
	m.buckets[idx] = entry[V]{value: zero, state: stateDeleted}
	m.live--

	return true
}

// Len returns the number of live entries.
func (m *Map[V]) Len() int {
	return m.live
}

// Range calls fn for every live entry, in bucket order (unspecified,
// implementation-defined). It stops early if fn returns false.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, e := range m.buckets {
		if e.state != stateLive {
			continue
		}

		if !fn(e.key, e.value) {
			return
		}
	}
}
