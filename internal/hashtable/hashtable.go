// Package hashtable implements a chaining hash table that rehashes
// incrementally: growing the table never pays for more than a bounded
// number of chain migrations per operation, so no single request stalls
// on an O(n) resize.
//
// Ported from the precursor project's hashtable.hpp/hashtable.cpp, with
// the node payload made generic (Node[T]) instead of recovered through
// container-of pointer arithmetic, and the "two HNode pointers + an eq
// function pointer" lookup replaced by a key-capturing closure, which is
// the idiomatic Go shape for the same comparison.
package hashtable

const (
	maxLoadFactor = 8
	rehashingWork = 128
)

// Node is one chained entry. Value is typically a pointer back to the
// owning record (set once at construction), the same pattern avl.Node
// uses.
type Node[T any] struct {
	next  *Node[T]
	hcode uint64
	Value T
}

type subtable[T any] struct {
	buckets []*Node[T]
	mask    uint64
	size    int
}

func newSubtable[T any](n uint64) subtable[T] {
	return subtable[T]{
		buckets: make([]*Node[T], n),
		mask:    n - 1,
	}
}

func (t *subtable[T]) insert(node *Node[T]) {
	pos := node.hcode & t.mask
	node.next = t.buckets[pos]
	t.buckets[pos] = node
	t.size++
}

// lookup returns the address of the chain slot holding the match (the
// head pointer or a predecessor's next pointer), so the caller can detach
// in place.
func (t *subtable[T]) lookup(hcode uint64, eq func(T) bool) **Node[T] {
	if t.buckets == nil {
		return nil
	}
	pos := hcode & t.mask
	from := &t.buckets[pos]
	for *from != nil {
		if (*from).hcode == hcode && eq((*from).Value) {
			return from
		}
		from = &(*from).next
	}
	return nil
}

func (t *subtable[T]) detach(from **Node[T]) *Node[T] {
	node := *from
	*from = node.next
	t.size--
	return node
}

// Map is a mapping keyed by a 64-bit hash code plus an equality predicate,
// arranged into two chaining sub-tables ("newer" and "older") so growth
// can be migrated gradually.
type Map[T any] struct {
	newer, older subtable[T]
	migratePos   uint64
}

func (m *Map[T]) triggerRehash() {
	m.older = m.newer
	m.newer = newSubtable[T]((m.newer.mask + 1) * 2)
	m.migratePos = 0
}

func (m *Map[T]) helpRehash() {
	work := 0
	for work < rehashingWork && m.older.size > 0 {
		from := &m.older.buckets[m.migratePos]
		if *from == nil {
			m.migratePos++
			continue
		}
		m.newer.insert(m.older.detach(from))
		work++
	}
	if m.older.size == 0 {
		m.older.buckets = nil
		m.older.mask = 0
		m.migratePos = 0
	}
}

// Lookup performs the usual bounded migration work, then searches newer
// then older, returning the matching node's Value and whether one was
// found.
func (m *Map[T]) Lookup(hcode uint64, eq func(T) bool) (T, bool) {
	m.helpRehash()
	if from := m.newer.lookup(hcode, eq); from != nil {
		return (*from).Value, true
	}
	if from := m.older.lookup(hcode, eq); from != nil {
		return (*from).Value, true
	}
	var zero T
	return zero, false
}

// Insert adds node to the newer sub-table, triggering a rehash if the
// load factor threshold is reached, then performs a bounded amount of
// migration work.
func (m *Map[T]) Insert(node *Node[T], hcode uint64) {
	node.hcode = hcode
	if m.newer.buckets == nil {
		m.newer = newSubtable[T](4)
	}
	m.newer.insert(node)
	if m.older.buckets == nil {
		threshold := (m.newer.mask + 1) * maxLoadFactor
		if uint64(m.newer.size) >= threshold {
			m.triggerRehash()
		}
	}
	m.helpRehash()
}

// Delete removes the matching node (if any) from whichever sub-table
// holds it, performing the usual bounded migration work, and returns its
// Value.
func (m *Map[T]) Delete(hcode uint64, eq func(T) bool) (T, bool) {
	var result T
	var ok bool
	if from := m.newer.lookup(hcode, eq); from != nil {
		result, ok = m.newer.detach(from).Value, true
	} else if from := m.older.lookup(hcode, eq); from != nil {
		result, ok = m.older.detach(from).Value, true
	}
	m.helpRehash()
	return result, ok
}

// Size returns the total number of keys across both sub-tables.
func (m *Map[T]) Size() int {
	return m.newer.size + m.older.size
}

// ForEach visits every value in an unspecified order, stopping early if
// fn returns false. It iterates bucket *capacity* (mask+1), not size —
// the precursor project's hmForEach iterated `size` as the slot bound,
// which walks fewer slots than the table actually has whenever the table
// is sparse; that bug is not reproduced here.
func (m *Map[T]) ForEach(fn func(T) bool) {
	for _, t := range [2]*subtable[T]{&m.newer, &m.older} {
		if t.buckets == nil {
			continue
		}
		for i := uint64(0); i <= t.mask; i++ {
			for node := t.buckets[i]; node != nil; node = node.next {
				if !fn(node.Value) {
					return
				}
			}
		}
	}
}
