// Package store implements the keyspace: a hash table of heterogeneous
// entries (strings and sorted sets), each with an optional millisecond TTL
// tracked in a shared expiry heap. This is the "Entry / keyspace" module
// from the precursor's server.cpp, generalized from its raw struct+enum
// layout to Go interfaces and generics.
package store

import (
	"github.com/eric-armendariz/build-redis/internal/hashtable"
	"github.com/eric-armendariz/build-redis/internal/workerpool"
	"github.com/eric-armendariz/build-redis/internal/zset"
)

// Type identifies which value an Entry currently holds.
type Type int

const (
	TypeString Type = iota
	TypeZSet
)

// noTTL is the sentinel HeapIdx value meaning "no TTL set", matching the
// precursor's use of -1 as the out-of-range index.
const noTTL = -1

// Entry is one keyspace record: a key plus either a string or a sorted
// set, and an optional TTL expressed as an index into the owning
// Keyspace's expiry heap.
type Entry struct {
	node hashtable.Node[*Entry]

	Key  []byte
	Type Type
	Str  []byte
	ZSet *zset.Set

	// HeapIdx is noTTL when the entry carries no TTL, otherwise the
	// entry's current position in the expiry heap. The heap keeps this
	// field in sync on every move via its back-reference.
	HeapIdx int
}

func newEntry(key []byte, typ Type) *Entry {
	e := &Entry{Key: append([]byte(nil), key...), Type: typ, HeapIdx: noTTL}
	e.node.Value = e
	return e
}

// largeZSetThreshold is the member count above which clearing a sorted
// set is handed to the worker pool instead of done inline, per the
// "Thread pool" component's destructor-offload mandate.
const largeZSetThreshold = 1000

// destroy releases an entry's resources. A sorted set with more than
// largeZSetThreshold members is cleared on a worker-pool goroutine; any
// other entry is handled inline. zset.Set.Clear only drops the set's tree
// root and name index; the members' memory is reclaimed by the garbage
// collector.
func (e *Entry) destroy(pool *workerpool.Pool) {
	if e.Type == TypeZSet && e.ZSet.Len() > largeZSetThreshold {
		zs := e.ZSet
		pool.Submit(func() { zs.Clear() })
		return
	}
	if e.Type == TypeZSet {
		e.ZSet.Clear()
	}
}
