package store

import (
	"bytes"
	"errors"

	"github.com/eric-armendariz/build-redis/internal/expiry"
	"github.com/eric-armendariz/build-redis/internal/hashtable"
	"github.com/eric-armendariz/build-redis/internal/workerpool"
	"github.com/eric-armendariz/build-redis/internal/zset"
)

// ErrWrongType is returned when a command targets a key holding a value
// of a different type than the command expects (spec's ERR_BAD_ARG case).
var ErrWrongType = errors.New("store: existing entry has the wrong type")

// Keyspace is the mapping from arbitrary key bytes to Entry records, plus
// the shared expiry heap that tracks their TTLs. It is owned exclusively
// by the event-loop goroutine; the only concurrency it exposes is handing
// large sorted-set teardown to the worker pool.
type Keyspace struct {
	hm   hashtable.Map[*Entry]
	heap expiry.Heap
	pool *workerpool.Pool
}

// New returns an empty Keyspace backed by pool for large-value teardown.
func New(pool *workerpool.Pool) *Keyspace {
	return &Keyspace{pool: pool}
}

func hashKey(key []byte) uint64 {
	var h uint64 = 14695981039346656037
	for _, c := range key {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return h
}

func eqKey(key []byte) func(*Entry) bool {
	return func(e *Entry) bool { return bytes.Equal(e.Key, key) }
}

// Lookup returns the entry stored at key, if any.
func (k *Keyspace) Lookup(key []byte) (*Entry, bool) {
	return k.hm.Lookup(hashKey(key), eqKey(key))
}

// GetString fetches a STRING value. It reports ErrWrongType if the key
// holds a sorted set.
func (k *Keyspace) GetString(key []byte) ([]byte, bool, error) {
	e, ok := k.Lookup(key)
	if !ok {
		return nil, false, nil
	}
	if e.Type != TypeString {
		return nil, true, ErrWrongType
	}
	return e.Str, true, nil
}

// SetString creates or overwrites a STRING value at key. It reports
// ErrWrongType if key already holds a sorted set.
func (k *Keyspace) SetString(key, val []byte) error {
	if e, ok := k.Lookup(key); ok {
		if e.Type != TypeString {
			return ErrWrongType
		}
		e.Str = append([]byte(nil), val...)
		return nil
	}
	e := newEntry(key, TypeString)
	e.Str = append([]byte(nil), val...)
	k.hm.Insert(&e.node, hashKey(key))
	return nil
}

// Delete removes any entry at key, reporting whether one existed. Removal
// from the hash table happens before the entry's resources are torn down,
// so the key is unreachable to new commands before its value (possibly
// offloaded to the worker pool) is destroyed.
func (k *Keyspace) Delete(key []byte) bool {
	e, ok := k.hm.Delete(hashKey(key), eqKey(key))
	if !ok {
		return false
	}
	k.clearTTL(e)
	e.destroy(k.pool)
	return true
}

// Keys returns every key currently stored, in unspecified order.
func (k *Keyspace) Keys() [][]byte {
	var out [][]byte
	k.hm.ForEach(func(e *Entry) bool {
		out = append(out, e.Key)
		return true
	})
	return out
}

func (k *Keyspace) zsetEntry(key []byte, createIfMissing bool) (*Entry, error) {
	e, ok := k.Lookup(key)
	if ok {
		if e.Type != TypeZSet {
			return nil, ErrWrongType
		}
		return e, nil
	}
	if !createIfMissing {
		return nil, nil
	}
	e = newEntry(key, TypeZSet)
	e.ZSet = &zset.Set{}
	k.hm.Insert(&e.node, hashKey(key))
	return e, nil
}

// ZAdd inserts or updates member name at score within the sorted set at
// key, creating the set if key does not yet exist. It reports true if the
// member was newly added, false if it already existed.
func (k *Keyspace) ZAdd(key []byte, score float64, name []byte) (bool, error) {
	e, err := k.zsetEntry(key, true)
	if err != nil {
		return false, err
	}
	return e.ZSet.Insert(name, score), nil
}

// ZRem removes member name from the sorted set at key, reporting whether
// it was present. A missing key is not an error: it simply reports false.
func (k *Keyspace) ZRem(key, name []byte) (bool, error) {
	e, err := k.zsetEntry(key, false)
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, nil
	}
	return e.ZSet.Delete(name), nil
}

// ZScore returns member's score within the sorted set at key.
func (k *Keyspace) ZScore(key, name []byte) (float64, bool, error) {
	e, err := k.zsetEntry(key, false)
	if err != nil {
		return 0, false, err
	}
	if e == nil {
		return 0, false, nil
	}
	score, ok := e.ZSet.Lookup(name)
	return score, ok, nil
}

// ZQuery runs a range query over the sorted set at key. A missing key
// behaves as an empty set.
func (k *Keyspace) ZQuery(key []byte, minScore float64, minName []byte, offset int64, limit int) ([]zset.Pair, error) {
	e, err := k.zsetEntry(key, false)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return e.ZSet.Query(minScore, minName, offset, limit), nil
}

// clearTTL removes key's TTL, if any, without requiring the caller to
// know whether one was set.
func (k *Keyspace) clearTTL(e *Entry) {
	if e.HeapIdx == noTTL {
		return
	}
	k.heap.Delete(e.HeapIdx)
	e.HeapIdx = noTTL
}

// SetTTL sets (ms >= 0) or clears (ms < 0) key's TTL relative to nowMs. It
// reports whether key exists; a TTL operation on a missing key is a no-op
// that reports false.
func (k *Keyspace) SetTTL(key []byte, nowMs uint64, ms int64) bool {
	e, ok := k.Lookup(key)
	if !ok {
		return false
	}
	if ms < 0 {
		k.clearTTL(e)
		return true
	}
	deadline := nowMs + uint64(ms)
	pos := e.HeapIdx
	if pos == noTTL {
		pos = k.heap.Len()
	}
	k.heap.Upsert(pos, expiry.Item{Deadline: deadline, Ref: &e.HeapIdx, Owner: e})
	return true
}

// TTLRemaining returns the milliseconds remaining before key expires:
// -2 if key does not exist, -1 if it exists but carries no TTL, else the
// non-negative remaining duration relative to nowMs.
func (k *Keyspace) TTLRemaining(key []byte, nowMs uint64) int64 {
	e, ok := k.Lookup(key)
	if !ok {
		return -2
	}
	if e.HeapIdx == noTTL {
		return -1
	}
	item, _ := k.heap.ItemAt(e.HeapIdx)
	if item.Deadline <= nowMs {
		return 0
	}
	return int64(item.Deadline - nowMs)
}

// NextDeadlineMs returns the soonest absolute TTL deadline pending, if
// any. The event loop combines this with its own idle-list deadline to
// compute the poll timeout.
func (k *Keyspace) NextDeadlineMs() (uint64, bool) {
	top, ok := k.heap.Top()
	if !ok {
		return 0, false
	}
	return top.Deadline, true
}

// ProcessExpired removes every entry whose TTL is due as of nowMs, up to
// budget removals, reporting how many were removed. Called once per poll
// tick from processTimers.
func (k *Keyspace) ProcessExpired(nowMs uint64, budget int) int {
	removed := 0
	for removed < budget {
		top, ok := k.heap.Top()
		if !ok || top.Deadline > nowMs {
			break
		}
		e := top.Owner.(*Entry)
		k.hm.Delete(hashKey(e.Key), eqKey(e.Key))
		k.clearTTL(e)
		e.destroy(k.pool)
		removed++
	}
	return removed
}
