package store

import (
	"testing"

	"github.com/eric-armendariz/build-redis/internal/workerpool"
)

func newTestKeyspace() *Keyspace {
	return New(workerpool.New(1))
}

func TestSetGetDeleteRoundTrip(t *testing.T) {
	ks := newTestKeyspace()

	if err := ks.SetString([]byte("foo"), []byte("bar")); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	val, ok, err := ks.GetString([]byte("foo"))
	if err != nil || !ok || string(val) != "bar" {
		t.Fatalf("GetString = %q, %v, %v, want bar, true, nil", val, ok, err)
	}

	if !ks.Delete([]byte("foo")) {
		t.Fatalf("delete of existing key should report true")
	}
	if ks.Delete([]byte("foo")) {
		t.Fatalf("delete of already-removed key should report false")
	}
	if _, ok, _ := ks.GetString([]byte("foo")); ok {
		t.Fatalf("key should be gone after delete")
	}
}

func TestSetStringWrongTypeError(t *testing.T) {
	ks := newTestKeyspace()
	if _, err := ks.ZAdd([]byte("z"), 1, []byte("a")); err != nil {
		t.Fatalf("ZAdd: %v", err)
	}
	if err := ks.SetString([]byte("z"), []byte("x")); err != ErrWrongType {
		t.Fatalf("SetString over a zset = %v, want ErrWrongType", err)
	}
}

func TestZAddZRemZScore(t *testing.T) {
	ks := newTestKeyspace()

	added, err := ks.ZAdd([]byte("s"), 1, []byte("a"))
	if err != nil || !added {
		t.Fatalf("first zadd: %v, %v", added, err)
	}
	added, err = ks.ZAdd([]byte("s"), 2, []byte("a"))
	if err != nil || added {
		t.Fatalf("second zadd (update): %v, %v", added, err)
	}

	score, ok, err := ks.ZScore([]byte("s"), []byte("a"))
	if err != nil || !ok || score != 2 {
		t.Fatalf("zscore = %v, %v, %v, want 2, true, nil", score, ok, err)
	}

	removed, err := ks.ZRem([]byte("s"), []byte("a"))
	if err != nil || !removed {
		t.Fatalf("zrem: %v, %v", removed, err)
	}
	if removed, _ := ks.ZRem([]byte("s"), []byte("a")); removed {
		t.Fatalf("zrem on missing member should report false")
	}
}

func TestZQueryOnMissingKeyIsEmpty(t *testing.T) {
	ks := newTestKeyspace()
	pairs, err := ks.ZQuery([]byte("nope"), 0, nil, 0, 10)
	if err != nil || len(pairs) != 0 {
		t.Fatalf("zquery on missing key = %v, %v, want empty, nil", pairs, err)
	}
}

func TestKeysEnumeratesAll(t *testing.T) {
	ks := newTestKeyspace()
	ks.SetString([]byte("a"), []byte("1"))
	ks.SetString([]byte("b"), []byte("2"))
	ks.ZAdd([]byte("c"), 1, []byte("m"))

	keys := ks.Keys()
	if len(keys) != 3 {
		t.Fatalf("keys = %v, want 3 entries", keys)
	}
}

func TestTTLLifecycle(t *testing.T) {
	ks := newTestKeyspace()
	ks.SetString([]byte("k"), []byte("v"))

	if ttl := ks.TTLRemaining([]byte("k"), 1000); ttl != -1 {
		t.Fatalf("ttl before pexpire = %d, want -1", ttl)
	}

	if ok := ks.SetTTL([]byte("k"), 1000, 500); !ok {
		t.Fatalf("pexpire on existing key should report true")
	}
	if ttl := ks.TTLRemaining([]byte("k"), 1000); ttl != 500 {
		t.Fatalf("ttl right after pexpire = %d, want 500", ttl)
	}
	if ttl := ks.TTLRemaining([]byte("k"), 1400); ttl != 100 {
		t.Fatalf("ttl partway through = %d, want 100", ttl)
	}

	// negative ttl clears it
	if ok := ks.SetTTL([]byte("k"), 1400, -1); !ok {
		t.Fatalf("clearing ttl on existing key should report true")
	}
	if ttl := ks.TTLRemaining([]byte("k"), 1400); ttl != -1 {
		t.Fatalf("ttl after clear = %d, want -1", ttl)
	}

	if ok := ks.SetTTL([]byte("missing"), 0, 100); ok {
		t.Fatalf("pexpire on a missing key should report false")
	}
	if ttl := ks.TTLRemaining([]byte("missing"), 0); ttl != -2 {
		t.Fatalf("ttl on missing key = %d, want -2", ttl)
	}
}

func TestProcessExpiredRemovesDueEntriesOnly(t *testing.T) {
	ks := newTestKeyspace()
	ks.SetString([]byte("soon"), []byte("1"))
	ks.SetString([]byte("later"), []byte("2"))
	ks.SetTTL([]byte("soon"), 0, 10)
	ks.SetTTL([]byte("later"), 0, 10000)

	removed := ks.ProcessExpired(20, 100)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok, _ := ks.GetString([]byte("soon")); ok {
		t.Fatalf("soon should have been reaped")
	}
	if _, ok, _ := ks.GetString([]byte("later")); !ok {
		t.Fatalf("later should still be present")
	}
}

func TestProcessExpiredRespectsBudget(t *testing.T) {
	ks := newTestKeyspace()
	for _, name := range []string{"a", "b", "c"} {
		ks.SetString([]byte(name), []byte("v"))
		ks.SetTTL([]byte(name), 0, 1)
	}

	removed := ks.ProcessExpired(100, 2)
	if removed != 2 {
		t.Fatalf("removed = %d, want budget of 2", removed)
	}
	if ks.heap.Len() != 1 {
		t.Fatalf("one expired entry should remain pending, heap len = %d", ks.heap.Len())
	}
}
