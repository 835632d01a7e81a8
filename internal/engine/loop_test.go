package engine

import (
	"testing"

	"github.com/eric-armendariz/build-redis/internal/dlist"
	"github.com/eric-armendariz/build-redis/internal/proto"
	"github.com/eric-armendariz/build-redis/internal/store"
	"github.com/eric-armendariz/build-redis/internal/workerpool"
)

// newTestServer builds a Server with no real listening socket, for
// exercising the timer, idle-list, and framing logic in isolation from
// actual file descriptors.
func newTestServer(nowMs uint64) *Server {
	s := &Server{
		conns:     make(map[int]*conn),
		idleOwner: make(map[*dlist.Node]*conn),
		pool:      workerpool.New(1),
		now:       func() uint64 { return nowMs },
	}
	s.ks = store.New(s.pool)
	dlist.Init(&s.idleHead)
	return s
}

func (s *Server) addTestConn(fd int, nowMs uint64) *conn {
	c := newConn(fd, nowMs)
	s.conns[fd] = c
	s.idleOwner[&c.idle] = c
	dlist.InsertBefore(&s.idleHead, &c.idle)
	return c
}

func TestNextTimerMsUsesEarliestOfIdleAndTTL(t *testing.T) {
	s := newTestServer(1000)
	s.addTestConn(1, 1000)

	// only the idle deadline exists: 1000 + 5000 - now(1000) = 5000
	if got := s.nextTimerMs(); got != idleTimeoutMs {
		t.Fatalf("nextTimerMs = %d, want %d", got, idleTimeoutMs)
	}

	s.ks.SetString([]byte("k"), []byte("v"))
	s.ks.SetTTL([]byte("k"), 1000, 200)
	if got := s.nextTimerMs(); got != 200 {
		t.Fatalf("nextTimerMs with a sooner TTL = %d, want 200", got)
	}
}

func TestNextTimerMsWaitsIndefinitelyWhenIdle(t *testing.T) {
	s := newTestServer(0)
	if got := s.nextTimerMs(); got != -1 {
		t.Fatalf("nextTimerMs with no connections or TTLs = %d, want -1", got)
	}
}

func TestBumpActivityMovesConnToTail(t *testing.T) {
	s := newTestServer(0)
	a := s.addTestConn(1, 0)
	b := s.addTestConn(2, 0)

	if s.idleListFront() != a {
		t.Fatalf("front should be a (inserted first)")
	}

	s.now = func() uint64 { return 500 }
	s.bumpActivity(a)
	if s.idleListFront() != b {
		t.Fatalf("front should be b after a is bumped to the tail")
	}
	if a.lastActiveMs != 500 {
		t.Fatalf("lastActiveMs = %d, want 500", a.lastActiveMs)
	}
}

func TestProcessTimersEvictsIdleConnections(t *testing.T) {
	s := newTestServer(0)
	// fd -1 is never open, so destroyConn's close is a harmless EBADF
	a := s.addTestConn(-1, 0)
	_ = a

	s.now = func() uint64 { return idleTimeoutMs + 1 }
	s.processTimers()

	if len(s.conns) != 0 {
		t.Fatalf("idle connection should have been evicted, conns = %v", s.conns)
	}
	if !dlist.Empty(&s.idleHead) {
		t.Fatalf("idle list should be empty after eviction")
	}
}

func TestProcessTimersReapsExpiredKeys(t *testing.T) {
	s := newTestServer(0)
	s.ks.SetString([]byte("k"), []byte("v"))
	s.ks.SetTTL([]byte("k"), 0, 10)

	s.now = func() uint64 { return 20 }
	s.processTimers()

	if _, ok, _ := s.ks.GetString([]byte("k")); ok {
		t.Fatalf("key should have been reaped by processTimers")
	}
}

func TestDispatchOneFramesResponseWithLengthPrefix(t *testing.T) {
	s := newTestServer(0)
	c := &conn{}

	s.dispatchOne(c, [][]byte{[]byte("set"), []byte("foo"), []byte("bar")})

	if len(c.outgoing) < 4 {
		t.Fatalf("outgoing too short: %v", c.outgoing)
	}
	bodyLen := int(c.outgoing[0]) | int(c.outgoing[1])<<8 | int(c.outgoing[2])<<16 | int(c.outgoing[3])<<24
	if bodyLen != len(c.outgoing)-4 {
		t.Fatalf("length prefix = %d, want %d", bodyLen, len(c.outgoing)-4)
	}
	if c.outgoing[4] != byte(proto.TagNil) {
		t.Fatalf("body tag = %x, want NIL", c.outgoing[4])
	}
}
