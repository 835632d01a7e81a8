package engine

import (
	"github.com/eric-armendariz/build-redis/internal/dlist"
)

// conn is one accepted client connection: its raw file descriptor, the
// I/O readiness it currently wants from poll, and its framing buffers.
// It is linked into the server's idle list via idle, LRU-bumped on every
// ready event, the same intrusive-node idiom internal/dlist's doubly
// linked list is built for.
type conn struct {
	fd int

	wantRead  bool
	wantWrite bool
	wantClose bool

	// closeReason names why wantClose was set, for the closed-connections
	// metric. Set at the same site that sets wantClose.
	closeReason string

	incoming []byte
	outgoing []byte

	lastActiveMs uint64
	idle         dlist.Node
}

func newConn(fd int, nowMs uint64) *conn {
	c := &conn{fd: fd, wantRead: true, lastActiveMs: nowMs}
	dlist.Init(&c.idle)
	return c
}

// connFromIdleNode recovers the owning conn from its embedded idle list
// node. In the precursor project this is a container_of cast over a raw
// pointer; the idle list in this package only ever links conn.idle nodes,
// so a parallel lookup keyed by the node's address does the same job
// without unsafe.
func (s *Server) connFromIdleNode(n *dlist.Node) *conn {
	return s.idleOwner[n]
}
