// Package engine implements the single-threaded, nonblocking poll(2)
// event loop: accepting connections, framing requests off each socket,
// dispatching them against the keyspace, and reaping idle connections
// and expired keys on a timer. Ported from the precursor project's
// server.cpp main loop (die/msg/fd_set_nb/accept_new_conn/handle_read/
// handle_write/process_timers), replacing its raw poll(2) struct array
// and container_of-recovered Conn pointers with golang.org/x/sys/unix and
// a parallel fd table.
package engine

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/eric-armendariz/build-redis/internal/command"
	"github.com/eric-armendariz/build-redis/internal/dlist"
	"github.com/eric-armendariz/build-redis/internal/logging"
	"github.com/eric-armendariz/build-redis/internal/metrics"
	"github.com/eric-armendariz/build-redis/internal/proto"
	"github.com/eric-armendariz/build-redis/internal/store"
	"github.com/eric-armendariz/build-redis/internal/workerpool"
)

const (
	// listenHost and listenPort are fixed: the spec gives the server no
	// configuration surface for its listen address.
	listenHost = "127.0.0.1"
	listenPort = 1234

	idleTimeoutMs   = 5000
	expiryBudget    = 2000
	readBufferBytes = 64 * 1024
)

// Clock returns the current time in monotonic milliseconds. Production
// code uses a wrapper around time.Now(); tests supply a fake so
// idle-timeout and TTL behavior is deterministic without sleeping.
type Clock func() uint64

// Server is the event loop: one listening socket, a live connection
// table, an LRU idle list, and the keyspace it serves.
type Server struct {
	listenFd int

	conns     map[int]*conn
	idleHead  dlist.Node
	idleOwner map[*dlist.Node]*conn

	ks   *store.Keyspace
	pool *workerpool.Pool
	now  Clock

	log interface {
		Infof(string, ...interface{})
		Errorf(string, ...interface{})
	}
}

// New builds a Server bound to 127.0.0.1:1234, ready for Run. poolSize
// configures the worker pool used for large sorted-set teardown.
func New(poolSize int, now Clock) (*Server, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, err
	}
	addr := unix.SockaddrInet4{Port: listenPort}
	copy(addr.Addr[:], []byte{127, 0, 0, 1})
	if err := unix.Bind(fd, &addr); err != nil {
		return nil, err
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, err
	}

	s := &Server{
		listenFd:  fd,
		conns:     make(map[int]*conn),
		idleOwner: make(map[*dlist.Node]*conn),
		pool:      workerpool.New(poolSize),
		now:       now,
		log:       logging.Get("engine"),
	}
	s.ks = store.New(s.pool)
	dlist.Init(&s.idleHead)
	return s, nil
}

// Close releases the listening socket and every live connection.
func (s *Server) Close() {
	for fd := range s.conns {
		unix.Close(fd)
	}
	unix.Close(s.listenFd)
}

// Tick runs exactly one poll iteration: build the descriptor list, wait
// up to the computed timeout, service ready sockets, then process
// timers. Run calls this in a loop; tests call it directly for
// deterministic single-step control.
func (s *Server) Tick() error {
	pollFds := make([]unix.PollFd, 0, len(s.conns)+1)
	pollFds = append(pollFds, unix.PollFd{Fd: int32(s.listenFd), Events: unix.POLLIN})

	order := make([]int, 0, len(s.conns))
	for fd, c := range s.conns {
		var events int16 = unix.POLLERR
		if c.wantRead {
			events |= unix.POLLIN
		} else if c.wantWrite {
			events |= unix.POLLOUT
		}
		pollFds = append(pollFds, unix.PollFd{Fd: int32(fd), Events: events})
		order = append(order, fd)
	}

	timeout := s.nextTimerMs()
	n, err := unix.Poll(pollFds, timeout)
	if err != nil && err != unix.EINTR {
		return err
	}
	if n > 0 {
		if pollFds[0].Revents&unix.POLLIN != 0 {
			s.acceptLoop()
		}
		for i, fd := range order {
			revents := pollFds[i+1].Revents
			if revents == 0 {
				continue
			}
			c := s.conns[fd]
			if c == nil {
				continue
			}
			s.bumpActivity(c)
			if revents&unix.POLLIN != 0 {
				s.handleRead(c)
			}
			if revents&unix.POLLOUT != 0 {
				s.handleWrite(c)
			}
			if revents&unix.POLLERR != 0 {
				c.wantClose = true
				c.closeReason = "poll_err"
			}
		}
	}

	s.closeMarked()
	s.processTimers()
	metrics.SetIdleConnections(len(s.conns))
	return nil
}

// Run drives Tick forever, returning only on a fatal system error.
func (s *Server) Run() error {
	for {
		if err := s.Tick(); err != nil {
			return err
		}
	}
}

func (s *Server) nextTimerMs() int {
	nowMs := s.now()
	var deadline uint64
	have := false

	if head := s.idleListFront(); head != nil {
		d := head.lastActiveMs + idleTimeoutMs
		deadline, have = d, true
	}
	if d, ok := s.ks.NextDeadlineMs(); ok {
		if !have || d < deadline {
			deadline, have = d, true
		}
	}
	if !have {
		return -1
	}
	if deadline <= nowMs {
		return 0
	}
	return int(deadline - nowMs)
}

func (s *Server) idleListFront() *conn {
	if dlist.Empty(&s.idleHead) {
		return nil
	}
	return s.connFromIdleNode(s.idleHead.Next())
}

func (s *Server) bumpActivity(c *conn) {
	c.lastActiveMs = s.now()
	dlist.Detach(&c.idle)
	dlist.InsertBefore(&s.idleHead, &c.idle)
}

func (s *Server) acceptLoop() {
	for {
		fd, _, err := unix.Accept4(s.listenFd, unix.SOCK_NONBLOCK)
		if err != nil {
			return
		}
		c := newConn(fd, s.now())
		s.conns[fd] = c
		s.idleOwner[&c.idle] = c
		dlist.InsertBefore(&s.idleHead, &c.idle)
		metrics.ConnectionAccepted()
	}
}

func (s *Server) handleRead(c *conn) {
	var buf [readBufferBytes]byte
	n, err := unix.Read(c.fd, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		c.wantClose = true
		c.closeReason = "read_error"
		return
	}
	if n == 0 {
		c.wantClose = true
		c.closeReason = "eof"
		return
	}
	c.incoming = append(c.incoming, buf[:n]...)

	for {
		args, consumed, err := proto.TryParseRequest(c.incoming)
		if err == proto.ErrIncomplete {
			break
		}
		if err != nil {
			metrics.ProtocolError(protocolErrorReason(err))
			c.wantClose = true
			c.closeReason = "protocol_error"
			return
		}
		s.dispatchOne(c, args)
		c.incoming = c.incoming[consumed:]
	}

	if len(c.outgoing) > 0 {
		c.wantWrite = true
		c.wantRead = false
		s.handleWrite(c)
	}
}

// protocolErrorReason maps a proto parse error to the label used by the
// protocol-error metric.
func protocolErrorReason(err error) string {
	switch err {
	case proto.ErrTooBig:
		return "too_big"
	case proto.ErrMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

func (s *Server) dispatchOne(c *conn, args [][]byte) {
	lenOff := len(c.outgoing)
	c.outgoing = append(c.outgoing, 0, 0, 0, 0) // length placeholder

	w := proto.NewWriter()
	command.Dispatch(s.ks, args, s.now(), w)
	body := w.Bytes()
	if len(body) > proto.MaxBodyLen {
		tooBig := proto.NewWriter()
		tooBig.FrameTooBig()
		body = tooBig.Bytes()
	}

	c.outgoing = append(c.outgoing, body...)
	binary.LittleEndian.PutUint32(c.outgoing[lenOff:lenOff+4], uint32(len(body)))
}

func (s *Server) handleWrite(c *conn) {
	if !c.wantWrite || len(c.outgoing) == 0 {
		return
	}
	n, err := unix.Write(c.fd, c.outgoing)
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		c.wantClose = true
		c.closeReason = "write_error"
		return
	}
	c.outgoing = c.outgoing[n:]
	if len(c.outgoing) == 0 {
		c.wantRead = true
		c.wantWrite = false
	}
}

func (s *Server) closeMarked() {
	for fd, c := range s.conns {
		if !c.wantClose {
			continue
		}
		reason := c.closeReason
		if reason == "" {
			reason = "unknown"
		}
		s.destroyConn(fd, c, reason)
	}
}

func (s *Server) destroyConn(fd int, c *conn, reason string) {
	unix.Close(fd)
	dlist.Detach(&c.idle)
	delete(s.idleOwner, &c.idle)
	delete(s.conns, fd)
	metrics.ConnectionClosed(reason)
}

func (s *Server) processTimers() {
	nowMs := s.now()

	for {
		front := s.idleListFront()
		if front == nil || front.lastActiveMs+idleTimeoutMs > nowMs {
			break
		}
		s.destroyConn(front.fd, front, "idle_timeout")
	}

	removed := s.ks.ProcessExpired(nowMs, expiryBudget)
	if removed > 0 {
		metrics.KeysExpired(removed)
	}
}
