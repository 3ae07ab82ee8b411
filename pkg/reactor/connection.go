package reactor

import (
	"errors"
	"net"
	"sync"
)

// ErrConnectionClosed is passed to a Send callback when Send is called
// on a connection that is already closed.
var ErrConnectionClosed = errors.New("reactor: connection closed")

// Handler is the session-facing callback surface a Connection drives.
// OnMessage is invoked from the connection's own read goroutine;
// OnConnect runs on the goroutine that established the connection and
// OnDisconnect on whichever goroutine closed it. Implementations that
// need cross-connection serialization should hand off through a
// dispatcher rather than blocking here.
type Handler interface {
	OnConnect(conn *Connection)
	OnMessage(raw []byte)
	OnDisconnect(err error)
}

// writeRequest is one queued outbound message plus its completion
// callback, fired once the write has been attempted. A request still
// queued when the connection closes is dropped without its callback.
type writeRequest struct {
	bytes []byte
	done  func(error)
}

// Connection owns one net.Conn's read and write goroutines: a read
// loop that feeds a Framer and dispatches whole messages to Handler,
// and a write loop that drains a per-connection queue. Ownership of a
// Connection's fd is exclusive to these two goroutines, mirroring the
// single-reader/single-writer invariant §4.5 states for its
// hash-partitioned worker pools — here enforced structurally rather
// than by a hash lookup.
type Connection struct {
	conn    net.Conn
	handler Handler
	framer  *Framer
	warn    func(format string, args ...interface{})

	writeCh chan writeRequest

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(conn net.Conn, handler Handler, warn func(string, ...interface{})) *Connection {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	return &Connection{
		conn:    conn,
		handler: handler,
		framer:  New(warn),
		warn:    warn,
		writeCh: make(chan writeRequest, 256),
		closed:  make(chan struct{}),
	}
}

// Start launches the read and write goroutines. Call once, after the
// handler is ready to receive OnMessage callbacks.
func (c *Connection) Start() {
	go c.readLoop()
	go c.writeLoop()
}

// Send queues bytes for writing, firing done (if non-nil) once the
// kernel has accepted the full write, or immediately with
// ErrConnectionClosed if the connection is already closed.
func (c *Connection) Send(bytes []byte, done func(error)) {
	select {
	case c.writeCh <- writeRequest{bytes: bytes, done: done}:
	case <-c.closed:
		if done != nil {
			done(ErrConnectionClosed)
		}
	}
}

// Close tears down the connection idempotently, notifying the handler
// exactly once.
func (c *Connection) Close() { c.closeWith(nil) }

// RemoteAddr reports the peer address, for logging.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Connection) readLoop() {
	buf := make([]byte, 64*1024)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			for _, msg := range c.framer.Feed(buf[:n]) {
				c.handler.OnMessage(msg)
			}
		}
		if err != nil {
			c.closeWith(err)
			return
		}
	}
}

func (c *Connection) writeLoop() {
	for {
		select {
		case req := <-c.writeCh:
			_, err := c.conn.Write(req.bytes)
			if req.done != nil {
				req.done(err)
			}
			if err != nil {
				c.closeWith(err)
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Connection) closeWith(err error) {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
		c.handler.OnDisconnect(err)
	})
}

// ApplySocketOptions applies the TCPNoDelay session setting to conn,
// when it is a TCP connection. TCPQuickAck is a recognized
// configuration key (for source fidelity) but is Linux-specific
// socket plumbing outside net.Conn's portable surface, and is
// accepted without effect; see DESIGN.md.
func ApplySocketOptions(conn net.Conn, tcpNoDelay bool) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(tcpNoDelay)
	}
}
