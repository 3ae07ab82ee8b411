package reactor

import "net"

// Registry resolves the session-id formed by flipping an inbound
// connection's SenderCompID/TargetCompID into the Handler that should
// own it, per the accept handshake in §4.5. Lookup must also report
// not-found for a session that is already bound to a live
// connection, so a duplicate connect attempt is rejected rather than
// stealing the handler out from under the existing one.
type Registry interface {
	Lookup(sessionID string) (Handler, bool)
}

// Acceptor runs the accept loop for one listening socket, performing
// the handshake inline on each freshly-accepted connection before
// handing it off to the matched session's Handler.
type Acceptor struct {
	listener net.Listener
	registry Registry
	warn     func(format string, args ...interface{})
	noDelay  bool
}

// NewAcceptor wraps an already-bound listener.
func NewAcceptor(listener net.Listener, registry Registry, tcpNoDelay bool, warn func(string, ...interface{})) *Acceptor {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	return &Acceptor{listener: listener, registry: registry, warn: warn, noDelay: tcpNoDelay}
}

// Serve accepts connections until the listener is closed, returning
// the listener's terminal error.
func (a *Acceptor) Serve() error {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return err
		}
		ApplySocketOptions(conn, a.noDelay)
		go a.handshake(conn)
	}
}

// Close stops accepting new connections.
func (a *Acceptor) Close() error { return a.listener.Close() }

// handshake reads until a first whole message arrives, extracts its
// SenderCompID/TargetCompID, flips them to find the owning session,
// and either binds the connection to that session's Handler or closes
// the fd on any handshake failure per §4.5's boundary case.
func (a *Acceptor) handshake(conn net.Conn) {
	framer := New(a.warn)
	buf := make([]byte, 64*1024)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			conn.Close()
			return
		}
		msgs := framer.Feed(buf[:n])
		if len(msgs) == 0 {
			continue
		}

		first := msgs[0]
		hf, ok := extractHandshakeFields(first)
		if !ok {
			a.warn("acceptor: handshake message from %s missing SenderCompID/TargetCompID, closing", conn.RemoteAddr())
			conn.Close()
			return
		}

		sessionID := SessionID(hf.TargetCompID, hf.SenderCompID)
		handler, found := a.registry.Lookup(sessionID)
		if !found {
			a.warn("acceptor: unknown counterparty %q from %s, closing", sessionID, conn.RemoteAddr())
			conn.Close()
			return
		}

		c := newConnection(conn, handler, a.warn)
		c.framer = framer
		c.Start()
		handler.OnConnect(c)
		for _, msg := range msgs {
			handler.OnMessage(msg)
		}
		return
	}
}
