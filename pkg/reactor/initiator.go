package reactor

import (
	"context"
	"net"
	"time"
)

// Connect dials address with the given timeout, binding the resulting
// connection to handler on success. net.Dialer already performs the
// non-blocking-connect-plus-readiness-wait §4.5 describes for the
// initiator role; there is no separate probe step to hand-write.
func Connect(address string, timeout time.Duration, tcpNoDelay bool, handler Handler, warn func(string, ...interface{})) (*Connection, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	ApplySocketOptions(conn, tcpNoDelay)

	c := newConnection(conn, handler, warn)
	c.Start()
	handler.OnConnect(c)
	return c, nil
}
