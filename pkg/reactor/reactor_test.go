package reactor

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	mu       sync.Mutex
	conn     *Connection
	messages [][]byte
	connected chan struct{}
	gotMsg    chan struct{}
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{connected: make(chan struct{}), gotMsg: make(chan struct{}, 16)}
}

func (h *fakeHandler) OnConnect(c *Connection) {
	h.mu.Lock()
	h.conn = c
	h.mu.Unlock()
	close(h.connected)
}

func (h *fakeHandler) OnMessage(raw []byte) {
	h.mu.Lock()
	h.messages = append(h.messages, raw)
	h.mu.Unlock()
	h.gotMsg <- struct{}{}
}

func (h *fakeHandler) OnDisconnect(err error) {}

type fakeRegistry struct {
	handlers map[string]Handler
}

func (r *fakeRegistry) Lookup(sessionID string) (Handler, bool) {
	h, ok := r.handlers[sessionID]
	return h, ok
}

func TestAcceptorRoutesByFlippedCompIDs(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	handler := newFakeHandler()
	registry := &fakeRegistry{handlers: map[string]Handler{
		SessionID("EXCHANGE", "CLIENT"): handler,
	}}
	acceptor := NewAcceptor(ln, registry, true, nil)
	go acceptor.Serve()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	logon := "8=FIX.4.2\x019=39\x0135=A\x0149=CLIENT\x0156=EXCHANGE\x0198=0\x01108=30\x0110=000\x01"
	_, err = clientConn.Write([]byte(logon))
	require.NoError(t, err)

	select {
	case <-handler.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never connected")
	}
	select {
	case <-handler.gotMsg:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never received message")
	}

	handler.mu.Lock()
	require.Len(t, handler.messages, 1)
	require.Equal(t, []byte(logon), handler.messages[0])
	handler.mu.Unlock()
}

func TestAcceptorClosesUnknownCounterparty(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	registry := &fakeRegistry{handlers: map[string]Handler{}}
	acceptor := NewAcceptor(ln, registry, true, nil)
	go acceptor.Serve()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	logon := "8=FIX.4.2\x019=39\x0135=A\x0149=CLIENT\x0156=EXCHANGE\x0198=0\x01108=30\x0110=000\x01"
	_, err = clientConn.Write([]byte(logon))
	require.NoError(t, err)

	buf := make([]byte, 16)
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = clientConn.Read(buf)
	require.Error(t, err)
}

func TestConnectionSendFiresCallback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverSide := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		serverSide <- c
	}()

	handler := newFakeHandler()
	c, err := Connect(ln.Addr().String(), time.Second, true, handler, nil)
	require.NoError(t, err)
	defer c.Close()

	srv := <-serverSide
	defer srv.Close()

	done := make(chan error, 1)
	c.Send([]byte("8=FIX.4.2\x019=5\x0135=0\x0110=161\x01"), func(err error) { done <- err })

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("send callback never fired")
	}

	buf := make([]byte, 64)
	srv.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := srv.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "8=FIX.4.2\x019=5\x0135=0\x0110=161\x01", string(buf[:n]))
}
