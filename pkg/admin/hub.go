package admin

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/fixgate/pkg/session"
)

// hub fans session.Snapshot transitions out to every connected
// /sessions/stream WebSocket client, grounded on this codebase's
// register/unregister/broadcast channel pattern for its market-data
// WebSocket server.
type hub struct {
	clients    map[*client]bool
	clientsMu  sync.Mutex
	register   chan *client
	unregister chan *client
	broadcastCh chan session.Snapshot
	done       chan struct{}

	srv *http.Server
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func newHub() *hub {
	h := &hub{
		clients:     make(map[*client]bool),
		register:    make(chan *client, 16),
		unregister:  make(chan *client, 16),
		broadcastCh: make(chan session.Snapshot, 256),
		done:        make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = true
			h.clientsMu.Unlock()
		case c := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.clientsMu.Unlock()
		case snap := <-h.broadcastCh:
			body, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			h.clientsMu.Lock()
			for c := range h.clients {
				select {
				case c.send <- body:
				default:
					// client too slow to keep up; drop rather than
					// stall the broadcast for everyone else.
				}
			}
			h.clientsMu.Unlock()
		case <-h.done:
			h.clientsMu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = nil
			h.clientsMu.Unlock()
			return
		}
	}
}

// broadcast queues snap for delivery to every connected client.
// Non-blocking: when the queue is full, snap itself is dropped
// rather than stall the session dispatcher queue calling in.
func (h *hub) broadcast(snap session.Snapshot) {
	select {
	case h.broadcastCh <- snap:
	default:
	}
}

func (h *hub) close() {
	close(h.done)
}

func (h *hub) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.register <- c
	go c.writePump()
	go h.readPump(c)
}

// readPump does nothing with inbound frames — this feed is push-only
// — but keeps reading so a client-initiated close is detected and the
// client unregistered promptly instead of leaking until the next
// failed write.
func (h *hub) readPump(c *client) {
	defer func() { h.unregister <- c }()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case body, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
