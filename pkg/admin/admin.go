// Package admin implements the read-only control surface the
// original engine called its AdminWebsite: a JSON snapshot of every
// session's state, a WebSocket feed of state transitions, and a
// Prometheus /metrics endpoint. It sits above pkg/session and imports
// it freely; the dependency never runs the other way — session.Engine
// only ever talks back through the narrow session.StateObserver
// interface it defines for itself.
package admin

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/luxfi/fixgate/pkg/session"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionSnapshotter is the subset of *session.Engine the admin page
// needs: a point-in-time Snapshot, safe to call from any goroutine.
type SessionSnapshotter interface {
	Snapshot() session.Snapshot
}

// Server is the AdminWebsite: it holds no state of its own beyond the
// set of sessions registered with it and a WebSocket fan-out hub fed
// by session.StateObserver callbacks.
type Server struct {
	log log.Logger

	mu       sync.RWMutex
	sessions map[string]SessionSnapshotter

	hub *hub
	reg prometheus.Gatherer

	fanout *Fanout
}

// New builds a Server. reg is the Prometheus registry backing
// /metrics; pass prometheus.DefaultGatherer to use the process-wide
// default registry. fanout is optional (nil disables it) — see
// Fanout.
func New(logger log.Logger, reg prometheus.Gatherer, fanout *Fanout) *Server {
	if logger == nil {
		logger = log.NewLogger("admin")
	}
	return &Server{
		log:      logger.WithFields(log.String("component", "admin")),
		sessions: make(map[string]SessionSnapshotter),
		hub:      newHub(),
		reg:      reg,
		fanout:   fanout,
	}
}

// Register adds a session to the snapshot/stream surface, keyed by
// its SessionID. Call once per session at wiring time, before Start.
func (s *Server) Register(sessionID string, snap SessionSnapshotter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = snap
}

// OnSessionStateChange implements session.StateObserver: every
// registered session should have this passed to its SetObserver so
// transitions reach the WebSocket feed. Invoked from the session's
// own dispatcher queue, so it must not block; pushing onto the hub's
// buffered broadcast channel is the only work done here.
func (s *Server) OnSessionStateChange(snap session.Snapshot) {
	s.hub.broadcast(snap)
}

// Handler returns the http.Handler serving /sessions, /sessions/stream
// and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/stream", s.hub.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe starts the admin HTTP server on addr, blocking until
// it returns an error (including http.ErrServerClosed from Close).
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	s.hub.srv = srv
	return srv.ListenAndServe()
}

// Close stops the WebSocket hub and the HTTP server started by
// ListenAndServe, if any.
func (s *Server) Close() error {
	s.hub.close()
	if s.hub.srv != nil {
		return s.hub.srv.Close()
	}
	return nil
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snaps := make([]session.Snapshot, 0, len(s.sessions))
	for _, snap := range s.sessions {
		snaps = append(snaps, snap.Snapshot())
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snaps); err != nil {
		s.log.Warn("encoding /sessions response failed", "error", err)
	}
}
