package session

import (
	"fmt"
	"time"

	"github.com/luxfi/fixgate/pkg/cache"
	"github.com/luxfi/fixgate/pkg/config"
	"github.com/luxfi/fixgate/pkg/dictionary"
	"github.com/luxfi/fixgate/pkg/dispatcher"
	"github.com/luxfi/fixgate/pkg/fixlog"
	"github.com/luxfi/fixgate/pkg/fixmsg"
	"github.com/luxfi/fixgate/pkg/metrics"
	"github.com/luxfi/fixgate/pkg/reactor"
	"github.com/luxfi/fixgate/pkg/store"
)

// Delegate is the application-facing callback surface, invoked only
// from the session's own dispatcher queue.
type Delegate interface {
	OnMessage(msg *fixmsg.Message)
	OnLogon()
	OnLogout()
}

// Engine is one session's state machine. It implements reactor.Handler
// so a Connection can drive it directly, but every Handler method
// immediately re-enters through the session's dispatcher queue rather
// than touching state on the reactor's own goroutine.
type Engine struct {
	dict *dictionary.Dictionary
	cfg  config.Session

	cache *cache.Cache
	store *store.Store

	disp      *dispatcher.Dispatcher
	hash      uint32
	timer     *dispatcher.Timer
	tickID    dispatcher.TimerID

	log      *fixlog.Logger
	delegate Delegate
	observer StateObserver

	conn *reactor.Connection

	state                 State
	outstandingTestReqID  string
	testReqSeq            int
	lastSentAt            time.Time
	lastRecvAt            time.Time
	lastLogonAttempt      time.Time
	lastReconnectAttempt  time.Time
	logoutSentAt          time.Time

	sessionLabel string
	updateDelay  time.Duration
}

// New builds an Engine bound to an already-open store/cache for its
// session. updateDelay is the platform-wide tick period (§6
// UpdateDelay). Call Start to begin the periodic tick.
func New(dict *dictionary.Dictionary, cfg config.Session, c *cache.Cache, s *store.Store, disp *dispatcher.Dispatcher, timer *dispatcher.Timer, updateDelay time.Duration, logFactory *fixlog.Factory, delegate Delegate) *Engine {
	label := fmt.Sprintf("%s->%s", cfg.SenderCompID, cfg.TargetCompID)
	e := &Engine{
		dict:         dict,
		cfg:          cfg,
		cache:        c,
		store:        s,
		disp:         disp,
		timer:        timer,
		updateDelay:  updateDelay,
		log:          logFactory.For(cfg.SenderCompID, cfg.TargetCompID),
		delegate:     delegate,
		state:        StateLogon,
		sessionLabel: label,
	}
	e.hash = disp.HashString(label)
	metrics.SessionState.WithLabelValues(label).Set(float64(e.state))
	return e
}

// SessionID is this engine's registry key as an acceptor (our role is
// the "local" side): TargetCompID:SenderCompID flipped from the
// peer's point of view, i.e. the same string the reactor computes
// from an inbound Logon's (49, 56).
func (e *Engine) SessionID() string {
	return reactor.SessionID(e.cfg.SenderCompID, e.cfg.TargetCompID)
}

// Hash is this session's dispatcher queue selector, stable for the
// life of the Engine.
func (e *Engine) Hash() uint32 { return e.hash }

// State reports the engine's current phase. Only safe to call from
// outside the session's own dispatcher queue (e.g. the admin HTTP
// handler); calling it from within a handler running on this
// session's queue deadlocks, since that queue is single-threaded FIFO.
func (e *Engine) State() State {
	result := make(chan State, 1)
	e.disp.Dispatch(e.hash, func() { result <- e.state })
	return <-result
}

// Start schedules the periodic tick described in §4.6.
func (e *Engine) Start() {
	e.tickID = e.timer.Every(e.updateDelay, e.hash, e.tick)
}

// Stop cancels the periodic tick and closes the connection, if any.
func (e *Engine) Stop() {
	e.timer.Erase(e.tickID)
	e.disp.Dispatch(e.hash, func() {
		if e.conn != nil {
			e.conn.Close()
		}
	})
}

// --- reactor.Handler: thin trampolines onto the dispatcher queue ---

// OnConnect implements reactor.Handler.
func (e *Engine) OnConnect(conn *reactor.Connection) {
	e.disp.Dispatch(e.hash, func() { e.handleConnect(conn) })
}

// OnMessage implements reactor.Handler.
func (e *Engine) OnMessage(raw []byte) {
	e.disp.Dispatch(e.hash, func() { e.handleRaw(raw) })
}

// OnDisconnect implements reactor.Handler.
func (e *Engine) OnDisconnect(err error) {
	e.disp.Dispatch(e.hash, func() { e.handleDisconnect(err) })
}

func (e *Engine) handleConnect(conn *reactor.Connection) {
	e.conn = conn
	e.log.Event(fixlog.LevelInfo, "connected", "remote", conn.RemoteAddr().String())
	if e.cfg.Role == config.Initiator {
		e.sendLogon()
	}
}

func (e *Engine) handleDisconnect(err error) {
	if err != nil {
		e.log.Event(fixlog.LevelWarn, "disconnected", "error", err.Error())
	} else {
		e.log.Event(fixlog.LevelInfo, "disconnected")
	}
	e.conn = nil
	e.setState(StateLogon)
}

func (e *Engine) setState(s State) {
	e.state = s
	metrics.SessionState.WithLabelValues(e.sessionLabel).Set(float64(s))
	if e.observer != nil {
		e.observer.OnSessionStateChange(e.snapshotLocked())
	}
}

// terminate disconnects immediately without a clean Logout exchange,
// used for protocol violations detected while not fully READY.
func (e *Engine) terminate(reason string) {
	e.log.Event(fixlog.LevelError, "terminating session", "reason", reason)
	if e.conn != nil {
		e.conn.Close()
	}
	e.setState(StateLogon)
}

// fatalLogout sends a Logout carrying reason and moves to KILLING; the
// connection is closed once the Logout bytes are flushed.
func (e *Engine) fatalLogout(reason string) {
	e.log.Event(fixlog.LevelError, "fatal logout", "reason", reason)
	e.sendLogout(reason)
	e.setState(StateKilling)
}
