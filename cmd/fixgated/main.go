// Command fixgated wires the engine's packages into a runnable
// process: load configuration, open each session's dictionary and
// store, bind acceptor listeners and start initiator reconnection, and
// serve the admin page. It demonstrates the shutdown sequence the
// source's SignalHandler described (stop accepting, flush writers,
// close store) rather than reproducing signal handling itself, which
// is out of scope for the engine packages proper.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/luxfi/fixgate/pkg/admin"
	"github.com/luxfi/fixgate/pkg/cache"
	"github.com/luxfi/fixgate/pkg/config"
	"github.com/luxfi/fixgate/pkg/dictionary"
	"github.com/luxfi/fixgate/pkg/dispatcher"
	"github.com/luxfi/fixgate/pkg/fixlog"
	"github.com/luxfi/fixgate/pkg/fixmsg"
	"github.com/luxfi/fixgate/pkg/metrics"
	"github.com/luxfi/fixgate/pkg/reactor"
	"github.com/luxfi/fixgate/pkg/session"
	"github.com/luxfi/fixgate/pkg/store"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
)

// registry maps a session-id (formed from an inbound connection's
// flipped CompIDs) to the Engine that should own it, implementing
// reactor.Registry.
type registry struct {
	mu       sync.Mutex
	handlers map[string]reactor.Handler
}

func newRegistry() *registry { return &registry{handlers: make(map[string]reactor.Handler)} }

func (r *registry) add(sessionID string, h reactor.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[sessionID] = h
}

func (r *registry) Lookup(sessionID string) (reactor.Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[sessionID]
	if e, isEngine := h.(*session.Engine); ok && isEngine && e.Snapshot().Connected {
		return nil, false
	}
	return h, ok
}

// loggingDelegate is the default application callback: this core has
// no business-message handler (out of scope), so it just logs what it
// accepted.
type loggingDelegate struct {
	log log.Logger
}

func (d loggingDelegate) OnMessage(msg *fixmsg.Message) {
	d.log.Info("accepted application message", "msg_type", msg.MsgType())
}
func (d loggingDelegate) OnLogon()  { d.log.Info("session logged on") }
func (d loggingDelegate) OnLogout() { d.log.Info("session logged out") }

type boundSession struct {
	cfg    config.Session
	engine *session.Engine
	store  *store.Store
}

func main() {
	configPath := flag.String("config", "", "path to fixgate configuration file")
	flag.Parse()

	rootLog := log.NewLogger("fixgated")

	cfg, err := config.Load(*configPath)
	if err != nil {
		rootLog.Error("loading configuration failed", "error", err)
		os.Exit(1)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	var fanout *admin.Fanout
	if cfg.Platform.AdminNATSURL != "" {
		fanout, err = admin.NewFanout(cfg.Platform.AdminNATSURL, cfg.Platform.AdminNATSSubject, rootLog)
		if err != nil {
			rootLog.Error("connecting admin NATS fan-out failed", "error", err)
			os.Exit(1)
		}
		defer fanout.Close()
	}

	adminServer := admin.New(rootLog, prometheus.DefaultGatherer, fanout)

	logFactory := fixlog.NewFactory(rootLog, 1024)
	defer logFactory.Close()

	disp := dispatcher.New(cfg.Platform.InputThreads)
	defer disp.Stop()
	timer := dispatcher.NewTimer(disp)
	defer timer.Stop()

	reg := newRegistry()
	var sessions []boundSession
	acceptors := make(map[int]*reactor.Acceptor)

	for _, sc := range cfg.Sessions {
		bound, err := buildSession(cfg.Platform, sc, disp, timer, logFactory, fanout, rootLog, adminServer)
		if err != nil {
			rootLog.Error("building session failed", "session", sc.Name, "error", err)
			os.Exit(1)
		}
		sessions = append(sessions, bound)

		reg.add(bound.engine.SessionID(), bound.engine)

		if sc.Role == config.Acceptor {
			if _, exists := acceptors[sc.AcceptPort]; !exists {
				ln, err := net.Listen("tcp", fmt.Sprintf(":%d", sc.AcceptPort))
				if err != nil {
					rootLog.Error("listening failed", "port", sc.AcceptPort, "error", err)
					os.Exit(1)
				}
				warn := func(format string, args ...interface{}) { rootLog.Warn(fmt.Sprintf(format, args...)) }
				a := reactor.NewAcceptor(ln, reg, sc.TCPNoDelay, warn)
				acceptors[sc.AcceptPort] = a
				go func() {
					if err := a.Serve(); err != nil {
						rootLog.Info("acceptor stopped", "port", sc.AcceptPort, "error", err)
					}
				}()
			}
		}
	}

	for _, bound := range sessions {
		bound.engine.Start()
	}

	if cfg.Platform.AdminWebsitePort != 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Platform.AdminWebsitePort)
			if err := adminServer.ListenAndServe(addr); err != nil {
				rootLog.Info("admin server stopped", "error", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	rootLog.Info("shutting down")

	for _, a := range acceptors {
		a.Close()
	}
	for _, bound := range sessions {
		bound.engine.Stop()
	}
	adminServer.Close()
	for _, bound := range sessions {
		if err := bound.store.Close(); err != nil {
			rootLog.Warn("closing store failed", "session", bound.cfg.Name, "error", err)
		}
	}
}

func buildSession(platform config.Platform, sc config.Session, disp *dispatcher.Dispatcher, timer *dispatcher.Timer, logFactory *fixlog.Factory, fanout *admin.Fanout, rootLog log.Logger, adminServer *admin.Server) (boundSession, error) {
	f, err := os.Open(sc.FIXDictionary)
	if err != nil {
		return boundSession{}, fmt.Errorf("opening dictionary %s: %w", sc.FIXDictionary, err)
	}
	defer f.Close()
	dict, err := dictionary.Load(f)
	if err != nil {
		return boundSession{}, fmt.Errorf("loading dictionary %s: %w", sc.FIXDictionary, err)
	}

	logPath := fmt.Sprintf("%s/%s.fixlog", platform.DataPath, sc.Name)
	s, data, err := store.Open(logPath, time.Second, rootLog)
	if err != nil {
		return boundSession{}, fmt.Errorf("opening store for session %s: %w", sc.Name, err)
	}
	c := cache.New(s, data)

	sessionID := reactor.SessionID(sc.SenderCompID, sc.TargetCompID)
	delegate := session.Delegate(loggingDelegate{log: rootLog.WithFields(log.String("session", sc.Name))})
	if fanout != nil {
		delegate = &admin.PublishingDelegate{SessionID: sessionID, Dict: dict, Fanout: fanout, Delegate: delegate}
	}

	engine := session.New(dict, sc, c, s, disp, timer, platform.UpdateDelay, logFactory, delegate)
	engine.SetObserver(adminServer)
	adminServer.Register(sessionID, engine)

	return boundSession{cfg: sc, engine: engine, store: s}, nil
}
