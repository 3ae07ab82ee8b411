package session

import (
	"fmt"
	"time"

	"github.com/luxfi/fixgate/pkg/config"
	"github.com/luxfi/fixgate/pkg/fixlog"
	"github.com/luxfi/fixgate/pkg/reactor"
)

// dial is the function maybeReconnect uses to open an initiator
// connection.
var dial = reactor.Connect

// tick runs on the session's own dispatcher queue every UpdateDelay: it
// drives reconnect, Logon retry, heartbeat/test-request timing and the
// test-request/logout timeouts described in §4.6's periodic tick.
func (e *Engine) tick() {
	now := time.Now()

	if e.conn == nil {
		e.maybeReconnect(now)
		return
	}

	switch e.state {
	case StateLogon:
		if e.cfg.Role == config.Initiator && now.Sub(e.lastLogonAttempt) >= e.cfg.LogonInterval {
			e.sendLogon()
		}
	case StateReady:
		e.tickReady(now)
	case StateTestRequest:
		e.tickTestRequest(now)
	case StateLogout:
		if now.Sub(e.logoutSentAt) >= 2*e.cfg.HeartbeatInterval {
			e.log.Event(fixlog.LevelWarn, "peer did not answer Logout in time, closing")
			e.conn.Close()
		}
	case StateKilling:
		e.conn.Close()
	}
}

func (e *Engine) tickReady(now time.Time) {
	if now.Sub(e.lastSentAt) >= e.cfg.HeartbeatInterval {
		e.sendHeartbeat("")
	}
	threshold := time.Duration(float64(e.cfg.HeartbeatInterval) * e.cfg.TestRequestThreshold)
	if now.Sub(e.lastRecvAt) >= threshold {
		e.sendTestRequest()
		e.setState(StateTestRequest)
	}
}

func (e *Engine) tickTestRequest(now time.Time) {
	threshold := time.Duration(float64(e.cfg.HeartbeatInterval) * e.cfg.TestRequestThreshold)
	if now.Sub(e.lastRecvAt) >= 2*threshold {
		e.fatalLogout("no response to TestRequest")
	}
}

// maybeReconnect re-dials an initiator session whose connection was
// lost, once ReconnectInterval has elapsed since the last attempt. The
// dial itself runs on its own goroutine, since net.Dialer.DialContext
// blocks for up to ConnectTimeout and nothing on this session's
// dispatcher queue may block. Acceptor sessions never dial out; they
// just wait for the peer.
func (e *Engine) maybeReconnect(now time.Time) {
	if e.cfg.Role != config.Initiator {
		return
	}
	if now.Sub(e.lastReconnectAttempt) < e.cfg.ReconnectInterval {
		return
	}
	e.lastReconnectAttempt = now

	address := fmt.Sprintf("%s:%d", e.cfg.ConnectHost, e.cfg.ConnectPort)
	warn := func(format string, args ...interface{}) {
		e.log.Event(fixlog.LevelWarn, "framer warning", "detail", fmt.Sprintf(format, args...))
	}
	timeout, noDelay := e.cfg.ConnectTimeout, e.cfg.TCPNoDelay
	go func() {
		// dial's own OnConnect callback re-enters through
		// e.disp.Dispatch, so a successful handleConnect still runs
		// serialized on this session's queue.
		if _, err := dial(address, timeout, noDelay, e, warn); err != nil {
			e.disp.Dispatch(e.hash, func() {
				e.log.Event(fixlog.LevelWarn, "reconnect failed", "error", err.Error())
			})
		}
	}()
}
