package admin

import (
	"time"

	"github.com/luxfi/fixgate/pkg/dictionary"
	"github.com/luxfi/fixgate/pkg/fixmsg"
	"github.com/luxfi/fixgate/pkg/session"
	"github.com/luxfi/log"
	"github.com/nats-io/nats.go"
)

// Fanout republishes every accepted application message to a NATS
// JetStream subject, supplementing the synchronous Delegate callback
// with an at-least-once external feed downstream consumers can
// replay from, grounded on this codebase's persistent-server JetStream
// wiring (nc.JetStream() plus nc.Publish per accepted unit of work).
type Fanout struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	log     log.Logger
}

// NewFanout connects to natsURL and resolves its JetStream context.
// The caller owns the returned Fanout's lifetime and must call Close.
func NewFanout(natsURL, subject string, logger log.Logger) (*Fanout, error) {
	if logger == nil {
		logger = log.NewLogger("admin")
	}
	nc, err := nats.Connect(natsURL, nats.MaxReconnects(-1), nats.ReconnectWait(time.Second))
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}
	return &Fanout{nc: nc, js: js, subject: subject, log: logger.WithFields(log.String("component", "admin-fanout"))}, nil
}

// Close closes the underlying NATS connection without draining it.
func (f *Fanout) Close() {
	f.nc.Close()
}

// publish fans raw out to the configured JetStream subject, logging
// (not returning) any publish error: a fan-out failure must never
// block or fail the session's own message processing.
func (f *Fanout) publish(sessionID string, raw []byte) {
	if _, err := f.js.Publish(f.subject, raw); err != nil {
		f.log.Warn("jetstream publish failed", "session", sessionID, "error", err)
	}
}

// PublishingDelegate wraps a session.Delegate, fanning every accepted
// application message out through a Fanout (serialized with Dict)
// before forwarding it to the wrapped delegate. Built with a nil
// Fanout it is a pure passthrough, so callers can wire it
// unconditionally and only pay for NATS when a Fanout is actually
// configured.
type PublishingDelegate struct {
	SessionID string
	Dict      *dictionary.Dictionary
	Fanout    *Fanout
	Delegate  session.Delegate
}

func (d *PublishingDelegate) OnMessage(msg *fixmsg.Message) {
	if d.Fanout != nil {
		d.Fanout.publish(d.SessionID, d.Dict.Serialize(msg))
	}
	d.Delegate.OnMessage(msg)
}

func (d *PublishingDelegate) OnLogon()  { d.Delegate.OnLogon() }
func (d *PublishingDelegate) OnLogout() { d.Delegate.OnLogout() }
