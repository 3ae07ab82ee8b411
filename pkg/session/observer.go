package session

import "time"

// Snapshot is a read-only view of one session's state, used by the
// admin page's session list and pushed on every state transition.
type Snapshot struct {
	SessionID        string
	SenderCompID     string
	TargetCompID     string
	State            State
	NextSenderSeqNum int
	NextTargetSeqNum int
	Connected        bool
	LastSentAt       time.Time
	LastRecvAt       time.Time
}

// StateObserver is notified on every session state transition. It is
// invoked from the session's own dispatcher queue: an observer must
// not block or call back into the Engine synchronously, only hand the
// Snapshot off to something else (a channel, a broadcast hub).
type StateObserver interface {
	OnSessionStateChange(Snapshot)
}

// SetObserver registers the callback invoked on every state
// transition. Not safe to call once Start has been called.
func (e *Engine) SetObserver(obs StateObserver) { e.observer = obs }

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:        e.SessionID(),
		SenderCompID:     e.cfg.SenderCompID,
		TargetCompID:     e.cfg.TargetCompID,
		State:            e.state,
		NextSenderSeqNum: e.cache.NextSenderSeqNum(),
		NextTargetSeqNum: e.cache.NextTargetSeqNum(),
		Connected:        e.conn != nil,
		LastSentAt:       e.lastSentAt,
		LastRecvAt:       e.lastRecvAt,
	}
}

// Snapshot returns a point-in-time view of this session's state, safe
// to call from outside the session's own dispatcher queue (e.g. the
// admin HTTP handler).
func (e *Engine) Snapshot() Snapshot {
	result := make(chan Snapshot, 1)
	e.disp.Dispatch(e.hash, func() { result <- e.snapshotLocked() })
	return <-result
}
