// Package session implements the per-connection FIX session state
// machine (§4.6): sequence-number discipline, the Logon/Logout/
// Heartbeat/TestRequest/ResendRequest/SequenceReset/Reject handlers,
// and the periodic tick that drives reconnect/heartbeat/test-request
// timing. Every method that touches session state is only ever called
// from the session's own dispatcher queue, so none of it takes a
// lock.
package session

// State is one of the five phases a session can be in.
type State int

const (
	// StateLogon: no active connection, or connected but not yet
	// logged on. Initiator periodically sends Logon; acceptor waits.
	StateLogon State = iota
	// StateReady: both sides logged on; normal message flow.
	StateReady
	// StateTestRequest: heartbeat threshold exceeded, TestRequest
	// sent, awaiting its Heartbeat echo.
	StateTestRequest
	// StateLogout: clean Logout sent, awaiting the peer's Logout.
	StateLogout
	// StateKilling: terminal Logout being sent; disconnect once its
	// bytes are flushed.
	StateKilling
)

func (s State) String() string {
	switch s {
	case StateLogon:
		return "LOGON"
	case StateReady:
		return "READY"
	case StateTestRequest:
		return "TEST_REQUEST"
	case StateLogout:
		return "LOGOUT"
	case StateKilling:
		return "KILLING"
	default:
		return "UNKNOWN"
	}
}
