package session

import "fmt"

// RejectReason mirrors a subset of the standard FIX
// SessionRejectReason(373) values. The engine itself sends
// RequiredTagMissing, IncorrectValueForTag and SendingTimeProblem.
type RejectReason int

const (
	RejectInvalidTagNumber      RejectReason = 0
	RejectRequiredTagMissing    RejectReason = 1
	RejectIncorrectValueForTag  RejectReason = 5
	RejectIncorrectDataFormat   RejectReason = 6
	RejectSendingTimeProblem    RejectReason = 10
	RejectInvalidMsgType        RejectReason = 11
)

func (r RejectReason) String() string {
	switch r {
	case RejectInvalidTagNumber:
		return "InvalidTagNumber"
	case RejectRequiredTagMissing:
		return "RequiredTagMissing"
	case RejectIncorrectValueForTag:
		return "IncorrectValueForTag"
	case RejectIncorrectDataFormat:
		return "IncorrectDataFormat"
	case RejectSendingTimeProblem:
		return "SendingTimeProblem"
	case RejectInvalidMsgType:
		return "InvalidMsgType"
	default:
		return "Unknown"
	}
}

// ProtocolError is a session-level violation that always produces a
// fatal logout: sequence number below expected with no PosDup,
// CompID mismatch, or an unexpected MsgType for the current state.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("protocol error: %s", e.Reason) }

func newProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// SessionRejectError is a malformed-but-recoverable application-level
// field problem: the session emits a Reject(3) referencing the
// offending MsgSeqNum and reason, and may or may not also trigger a
// clean logout depending on the rule that raised it.
type SessionRejectError struct {
	Reason    RejectReason
	RefSeqNum int
	RefTagID  int
	Text      string
}

func (e *SessionRejectError) Error() string {
	return fmt.Sprintf("session reject: %s (refSeqNum=%d): %s", e.Reason, e.RefSeqNum, e.Text)
}
