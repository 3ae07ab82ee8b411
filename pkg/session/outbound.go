package session

import (
	"strconv"
	"time"

	"github.com/luxfi/fixgate/pkg/dictionary"
	"github.com/luxfi/fixgate/pkg/fixlog"
	"github.com/luxfi/fixgate/pkg/fixmsg"
	"github.com/luxfi/fixgate/pkg/metrics"
)

// newOutboundMessage builds an empty Message for msgType bound to this
// session's dictionary schemas, with BeginString/MsgType/SenderCompID/
// TargetCompID/SendingTime already stamped. MsgSeqNum and BodyLength/
// CheckSum are stamped by send, not here, since MsgSeqNum must be
// assigned at the last possible moment to keep the sender sequence
// strictly monotonic even under concurrent tick/handler activity on
// this session's own dispatcher queue.
func (e *Engine) newOutboundMessage(msgType string) *fixmsg.Message {
	spec := e.dict.MessageSpec(msgType)
	msg := fixmsg.NewMessage(e.dict.Header, spec, e.dict.Trailer)
	msg.Header.SetField(fixmsg.TagBeginString, e.cfg.BeginString, true)
	msg.Header.SetField(fixmsg.TagMsgType, msgType, true)
	msg.Header.SetField(fixmsg.TagSenderCompID, e.cfg.SenderCompID, true)
	msg.Header.SetField(fixmsg.TagTargetCompID, e.cfg.TargetCompID, true)
	msg.Header.SetUTCTimestamp(fixmsg.TagSendingTime, time.Now(), true)
	return msg
}

// send stamps MsgSeqNum, serializes, persists and writes msg, updating
// lastSentAt and metrics once the bytes are queued. This is the only
// path that advances nextSenderSeqNum, so every outbound message -
// application or session-level - must go through it.
func (e *Engine) send(msg *fixmsg.Message) {
	seq := e.cache.NextSenderSeqNum()
	msg.Header.SetInt(fixmsg.TagMsgSeqNum, seq, true)
	wire := e.dict.Serialize(msg)

	if err := e.cache.RecordSent(seq, wire); err != nil {
		e.log.Event(fixlog.LevelError, "store failure recording sent message", "error", err.Error())
		return
	}

	if e.conn == nil {
		e.log.Event(fixlog.LevelWarn, "dropping outbound message, no connection", "msgType", msg.MsgType())
		return
	}

	msgType := msg.MsgType()
	e.conn.Send(wire, func(err error) {
		if err != nil {
			e.disp.Dispatch(e.hash, func() {
				e.log.Event(fixlog.LevelWarn, "write failed", "error", err.Error())
			})
		}
	})
	e.lastSentAt = time.Now()
	metrics.MessagesSent.WithLabelValues(e.sessionLabel, msgType).Inc()
	e.log.Outgoing(dictionary.Display(msg, '|'))
}

func (e *Engine) sendLogon() {
	msg := e.newOutboundMessage("A")
	msg.Body.SetInt(fixmsg.TagEncryptMethod, 0, true)
	msg.Body.SetInt(fixmsg.TagHeartBtInt, int(e.cfg.HeartbeatInterval/time.Second), true)
	if e.cfg.ResetSeqNumOnLogon {
		msg.Body.SetBool(fixmsg.TagResetSeqNumFlag, true, true)
	}
	if e.cfg.TestSession {
		msg.Header.SetBool(fixmsg.TagTestMessageIndicator, true, true)
	}
	e.lastLogonAttempt = time.Now()
	e.send(msg)
}

// sendLogout sends a Logout, optionally carrying reason as tag 58, and
// records when it was sent so the periodic tick can force-disconnect a
// peer that never answers.
func (e *Engine) sendLogout(reason string) {
	msg := e.newOutboundMessage("5")
	if reason != "" {
		msg.Body.SetString(fixmsg.TagText, reason, true)
	}
	e.logoutSentAt = time.Now()
	e.send(msg)
}

// cleanLogout sends a Logout carrying reason and transitions to
// StateLogout to await the peer's own Logout, as opposed to
// fatalLogout's immediate move to StateKilling.
func (e *Engine) cleanLogout(reason string) {
	e.sendLogout(reason)
	e.setState(StateLogout)
}

func (e *Engine) sendHeartbeat(testReqID string) {
	msg := e.newOutboundMessage("0")
	if testReqID != "" {
		msg.Body.SetString(fixmsg.TagTestReqID, testReqID, true)
	}
	e.send(msg)
}

func (e *Engine) sendTestRequest() string {
	e.testReqSeq++
	testReqID := e.sessionLabel + "-" + strconv.Itoa(e.testReqSeq)
	msg := e.newOutboundMessage("1")
	msg.Body.SetString(fixmsg.TagTestReqID, testReqID, true)
	e.outstandingTestReqID = testReqID
	e.send(msg)
	return testReqID
}

func (e *Engine) sendReject(ref *fixmsg.Message, reason RejectReason, refTagID int, text string) {
	refSeq, _ := ref.MsgSeqNum()
	msg := e.newOutboundMessage("3")
	msg.Body.SetInt(fixmsg.TagRefSeqNum, refSeq, true)
	msg.Body.SetString(fixmsg.TagRefMsgType, ref.MsgType(), true)
	msg.Body.SetInt(fixmsg.TagSessionRejectReason, int(reason), true)
	if refTagID != 0 {
		msg.Body.SetInt(fixmsg.TagRefTagID, refTagID, true)
	}
	if text != "" {
		msg.Body.SetString(fixmsg.TagText, text, true)
	}
	metrics.RejectedMessages.WithLabelValues(e.sessionLabel, reason.String()).Inc()
	e.send(msg)
}

func (e *Engine) sendResendRequestRange(begin, end int) {
	msg := e.newOutboundMessage("2")
	msg.Body.SetInt(fixmsg.TagBeginSeqNo, begin, true)
	msg.Body.SetInt(fixmsg.TagEndSeqNo, end, true)
	metrics.ResendRequests.WithLabelValues(e.sessionLabel, "sent").Inc()
	e.send(msg)
}

// sendSequenceReset sends a SequenceReset. gapFill distinguishes an
// administrative GapFill (replacing skipped session-level messages
// during a resend) from a hard reset of the outbound sequence number.
func (e *Engine) sendSequenceReset(newSeqNo int, gapFill bool) {
	msg := e.newOutboundMessage("4")
	msg.Body.SetInt(fixmsg.TagNewSeqNo, newSeqNo, true)
	msg.Body.SetBool(fixmsg.TagGapFillFlag, gapFill, true)
	e.send(msg)
}

// serviceResendRequest replays persisted outbound messages in
// [begin, end] (end == 0 meaning through the latest message sent),
// replacing any session-level message in the range with a single
// GapFill SequenceReset rather than literally resending it, per the
// GLOSSARY definition of gap fill.
func (e *Engine) serviceResendRequest(begin, end int) {
	msgs := e.cache.MessagesBetween(begin, end, e.store.Messages())

	gapStart := 0
	flushGap := func(upTo int) {
		if gapStart != 0 {
			e.sendSequenceReset(upTo, true)
			gapStart = 0
		}
	}

	for _, wire := range msgs {
		msg, err := e.dict.Parse(wire, e.parseOptions())
		if err != nil {
			continue
		}
		seq, _ := msg.MsgSeqNum()
		if sessionLevelTypes[msg.MsgType()] {
			if gapStart == 0 {
				gapStart = seq
			}
			continue
		}
		flushGap(seq)
		e.resendVerbatim(msg)
	}
	flushGap(e.cache.NextSenderSeqNum())
}

// resendVerbatim re-transmits msg exactly as originally sent (same
// MsgSeqNum, PossDupFlag=Y, OrigSendingTime carrying its original
// SendingTime) rather than routing it through send, which would assign
// a fresh sequence number.
func (e *Engine) resendVerbatim(msg *fixmsg.Message) {
	if origSendingTime, err := msg.Header.GetField(fixmsg.TagSendingTime); err == nil {
		msg.Header.SetField(fixmsg.TagOrigSendingTime, origSendingTime, true)
	}
	msg.Header.SetBool(fixmsg.TagPosDupFlag, true, true)
	msg.Header.SetUTCTimestamp(fixmsg.TagSendingTime, time.Now(), true)
	wire := e.dict.Serialize(msg)
	if e.conn != nil {
		e.conn.Send(wire, func(err error) {
			if err != nil {
				e.disp.Dispatch(e.hash, func() {
					e.log.Event(fixlog.LevelWarn, "resend write failed", "error", err.Error())
				})
			}
		})
	}
	metrics.MessagesSent.WithLabelValues(e.sessionLabel, msg.MsgType()+":resend").Inc()
}

