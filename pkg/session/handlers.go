package session

import (
	"time"

	"github.com/luxfi/fixgate/pkg/config"
	"github.com/luxfi/fixgate/pkg/dictionary"
	"github.com/luxfi/fixgate/pkg/fixlog"
	"github.com/luxfi/fixgate/pkg/fixmsg"
	"github.com/luxfi/fixgate/pkg/metrics"
)

// sessionLevelTypes are skipped (replaced by GapFill) when servicing
// a ResendRequest, per the GLOSSARY definition.
var sessionLevelTypes = map[string]bool{
	"0": true, // Heartbeat
	"1": true, // TestRequest
	"2": true, // ResendRequest
	"3": true, // Reject
	"4": true, // SequenceReset
	"5": true, // Logout
	"A": true, // Logon
}

func (e *Engine) parseOptions() dictionary.ParseOptions {
	return dictionary.ParseOptions{
		Loud:                   true,
		Strict:                 !e.cfg.RelaxedParsing,
		ValidateRequiredFields: e.cfg.ValidateRequiredFields,
	}
}

// handleRaw runs the full §4.6 inbound pipeline on one framed message.
func (e *Engine) handleRaw(raw []byte) {
	msg, err := e.dict.Parse(raw, e.parseOptions())
	if err != nil {
		metrics.ParseErrors.WithLabelValues(e.sessionLabel).Inc()
		e.log.Event(fixlog.LevelWarn, "parse failed, dropping", "error", err.Error())
		return
	}
	e.log.Incoming(dictionary.Display(msg, '|'))
	e.lastRecvAt = time.Now()

	msgType := msg.MsgType()
	metrics.MessagesReceived.WithLabelValues(e.sessionLabel, msgType).Inc()

	if !e.checkFramingIdentity(msg) {
		return
	}
	if !e.checkSendingTime(msg) {
		return
	}
	if !e.checkStateLegalMsgType(msgType) {
		return
	}

	switch msgType {
	case "4": // SequenceReset
		e.onSequenceReset(msg)
		return
	case "A": // Logon
		e.onLogon(msg, raw)
		return
	case "2": // ResendRequest
		e.onResendRequest(msg)
		return
	}

	seq, ok := msg.MsgSeqNum()
	if !ok {
		e.sendReject(msg, RejectRequiredTagMissing, fixmsg.TagMsgSeqNum, "MsgSeqNum missing")
		return
	}
	drained, ok := e.validateSeqNum(msg, seq, raw)
	if !ok {
		return
	}
	e.dispatchByType(msg, msgType)
	e.drainReorderQueue(drained)
}

// checkFramingIdentity implements step 2: BeginString/SenderCompID/
// TargetCompID must match our configuration with the CompIDs flipped.
func (e *Engine) checkFramingIdentity(msg *fixmsg.Message) bool {
	begin, _ := msg.Header.GetField(fixmsg.TagBeginString)
	sender, _ := msg.Header.GetField(fixmsg.TagSenderCompID)
	target, _ := msg.Header.GetField(fixmsg.TagTargetCompID)

	if begin == e.cfg.BeginString && sender == e.cfg.TargetCompID && target == e.cfg.SenderCompID {
		return true
	}
	if e.state == StateLogon {
		e.terminate("framing identity mismatch on Logon")
	} else {
		e.fatalLogout("framing identity mismatch")
	}
	return false
}

// checkSendingTime implements step 3.
func (e *Engine) checkSendingTime(msg *fixmsg.Message) bool {
	t, err := msg.Header.GetUTCTimestamp(fixmsg.TagSendingTime)
	if err != nil {
		e.sendReject(msg, RejectRequiredTagMissing, fixmsg.TagSendingTime, "SendingTime missing or malformed")
		e.fatalLogout("sending time missing")
		return false
	}
	delta := time.Since(t)
	if delta < 0 {
		delta = -delta
	}
	if delta > e.cfg.SendingTimeThreshold {
		e.sendReject(msg, RejectSendingTimeProblem, fixmsg.TagSendingTime, "SendingTime too far from current time")
		e.cleanLogout("sending time problem")
		return false
	}
	return true
}

// checkStateLegalMsgType implements step 4.
func (e *Engine) checkStateLegalMsgType(msgType string) bool {
	switch e.state {
	case StateLogon:
		if msgType != "A" {
			e.fatalLogout("expected Logon, got MsgType=" + msgType)
			return false
		}
	case StateLogout:
		if msgType != "5" && msgType != "2" {
			e.fatalLogout("expected Logout or ResendRequest, got MsgType=" + msgType)
			return false
		}
	}
	return true
}

// validateSeqNum implements step 6. The returned slice holds any
// previously out-of-order messages the store's accept just made
// contiguous, in sequence order, for drainReorderQueue to replay.
func (e *Engine) validateSeqNum(msg *fixmsg.Message, seq int, raw []byte) ([][]byte, bool) {
	expected := e.cache.NextTargetSeqNum()
	switch {
	case seq == expected:
		drained, err := e.cache.AcceptInOrder(seq, raw)
		if err != nil {
			e.log.Event(fixlog.LevelError, "store failure accepting message", "error", err.Error())
		}
		return drained, true
	case seq < expected:
		posDup, _ := msg.Header.GetBool(fixmsg.TagPosDupFlag)
		if !posDup {
			e.fatalLogout("MsgSeqNum too low with no PosDupFlag")
			return nil, false
		}
		return nil, true
	default: // seq > expected
		e.cache.Enqueue(seq, raw)
		e.sendResendRequestRange(expected, seq-1)
		return nil, false
	}
}

// drainReorderQueue implements step 7: messages the last accept made
// contiguous are parsed and handed to dispatchByType in sequence
// order, exactly as if they had just arrived framed from the wire.
func (e *Engine) drainReorderQueue(drained [][]byte) {
	for _, raw := range drained {
		if raw == nil {
			continue
		}
		msg, err := e.dict.Parse(raw, e.parseOptions())
		if err != nil {
			e.log.Event(fixlog.LevelWarn, "parse failed replaying queued message", "error", err.Error())
			continue
		}
		e.dispatchByType(msg, msg.MsgType())
	}
}

func (e *Engine) dispatchByType(msg *fixmsg.Message, msgType string) {
	switch msgType {
	case "5":
		e.onLogout(msg)
	case "0":
		e.onHeartbeat(msg)
	case "1":
		e.onTestRequest(msg)
	case "3":
		e.onReject(msg)
	default:
		e.delegate.OnMessage(msg)
	}
}

// --- message handlers ---

func (e *Engine) onLogon(msg *fixmsg.Message, raw []byte) {
	isTest, _ := msg.Header.GetBool(fixmsg.TagTestMessageIndicator)
	if isTest != e.cfg.TestSession {
		e.cleanLogout("TestMessageIndicator does not match session configuration")
		return
	}

	posDup, _ := msg.Header.GetBool(fixmsg.TagPosDupFlag)
	if posDup {
		if _, err := msg.Header.GetUTCTimestamp(fixmsg.TagOrigSendingTime); err != nil {
			e.sendReject(msg, RejectRequiredTagMissing, fixmsg.TagOrigSendingTime, "OrigSendingTime required when PosDupFlag=Y")
			return
		}
	}

	seq, _ := msg.MsgSeqNum()
	expected := e.cache.NextTargetSeqNum()
	if !posDup && seq < expected {
		e.fatalLogout("Logon MsgSeqNum too low")
		return
	}

	if e.cfg.Role == config.Acceptor {
		if hb, err := msg.Body.GetInt(fixmsg.TagHeartBtInt); err == nil {
			e.cfg.HeartbeatInterval = time.Duration(hb) * time.Second
		}
		e.sendLogon()
	}

	var drained [][]byte
	switch {
	case seq == expected:
		var err error
		drained, err = e.cache.AcceptInOrder(seq, raw)
		if err != nil {
			e.log.Event(fixlog.LevelError, "store failure accepting Logon", "error", err.Error())
		}
	case seq > expected:
		e.cache.Enqueue(seq, nil)
	}

	e.setState(StateReady)
	e.lastRecvAt = time.Now()
	e.delegate.OnLogon()

	if seq > expected {
		e.sendResendRequestRange(expected, 0)
		return
	}
	e.drainReorderQueue(drained)
}

func (e *Engine) onLogout(msg *fixmsg.Message) {
	if e.state == StateLogout {
		e.log.Event(fixlog.LevelInfo, "clean logout complete")
		if e.conn != nil {
			e.conn.Close()
		}
		return
	}
	e.sendLogout("")
	e.setState(StateKilling)
}

func (e *Engine) onHeartbeat(msg *fixmsg.Message) {
	if e.state != StateTestRequest {
		return
	}
	testReqID, err := msg.Body.GetString(fixmsg.TagTestReqID)
	if err == nil && testReqID == e.outstandingTestReqID {
		e.setState(StateReady)
		e.outstandingTestReqID = ""
	}
}

func (e *Engine) onTestRequest(msg *fixmsg.Message) {
	testReqID, _ := msg.Body.GetString(fixmsg.TagTestReqID)
	e.sendHeartbeat(testReqID)
}

func (e *Engine) onResendRequest(msg *fixmsg.Message) {
	begin, _ := msg.Body.GetInt(fixmsg.TagBeginSeqNo)
	end, _ := msg.Body.GetInt(fixmsg.TagEndSeqNo)
	metrics.ResendRequests.WithLabelValues(e.sessionLabel, "received").Inc()
	e.serviceResendRequest(begin, end)
}

func (e *Engine) onSequenceReset(msg *fixmsg.Message) {
	newSeqNo, err := msg.Body.GetInt(fixmsg.TagNewSeqNo)
	if err != nil {
		e.sendReject(msg, RejectRequiredTagMissing, fixmsg.TagNewSeqNo, "NewSeqNo missing")
		return
	}
	seq, _ := msg.MsgSeqNum()
	if newSeqNo <= seq {
		e.sendReject(msg, RejectIncorrectValueForTag, fixmsg.TagNewSeqNo, "Attempt to lower sequence number, invalid value NewSeqNo(36)")
		return
	}

	expected := e.cache.NextTargetSeqNum()
	gapFill, _ := msg.Body.GetBool(fixmsg.TagGapFillFlag)
	if gapFill {
		if seq > expected {
			e.cache.Enqueue(seq, nil)
			e.sendResendRequestRange(expected, seq-1)
			return
		}
	}
	if newSeqNo < expected {
		e.fatalLogout("SequenceReset NewSeqNo below expected target")
		return
	}

	metrics.SequenceResets.WithLabelValues(e.sessionLabel, kindOf(gapFill)).Inc()
	if err := e.cache.SetNextTargetSeqNum(newSeqNo); err != nil {
		e.log.Event(fixlog.LevelError, "failed to persist sequence reset", "error", err.Error())
	}
}

func kindOf(gapFill bool) string {
	if gapFill {
		return "gapfill"
	}
	return "reset"
}

func (e *Engine) onReject(msg *fixmsg.Message) {
	text, _ := msg.Body.GetString(fixmsg.TagText)
	e.log.Event(fixlog.LevelWarn, "received Reject", "text", text)
}
