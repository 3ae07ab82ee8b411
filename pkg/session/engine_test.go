package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/fixgate/pkg/cache"
	"github.com/luxfi/fixgate/pkg/config"
	"github.com/luxfi/fixgate/pkg/dictionary"
	"github.com/luxfi/fixgate/pkg/dispatcher"
	"github.com/luxfi/fixgate/pkg/fixlog"
	"github.com/luxfi/fixgate/pkg/fixmsg"
	"github.com/luxfi/fixgate/pkg/store"
	"github.com/stretchr/testify/require"
)

type recordingDelegate struct {
	messages []*fixmsg.Message
	logons   int
	logouts  int
}

func (d *recordingDelegate) OnMessage(msg *fixmsg.Message) { d.messages = append(d.messages, msg) }
func (d *recordingDelegate) OnLogon()                      { d.logons++ }
func (d *recordingDelegate) OnLogout()                     { d.logouts++ }

// testHarness wires an Engine against a real store/cache and a
// recording delegate, without ever binding a live reactor.Connection —
// send() tolerates a nil connection, so every outbound message a test
// triggers still lands in the store where assertSent can inspect it.
type testHarness struct {
	t        *testing.T
	dict     *dictionary.Dictionary
	engine   *Engine
	store    *store.Store
	cache    *cache.Cache
	delegate *recordingDelegate
	disp     *dispatcher.Dispatcher
}

func newHarness(t *testing.T, role config.SessionType) *testHarness {
	t.Helper()
	dict, err := loadTestDictionary()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "session.fixlog")
	s, data, err := store.Open(path, time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	c := cache.New(s, data)

	disp := dispatcher.New(1)
	t.Cleanup(disp.Stop)
	timer := dispatcher.NewTimer(disp)
	t.Cleanup(timer.Stop)

	cfg := config.Session{
		Name:                 "test",
		Role:                 role,
		BeginString:          "FIX.4.2",
		SenderCompID:         "US",
		TargetCompID:         "THEM",
		ConnectTimeout:       time.Second,
		HeartbeatInterval:    30 * time.Second,
		LogonInterval:        10 * time.Second,
		ReconnectInterval:    10 * time.Second,
		TestRequestThreshold: 2.0,
		SendingTimeThreshold: time.Hour,
	}

	delegate := &recordingDelegate{}
	logFactory := fixlog.NewFactory(nil, 64)
	t.Cleanup(logFactory.Close)

	e := New(dict, cfg, c, s, disp, timer, 50*time.Millisecond, logFactory, delegate)

	return &testHarness{t: t, dict: dict, engine: e, store: s, cache: c, delegate: delegate, disp: disp}
}

// buildRaw constructs a wire-ready message as if sent by the remote
// peer (so SenderCompID/TargetCompID are the harness's TargetCompID/
// SenderCompID) at the given MsgSeqNum, with body fields applied by
// set.
func (h *testHarness) buildRaw(msgType string, seq int, set func(body *fixmsg.FieldMap)) []byte {
	spec := h.dict.MessageSpec(msgType)
	msg := fixmsg.NewMessage(h.dict.Header, spec, h.dict.Trailer)
	msg.Header.SetField(fixmsg.TagBeginString, h.engine.cfg.BeginString, true)
	msg.Header.SetField(fixmsg.TagMsgType, msgType, true)
	msg.Header.SetInt(fixmsg.TagMsgSeqNum, seq, true)
	msg.Header.SetField(fixmsg.TagSenderCompID, h.engine.cfg.TargetCompID, true)
	msg.Header.SetField(fixmsg.TagTargetCompID, h.engine.cfg.SenderCompID, true)
	msg.Header.SetUTCTimestamp(fixmsg.TagSendingTime, time.Now(), true)
	if set != nil {
		set(msg.Body)
	}
	return h.dict.Serialize(msg)
}

// sentMsgTypes returns the MsgType of every message this session has
// stored as sent, in sequence order.
func (h *testHarness) sentMsgTypes() []string {
	var out []string
	for _, m := range h.store.Messages() {
		msg, err := h.dict.Parse(m.Bytes, dictionary.DefaultParseOptions())
		require.NoError(h.t, err)
		out = append(out, msg.MsgType())
	}
	return out
}

func TestLogonHandshakeAsAcceptor(t *testing.T) {
	h := newHarness(t, config.Acceptor)

	raw := h.buildRaw("A", 1, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagEncryptMethod, 0, true)
		b.SetInt(fixmsg.TagHeartBtInt, 30, true)
	})
	h.engine.handleRaw(raw)

	require.Equal(t, StateReady, h.engine.state)
	require.Equal(t, 1, h.delegate.logons)
	require.Equal(t, []string{"A"}, h.sentMsgTypes())
	require.Equal(t, 2, h.cache.NextTargetSeqNum())
	require.Equal(t, 2, h.cache.NextSenderSeqNum())
}

func TestHeartbeatTestRequestHeartbeatCycle(t *testing.T) {
	h := newHarness(t, config.Acceptor)
	h.engine.handleRaw(h.buildRaw("A", 1, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagEncryptMethod, 0, true)
		b.SetInt(fixmsg.TagHeartBtInt, 30, true)
	}))
	require.Equal(t, StateReady, h.engine.state)

	testReqID := h.engine.sendTestRequest()
	h.engine.setState(StateTestRequest)
	require.Equal(t, StateTestRequest, h.engine.state)

	h.engine.handleRaw(h.buildRaw("0", 2, func(b *fixmsg.FieldMap) {
		b.SetString(fixmsg.TagTestReqID, testReqID, true)
	}))
	require.Equal(t, StateReady, h.engine.state)
	require.Equal(t, "", h.engine.outstandingTestReqID)
}

func TestResendRequestWithSessionMessageGapReplacedByGapFill(t *testing.T) {
	h := newHarness(t, config.Acceptor)
	h.engine.handleRaw(h.buildRaw("A", 1, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagEncryptMethod, 0, true)
		b.SetInt(fixmsg.TagHeartBtInt, 30, true)
	}))
	require.Equal(t, StateReady, h.engine.state)

	h.engine.sendHeartbeat("")
	h.engine.sendHeartbeat("")

	before := h.sentMsgTypes()
	heartbeatsBefore := countType(before, "0")

	h.engine.serviceResendRequest(1, 0)

	after := h.sentMsgTypes()
	require.Contains(t, after, "4")
	require.Equal(t, heartbeatsBefore, countType(after, "0"),
		"bare Heartbeat must never be replayed verbatim, only gap-filled")
}

func countType(types []string, want string) int {
	n := 0
	for _, t := range types {
		if t == want {
			n++
		}
	}
	return n
}

func TestInboundGapEnqueuesAndRequestsResend(t *testing.T) {
	h := newHarness(t, config.Acceptor)
	h.engine.handleRaw(h.buildRaw("A", 1, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagEncryptMethod, 0, true)
		b.SetInt(fixmsg.TagHeartBtInt, 30, true)
	}))

	h.engine.handleRaw(h.buildRaw("0", 5, nil))

	require.Equal(t, 2, h.cache.NextTargetSeqNum())
	require.Equal(t, []int{5}, h.cache.QueuedSeqNums())
	require.Contains(t, h.sentMsgTypes(), "2")
}

func TestInboundGapFillsOnLateArrival(t *testing.T) {
	h := newHarness(t, config.Acceptor)
	h.engine.handleRaw(h.buildRaw("A", 1, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagEncryptMethod, 0, true)
		b.SetInt(fixmsg.TagHeartBtInt, 30, true)
	}))

	h.engine.handleRaw(h.buildRaw("0", 3, nil))
	h.engine.handleRaw(h.buildRaw("0", 2, nil))

	require.Equal(t, 4, h.cache.NextTargetSeqNum())
	require.Empty(t, h.cache.QueuedSeqNums())
}

func TestSequenceResetLoweringSeqIsRejected(t *testing.T) {
	h := newHarness(t, config.Acceptor)
	h.engine.handleRaw(h.buildRaw("A", 1, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagEncryptMethod, 0, true)
		b.SetInt(fixmsg.TagHeartBtInt, 30, true)
	}))

	h.engine.handleRaw(h.buildRaw("4", 2, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagNewSeqNo, 1, true)
	}))

	require.Contains(t, h.sentMsgTypes(), "3")
	require.Equal(t, 2, h.cache.NextTargetSeqNum())
}

func TestSequenceResetGapFillAdvancesTarget(t *testing.T) {
	h := newHarness(t, config.Acceptor)
	h.engine.handleRaw(h.buildRaw("A", 1, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagEncryptMethod, 0, true)
		b.SetInt(fixmsg.TagHeartBtInt, 30, true)
	}))

	h.engine.handleRaw(h.buildRaw("4", 2, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagNewSeqNo, 5, true)
		b.SetBool(fixmsg.TagGapFillFlag, true, true)
	}))

	require.Equal(t, 5, h.cache.NextTargetSeqNum())
}

func TestMsgSeqNumTooLowWithoutPosDupTriggersFatalLogout(t *testing.T) {
	h := newHarness(t, config.Acceptor)
	h.engine.handleRaw(h.buildRaw("A", 1, func(b *fixmsg.FieldMap) {
		b.SetInt(fixmsg.TagEncryptMethod, 0, true)
		b.SetInt(fixmsg.TagHeartBtInt, 30, true)
	}))
	require.Equal(t, StateReady, h.engine.state)

	h.engine.handleRaw(h.buildRaw("0", 1, nil))

	require.Equal(t, StateKilling, h.engine.state)
	require.Contains(t, h.sentMsgTypes(), "5")
}
