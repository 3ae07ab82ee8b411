package fixlog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu    *sync.Mutex
	lines *[]string
}

func newRecordingLogger() (*recordingLogger, *[]string) {
	lines := &[]string{}
	return &recordingLogger{mu: &sync.Mutex{}, lines: lines}, lines
}

func (r *recordingLogger) record(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.lines = append(*r.lines, level+":"+msg)
}

func (r *recordingLogger) Info(msg string, args ...interface{})  { r.record("INFO", msg) }
func (r *recordingLogger) Error(msg string, args ...interface{}) { r.record("ERROR", msg) }
func (r *recordingLogger) Warn(msg string, args ...interface{})  { r.record("WARN", msg) }
func (r *recordingLogger) Debug(msg string, args ...interface{}) { r.record("DEBUG", msg) }
func (r *recordingLogger) Trace(msg string, args ...interface{}) { r.record("TRACE", msg) }
func (r *recordingLogger) Fatal(msg string, fields ...log.Field) { r.record("FATAL", msg) }
func (r *recordingLogger) Crit(msg string, args ...interface{})  { r.record("CRIT", msg) }
func (r *recordingLogger) Verbo(msg string, fields ...log.Field) { r.record("VERBO", msg) }
func (r *recordingLogger) With(ctx ...interface{}) log.Logger    { return r }
func (r *recordingLogger) New(ctx ...interface{}) log.Logger     { return r }
func (r *recordingLogger) Log(level slog.Level, msg string, ctx ...interface{}) {
	r.record("LOG", msg)
}
func (r *recordingLogger) WriteLog(level slog.Level, msg string, attrs ...any) {
	r.record("LOG", msg)
}
func (r *recordingLogger) Enabled(ctx context.Context, level slog.Level) bool { return true }
func (r *recordingLogger) Handler() slog.Handler                              { return nil }
func (r *recordingLogger) WithFields(fields ...log.Field) log.Logger {
	return r
}
func (r *recordingLogger) WithOptions(opts ...log.Option) log.Logger { return r }
func (r *recordingLogger) SetLevel(level slog.Level)                 {}
func (r *recordingLogger) GetLevel() slog.Level                      { return slog.LevelInfo }
func (r *recordingLogger) EnabledLevel(lvl slog.Level) bool          { return true }
func (r *recordingLogger) StopOnPanic()                              {}
func (r *recordingLogger) RecoverAndPanic(f func())                  { f() }
func (r *recordingLogger) RecoverAndExit(f, exit func())             { f() }
func (r *recordingLogger) Stop()                                     {}
func (r *recordingLogger) Write(p []byte) (n int, err error)         { return len(p), nil }

var _ io.Writer = (*recordingLogger)(nil)

func TestEventDispatchesToUnderlyingLevel(t *testing.T) {
	sink, lines := newRecordingLogger()
	f := NewFactory(sink, 16)
	l := f.For("CLIENT", "EXCHANGE")

	l.Event(LevelInfo, "session established")
	l.Event(LevelWarn, "heartbeat overdue")
	l.Event(LevelError, "sequence gap detected")
	f.Close()

	require.Equal(t, []string{
		"INFO:session established",
		"WARN:heartbeat overdue",
		"ERROR:sequence gap detected",
	}, *lines)
}

func TestIncomingOutgoingLogged(t *testing.T) {
	sink, lines := newRecordingLogger()
	f := NewFactory(sink, 16)
	l := f.For("CLIENT", "EXCHANGE")

	l.Incoming("8=FIX.4.2|35=A|")
	l.Outgoing("8=FIX.4.2|35=0|")
	f.Close()

	require.Equal(t, []string{"INFO:<-", "INFO:->"}, *lines)
}
