// Package fixlog is the session-facing logging layer on top of
// github.com/luxfi/log (§4.8): every session gets a child logger
// carrying its SenderCompID/TargetCompID as fields, and every message
// in or out is logged on a shared background writer goroutine so a
// slow log sink never adds latency to the session thread that
// actually moves bytes.
package fixlog

import (
	"sync"

	"github.com/luxfi/log"
)

// entry is one queued log line, captured as a thunk so the writer
// goroutine — not the caller — pays for formatting.
type entry func(log.Logger)

// Factory creates per-session Loggers sharing one background writer
// goroutine and one underlying sink.
type Factory struct {
	sink log.Logger

	queue  chan entry
	wg     sync.WaitGroup
	closed chan struct{}
}

// NewFactory starts the shared background writer over sink, buffering
// up to queueSize pending log entries before Event/Incoming/Outgoing calls
// start blocking.
func NewFactory(sink log.Logger, queueSize int) *Factory {
	if sink == nil {
		sink = log.NewLogger("fixgate")
	}
	f := &Factory{
		sink:   sink,
		queue:  make(chan entry, queueSize),
		closed: make(chan struct{}),
	}
	f.wg.Add(1)
	go f.run()
	return f
}

func (f *Factory) run() {
	defer f.wg.Done()
	for e := range f.queue {
		e(f.sink)
	}
}

// For returns a Logger scoped to one session, tagging every line with
// sender/target CompID.
func (f *Factory) For(senderCompID, targetCompID string) *Logger {
	return &Logger{
		factory:      f,
		senderCompID: senderCompID,
		targetCompID: targetCompID,
	}
}

// Close stops accepting new entries and waits for the queue to drain.
func (f *Factory) Close() {
	close(f.queue)
	f.wg.Wait()
}

// Logger is a session-scoped handle onto a Factory's shared writer.
type Logger struct {
	factory      *Factory
	senderCompID string
	targetCompID string
}

func (l *Logger) scoped(base log.Logger) log.Logger {
	return base.WithFields(log.String("sender", l.senderCompID), log.String("target", l.targetCompID))
}

// Event logs a session-lifecycle line (state transitions, errors,
// connect/disconnect) at the given level.
func (l *Logger) Event(level Level, msg string, fields ...interface{}) {
	l.enqueue(func(base log.Logger) {
		logger := l.scoped(base)
		switch level {
		case LevelDebug:
			logger.Debug(msg, fields...)
		case LevelWarn:
			logger.Warn(msg, fields...)
		case LevelError:
			logger.Error(msg, fields...)
		default:
			logger.Info(msg, fields...)
		}
	})
}

// Incoming logs a raw inbound message, displayed with '|' in place of
// SOH so it reads as one line.
func (l *Logger) Incoming(display string) {
	l.enqueue(func(base log.Logger) {
		l.scoped(base).Info("<-", "msg", display)
	})
}

// Outgoing logs a raw outbound message, displayed the same way.
func (l *Logger) Outgoing(display string) {
	l.enqueue(func(base log.Logger) {
		l.scoped(base).Info("->", "msg", display)
	})
}

func (l *Logger) enqueue(e entry) {
	l.factory.queue <- e
}

// Level selects severity for Logger.Event.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)
