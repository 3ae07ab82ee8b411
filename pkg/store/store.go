// Package store implements the append-only message log each FIX
// session is backed by (§4.3): every sent/received message and every
// sequence-number checkpoint is appended as one binary record, so
// a session can be fully replayed from disk after a restart.
package store

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"github.com/luxfi/log"
)

// SessionData is the result of replaying a log file: every outbound
// and inbound Msg record in sequence order plus the last-seen sender/
// target sequence numbers. Messages holds what this side sent (the
// only history a resend request ever needs); ReceivedMessages holds
// what the peer sent, kept for audit/diagnostics.
type SessionData struct {
	Messages         []StoredMessage
	ReceivedMessages []StoredMessage
	SenderSeqNum     uint32
	TargetSeqNum     uint32
	HasSenderSeqNum  bool
	HasTargetSeqNum  bool
}

// StoredMessage is one replayed Msg record.
type StoredMessage struct {
	Seq   uint32
	Bytes []byte
}

// Store is a single session's append-only log. Writes are buffered in
// memory and flushed to disk by a background goroutine (grounded on
// the ticker-driven snapshot worker pattern used elsewhere in this
// codebase) rather than fsynced inline, trading a small replay window
// on crash for write-path latency that does not block the session
// thread.
type Store struct {
	path string
	log  log.Logger

	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer

	flushInterval time.Duration
	dirty         bool
	stopCh        chan struct{}
	stoppedCh     chan struct{}

	// messages mirrors every outbound Msg record ever appended this run
	// (seeded from replay), so a resend request can be serviced without
	// a second pass over the log file.
	messages []StoredMessage
}

// Open opens (creating if necessary) the log file at path and replays
// it to recover SessionData. The returned Store is ready to accept
// further writes appended after the replayed content.
func Open(path string, flushInterval time.Duration, logger log.Logger) (*Store, *SessionData, error) {
	if logger == nil {
		logger = log.NewLogger("store")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, nil, newStoreError("open", "%v", err)
	}

	data, err := replay(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, nil, newStoreError("open", "seek to end: %v", err)
	}

	s := &Store{
		path:          path,
		log:           logger.WithFields(log.String("component", "store"), log.String("path", path)),
		file:          f,
		w:             bufio.NewWriter(f),
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
		messages:      append([]StoredMessage{}, data.Messages...),
	}
	go s.flushLoop()
	return s, data, nil
}

// replay reads every record in f from the start and folds it into a
// SessionData. A StoreLoadError aborts the whole load: a session's log
// is either entirely trustworthy or not recovered from at all.
func replay(f *os.File) (*SessionData, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, newStoreError("load", "seek to start: %v", err)
	}
	r := bufio.NewReader(f)
	data := &SessionData{}
	var offset int64

	for {
		rec, n, err := decodeRecord(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, newLoadError(offset, "%v", err)
		}
		offset += n

		switch {
		case rec.IsOutboundMsg():
			data.Messages = append(data.Messages, StoredMessage{Seq: rec.Seq, Bytes: rec.Bytes})
		case rec.IsInboundMsg():
			data.ReceivedMessages = append(data.ReceivedMessages, StoredMessage{Seq: rec.Seq, Bytes: rec.Bytes})
		case rec.IsSenderSeqNum():
			data.SenderSeqNum = rec.Seq
			data.HasSenderSeqNum = true
		case rec.IsTargetSeqNum():
			data.TargetSeqNum = rec.Seq
			data.HasTargetSeqNum = true
		}
	}
	return data, nil
}

// StoreMessage appends an outbound Msg record at the given sequence
// number. This is the history a resend request replays.
func (s *Store) StoreMessage(seq uint32, msg []byte) error {
	if err := s.append(encodeMsg(tagMsg, seq, msg)); err != nil {
		return err
	}
	s.mu.Lock()
	s.messages = append(s.messages, StoredMessage{Seq: seq, Bytes: msg})
	s.mu.Unlock()
	return nil
}

// StoreReceivedMessage appends an inbound Msg record at the given
// sequence number, kept for audit/diagnostics only; nothing in this
// package replays it.
func (s *Store) StoreReceivedMessage(seq uint32, msg []byte) error {
	return s.append(encodeMsg(tagMsgIn, seq, msg))
}

// Messages returns every outbound Msg record appended this run, in
// append order (oldest first, including those recovered by replay at
// Open time).
func (s *Store) Messages() []StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoredMessage{}, s.messages...)
}

// SetSenderSeqNum and SetTargetSeqNum append a sequence-number record
// holding the new next-expected value; replay keeps the last one of
// each, so the counters survive a restart.
func (s *Store) SetSenderSeqNum(n uint32) error { return s.append(encodeSenderSeqNum(n)) }
func (s *Store) SetTargetSeqNum(n uint32) error { return s.append(encodeTargetSeqNum(n)) }

func (s *Store) append(rec []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(rec); err != nil {
		return newStoreError("append", "%v", err)
	}
	s.dirty = true
	return nil
}

// Flush forces any buffered writes out to the underlying file.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if !s.dirty {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return newStoreError("flush", "%v", err)
	}
	s.dirty = false
	return nil
}

func (s *Store) flushLoop() {
	defer close(s.stoppedCh)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.log.Warn("periodic flush failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// Reset truncates the log to empty, discarding all recorded history.
// Used when a session's sequence numbers are reset to 1 and the prior
// message history is no longer meaningful to keep.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Reset(s.file)
	if err := s.file.Truncate(0); err != nil {
		return newStoreError("reset", "%v", err)
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return newStoreError("reset", "%v", err)
	}
	s.dirty = false
	s.messages = nil
	return nil
}

// Close flushes and closes the underlying file, stopping the
// background flush loop first.
func (s *Store) Close() error {
	close(s.stopCh)
	<-s.stoppedCh
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flushLocked(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return newStoreError("close", "%v", err)
	}
	return nil
}
