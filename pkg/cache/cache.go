// Package cache wraps a store.Store with the in-memory sequence-number
// bookkeeping a live session actually operates against on every
// message (§4.4): the store itself only knows how to append and
// replay records, and is too slow to consult synchronously on the hot
// path of checking "is this the next expected sequence number".
package cache

import (
	"sort"
	"sync"

	"github.com/luxfi/fixgate/pkg/store"
)

// Cache is the live, in-memory counterpart of a session's on-disk
// Store: current sender/target sequence numbers, and inbound messages
// that arrived ahead of the next expected sequence number, held until
// the gap is filled or a resend request gives up on them.
type Cache struct {
	mu sync.Mutex

	store *store.Store

	nextSenderSeqNum int
	nextTargetSeqNum int

	// queue holds inbound messages keyed by sequence number, received
	// out of order and waiting for nextTargetSeqNum to catch up to
	// them.
	queue map[int][]byte
}

// New wraps an already-open Store, seeding sequence counters from its
// replayed SessionData.
func New(s *store.Store, data *store.SessionData) *Cache {
	c := &Cache{
		store:            s,
		nextSenderSeqNum: 1,
		nextTargetSeqNum: 1,
		queue:            make(map[int][]byte),
	}
	if data != nil {
		if data.HasSenderSeqNum {
			c.nextSenderSeqNum = int(data.SenderSeqNum)
		}
		if data.HasTargetSeqNum {
			c.nextTargetSeqNum = int(data.TargetSeqNum)
		}
	}
	return c
}

// NextSenderSeqNum returns the sequence number the next outbound
// message must use.
func (c *Cache) NextSenderSeqNum() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextSenderSeqNum
}

// NextTargetSeqNum returns the sequence number the next inbound
// message is expected to carry.
func (c *Cache) NextTargetSeqNum() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextTargetSeqNum
}

// RecordSent persists an outbound message and advances
// nextSenderSeqNum past it, checkpointing the new value to the store.
// seq must equal the value NextSenderSeqNum returned before the
// message was serialized.
func (c *Cache) RecordSent(seq int, wire []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.StoreMessage(uint32(seq), wire); err != nil {
		return err
	}
	if seq >= c.nextSenderSeqNum {
		c.nextSenderSeqNum = seq + 1
	}
	return c.store.SetSenderSeqNum(uint32(c.nextSenderSeqNum))
}

// AcceptInOrder persists an inbound message known to already be at
// nextTargetSeqNum and advances the counter, then drains any messages
// already queued that are now contiguous with it and checkpoints the
// resulting counter to the store.
func (c *Cache) AcceptInOrder(seq int, wire []byte) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.StoreReceivedMessage(uint32(seq), wire); err != nil {
		return nil, err
	}
	c.nextTargetSeqNum = seq + 1
	drained := c.drainLocked()
	return drained, c.store.SetTargetSeqNum(uint32(c.nextTargetSeqNum))
}

// Enqueue holds an inbound message that arrived ahead of
// nextTargetSeqNum, to be returned by a later AcceptInOrder call once
// the gap closes.
func (c *Cache) Enqueue(seq int, wire []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue[seq] = wire
}

// drainLocked returns, in sequence order, every queued message that is
// now contiguous with nextTargetSeqNum, advancing the counter past
// each one and removing it from the queue.
func (c *Cache) drainLocked() [][]byte {
	var out [][]byte
	for {
		wire, ok := c.queue[c.nextTargetSeqNum]
		if !ok {
			break
		}
		out = append(out, wire)
		delete(c.queue, c.nextTargetSeqNum)
		c.nextTargetSeqNum++
	}
	return out
}

// QueuedSeqNums returns the sequence numbers currently held in the
// reorder queue, sorted ascending, for diagnostics and resend-request
// gap sizing.
func (c *Cache) QueuedSeqNums() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.queue))
	for seq := range c.queue {
		out = append(out, seq)
	}
	sort.Ints(out)
	return out
}

// Reset resets both sequence counters to 1, persists the reset to the
// store, and drops the reorder queue.
func (c *Cache) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Reset(); err != nil {
		return err
	}
	c.nextSenderSeqNum = 1
	c.nextTargetSeqNum = 1
	c.queue = make(map[int][]byte)
	return nil
}

// SetNextTargetSeqNum forces the expected inbound sequence number,
// used to apply a gap-fill SequenceReset, persisting the new value so
// a restart does not replay past it.
func (c *Cache) SetNextTargetSeqNum(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SetTargetSeqNum(uint32(n)); err != nil {
		return err
	}
	c.nextTargetSeqNum = n
	for seq := range c.queue {
		if seq < n {
			delete(c.queue, seq)
		}
	}
	return nil
}

// MessagesBetween replays persisted outbound messages with sequence
// numbers in [begin, end] (end == 0 means "through the latest"), for
// servicing a ResendRequest.
func (c *Cache) MessagesBetween(begin, end int, all []store.StoredMessage) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, m := range all {
		if int(m.Seq) < begin {
			continue
		}
		if end != 0 && int(m.Seq) > end {
			continue
		}
		out = append(out, m.Bytes)
	}
	return out
}
