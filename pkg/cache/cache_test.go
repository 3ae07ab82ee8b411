package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/fixgate/pkg/store"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*store.Store, *store.SessionData) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.fixlog")
	s, data, err := store.Open(path, time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, data
}

func TestFreshCacheStartsAtSeqNumOne(t *testing.T) {
	s, data := openStore(t)
	c := New(s, data)
	require.Equal(t, 1, c.NextSenderSeqNum())
	require.Equal(t, 1, c.NextTargetSeqNum())
}

func TestRecordSentAdvancesSenderSeqNum(t *testing.T) {
	s, data := openStore(t)
	c := New(s, data)

	require.NoError(t, c.RecordSent(1, []byte("msg1")))
	require.Equal(t, 2, c.NextSenderSeqNum())
}

func TestAcceptInOrderDrainsQueuedGap(t *testing.T) {
	s, data := openStore(t)
	c := New(s, data)

	c.Enqueue(3, []byte("three"))
	c.Enqueue(2, []byte("two"))

	drained, err := c.AcceptInOrder(1, []byte("one"))
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("two"), []byte("three")}, drained)
	require.Equal(t, 4, c.NextTargetSeqNum())
	require.Empty(t, c.QueuedSeqNums())
}

func TestAcceptInOrderLeavesNonContiguousQueued(t *testing.T) {
	s, data := openStore(t)
	c := New(s, data)

	c.Enqueue(5, []byte("five"))
	drained, err := c.AcceptInOrder(1, []byte("one"))
	require.NoError(t, err)
	require.Empty(t, drained)
	require.Equal(t, 2, c.NextTargetSeqNum())
	require.Equal(t, []int{5}, c.QueuedSeqNums())
}

func TestResetReturnsToOne(t *testing.T) {
	s, data := openStore(t)
	c := New(s, data)

	require.NoError(t, c.RecordSent(1, []byte("x")))
	_, err := c.AcceptInOrder(1, []byte("y"))
	require.NoError(t, err)

	require.NoError(t, c.Reset())
	require.Equal(t, 1, c.NextSenderSeqNum())
	require.Equal(t, 1, c.NextTargetSeqNum())
}

func TestSetNextTargetSeqNumDropsStaleQueueEntries(t *testing.T) {
	s, data := openStore(t)
	c := New(s, data)

	c.Enqueue(2, []byte("two"))
	c.Enqueue(10, []byte("ten"))

	require.NoError(t, c.SetNextTargetSeqNum(5))
	require.Equal(t, []int{10}, c.QueuedSeqNums())
	require.Equal(t, 5, c.NextTargetSeqNum())
}

func TestMessagesBetweenFiltersRange(t *testing.T) {
	s, data := openStore(t)
	c := New(s, data)
	all := []store.StoredMessage{
		{Seq: 1, Bytes: []byte("a")},
		{Seq: 2, Bytes: []byte("b")},
		{Seq: 3, Bytes: []byte("c")},
	}
	out := c.MessagesBetween(2, 3, all)
	require.Equal(t, [][]byte{[]byte("b"), []byte("c")}, out)

	out = c.MessagesBetween(2, 0, all)
	require.Equal(t, [][]byte{[]byte("b"), []byte("c")}, out)
}
