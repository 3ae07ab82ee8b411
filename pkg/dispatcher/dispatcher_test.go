package dispatcher

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatchPreservesOrderPerHash(t *testing.T) {
	d := New(4)
	defer d.Stop()

	var mu sync.Mutex
	var out []int
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		n := i
		d.Dispatch(1, func() {
			mu.Lock()
			out = append(out, n)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	for i, v := range out {
		require.Equal(t, i, v)
	}
}

func TestDispatchFansOutAcrossHashes(t *testing.T) {
	d := New(4)
	defer d.Stop()

	var counter int64
	var wg sync.WaitGroup
	wg.Add(100)
	for i := 0; i < 100; i++ {
		h := d.HashString("session-" + string(rune('A'+i%4)))
		d.Dispatch(h, func() {
			atomic.AddInt64(&counter, 1)
			wg.Done()
		})
	}
	wg.Wait()
	require.Equal(t, int64(100), atomic.LoadInt64(&counter))
}

func TestTimerAfterFires(t *testing.T) {
	d := New(1)
	defer d.Stop()
	tm := NewTimer(d)
	defer tm.Stop()

	done := make(chan struct{})
	tm.After(10*time.Millisecond, 0, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestTimerEraseStopsRepeatingCallback(t *testing.T) {
	d := New(1)
	defer d.Stop()
	tm := NewTimer(d)
	defer tm.Stop()

	var count int64
	id := tm.Every(5*time.Millisecond, 0, func() { atomic.AddInt64(&count, 1) })
	time.Sleep(30 * time.Millisecond)
	tm.Erase(id)
	seenAtErase := atomic.LoadInt64(&count)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, seenAtErase, atomic.LoadInt64(&count))
	require.Greater(t, seenAtErase, int64(0))
}
