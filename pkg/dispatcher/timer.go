package dispatcher

import (
	"sync"
	"time"
)

// TimerID identifies a scheduled callback for later cancellation via
// Timer.Erase.
type TimerID uint64

// Timer schedules one-shot and repeating callbacks, each of which is
// run through a Dispatcher queue (selected by the hash supplied at
// scheduling time) rather than directly on the Timer's own goroutine,
// so a session's timer callbacks serialize with its other dispatched
// work instead of racing it.
type Timer struct {
	d *Dispatcher

	mu      sync.Mutex
	entries map[TimerID]*timerEntry
	nextID  TimerID
}

type timerEntry struct {
	timer  *time.Timer
	ticker *time.Ticker
	stopCh chan struct{}
}

// NewTimer creates a Timer whose callbacks are dispatched through d.
func NewTimer(d *Dispatcher) *Timer {
	return &Timer{d: d, entries: make(map[TimerID]*timerEntry)}
}

// After schedules fn to run once after delay elapses, dispatched under
// hash.
func (t *Timer) After(delay time.Duration, hash uint32, fn func()) TimerID {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.mu.Unlock()

	timer := time.AfterFunc(delay, func() {
		t.d.Dispatch(hash, fn)
		t.mu.Lock()
		delete(t.entries, id)
		t.mu.Unlock()
	})

	t.mu.Lock()
	t.entries[id] = &timerEntry{timer: timer}
	t.mu.Unlock()
	return id
}

// Every schedules fn to run repeatedly every interval, dispatched
// under hash on each tick, until Erase is called.
func (t *Timer) Every(interval time.Duration, hash uint32, fn func()) TimerID {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.mu.Unlock()

	ticker := time.NewTicker(interval)
	stopCh := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				t.d.Dispatch(hash, func() {
					select {
					case <-stopCh:
					default:
						fn()
					}
				})
			case <-stopCh:
				return
			}
		}
	}()

	t.mu.Lock()
	t.entries[id] = &timerEntry{ticker: ticker, stopCh: stopCh}
	t.mu.Unlock()
	return id
}

// Erase cancels a scheduled callback. Erasing an id that already fired
// (one-shot) or was never scheduled is a no-op.
func (t *Timer) Erase(id TimerID) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.ticker != nil {
		e.ticker.Stop()
		close(e.stopCh)
	}
}

// Stop cancels every scheduled callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	ids := make([]TimerID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	for _, id := range ids {
		t.Erase(id)
	}
}
