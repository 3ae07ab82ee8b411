// Package dispatcher runs arbitrary callbacks on one of a fixed pool
// of single-threaded FIFO queues, selected by a caller-supplied hash
// (§4.7). Every callback dispatched under the same hash — in practice,
// every callback for one session — runs strictly in submission order
// on the same goroutine, so session handlers never need their own
// locking; callbacks for different sessions run concurrently across
// queues.
package dispatcher

import (
	"hash/fnv"
	"sync"
)

// Dispatcher owns a fixed-size pool of FIFO queues, each serviced by
// its own goroutine.
type Dispatcher struct {
	queues []chan func()
	wg     sync.WaitGroup
}

// New starts a Dispatcher with n queues. n is typically runtime.NumCPU()
// sized by the caller; Dispatcher itself has no opinion on sizing.
func New(n int) *Dispatcher {
	if n < 1 {
		n = 1
	}
	d := &Dispatcher{queues: make([]chan func(), n)}
	for i := range d.queues {
		d.queues[i] = make(chan func(), 256)
		d.wg.Add(1)
		go d.run(d.queues[i])
	}
	return d
}

func (d *Dispatcher) run(q chan func()) {
	defer d.wg.Done()
	for fn := range q {
		fn()
	}
}

// HashString reduces a session identifier to the queue index Dispatch
// should use, so every call for that session lands on the same queue.
func (d *Dispatcher) HashString(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % uint32(len(d.queues))
}

// Dispatch enqueues fn onto queue hash%N. Dispatch never blocks the
// caller waiting for fn to run; it blocks only if that queue's buffer
// is full, which signals sustained backpressure on that session.
func (d *Dispatcher) Dispatch(hash uint32, fn func()) {
	d.queues[hash%uint32(len(d.queues))] <- fn
}

// Stop closes every queue and waits for in-flight callbacks to finish
// draining. No further Dispatch calls may be made afterward.
func (d *Dispatcher) Stop() {
	for _, q := range d.queues {
		close(q)
	}
	d.wg.Wait()
}
