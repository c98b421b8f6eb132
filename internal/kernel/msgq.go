package kernel

import (
	"fmt"
	"sync"
	"time"
)

// initialWatchers sizes the watcher list so the common case of one or two
// dispatch loops per queue never grows it.
const initialWatchers = 2

// MsgQueue is a bounded FIFO of fixed capacity.
//
// The backing buffer is allocated by NewMsgQueue and never reallocated, so
// Put and Get do not allocate. Items are copied in and out by value.
//
// Thread Safety:
//   - Put and Get may be called from any number of goroutines.
//   - Blocked producers are released in arrival order.
type MsgQueue[T any] struct {
	buf chan T

	// watchers are poll waiters woken after every successful Put.
	watchers []chan<- struct{}
	mu       sync.Mutex
}

// NewMsgQueue creates a queue holding at most capacity items.
//
// Capacity is a build-time constant, so a value below one is a programming
// error and panics.
func NewMsgQueue[T any](capacity int) *MsgQueue[T] {
	if capacity < 1 {
		panic(fmt.Sprintf("kernel: queue capacity must be at least 1, got %d", capacity))
	}
	return &MsgQueue[T]{
		buf:      make(chan T, capacity),
		watchers: make([]chan<- struct{}, 0, initialWatchers),
	}
}

// Put enqueues a copy of item.
//
// Returns:
//   - nil: item queued
//   - ErrFull: timeout is NoWait and the queue has no free slot
//   - ErrWouldBlock: a bounded wait expired before a slot freed up
func (q *MsgQueue[T]) Put(item T, timeout Timeout) error {
	select {
	case q.buf <- item:
		q.wake()
		return nil
	default:
	}

	switch {
	case timeout.IsNoWait():
		return ErrFull
	case timeout.IsForever():
		q.buf <- item
		q.wake()
		return nil
	}

	timer := time.NewTimer(timeout.Duration())
	defer timer.Stop()

	select {
	case q.buf <- item:
		q.wake()
		return nil
	case <-timer.C:
		return ErrWouldBlock
	}
}

// Get dequeues the oldest item.
//
// Returns:
//   - T: the item (zero value on error)
//   - error: ErrEmpty for a NoWait call on an empty queue,
//     ErrWouldBlock when a bounded wait expired
func (q *MsgQueue[T]) Get(timeout Timeout) (T, error) {
	select {
	case item := <-q.buf:
		return item, nil
	default:
	}

	var zero T
	switch {
	case timeout.IsNoWait():
		return zero, ErrEmpty
	case timeout.IsForever():
		return <-q.buf, nil
	}

	timer := time.NewTimer(timeout.Duration())
	defer timer.Stop()

	select {
	case item := <-q.buf:
		return item, nil
	case <-timer.C:
		return zero, ErrWouldBlock
	}
}

// Len returns the number of queued items.
func (q *MsgQueue[T]) Len() int {
	return len(q.buf)
}

// Cap returns the fixed capacity.
func (q *MsgQueue[T]) Cap() int {
	return cap(q.buf)
}

// Purge discards every queued item and returns how many were dropped.
func (q *MsgQueue[T]) Purge() int {
	n := 0
	for {
		select {
		case <-q.buf:
			n++
		default:
			return n
		}
	}
}

// Watch registers w to be signalled after each successful Put.
// The send is non-blocking, so w should have a buffer of one.
func (q *MsgQueue[T]) Watch(w chan<- struct{}) {
	q.mu.Lock()
	q.watchers = append(q.watchers, w)
	q.mu.Unlock()
}

// Unwatch removes one registration of w.
func (q *MsgQueue[T]) Unwatch(w chan<- struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, existing := range q.watchers {
		if existing == w {
			last := len(q.watchers) - 1
			q.watchers[i] = q.watchers[last]
			q.watchers[last] = nil
			q.watchers = q.watchers[:last]
			return
		}
	}
}

// wake signals every registered watcher without blocking.
func (q *MsgQueue[T]) wake() {
	q.mu.Lock()
	for _, w := range q.watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
	q.mu.Unlock()
}
