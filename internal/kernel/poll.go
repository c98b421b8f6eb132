package kernel

import (
	"sync"
	"time"
)

// PollState is the readiness of one watched queue.
type PollState uint8

const (
	// NotReady is the initial state and the state after a handler re-arms.
	NotReady PollState = iota

	// DataAvailable means the queue held data when Poll last looked.
	DataAvailable
)

// String implements fmt.Stringer.
func (s PollState) String() string {
	switch s {
	case NotReady:
		return "not_ready"
	case DataAvailable:
		return "data_available"
	default:
		return "unknown"
	}
}

// Watchable is a queue that Poll can watch.
type Watchable interface {
	Len() int
	Watch(w chan<- struct{})
	Unwatch(w chan<- struct{})
}

// PollEvent binds a readiness state to one queue.
type PollEvent struct {
	State PollState
	queue Watchable
}

// NewPollEvent returns a NotReady event watching w.
func NewPollEvent(w Watchable) PollEvent {
	return PollEvent{State: NotReady, queue: w}
}

// Queue returns the watched queue.
func (e *PollEvent) Queue() Watchable {
	return e.queue
}

// waiters recycles wake-up channels so a blocking Poll does not allocate.
var waiters = sync.Pool{
	New: func() any { return make(chan struct{}, 1) },
}

// Poll waits until at least one event's queue holds data.
//
// Every event whose queue is non-empty is marked DataAvailable. States are
// never reset here; the caller re-arms after handling.
//
// Returns:
//   - nil: at least one event is DataAvailable
//   - ErrTimedOut: nothing became ready before the timeout
//   - ErrNoEvents: events is empty or holds an unbound event
func Poll(events []PollEvent, timeout Timeout) error {
	if len(events) == 0 {
		return ErrNoEvents
	}
	for i := range events {
		if events[i].queue == nil {
			return ErrNoEvents
		}
	}

	if markReady(events) {
		return nil
	}
	if timeout.IsNoWait() {
		return ErrTimedOut
	}

	waiter := waiters.Get().(chan struct{})
	defer func() {
		select {
		case <-waiter:
		default:
		}
		waiters.Put(waiter)
	}()

	var expired <-chan time.Time
	if !timeout.IsForever() {
		timer := time.NewTimer(timeout.Duration())
		defer timer.Stop()
		expired = timer.C
	}

	for i := range events {
		events[i].queue.Watch(waiter)
	}
	defer func() {
		for i := range events {
			events[i].queue.Unwatch(waiter)
		}
	}()

	for {
		// Re-check after registering: a Put that landed before Watch
		// would otherwise go unnoticed.
		if markReady(events) {
			return nil
		}

		select {
		case <-waiter:
		case <-expired:
			if markReady(events) {
				return nil
			}
			return ErrTimedOut
		}
	}
}

// markReady flags every event with queued data and reports whether any did.
func markReady(events []PollEvent) bool {
	ready := false
	for i := range events {
		if events[i].queue.Len() > 0 {
			events[i].State = DataAvailable
			ready = true
		}
	}
	return ready
}
