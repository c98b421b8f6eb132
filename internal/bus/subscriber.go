package bus

import (
	"sync/atomic"

	"github.com/nerrad567/graybus/internal/kernel"
)

// Source is the untyped view of a subscriber used by the dispatch loop.
type Source interface {
	// Name identifies the subscriber in logs and statistics.
	Name() string

	// PollEvent returns a NotReady readiness event bound to the queue.
	PollEvent() kernel.PollEvent

	// Notify invokes the callback, if any.
	Notify()
}

// Subscriber owns one bounded queue receiving copies of its topic's messages.
type Subscriber[T any] struct {
	topic    *Topic[T]
	name     string
	queue    *kernel.MsgQueue[T]
	callback func(*Subscriber[T])

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// Topic returns the topic the subscriber is bound to.
func (s *Subscriber[T]) Topic() *Topic[T] {
	return s.topic
}

// Name returns the subscriber name.
func (s *Subscriber[T]) Name() string {
	return s.name
}

// Receive dequeues the oldest message, waiting according to timeout.
func (s *Subscriber[T]) Receive(timeout kernel.Timeout) (T, error) {
	return s.queue.Get(timeout)
}

// TryReceive dequeues the oldest message without waiting.
func (s *Subscriber[T]) TryReceive() (T, bool) {
	msg, err := s.queue.Get(kernel.NoWait)
	return msg, err == nil
}

// Drain hands every queued message to fn and returns how many it saw.
// Messages published while draining are drained too.
func (s *Subscriber[T]) Drain(fn func(T)) int {
	n := 0
	for {
		msg, ok := s.TryReceive()
		if !ok {
			return n
		}
		fn(msg)
		n++
	}
}

// Len returns the number of queued messages.
func (s *Subscriber[T]) Len() int {
	return s.queue.Len()
}

// Cap returns the queue depth.
func (s *Subscriber[T]) Cap() int {
	return s.queue.Cap()
}

// PollEvent implements Source.
func (s *Subscriber[T]) PollEvent() kernel.PollEvent {
	return kernel.NewPollEvent(s.queue)
}

// Notify implements Source.
func (s *Subscriber[T]) Notify() {
	if s.callback != nil {
		s.callback(s)
	}
}

// Stats returns the subscriber's delivery counters.
func (s *Subscriber[T]) Stats() SubscriberStats {
	return SubscriberStats{
		Name:      s.name,
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
		Queued:    s.queue.Len(),
		Capacity:  s.queue.Cap(),
	}
}
