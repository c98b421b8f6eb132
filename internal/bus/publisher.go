package bus

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/graybus/internal/kernel"
)

// Mode selects how Publish treats a full subscriber queue.
type Mode int

const (
	// Blocking waits indefinitely for room in each subscriber queue.
	Blocking Mode = iota

	// Drop discards the message for any subscriber whose queue is full.
	Drop
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Blocking:
		return "blocking"
	case Drop:
		return "drop"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts "blocking" or "drop" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blocking":
		return Blocking, nil
	case "drop":
		return Drop, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// valid reports whether m is a known mode.
func (m Mode) valid() bool {
	return m == Blocking || m == Drop
}

// Publisher broadcasts messages to every subscriber of one topic.
type Publisher[T any] struct {
	topic *Topic[T]
	name  string
	mode  Mode
}

// Topic returns the topic the publisher is bound to.
func (p *Publisher[T]) Topic() *Topic[T] {
	return p.topic
}

// Name returns the publisher name.
func (p *Publisher[T]) Name() string {
	return p.name
}

// Mode returns the delivery mode.
func (p *Publisher[T]) Mode() Mode {
	return p.mode
}

// Publish enqueues a copy of msg into every subscriber queue of the topic,
// in declaration order.
//
// In Blocking mode each enqueue waits for room, so a full subscriber stalls
// the caller and every subscriber after it. In Drop mode a full subscriber
// silently loses msg and delivery continues; the loss shows up only in the
// subscriber's statistics.
//
// Publish does not allocate. It panics with ErrConfigurationCorruption if
// the builder was never built or a subscriber is bound to another topic.
func (p *Publisher[T]) Publish(msg T) {
	wait := kernel.NoWait
	if p.mode == Blocking {
		wait = kernel.Forever
	}
	p.deliver(msg, wait)
}

// PublishTimeout is Publish with every enqueue bounded by d, regardless of
// mode. It returns how many subscribers accepted msg; a message that timed
// out is counted as dropped for that subscriber.
func (p *Publisher[T]) PublishTimeout(msg T, d time.Duration) int {
	return p.deliver(msg, kernel.After(d))
}

// deliver walks the subscriber list and returns the number of successful enqueues.
func (p *Publisher[T]) deliver(msg T, wait kernel.Timeout) int {
	t := p.topic
	if !t.built() {
		corruption("publish on %s before the registry was built", t.name)
	}

	t.published.Add(1)

	accepted := 0
	for _, s := range t.subscribers {
		if s.topic != t {
			corruption("subscriber %q is filed under %s but bound to another topic", s.name, t.name)
		}
		if err := s.queue.Put(msg, wait); err != nil {
			s.dropped.Add(1)
			continue
		}
		s.delivered.Add(1)
		accepted++
	}
	return accepted
}
