package bus

import (
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
)

// TopicID identifies a topic. IDs are assigned in declaration order,
// starting at zero, and are stable for the life of the process.
type TopicID int

// TopicInfo is the untyped descriptor of a topic.
type TopicInfo struct {
	ID          TopicID `json:"id"`
	Name        string  `json:"name"`
	MessageType string  `json:"message_type"`
	MessageSize uintptr `json:"message_size"`
	Subscribers int     `json:"subscribers"`
	Publishers  int     `json:"publishers"`
}

// Topic is a named channel carrying messages of type T.
//
// It owns its subscriber list; records are appended by Subscribe before the
// builder is sealed and never change afterwards.
type Topic[T any] struct {
	id      TopicID
	name    string
	msgType reflect.Type
	builder *Builder

	subscribers []*Subscriber[T]
	publishers  int

	published atomic.Uint64
}

// TopicName joins name components into a slash-delimited topic name.
//
// Example: TopicName("battery", "state") returns "/battery/state".
func TopicName(parts ...string) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no components", ErrInvalidTopicName)
	}

	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%w: empty component", ErrInvalidTopicName)
		}
		if strings.ContainsAny(p, "/ \t\n") {
			return "", fmt.Errorf("%w: component %q contains a separator or whitespace", ErrInvalidTopicName, p)
		}
		sb.WriteByte('/')
		sb.WriteString(p)
	}
	return sb.String(), nil
}

// ID returns the topic identifier.
func (t *Topic[T]) ID() TopicID {
	return t.id
}

// Name returns the slash-delimited topic name.
func (t *Topic[T]) Name() string {
	return t.name
}

// MessageSize returns the in-memory size of one message.
func (t *Topic[T]) MessageSize() uintptr {
	return t.msgType.Size()
}

// Info returns the topic descriptor.
func (t *Topic[T]) Info() TopicInfo {
	return TopicInfo{
		ID:          t.id,
		Name:        t.name,
		MessageType: t.msgType.String(),
		MessageSize: t.msgType.Size(),
		Subscribers: len(t.subscribers),
		Publishers:  t.publishers,
	}
}

// Stats returns the topic's delivery counters.
func (t *Topic[T]) Stats() TopicStats {
	subs := make([]SubscriberStats, 0, len(t.subscribers))
	for _, s := range t.subscribers {
		subs = append(subs, s.Stats())
	}
	return TopicStats{
		ID:          t.id,
		Name:        t.name,
		Published:   t.published.Load(),
		Subscribers: subs,
	}
}

// verify checks the structural invariants of the subscriber list.
func (t *Topic[T]) verify() error {
	for i, s := range t.subscribers {
		if s == nil {
			return fmt.Errorf("%w: topic %s subscriber %d is nil", ErrConfigurationCorruption, t.name, i)
		}
		if s.topic != t {
			return fmt.Errorf("%w: subscriber %q is filed under %s but bound to another topic",
				ErrConfigurationCorruption, s.name, t.name)
		}
		if s.queue == nil || s.queue.Cap() < 1 {
			return fmt.Errorf("%w: subscriber %q of %s has no queue", ErrConfigurationCorruption, s.name, t.name)
		}
	}
	return nil
}

// built reports whether the topic's builder has been sealed.
func (t *Topic[T]) built() bool {
	return t.builder.sealed.Load()
}
