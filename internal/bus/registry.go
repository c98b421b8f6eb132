package bus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/graybus/internal/kernel"
)

// descriptor is the untyped view of a Topic[T] held by the registry.
type descriptor interface {
	Info() TopicInfo
	Stats() TopicStats
	verify() error
}

// Builder is the single registration flow for topics, subscribers and
// publishers. Declarations are accepted until Build seals it.
type Builder struct {
	mu     sync.Mutex
	topics []descriptor
	names  map[string]TopicID
	sealed atomic.Bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		names: make(map[string]TopicID),
	}
}

// DefineTopic declares a topic carrying messages of type T.
//
// Parameters:
//   - b: Builder to declare on
//   - parts: Name components, joined as "/a/b/c"
//
// Returns:
//   - *Topic[T]: Typed topic handle
//   - error: ErrInvalidTopicName, ErrDuplicateTopic or ErrSealed
func DefineTopic[T any](b *Builder, parts ...string) (*Topic[T], error) {
	name, err := TopicName(parts...)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed.Load() {
		return nil, fmt.Errorf("%w: cannot define %s", ErrSealed, name)
	}
	if _, exists := b.names[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTopic, name)
	}

	t := &Topic[T]{
		id:      TopicID(len(b.topics)),
		name:    name,
		msgType: reflect.TypeOf((*T)(nil)).Elem(),
		builder: b,
	}
	b.topics = append(b.topics, t)
	b.names[name] = t.id
	return t, nil
}

// MustDefineTopic is DefineTopic for static declarations; it panics on error.
func MustDefineTopic[T any](b *Builder, parts ...string) *Topic[T] {
	t, err := DefineTopic[T](b, parts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Subscribe declares a subscriber of t with a queue of depth messages.
//
// The callback is optional. When set, the dispatch loop calls it whenever
// the queue holds data; it is expected to drain the queue.
//
// Returns:
//   - *Subscriber[T]: Subscriber handle owning its queue
//   - error: ErrInvalidDepth or ErrSealed
func Subscribe[T any](t *Topic[T], name string, depth int, callback func(*Subscriber[T])) (*Subscriber[T], error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: %d for subscriber %q of %s", ErrInvalidDepth, depth, name, t.name)
	}

	b := t.builder
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed.Load() {
		return nil, fmt.Errorf("%w: cannot subscribe to %s", ErrSealed, t.name)
	}

	if name == "" {
		name = fmt.Sprintf("%s#%d", t.name, len(t.subscribers))
	}

	s := &Subscriber[T]{
		topic:    t,
		name:     name,
		queue:    kernel.NewMsgQueue[T](depth),
		callback: callback,
	}
	t.subscribers = append(t.subscribers, s)
	return s, nil
}

// MustSubscribe is Subscribe for static declarations; it panics on error.
func MustSubscribe[T any](t *Topic[T], name string, depth int, callback func(*Subscriber[T])) *Subscriber[T] {
	s, err := Subscribe(t, name, depth, callback)
	if err != nil {
		panic(err)
	}
	return s
}

// Advertise declares a publisher on t.
//
// Returns:
//   - *Publisher[T]: Publisher handle
//   - error: ErrInvalidMode or ErrSealed
func Advertise[T any](t *Topic[T], name string, mode Mode) (*Publisher[T], error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}

	b := t.builder
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed.Load() {
		return nil, fmt.Errorf("%w: cannot advertise on %s", ErrSealed, t.name)
	}

	if name == "" {
		name = fmt.Sprintf("%s@%d", t.name, t.publishers)
	}
	t.publishers++

	return &Publisher[T]{topic: t, name: name, mode: mode}, nil
}

// MustAdvertise is Advertise for static declarations; it panics on error.
func MustAdvertise[T any](t *Topic[T], name string, mode Mode) *Publisher[T] {
	p, err := Advertise(t, name, mode)
	if err != nil {
		panic(err)
	}
	return p
}

// Build seals the builder, verifies the topology and returns the registry.
//
// Returns:
//   - *Registry: Immutable registry of every declared topic
//   - error: ErrSealed if already built, ErrConfigurationCorruption if a
//     structural invariant does not hold
func (b *Builder) Build() (*Registry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed.Load() {
		return nil, ErrSealed
	}

	for _, t := range b.topics {
		if err := t.verify(); err != nil {
			return nil, err
		}
	}

	topics := make([]descriptor, len(b.topics))
	copy(topics, b.topics)

	b.sealed.Store(true)
	return &Registry{topics: topics}, nil
}

// MustBuild is Build for static topologies; it panics on error.
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// Registry is the immutable set of topics produced by Builder.Build.
//
// All methods are safe for concurrent use.
type Registry struct {
	topics []descriptor
}

// LookupTopic finds a topic by its slash-delimited name.
//
// The scan is linear over the registered topics; topic counts are small
// and fixed, so no index is kept.
//
// Returns:
//   - TopicInfo: Descriptor of the matching topic
//   - error: ErrTopicNotFound if no topic has that name
func (r *Registry) LookupTopic(name string) (TopicInfo, error) {
	for _, t := range r.topics {
		info := t.Info()
		if info.Name == name {
			return info, nil
		}
	}
	return TopicInfo{}, fmt.Errorf("%w: %s", ErrTopicNotFound, name)
}

// Topic returns the descriptor for id.
func (r *Registry) Topic(id TopicID) (TopicInfo, error) {
	if id < 0 || int(id) >= len(r.topics) {
		return TopicInfo{}, fmt.Errorf("%w: id %d", ErrTopicNotFound, id)
	}
	return r.topics[id].Info(), nil
}

// Topics returns every descriptor in declaration order.
func (r *Registry) Topics() []TopicInfo {
	infos := make([]TopicInfo, 0, len(r.topics))
	for _, t := range r.topics {
		infos = append(infos, t.Info())
	}
	return infos
}

// Len returns the number of topics.
func (r *Registry) Len() int {
	return len(r.topics)
}
