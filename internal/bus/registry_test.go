package bus

import (
	"errors"
	"testing"
)

type msgA struct {
	A int32
	B [5]uint8
}

type msgB struct {
	A int8
	B uint8
}

func TestTopicName(t *testing.T) {
	tests := []struct {
		name    string
		parts   []string
		want    string
		wantErr bool
	}{
		{name: "single component", parts: []string{"topic_a"}, want: "/topic_a"},
		{name: "nested components", parts: []string{"battery_controller", "state"}, want: "/battery_controller/state"},
		{name: "no components", parts: nil, wantErr: true},
		{name: "empty component", parts: []string{"a", ""}, wantErr: true},
		{name: "component with slash", parts: []string{"a/b"}, wantErr: true},
		{name: "component with space", parts: []string{"a b"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TopicName(tt.parts...)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTopicName) {
					t.Errorf("TopicName(%v) error = %v, want ErrInvalidTopicName", tt.parts, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("TopicName(%v) error = %v", tt.parts, err)
			}
			if got != tt.want {
				t.Errorf("TopicName(%v) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}

func TestDefineTopic(t *testing.T) {
	b := NewBuilder()

	a, err := DefineTopic[msgA](b, "topic_a")
	if err != nil {
		t.Fatalf("DefineTopic() error = %v", err)
	}
	bt, err := DefineTopic[msgB](b, "topic_b")
	if err != nil {
		t.Fatalf("DefineTopic() error = %v", err)
	}

	if a.ID() != 0 || bt.ID() != 1 {
		t.Errorf("IDs = %d, %d, want 0, 1", a.ID(), bt.ID())
	}
	if a.Name() != "/topic_a" {
		t.Errorf("Name() = %q, want /topic_a", a.Name())
	}
	if a.MessageSize() != 12 {
		t.Errorf("MessageSize() = %d, want 12", a.MessageSize())
	}
	if bt.MessageSize() != 2 {
		t.Errorf("MessageSize() = %d, want 2", bt.MessageSize())
	}
}

func TestDefineTopic_Duplicate(t *testing.T) {
	b := NewBuilder()
	MustDefineTopic[msgA](b, "topic_a")

	// A different message type does not make the name a different topic.
	_, err := DefineTopic[msgB](b, "topic_a")
	if !errors.Is(err, ErrDuplicateTopic) {
		t.Errorf("DefineTopic() error = %v, want ErrDuplicateTopic", err)
	}
}

func TestBuilder_SealedRejectsDeclarations(t *testing.T) {
	b := NewBuilder()
	a := MustDefineTopic[msgA](b, "topic_a")

	if _, err := b.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, err := DefineTopic[msgA](b, "topic_c"); !errors.Is(err, ErrSealed) {
		t.Errorf("DefineTopic() after Build error = %v, want ErrSealed", err)
	}
	if _, err := Subscribe(a, "late", 1, nil); !errors.Is(err, ErrSealed) {
		t.Errorf("Subscribe() after Build error = %v, want ErrSealed", err)
	}
	if _, err := Advertise(a, "late", Drop); !errors.Is(err, ErrSealed) {
		t.Errorf("Advertise() after Build error = %v, want ErrSealed", err)
	}
	if _, err := b.Build(); !errors.Is(err, ErrSealed) {
		t.Errorf("second Build() error = %v, want ErrSealed", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	b := NewBuilder()
	a := MustDefineTopic[msgA](b, "topic_a")

	if _, err := Subscribe(a, "zero", 0, nil); !errors.Is(err, ErrInvalidDepth) {
		t.Errorf("Subscribe(depth 0) error = %v, want ErrInvalidDepth", err)
	}

	s, err := Subscribe(a, "", 3, nil)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if s.Name() != "/topic_a#0" {
		t.Errorf("default Name() = %q, want /topic_a#0", s.Name())
	}
	if s.Cap() != 3 {
		t.Errorf("Cap() = %d, want 3", s.Cap())
	}
	if s.Topic() != a {
		t.Error("Topic() does not point back to the declaring topic")
	}
}

func TestAdvertise_Validation(t *testing.T) {
	b := NewBuilder()
	a := MustDefineTopic[msgA](b, "topic_a")

	if _, err := Advertise(a, "bad", Mode(7)); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Advertise(Mode(7)) error = %v, want ErrInvalidMode", err)
	}

	p, err := Advertise(a, "", Blocking)
	if err != nil {
		t.Fatalf("Advertise() error = %v", err)
	}
	if p.Mode() != Blocking {
		t.Errorf("Mode() = %v, want Blocking", p.Mode())
	}
	if p.Topic() != a {
		t.Error("Topic() does not point back to the declaring topic")
	}
}

func TestRegistry_LookupTopic(t *testing.T) {
	b := NewBuilder()
	a := MustDefineTopic[msgA](b, "topic_a")
	bt := MustDefineTopic[msgB](b, "topic_b")
	MustSubscribe(a, "sub1", 10, nil)
	MustAdvertise(a, "pub1", Blocking)
	reg := b.MustBuild()

	t.Run("finds each topic", func(t *testing.T) {
		got, err := reg.LookupTopic("/topic_a")
		if err != nil {
			t.Fatalf("LookupTopic() error = %v", err)
		}
		if got.ID != a.ID() {
			t.Errorf("ID = %d, want %d", got.ID, a.ID())
		}
		if got.Subscribers != 1 || got.Publishers != 1 {
			t.Errorf("Subscribers, Publishers = %d, %d, want 1, 1", got.Subscribers, got.Publishers)
		}

		got, err = reg.LookupTopic("/topic_b")
		if err != nil {
			t.Fatalf("LookupTopic() error = %v", err)
		}
		if got.ID != bt.ID() {
			t.Errorf("ID = %d, want %d", got.ID, bt.ID())
		}
	})

	t.Run("matches a name built at runtime", func(t *testing.T) {
		name, _ := TopicName("topic" + "_a") //nolint:errcheck // valid component
		got, err := reg.LookupTopic(name)
		if err != nil {
			t.Fatalf("LookupTopic(%q) error = %v", name, err)
		}
		if got.ID != a.ID() {
			t.Errorf("ID = %d, want %d", got.ID, a.ID())
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		first, _ := reg.LookupTopic("/topic_a")  //nolint:errcheck // checked above
		second, _ := reg.LookupTopic("/topic_a") //nolint:errcheck // checked above
		if first != second {
			t.Errorf("LookupTopic() = %+v then %+v", first, second)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if _, err := reg.LookupTopic("/topic_c"); !errors.Is(err, ErrTopicNotFound) {
			t.Errorf("LookupTopic() error = %v, want ErrTopicNotFound", err)
		}
	})
}

func TestRegistry_TopicByID(t *testing.T) {
	b := NewBuilder()
	MustDefineTopic[msgA](b, "topic_a")
	MustDefineTopic[msgB](b, "topic_b")
	reg := b.MustBuild()

	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	info, err := reg.Topic(1)
	if err != nil {
		t.Fatalf("Topic(1) error = %v", err)
	}
	if info.Name != "/topic_b" {
		t.Errorf("Topic(1).Name = %q, want /topic_b", info.Name)
	}

	for _, id := range []TopicID{-1, 2} {
		if _, err := reg.Topic(id); !errors.Is(err, ErrTopicNotFound) {
			t.Errorf("Topic(%d) error = %v, want ErrTopicNotFound", id, err)
		}
	}

	topics := reg.Topics()
	if len(topics) != 2 || topics[0].Name != "/topic_a" || topics[1].Name != "/topic_b" {
		t.Errorf("Topics() = %+v, want declaration order", topics)
	}
}

func TestBuild_DetectsMisfiledSubscriber(t *testing.T) {
	b := NewBuilder()
	a := MustDefineTopic[msgA](b, "topic_a")
	other := MustDefineTopic[msgA](b, "topic_other")
	stray := MustSubscribe(other, "stray", 1, nil)

	// Only reachable by reaching into the package; the public API cannot misfile.
	a.subscribers = append(a.subscribers, stray)

	if _, err := b.Build(); !errors.Is(err, ErrConfigurationCorruption) {
		t.Errorf("Build() error = %v, want ErrConfigurationCorruption", err)
	}
}

func TestMustBuild_Panics(t *testing.T) {
	b := NewBuilder()
	b.MustBuild()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrSealed) {
			t.Errorf("MustBuild() panic = %v, want ErrSealed", r)
		}
	}()
	b.MustBuild()
}
