package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/graybus/internal/kernel"
)

// recorder collects what callbacks drained, keyed by subscriber name.
type recorder struct {
	mu    sync.Mutex
	got   map[string][]int
	calls map[string]int
}

func newRecorder() *recorder {
	return &recorder{got: make(map[string][]int), calls: make(map[string]int)}
}

func (r *recorder) drain(s *Subscriber[int]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[s.Name()]++
	s.Drain(func(v int) { r.got[s.Name()] = append(r.got[s.Name()], v) })
}

func (r *recorder) values(name string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.got[name]...)
}

func (r *recorder) callCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func TestHandleReady(t *testing.T) {
	rec := newRecorder()
	b := NewBuilder()
	topic := MustDefineTopic[int](b, "values")
	s1 := MustSubscribe(topic, "sub1", 4, rec.drain)
	s2 := MustSubscribe(topic, "sub2", 4, rec.drain)
	b.MustBuild()

	subs := []Source{s1, s2}
	events := PollEvents(subs...)

	s1.queue.Put(7, kernel.NoWait) //nolint:errcheck // empty queue
	events[0].State = kernel.DataAvailable

	HandleReady(subs, events)

	if got := rec.callCount("sub1"); got != 1 {
		t.Errorf("sub1 callback calls = %d, want 1", got)
	}
	if got := rec.callCount("sub2"); got != 0 {
		t.Errorf("sub2 callback calls = %d, want 0", got)
	}
	for i, e := range events {
		if e.State != kernel.NotReady {
			t.Errorf("events[%d].State = %v, want NotReady", i, e.State)
		}
	}
	if got := rec.values("sub1"); len(got) != 1 || got[0] != 7 {
		t.Errorf("sub1 drained %v, want [7]", got)
	}
}

func TestHandleReady_NilCallbackStillRearms(t *testing.T) {
	b := NewBuilder()
	topic := MustDefineTopic[int](b, "values")
	s := MustSubscribe(topic, "silent", 2, nil)
	pub := MustAdvertise(topic, "producer", Drop)
	b.MustBuild()

	pub.Publish(1)

	subs := []Source{s}
	events := PollEvents(subs...)
	if err := WaitAndHandle(subs, events, kernel.NoWait); err != nil {
		t.Fatalf("WaitAndHandle() error = %v", err)
	}
	if events[0].State != kernel.NotReady {
		t.Errorf("State = %v, want NotReady", events[0].State)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (left for the owner to drain)", s.Len())
	}
}

func TestHandleReady_LengthMismatchPanics(t *testing.T) {
	b := NewBuilder()
	topic := MustDefineTopic[int](b, "values")
	s := MustSubscribe(topic, "sub", 1, nil)
	b.MustBuild()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrConfigurationCorruption) {
			t.Errorf("HandleReady() panic = %v, want ErrConfigurationCorruption", r)
		}
	}()
	HandleReady([]Source{s}, nil)
}

func TestWaitAndHandle_TimeoutRunsNoCallbacks(t *testing.T) {
	rec := newRecorder()
	b := NewBuilder()
	topic := MustDefineTopic[int](b, "values")
	s := MustSubscribe(topic, "sub", 2, rec.drain)
	b.MustBuild()

	subs := []Source{s}
	events := PollEvents(subs...)

	tests := []struct {
		name    string
		timeout kernel.Timeout
	}{
		{name: "no wait", timeout: kernel.NoWait},
		{name: "bounded", timeout: kernel.After(10 * time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WaitAndHandle(subs, events, tt.timeout)
			if !errors.Is(err, kernel.ErrTimedOut) {
				t.Errorf("WaitAndHandle() error = %v, want ErrTimedOut", err)
			}
			if got := rec.callCount("sub"); got != 0 {
				t.Errorf("callback calls = %d, want 0", got)
			}
		})
	}
}

func TestWaitAndHandle_NoEvents(t *testing.T) {
	if err := WaitAndHandle(nil, nil, kernel.NoWait); !errors.Is(err, kernel.ErrNoEvents) {
		t.Errorf("WaitAndHandle() error = %v, want ErrNoEvents", err)
	}
}

func TestDispatcher_PollThread(t *testing.T) {
	rec := newRecorder()
	b := NewBuilder()
	topic := MustDefineTopic[int](b, "topic_a")
	var subs []Source
	for _, name := range []string{"sub1", "sub2", "sub3"} {
		subs = append(subs, MustSubscribe(topic, name, 10, rec.drain))
	}
	pub := MustAdvertise(topic, "pub1", Blocking)
	b.MustBuild()

	d := NewDispatcher("poll-thread", subs...)
	if d.Name() != "poll-thread" || len(d.Events()) != 3 {
		t.Fatalf("NewDispatcher() = %q with %d events", d.Name(), len(d.Events()))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			complete := true
			for _, name := range []string{"sub1", "sub2", "sub3"} {
				if len(rec.values(name)) < 5 {
					complete = false
				}
			}
			if complete {
				return
			}
			if err := d.WaitAndHandle(kernel.After(time.Second)); err != nil {
				t.Errorf("WaitAndHandle() error = %v", err)
				return
			}
		}
	}()

	for i := 0; i < 5; i++ {
		pub.Publish(i)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poll thread did not receive every message")
	}

	for _, name := range []string{"sub1", "sub2", "sub3"} {
		got := rec.values(name)
		if len(got) != 5 {
			t.Fatalf("%s received %v, want 0..4", name, got)
		}
		for i, v := range got {
			if v != i {
				t.Errorf("%s message #%d = %d, want %d", name, i, v, i)
			}
		}
	}

	// Everything was drained, so a non-blocking wait finds nothing.
	if err := d.WaitAndHandle(kernel.NoWait); !errors.Is(err, kernel.ErrTimedOut) {
		t.Errorf("WaitAndHandle(NoWait) after drain error = %v, want ErrTimedOut", err)
	}
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	rec := newRecorder()
	b := NewBuilder()
	topic := MustDefineTopic[int](b, "values")
	s := MustSubscribe(topic, "sub", 4, rec.drain)
	pub := MustAdvertise(topic, "producer", Drop)
	b.MustBuild()

	d := NewDispatcher("runner", s)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx, 10*time.Millisecond) }()

	pub.Publish(3)

	deadline := time.After(2 * time.Second)
	for len(rec.values("sub")) == 0 {
		select {
		case <-deadline:
			t.Fatal("Run did not dispatch the published message")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDispatcher_RunDefaultInterval(t *testing.T) {
	b := NewBuilder()
	topic := MustDefineTopic[int](b, "values")
	s := MustSubscribe(topic, "sub", 1, nil)
	b.MustBuild()

	d := NewDispatcher("idle", s)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := d.Run(ctx, 0); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
}

func TestDispatcher_RunReturnsWaitError(t *testing.T) {
	d := NewDispatcher("empty")

	err := d.Run(context.Background(), time.Millisecond)
	if !errors.Is(err, kernel.ErrNoEvents) {
		t.Errorf("Run() error = %v, want ErrNoEvents", err)
	}
}
