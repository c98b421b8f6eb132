package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/graybus/internal/bus"
)

// testBus builds a one-topic registry whose "slow" subscriber holds two messages.
func testBus(t *testing.T) (*bus.Registry, *bus.Publisher[int], *bus.Subscriber[int]) {
	t.Helper()
	b := bus.NewBuilder()
	topic := bus.MustDefineTopic[int](b, "battery", "state")
	bus.MustSubscribe(topic, "power-manager", 16, nil)
	slow := bus.MustSubscribe(topic, "telemetry", 2, nil)
	pub := bus.MustAdvertise(topic, "battery-monitor", bus.Drop)
	reg, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return reg, pub, slow
}

type recordingSink struct {
	mu      sync.Mutex
	name    string
	samples []Sample
	err     error
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Record(_ context.Context, s Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

type captureLogger struct {
	noopLogger
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (c *captureLogger) Warn(msg string, _ ...any) {
	c.mu.Lock()
	c.warns = append(c.warns, msg)
	c.mu.Unlock()
}

func (c *captureLogger) Error(msg string, _ ...any) {
	c.mu.Lock()
	c.errs = append(c.errs, msg)
	c.mu.Unlock()
}

func TestCollector_DropDeltas(t *testing.T) {
	reg, pub, _ := testBus(t)
	logger := &captureLogger{}
	c := NewCollector(reg, Config{NodeID: "rover-7"})
	c.SetLogger(logger)

	for i := 0; i < 5; i++ {
		pub.Publish(i)
	}

	first := c.Collect(context.Background())
	if first.Seq != 1 || first.NodeID != "rover-7" || first.RunID != c.RunID() {
		t.Errorf("sample header = %d %q %s", first.Seq, first.NodeID, first.RunID)
	}
	if len(first.Drops) != 1 {
		t.Fatalf("Drops = %+v, want one subscriber", first.Drops)
	}
	want := DropDelta{Topic: "/battery/state", Subscriber: "telemetry", Dropped: 3}
	if first.Drops[0] != want {
		t.Errorf("Drops[0] = %+v, want %+v", first.Drops[0], want)
	}

	second := c.Collect(context.Background())
	if len(second.Drops) != 0 {
		t.Errorf("Drops without new losses = %+v, want none", second.Drops)
	}

	pub.Publish(9)
	third := c.Collect(context.Background())
	if len(third.Drops) != 1 || third.Drops[0].Dropped != 1 {
		t.Errorf("Drops after one more loss = %+v, want 1", third.Drops)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 2 {
		t.Errorf("warnings = %v, want 2", logger.warns)
	}
}

func TestCollector_Latest(t *testing.T) {
	reg, pub, _ := testBus(t)
	c := NewCollector(reg, Config{})

	if _, ok := c.Latest(); ok {
		t.Fatal("Latest() before any sample returned ok")
	}

	pub.Publish(1)
	c.Collect(context.Background())

	latest, ok := c.Latest()
	if !ok {
		t.Fatal("Latest() after Collect returned !ok")
	}
	ts, found := latest.Snapshot.Topic("/battery/state")
	if !found || ts.Published != 1 {
		t.Errorf("latest topic stats = %+v, found %v", ts, found)
	}
	if latest.Taken.IsZero() {
		t.Error("Taken is zero")
	}
}

func TestCollector_FailingSinkDoesNotStopOthers(t *testing.T) {
	reg, _, _ := testBus(t)
	logger := &captureLogger{}
	c := NewCollector(reg, Config{})
	c.SetLogger(logger)

	failing := &recordingSink{name: "failing", err: errors.New("broker gone")}
	healthy := &recordingSink{name: "healthy"}
	c.AddSink(failing)
	c.AddSink(healthy)

	c.Collect(context.Background())

	if failing.count() != 1 || healthy.count() != 1 {
		t.Errorf("sink samples = %d, %d, want 1, 1", failing.count(), healthy.count())
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errs) != 1 {
		t.Errorf("errors logged = %v, want 1", logger.errs)
	}
}

func TestCollector_RunSamplesUntilCancelled(t *testing.T) {
	reg, _, _ := testBus(t)
	c := NewCollector(reg, Config{Interval: 5 * time.Millisecond})
	sink := &recordingSink{name: "rec"}
	c.AddSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for sink.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d samples taken", sink.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i, s := range sink.samples {
		if s.Seq != uint64(i+1) {
			t.Errorf("samples[%d].Seq = %d, want %d", i, s.Seq, i+1)
		}
	}
}

func TestNewCollector_RunIDsDiffer(t *testing.T) {
	reg, _, _ := testBus(t)
	a := NewCollector(reg, Config{})
	b := NewCollector(reg, Config{})

	if a.RunID() == uuid.Nil || a.RunID() == b.RunID() {
		t.Errorf("RunIDs = %s, %s, want distinct non-nil", a.RunID(), b.RunID())
	}
	if a.interval != defaultInterval {
		t.Errorf("interval = %v, want %v", a.interval, defaultInterval)
	}
}
