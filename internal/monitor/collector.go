package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/graybus/internal/bus"
)

// defaultInterval is used when Config.Interval is not positive.
const defaultInterval = time.Second

// StatsSource provides bus statistics. *bus.Registry satisfies it.
type StatsSource interface {
	Snapshot() bus.Snapshot
}

// Sink receives every sample taken by a Collector.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Record stores or forwards the sample.
	Record(ctx context.Context, s Sample) error
}

// Config holds Collector settings.
type Config struct {
	NodeID   string
	Interval time.Duration
}

// Collector periodically samples a StatsSource and fans samples out to sinks.
//
// Thread Safety:
//   - Latest may be called from any goroutine while Run is active.
//   - Collect and Run must not be called concurrently with each other.
type Collector struct {
	source   StatsSource
	nodeID   string
	interval time.Duration
	runID    uuid.UUID

	sinksMu sync.RWMutex
	sinks   []Sink

	// prev holds per-subscriber drop counts of the previous sample.
	prev   map[subscriberKey]uint64
	seq    uint64
	latest atomic.Pointer[Sample]

	logger Logger
}

// NewCollector creates a collector for source with a fresh run ID.
func NewCollector(source StatsSource, cfg Config) *Collector {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Collector{
		source:   source,
		nodeID:   cfg.NodeID,
		interval: interval,
		runID:    uuid.New(),
		prev:     make(map[subscriberKey]uint64),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the collector.
func (c *Collector) SetLogger(logger Logger) {
	c.logger = logger
}

// AddSink registers a sink. Sinks receive samples in registration order.
func (c *Collector) AddSink(s Sink) {
	c.sinksMu.Lock()
	c.sinks = append(c.sinks, s)
	c.sinksMu.Unlock()
}

// RunID returns the identifier stamped on every sample of this process.
func (c *Collector) RunID() uuid.UUID {
	return c.runID
}

// Latest returns the most recent sample, if one has been taken.
func (c *Collector) Latest() (Sample, bool) {
	s := c.latest.Load()
	if s == nil {
		return Sample{}, false
	}
	return *s, true
}

// Collect takes one sample, logs new drops and delivers it to every sink.
//
// Sink errors are logged; Collect itself never fails.
func (c *Collector) Collect(ctx context.Context) Sample {
	snap := c.source.Snapshot()
	c.seq++

	s := Sample{
		RunID:    c.runID,
		NodeID:   c.nodeID,
		Seq:      c.seq,
		Taken:    time.Now().UTC(),
		Snapshot: snap,
		Drops:    dropDeltas(c.prev, snap),
	}

	for _, d := range s.Drops {
		c.logger.Warn("subscriber dropped messages",
			"topic", d.Topic,
			"subscriber", d.Subscriber,
			"dropped", d.Dropped,
		)
	}

	c.latest.Store(&s)

	c.sinksMu.RLock()
	sinks := make([]Sink, len(c.sinks))
	copy(sinks, c.sinks)
	c.sinksMu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Record(ctx, s); err != nil {
			c.logger.Error("stats sink failed", "sink", sink.Name(), "seq", s.Seq, "error", err)
		}
	}
	return s
}

// Run samples every interval until ctx is cancelled.
//
// The first sample is taken immediately so Latest is populated at start-up.
//
// Returns:
//   - error: Always nil; cancellation is the normal way to stop
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("stats collector started",
		"run_id", c.runID.String(),
		"interval", c.interval.String(),
	)
	defer c.logger.Info("stats collector stopped", "samples", c.seq)

	c.Collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}
