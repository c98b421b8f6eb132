package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/graybus/internal/bus"
	"github.com/nerrad567/graybus/internal/infrastructure/mqtt"
)

// JSONPublisher publishes a value as a retained JSON message.
// *mqtt.Client satisfies it.
type JSONPublisher interface {
	PublishJSON(topic string, v any) error
}

// MQTTSink publishes each topic's statistics on its retained stats topic.
type MQTTSink struct {
	publisher JSONPublisher
	topics    mqtt.Topics
}

// NewMQTTSink creates a sink publishing under the node's stats topics.
func NewMQTTSink(publisher JSONPublisher, topics mqtt.Topics) *MQTTSink {
	return &MQTTSink{publisher: publisher, topics: topics}
}

// topicStatsMessage is the payload of graybus/{node}/stats/{topic-slug}.
type topicStatsMessage struct {
	RunID       string                `json:"run_id"`
	Seq         uint64                `json:"seq"`
	Topic       string                `json:"topic"`
	Published   uint64                `json:"published"`
	Dropped     uint64                `json:"dropped"`
	Subscribers []bus.SubscriberStats `json:"subscribers"`
	SampledAt   time.Time             `json:"sampled_at"`
}

// Name implements Sink.
func (*MQTTSink) Name() string { return "mqtt" }

// Record implements Sink. Every topic is attempted; the first error is returned.
func (m *MQTTSink) Record(_ context.Context, s Sample) error {
	var firstErr error
	for _, ts := range s.Snapshot.Topics {
		msg := topicStatsMessage{
			RunID:       s.RunID.String(),
			Seq:         s.Seq,
			Topic:       ts.Name,
			Published:   ts.Published,
			Dropped:     ts.Dropped(),
			Subscribers: ts.Subscribers,
			SampledAt:   s.Taken,
		}
		if err := m.publisher.PublishJSON(m.topics.Stats(ts.Name), msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("publishing stats for %s: %w", ts.Name, err)
		}
	}
	return firstErr
}

// SnapshotWriter writes a snapshot as time-series points.
// *influxdb.Client satisfies it.
type SnapshotWriter interface {
	WriteSnapshot(snap bus.Snapshot, at time.Time)
}

// InfluxSink writes every sample as InfluxDB points.
type InfluxSink struct {
	writer SnapshotWriter
}

// NewInfluxSink creates a sink on writer.
func NewInfluxSink(writer SnapshotWriter) *InfluxSink {
	return &InfluxSink{writer: writer}
}

// Name implements Sink.
func (*InfluxSink) Name() string { return "influxdb" }

// Record implements Sink. Writes are batched asynchronously, so it never fails.
func (i *InfluxSink) Record(_ context.Context, s Sample) error {
	i.writer.WriteSnapshot(s.Snapshot, s.Taken)
	return nil
}

// HistorySink stores samples in a HistoryRepository and prunes old rows.
type HistorySink struct {
	repo       HistoryRepository
	retention  time.Duration
	pruneEvery time.Duration

	mu        sync.Mutex
	lastPrune time.Time
	now       func() time.Time
}

// NewHistorySink creates a sink keeping retention worth of rows.
// A zero retention keeps everything.
func NewHistorySink(repo HistoryRepository, retention time.Duration) *HistorySink {
	pruneEvery := time.Minute
	if retention > 0 && retention/10 < pruneEvery {
		pruneEvery = retention / 10
	}
	return &HistorySink{
		repo:       repo,
		retention:  retention,
		pruneEvery: pruneEvery,
		now:        time.Now,
	}
}

// Name implements Sink.
func (*HistorySink) Name() string { return "history" }

// Record implements Sink.
func (h *HistorySink) Record(ctx context.Context, s Sample) error {
	if err := h.repo.Record(ctx, s); err != nil {
		return err
	}
	if !h.prunePending() {
		return nil
	}
	if _, err := h.repo.Prune(ctx, h.retention); err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	return nil
}

// prunePending reports whether a prune is due and, if so, marks it done.
func (h *HistorySink) prunePending() bool {
	if h.retention <= 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if now.Sub(h.lastPrune) < h.pruneEvery {
		return false
	}
	h.lastPrune = now
	return true
}
