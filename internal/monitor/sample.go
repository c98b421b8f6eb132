package monitor

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/graybus/internal/bus"
)

// Sample is one statistics reading of the whole bus.
type Sample struct {
	RunID    uuid.UUID    `json:"run_id"`
	NodeID   string       `json:"node_id"`
	Seq      uint64       `json:"seq"`
	Taken    time.Time    `json:"taken"`
	Snapshot bus.Snapshot `json:"snapshot"`

	// Drops lists subscribers that lost messages since the previous sample.
	Drops []DropDelta `json:"drops,omitempty"`
}

// DropDelta is the number of messages one subscriber lost between two samples.
type DropDelta struct {
	Topic      string `json:"topic"`
	Subscriber string `json:"subscriber"`
	Dropped    uint64 `json:"dropped"`
}

// subscriberKey identifies a subscriber across samples.
type subscriberKey struct {
	topic      string
	subscriber string
}

// dropDeltas compares snap against the previous per-subscriber drop counts,
// records the new counts in prev and returns the subscribers whose count grew.
func dropDeltas(prev map[subscriberKey]uint64, snap bus.Snapshot) []DropDelta {
	var deltas []DropDelta
	for _, ts := range snap.Topics {
		for _, s := range ts.Subscribers {
			key := subscriberKey{topic: ts.Name, subscriber: s.Name}
			if before := prev[key]; s.Dropped > before {
				deltas = append(deltas, DropDelta{
					Topic:      ts.Name,
					Subscriber: s.Name,
					Dropped:    s.Dropped - before,
				})
			}
			prev[key] = s.Dropped
		}
	}
	return deltas
}
