package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/graybus/internal/bus"
)

// Measurement names.
const (
	// MeasurementTopic holds one point per bus topic per sample.
	MeasurementTopic = "bus_topic"

	// MeasurementSubscriber holds one point per subscriber per sample.
	MeasurementSubscriber = "bus_subscriber"
)

// WriteTopicStats writes the topic-level counters of ts.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - ts: Topic statistics from a registry snapshot
//   - at: Sample time
func (c *Client) WriteTopicStats(ts bus.TopicStats, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(topicPoint(c.node, ts, at))
}

// WriteSubscriberStats writes one point per subscriber of ts.
func (c *Client) WriteSubscriberStats(ts bus.TopicStats, at time.Time) {
	if !c.IsConnected() {
		return
	}
	for _, s := range ts.Subscribers {
		c.writeAPI.WritePoint(subscriberPoint(c.node, ts.Name, s, at))
	}
}

// WriteSnapshot writes topic and subscriber points for every topic.
func (c *Client) WriteSnapshot(snap bus.Snapshot, at time.Time) {
	for _, ts := range snap.Topics {
		c.WriteTopicStats(ts, at)
		c.WriteSubscriberStats(ts, at)
	}
}

// topicPoint builds a bus_topic point.
//
// Counters are cumulative since process start; rates are derived at query time.
func topicPoint(node string, ts bus.TopicStats, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementTopic,
		map[string]string{
			"node":  node,
			"topic": ts.Name,
		},
		map[string]interface{}{
			"published":   ts.Published,
			"dropped":     ts.Dropped(),
			"subscribers": len(ts.Subscribers),
		},
		at,
	)
}

// subscriberPoint builds a bus_subscriber point.
func subscriberPoint(node, topic string, s bus.SubscriberStats, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementSubscriber,
		map[string]string{
			"node":       node,
			"topic":      topic,
			"subscriber": s.Name,
		},
		map[string]interface{}{
			"delivered": s.Delivered,
			"dropped":   s.Dropped,
			"queued":    s.Queued,
			"capacity":  s.Capacity,
		},
		at,
	)
}
