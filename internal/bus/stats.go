package bus

// SubscriberStats holds one subscriber's delivery counters.
type SubscriberStats struct {
	Name      string `json:"name"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Queued    int    `json:"queued"`
	Capacity  int    `json:"capacity"`
}

// TopicStats holds one topic's counters.
type TopicStats struct {
	ID          TopicID           `json:"id"`
	Name        string            `json:"name"`
	Published   uint64            `json:"published"`
	Subscribers []SubscriberStats `json:"subscribers"`
}

// Dropped returns the total drops across the topic's subscribers.
func (ts TopicStats) Dropped() uint64 {
	var n uint64
	for _, s := range ts.Subscribers {
		n += s.Dropped
	}
	return n
}

// Snapshot is a point-in-time copy of every topic's counters.
//
// Counters are read individually without stopping publishers, so a snapshot
// taken under load may mix values from adjacent publishes.
type Snapshot struct {
	Topics []TopicStats `json:"topics"`
}

// Topic returns the stats of the named topic.
func (s Snapshot) Topic(name string) (TopicStats, bool) {
	for _, ts := range s.Topics {
		if ts.Name == name {
			return ts, true
		}
	}
	return TopicStats{}, false
}

// Snapshot reads the counters of every topic.
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{Topics: make([]TopicStats, 0, len(r.topics))}
	for _, t := range r.topics {
		snap.Topics = append(snap.Topics, t.Stats())
	}
	return snap
}
