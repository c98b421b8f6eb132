// Package bus is the static publish/subscribe layer of Gray Bus.
//
// Producers (publishers) broadcast fixed-type messages to consumers
// (subscribers) grouped by named topics. Every binding is declared once at
// start-up through a Builder and is immutable afterwards; there is no runtime
// topic creation and no subscription lifecycle.
//
// # Architecture
//
//	┌──────────────┐  Publish(msg)  ┌──────────────┐  Put(copy)  ┌──────────────┐
//	│ Publisher[T] │───────────────▶│   Topic[T]   │────────────▶│Subscriber[T] │
//	│ Blocking/Drop│                │ subscribers  │  for each   │ MsgQueue[T]  │
//	└──────────────┘                └──────────────┘             └──────┬───────┘
//	                                                                    │ readiness
//	                                                             ┌──────▼───────┐
//	                                                             │  Dispatcher  │
//	                                                             │ Poll → notify│
//	                                                             └──────────────┘
//
// # Declaring a topology
//
//	b := bus.NewBuilder()
//	state := bus.MustDefineTopic[BatteryState](b, "battery", "state")
//	power := bus.MustSubscribe(state, "power-manager", 10, onBatteryState)
//	pub := bus.MustAdvertise(state, "battery-monitor", bus.Drop)
//	reg, err := b.Build()
//
// Build seals the builder and verifies the topology. Publishing on a topic
// whose builder was never built panics: its subscriber set is not final.
//
// # Delivery
//
//   - Blocking: Publish waits for room in each subscriber queue in turn. A
//     full subscriber stalls the publisher and every subscriber after it.
//   - Drop: Publish never waits. A full subscriber loses that message; the
//     loss is counted in its statistics and nothing is reported to the caller.
//
// Messages from one publisher arrive in publish order at every subscriber.
// Nothing orders concurrent publishers beyond the queue's own serialisation.
//
// # Dispatch
//
// A Dispatcher waits on an explicit list of subscribers and calls each ready
// subscriber's callback inline, then re-arms its readiness state. A slow
// callback blocks the whole loop; callbacks are expected to drain their queue
// and return quickly.
//
// # Topic identity
//
// Topics are identified by a TopicID assigned in declaration order. Name
// lookup compares content, so a name assembled at runtime finds its topic;
// declaring the same name twice in one Builder is rejected.
//
// Thread Safety:
//   - Builder methods may be called concurrently but are intended for start-up.
//   - Publish may be called from any number of goroutines once built.
//   - A Dispatcher and its subscribers' callbacks belong to one goroutine.
package bus
