// Package monitor samples bus statistics and fans them out to sinks.
//
// A Collector reads a registry snapshot every interval, works out which
// subscribers dropped messages since the previous sample, logs those drops
// as warnings and hands the Sample to every configured Sink:
//
//	Registry.Snapshot() ──► Collector ──┬──► MQTTSink     (retained per-topic stats)
//	                                    ├──► InfluxSink   (bus_topic / bus_subscriber points)
//	                                    └──► HistorySink  (SQLite stats_history rows)
//
// A failing sink is logged and skipped; the others still receive the sample.
// The most recent sample is kept for the inspection API (Collector.Latest).
//
// Every sample carries the RunID minted when the collector was created, so
// history rows and telemetry from different process starts can be told
// apart even though the counters restart from zero.
package monitor
