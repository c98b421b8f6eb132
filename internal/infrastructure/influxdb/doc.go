// Package influxdb writes bus statistics to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched non-blocking writes and health monitoring.
//
// # Measurements
//
//	bus_topic       tags: node, topic              fields: published, dropped, subscribers
//	bus_subscriber  tags: node, topic, subscriber  fields: delivered, dropped, queued, capacity
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Node.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSnapshot(registry.Snapshot(), time.Now())
//
// # Error Handling
//
// Writes never block the caller. Batch failures arrive asynchronously on
// the callback set with SetOnError; connection and health check errors
// are returned directly.
package influxdb
