// Package mqtt publishes node status and bus statistics to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained online/offline status with Last Will and Testament
//   - Retained per-topic statistics for dashboards
//   - Connection health monitoring
//
// Bus messages themselves never leave the process; MQTT only carries
// diagnostics about them.
//
// # Topics
//
//	graybus/{node}/status              online/offline (retained, LWT)
//	graybus/{node}/stats/{topic-slug}  per-topic statistics (retained)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Node.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().Stats("/imu/sample"), stats)
package mqtt
