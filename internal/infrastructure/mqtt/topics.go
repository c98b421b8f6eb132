package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic a node publishes.
const TopicPrefix = "graybus"

// Topics builds the MQTT topics of one node.
//
//	topics := mqtt.Topics{Node: "rover-7"}
//	topics.Stats("/imu/sample")
//	// Returns: "graybus/rover-7/stats/imu-sample"
type Topics struct {
	Node string
}

// Status returns the retained online/offline topic, also used for the LWT.
//
// Example: graybus/rover-7/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, t.Node)
}

// Stats returns the retained statistics topic of one bus topic.
//
// Example: graybus/rover-7/stats/battery-state
func (t Topics) Stats(busTopic string) string {
	return fmt.Sprintf("%s/%s/stats/%s", TopicPrefix, t.Node, Slug(busTopic))
}

// AllStats returns a wildcard matching every statistics topic of the node.
//
// Example: graybus/rover-7/stats/#
func (t Topics) AllStats() string {
	return fmt.Sprintf("%s/%s/stats/#", TopicPrefix, t.Node)
}

// Slug flattens a slash-delimited bus topic name into one MQTT level.
//
// Example: "/battery/state" becomes "battery-state".
func Slug(busTopic string) string {
	return strings.ReplaceAll(strings.Trim(busTopic, "/"), "/", "-")
}
