package bridge

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name to
// enable multiple Anchor instances to safely coexist on a single Redis server.
//
// Key pattern: anchor:{instance_name}:{entity}
// Channel pattern: anchor:{instance_name}:{event_type}_events

// LatestSampleKey returns the Redis key for the retained latest sample.
// The retained sample is what lets a freshly (re)loaded embedded runtime
// recover the current position without waiting for the next publish.
// Pattern: anchor:{instance_name}:latest_sample
func LatestSampleKey(instanceName string) string {
	return fmt.Sprintf("anchor:%s:latest_sample", instanceName)
}

// SampleEventsChannel returns the Pub/Sub channel name for sample events.
// Every PublishSample dispatches an Envelope JSON on this channel.
// Pattern: anchor:{instance_name}:sample_events
func SampleEventsChannel(instanceName string) string {
	return fmt.Sprintf("anchor:%s:sample_events", instanceName)
}
