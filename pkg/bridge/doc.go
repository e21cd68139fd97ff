// Package bridge provides type-safe Go definitions and Redis schema patterns
// for the Anchor location bridge.
//
// # Overview
//
// The bridge is the one-way channel between the two halves of an Anchor
// deployment: the native side, which owns the device-location source, and the
// embedded web-surface runtime, which owns the map widgets being defended.
// Samples flow native → embedded only; the embedded side never writes back
// over the bridge.
//
// # Core Concepts
//
// LocationSamples are immutable device-location readings, totally ordered by
// timestamp. The receive handler on the embedded side enforces the
// monotonicity invariant: a stale sample never overwrites a fresher one, no
// matter what order the transport delivered them in.
//
// Envelopes are the tagged transport messages of the declarative delivery
// path. The INIT tag marks out-of-cadence pushes (content just loaded, user
// pressed refresh); UPDATE marks samples from the continuous subscription.
//
// The retained latest sample covers the two gaps Pub/Sub leaves open: a
// subscriber that attaches after a publish, and an embedded runtime that is
// torn down and reloaded mid-session.
//
// # Delivery Semantics
//
// Delivery is best-effort with no acknowledgement. Correctness does not
// depend on any single send arriving: the guard's reconciliation loop
// re-reads the authoritative store on every tick, so a lost event costs at
// most one tick period of staleness.
//
// # Usage Example
//
//	import "github.com/dyluth/anchor/pkg/bridge"
//
//	client, err := bridge.NewClient(&redis.Options{Addr: "localhost:6379"}, "default-1")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	sample := bridge.LocationSample{
//		Latitude:    37.123,
//		Longitude:   127.456,
//		TimestampMs: time.Now().UnixMilli(),
//	}
//	if err := client.PublishSample(ctx, bridge.MessageTypeUpdate, sample); err != nil {
//		log.Fatal(err)
//	}
//
// # Redis Schema
//
// Latest sample: anchor:{instance_name}:latest_sample (hash)
//
// Sample events: anchor:{instance_name}:sample_events (Pub/Sub, Envelope JSON)
//
// # Design Principles
//
// - Type Safety: all data structures have strong typing with validation methods
// - Immutability: samples are immutable once created
// - Ordering: receivers order by timestamp, never by arrival
// - Isolation: instance namespacing prevents cross-instance interference
package bridge
