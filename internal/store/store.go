// Package store holds the embedded-side authoritative location slot.
//
// The store is the single piece of shared mutable state in the guard: one
// slot holding the last-known-good sample. The receive handler and the
// widget policy are its only writers; the reconciliation loop and the
// disruption recheck only read it.
package store

import (
	"sync"

	"github.com/dyluth/anchor/pkg/bridge"
)

// Authoritative is the single-slot store of the most recent accepted sample.
// It enforces the monotonicity invariant: a sample with a smaller timestamp
// never replaces one with a larger timestamp, regardless of arrival order.
//
// The store is safe for concurrent use. The guard's event loop, the widget
// policy, and the imperative entry point may all apply samples.
type Authoritative struct {
	mu     sync.Mutex
	latest *bridge.LocationSample

	// onUpdate, if set, is invoked after every successful replace, outside
	// the lock. The guard uses it to force an immediate reconciliation pass
	// instead of waiting for the next periodic tick.
	onUpdate func(bridge.LocationSample)
}

// New creates an empty store. The slot stays empty until the first sample
// is applied; it holds the maximum-timestamp sample seen so far thereafter.
func New() *Authoritative {
	return &Authoritative{}
}

// OnUpdate registers the hook invoked after each successful replace.
// Must be called before the store is shared; not safe to call concurrently
// with Apply.
func (a *Authoritative) OnUpdate(fn func(bridge.LocationSample)) {
	a.onUpdate = fn
}

// Apply offers a sample to the store. Invalid samples are rejected with an
// error. A valid sample replaces the slot's content when the slot is empty
// or when the sample's timestamp is >= the stored one; otherwise the sample
// is stale and discarded.
//
// Returns true if the slot was replaced.
func (a *Authoritative) Apply(sample bridge.LocationSample) (bool, error) {
	if err := sample.Validate(); err != nil {
		return false, err
	}

	a.mu.Lock()
	if a.latest != nil && sample.TimestampMs < a.latest.TimestampMs {
		a.mu.Unlock()
		return false, nil
	}
	a.latest = &sample
	a.mu.Unlock()

	if a.onUpdate != nil {
		a.onUpdate(sample)
	}
	return true, nil
}

// Latest returns a copy of the stored sample, or ok=false if no sample has
// been accepted yet.
func (a *Authoritative) Latest() (bridge.LocationSample, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.latest == nil {
		return bridge.LocationSample{}, false
	}
	return *a.latest, true
}

// Coordinate returns the stored sample's position, or ok=false if the store
// is empty. Convenience for the widget policy and the reconciliation loop,
// which only care about the position.
func (a *Authoritative) Coordinate() (bridge.Coordinate, bool) {
	sample, ok := a.Latest()
	if !ok {
		return bridge.Coordinate{}, false
	}
	return sample.Coordinate(), true
}

// Clear empties the slot. Used when the embedded runtime is torn down;
// the native side re-sends the latest sample after reload completes.
func (a *Authoritative) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest = nil
}
