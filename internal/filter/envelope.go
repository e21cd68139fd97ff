// Package filter narrows a sample-event stream to the envelopes a watcher
// cares about.
package filter

import (
	"github.com/dyluth/anchor/pkg/bridge"
)

// Criteria defines filtering criteria for sample envelopes.
// All filters are ANDed together - an envelope must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64              // Sample timestamp lower bound, 0 = no filter
	UntilTimestampMs int64              // Sample timestamp upper bound, 0 = no filter
	Type             bridge.MessageType // INIT or UPDATE, empty = no filter
}

// Matches returns true if the envelope matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(env *bridge.Envelope) bool {
	// Time filtering - check the sample's own timestamp
	if c.SinceTimestampMs > 0 && env.Sample.TimestampMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && env.Sample.TimestampMs > c.UntilTimestampMs {
		return false
	}

	// Message type filtering - exact match
	if c.Type != "" && env.Type != c.Type {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.Type != ""
}
