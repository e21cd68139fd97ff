// Package bridge provides type-safe Go definitions and Redis schema patterns
// for the Anchor location bridge. The bridge is the one-way channel that carries
// authoritative device-location samples from the native side of the host shell
// into the embedded web-surface runtime.
//
// All Redis keys and channels are namespaced by instance name to enable
// multiple Anchor instances to safely coexist on a single Redis server.
package bridge

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// LocationSample represents a single device-location reading.
// Samples are immutable once created and are totally ordered by TimestampMs:
// the receive handler never lets a sample with a smaller timestamp overwrite
// a stored sample with a larger one (monotonicity invariant).
type LocationSample struct {
	Latitude    float64  `json:"latitude"`           // Degrees, must be within [-90, 90]
	Longitude   float64  `json:"longitude"`          // Degrees, must be within [-180, 180]
	Heading     *float64 `json:"heading,omitempty"`  // Degrees clockwise from north, nil if unknown
	Accuracy    *float64 `json:"accuracy,omitempty"` // Metres (radius), nil if unknown
	TimestampMs int64    `json:"timestamp_ms"`       // Unix timestamp in milliseconds when the fix was taken
}

// Coordinate is a bare latitude/longitude pair. Used for map-centre
// comparisons where no timestamp or fix metadata is involved.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EqualWithin reports whether both components of c are within epsilon of
// other. This is the comparison used to recognise the third-party app's
// hard-coded default centre, which always arrives as the exact same literal.
func (c Coordinate) EqualWithin(other Coordinate, epsilon float64) bool {
	return math.Abs(c.Lat-other.Lat) < epsilon && math.Abs(c.Lng-other.Lng) < epsilon
}

// Coordinate returns the sample's position as a bare Coordinate.
func (s *LocationSample) Coordinate() Coordinate {
	return Coordinate{Lat: s.Latitude, Lng: s.Longitude}
}

// MessageType tags an envelope with the cause of the send.
type MessageType string

const (
	// MessageTypeInit marks a sample pushed outside the subscription cadence:
	// the first sample after the embedded content loads, or a user-requested
	// manual refresh. Receivers treat INIT and UPDATE identically; the tag
	// exists for observability.
	MessageTypeInit MessageType = "INIT"

	// MessageTypeUpdate marks a sample produced by the continuous
	// subscription stream.
	MessageTypeUpdate MessageType = "UPDATE"
)

// Envelope is the tagged transport message carried over the bridge's
// declarative delivery path.
type Envelope struct {
	ID     string         `json:"id"`   // UUID - unique per send, for tracing
	Type   MessageType    `json:"type"` // INIT or UPDATE
	Sample LocationSample `json:"data"` // The sample payload
}

// Validate checks that the sample's coordinates are numeric and in range
// and that the timestamp is set. Invalid samples are dropped at the edge:
// they never reach the store or a widget.
func (s *LocationSample) Validate() error {
	if err := validateCoordinate(s.Latitude, s.Longitude); err != nil {
		return err
	}

	if s.Heading != nil && (math.IsNaN(*s.Heading) || math.IsInf(*s.Heading, 0)) {
		return fmt.Errorf("%w: heading is not a finite number", ErrInvalidCoordinates)
	}

	if s.Accuracy != nil && (math.IsNaN(*s.Accuracy) || *s.Accuracy < 0) {
		return fmt.Errorf("%w: accuracy must be a non-negative number", ErrInvalidCoordinates)
	}

	if s.TimestampMs <= 0 {
		return fmt.Errorf("invalid sample: timestamp_ms must be > 0, got %d", s.TimestampMs)
	}

	return nil
}

// Validate checks if the MessageType is a valid enum value.
func (mt MessageType) Validate() error {
	switch mt {
	case MessageTypeInit, MessageTypeUpdate:
		return nil
	default:
		return fmt.Errorf("unknown message type: %q", mt)
	}
}

// Validate checks if the Envelope has valid field values.
func (e *Envelope) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid envelope ID: not a valid UUID")
	}

	if err := e.Type.Validate(); err != nil {
		return fmt.Errorf("invalid envelope: %w", err)
	}

	if err := e.Sample.Validate(); err != nil {
		return fmt.Errorf("invalid envelope: %w", err)
	}

	return nil
}

// NewEnvelope wraps a sample in an envelope with a fresh ID.
func NewEnvelope(msgType MessageType, sample LocationSample) *Envelope {
	return &Envelope{
		ID:     uuid.New().String(),
		Type:   msgType,
		Sample: sample,
	}
}

// validateCoordinate checks a bare latitude/longitude pair for range and
// finiteness. Shared by sample validation and the widget policy layer, which
// must reject malformed centre-set calls before they reach the widget.
func validateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinates, lat)
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinates, lng)
	}
	return nil
}

// ValidateCoordinate checks a bare latitude/longitude pair without
// constructing a sample. Returns ErrInvalidCoordinates-wrapped errors.
func ValidateCoordinate(lat, lng float64) error {
	return validateCoordinate(lat, lng)
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
