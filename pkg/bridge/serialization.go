package bridge

import (
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// The retained latest sample is stored as a Redis hash so individual fields
// stay inspectable from redis-cli. Optional fields (heading, accuracy) are
// simply absent from the hash when unknown.

// SampleToHash converts a LocationSample to a Redis hash format.
func SampleToHash(s *LocationSample) map[string]interface{} {
	hash := map[string]interface{}{
		"latitude":     strconv.FormatFloat(s.Latitude, 'f', -1, 64),
		"longitude":    strconv.FormatFloat(s.Longitude, 'f', -1, 64),
		"timestamp_ms": s.TimestampMs,
	}

	if s.Heading != nil {
		hash["heading"] = strconv.FormatFloat(*s.Heading, 'f', -1, 64)
	}
	if s.Accuracy != nil {
		hash["accuracy"] = strconv.FormatFloat(*s.Accuracy, 'f', -1, 64)
	}

	return hash
}

// HashToSample converts a Redis hash back to a LocationSample.
func HashToSample(hash map[string]string) (*LocationSample, error) {
	lat, err := strconv.ParseFloat(hash["latitude"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude field: %w", err)
	}

	lng, err := strconv.ParseFloat(hash["longitude"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude field: %w", err)
	}

	tsMs, err := strconv.ParseInt(hash["timestamp_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp_ms field: %w", err)
	}

	sample := &LocationSample{
		Latitude:    lat,
		Longitude:   lng,
		TimestampMs: tsMs,
	}

	if raw, ok := hash["heading"]; ok && raw != "" {
		heading, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid heading field: %w", err)
		}
		sample.Heading = &heading
	}

	if raw, ok := hash["accuracy"]; ok && raw != "" {
		accuracy, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid accuracy field: %w", err)
		}
		sample.Accuracy = &accuracy
	}

	return sample, nil
}
