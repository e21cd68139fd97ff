package source

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/dyluth/anchor/pkg/bridge"
	"gopkg.in/yaml.v3"
)

// TrackPoint is one fixture position in a replay track file.
type TrackPoint struct {
	Latitude  float64  `yaml:"latitude"`
	Longitude float64  `yaml:"longitude"`
	Heading   *float64 `yaml:"heading,omitempty"`
	Accuracy  *float64 `yaml:"accuracy,omitempty"`
}

// Track is the YAML document a replay source loads.
type Track struct {
	Points []TrackPoint `yaml:"points"`
}

// ReplaySource replays a fixed track of positions, stamping each emitted
// sample with the current time. It loops over the track indefinitely: a real
// device keeps producing fixes, and so does the replay.
//
// ReplaySource is the supplied Source implementation for demos and tests;
// production device providers implement Source themselves.
type ReplaySource struct {
	mu     sync.Mutex
	points []TrackPoint
	next   int
}

// NewReplaySource creates a replay source over the given track points.
// Returns an error if any point carries invalid coordinates.
func NewReplaySource(points []TrackPoint) (*ReplaySource, error) {
	for i, p := range points {
		if err := bridge.ValidateCoordinate(p.Latitude, p.Longitude); err != nil {
			return nil, fmt.Errorf("invalid track point at index %d: %w", i, err)
		}
	}

	return &ReplaySource{points: points}, nil
}

// LoadReplaySource reads a YAML track file and creates a replay source.
func LoadReplaySource(path string) (*ReplaySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read track file: %w", err)
	}

	var track Track
	if err := yaml.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("failed to parse track file: %w", err)
	}

	if len(track.Points) == 0 {
		return nil, fmt.Errorf("track file %s contains no points", path)
	}

	return NewReplaySource(track.Points)
}

// PullOnce returns the track's next position stamped now.
// Fails with ErrServiceUnavailable if the track is empty.
func (r *ReplaySource) PullOnce(ctx context.Context) (*bridge.LocationSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.points) == 0 {
		return nil, ErrServiceUnavailable
	}

	sample := r.sampleLocked()
	return sample, nil
}

// Subscribe emits track positions at the configured cadence, suppressing
// points that moved less than the distance threshold. The stream terminates
// only on Close or context cancellation.
func (r *ReplaySource) Subscribe(ctx context.Context, opts Options) (*Stream, error) {
	r.mu.Lock()
	empty := len(r.points) == 0
	r.mu.Unlock()
	if empty {
		return nil, ErrServiceUnavailable
	}

	if opts.Cadence <= 0 {
		opts.Cadence = time.Second
	}

	samplesChan := make(chan *bridge.LocationSample, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(samplesChan)
		defer close(errorsChan)

		ticker := time.NewTicker(opts.Cadence)
		defer ticker.Stop()

		var last *bridge.LocationSample

		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
				r.mu.Lock()
				sample := r.sampleLocked()
				r.mu.Unlock()

				if last != nil && opts.MinDistanceMeters > 0 {
					moved := distanceMeters(last.Coordinate(), sample.Coordinate())
					if moved < opts.MinDistanceMeters {
						continue
					}
				}
				last = sample

				select {
				case samplesChan <- sample:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return NewStream(samplesChan, errorsChan, cancelFunc), nil
}

// sampleLocked builds a sample from the next track point and advances the
// cursor, wrapping at the end of the track. Caller holds r.mu.
func (r *ReplaySource) sampleLocked() *bridge.LocationSample {
	p := r.points[r.next]
	r.next = (r.next + 1) % len(r.points)

	return &bridge.LocationSample{
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Heading:     p.Heading,
		Accuracy:    p.Accuracy,
		TimestampMs: time.Now().UnixMilli(),
	}
}

const earthRadiusMeters = 6371000

// distanceMeters is the haversine great-circle distance between two
// coordinates. Accurate enough for a metres-scale movement gate.
func distanceMeters(a, b bridge.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
