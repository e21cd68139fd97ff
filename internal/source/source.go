// Package source defines the device-location provider boundary.
//
// The bridge treats pull and subscribe as producers of the same sample type
// and does not distinguish their origin downstream. Permission prompts and
// device-service availability are entirely the provider's concern; they
// surface here only as the two sentinel errors.
package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dyluth/anchor/pkg/bridge"
)

// ErrPermissionDenied indicates the user has not granted location access.
var ErrPermissionDenied = errors.New("location permission denied")

// ErrServiceUnavailable indicates the device location service cannot
// currently produce a fix.
var ErrServiceUnavailable = errors.New("location service unavailable")

// Options configures a continuous subscription.
type Options struct {
	// Cadence is the interval between emitted samples.
	Cadence time.Duration

	// MinDistanceMeters suppresses samples that moved less than this from
	// the previously emitted one. Zero emits every sample.
	MinDistanceMeters float64
}

// Source produces device-location samples.
type Source interface {
	// PullOnce returns a single fresh sample. Fails with
	// ErrPermissionDenied or ErrServiceUnavailable.
	PullOnce(ctx context.Context) (*bridge.LocationSample, error)

	// Subscribe returns a continuous stream of samples at the configured
	// cadence and distance threshold. The stream terminates only on
	// explicit Close or context cancellation.
	Subscribe(ctx context.Context, opts Options) (*Stream, error)
}

// Stream is an active sample subscription.
// Caller must call Close() when done to clean up resources.
type Stream struct {
	samples <-chan *bridge.LocationSample
	errors  <-chan error
	cancel  func()
	once    sync.Once
}

// NewStream builds a Stream over provider-owned channels.
// Providers close the channels when cancel takes effect.
func NewStream(samples <-chan *bridge.LocationSample, errs <-chan error, cancel func()) *Stream {
	return &Stream{
		samples: samples,
		errors:  errs,
		cancel:  cancel,
	}
}

// Samples returns the channel of location samples.
// The channel is closed when the stream is closed or the context is cancelled.
func (s *Stream) Samples() <-chan *bridge.LocationSample {
	return s.samples
}

// Errors returns the channel of non-fatal stream errors.
// The stream continues after errors - affected samples are skipped.
func (s *Stream) Errors() <-chan error {
	return s.errors
}

// Close stops the stream and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Stream) Close() error {
	s.once.Do(s.cancel)
	return nil
}
