package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrack() []TrackPoint {
	return []TrackPoint{
		{Latitude: 37.123, Longitude: 127.456},
		{Latitude: 37.223, Longitude: 127.456},
		{Latitude: 37.323, Longitude: 127.456},
	}
}

func TestNewReplaySource(t *testing.T) {
	t.Run("accepts valid track", func(t *testing.T) {
		src, err := NewReplaySource(testTrack())
		require.NoError(t, err)
		assert.NotNil(t, src)
	})

	t.Run("rejects invalid track point", func(t *testing.T) {
		_, err := NewReplaySource([]TrackPoint{{Latitude: 95, Longitude: 0}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index 0")
	})
}

func TestLoadReplaySource(t *testing.T) {
	t.Run("loads YAML track file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "track.yml")
		trackYML := `points:
  - latitude: 37.123
    longitude: 127.456
    heading: 90
  - latitude: 37.223
    longitude: 127.456
`
		require.NoError(t, os.WriteFile(path, []byte(trackYML), 0644))

		src, err := LoadReplaySource(path)
		require.NoError(t, err)

		sample, err := src.PullOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 37.123, sample.Latitude)
		require.NotNil(t, sample.Heading)
		assert.Equal(t, 90.0, *sample.Heading)
	})

	t.Run("rejects empty track file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.yml")
		require.NoError(t, os.WriteFile(path, []byte("points: []\n"), 0644))

		_, err := LoadReplaySource(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no points")
	})

	t.Run("rejects missing file", func(t *testing.T) {
		_, err := LoadReplaySource(filepath.Join(t.TempDir(), "missing.yml"))
		assert.Error(t, err)
	})
}

func TestPullOnce(t *testing.T) {
	t.Run("advances through the track and wraps", func(t *testing.T) {
		src, err := NewReplaySource(testTrack())
		require.NoError(t, err)
		ctx := context.Background()

		var lats []float64
		for i := 0; i < 4; i++ {
			sample, err := src.PullOnce(ctx)
			require.NoError(t, err)
			assert.Positive(t, sample.TimestampMs)
			lats = append(lats, sample.Latitude)
		}

		assert.Equal(t, []float64{37.123, 37.223, 37.323, 37.123}, lats)
	})

	t.Run("empty source is unavailable", func(t *testing.T) {
		src, err := NewReplaySource(nil)
		require.NoError(t, err)

		_, err = src.PullOnce(context.Background())
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		src, err := NewReplaySource(testTrack())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = src.PullOnce(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("emits at the configured cadence", func(t *testing.T) {
		src, err := NewReplaySource(testTrack())
		require.NoError(t, err)

		stream, err := src.Subscribe(context.Background(), Options{Cadence: 10 * time.Millisecond})
		require.NoError(t, err)
		defer stream.Close()

		for i := 0; i < 3; i++ {
			select {
			case sample := <-stream.Samples():
				require.NotNil(t, sample)
				assert.NoError(t, sample.Validate())
			case <-time.After(time.Second):
				t.Fatal("timeout waiting for sample")
			}
		}
	})

	t.Run("min distance suppresses stationary samples", func(t *testing.T) {
		// Two points ~11km apart, then the same point repeated
		src, err := NewReplaySource([]TrackPoint{
			{Latitude: 37.0, Longitude: 127.0},
			{Latitude: 37.1, Longitude: 127.0},
			{Latitude: 37.1, Longitude: 127.0},
			{Latitude: 37.1, Longitude: 127.0},
		})
		require.NoError(t, err)

		stream, err := src.Subscribe(context.Background(), Options{
			Cadence:           5 * time.Millisecond,
			MinDistanceMeters: 100,
		})
		require.NoError(t, err)
		defer stream.Close()

		first := <-stream.Samples()
		assert.Equal(t, 37.0, first.Latitude)

		second := <-stream.Samples()
		assert.Equal(t, 37.1, second.Latitude)

		// The repeated points are suppressed; the next emission is the
		// wrap back to the first point.
		third := <-stream.Samples()
		assert.Equal(t, 37.0, third.Latitude)
	})

	t.Run("close terminates the stream", func(t *testing.T) {
		src, err := NewReplaySource(testTrack())
		require.NoError(t, err)

		stream, err := src.Subscribe(context.Background(), Options{Cadence: 5 * time.Millisecond})
		require.NoError(t, err)

		require.NoError(t, stream.Close())
		require.NoError(t, stream.Close()) // idempotent

		assert.Eventually(t, func() bool {
			_, ok := <-stream.Samples()
			return !ok
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("empty source cannot subscribe", func(t *testing.T) {
		src, err := NewReplaySource(nil)
		require.NoError(t, err)

		_, err = src.Subscribe(context.Background(), Options{})
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})
}

func TestDistanceMeters(t *testing.T) {
	seoul := bridge.Coordinate{Lat: 37.5665, Lng: 126.9780}
	busan := bridge.Coordinate{Lat: 35.1796, Lng: 129.0756}

	// Roughly 325km apart
	d := distanceMeters(seoul, busan)
	assert.InDelta(t, 325000, d, 10000)

	assert.Zero(t, distanceMeters(seoul, seoul))
}
