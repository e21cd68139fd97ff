package store

import (
	"sync"
	"testing"

	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(ts int64, lat, lng float64) bridge.LocationSample {
	return bridge.LocationSample{Latitude: lat, Longitude: lng, TimestampMs: ts}
}

func TestApply(t *testing.T) {
	t.Run("first sample fills empty slot", func(t *testing.T) {
		s := New()

		applied, err := s.Apply(sampleAt(1000, 37.123, 127.456))
		require.NoError(t, err)
		assert.True(t, applied)

		latest, ok := s.Latest()
		require.True(t, ok)
		assert.Equal(t, int64(1000), latest.TimestampMs)
	})

	t.Run("fresher sample replaces", func(t *testing.T) {
		s := New()
		_, err := s.Apply(sampleAt(1000, 1, 2))
		require.NoError(t, err)

		applied, err := s.Apply(sampleAt(2000, 3, 4))
		require.NoError(t, err)
		assert.True(t, applied)

		latest, _ := s.Latest()
		assert.Equal(t, int64(2000), latest.TimestampMs)
		assert.Equal(t, 3.0, latest.Latitude)
	})

	t.Run("stale sample is discarded", func(t *testing.T) {
		s := New()
		_, err := s.Apply(sampleAt(1000, 37.123, 127.456))
		require.NoError(t, err)

		applied, err := s.Apply(sampleAt(900, 55.0, 66.0))
		require.NoError(t, err)
		assert.False(t, applied)

		latest, _ := s.Latest()
		assert.Equal(t, int64(1000), latest.TimestampMs)
		assert.Equal(t, 37.123, latest.Latitude)
	})

	t.Run("equal timestamp replaces", func(t *testing.T) {
		s := New()
		_, err := s.Apply(sampleAt(1000, 1, 2))
		require.NoError(t, err)

		applied, err := s.Apply(sampleAt(1000, 3, 4))
		require.NoError(t, err)
		assert.True(t, applied)

		latest, _ := s.Latest()
		assert.Equal(t, 3.0, latest.Latitude)
	})

	t.Run("invalid sample never enters the slot", func(t *testing.T) {
		s := New()
		_, err := s.Apply(sampleAt(1000, 95.0, 0))
		require.Error(t, err)
		assert.True(t, bridge.IsInvalid(err))

		_, ok := s.Latest()
		assert.False(t, ok)
	})
}

// Monotonicity: for samples delivered in any interleaving, the slot always
// holds the maximum-timestamp sample seen so far.
func TestApplyMonotonicity(t *testing.T) {
	s := New()

	order := []int64{500, 1500, 700, 1500, 100, 2000, 1999}
	var maxSeen int64
	for _, ts := range order {
		_, err := s.Apply(sampleAt(ts, 10, 20))
		require.NoError(t, err)
		if ts > maxSeen {
			maxSeen = ts
		}
		latest, ok := s.Latest()
		require.True(t, ok)
		assert.GreaterOrEqual(t, latest.TimestampMs, ts)
		assert.Equal(t, maxSeen, latest.TimestampMs)
	}
}

func TestApplyConcurrent(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			_, err := s.Apply(sampleAt(ts, 10, 20))
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(100), latest.TimestampMs)
}

func TestOnUpdate(t *testing.T) {
	t.Run("fires on replace", func(t *testing.T) {
		s := New()
		var got []int64
		s.OnUpdate(func(sample bridge.LocationSample) {
			got = append(got, sample.TimestampMs)
		})

		_, err := s.Apply(sampleAt(1000, 1, 2))
		require.NoError(t, err)
		_, err = s.Apply(sampleAt(2000, 3, 4))
		require.NoError(t, err)

		assert.Equal(t, []int64{1000, 2000}, got)
	})

	t.Run("does not fire on stale discard", func(t *testing.T) {
		s := New()
		fired := 0
		s.OnUpdate(func(bridge.LocationSample) { fired++ })

		_, err := s.Apply(sampleAt(1000, 1, 2))
		require.NoError(t, err)
		_, err = s.Apply(sampleAt(900, 1, 2))
		require.NoError(t, err)

		assert.Equal(t, 1, fired)
	})
}

func TestClear(t *testing.T) {
	s := New()
	_, err := s.Apply(sampleAt(1000, 1, 2))
	require.NoError(t, err)

	s.Clear()

	_, ok := s.Latest()
	assert.False(t, ok)
	_, ok = s.Coordinate()
	assert.False(t, ok)

	// After a clear, any valid sample fills the slot again
	applied, err := s.Apply(sampleAt(500, 1, 2))
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestCoordinate(t *testing.T) {
	s := New()
	_, err := s.Apply(sampleAt(1000, 37.5, 127.0))
	require.NoError(t, err)

	coord, ok := s.Coordinate()
	require.True(t, ok)
	assert.Equal(t, bridge.Coordinate{Lat: 37.5, Lng: 127.0}, coord)
}
