package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-instance", client.instanceName)
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "instance name cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	err := client.Ping(ctx)
	assert.NoError(t, err)
}

func TestPublishSample(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("retains valid sample as latest", func(t *testing.T) {
		sample := LocationSample{
			Latitude:    37.123,
			Longitude:   127.456,
			TimestampMs: 1000,
		}

		err := client.PublishSample(ctx, MessageTypeInit, sample)
		assert.NoError(t, err)

		retrieved, err := client.GetLatestSample(ctx)
		require.NoError(t, err)
		assert.Equal(t, sample.Latitude, retrieved.Latitude)
		assert.Equal(t, sample.Longitude, retrieved.Longitude)
		assert.Equal(t, sample.TimestampMs, retrieved.TimestampMs)
	})

	t.Run("later publish replaces retained sample", func(t *testing.T) {
		first := LocationSample{Latitude: 1, Longitude: 2, TimestampMs: 1000}
		second := LocationSample{Latitude: 3, Longitude: 4, TimestampMs: 2000}

		require.NoError(t, client.PublishSample(ctx, MessageTypeUpdate, first))
		require.NoError(t, client.PublishSample(ctx, MessageTypeUpdate, second))

		retrieved, err := client.GetLatestSample(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.TimestampMs, retrieved.TimestampMs)
	})

	t.Run("rejects invalid coordinates", func(t *testing.T) {
		sample := LocationSample{Latitude: 95, Longitude: 0, TimestampMs: 1000}
		err := client.PublishSample(ctx, MessageTypeUpdate, sample)
		require.Error(t, err)
		assert.True(t, IsInvalid(err))
	})

	t.Run("rejects invalid message type", func(t *testing.T) {
		sample := LocationSample{Latitude: 1, Longitude: 2, TimestampMs: 1000}
		err := client.PublishSample(ctx, MessageType("RESET"), sample)
		assert.Error(t, err)
	})
}

func TestGetLatestSample(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("returns not-found before any publish", func(t *testing.T) {
		_, err := client.GetLatestSample(ctx)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestSubscribeSampleEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := client.SubscribeSampleEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	// Give the subscriber goroutine time to attach before publishing
	time.Sleep(50 * time.Millisecond)

	sample := LocationSample{Latitude: 37.123, Longitude: 127.456, TimestampMs: 1000}
	require.NoError(t, client.PublishSample(ctx, MessageTypeUpdate, sample))

	select {
	case envelope := <-sub.Events():
		require.NotNil(t, envelope)
		assert.Equal(t, MessageTypeUpdate, envelope.Type)
		assert.Equal(t, sample.Latitude, envelope.Sample.Latitude)
		assert.Equal(t, sample.TimestampMs, envelope.Sample.TimestampMs)
		assert.NoError(t, envelope.Validate())
	case err := <-sub.Errors():
		t.Fatalf("unexpected subscription error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for sample event")
	}
}

func TestSubscriptionClose(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeSampleEvents(ctx)
	require.NoError(t, err)

	// Close is idempotent
	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())

	// Events channel drains and closes after cancellation
	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}
