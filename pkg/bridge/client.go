package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the location bridge.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new bridge client for the specified instance.
// The client automatically namespaces all keys and channels with the instance name.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: Anchor instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
// Returns an error if Redis is not reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PublishSample delivers a sample over the bridge's declarative path.
// Validates the sample, writes it as the retained latest sample, then
// publishes an Envelope to anchor:{instance}:sample_events.
//
// Delivery is best-effort and requires no acknowledgement: a subscriber that
// misses the event recovers from the retained sample or from the
// reconciliation loop's next pass. Publish order is preserved per client
// connection; receivers still enforce the monotonicity invariant, so
// transport reordering cannot corrupt state.
func (c *Client) PublishSample(ctx context.Context, msgType MessageType, sample LocationSample) error {
	if err := msgType.Validate(); err != nil {
		return fmt.Errorf("invalid message type: %w", err)
	}

	if err := sample.Validate(); err != nil {
		return fmt.Errorf("invalid sample: %w", err)
	}

	// Retain as latest so late subscribers and reloaded runtimes can recover
	key := LatestSampleKey(c.instanceName)
	if err := c.rdb.HSet(ctx, key, SampleToHash(&sample)).Err(); err != nil {
		return fmt.Errorf("failed to write latest sample to Redis: %w", err)
	}

	// Publish event
	envelope := NewEnvelope(msgType, sample)
	envelopeJSON, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	channel := SampleEventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, envelopeJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish sample event: %w", err)
	}

	return nil
}

// GetLatestSample retrieves the retained latest sample.
// Returns (nil, redis.Nil) if no sample has ever been published.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetLatestSample(ctx context.Context) (*LocationSample, error) {
	key := LatestSampleKey(c.instanceName)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read latest sample from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	sample, err := HashToSample(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize latest sample: %w", err)
	}

	return sample, nil
}

// Subscription represents an active Pub/Sub subscription to sample events.
// Caller must call Close() when done to clean up resources.
// Subscriptions deliver full envelopes via the Events() channel.
type Subscription struct {
	events <-chan *Envelope
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of sample envelopes.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Envelope {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeSampleEvents subscribes to sample events for this instance.
// Returns a Subscription that delivers full envelopes.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery); the retained latest sample and the reconciliation
// loop are the safety net.
func (c *Client) SubscribeSampleEvents(ctx context.Context) (*Subscription, error) {
	channel := SampleEventsChannel(c.instanceName)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *Envelope, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var envelope Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
					// Send error on error channel, skip message
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal sample event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &envelope:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
