// Package guard runs the embedded-side half of Anchor: it receives samples
// off the bridge, maintains the authoritative store, and drives the
// interceptor, reconciliation loop and disruption recheck that defend the
// map widgets.
package guard

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/dyluth/anchor/internal/config"
	"github.com/dyluth/anchor/internal/disrupt"
	"github.com/dyluth/anchor/internal/reconcile"
	"github.com/dyluth/anchor/internal/store"
	"github.com/dyluth/anchor/internal/widget"
	"github.com/dyluth/anchor/pkg/bridge"
)

// Engine is the embedded-side runtime. It owns the single authoritative
// store and the two independent enforcers of the centre invariant: the
// interceptor (in the write path) and the reconciliation loop (the periodic
// backstop). They both write to the widgets but never to each other.
type Engine struct {
	client       *bridge.Client
	instanceName string

	store        *store.Authoritative
	registry     *widget.Registry
	interceptor  *widget.Interceptor
	loop         *reconcile.Loop
	matcher      *disrupt.Matcher
	recheckDelay time.Duration

	healthServer *HealthServer

	wg sync.WaitGroup
}

// NewEngine wires up an engine from validated configuration.
// The registry is where the embedding application registers its map
// library's widget factory; the engine wraps creation once installed.
func NewEngine(client *bridge.Client, cfg *config.AnchorConfig, registry *widget.Registry) *Engine {
	st := store.New()

	interceptor := widget.NewInterceptor(registry, st, widget.PolicyConfig{
		DefaultCenter: cfg.DefaultCenter(),
		Epsilon:       *cfg.Map.Epsilon,
		RetryInterval: cfg.RetryInterval(),
		RetryBudget:   *cfg.Reconcile.RetryBudget,
	})

	loop := reconcile.NewLoop(interceptor, st, cfg.DefaultCenter(), *cfg.Map.Epsilon, cfg.ReconcilePeriod())

	// A fresh sample must move the visible map within a frame, not a tick.
	st.OnUpdate(func(bridge.LocationSample) {
		loop.TriggerNow()
	})

	e := &Engine{
		client:       client,
		instanceName: cfg.Instance,
		store:        st,
		registry:     registry,
		interceptor:  interceptor,
		loop:         loop,
		matcher:      disrupt.NewMatcher(cfg.Reconcile.Keywords),
		recheckDelay: cfg.RecheckDelay(),
	}
	e.healthServer = NewHealthServer(client, e, cfg.HealthAddr())
	return e
}

// Run starts the engine and blocks until the context is cancelled.
// Startup order: health server, interceptor installation (in the
// background, it may wait for the library), reconciliation loop, retained
// sample recovery, then the event subscription.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.healthServer.Start(); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}
	defer e.healthServer.Shutdown(context.Background())

	log.Printf("[Guard] Starting for instance '%s'", e.instanceName)

	// Interceptor installation polls for the map library; a budget
	// exhaustion degrades to "no defence installed" rather than failing Run.
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.interceptor.Install(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[Guard] Interceptor not installed: %v", err)
		}
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.loop.Run(ctx)
	}()

	// The embedded runtime may have just (re)loaded: recover the retained
	// latest sample instead of waiting for the next publish.
	e.recoverRetained(ctx)

	subscription, err := e.client.SubscribeSampleEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to sample events: %w", err)
	}
	defer subscription.Close()

	log.Printf("[Guard] Subscribed to sample_events")

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Guard] Shutting down...")
			e.wg.Wait()
			return nil

		case envelope, ok := <-subscription.Events():
			if !ok {
				log.Printf("[Guard] Subscription closed")
				e.wg.Wait()
				return nil
			}
			e.applySample(envelope.Sample, string(envelope.Type))

		case err, ok := <-subscription.Errors():
			if !ok {
				log.Printf("[Guard] Error channel closed")
				e.wg.Wait()
				return nil
			}
			log.Printf("[Guard] Subscription error: %v", err)
			// Continue processing - errors are non-fatal
		}
	}
}

// UpdateLocation is the well-known imperative entry point: the native side
// (or the embedding application) pushes a sample synchronously, passing the
// fields positionally. It funnels into the same receive handler as the
// declarative path, so the monotonicity invariant applies uniformly.
func (e *Engine) UpdateLocation(lat, lng, heading float64) {
	sample := bridge.LocationSample{
		Latitude:    lat,
		Longitude:   lng,
		Heading:     &heading,
		TimestampMs: time.Now().UnixMilli(),
	}
	e.applySample(sample, "imperative")
}

// applySample is the single receive handler both delivery paths funnel into.
// Invalid samples are dropped here, never reaching the store or a widget;
// stale samples are discarded by the store's monotonicity check.
func (e *Engine) applySample(sample bridge.LocationSample, origin string) {
	applied, err := e.store.Apply(sample)
	if err != nil {
		log.Printf("[Guard] Dropping %s sample: %v", origin, err)
		return
	}
	if !applied {
		log.Printf("[Guard] Discarded stale %s sample (ts=%d)", origin, sample.TimestampMs)
		return
	}
	log.Printf("[Guard] Applied %s sample (%v, %v, ts=%d)", origin, sample.Latitude, sample.Longitude, sample.TimestampMs)
}

// recoverRetained pulls the retained latest sample from the bridge, if any.
func (e *Engine) recoverRetained(ctx context.Context) {
	sample, err := e.client.GetLatestSample(ctx)
	if err != nil {
		if bridge.IsNotFound(err) {
			log.Printf("[Guard] No retained sample to recover")
			return
		}
		log.Printf("[Guard] Failed to recover retained sample: %v", err)
		return
	}
	e.applySample(*sample, "retained")
}

// Store exposes the authoritative store for in-process readers.
func (e *Engine) Store() *store.Authoritative {
	return e.store
}

// Registry exposes the widget registration point.
func (e *Engine) Registry() *widget.Registry {
	return e.registry
}

// InterceptorInstalled reports whether the construction wrapper is active.
func (e *Engine) InterceptorInstalled() bool {
	return e.interceptor.Installed()
}

// TriggerReconcile schedules an immediate reconciliation pass.
func (e *Engine) TriggerReconcile() {
	e.loop.TriggerNow()
}

// HTTPClient wraps client so the embedded content's outbound calls schedule
// disruption rechecks. Pass nil for a wrapped default client.
func (e *Engine) HTTPClient(client *http.Client) *http.Client {
	return disrupt.WrapClient(client, e.matcher, e.loop, e.recheckDelay)
}

// LegacyDoer wraps the legacy request object the same way.
func (e *Engine) LegacyDoer(d disrupt.Doer) disrupt.Doer {
	return disrupt.WrapDoer(d, e.matcher, e.loop, e.recheckDelay)
}
