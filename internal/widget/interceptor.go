package widget

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dyluth/anchor/internal/store"
	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/google/uuid"
)

// PolicyConfig carries the interceptor's decision parameters.
type PolicyConfig struct {
	// DefaultCenter is the third-party app's hard-coded fallback centre.
	// Every occurrence of this literal after a widget's first centre-set
	// call is treated as an unwanted reset.
	DefaultCenter bridge.Coordinate

	// Epsilon is the floating-point equality tolerance for recognising
	// DefaultCenter.
	Epsilon float64

	// RetryInterval is how often Install polls for the library's factory.
	RetryInterval time.Duration

	// RetryBudget is the maximum number of polls before Install gives up
	// and the guard degrades to "no defence installed".
	RetryBudget int
}

// Interceptor wraps the mapping library's widget construction so every
// widget created after installation has its centre-mutation method replaced
// by a policy-checked version.
//
// The policy makes the default coordinate the only distinguishing signal:
// the interceptor cannot otherwise tell a malicious reset apart from a
// legitimate centre change issued through the same API.
type Interceptor struct {
	registry *Registry
	store    *store.Authoritative
	cfg      PolicyConfig

	// nowMs stamps store writes originating from centre-set calls.
	nowMs func() int64

	mu        sync.Mutex
	installed bool
	handles   []*Handle
}

// NewInterceptor creates an interceptor. Install must be called before it
// has any effect.
func NewInterceptor(registry *Registry, st *store.Authoritative, cfg PolicyConfig) *Interceptor {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = 20
	}

	return &Interceptor{
		registry: registry,
		store:    st,
		cfg:      cfg,
		nowMs:    func() int64 { return time.Now().UnixMilli() },
	}
}

// Install waits for the mapping library's factory to appear in the registry,
// polling at the configured interval within the configured budget, then
// installs the construction wrapper. Widgets created before installation
// cannot have their SetCenter retroactively wrapped, but Install adopts each
// of them as a tracked handle so the reconciliation loop covers them.
//
// Returns ErrLibraryNotReady if the budget is exhausted; the guard keeps
// running without the defence, relying on the reconciliation loop's logs to
// make the degradation visible.
func (i *Interceptor) Install(ctx context.Context) error {
	ticker := time.NewTicker(i.cfg.RetryInterval)
	defer ticker.Stop()

	for attempt := 0; ; attempt++ {
		if i.registry.HasFactory() {
			pending := i.registry.installWrapper(i.wrapWidget)
			for _, w := range pending {
				i.adoptWidget(w)
			}
			i.mu.Lock()
			i.installed = true
			i.mu.Unlock()
			log.Printf("[Interceptor] Installed after %d poll(s), adopted %d pre-existing widget(s)", attempt, len(pending))
			return nil
		}

		if attempt >= i.cfg.RetryBudget {
			log.Printf("[Interceptor] Map library not ready after %d polls, giving up (no defence installed)", attempt)
			return ErrLibraryNotReady
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-i.registry.Ready():
			// Factory just registered; loop re-checks immediately.
		case <-ticker.C:
		}
	}
}

// Installed reports whether the construction wrapper is active.
func (i *Interceptor) Installed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.installed
}

// Handles returns the live wrapped widget handles.
func (i *Interceptor) Handles() []*Handle {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]*Handle, len(i.handles))
	copy(out, i.handles)
	return out
}

// wrapWidget is the construction wrapper installed into the registry.
// It captures the widget's original centre-mutation entry point before
// wrapping, creates a tracked handle, and returns the policy-checked widget.
func (i *Interceptor) wrapWidget(w Widget) Widget {
	handle := &Handle{
		ID:       uuid.New().String(),
		widget:   w,
		original: w.SetCenter,
	}

	i.mu.Lock()
	i.handles = append(i.handles, handle)
	i.mu.Unlock()

	log.Printf("[Interceptor] Wrapped new widget %s", handle.ID)

	return &guardedWidget{
		interceptor: i,
		handle:      handle,
		inner:       w,
	}
}

// adoptWidget tracks a widget that was constructed before installation.
// The embedding application already holds the raw widget, so its SetCenter
// stays unwrapped; the handle exists purely for reconciliation. Its first
// centre-set call happened long ago, outside our sight.
func (i *Interceptor) adoptWidget(w Widget) {
	handle := &Handle{
		ID:                      uuid.New().String(),
		widget:                  w,
		original:                w.SetCenter,
		firstCenterCallConsumed: true,
	}

	i.mu.Lock()
	i.handles = append(i.handles, handle)
	i.mu.Unlock()

	log.Printf("[Interceptor] Adopted pre-existing widget %s (reconcile only)", handle.ID)
}

// guardedWidget is the policy-checked widget returned to the embedding
// application. Centre reads pass through; centre writes run the policy.
type guardedWidget struct {
	interceptor *Interceptor
	handle      *Handle
	inner       Widget
}

func (g *guardedWidget) Center() bridge.Coordinate {
	return g.inner.Center()
}

func (g *guardedWidget) SetCenter(lat, lng float64) {
	g.interceptor.applyPolicy(g.handle, lat, lng)
}

// applyPolicy runs the centre-set decision policy for one requested centre
// on one handle:
//
//  1. Malformed coordinates are dropped outright.
//  2. The handle's first call passes through unconditionally; a non-default
//     first centre also seeds the store (the first real fix may arrive via
//     application code before the bridge delivers one).
//  3. A default centre with a non-empty store is blocked and replaced by the
//     stored coordinates.
//  4. A default centre with an empty store is blocked with no replacement:
//     there is nothing authoritative to substitute yet.
//  5. Any other centre passes through and becomes the new authoritative
//     value, timestamped now.
func (i *Interceptor) applyPolicy(h *Handle, lat, lng float64) {
	if err := bridge.ValidateCoordinate(lat, lng); err != nil {
		log.Printf("[Interceptor] handle %s: dropping centre-set: %v", h.ID, err)
		return
	}

	requested := bridge.Coordinate{Lat: lat, Lng: lng}
	isDefault := requested.EqualWithin(i.cfg.DefaultCenter, i.cfg.Epsilon)

	if h.consumeFirstCall() {
		h.SetCenterDirect(lat, lng)
		if !isDefault {
			i.seedStore(h, lat, lng)
		}
		return
	}

	if isDefault {
		stored, ok := i.store.Coordinate()
		if !ok {
			log.Printf("[Interceptor] handle %s: blocked default-centre reset (store empty, nothing to substitute)", h.ID)
			return
		}
		log.Printf("[Interceptor] handle %s: blocked default-centre reset, substituting (%v, %v)", h.ID, stored.Lat, stored.Lng)
		h.SetCenterDirect(stored.Lat, stored.Lng)
		return
	}

	// Legitimate non-default centre change: apply and adopt as authoritative.
	h.SetCenterDirect(lat, lng)
	i.seedStore(h, lat, lng)
}

// seedStore writes a centre-set call's coordinates into the store as if they
// were a location sample taken now.
func (i *Interceptor) seedStore(h *Handle, lat, lng float64) {
	sample := bridge.LocationSample{
		Latitude:    lat,
		Longitude:   lng,
		TimestampMs: i.nowMs(),
	}
	if _, err := i.store.Apply(sample); err != nil {
		log.Printf("[Interceptor] handle %s: failed to adopt centre as authoritative: %v", h.ID, err)
	}
}
