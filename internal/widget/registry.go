// Package widget defends third-party map widgets against unwanted
// centre resets.
//
// The third-party mapping library cannot be patched and its construction
// entry point cannot be monkey-patched in Go, so the host environment exposes
// widget creation as an interceptable hook by design: all widget creation
// goes through a single Registry, and the Interceptor installs itself there.
package widget

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dyluth/anchor/pkg/bridge"
)

// ErrLibraryNotReady indicates the mapping library has not registered its
// widget factory yet (or never did within the installation retry budget).
var ErrLibraryNotReady = errors.New("map library not ready")

// Widget is the contract the third-party mapping library's map object must
// satisfy: a named centre-mutation method and a way to read the displayed
// centre. No other API surface of the library is touched.
type Widget interface {
	SetCenter(lat, lng float64)
	Center() bridge.Coordinate
}

// Factory is the library's widget-construction entry point.
type Factory interface {
	New() Widget
}

// FactoryFunc adapts a plain constructor function to the Factory interface.
type FactoryFunc func() Widget

// New calls f.
func (f FactoryFunc) New() Widget { return f() }

// Registry is the single registration point all widget creation goes
// through. The embedding application registers the mapping library's factory
// once; the interceptor wraps creation by installing a wrapper here.
//
// Widgets created before the interceptor installs are returned unwrapped —
// their SetCenter cannot be policy-checked retroactively — but the registry
// remembers them, and the interceptor adopts them as handles at install time
// so the reconciliation loop still corrects their drift.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	wrap    func(Widget) Widget
	pending []Widget

	readyOnce sync.Once
	ready     chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ready: make(chan struct{}),
	}
}

// RegisterFactory registers the mapping library's widget factory.
// Returns an error if a factory is already registered or f is nil.
func (r *Registry) RegisterFactory(f Factory) error {
	if f == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.factory != nil {
		return fmt.Errorf("a widget factory is already registered")
	}
	r.factory = f

	// Readiness signal: lets the interceptor's install poll exit early
	// instead of sleeping out its interval.
	r.readyOnce.Do(func() { close(r.ready) })

	return nil
}

// Ready returns a channel closed once a factory has been registered.
func (r *Registry) Ready() <-chan struct{} {
	return r.ready
}

// HasFactory reports whether a factory has been registered.
func (r *Registry) HasFactory() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.factory != nil
}

// NewWidget constructs a widget through the registered factory.
// If the interceptor has installed its wrapper, the returned widget's
// SetCenter is policy-checked; otherwise the raw widget is returned and
// remembered for adoption at install time.
// Returns ErrLibraryNotReady if no factory is registered.
func (r *Registry) NewWidget() (Widget, error) {
	r.mu.Lock()
	factory := r.factory
	wrap := r.wrap
	r.mu.Unlock()

	if factory == nil {
		return nil, ErrLibraryNotReady
	}

	w := factory.New()
	if w == nil {
		return nil, fmt.Errorf("widget factory returned nil")
	}

	if wrap != nil {
		return wrap(w), nil
	}

	r.mu.Lock()
	// The wrapper may have landed while the factory ran; prefer wrapping
	// over deferred adoption when it has.
	if r.wrap != nil {
		wrap = r.wrap
		r.mu.Unlock()
		return wrap(w), nil
	}
	r.pending = append(r.pending, w)
	r.mu.Unlock()
	return w, nil
}

// installWrapper activates the interceptor's construction wrapper.
// Widgets created from this point on are wrapped. Returns the widgets
// created before installation, for the caller to adopt; the registry
// forgets them.
func (r *Registry) installWrapper(wrap func(Widget) Widget) []Widget {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrap = wrap
	pending := r.pending
	r.pending = nil
	return pending
}
