package widget

import (
	"log"
	"sync"

	"github.com/dyluth/anchor/pkg/bridge"
)

// Handle tracks one wrapped widget instance. Each handle carries its own
// first-call flag and the widget's original centre-mutation entry point,
// captured once at wrap time so the unwrapped behaviour stays invocable.
//
// Multiple handles may exist concurrently if the embedding application
// creates more than one widget; each is wrapped independently, but all share
// the single authoritative store.
type Handle struct {
	// ID uniquely identifies this handle in logs.
	ID string

	widget   Widget
	original func(lat, lng float64)

	mu                      sync.Mutex
	firstCenterCallConsumed bool
}

// consumeFirstCall returns true exactly once, on the first centre-set call
// this handle sees. The very first centre-set on widget construction is the
// library's own benign initialisation and must never be blocked, or the
// widget fails to render at all.
func (h *Handle) consumeFirstCall() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.firstCenterCallConsumed {
		return false
	}
	h.firstCenterCallConsumed = true
	return true
}

// FirstCenterCallConsumed reports whether the handle's first centre-set call
// has happened yet.
func (h *Handle) FirstCenterCallConsumed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.firstCenterCallConsumed
}

// SetCenterDirect invokes the original, unwrapped centre-mutation entry
// point, bypassing the policy. This is the path the reconciliation loop and
// the policy's substitution branch use. A panic in the third-party widget is
// contained here: one widget's failure must not stop the loop or the other
// widgets.
func (h *Handle) SetCenterDirect(lat, lng float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Widget] handle %s: panic in centre-set: %v", h.ID, r)
		}
	}()
	h.original(lat, lng)
}

// DisplayedCenter reads the widget's current displayed centre.
// Returns ok=false if the widget panics while reporting it.
func (h *Handle) DisplayedCenter() (coord bridge.Coordinate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Widget] handle %s: panic reading centre: %v", h.ID, r)
			ok = false
		}
	}()
	return h.widget.Center(), true
}
