// Package reconcile corrects map-widget drift toward the authoritative
// store. It is the backstop for resets that bypass the interceptor entirely:
// a widget created before installation, or third-party code mutating widget
// state without going through the wrapped method.
package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/dyluth/anchor/internal/store"
	"github.com/dyluth/anchor/internal/widget"
	"github.com/dyluth/anchor/pkg/bridge"
)

// HandleSource supplies the live widget handles to examine each tick.
// The interceptor implements this.
type HandleSource interface {
	Handles() []*widget.Handle
}

// Loop periodically compares each live widget's displayed centre against the
// authoritative store and re-centres any widget showing the default centre.
// A forced pass can be scheduled at any time with TriggerNow; forced passes
// coalesce, so many triggers in a burst cost one pass.
type Loop struct {
	handles       HandleSource
	store         *store.Authoritative
	defaultCenter bridge.Coordinate
	epsilon       float64
	period        time.Duration

	trigger chan struct{}
}

// NewLoop creates a reconciliation loop. Run must be called to start it.
func NewLoop(handles HandleSource, st *store.Authoritative, defaultCenter bridge.Coordinate, epsilon float64, period time.Duration) *Loop {
	if period <= 0 {
		period = 1500 * time.Millisecond
	}

	return &Loop{
		handles:       handles,
		store:         st,
		defaultCenter: defaultCenter,
		epsilon:       epsilon,
		period:        period,
		trigger:       make(chan struct{}, 1),
	}
}

// TriggerNow schedules an immediate reconciliation pass, independent of the
// periodic cadence. Safe to call from any goroutine; never blocks.
func (l *Loop) TriggerNow() {
	select {
	case l.trigger <- struct{}{}:
	default:
		// A pass is already pending; it will see the latest store state.
	}
}

// TriggerAfter schedules a reconciliation pass after the given delay.
// Used by the disruption recheck, which fires shortly after a suspect
// network call settles.
func (l *Loop) TriggerAfter(delay time.Duration) {
	time.AfterFunc(delay, l.TriggerNow)
}

// Run executes passes on the fixed period and on every trigger, blocking
// until the context is cancelled. A pass that finds nothing to do is a no-op.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	log.Printf("[Reconcile] Loop started (period %v)", l.period)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Reconcile] Loop stopped")
			return nil
		case <-ticker.C:
			l.Pass()
		case <-l.trigger:
			l.Pass()
		}
	}
}

// Pass runs one reconciliation pass over all live handles.
// Exported so the guard's receive handler can reconcile synchronously when
// running without the loop goroutine (tests, imperative updates).
func (l *Loop) Pass() {
	stored, ok := l.store.Coordinate()
	if !ok {
		// Nothing authoritative to restore toward yet.
		return
	}

	for _, h := range l.handles.Handles() {
		displayed, ok := h.DisplayedCenter()
		if !ok {
			continue
		}

		if !displayed.EqualWithin(l.defaultCenter, l.epsilon) {
			continue
		}
		if displayed.EqualWithin(stored, l.epsilon) {
			// The authoritative position is the default region; leave it.
			continue
		}

		log.Printf("[Reconcile] handle %s drifted to default centre, restoring (%v, %v)", h.ID, stored.Lat, stored.Lng)
		h.SetCenterDirect(stored.Lat, stored.Lng)
	}
}
