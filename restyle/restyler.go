// Package restyle coordinates the redim machinery on a live page: it
// reconciles the page between Active (stylesheets injected, mutations
// observed, inline backgrounds corrected) and Inactive (everything removed
// and restored) according to the enabled preference.
package restyle

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/hazyhaar/redim/prefs"
)

// Restyler drives a Surface from the preference store. All state changes
// funnel through setActive under one lock, so concurrent preference events
// and shutdown cannot interleave activation steps.
type Restyler struct {
	surf   Surface
	store  *prefs.Store
	logger *slog.Logger

	mu     sync.Mutex
	active bool
}

// New creates a Restyler. The surface starts Inactive; call Sync to adopt
// the stored preference.
func New(surf Surface, store *prefs.Store, logger *slog.Logger) *Restyler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Restyler{surf: surf, store: store, logger: logger}
}

// Active reports whether the page is currently restyled.
func (r *Restyler) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Sync reconciles the page with the stored enabled preference. Called once
// after page load, and again whenever a caller wants to force convergence.
func (r *Restyler) Sync(ctx context.Context) error {
	return r.setActive(ctx, r.store.Enabled(ctx))
}

// OnPrefChange is the preference watcher callback. Only the enabled key is
// acted on; a change to the already-current state is a no-op.
func (r *Restyler) OnPrefChange(ctx context.Context, ev prefs.Event) {
	if ev.Key != prefs.KeyEnabled {
		return
	}
	want, err := strconv.ParseBool(ev.New)
	if err != nil {
		// Deleted or garbage value falls back to the default.
		want = true
	}
	if err := r.setActive(ctx, want); err != nil {
		r.logger.Error("restyle: apply preference failed", "enabled", want, "error", err)
	}
}

// Rebind swaps in a fresh surface after a browser restart. The old page is
// gone with the old browser, so there is nothing to revert; if restyling
// was active it is re-established on the new surface.
func (r *Restyler) Rebind(ctx context.Context, surf Surface) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasActive := r.active
	if wasActive {
		// Release the old observer goroutines; their page is dead.
		r.surf.StopObserving()
	}
	r.surf = surf
	r.active = false
	if !wasActive {
		return nil
	}
	return r.activate(ctx)
}

// Shutdown restores the page before the process exits. The tab may outlive
// redim (headful mode, user's own browser), so leaving corrections behind
// would strand the page half-themed with no way back.
func (r *Restyler) Shutdown(ctx context.Context) {
	if err := r.setActive(ctx, false); err != nil {
		r.logger.Warn("restyle: shutdown restore failed", "error", err)
	}
}

func (r *Restyler) setActive(ctx context.Context, want bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if want == r.active {
		return nil
	}
	if want {
		return r.activate(ctx)
	}
	return r.deactivate(ctx)
}

// activate: stylesheets first so the page repaints wholesale, then the
// observer so no mutation lands unwatched, then one full pass for elements
// that predate observation. Stylesheet failure aborts with the page
// untouched; a failed scan does not, the observer will catch up.
func (r *Restyler) activate(ctx context.Context) error {
	if err := r.surf.EnsureStylesheets(); err != nil {
		return err
	}
	if err := r.surf.StartObserving(ctx); err != nil {
		if rmErr := r.surf.RemoveStylesheets(); rmErr != nil {
			r.logger.Warn("restyle: rollback stylesheets failed", "error", rmErr)
		}
		return err
	}

	n, err := r.surf.ScanAll(ctx)
	if err != nil {
		r.logger.Warn("restyle: initial scan failed", "error", err)
	}

	r.active = true
	r.logger.Info("restyle: activated", "corrected", n)
	return nil
}

// deactivate: remove stylesheets, stop observing (synchronous, so no pass
// can run afterwards), then restore every corrected element. Partial
// failures are logged and the remaining steps still run; the state flips
// to Inactive regardless so a retry is a fresh activation.
func (r *Restyler) deactivate(ctx context.Context) error {
	if err := r.surf.RemoveStylesheets(); err != nil {
		r.logger.Warn("restyle: remove stylesheets failed", "error", err)
	}
	r.surf.StopObserving()

	n, err := r.surf.RevertAll(ctx)
	if err != nil {
		r.logger.Warn("restyle: revert failed", "error", err)
	}

	r.active = false
	r.logger.Info("restyle: deactivated", "reverted", n)
	return nil
}
