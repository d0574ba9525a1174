// Package observer batches CDP DOM mutation events into bounded-frequency
// correction passes. It subscribes to child-list and style-attribute
// changes, coalesces them through a quiescence-window debouncer, and hands
// the settled, deduplicated target set to an Applier aligned with the
// page's paint cycle.
package observer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Applier processes settled mutation batches.
type Applier interface {
	// Apply runs one correction pass over the targets.
	Apply(ctx context.Context, targets []Target)
	// Reset handles a document replacement: stylesheets and corrections
	// must be re-established from scratch.
	Reset(ctx context.Context)
}

// Config for creating an Observer.
type Config struct {
	Page      *rod.Page
	Applier   Applier
	Window    time.Duration
	MaxBuffer int
	Logger    *slog.Logger
}

type eventKind int

const (
	evInsert eventKind = iota
	evStyle
)

type event struct {
	kind   eventKind
	nodeID proto.DOMNodeID
}

// Observer is the mutation batcher for a single page. It is either Stopped
// or Observing; Start while observing and Stop while stopped are no-ops, so
// at most one live subscription exists per page.
type Observer struct {
	page    *rod.Page
	applier Applier
	logger  *slog.Logger
	cfg     debounceConfig

	nodes *nodeMap

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	rawCh   chan event
	resetCh chan struct{}
	applyCh chan []Target
}

// New creates an Observer for the given page.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Observer{
		page:    cfg.Page,
		applier: cfg.Applier,
		logger:  cfg.Logger,
		cfg:     debounceConfig{Window: cfg.Window, MaxBuffer: cfg.MaxBuffer},
		nodes:   newNodeMap(),
	}
}

// Start transitions Stopped → Observing: waits for the document body to
// exist, enables CDP DOM tracking, and launches the event, debounce, and
// apply loops. No-op when already observing.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil
	}

	cctx, cancel := context.WithCancel(ctx)

	if err := o.waitForBody(cctx); err != nil {
		cancel()
		return fmt.Errorf("observer: wait for body: %w", err)
	}
	if err := o.initTracking(); err != nil {
		cancel()
		return fmt.Errorf("observer: init DOM tracking: %w", err)
	}

	o.cancel = cancel
	o.rawCh = make(chan event, 4096)
	o.resetCh = make(chan struct{}, 1)
	o.applyCh = make(chan []Target, 1)

	o.wg.Add(3)
	go o.listen(cctx)
	go o.loop(cctx)
	go o.applyLoop(cctx)

	o.running = true
	o.logger.Info("observer: started", "window", o.cfg.Window)
	return nil
}

// Stop transitions Observing → Stopped, synchronously: any pending debounce
// timer is cancelled and all loops have exited before Stop returns, so no
// correction pass runs afterwards. No-op when already stopped.
func (o *Observer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return
	}

	o.cancel()
	o.wg.Wait()
	o.running = false
	o.logger.Info("observer: stopped")
}

// Observing reports the current state.
func (o *Observer) Observing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// waitForBody polls until document.body exists. The page may still be
// parsing its head when observation starts; failing would be wrong, the
// body is about to appear.
func (o *Observer) waitForBody(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		res, err := o.page.Context(ctx).Eval(`() => !!document.body`)
		if err == nil && res.Value.Bool() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// initTracking enables the DOM domain and requests the full document with
// depth=-1. Without this CDP silently drops mutation events on deep nodes.
func (o *Observer) initTracking() error {
	if err := (proto.DOMEnable{}).Call(o.page); err != nil {
		return fmt.Errorf("DOM.enable: %w", err)
	}

	depth := -1
	doc, err := proto.DOMGetDocument{Depth: &depth, Pierce: true}.Call(o.page)
	if err != nil {
		return fmt.Errorf("DOM.getDocument: %w", err)
	}

	o.nodes.buildFromDocument(doc.Root)
	o.logger.Debug("observer: DOM tracking initialised", "nodes", len(o.nodes.paths))
	return nil
}

// listen subscribes to the CDP DOM events in a single goroutine.
func (o *Observer) listen(ctx context.Context) {
	defer o.wg.Done()

	wait := o.page.Context(ctx).EachEvent(
		func(e *proto.DOMChildNodeInserted) {
			o.nodes.addNode(e.ParentNodeID, e.Node)
			if e.Node.NodeType != 1 {
				return // only elements carry inline styles
			}
			o.enqueue(event{kind: evInsert, nodeID: e.Node.NodeID})
		},

		func(e *proto.DOMChildNodeRemoved) {
			o.nodes.removeNode(e.NodeID)
		},

		func(e *proto.DOMAttributeModified) {
			if e.Name != "style" {
				return
			}
			o.enqueue(event{kind: evStyle, nodeID: e.NodeID})
		},

		func(e *proto.DOMAttributeRemoved) {
			if e.Name != "style" {
				return
			}
			o.enqueue(event{kind: evStyle, nodeID: e.NodeID})
		},

		func(e *proto.DOMDocumentUpdated) {
			select {
			case o.resetCh <- struct{}{}:
			default:
			}
		},
	)

	wait()
}

// enqueue must never block the CDP event loop; under extreme pressure the
// event is dropped and the element will be caught by a later pass or reset.
func (o *Observer) enqueue(ev event) {
	select {
	case o.rawCh <- ev:
	default:
		o.logger.Debug("observer: raw channel full, dropping event", "node", ev.nodeID)
	}
}

// loop turns raw events into debounced batches.
func (o *Observer) loop(ctx context.Context) {
	defer o.wg.Done()

	d := newDebouncer(o.cfg, func(targets []Target) {
		select {
		case o.applyCh <- targets:
		case <-ctx.Done():
		}
	})

	for {
		select {
		case <-ctx.Done():
			d.cancel()
			return

		case ev := <-o.rawCh:
			xpath := o.nodes.xpath(ev.nodeID)
			if xpath == "" {
				continue // node already gone or never tracked
			}
			d.add(Target{XPath: xpath, Subtree: ev.kind == evInsert})

		case <-d.timerC():
			d.flush()

		case <-o.resetCh:
			d.cancel()
			o.handleReset(ctx)
		}
	}
}

// applyLoop runs settled batches, aligned with the next paint so correction
// work lands between frames instead of inside the observer callback.
func (o *Observer) applyLoop(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case targets := <-o.applyCh:
			o.awaitFrame(ctx)
			select {
			case <-ctx.Done():
				return
			default:
			}
			o.applier.Apply(ctx, targets)
		}
	}
}

// awaitFrame blocks until the page's next requestAnimationFrame callback.
// Best effort: an eval failure (page navigating, frame detached) just means
// the pass runs immediately.
func (o *Observer) awaitFrame(ctx context.Context) {
	_, err := o.page.Context(ctx).Eval(`() => new Promise(r => requestAnimationFrame(() => r(true)))`)
	if err != nil {
		o.logger.Debug("observer: frame wait failed", "error", err)
	}
}

// handleReset processes DOM.documentUpdated: the whole document was
// replaced, node IDs are void. Rebuild tracking, then let the applier
// re-establish stylesheets and corrections.
func (o *Observer) handleReset(ctx context.Context) {
	o.logger.Info("observer: document updated, re-initialising")

	if err := o.initTracking(); err != nil {
		o.logger.Error("observer: re-init DOM tracking failed", "error", err)
		return
	}
	o.applier.Reset(ctx)
}
