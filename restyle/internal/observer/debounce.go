package observer

import "time"

// Target is one element a settled correction pass must visit.
type Target struct {
	// XPath locates the element in the live document.
	XPath string
	// Subtree means the pass must also visit the element's descendants
	// (child-list insertions); attribute changes target only the element.
	Subtree bool
}

// debounceConfig controls the batching behaviour.
type debounceConfig struct {
	// Window is the quiescence window. Default: 100ms.
	Window time.Duration
	// MaxBuffer flushes immediately when this many distinct targets
	// accumulate. Default: 1000.
	MaxBuffer int
}

func (dc *debounceConfig) defaults() {
	if dc.Window <= 0 {
		dc.Window = 100 * time.Millisecond
	}
	if dc.MaxBuffer <= 0 {
		dc.MaxBuffer = 1000
	}
}

// debouncer coalesces mutation targets and emits one deduplicated batch per
// quiescence window: every add resets the timer, so a bursty stream of N
// events inside one window collapses to a single flush covering their union.
type debouncer struct {
	cfg     debounceConfig
	pending map[string]Target
	timer   *time.Timer
	timerCh <-chan time.Time
	flushFn func([]Target)
}

func newDebouncer(cfg debounceConfig, flushFn func([]Target)) *debouncer {
	cfg.defaults()
	return &debouncer{
		cfg:     cfg,
		pending: make(map[string]Target),
		flushFn: flushFn,
	}
}

// add merges a target into the pending set and restarts the window timer.
// A target seen both as an attribute change and a subtree insertion keeps
// the subtree flag.
func (d *debouncer) add(t Target) {
	if prev, ok := d.pending[t.XPath]; ok {
		t.Subtree = t.Subtree || prev.Subtree
	}
	d.pending[t.XPath] = t

	if len(d.pending) >= d.cfg.MaxBuffer {
		d.flush()
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.cfg.Window)
	d.timerCh = d.timer.C
}

// timerC returns the channel that fires when the window expires.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

// flush emits the pending set and resets.
func (d *debouncer) flush() {
	if len(d.pending) == 0 {
		return
	}

	batch := make([]Target, 0, len(d.pending))
	for _, t := range d.pending {
		batch = append(batch, t)
	}
	d.pending = make(map[string]Target)
	d.stopTimer()

	d.flushFn(batch)
}

// cancel discards the pending set and timer without flushing. Used on stop:
// no correction pass may run once the observer is stopped.
func (d *debouncer) cancel() {
	d.pending = make(map[string]Target)
	d.stopTimer()
}

func (d *debouncer) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
}
