// Package debounce provides a reusable cancel-and-replace timer primitive.
//
// Undo checkpointing, recovery snapshots and autosave all coalesce rapid
// successive inputs into one effect. They share this single implementation
// instead of carrying their own timer bookkeeping.
package debounce

import (
	"sync"
	"time"
)

// Debouncer executes a function after a quiet period. Rapid successive calls
// replace the pending timer rather than stacking new ones, so at most one
// effect is ever pending.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	pending  func()
	duration time.Duration
}

// New creates a debouncer with the given quiet window.
func New(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Do schedules fn after the quiet window, replacing any pending call.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.pending = fn
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		fn := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()

		if fn != nil {
			fn()
		}
	})
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Flush runs the pending call immediately, if any. Used on shutdown and after
// explicit saves, where waiting out the quiet window would lose work.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Pending reports whether a call is waiting on the quiet window.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
