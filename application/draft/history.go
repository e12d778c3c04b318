// Package draft holds the editing-session machinery: linear undo/redo over
// a single value, the crash-recovery snapshot, and the per-field session
// that composes them with autosave.
package draft

import (
	"sync"
	"time"

	"mirror-backend/pkg/debounce"
	pkgerrors "mirror-backend/pkg/errors"
)

// History is a generic linear undo/redo stack over a single value. Rapid
// non-checkpoint sets coalesce into one history entry through a debounce
// window; the past is capped with FIFO eviction.
//
// Equality is decided by the caller-supplied predicate, never by reference
// identity, so value types and freshly parsed equal strings behave sanely.
type History[T any] struct {
	mu sync.Mutex

	past    []T
	present T
	future  []T

	// pendingBase is the present captured at the first set of a coalescing
	// burst; it is pushed once when the burst goes quiet
	pendingBase *T

	capacity  int
	equals    func(a, b T) bool
	debouncer *debounce.Debouncer
}

// NewHistory creates a history seeded with the initial present value.
// The equality predicate is required; capacity bounds the past.
func NewHistory[T any](initial T, capacity int, window time.Duration, equals func(a, b T) bool) (*History[T], error) {
	if equals == nil {
		return nil, pkgerrors.NewValidationError("equality predicate is required")
	}
	if capacity <= 0 {
		return nil, pkgerrors.NewValidationError("capacity must be positive")
	}
	return &History[T]{
		present:   initial,
		capacity:  capacity,
		equals:    equals,
		debouncer: debounce.New(window),
	}, nil
}

// Set adopts value as the new present. With checkpoint the prior present is
// pushed immediately; without it the push is debounced so per-keystroke
// edits collapse into one entry. A value equal to the present is a no-op.
// Any effective set clears the redo future.
func (h *History[T]) Set(value T, checkpoint bool) {
	h.mu.Lock()

	if h.equals(value, h.present) {
		h.mu.Unlock()
		return
	}

	h.future = nil

	if checkpoint {
		h.commitPendingLocked()
		h.pushPastLocked(h.present)
		h.present = value
		h.mu.Unlock()
		return
	}

	if h.pendingBase == nil {
		base := h.present
		h.pendingBase = &base
	}
	h.present = value
	h.mu.Unlock()

	h.debouncer.Do(func() {
		h.mu.Lock()
		h.commitPendingLocked()
		h.mu.Unlock()
	})
}

// Undo moves the most recent past entry into present. No-op with empty
// past. A pending coalesced entry is committed first so the undo lands on
// the expected value.
func (h *History[T]) Undo() {
	h.debouncer.Cancel()
	h.mu.Lock()
	defer h.mu.Unlock()

	h.commitPendingLocked()

	if len(h.past) == 0 {
		return
	}

	last := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]T{h.present}, h.future...)
	h.present = last
}

// Redo is the symmetric inverse of Undo. No-op with empty future.
func (h *History[T]) Redo() {
	h.debouncer.Cancel()
	h.mu.Lock()
	defer h.mu.Unlock()

	h.commitPendingLocked()

	if len(h.future) == 0 {
		return
	}

	next := h.future[0]
	h.future = h.future[1:]
	h.pushPastLocked(h.present)
	h.present = next
}

// Clear empties past and future, keeping the present unchanged
func (h *History[T]) Clear() {
	h.debouncer.Cancel()
	h.mu.Lock()
	defer h.mu.Unlock()

	h.past = nil
	h.future = nil
	h.pendingBase = nil
}

// Reset replaces the present and discards all history, for loading a new
// document where the prior history is meaningless
func (h *History[T]) Reset(value T) {
	h.debouncer.Cancel()
	h.mu.Lock()
	defer h.mu.Unlock()

	h.present = value
	h.past = nil
	h.future = nil
	h.pendingBase = nil
}

// Flush commits any pending coalesced entry immediately, for deterministic
// tests and shutdown
func (h *History[T]) Flush() {
	h.debouncer.Cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commitPendingLocked()
}

// Present returns the current value
func (h *History[T]) Present() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.present
}

// CanUndo reports whether an undo would change the present. A pending
// coalesced entry counts: it becomes a past entry the moment undo runs.
func (h *History[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0 || h.pendingBase != nil
}

// CanRedo reports whether a redo would change the present
func (h *History[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// Depth returns the committed past and future lengths
func (h *History[T]) Depth() (past, future int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past), len(h.future)
}

// commitPendingLocked pushes the base of an in-flight coalescing burst.
// Caller holds mu.
func (h *History[T]) commitPendingLocked() {
	if h.pendingBase == nil {
		return
	}
	h.pushPastLocked(*h.pendingBase)
	h.pendingBase = nil
}

// pushPastLocked appends to the past, evicting the oldest entry at
// capacity. Caller holds mu.
func (h *History[T]) pushPastLocked(value T) {
	if len(h.past) >= h.capacity {
		h.past = h.past[1:]
	}
	h.past = append(h.past, value)
}
