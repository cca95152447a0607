package reconcile

import (
	"sync"

	"github.com/five82/prospector/internal/regolith"
)

// Watermark is the delta cursor. It only moves forward.
type Watermark struct {
	mu        sync.Mutex
	lastCheck int64
	lastFull  int64
}

// Value returns the cursor for the next delta query, in epoch ms.
func (w *Watermark) Value() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastCheck
}

// RecordFullFetch notes when a full fetch completed. Empty delta batches
// advance the cursor up to this point.
func (w *Watermark) RecordFullFetch(ms int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ms > w.lastFull {
		w.lastFull = ms
	}
}

// Restore seeds the cursor from a persisted value.
func (w *Watermark) Restore(ms int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ms > w.lastCheck {
		w.lastCheck = ms
	}
}

// Observe advances the cursor past batch and returns the new value: to the
// largest eventDate, or to the last full fetch when batch is empty.
func (w *Watermark) Observe(batch []regolith.Delta) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.lastFull
	if len(batch) > 0 {
		next = batch[0].EventDate
		for _, d := range batch[1:] {
			if d.EventDate > next {
				next = d.EventDate
			}
		}
	}
	if next > w.lastCheck {
		w.lastCheck = next
	}
	return w.lastCheck
}
