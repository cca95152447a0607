package reconcile

import (
	"testing"

	"github.com/five82/prospector/internal/regolith"
)

func batchAt(dates ...int64) []regolith.Delta {
	out := make([]regolith.Delta, len(dates))
	for i, d := range dates {
		out[i] = regolith.Delta{EventDate: d}
	}
	return out
}

func TestWatermark_Observe(t *testing.T) {
	var w Watermark

	if got := w.Observe(batchAt(5, 3, 8)); got != 8 {
		t.Fatalf("Observe([5 3 8]) = %d, want 8", got)
	}
	if got := w.Observe(nil); got != 8 {
		t.Fatalf("Observe(empty) = %d, want 8", got)
	}
	if got := w.Observe(batchAt(2)); got != 8 {
		t.Fatalf("Observe([2]) = %d, want 8 (never regresses)", got)
	}
	if got := w.Value(); got != 8 {
		t.Fatalf("Value = %d, want 8", got)
	}
}

func TestWatermark_EmptyBatchMovesToFullFetch(t *testing.T) {
	var w Watermark
	w.Observe(batchAt(100))

	w.RecordFullFetch(500)
	if got := w.Observe(nil); got != 500 {
		t.Fatalf("Observe(empty) = %d, want 500", got)
	}

	w.RecordFullFetch(200)
	if got := w.Observe(nil); got != 500 {
		t.Fatalf("Observe(empty) after older full fetch = %d, want 500", got)
	}
}

func TestWatermark_Restore(t *testing.T) {
	var w Watermark
	w.Restore(42)
	if got := w.Value(); got != 42 {
		t.Fatalf("Value = %d, want 42", got)
	}
	w.Restore(10)
	if got := w.Value(); got != 42 {
		t.Fatalf("Value after older restore = %d, want 42", got)
	}
	if got := w.Observe(nil); got != 42 {
		t.Fatalf("Observe(empty) without full fetch = %d, want 42", got)
	}
}
