package state

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestStore_RecordDeltaAndSnapshot(t *testing.T) {
	var s Store
	s.SetSession("sess1")

	before := time.Now()
	s.RecordDelta(DeltaResult{Applied: 3, Pending: 1, Watermark: 800}, nil)

	snap := s.Snapshot()
	if snap.SessionID != "sess1" {
		t.Fatalf("SessionID = %q, want sess1", snap.SessionID)
	}
	if snap.Applied != 3 || snap.Pending != 1 || snap.Watermark != 800 {
		t.Fatalf("snapshot = %+v, want applied=3 pending=1 watermark=800", snap)
	}
	if snap.LastDelta.Before(before) || snap.LastUpdated.Before(before) {
		t.Fatalf("LastDelta = %v, want >= %v", snap.LastDelta, before)
	}
	if !snap.LastFull.IsZero() {
		t.Fatalf("LastFull = %v, want zero", snap.LastFull)
	}
}

func TestStore_WatermarkNeverRegresses(t *testing.T) {
	var s Store
	s.RecordDelta(DeltaResult{Watermark: 900}, nil)
	s.RecordDelta(DeltaResult{Watermark: 400}, nil)
	if got := s.Snapshot().Watermark; got != 900 {
		t.Fatalf("Watermark = %d, want 900", got)
	}
}

func TestStore_DroppedAccumulates(t *testing.T) {
	var s Store
	s.RecordDelta(DeltaResult{Dropped: 1}, nil)
	s.RecordDelta(DeltaResult{Dropped: 2}, nil)
	if got := s.Snapshot().Dropped; got != 3 {
		t.Fatalf("Dropped = %d, want 3", got)
	}
}

func TestStore_ErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.RecordFull(nil)
	s.RecordDelta(DeltaResult{Applied: 2, Watermark: 10}, nil)
	prev := s.Snapshot()

	origErr := errors.New("boom")
	s.RecordDelta(DeltaResult{Applied: 99, Watermark: 99}, origErr)

	snap := s.Snapshot()
	if snap.Applied != prev.Applied || snap.Watermark != prev.Watermark {
		t.Fatalf("data changed on error: got %+v want %+v", snap, prev)
	}
	if !snap.LastDelta.Equal(prev.LastDelta) || !snap.LastFull.Equal(prev.LastFull) {
		t.Fatalf("fetch times changed on error")
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.RecordDelta(DeltaResult{}, errors.New("fail 1"))
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	// Full and delta failures share the counter.
	s.RecordFull(errors.New("fail 2"))
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after 2 failures: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.RecordFull(nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("after success: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}
}

func TestSnapshot_Polling(t *testing.T) {
	tests := []struct {
		visible, loaded, joined bool
		want                    bool
	}{
		{true, true, true, true},
		{false, true, true, false},
		{true, false, true, false},
		{true, true, false, false},
	}
	for _, tt := range tests {
		var s Store
		s.SetGate(tt.visible, tt.loaded, tt.joined)
		if got := s.Snapshot().Polling(); got != tt.want {
			t.Fatalf("Polling(%v,%v,%v) = %v, want %v", tt.visible, tt.loaded, tt.joined, got, tt.want)
		}
	}
}
