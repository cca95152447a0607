// Package state provides thread-safe sync status for the prospector TUI.
//
// # Overview
//
// The session data itself lives in the normalized cache. This package holds
// the bookkeeping around it: when the last full and delta fetches finished,
// the delta watermark, how many crew shares are parked, the visibility gate
// inputs, and the most recent polling error.
//
//	Producer (Poller):                  Consumer (UI):
//	┌───────────────────────┐          ┌──────────────────┐
//	│ FetchSession()        │          │                  │
//	│ store.RecordFull()    │─────────→│ store.Snapshot() │
//	│ FetchUpdates()        │  (mutex) │      ↓           │
//	│ store.RecordDelta()   │          │  render header   │
//	└───────────────────────┘          └──────────────────┘
//
// # Update Semantics
//
// RecordFull and RecordDelta share one failure counter. On error the previous
// values are kept and only LastError, LastUpdated and ConsecutiveFailures
// change, so the UI keeps showing the last good state with an offline badge
// once IsOffline reports two or more failures in a row. The stored watermark
// never moves backwards.
//
// # Zero Value
//
// The Store is ready to use as a zero value:
//
//	store := &state.Store{}
//
// Snapshot returns a copy; the error is wrapped so callers never share the
// stored instance.
package state
