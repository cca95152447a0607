package state

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is the sync status shown next to the cached session.
type Snapshot struct {
	SessionID string

	// Visibility gate inputs.
	Visible bool
	Loaded  bool
	Joined  bool

	LastFull    time.Time
	LastDelta   time.Time
	LastUpdated time.Time
	Watermark   int64 // lastCheck cursor in epoch ms
	Pending     int   // crew shares waiting for their work order
	Applied     int   // deltas applied by the last delta fetch
	Dropped     int   // crew shares given up on since start

	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Polling reports whether the visibility gate lets periodic fetches run.
func (s Snapshot) Polling() bool {
	return s.Visible && s.Loaded && s.Joined
}

// DeltaResult is the outcome of one delta fetch.
type DeltaResult struct {
	Applied   int
	Dropped   int
	Pending   int
	Watermark int64
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetSession records the session being mirrored.
func (s *Store) SetSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.SessionID = id
}

// SetGate records the visibility gate inputs.
func (s *Store) SetGate(visible, loaded, joined bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Visible = visible
	s.snapshot.Loaded = loaded
	s.snapshot.Joined = joined
}

// RecordFull notes a finished full fetch. When err is non-nil the previous
// data is kept but the error is recorded for visibility.
func (s *Store) RecordFull(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.snapshot.LastUpdated = now
	if s.fail(err) {
		return
	}
	s.snapshot.LastFull = now
}

// RecordDelta notes a finished delta fetch.
func (s *Store) RecordDelta(res DeltaResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.snapshot.LastUpdated = now
	if s.fail(err) {
		return
	}
	s.snapshot.LastDelta = now
	s.snapshot.Applied = res.Applied
	s.snapshot.Pending = res.Pending
	s.snapshot.Dropped += res.Dropped
	if res.Watermark > s.snapshot.Watermark {
		s.snapshot.Watermark = res.Watermark
	}
}

func (s *Store) fail(err error) bool {
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return true
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
	return false
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
