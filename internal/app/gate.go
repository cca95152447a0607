package app

import "sync"

// Gate decides whether scheduled polling runs: the view must be visible, the
// session loaded, and the viewer an active member of it.
type Gate struct {
	mu      sync.Mutex
	visible bool
	loaded  bool
	joined  bool
	changed chan struct{}
}

// NewGate returns a gate with the given initial visibility.
func NewGate(visible bool) *Gate {
	return &Gate{visible: visible, changed: make(chan struct{}, 1)}
}

// SetVisible records whether the user is looking at the session.
func (g *Gate) SetVisible(v bool) { g.set(&g.visible, v) }

// SetLoaded records whether the session has been fetched.
func (g *Gate) SetLoaded(v bool) { g.set(&g.loaded, v) }

// SetJoined records whether the viewer is in the session's activeMemberIds.
func (g *Gate) SetJoined(v bool) { g.set(&g.joined, v) }

func (g *Gate) set(field *bool, v bool) {
	g.mu.Lock()
	if *field == v {
		g.mu.Unlock()
		return
	}
	*field = v
	g.mu.Unlock()

	select {
	case g.changed <- struct{}{}:
	default:
	}
}

// Active reports whether all three conditions hold.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visible && g.loaded && g.joined
}

// State returns the gate inputs.
func (g *Gate) State() (visible, loaded, joined bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visible, g.loaded, g.joined
}

// Changed is signalled after any input flips. Signals coalesce.
func (g *Gate) Changed() <-chan struct{} {
	return g.changed
}
