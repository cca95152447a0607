package ui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/prospector/internal/prefs"
	"github.com/five82/prospector/internal/state"
)

type fakeController struct {
	refreshes int
	visible   []bool
}

func (f *fakeController) Refresh()          { f.refreshes++ }
func (f *fakeController) SetVisible(v bool) { f.visible = append(f.visible, v) }

func (f *fakeController) last() (bool, bool) {
	if len(f.visible) == 0 {
		return false, false
	}
	return f.visible[len(f.visible)-1], true
}

func newTestModel(t *testing.T, background bool) (Model, *fakeController) {
	t.Helper()
	ctrl := &fakeController{}
	m := New(Options{
		Cache:      seedSession(t),
		Store:      &state.Store{},
		Controller: ctrl,
		SessionID:  "s1",
		UserID:     "u1",
		PrefsPath:  filepath.Join(t.TempDir(), "prefs.toml"),
		Background: background,
	})
	return m, ctrl
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBlurHidesSessionUnlessBackground(t *testing.T) {
	m, ctrl := newTestModel(t, false)
	m = update(t, m, tea.BlurMsg{})
	if v, ok := ctrl.last(); !ok || v {
		t.Fatalf("visible after blur = %v (sent %v), want false", v, ok)
	}
	m = update(t, m, tea.FocusMsg{})
	if v, _ := ctrl.last(); !v {
		t.Fatalf("visible after focus = false, want true")
	}

	m, ctrl = newTestModel(t, true)
	_ = update(t, m, tea.BlurMsg{})
	if v, _ := ctrl.last(); !v {
		t.Fatalf("visible after blur with background = false, want true")
	}
}

func TestPauseTogglesVisibility(t *testing.T) {
	m, ctrl := newTestModel(t, true)

	m = update(t, m, runes("p"))
	if v, _ := ctrl.last(); v {
		t.Fatalf("visible after pause = true, want false")
	}
	if !m.paused {
		t.Fatalf("paused = false, want true")
	}

	m = update(t, m, runes("p"))
	if v, _ := ctrl.last(); !v {
		t.Fatalf("visible after resume = false, want true")
	}
}

func TestRefreshKey(t *testing.T) {
	m, ctrl := newTestModel(t, false)
	_ = update(t, m, runes("r"))
	if ctrl.refreshes != 1 {
		t.Fatalf("refreshes = %d, want 1", ctrl.refreshes)
	}
}

func TestTabCycling(t *testing.T) {
	m, _ := newTestModel(t, false)
	if m.tab != tabMembers {
		t.Fatalf("initial tab = %d, want members", m.tab)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.tab != tabOrders {
		t.Fatalf("tab after next = %d, want orders", m.tab)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.tab != tabLog {
		t.Fatalf("tab after wrapping back = %d, want log", m.tab)
	}
}

func TestInitialTabFromPrefs(t *testing.T) {
	m := New(Options{Tab: "scouting", PrefsPath: filepath.Join(t.TempDir(), "prefs.toml")})
	if m.tab != tabScouting {
		t.Fatalf("tab = %d, want scouting", m.tab)
	}
	m = New(Options{Tab: "bogus", PrefsPath: filepath.Join(t.TempDir(), "prefs.toml")})
	if m.tab != tabMembers {
		t.Fatalf("tab = %d, want members", m.tab)
	}
}

func TestCycleThemeSavesPrefs(t *testing.T) {
	m, _ := newTestModel(t, true)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, runes("T"))
	if m.theme.Name != NextTheme("Nightfox") {
		t.Fatalf("theme = %q, want %q", m.theme.Name, NextTheme("Nightfox"))
	}

	p, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.Theme != m.theme.Name || p.Tab != "orders" {
		t.Fatalf("saved prefs = %+v", p)
	}
}

func TestDataMessageFillsTables(t *testing.T) {
	m, _ := newTestModel(t, false)
	m = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 40})

	msg := m.fetchData()()
	m = update(t, m, msg)

	if got := len(m.members.Rows()); got != 2 {
		t.Fatalf("member rows = %d, want 2", got)
	}
	if got := len(m.orders.Rows()); got != 1 {
		t.Fatalf("order rows = %d, want 1", got)
	}
	if got := m.orders.Rows()[0][5]; got != "1/2" {
		t.Fatalf("paid cell = %q, want 1/2", got)
	}
	if got := m.members.Rows()[0][0]; !strings.HasPrefix(got, "» ") {
		t.Fatalf("own row = %q, want marker", got)
	}

	view := m.View()
	if !strings.Contains(view, "Aaron Halo run") {
		t.Fatalf("view missing session name:\n%s", view)
	}
}

func TestHelpOverlayClosesOnAnyKey(t *testing.T) {
	m, ctrl := newTestModel(t, false)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, runes("?"))
	if !m.showHelp {
		t.Fatalf("showHelp = false, want true")
	}
	m = update(t, m, runes("r"))
	if m.showHelp {
		t.Fatalf("showHelp = true after key, want false")
	}
	if ctrl.refreshes != 0 {
		t.Fatalf("key closing help also triggered refresh")
	}
}
