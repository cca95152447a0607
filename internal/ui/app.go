package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/prospector/internal/cache"
	"github.com/five82/prospector/internal/logtail"
	"github.com/five82/prospector/internal/prefs"
	"github.com/five82/prospector/internal/state"
)

// tab is one of the main views.
type tab int

const (
	tabMembers tab = iota
	tabOrders
	tabScouting
	tabLog
	tabCount
)

var tabTitles = [tabCount]string{"Members", "Work Orders", "Scouting", "Log"}

// tabFromPref maps a prefs tab name (see prefs.Tabs) to a tab.
func tabFromPref(name string) tab {
	for i, known := range prefs.Tabs {
		if known == name && i < int(tabCount) {
			return tab(i)
		}
	}
	return tabMembers
}

func (t tab) pref() string {
	return prefs.Tabs[t]
}

// Viewer gives read access to the session cache.
type Viewer interface {
	View(fn func(r cache.Reader))
}

// Controller drives the poller from the UI.
type Controller interface {
	Refresh()
	SetVisible(visible bool)
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Cache      Viewer
	Store      *state.Store
	Controller Controller
	SessionID  string
	UserID     string
	LogPath    string
	PollTick   time.Duration
	ThemeName  string
	Tab        string
	PrefsPath  string
	// Background keeps the session visible to the poller while the terminal
	// is unfocused.
	Background bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	cache     Viewer
	store     *state.Store
	ctrl      Controller
	sessionID string
	userID    string
	logPath   string
	prefsPath string
	pollTick  time.Duration
	now       func() time.Time

	// UI state
	theme    Theme
	keys     keyMap
	help     help.Model
	tab      tab
	width    int
	height   int
	ready    bool
	showHelp bool

	// Visibility inputs
	focused    bool
	paused     bool
	background bool

	// Data state
	snapshot state.Snapshot
	view     sessionView

	members table.Model
	orders  table.Model
	finds   table.Model

	logViewport viewport.Model
	logLines    []string
	logLevel    logtail.Level
	logErr      error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:         ctx,
		cache:       opts.Cache,
		store:       opts.Store,
		ctrl:        opts.Controller,
		sessionID:   opts.SessionID,
		userID:      opts.UserID,
		logPath:     opts.LogPath,
		prefsPath:   prefsPath,
		pollTick:    pollTick,
		now:         time.Now,
		theme:       GetTheme(opts.ThemeName),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		tab:         tabFromPref(opts.Tab),
		focused:     true,
		background:  opts.Background,
		logViewport: viewport.New(0, 0),
	}
	m.initTables()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.pollTick),
		m.fetchData(),
		m.readLogs(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tea.FocusMsg:
		m.focused = true
		m.pushVisibility()
		return m, nil

	case tea.BlurMsg:
		m.focused = false
		m.pushVisibility()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{m.fetchData(), tickCmd(m.pollTick)}
		if m.tab == tabLog {
			cmds = append(cmds, m.readLogs())
		}
		return m, tea.Batch(cmds...)

	case dataMsg:
		m.snapshot = msg.snapshot
		m.view = msg.view
		m.updateTables()
		return m, nil

	case logMsg:
		m.logLines = msg.lines
		m.logErr = msg.err
		m.updateLogViewport()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyTableStyles()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab((m.tab + 1) % tabCount)

	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab((m.tab + tabCount - 1) % tabCount)

	case key.Matches(msg, m.keys.Refresh):
		if m.ctrl != nil {
			m.ctrl.Refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		m.pushVisibility()
		return m, nil
	}

	if m.tab == tabLog {
		if key.Matches(msg, m.keys.LogLevel) {
			m.logLevel = (m.logLevel + 1) % (logtail.LevelError + 1)
			m.updateLogViewport()
			return m, nil
		}
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.tab {
	case tabMembers:
		m.members, cmd = m.members.Update(msg)
	case tabOrders:
		m.orders, cmd = m.orders.Update(msg)
	case tabScouting:
		m.finds, cmd = m.finds.Update(msg)
	}
	return m, cmd
}

func (m Model) switchTab(next tab) (tea.Model, tea.Cmd) {
	m.tab = next
	m.focusTables()
	if next == tabLog {
		return m, m.readLogs()
	}
	return m, nil
}

// visible is the signal the poller's gate sees.
func (m Model) visible() bool {
	return !m.paused && (m.focused || m.background)
}

func (m Model) pushVisibility() {
	if m.ctrl != nil {
		m.ctrl.SetVisible(m.visible())
	}
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	theme, tab := m.theme.Name, m.tab.pref()
	_ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) {
		p.Theme = theme
		p.Tab = tab
	})
}

func (m *Model) resize() {
	contentHeight := m.height - chromeHeight
	if contentHeight < 3 {
		contentHeight = 3
	}
	for _, t := range []*table.Model{&m.members, &m.orders, &m.finds} {
		t.SetWidth(m.width)
		t.SetHeight(contentHeight)
	}
	m.setColumns()
	m.logViewport.Width = m.width
	m.logViewport.Height = contentHeight
	m.help.Width = m.width
	m.updateLogViewport()
}

// Messages

type tickMsg time.Time

type dataMsg struct {
	snapshot state.Snapshot
	view     sessionView
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchData() tea.Cmd {
	store, viewer, sessionID := m.store, m.cache, m.sessionID
	return func() tea.Msg {
		var msg dataMsg
		if store != nil {
			msg.snapshot = store.Snapshot()
		}
		if viewer != nil {
			viewer.View(func(r cache.Reader) {
				msg.view = project(r, sessionID)
			})
		}
		return msg
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(m.ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
