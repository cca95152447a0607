package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar: session, gate state and sync status.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("prospector", styles.Logo)}

	if !m.view.Loaded {
		parts = append(parts, bg.Render("Loading session "+m.sessionID+"...", styles.WarningText.Bold(true)))
		if err := m.snapshot.LastError; err != nil {
			parts = append(parts, bg.Render(truncate(err.Error(), 60), styles.DangerText))
		}
		return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
	}

	nameLimit := 40
	if compact {
		nameLimit = 20
	}
	name := m.view.Name
	if name == "" {
		name = m.view.SessionID
	}
	parts = append(parts,
		bg.Render(truncate(name, nameLimit), styles.Text.Bold(true)),
		styles.StateStyle(m.view.State).Render(titleCase(placeholder(m.view.State))),
		bg.Label("Crew:", fmt.Sprintf("%d", len(m.view.Members)), styles, styles.Text),
		m.gateBadge(styles, bg),
	)

	if !compact {
		parts = append(parts,
			bg.Label("Synced:", formatAgo(m.snapshot.LastDelta, m.now()), styles, styles.MutedText),
			bg.Label("Cursor:", formatEpochMillis(m.snapshot.Watermark), styles, styles.MutedText),
		)
	}

	if m.snapshot.Pending > 0 {
		parts = append(parts, bg.Label("Waiting:", fmt.Sprintf("%d", m.snapshot.Pending), styles, styles.WarningText))
	}

	if m.snapshot.IsOffline() {
		parts = append(parts, bg.Render("OFFLINE", styles.DangerText))
	}

	if err := m.snapshot.LastError; err != nil {
		maxErr := 80
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Spaces(1)+
				bg.Render(truncate(err.Error(), maxErr), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// gateBadge shows why polling is or is not running.
func (m Model) gateBadge(styles Styles, bg BgStyle) string {
	switch {
	case m.paused:
		return bg.Render("❚❚ PAUSED", styles.WarningText)
	case !m.snapshot.Joined:
		return bg.Render("○ NOT JOINED", styles.MutedText)
	case !m.snapshot.Visible:
		return bg.Render("○ HIDDEN", styles.MutedText)
	case m.snapshot.Polling():
		return bg.Render("● LIVE", styles.SuccessText)
	default:
		return bg.Render("○ IDLE", styles.MutedText)
	}
}

// renderTabs renders the tab bar.
func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	counts := [tabCount]int{len(m.view.Members), len(m.view.Orders), len(m.view.Finds), -1}

	var tabs []string
	for i := tab(0); i < tabCount; i++ {
		title := tabTitles[i]
		if counts[i] >= 0 {
			title = fmt.Sprintf("%s %d", title, counts[i])
		}
		if i == m.tab {
			tabs = append(tabs, styles.ActiveTab.Render(title))
		} else {
			tabs = append(tabs, styles.InactiveTab.Render(title))
		}
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return NewBgStyle(m.theme.Background).FillLine(bar, m.width)
}

// renderFooter renders the key hints and, on the log tab, the level filter.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	m.help.ShowAll = false
	hints := m.help.View(m.keys)
	if m.tab == tabLog {
		hints += "  " + styles.MutedText.Render("level: "+strings.ToLower(m.logLevel.String()))
		if m.logPath != "" {
			hints += "  " + styles.FaintText.Render(truncateMiddle(m.logPath, 40))
		}
	}
	return styles.Footer.Width(m.width).Render(hints)
}
