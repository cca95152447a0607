package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/prospector/internal/logtail"
)

type logMsg struct {
	lines []string
	err   error
}

// readLogs tails the log file in the background.
func (m Model) readLogs() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logMsg{lines: lines, err: err}
	}
}

// updateLogViewport refreshes the viewport content, keeping it pinned to the
// bottom when it already was.
func (m *Model) updateLogViewport() {
	follow := m.logViewport.AtBottom() || m.logViewport.TotalLineCount() == 0
	m.logViewport.SetContent(m.formatLogContent())
	if follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) formatLogContent() string {
	styles := m.theme.Styles()
	if m.logErr != nil {
		return styles.DangerText.Render("Log unavailable: " + m.logErr.Error())
	}
	lines := logtail.Filter(m.logLines, m.logLevel)
	if len(lines) == 0 {
		return styles.MutedText.Render("No log lines.")
	}

	width := m.logViewport.Width
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if width > 0 {
			line = truncate(line, width)
		}
		b.WriteString(logLineStyle(styles, logtail.Classify(line)).Render(line))
	}
	return b.String()
}

func logLineStyle(styles Styles, level logtail.Level) lipgloss.Style {
	switch level {
	case logtail.LevelError:
		return styles.DangerText
	case logtail.LevelWarn:
		return styles.WarningText
	default:
		return styles.Text
	}
}

func (m Model) renderLogs() string {
	if m.logPath == "" {
		return m.theme.Styles().MutedText.Padding(1, 2).Render("Logging to file is disabled.")
	}
	return m.logViewport.View()
}
