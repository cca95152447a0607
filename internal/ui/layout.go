package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show note columns.
	LayoutWideWidth = 140
)

// Log display limits.
const (
	// LogTailLines is the number of log lines read for the Log tab.
	LogTailLines = 400
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second
)

// chromeHeight is the number of rows taken by header, tab bar and footer.
const chromeHeight = 4
