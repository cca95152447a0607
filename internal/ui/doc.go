// Package ui provides the terminal dashboard for a mirrored mining session.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. It never talks to the API: it reads the
// normalized session cache through a read-only view, reads sync status from
// the state store, and drives the poller through a small Controller
// interface (Refresh and SetVisible).
//
// # Package Structure
//
//   - app.go: Model, Update loop, messages and the Run entry point
//   - header.go: status bar, tab bar and footer
//   - table.go: column sets and row builders for the entity tables
//   - logs.go: Log tab backed by the local log file
//   - help.go: help overlay built from the key map
//   - viewmodel.go: projection of the cache into renderable rows
//   - theme.go, style_helpers.go, strings.go, layout.go: styling and formatting
//
// # Views
//
// Four tabs are available:
//
//   - Members: crew with state, vehicle, captain and whether they are listed
//     as active in the session
//   - Work Orders: orders with crew share payment progress
//   - Scouting: cluster finds
//   - Log: tail of the local log file, filterable by inferred level
//
// # Visibility
//
// The dashboard reports terminal focus to the poller. The session counts as
// visible when it is not paused and the terminal is focused, or when
// background polling is enabled. Pausing with "p" hides the session so
// scheduled polling stops; "r" forces a full refresh regardless.
//
// # Data Flow
//
// A one second tick re-projects the cache under its read lock and copies the
// store snapshot. Referenced records that no longer exist are skipped by the
// projection rather than rendered as blanks.
//
// # Themes
//
// Nightfox, Kanagawa and Slate are built in. "T" cycles them and persists the
// choice, along with the current tab, to the preferences file.
package ui
