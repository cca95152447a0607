// Package prefs persists per-user dashboard preferences in
// ~/.config/prospector/prefs.toml. Unlike the config file, a broken or
// missing prefs file never stops startup.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for prospector.
type Prefs struct {
	Theme string `toml:"theme"`
	// Tab is the tab selected at startup: members, orders, scouting or log.
	Tab string `toml:"tab"`
	// Background keeps polling while the terminal is unfocused.
	Background bool `toml:"background"`
}

// Tabs lists the accepted Tab values in display order.
var Tabs = []string{"members", "orders", "scouting", "log"}

const (
	defaultPrefsPath = "~/.config/prospector/prefs.toml"
	defaultTheme     = "Nightfox"
	defaultTab       = "members"
)

func defaults() Prefs {
	return Prefs{Theme: defaultTheme, Tab: defaultTab}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path (empty means DefaultPath). Missing or
// unreadable files yield defaults; unknown values are normalized.
func Load(path string) (Prefs, error) {
	p := defaults()
	resolved, err := resolvePath(path)
	if err != nil {
		return p, nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return p, nil
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return defaults(), nil
	}
	return p.normalized(), nil
}

// Save writes p to path through a temp file and rename, so a crash mid-write
// never leaves a truncated file behind.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(resolved), ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// Update loads the prefs at path, applies fn and saves the result.
func Update(path string, fn func(p *Prefs)) error {
	p, _ := Load(path)
	fn(&p)
	return Save(path, p)
}

func (p Prefs) normalized() Prefs {
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	p.Tab = normalizeTab(p.Tab)
	return p
}

func normalizeTab(tab string) string {
	tab = strings.ToLower(strings.TrimSpace(tab))
	for _, known := range Tabs {
		if tab == known {
			return tab
		}
	}
	return defaultTab
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if path == "" {
		return "", errors.New("path is empty")
	}
	return filepath.Abs(path)
}
