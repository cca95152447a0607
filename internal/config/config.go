package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything prospector needs to mirror one session.
type Config struct {
	APIURL        string
	Token         string
	SessionID     string
	UserID        string
	DeltaInterval time.Duration
	FullInterval  time.Duration
	RedisURL      string
	LogPath       string
	MetricsAddr   string
}

const (
	defaultConfigPath    = "~/.config/prospector/config.toml"
	defaultLogPath       = "~/.local/share/prospector/prospector.log"
	defaultAPIURL        = "https://api.regolith.rocks/graphql"
	defaultDeltaInterval = 5 * time.Second
	defaultFullInterval  = 2 * time.Minute

	envToken   = "PROSPECTOR_TOKEN"
	envSession = "PROSPECTOR_SESSION"
	envUser    = "PROSPECTOR_USER"
)

// DotEnvPath is the .env file read before the environment is consulted.
var DotEnvPath = ".env"

// Load locates and parses the prospector config, falling back to defaults when
// missing. Values from a .env file and the environment are applied on top.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	bytes, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if bytes != nil {
		var raw struct {
			APIURL        string `toml:"api_url"`
			SessionID     string `toml:"session_id"`
			UserID        string `toml:"user_id"`
			DeltaInterval string `toml:"delta_interval"`
			FullInterval  string `toml:"full_interval"`
			RedisURL      string `toml:"redis_url"`
			LogPath       string `toml:"log_path"`
			MetricsAddr   string `toml:"metrics_addr"`
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}

		if v := strings.TrimSpace(raw.APIURL); v != "" {
			cfg.APIURL = v
		}
		cfg.SessionID = strings.TrimSpace(raw.SessionID)
		cfg.UserID = strings.TrimSpace(raw.UserID)
		cfg.RedisURL = strings.TrimSpace(raw.RedisURL)
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
		if v := strings.TrimSpace(raw.LogPath); v != "" {
			cfg.LogPath = mustExpand(v)
		}
		if cfg.DeltaInterval, err = parseInterval("delta_interval", raw.DeltaInterval, defaultDeltaInterval); err != nil {
			return Config{}, err
		}
		if cfg.FullInterval, err = parseInterval("full_interval", raw.FullInterval, defaultFullInterval); err != nil {
			return Config{}, err
		}
	}

	if err := loadDotEnv(DotEnvPath); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:        defaultAPIURL,
		DeltaInterval: defaultDeltaInterval,
		FullInterval:  defaultFullInterval,
		LogPath:       mustExpand(defaultLogPath),
	}
}

// Validate reports the first setting that prevents polling.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.SessionID) == "":
		return errors.New("config: session_id is required")
	case strings.TrimSpace(c.UserID) == "":
		return errors.New("config: user_id is required")
	case c.DeltaInterval <= 0:
		return fmt.Errorf("config: delta_interval must be positive, got %s", c.DeltaInterval)
	case c.FullInterval <= 0:
		return fmt.Errorf("config: full_interval must be positive, got %s", c.FullInterval)
	case c.FullInterval < c.DeltaInterval:
		return fmt.Errorf("config: full_interval %s is shorter than delta_interval %s", c.FullInterval, c.DeltaInterval)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(envToken)); v != "" {
		c.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(envSession)); v != "" {
		c.SessionID = v
	}
	if v := strings.TrimSpace(os.Getenv(envUser)); v != "" {
		c.UserID = v
	}
}

// loadDotEnv reads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return bytes, nil
}

func parseInterval(field, value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", field, err)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
