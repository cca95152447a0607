package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/prospector/internal/cache"
	"github.com/five82/prospector/internal/config"
	"github.com/five82/prospector/internal/metrics"
	"github.com/five82/prospector/internal/prefs"
	"github.com/five82/prospector/internal/reconcile"
	"github.com/five82/prospector/internal/regolith"
	"github.com/five82/prospector/internal/state"
	"github.com/five82/prospector/internal/ui"
)

// Options configure the prospector application. Non-zero values override the
// config file.
type Options struct {
	ConfigPath   string
	PrefsPath    string // empty uses default ~/.config/prospector/prefs.toml
	SessionID    string
	UserID       string
	Background   bool // keep polling while the terminal is unfocused
	DeltaSeconds int
	FullSeconds  int
}

// Run boots the prospector TUI until the context is cancelled or the user
// quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	logger, closeLog, err := openLog(cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := regolith.NewClient(cfg.APIURL, cfg.Token)
	if err != nil {
		return fmt.Errorf("init regolith client: %w", err)
	}
	logger.Printf("prospector starting: session %s, user %s, api %s", cfg.SessionID, cfg.UserID, client.Endpoint())

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)
	if cfg.MetricsAddr != "" {
		serveMetrics(ctx, cfg.MetricsAddr, registry, logger)
	}

	var persister Persister
	if cfg.RedisURL != "" {
		rp, err := cache.NewRedisPersister(ctx, cfg.RedisURL)
		if err != nil {
			logger.Printf("cache persistence disabled: %v", err)
		} else {
			defer rp.Close()
			persister = rp
		}
	}

	mem := cache.NewMemory(regolith.Policies())
	reconciler := reconcile.New(mem, cfg.SessionID,
		reconcile.WithLogger(logger),
		reconcile.WithMetrics(recorder),
	)
	store := &state.Store{}
	background := opts.Background || userPrefs.Background

	poller := NewPoller(client, mem, reconciler, store, PollerOptions{
		SessionID:     cfg.SessionID,
		UserID:        cfg.UserID,
		DeltaInterval: cfg.DeltaInterval,
		FullInterval:  cfg.FullInterval,
		Visible:       true,
		Persister:     persister,
		Logger:        logger,
		Metrics:       recorder,
	})

	// Populate the cache before the UI starts reading it.
	poller.Bootstrap(ctx)

	pollCtx, cancel := context.WithCancel(ctx)
	done := StartPoller(pollCtx, poller)
	defer func() {
		cancel()
		<-done
	}()

	return ui.Run(ui.Options{
		Context:    ctx,
		Cache:      mem,
		Store:      store,
		Controller: poller,
		SessionID:  cfg.SessionID,
		UserID:     cfg.UserID,
		LogPath:    cfg.LogPath,
		ThemeName:  userPrefs.Theme,
		Tab:        userPrefs.Tab,
		PrefsPath:  opts.PrefsPath,
		Background: background,
	})
}

func applyOverrides(cfg *config.Config, opts Options) {
	if v := strings.TrimSpace(opts.SessionID); v != "" {
		cfg.SessionID = v
	}
	if v := strings.TrimSpace(opts.UserID); v != "" {
		cfg.UserID = v
	}
	if opts.DeltaSeconds > 0 {
		cfg.DeltaInterval = time.Duration(opts.DeltaSeconds) * time.Second
	}
	if opts.FullSeconds > 0 {
		cfg.FullInterval = time.Duration(opts.FullSeconds) * time.Second
	}
}

// openLog points a logger at path. The TUI owns the terminal, so nothing is
// written to stderr once it starts.
func openLog(path string) (*log.Logger, func(), error) {
	if strings.TrimSpace(path) == "" {
		return log.New(io.Discard, "", 0), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	logger := log.New(file, "", log.LstdFlags)
	log.SetOutput(file)
	return logger, func() { _ = file.Close() }, nil
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics listener failed: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Printf("metrics listening on %s", addr)
}
