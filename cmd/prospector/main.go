package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/prospector/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	sessionID := flag.String("session", "", "session to mirror (overrides config and PROSPECTOR_SESSION)")
	userID := flag.String("user", "", "your user id (overrides config and PROSPECTOR_USER)")
	background := flag.Bool("background", false, "keep polling while the terminal is unfocused")
	deltaSeconds := flag.Int("delta", 0, "delta poll interval in seconds (optional, defaults to 5s)")
	fullSeconds := flag.Int("full", 0, "full refresh interval in seconds (optional, defaults to 2m)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		SessionID:  *sessionID,
		UserID:     *userID,
		Background: *background,
	}
	if delta := *deltaSeconds; delta > 0 {
		opts.DeltaSeconds = delta
	}
	if full := *fullSeconds; full > 0 {
		opts.FullSeconds = full
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "prospector: %v\n", err)
		return 1
	}
	return 0
}
