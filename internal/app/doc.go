// Package app provides the orchestration layer for prospector.
//
// # Overview
//
// This package wires together configuration, the normalized session cache,
// the delta reconciler, the poller and the UI. It is the composition root
// where all dependencies are initialized and connected.
//
// # Architecture
//
// Run follows a simple initialization pattern:
//
//  1. Load config from ~/.config/prospector/config.toml, .env and PROSPECTOR_* variables
//  2. Open the log file and, when configured, the metrics listener
//  3. Connect the optional Redis persister
//  4. Create the in-memory cache, reconciler and shared state.Store
//  5. Bootstrap: restore the persisted image, then run the first full fetch
//  6. Launch the poller goroutine and start the TUI until the user exits
//
// # Components
//
//   - app.go: Run, config overrides, log and metrics setup
//   - gate.go: visibility gate combining visible, loaded and joined
//   - poller.go: delta and full fetch loops with backoff and persistence
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()          Read config and environment
//	       ├─────> regolith.NewClient()   GraphQL client
//	       ├─────> cache.NewMemory()      Normalized session cache
//	       ├─────> reconcile.New()        Delta reconciler
//	       ├─────> Poller.Bootstrap()     Restore, then full fetch
//	       ├─────> StartPoller()          Launch background updates
//	       └─────> ui.Run()               Start TUI (blocks)
//
//	Background Poller Loop:
//	┌──────────────────────────────────────────────┐
//	│ StartPoller() goroutine                      │
//	│  ├─> delta timer: FetchDeltas(lastCheck)     │
//	│  │     └─> Reconciler.ApplyBatch()           │
//	│  ├─> full timer:  FetchSession()             │
//	│  │     └─> cache.WriteTree() + GC            │
//	│  ├─> store.RecordDelta / RecordFull          │
//	│  └─> persister.Save()                        │
//	└──────────────────────────────────────────────┘
//
// # Polling Behavior
//
// Scheduled fetches only run while the gate is active: the session is
// visible, loaded and the user is a member. The full timer also runs while
// the session has never loaded so the initial fetch is retried. Failures back
// off exponentially from the base interval up to the full interval. A manual
// refresh always runs a full fetch.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration invalid or missing token, session or user
//   - Log file cannot be opened
//
// Recoverable errors (logged, polling continues):
//   - Delta or full fetch failures
//   - Redis unavailable at startup or during saves
//   - Metrics listener failures
//
// # Usage Example
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := app.Run(ctx, app.Options{SessionID: "abc123"}); err != nil {
//		log.Fatalf("prospector failed: %v", err)
//	}
package app
