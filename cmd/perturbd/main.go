// Package main provides the perturbd CLI entry point.
//
// perturbd continuously injects faults (termination signals and
// debugger freezes) into supervised services and verifies the service
// manager recovers them.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/perturbd/perturbd/internal/config"
	"github.com/perturbd/perturbd/internal/engine"
	"github.com/perturbd/perturbd/internal/logging"
	"github.com/perturbd/perturbd/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/perturbd
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("perturbd %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// When the TUI is enabled, suppress logs to avoid interfering with
	// rendering; the dashboard's event pane carries the run narrative.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger.Info("starting",
		"version", version,
		"targets", cfg.CatalogPath,
		"once", cfg.Once,
		"metrics_addr", cfg.MetricsAddr,
	)

	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	eng, err := engine.New(cfg, version, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TUIEnabled {
		return runWithDashboard(ctx, cancel, eng, cfg)
	}

	if err := eng.Run(ctx); err != nil {
		logger.Error("engine_failed", "error", err)
		return 1
	}
	return 0
}

// runWithDashboard runs the engine alongside the terminal dashboard.
// Quitting the dashboard cancels the run; the run ending (Once mode,
// SIGTERM) closes the dashboard.
func runWithDashboard(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine, cfg *config.Config) int {
	program := tea.NewProgram(tui.New(tui.Config{
		Source:      eng,
		MetricsAddr: cfg.MetricsAddr,
		Version:     version,
	}), tea.WithAltScreen())

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(ctx)
		tui.SendQuit(program)
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Dashboard error: %v\n", err)
	}

	// Dashboard closed first (operator quit): stop the engine.
	cancel()
	if err := <-engineDone; err != nil {
		fmt.Fprintf(os.Stderr, "Engine error: %v\n", err)
		return 1
	}
	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                             perturbd                              ║")
	fmt.Println("║        Fault Injection and Recovery Verification Engine           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Targets:     %s\n", cfg.CatalogPath)
	fmt.Printf("  Cycle:       every %s", cfg.CycleDelay)
	if cfg.Once {
		fmt.Print(" (single cycle)")
	}
	fmt.Println()
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	if cfg.SnapshotPath != "" {
		fmt.Printf("  Snapshot:    %s (on exit)\n", cfg.SnapshotPath)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}
