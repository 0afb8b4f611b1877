package config

import (
	"flag"
	"fmt"
	"os"
)

// ParseFlags parses command-line flags and returns a Config.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `perturbd - fault injection and recovery verification for supervised services

Usage:
  perturbd [flags]

Phase Switches:
`)
		printFlagCategory([]string{"disable-sigterm", "disable-sigkill", "disable-freeze"})

		fmt.Fprintf(os.Stderr, "\nTargets & Scheduling:\n")
		printFlagCategory([]string{"targets", "once", "cycle-delay", "seed"})

		fmt.Fprintf(os.Stderr, "\nTiming (lab use; production keeps the defaults):\n")
		printFlagCategory([]string{"shutdown-delay", "inter-target-delay", "freeze-poll-iterations", "freeze-poll-interval"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "snapshot", "v", "log-format", "tui"})

		fmt.Fprintf(os.Stderr, "\nSafety & Diagnostics:\n")
		printFlagCategory([]string{"skip-preflight", "proc-root"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Continuous probing with the default catalog
  perturbd

  # One compressed lab cycle, signal phases only
  perturbd -targets ./targets.yaml -once -disable-freeze \
      -shutdown-delay 2s -inter-target-delay 10s

`)
	}

	// Phase switches
	flag.BoolVar(&cfg.DisableSigterm, "disable-sigterm", cfg.DisableSigterm, "Disable the graceful-signal (SIGTERM) phase")
	flag.BoolVar(&cfg.DisableSigkill, "disable-sigkill", cfg.DisableSigkill, "Disable the forceful-signal (SIGKILL) phase")
	flag.BoolVar(&cfg.DisableFreeze, "disable-freeze", cfg.DisableFreeze, "Disable the debugger-freeze phase")

	// Targets & scheduling
	flag.StringVar(&cfg.CatalogPath, "targets", cfg.CatalogPath, "Path to the target catalog YAML")
	flag.BoolVar(&cfg.Once, "once", cfg.Once, "Run a single cycle and exit")
	flag.DurationVar(&cfg.CycleDelay, "cycle-delay", cfg.CycleDelay, "Idle pause between full cycles")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Shuffle seed (0 = seed from time)")

	// Timing
	flag.DurationVar(&cfg.ShutdownDelay, "shutdown-delay", cfg.ShutdownDelay, "Wait after a signal before the verification snapshot")
	flag.DurationVar(&cfg.InterTargetDelay, "inter-target-delay", cfg.InterTargetDelay, "Settle pause between signal-probe targets")
	flag.IntVar(&cfg.FreezePollIterations, "freeze-poll-iterations", cfg.FreezePollIterations, "Freeze recovery poll count")
	flag.DurationVar(&cfg.FreezePollInterval, "freeze-poll-interval", cfg.FreezePollInterval, "Freeze recovery poll spacing")

	// Observability
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address")
	flag.StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "Write a text-format metrics snapshot to this file on exit")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable the live terminal dashboard")

	// Safety & diagnostics
	flag.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")
	flag.StringVar(&cfg.ProcRoot, "proc-root", cfg.ProcRoot, "Proc filesystem mount point")

	flag.Parse()

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(names []string) {
	flag.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				usage := f.Usage
				if usage == "" {
					return // hidden flag
				}
				fmt.Fprintf(os.Stderr, "  -%-24s %s\n", f.Name, usage)
			}
		}
	})
}
