// This file implements the exit summary formatter which displays run
// statistics at program exit.
package stats

import (
	"fmt"
	"strings"
	"time"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// Duration is the total run duration
	Duration time.Duration

	// Cycles is the number of completed probe cycles
	Cycles int64

	// MetricsAddr is the Prometheus metrics endpoint address
	MetricsAddr string

	// SnapshotPath is where the shutdown metrics snapshot was written, if any
	SnapshotPath string
}

// FormatExitSummary formats run statistics for display at program exit.
//
// The summary includes:
// - Run information
// - Probe outcome counts per kind
// - Failed signal deliveries
// - Recovery latency percentiles
// - Metrics endpoint reference
func FormatExitSummary(outcomes *OutcomeCounter, recoveries *RecoveryTracker, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                            perturbd Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	fmt.Fprintf(&b, "Completed Cycles:       %d\n\n", cfg.Cycles)

	rows := outcomes.Rows()
	if len(rows) > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                              Probe Outcomes\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		fmt.Fprintf(&b, "  %-12s %-22s %10s\n", "Probe", "Outcome", "Count")
		b.WriteString("  " + strings.Repeat("─", 46) + "\n")
		for _, row := range rows {
			fmt.Fprintf(&b, "  %-12s %-22s %10d\n", row.Kind, row.Outcome, row.Count)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("(No probes ran - no targets resolved or all phases disabled)\n\n")
	}

	errRows := outcomes.SignalErrors()
	if len(errRows) > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                           Failed Signal Deliveries\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		for _, row := range errRows {
			fmt.Fprintf(&b, "  %-12s %10d\n", row.Kind, row.Count)
		}
		b.WriteString("\n")
	}

	kinds := recoveries.Snapshot()
	if len(kinds) > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                             Recovery Latency\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		fmt.Fprintf(&b, "  %-12s %8s %12s %12s %12s\n", "Probe", "Count", "P50", "P95", "Max")
		b.WriteString("  " + strings.Repeat("─", 60) + "\n")
		for _, ks := range kinds {
			fmt.Fprintf(&b, "  %-12s %8d %12s %12s %12s\n",
				ks.Kind,
				ks.Count,
				FormatMs(ks.P50),
				FormatMs(ks.P95),
				FormatMs(ks.Max),
			)
		}
		b.WriteString("\n")
	}

	if cfg.SnapshotPath != "" {
		fmt.Fprintf(&b, "Metrics snapshot written to: %s\n", cfg.SnapshotPath)
	}
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatMs formats a duration as milliseconds, or seconds above 10s for
// readability on long recovery waits.
func FormatMs(d time.Duration) string {
	if d >= 10*time.Second {
		return fmt.Sprintf("%.1f s", d.Seconds())
	}
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		// Sub-millisecond, show microseconds
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
	return fmt.Sprintf("%d ms", ms)
}
