package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderDashboard composes the full dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderOutcomes())
	b.WriteString("\n")
	b.WriteString(m.renderRecoveries())
	b.WriteString("\n")
	b.WriteString(m.renderEvents())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader shows the banner line: name, phase, cycles, uptime.
func (m Model) renderHeader() string {
	title := headerStyle.Render(fmt.Sprintf("perturbd %s", m.version))

	phase := m.status.Phase
	phaseStyled := statusOK.Render(phase)
	if phase == "idle" || phase == "starting" {
		phaseStyled = mutedStyle.Render(phase)
	}

	info := baseStyle.Render(fmt.Sprintf(
		"phase: %s   cycles: %d   uptime: %s",
		phaseStyled,
		m.status.Cycles,
		formatDuration(m.status.Uptime),
	))

	return lipgloss.JoinVertical(lipgloss.Left, title, info)
}

// renderOutcomes shows the per-kind outcome counts.
func (m Model) renderOutcomes() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Probe Outcomes"))
	b.WriteString("\n")

	if len(m.status.Outcomes) == 0 {
		b.WriteString(mutedStyle.Render("  no probes completed yet"))
		return boxStyle.Width(m.contentWidth()).Render(b.String())
	}

	fmt.Fprintf(&b, "  %-10s %-22s %8s\n", "probe", "outcome", "count")
	for _, row := range m.status.Outcomes {
		fmt.Fprintf(&b, "  %-10s %-22s %8d\n",
			row.Kind,
			outcomeStyle(row.Outcome).Render(fmt.Sprintf("%-22s", row.Outcome)),
			row.Count,
		)
	}

	return boxStyle.Width(m.contentWidth()).Render(strings.TrimRight(b.String(), "\n"))
}

// renderRecoveries shows recovery latency percentiles per probe kind.
func (m Model) renderRecoveries() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Recovery Latency"))
	b.WriteString("\n")

	if len(m.status.Recoveries) == 0 {
		b.WriteString(mutedStyle.Render("  no recoveries observed yet"))
		return boxStyle.Width(m.contentWidth()).Render(b.String())
	}

	fmt.Fprintf(&b, "  %-10s %8s %10s %10s %10s\n", "probe", "count", "p50", "p95", "max")
	for _, ks := range m.status.Recoveries {
		fmt.Fprintf(&b, "  %-10s %8d %10s %10s %10s\n",
			ks.Kind,
			ks.Count,
			formatLatency(ks.P50),
			formatLatency(ks.P95),
			formatLatency(ks.Max),
		)
	}

	return boxStyle.Width(m.contentWidth()).Render(strings.TrimRight(b.String(), "\n"))
}

// renderEvents shows the tail of the event feed, fitted to the space
// left by the fixed sections.
func (m Model) renderEvents() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Events"))
	b.WriteString("\n")

	lines := m.status.Events
	max := m.eventRows()
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}

	if len(lines) == 0 {
		b.WriteString(mutedStyle.Render("  waiting for events"))
	} else {
		for i, line := range lines {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("  " + truncate(line, m.contentWidth()-6))
		}
	}

	return boxStyle.Width(m.contentWidth()).Render(b.String())
}

// renderFooter shows the key bindings and metrics endpoint.
func (m Model) renderFooter() string {
	return mutedStyle.Render(fmt.Sprintf(
		"q quit   r refresh   metrics: http://%s/metrics",
		m.metricsAddr,
	))
}

// contentWidth is the rendering width bounded to the terminal.
func (m Model) contentWidth() int {
	w := m.width - 2
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// eventRows is how many event lines fit under the fixed sections.
func (m Model) eventRows() int {
	fixed := 14 + len(m.status.Outcomes) + len(m.status.Recoveries)
	rows := m.height - fixed
	if rows < 3 {
		rows = 3
	}
	if rows > 20 {
		rows = 20
	}
	return rows
}

// truncate cuts a line to width runes.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
