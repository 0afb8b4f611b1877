package stats

import (
	"sort"
	"sync"
)

// OutcomeRow is one (kind, outcome) cell of the run's outcome table.
type OutcomeRow struct {
	Kind    string
	Outcome string
	Count   int64
}

// OutcomeCounter accumulates probe outcome counts for the exit summary.
//
// Thread-safe: all methods can be called concurrently.
type OutcomeCounter struct {
	mu           sync.Mutex
	counts       map[string]map[string]int64
	signalErrors map[string]int64
}

// NewOutcomeCounter creates an empty counter.
func NewOutcomeCounter() *OutcomeCounter {
	return &OutcomeCounter{
		counts:       make(map[string]map[string]int64),
		signalErrors: make(map[string]int64),
	}
}

// CountOutcome counts one probe outcome for the given kind.
func (c *OutcomeCounter) CountOutcome(kind, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byOutcome := c.counts[kind]
	if byOutcome == nil {
		byOutcome = make(map[string]int64)
		c.counts[kind] = byOutcome
	}
	byOutcome[outcome]++
}

// CountSignalError counts a failed signal delivery for the given kind.
func (c *OutcomeCounter) CountSignalError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signalErrors[kind]++
}

// Rows returns outcome counts sorted by kind then outcome.
func (c *OutcomeCounter) Rows() []OutcomeRow {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rows []OutcomeRow
	for kind, byOutcome := range c.counts {
		for outcome, count := range byOutcome {
			rows = append(rows, OutcomeRow{Kind: kind, Outcome: outcome, Count: count})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Kind != rows[j].Kind {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Outcome < rows[j].Outcome
	})
	return rows
}

// SignalErrors returns failed delivery counts sorted by kind.
func (c *OutcomeCounter) SignalErrors() []OutcomeRow {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rows []OutcomeRow
	for kind, count := range c.signalErrors {
		rows = append(rows, OutcomeRow{Kind: kind, Outcome: "delivery_failed", Count: count})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Kind < rows[j].Kind })
	return rows
}

// Total returns the number of probe outcomes counted.
func (c *OutcomeCounter) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, byOutcome := range c.counts {
		for _, count := range byOutcome {
			total += count
		}
	}
	return total
}
