package events

import (
	"sync"
	"time"
)

// Ring is a Sink that keeps the most recent events in memory for the
// dashboard. Oldest entries are dropped once capacity is reached.
type Ring struct {
	mu    sync.Mutex
	lines []string
	cap   int
	now   func() time.Time
}

// NewRing creates a Ring holding up to capacity events.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 64
	}
	return &Ring{
		lines: make([]string, 0, capacity),
		cap:   capacity,
		now:   time.Now,
	}
}

// Emit appends the formatted event, evicting the oldest if full.
func (r *Ring) Emit(msg string, attrs ...any) {
	line := r.now().Format("15:04:05") + " " + msg
	if detail := formatAttrs(attrs); detail != "" {
		line += " " + detail
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == r.cap {
		copy(r.lines, r.lines[1:])
		r.lines[len(r.lines)-1] = line
		return
	}
	r.lines = append(r.lines, line)
}

// Lines returns a copy of the buffered events, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Multi fans each event out to every sink in order.
type Multi []Sink

// Emit forwards the event to all sinks.
func (m Multi) Emit(msg string, attrs ...any) {
	for _, s := range m {
		s.Emit(msg, attrs...)
	}
}
