// Package events defines the engine's event sink: every probe outcome,
// state transition, and anomaly is emitted as a timestamped line and
// duplicated to the structured log. Emission is fire-and-forget; the
// engine never retries or blocks on the sink.
package events

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Sink receives engine events. Implementations must not block the
// probe loop and must never return failure to the caller.
type Sink interface {
	Emit(msg string, attrs ...any)
}

// LineSink writes "HH:MM:SS.mmm - message" lines to a writer and
// duplicates each event to a slog logger with its structured attrs.
type LineSink struct {
	w      io.Writer
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewLineSink creates a LineSink writing to w and logging to logger.
func NewLineSink(w io.Writer, logger *slog.Logger) *LineSink {
	return &LineSink{
		w:      w,
		logger: logger,
		now:    time.Now,
	}
}

// Emit writes the event line and forwards the event to slog.
// attrs are slog-style alternating key/value pairs.
func (s *LineSink) Emit(msg string, attrs ...any) {
	ts := s.now().Format("15:04:05.000")

	line := msg
	if detail := formatAttrs(attrs); detail != "" {
		line = msg + " " + detail
	}

	s.mu.Lock()
	fmt.Fprintf(s.w, "%s - %s\n", ts, line)
	s.mu.Unlock()

	s.logger.Info(msg, attrs...)
}

// formatAttrs renders alternating key/value pairs as "[k=v k=v]".
// A trailing unpaired key is rendered with an empty value rather
// than dropped, so mistakes stay visible.
func formatAttrs(attrs []any) string {
	if len(attrs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < len(attrs); i += 2 {
		if i > 0 {
			b.WriteString(" ")
		}
		if i+1 < len(attrs) {
			fmt.Fprintf(&b, "%v=%v", attrs[i], attrs[i+1])
		} else {
			fmt.Fprintf(&b, "%v=", attrs[i])
		}
	}
	b.WriteString("]")
	return b.String()
}

// Nop is a Sink that discards everything. Useful in tests and when
// the TUI owns the terminal.
type Nop struct{}

// Emit discards the event.
func (Nop) Emit(string, ...any) {}
