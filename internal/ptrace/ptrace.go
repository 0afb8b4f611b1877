// Package ptrace wraps the debugger control primitives used by the
// freeze probe: attach, wait-for-stop, and best-effort detach.
package ptrace

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// StopStatus describes how a traced process came to a stop after attach.
type StopStatus struct {
	// Stopped is true when the wait status reports a stop condition.
	Stopped bool

	// Signal is the signal that stopped the process, valid when Stopped.
	Signal unix.Signal

	// Raw is the full wait status for diagnostics.
	Raw unix.WaitStatus
}

// Clean reports whether the process stopped with the expected attach
// signal (SIGSTOP). Anything else is unusual but not fatal.
func (s StopStatus) Clean() bool {
	return s.Stopped && s.Signal == unix.SIGSTOP
}

// Tracer is the debugger control surface consumed by probes.
// Implementations must make Detach safe on processes that already
// exited or restarted; that is an expected outcome, not an error.
type Tracer interface {
	// Attach requests debugger control over pid and blocks until the
	// process reports a stop condition. There is deliberately no
	// timeout on the wait: the service manager's watchdog is the
	// backstop for a tracee that never stops.
	Attach(pid int) (StopStatus, error)

	// Detach releases debugger control. Best effort.
	Detach(pid int)
}

// LinuxTracer implements Tracer with PTRACE_ATTACH / PTRACE_DETACH.
type LinuxTracer struct {
	logger *slog.Logger
}

// New creates a LinuxTracer.
func New(logger *slog.Logger) *LinuxTracer {
	return &LinuxTracer{logger: logger}
}

// Attach attaches to pid and waits for the stop notification.
func (t *LinuxTracer) Attach(pid int) (StopStatus, error) {
	if err := unix.PtraceAttach(pid); err != nil {
		return StopStatus{}, fmt.Errorf("ptrace attach pid %d: %w", pid, err)
	}

	// Attaching makes us the tracer, so Wait4 on a non-child is valid here.
	var ws unix.WaitStatus
	if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
		// Attach succeeded but the wait raced with process death.
		// Release control so we never leave a stray tracer behind.
		t.Detach(pid)
		return StopStatus{}, fmt.Errorf("wait for stop of pid %d: %w", pid, err)
	}

	return StopStatus{
		Stopped: ws.Stopped(),
		Signal:  ws.StopSignal(),
		Raw:     ws,
	}, nil
}

// Detach releases debugger control over pid. A failure here usually
// means the process is already gone, which is fine; it is logged at
// debug level only.
func (t *LinuxTracer) Detach(pid int) {
	if err := unix.PtraceDetach(pid); err != nil && err != unix.ESRCH {
		t.logger.Debug("ptrace_detach_failed", "pid", pid, "error", err)
	}
}

// Session pairs a successful attach with a guaranteed, idempotent
// detach. Callers defer Detach immediately after a successful
// AttachSession so every exit path releases the tracee.
type Session struct {
	pid      int
	tracer   Tracer
	detached bool

	// Stop is the stop condition observed during attach.
	Stop StopStatus
}

// AttachSession attaches to pid and returns a Session holding the
// stop status. On error no session exists and nothing needs releasing.
func AttachSession(tr Tracer, pid int) (*Session, error) {
	stop, err := tr.Attach(pid)
	if err != nil {
		return nil, err
	}
	return &Session{pid: pid, tracer: tr, Stop: stop}, nil
}

// Detach releases the tracee. Safe to call more than once; only the
// first call reaches the tracer.
func (s *Session) Detach() {
	if s.detached {
		return
	}
	s.detached = true
	s.tracer.Detach(s.pid)
}

// PID returns the traced process identifier.
func (s *Session) PID() int {
	return s.pid
}
