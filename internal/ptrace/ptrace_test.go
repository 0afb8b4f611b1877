package ptrace

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/sys/unix"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Test Helpers
// =============================================================================

// fakeTracer records attach/detach calls and returns scripted results.
type fakeTracer struct {
	stop      StopStatus
	attachErr error

	attached []int
	detached []int
}

func (f *fakeTracer) Attach(pid int) (StopStatus, error) {
	f.attached = append(f.attached, pid)
	if f.attachErr != nil {
		return StopStatus{}, f.attachErr
	}
	return f.stop, nil
}

func (f *fakeTracer) Detach(pid int) {
	f.detached = append(f.detached, pid)
}

// =============================================================================
// Tests: StopStatus
// =============================================================================

func TestStopStatusClean(t *testing.T) {
	tests := []struct {
		name string
		stop StopStatus
		want bool
	}{
		{
			name: "clean SIGSTOP",
			stop: StopStatus{Stopped: true, Signal: unix.SIGSTOP},
			want: true,
		},
		{
			name: "stopped by other signal",
			stop: StopStatus{Stopped: true, Signal: unix.SIGTRAP},
			want: false,
		},
		{
			name: "not stopped at all",
			stop: StopStatus{Stopped: false, Signal: unix.SIGSTOP},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stop.Clean(); got != tt.want {
				t.Errorf("Clean() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Tests: Session
// =============================================================================

func TestAttachSession(t *testing.T) {
	tr := &fakeTracer{stop: StopStatus{Stopped: true, Signal: unix.SIGSTOP}}

	sess, err := AttachSession(tr, 42)
	if err != nil {
		t.Fatalf("AttachSession: %v", err)
	}
	if sess.PID() != 42 {
		t.Errorf("PID() = %d, want 42", sess.PID())
	}
	if !sess.Stop.Clean() {
		t.Error("Stop.Clean() = false, want true")
	}
	if len(tr.attached) != 1 || tr.attached[0] != 42 {
		t.Errorf("attached = %v, want [42]", tr.attached)
	}
}

func TestAttachSessionError(t *testing.T) {
	wantErr := errors.New("no such process")
	tr := &fakeTracer{attachErr: wantErr}

	sess, err := AttachSession(tr, 7)
	if err == nil {
		t.Fatal("AttachSession: expected error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
	if sess != nil {
		t.Error("session should be nil on attach failure")
	}
	if len(tr.detached) != 0 {
		t.Errorf("detached = %v, want none (nothing to release)", tr.detached)
	}
}

func TestSessionDetachIdempotent(t *testing.T) {
	tr := &fakeTracer{stop: StopStatus{Stopped: true, Signal: unix.SIGSTOP}}

	sess, err := AttachSession(tr, 42)
	if err != nil {
		t.Fatalf("AttachSession: %v", err)
	}

	sess.Detach()
	sess.Detach()
	sess.Detach()

	if len(tr.detached) != 1 {
		t.Errorf("detach reached tracer %d times, want exactly 1", len(tr.detached))
	}
	if tr.detached[0] != 42 {
		t.Errorf("detached pid = %d, want 42", tr.detached[0])
	}
}

// =============================================================================
// Tests: LinuxTracer (against the real kernel, self only)
// =============================================================================

func TestLinuxTracerAttachMissingProcess(t *testing.T) {
	tr := New(testLogger())

	// Far above any realistic pid_max.
	_, err := tr.Attach(1 << 30)
	if err == nil {
		t.Fatal("Attach to missing pid: expected error")
	}
}

func TestLinuxTracerDetachMissingProcess(t *testing.T) {
	tr := New(testLogger())

	// Must not panic or error; detaching from a dead process is normal.
	tr.Detach(1 << 30)
}
