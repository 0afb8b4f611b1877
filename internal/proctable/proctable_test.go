package proctable

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// =============================================================================
// Test Helpers
// =============================================================================

// writeProcEntry creates a synthetic /proc/<pid> directory with the given
// comm and status contents.
func writeProcEntry(t *testing.T, root string, pid int, comm, status string) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if comm != "" {
		if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0o644); err != nil {
			t.Fatalf("write comm: %v", err)
		}
	}
	if status != "" {
		if err := os.WriteFile(filepath.Join(dir, "status"), []byte(status), 0o644); err != nil {
			t.Fatalf("write status: %v", err)
		}
	}
}

func statusDoc(state string, tracerPid int) string {
	return "Name:\tworker\n" +
		"State:\t" + state + "\n" +
		"Tgid:\t100\n" +
		"TracerPid:\t" + strconv.Itoa(tracerPid) + "\n" +
		"Uid:\t0\t0\t0\t0\n"
}

// =============================================================================
// Tests: Resolve
// =============================================================================

func TestResolve(t *testing.T) {
	root := t.TempDir()
	writeProcEntry(t, root, 42, "worker", "")
	writeProcEntry(t, root, 7, "worker", "")
	writeProcEntry(t, root, 13, "daemon", "")
	// Non-numeric entries must be skipped.
	if err := os.MkdirAll(filepath.Join(root, "sys"), 0o755); err != nil {
		t.Fatal(err)
	}

	table := NewWithRoot(root)

	tests := []struct {
		name   string
		target string
		want   []int
	}{
		{name: "multiple instances sorted", target: "worker", want: []int{7, 42}},
		{name: "single instance", target: "daemon", want: []int{13}},
		{name: "no such process", target: "ghost", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Resolve(tt.target)
			if len(got) != len(tt.want) {
				t.Fatalf("Resolve(%q) = %v, want %v", tt.target, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Resolve(%q)[%d] = %d, want %d", tt.target, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolveMissingRoot(t *testing.T) {
	table := NewWithRoot("/nonexistent/proc/root")
	if got := table.Resolve("worker"); got != nil {
		t.Errorf("Resolve on missing root = %v, want nil", got)
	}
}

func TestResolveSkipsEntriesWithoutComm(t *testing.T) {
	root := t.TempDir()
	// PID directory exists but comm is unreadable (process exited mid-walk).
	if err := os.MkdirAll(filepath.Join(root, "99"), 0o755); err != nil {
		t.Fatal(err)
	}
	table := NewWithRoot(root)
	if got := table.Resolve("worker"); got != nil {
		t.Errorf("Resolve = %v, want nil", got)
	}
}

// =============================================================================
// Tests: Alive
// =============================================================================

func TestAlive(t *testing.T) {
	table := New()

	if !table.Alive(os.Getpid()) {
		t.Error("Alive(self) = false, want true")
	}
	if !table.Alive(1) {
		// Signal 0 to PID 1 returns EPERM for unprivileged callers,
		// which still counts as alive.
		t.Error("Alive(1) = false, want true")
	}

	// Far above any realistic pid_max.
	if table.Alive(1 << 30) {
		t.Error("Alive(1<<30) = true, want false")
	}
}

// =============================================================================
// Tests: Inspect / classifyStatus
// =============================================================================

func TestInspect(t *testing.T) {
	root := t.TempDir()
	writeProcEntry(t, root, 10, "worker", statusDoc("S (sleeping)", 0))
	writeProcEntry(t, root, 11, "worker", statusDoc("t (tracing stop)", 999))
	writeProcEntry(t, root, 12, "worker", statusDoc("Z (zombie)", 999))
	writeProcEntry(t, root, 13, "worker", statusDoc("Z (zombie)", 0))

	table := NewWithRoot(root)

	tests := []struct {
		name string
		pid  int
		want DebugState
	}{
		{name: "running untraced", pid: 10, want: StateNotDebugged},
		{name: "tracing stop", pid: 11, want: StateDebugged},
		{name: "zombie wins over tracer", pid: 12, want: StateZombie},
		{name: "plain zombie", pid: 13, want: StateZombie},
		{name: "missing status is unreadable", pid: 404, want: StateUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Inspect(tt.pid); got != tt.want {
				t.Errorf("Inspect(%d) = %v, want %v", tt.pid, got, tt.want)
			}
		})
	}
}

func TestDebugStateString(t *testing.T) {
	tests := []struct {
		state DebugState
		want  string
	}{
		{StateNotDebugged, "not_debugged"},
		{StateDebugged, "debugged"},
		{StateZombie, "zombie"},
		{StateUnreadable, "unreadable"},
		{DebugState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("DebugState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
