// Package proctable provides read-only process table introspection:
// name-to-PID resolution, liveness checks, and debugger/zombie state
// classification from the proc filesystem.
package proctable

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// DebugState classifies the debugger-related state of a process.
type DebugState int

const (
	// StateNotDebugged means the process exists and has no tracer attached.
	StateNotDebugged DebugState = iota

	// StateDebugged means a tracer is attached and the process is not a zombie.
	StateDebugged

	// StateZombie means the process has exited but has not been reaped.
	// Zombie takes precedence over an attached tracer: a zombie is never
	// actionably debugged.
	StateZombie

	// StateUnreadable means the process status could not be read, usually
	// because the process exited between the existence check and the read.
	// Callers must treat this as "not alive", not as an error.
	StateUnreadable
)

// String returns a human-readable name for the state.
func (s DebugState) String() string {
	switch s {
	case StateNotDebugged:
		return "not_debugged"
	case StateDebugged:
		return "debugged"
	case StateZombie:
		return "zombie"
	case StateUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// Table answers queries against the OS process table. All methods are
// read-only snapshots: a PID returned by Resolve may be gone by the time
// the caller acts on it.
type Table struct {
	root string
}

// New returns a Table backed by the real proc filesystem.
func New() *Table {
	return NewWithRoot("/proc")
}

// NewWithRoot returns a Table rooted at an alternate proc mount.
// Used by tests to point at a synthetic tree.
func NewWithRoot(root string) *Table {
	return &Table{root: root}
}

// Resolve returns the PIDs of all processes whose command name matches
// name, sorted ascending. An empty result means "not found" and is not
// an error: callers decide whether a missing target is an anomaly.
func (t *Table) Resolve(name string) []int {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		return nil
	}

	var pids []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(t.root, e.Name(), "comm"))
		if err != nil {
			// Exited mid-walk.
			continue
		}
		if strings.TrimSpace(string(comm)) == name {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids
}

// Alive reports whether the OS still recognizes pid as an existing
// process. This is an existence check via signal 0: EPERM still means
// the process exists, only ESRCH (or a reaped PID) means gone.
func (t *Table) Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == unix.EPERM
}

// Inspect reads /proc/<pid>/status and classifies the process.
// Zombie wins over debugged; an unreadable status (process raced away)
// maps to StateUnreadable.
func (t *Table) Inspect(pid int) DebugState {
	data, err := os.ReadFile(filepath.Join(t.root, strconv.Itoa(pid), "status"))
	if err != nil {
		return StateUnreadable
	}
	return classifyStatus(string(data))
}

// classifyStatus parses the State and TracerPid fields of a
// /proc/<pid>/status document.
func classifyStatus(status string) DebugState {
	tracer := 0
	zombie := false

	for _, line := range strings.Split(status, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch key {
		case "State":
			// Format: "Z (zombie)" / "t (tracing stop)" / "S (sleeping)"
			if strings.HasPrefix(val, "Z") {
				zombie = true
			}
		case "TracerPid":
			tracer, _ = strconv.Atoi(val)
		}
	}

	if zombie {
		return StateZombie
	}
	if tracer != 0 {
		return StateDebugged
	}
	return StateNotDebugged
}
