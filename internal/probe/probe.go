// Package probe implements the fault-injection probes and the recovery
// verifier. A probe perturbs every process currently backing a named
// target, then watches the process table to classify whether the
// service manager recovered it.
package probe

import (
	"context"
	"time"

	"golang.org/x/sys/unix"

	"github.com/perturbd/perturbd/internal/proctable"
)

// ProcessTable is the process-table surface probes depend on.
// *proctable.Table satisfies it; tests use a scripted fake.
type ProcessTable interface {
	// Resolve returns all PIDs currently bearing name. Empty means
	// "not found", never an error.
	Resolve(name string) []int

	// Alive reports whether pid still exists.
	Alive(pid int) bool

	// Inspect classifies pid's debugger/zombie state.
	Inspect(pid int) proctable.DebugState
}

// Signaler delivers signals to processes. Split out so probes can be
// tested without killing anything.
type Signaler interface {
	Signal(pid int, sig unix.Signal) error
}

// KillSignaler delivers signals via the kill syscall.
type KillSignaler struct{}

// Signal sends sig to pid.
func (KillSignaler) Signal(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

// Recorder receives probe measurements. The metrics collector and the
// latency tracker implement it; probes never know which backend is
// behind it.
type Recorder interface {
	// RecordOutcome counts one probe outcome for a probe kind.
	RecordOutcome(kind string, outcome Outcome)

	// RecordSignalError counts a failed signal delivery.
	RecordSignalError(kind string)

	// RecordAttach counts a debugger attach and whether the stop was clean.
	RecordAttach(clean bool)

	// RecordFreezePolls records how many poll iterations a freeze
	// probe consumed before resolving.
	RecordFreezePolls(iterations int)

	// RecordRecovery records the observed time from perturbation to
	// confirmed recovery.
	RecordRecovery(kind string, d time.Duration)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) RecordOutcome(string, Outcome)        {}
func (NopRecorder) RecordSignalError(string)             {}
func (NopRecorder) RecordAttach(bool)                    {}
func (NopRecorder) RecordFreezePolls(int)                {}
func (NopRecorder) RecordRecovery(string, time.Duration) {}

// supervisorPID is the service manager root. It must never be
// perturbed, whatever the catalog or any fallback says.
const supervisorPID = 1

// sleepCtx blocks for d or until ctx is cancelled. Returns false on
// cancellation so callers can bail out of their loops.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
