package probe

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/perturbd/perturbd/internal/events"
	"github.com/perturbd/perturbd/internal/proctable"
	"github.com/perturbd/perturbd/internal/ptrace"
)

// FreezeConfig holds configuration for a FreezeProbe.
type FreezeConfig struct {
	// PollIterations bounds the recovery wait: the probe gives the
	// service manager at most PollIterations * PollInterval to act.
	PollIterations int

	// PollInterval is the pause between recovery checks. Checking less
	// often than once a second keeps the journal from flooding.
	PollInterval time.Duration
}

// DefaultFreezeConfig matches the compiled-in budget: 10 polls, 5s apart.
func DefaultFreezeConfig() FreezeConfig {
	return FreezeConfig{
		PollIterations: 10,
		PollInterval:   5 * time.Second,
	}
}

// FreezeProbe simulates a hung process by attaching a debugger to it,
// then waits for the service manager's watchdog to notice and act.
// Recovery is either the process disappearing (watchdog killed it) or
// the tracer flag clearing without the probe's doing.
type FreezeProbe struct {
	cfg    FreezeConfig
	table  ProcessTable
	tracer ptrace.Tracer
	sink   events.Sink
	logger *slog.Logger
	rec    Recorder
}

// NewFreezeProbe creates a FreezeProbe. A nil recorder discards
// measurements.
func NewFreezeProbe(cfg FreezeConfig, table ProcessTable, tracer ptrace.Tracer, sink events.Sink, logger *slog.Logger, rec Recorder) *FreezeProbe {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &FreezeProbe{
		cfg:    cfg,
		table:  table,
		tracer: tracer,
		sink:   sink,
		logger: logger,
		rec:    rec,
	}
}

// Kind returns the probe-kind label.
func (p *FreezeProbe) Kind() string {
	return "freeze"
}

// Run probes the targets in the given order. Each PID is attached,
// polled for recovery within the bounded window, and always detached,
// including on the failure path.
func (p *FreezeProbe) Run(ctx context.Context, targets []string) error {
	for _, target := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		pids := p.table.Resolve(target)
		if len(pids) == 0 {
			p.sink.Emit("target_not_found", "kind", p.Kind(), "target", target)
			p.rec.RecordOutcome(p.Kind(), OutcomeNotFound)
			continue
		}

		for _, pid := range pids {
			if pid == supervisorPID {
				p.sink.Emit("supervisor_pid_skipped", "kind", p.Kind(), "target", target)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.freezeOne(ctx, target, pid)
		}
	}

	return nil
}

// freezeOne attaches to a single PID and waits for recovery.
func (p *FreezeProbe) freezeOne(ctx context.Context, target string, pid int) {
	p.sink.Emit("freeze_attach",
		"kind", p.Kind(),
		"target", target,
		"pid", pid,
	)

	sess, err := ptrace.AttachSession(p.tracer, pid)
	if err != nil {
		// Most often the process exited between resolve and attach.
		p.sink.Emit("freeze_attach_failed",
			"kind", p.Kind(),
			"target", target,
			"pid", pid,
			"error", err.Error(),
		)
		return
	}
	// The one rule of this probe: an attach is always paired with a
	// detach, whatever path we leave on.
	defer sess.Detach()

	p.rec.RecordAttach(sess.Stop.Clean())
	if sess.Stop.Clean() {
		p.sink.Emit("freeze_stopped",
			"target", target,
			"pid", pid,
		)
	} else {
		p.sink.Emit("freeze_stopped_unusual",
			"target", target,
			"pid", pid,
			"signal", unix.SignalName(sess.Stop.Signal),
		)
	}

	budget := time.Duration(p.cfg.PollIterations) * p.cfg.PollInterval
	p.sink.Emit("freeze_waiting_for_recovery",
		"target", target,
		"pid", pid,
		"budget", budget.String(),
	)

	start := time.Now()
	outcome := OutcomeSurvivedUnchanged
	polls := p.cfg.PollIterations

	for i := 0; i < p.cfg.PollIterations; i++ {
		if !p.table.Alive(pid) {
			// Watchdog killed it; the supervisor will or did respawn.
			outcome = OutcomeDisappeared
			polls = i
			break
		}
		if state := p.table.Inspect(pid); state != proctable.StateDebugged {
			// No longer flagged as debugged (or became a zombie /
			// unreadable): evidence enough that something external
			// acted, even with the same PID.
			outcome = OutcomeRestarted
			polls = i
			break
		}
		p.sink.Emit("freeze_still_attached",
			"target", target,
			"pid", pid,
			"remaining", (budget - time.Duration(i)*p.cfg.PollInterval).String(),
		)
		if !sleepCtx(ctx, p.cfg.PollInterval) {
			return
		}
	}

	p.rec.RecordFreezePolls(polls)
	p.rec.RecordOutcome(p.Kind(), outcome)

	switch outcome {
	case OutcomeDisappeared:
		p.rec.RecordRecovery(p.Kind(), time.Since(start))
		p.sink.Emit("freeze_recovered",
			"target", target,
			"pid", pid,
			"reason", "process gone",
		)
	case OutcomeRestarted:
		p.rec.RecordRecovery(p.Kind(), time.Since(start))
		p.sink.Emit("freeze_recovered",
			"target", target,
			"pid", pid,
			"reason", "no longer debugged",
		)
	default:
		p.sink.Emit("freeze_still_frozen",
			"target", target,
			"pid", pid,
			"note", "supervisor did not act within the budget; detaching",
		)
	}
}
