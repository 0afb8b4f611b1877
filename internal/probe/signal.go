package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/perturbd/perturbd/internal/events"
)

// SignalKind selects the termination signal a SignalProbe injects.
type SignalKind int

const (
	// KindGraceful requests cooperative termination (SIGTERM).
	KindGraceful SignalKind = iota

	// KindForceful terminates unconditionally (SIGKILL).
	KindForceful
)

// Signal returns the OS signal for the kind.
func (k SignalKind) Signal() unix.Signal {
	if k == KindForceful {
		return unix.SIGKILL
	}
	return unix.SIGTERM
}

// String returns the probe-kind label used in events and metrics.
func (k SignalKind) String() string {
	if k == KindForceful {
		return "sigkill"
	}
	return "sigterm"
}

// SignalConfig holds configuration for a SignalProbe.
type SignalConfig struct {
	Kind SignalKind

	// ShutdownDelay is how long to wait after signal delivery before
	// the single verification snapshot. Restart latency within this
	// window is expected and not a failure.
	ShutdownDelay time.Duration

	// InterTargetDelay is the pause after finishing one target before
	// perturbing the next. Deliberately much longer than ShutdownDelay:
	// coupled processes need time to destabilize now, so a later probe
	// does not get blamed for this target's fallout.
	InterTargetDelay time.Duration
}

// SignalProbe injects a termination signal into every process of each
// target, then verifies recovery via the process table.
type SignalProbe struct {
	cfg      SignalConfig
	table    ProcessTable
	signaler Signaler
	sink     events.Sink
	logger   *slog.Logger
	rec      Recorder
}

// NewSignalProbe creates a SignalProbe. A nil signaler defaults to the
// kill syscall; a nil recorder discards measurements.
func NewSignalProbe(cfg SignalConfig, table ProcessTable, signaler Signaler, sink events.Sink, logger *slog.Logger, rec Recorder) *SignalProbe {
	if signaler == nil {
		signaler = KillSignaler{}
	}
	if rec == nil {
		rec = NopRecorder{}
	}
	return &SignalProbe{
		cfg:      cfg,
		table:    table,
		signaler: signaler,
		sink:     sink,
		logger:   logger,
		rec:      rec,
	}
}

// Kind returns the probe-kind label.
func (p *SignalProbe) Kind() string {
	return p.cfg.Kind.String()
}

// Run probes the targets in the given order. A target with no process,
// a delivery failure, or a bad outcome never aborts the run; each is
// logged and the loop continues. Run returns early only when ctx is
// cancelled.
func (p *SignalProbe) Run(ctx context.Context, targets []string) error {
	kind := p.Kind()

	for _, target := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		pids := p.table.Resolve(target)
		if len(pids) == 0 {
			// Scenario: target should be running but is not. Anomaly,
			// no signal, no delay, straight to the next target.
			p.sink.Emit("target_not_found", "kind", kind, "target", target)
			p.rec.RecordOutcome(kind, OutcomeNotFound)
			continue
		}

		// Normally one process per name, but multi-instance targets
		// are legal: perturb and verify every PID independently.
		for _, pid := range pids {
			if pid == supervisorPID {
				p.sink.Emit("supervisor_pid_skipped", "kind", kind, "target", target)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.probeOne(ctx, target, pid, pids)
		}

		p.sink.Emit("target_settle_wait",
			"kind", kind,
			"target", target,
			"delay", p.cfg.InterTargetDelay.String(),
		)
		if !sleepCtx(ctx, p.cfg.InterTargetDelay) {
			return ctx.Err()
		}
	}

	return nil
}

// probeOne signals a single PID and verifies the target afterwards.
// old is the full pre-perturbation PID set for the target.
func (p *SignalProbe) probeOne(ctx context.Context, target string, pid int, old []int) {
	kind := p.Kind()
	sig := p.cfg.Kind.Signal()

	p.sink.Emit("signal_sent",
		"kind", kind,
		"target", target,
		"pid", pid,
		"signal", unix.SignalName(sig),
	)

	start := time.Now()
	if err := p.signaler.Signal(pid, sig); err != nil {
		// The process can vanish between resolve and send. Expected
		// transient, never fatal.
		p.sink.Emit("signal_delivery_failed",
			"kind", kind,
			"target", target,
			"pid", pid,
			"error", err.Error(),
		)
		p.rec.RecordSignalError(kind)
	}

	if !sleepCtx(ctx, p.cfg.ShutdownDelay) {
		return
	}

	// Never trust the old PID after a perturbation: re-resolve.
	v := Verify(p.table, target, old)
	p.rec.RecordOutcome(kind, v.Outcome)

	switch v.Outcome {
	case OutcomeRestarted:
		p.rec.RecordRecovery(kind, time.Since(start))
		p.sink.Emit("target_restarted",
			"kind", kind,
			"target", target,
			"old_pids", fmt.Sprint(v.Old),
			"new_pids", fmt.Sprint(v.New),
		)
	case OutcomeSurvivedUnchanged:
		p.sink.Emit("target_survived_unchanged",
			"kind", kind,
			"target", target,
			"pids", fmt.Sprint(v.New),
			"note", "confirm the process was really reinitialized and not simply never stopped",
		)
	case OutcomeDisappeared:
		p.sink.Emit("target_not_detectable",
			"kind", kind,
			"target", target,
			"old_pids", fmt.Sprint(v.Old),
			"note", "no replacement process appeared; check the journal",
		)
	}
}
