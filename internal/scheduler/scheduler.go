// Package scheduler drives the probe phases in a fixed macro-order:
// sigterm, sigkill, freeze, idle, forever. Target order inside a phase
// is randomized once per cycle so successive cycles exercise different
// interaction orderings.
package scheduler

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/perturbd/perturbd/internal/events"
)

// Phase identifies the scheduler's current position in the cycle.
type Phase int

const (
	PhaseSigterm Phase = iota
	PhaseSigkill
	PhaseFreeze
	PhaseIdle
)

// String returns the phase label used in events and metrics.
func (p Phase) String() string {
	switch p {
	case PhaseSigterm:
		return "sigterm"
	case PhaseSigkill:
		return "sigkill"
	case PhaseFreeze:
		return "freeze"
	case PhaseIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Probe is one probe kind: it perturbs the given targets in order and
// returns early only on context cancellation.
type Probe interface {
	Run(ctx context.Context, targets []string) error
	Kind() string
}

// Catalog holds the per-phase target lists, in configured order.
type Catalog struct {
	Sigterm []string
	Sigkill []string
	Freeze  []string
}

// Config holds everything the scheduler needs to run.
type Config struct {
	Catalog Catalog

	// Phase switches. A disabled phase is skipped, the cycle order is
	// otherwise unchanged.
	SigtermEnabled bool
	SigkillEnabled bool
	FreezeEnabled  bool

	// CycleDelay is the idle pause between full cycles.
	CycleDelay time.Duration

	// Once stops after a single cycle instead of looping forever.
	Once bool

	// Rand drives the per-cycle target shuffling. Required.
	Rand *rand.Rand

	// OnPhase, if set, is called on every phase transition.
	OnPhase func(Phase)

	// OnCycle, if set, is called after each completed cycle.
	OnCycle func(n int)
}

// Scheduler owns the infinite probe loop. Strictly sequential: probes
// never overlap, so outcome attribution stays unambiguous.
type Scheduler struct {
	cfg     Config
	sigterm Probe
	sigkill Probe
	freeze  Probe
	sink    events.Sink
	logger  *slog.Logger

	cycles int
}

// New creates a Scheduler over the three probe kinds.
func New(cfg Config, sigterm, sigkill, freeze Probe, sink events.Sink, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		sigterm: sigterm,
		sigkill: sigkill,
		freeze:  freeze,
		sink:    sink,
		logger:  logger,
	}
}

// Cycles returns the number of completed cycles.
func (s *Scheduler) Cycles() int {
	return s.cycles
}

// Run loops until ctx is cancelled (or one cycle completes in Once
// mode). There is no terminal failure state: a bad target or a failed
// probe is logged and the loop keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			return err
		}

		s.cycles++
		if s.cfg.OnCycle != nil {
			s.cfg.OnCycle(s.cycles)
		}
		s.sink.Emit("cycle_complete", "cycle", s.cycles)

		if s.cfg.Once {
			return nil
		}

		s.setPhase(PhaseIdle)
		s.sink.Emit("idle", "delay", s.cfg.CycleDelay.String())
		if !sleepCtx(ctx, s.cfg.CycleDelay) {
			return ctx.Err()
		}
	}
}

// runCycle executes the three phases once, in fixed order, shuffling
// each phase's targets for this cycle.
func (s *Scheduler) runCycle(ctx context.Context) error {
	if s.cfg.SigtermEnabled {
		s.setPhase(PhaseSigterm)
		targets := Shuffled(s.cfg.Catalog.Sigterm, s.cfg.Rand)
		s.sink.Emit("phase_start", "phase", "sigterm", "targets", len(targets))
		if err := s.sigterm.Run(ctx, targets); err != nil {
			return err
		}
	}

	if s.cfg.SigkillEnabled {
		s.setPhase(PhaseSigkill)
		// The forceful phase covers the graceful targets too: anything
		// expected to survive SIGTERM must also survive SIGKILL.
		targets := append(
			Shuffled(s.cfg.Catalog.Sigkill, s.cfg.Rand),
			Shuffled(s.cfg.Catalog.Sigterm, s.cfg.Rand)...,
		)
		s.sink.Emit("phase_start", "phase", "sigkill", "targets", len(targets))
		if err := s.sigkill.Run(ctx, targets); err != nil {
			return err
		}
	}

	if s.cfg.FreezeEnabled {
		s.setPhase(PhaseFreeze)
		if len(s.cfg.Catalog.Freeze) == 0 {
			// Probing the whole process table minus pid 1 is an open
			// product decision; until then an empty list skips the phase.
			s.sink.Emit("freeze_phase_skipped", "reason", "no freeze targets configured")
		} else {
			targets := Shuffled(s.cfg.Catalog.Freeze, s.cfg.Rand)
			s.sink.Emit("phase_start", "phase", "freeze", "targets", len(targets))
			if err := s.freeze.Run(ctx, targets); err != nil {
				return err
			}
		}
	}

	return ctx.Err()
}

func (s *Scheduler) setPhase(p Phase) {
	if s.cfg.OnPhase != nil {
		s.cfg.OnPhase(p)
	}
}

// sleepCtx blocks for d or until ctx is cancelled.
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
