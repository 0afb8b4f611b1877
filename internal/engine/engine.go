// Package engine wires configuration, probes, scheduler, and
// observability into one runnable unit and owns the process lifecycle:
// preflight, agenda, signal handling, shutdown, and the exit summary.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/perturbd/perturbd/internal/config"
	"github.com/perturbd/perturbd/internal/events"
	"github.com/perturbd/perturbd/internal/metrics"
	"github.com/perturbd/perturbd/internal/preflight"
	"github.com/perturbd/perturbd/internal/probe"
	"github.com/perturbd/perturbd/internal/proctable"
	"github.com/perturbd/perturbd/internal/ptrace"
	"github.com/perturbd/perturbd/internal/scheduler"
	"github.com/perturbd/perturbd/internal/stats"
)

// Engine coordinates all components for a probing run.
type Engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog config.Catalog

	collector  *metrics.Collector
	server     *metrics.Server
	outcomes   *stats.OutcomeCounter
	recoveries *stats.RecoveryTracker
	ring       *events.Ring
	sched      *scheduler.Scheduler

	startTime time.Time

	mu     sync.Mutex
	phase  string
	cycles int64
}

// Status is a point-in-time view of the run for the dashboard.
type Status struct {
	Phase      string
	Cycles     int64
	Uptime     time.Duration
	Outcomes   []stats.OutcomeRow
	Recoveries []stats.KindStats
	Events     []string
}

// New creates an Engine from the given configuration. The catalog is
// loaded eagerly so a bad file fails before anything is perturbed.
func New(cfg *config.Config, version string, logger *slog.Logger) (*Engine, error) {
	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(version)

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		catalog:    catalog,
		collector:  collector,
		server:     metrics.NewServer(cfg.MetricsAddr, collector.Registry(), logger),
		outcomes:   stats.NewOutcomeCounter(),
		recoveries: stats.NewRecoveryTracker(),
		ring:       events.NewRing(128),
		startTime:  time.Now(),
		phase:      "starting",
	}

	// With the dashboard up, bubbletea owns the terminal; events go to
	// the ring buffer only and surface in the dashboard's event pane.
	var sink events.Sink = events.Multi{
		events.NewLineSink(os.Stdout, logger),
		e.ring,
	}
	if cfg.TUIEnabled {
		sink = e.ring
	}

	table := proctable.NewWithRoot(cfg.ProcRoot)
	rec := &runRecorder{
		collector:  collector,
		outcomes:   e.outcomes,
		recoveries: e.recoveries,
	}

	sigterm := probe.NewSignalProbe(probe.SignalConfig{
		Kind:             probe.KindGraceful,
		ShutdownDelay:    cfg.ShutdownDelay,
		InterTargetDelay: cfg.InterTargetDelay,
	}, table, nil, sink, logger, rec)

	sigkill := probe.NewSignalProbe(probe.SignalConfig{
		Kind:             probe.KindForceful,
		ShutdownDelay:    cfg.ShutdownDelay,
		InterTargetDelay: cfg.InterTargetDelay,
	}, table, nil, sink, logger, rec)

	freeze := probe.NewFreezeProbe(probe.FreezeConfig{
		PollIterations: cfg.FreezePollIterations,
		PollInterval:   cfg.FreezePollInterval,
	}, table, ptrace.New(logger), sink, logger, rec)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e.sched = scheduler.New(scheduler.Config{
		Catalog: scheduler.Catalog{
			Sigterm: catalog.Sigterm,
			Sigkill: catalog.Sigkill,
			Freeze:  catalog.Freeze,
		},
		SigtermEnabled: !cfg.DisableSigterm,
		SigkillEnabled: !cfg.DisableSigkill,
		FreezeEnabled:  !cfg.DisableFreeze,
		CycleDelay:     cfg.CycleDelay,
		Once:           cfg.Once,
		Rand:           rand.New(rand.NewSource(seed)),
		OnPhase:        e.onPhase,
		OnCycle:        e.onCycle,
	}, sigterm, sigkill, freeze, sink, logger)

	return e, nil
}

// Run executes the probing loop. It blocks until the loop finishes
// (Once mode), a termination signal arrives, or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if !e.cfg.SkipPreflight {
		result := preflight.RunAll(e.cfg.ProcRoot, !e.cfg.DisableFreeze, e.enabledTargetCount())
		preflight.PrintResults(result)
		if !result.Passed {
			return fmt.Errorf("preflight checks failed (use -skip-preflight to override)")
		}
	}

	if err := e.server.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	e.printAgenda()

	done := make(chan error, 1)
	go func() {
		done <- e.sched.Run(ctx)
	}()

	select {
	case sig := <-sigCh:
		e.logger.Info("received_signal", "signal", sig.String())
		cancel()
		<-done
	case err := <-done:
		// Cancellation surfaces as context.Canceled. Not a failure.
		if err != nil && ctx.Err() == nil {
			e.logger.Error("scheduler_stopped", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.server.Shutdown(shutdownCtx); err != nil {
		e.logger.Warn("metrics_server_shutdown_error", "error", err)
	}

	snapshotPath := e.writeSnapshot()

	fmt.Print(stats.FormatExitSummary(e.outcomes, e.recoveries, stats.SummaryConfig{
		Duration:     time.Since(e.startTime),
		Cycles:       e.Status().Cycles,
		MetricsAddr:  e.cfg.MetricsAddr,
		SnapshotPath: snapshotPath,
	}))

	return nil
}

// Status returns a snapshot of the run for the dashboard.
func (e *Engine) Status() Status {
	e.mu.Lock()
	phase := e.phase
	cycles := e.cycles
	e.mu.Unlock()

	return Status{
		Phase:      phase,
		Cycles:     cycles,
		Uptime:     time.Since(e.startTime),
		Outcomes:   e.outcomes.Rows(),
		Recoveries: e.recoveries.Snapshot(),
		Events:     e.ring.Lines(),
	}
}

func (e *Engine) onPhase(p scheduler.Phase) {
	e.collector.SetPhase(p.String())
	e.mu.Lock()
	e.phase = p.String()
	e.mu.Unlock()
}

func (e *Engine) onCycle(n int) {
	e.collector.CycleCompleted()
	e.mu.Lock()
	e.cycles = int64(n)
	e.mu.Unlock()
}

// printAgenda logs what this run is going to do before it does it, so
// an operator tailing the journal knows which disruptions are ours.
func (e *Engine) printAgenda() {
	e.logger.Info("agenda",
		"cycle_delay", e.cfg.CycleDelay.String(),
		"once", e.cfg.Once,
	)

	if !e.cfg.DisableSigterm {
		e.logger.Info("agenda_phase",
			"phase", "sigterm",
			"targets", strings.Join(e.catalog.Sigterm, ","),
			"shutdown_delay", e.cfg.ShutdownDelay.String(),
			"inter_target_delay", e.cfg.InterTargetDelay.String(),
		)
	}
	if !e.cfg.DisableSigkill {
		// The forceful phase also re-covers the graceful targets.
		all := append(append([]string{}, e.catalog.Sigkill...), e.catalog.Sigterm...)
		e.logger.Info("agenda_phase",
			"phase", "sigkill",
			"targets", strings.Join(all, ","),
		)
	}
	if !e.cfg.DisableFreeze {
		e.logger.Info("agenda_phase",
			"phase", "freeze",
			"targets", strings.Join(e.catalog.Freeze, ","),
			"recovery_budget", (time.Duration(e.cfg.FreezePollIterations) * e.cfg.FreezePollInterval).String(),
		)
	}
}

// enabledTargetCount counts catalog entries the enabled phases will
// actually use. The graceful list counts when either signal phase is
// on, because the forceful phase covers it too.
func (e *Engine) enabledTargetCount() int {
	count := 0
	if !e.cfg.DisableSigterm || !e.cfg.DisableSigkill {
		count += len(e.catalog.Sigterm)
	}
	if !e.cfg.DisableSigkill {
		count += len(e.catalog.Sigkill)
	}
	if !e.cfg.DisableFreeze {
		count += len(e.catalog.Freeze)
	}
	return count
}

// writeSnapshot dumps the metrics registry to the configured path.
// Returns the path on success, empty otherwise.
func (e *Engine) writeSnapshot() string {
	if e.cfg.SnapshotPath == "" {
		return ""
	}

	f, err := os.Create(e.cfg.SnapshotPath)
	if err != nil {
		e.logger.Warn("snapshot_write_failed", "path", e.cfg.SnapshotPath, "error", err)
		return ""
	}
	defer f.Close()

	if err := e.collector.WriteSnapshot(f); err != nil {
		e.logger.Warn("snapshot_write_failed", "path", e.cfg.SnapshotPath, "error", err)
		return ""
	}
	return e.cfg.SnapshotPath
}

// runRecorder fans probe measurements out to Prometheus and to the
// in-memory trackers behind the exit summary and the dashboard.
type runRecorder struct {
	collector  *metrics.Collector
	outcomes   *stats.OutcomeCounter
	recoveries *stats.RecoveryTracker
}

func (r *runRecorder) RecordOutcome(kind string, outcome probe.Outcome) {
	r.collector.CountOutcome(kind, outcome.String())
	r.outcomes.CountOutcome(kind, outcome.String())
}

func (r *runRecorder) RecordSignalError(kind string) {
	r.collector.CountSignalError(kind)
	r.outcomes.CountSignalError(kind)
}

func (r *runRecorder) RecordAttach(clean bool) {
	r.collector.CountAttach(clean)
}

func (r *runRecorder) RecordFreezePolls(iterations int) {
	r.collector.ObserveFreezePolls(iterations)
}

func (r *runRecorder) RecordRecovery(kind string, d time.Duration) {
	r.collector.ObserveRecovery(kind, d.Seconds())
	r.recoveries.Record(kind, d)
}
