package probe

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/perturbd/perturbd/internal/proctable"
	"github.com/perturbd/perturbd/internal/ptrace"
)

// =============================================================================
// Shared fakes for probe tests
// =============================================================================

// fakeTable is a scripted process table. Each query pops the next
// scripted answer for its key; the last answer repeats forever.
type fakeTable struct {
	mu         sync.Mutex
	resolveSeq map[string][][]int
	aliveSeq   map[int][]bool
	stateSeq   map[int][]proctable.DebugState
}

func newFakeTable() *fakeTable {
	return &fakeTable{
		resolveSeq: make(map[string][][]int),
		aliveSeq:   make(map[int][]bool),
		stateSeq:   make(map[int][]proctable.DebugState),
	}
}

func (f *fakeTable) Resolve(name string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.resolveSeq[name]
	if len(seq) == 0 {
		return nil
	}
	head := seq[0]
	if len(seq) > 1 {
		f.resolveSeq[name] = seq[1:]
	}
	return head
}

func (f *fakeTable) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.aliveSeq[pid]
	if len(seq) == 0 {
		return false
	}
	head := seq[0]
	if len(seq) > 1 {
		f.aliveSeq[pid] = seq[1:]
	}
	return head
}

func (f *fakeTable) Inspect(pid int) proctable.DebugState {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.stateSeq[pid]
	if len(seq) == 0 {
		return proctable.StateUnreadable
	}
	head := seq[0]
	if len(seq) > 1 {
		f.stateSeq[pid] = seq[1:]
	}
	return head
}

// fakeSignaler records deliveries and optionally fails specific PIDs.
type fakeSignaler struct {
	sent    []sentSignal
	failPID map[int]error
}

type sentSignal struct {
	pid int
	sig unix.Signal
}

func (f *fakeSignaler) Signal(pid int, sig unix.Signal) error {
	f.sent = append(f.sent, sentSignal{pid: pid, sig: sig})
	if err, ok := f.failPID[pid]; ok {
		return err
	}
	return nil
}

// fakeTracer is a scripted ptrace.Tracer counting attach/detach pairs.
type fakeTracer struct {
	stop      ptrace.StopStatus
	attachErr map[int]error

	attached []int
	detached []int
}

func (f *fakeTracer) Attach(pid int) (ptrace.StopStatus, error) {
	f.attached = append(f.attached, pid)
	if err, ok := f.attachErr[pid]; ok {
		return ptrace.StopStatus{}, err
	}
	return f.stop, nil
}

func (f *fakeTracer) Detach(pid int) {
	f.detached = append(f.detached, pid)
}

// recordingSink captures emitted event names.
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Emit(msg string, attrs ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, msg)
}

func (s *recordingSink) count(msg string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == msg {
			n++
		}
	}
	return n
}

// recordingRecorder captures all measurements.
type recordingRecorder struct {
	outcomes     []recordedOutcome
	signalErrors []string
	attaches     []bool
	polls        []int
	recoveries   []recordedRecovery
}

type recordedOutcome struct {
	kind    string
	outcome Outcome
}

type recordedRecovery struct {
	kind string
	d    time.Duration
}

func (r *recordingRecorder) RecordOutcome(kind string, outcome Outcome) {
	r.outcomes = append(r.outcomes, recordedOutcome{kind: kind, outcome: outcome})
}

func (r *recordingRecorder) RecordSignalError(kind string) {
	r.signalErrors = append(r.signalErrors, kind)
}

func (r *recordingRecorder) RecordAttach(clean bool) {
	r.attaches = append(r.attaches, clean)
}

func (r *recordingRecorder) RecordFreezePolls(n int) {
	r.polls = append(r.polls, n)
}

func (r *recordingRecorder) RecordRecovery(kind string, d time.Duration) {
	r.recoveries = append(r.recoveries, recordedRecovery{kind: kind, d: d})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastSignalConfig keeps test runs quick.
func fastSignalConfig(kind SignalKind) SignalConfig {
	return SignalConfig{
		Kind:             kind,
		ShutdownDelay:    time.Millisecond,
		InterTargetDelay: time.Millisecond,
	}
}

func fastFreezeConfig(iterations int) FreezeConfig {
	return FreezeConfig{
		PollIterations: iterations,
		PollInterval:   time.Millisecond,
	}
}
