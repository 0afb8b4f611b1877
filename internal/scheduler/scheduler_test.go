package scheduler

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test Helpers
// =============================================================================

// fakeProbe records which targets it was asked to probe, per call.
type fakeProbe struct {
	kind string

	mu    sync.Mutex
	calls [][]string
}

func (f *fakeProbe) Run(ctx context.Context, targets []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, targets)
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakeProbe) Kind() string { return f.kind }

type nopSink struct{}

func (nopSink) Emit(string, ...any) {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		Catalog: Catalog{
			Sigterm: []string{"alpha", "beta"},
			Sigkill: []string{"gamma"},
			Freeze:  []string{"runner"},
		},
		SigtermEnabled: true,
		SigkillEnabled: true,
		FreezeEnabled:  true,
		CycleDelay:     time.Millisecond,
		Once:           true,
		Rand:           rand.New(rand.NewSource(1)),
	}
}

// =============================================================================
// Tests: Shuffled
// =============================================================================

func TestShuffledPreservesElements(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}
	rng := rand.New(rand.NewSource(42))

	out := Shuffled(in, rng)

	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	seen := make(map[string]bool, len(out))
	for _, s := range out {
		seen[s] = true
	}
	for _, s := range in {
		if !seen[s] {
			t.Errorf("element %q missing after shuffle", s)
		}
	}
}

func TestShuffledDoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	want := append([]string(nil), in...)
	rng := rand.New(rand.NewSource(7))

	Shuffled(in, rng)

	for i := range in {
		if in[i] != want[i] {
			t.Fatalf("input mutated at %d: %v", i, in)
		}
	}
}

func TestShuffledEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if out := Shuffled(nil, rng); out != nil {
		t.Errorf("Shuffled(nil) = %v, want nil", out)
	}
}

func TestShuffledDeterministicPerSeed(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}

	a := Shuffled(in, rand.New(rand.NewSource(99)))
	b := Shuffled(in, rand.New(rand.NewSource(99)))

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", a, b)
		}
	}
}

// =============================================================================
// Tests: Scheduler
// =============================================================================

func TestSchedulerPhaseOrder(t *testing.T) {
	var phases []Phase
	cfg := testConfig()
	cfg.OnPhase = func(p Phase) { phases = append(phases, p) }

	term := &fakeProbe{kind: "sigterm"}
	kill := &fakeProbe{kind: "sigkill"}
	freeze := &fakeProbe{kind: "freeze"}

	s := New(cfg, term, kill, freeze, nopSink{}, discardLogger())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []Phase{PhaseSigterm, PhaseSigkill, PhaseFreeze}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase[%d] = %v, want %v", i, phases[i], want[i])
		}
	}
	if s.Cycles() != 1 {
		t.Errorf("Cycles() = %d, want 1", s.Cycles())
	}
}

func TestSchedulerSigkillIncludesSigtermTargets(t *testing.T) {
	cfg := testConfig()
	kill := &fakeProbe{kind: "sigkill"}

	s := New(cfg, &fakeProbe{kind: "sigterm"}, kill, &fakeProbe{kind: "freeze"}, nopSink{}, discardLogger())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(kill.calls) != 1 {
		t.Fatalf("sigkill probe calls = %d, want 1", len(kill.calls))
	}
	got := kill.calls[0]
	if len(got) != 3 {
		t.Fatalf("sigkill targets = %v, want 3 (sigkill list plus sigterm list)", got)
	}
	seen := make(map[string]bool)
	for _, tgt := range got {
		seen[tgt] = true
	}
	for _, want := range []string{"gamma", "alpha", "beta"} {
		if !seen[want] {
			t.Errorf("sigkill targets missing %q: %v", want, got)
		}
	}
}

func TestSchedulerDisabledPhasesSkipped(t *testing.T) {
	var phases []Phase
	cfg := testConfig()
	cfg.SigtermEnabled = false
	cfg.FreezeEnabled = false
	cfg.OnPhase = func(p Phase) { phases = append(phases, p) }

	term := &fakeProbe{kind: "sigterm"}
	freeze := &fakeProbe{kind: "freeze"}

	s := New(cfg, term, &fakeProbe{kind: "sigkill"}, freeze, nopSink{}, discardLogger())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(term.calls) != 0 {
		t.Errorf("sigterm probe was called despite being disabled")
	}
	if len(freeze.calls) != 0 {
		t.Errorf("freeze probe was called despite being disabled")
	}
	if len(phases) != 1 || phases[0] != PhaseSigkill {
		t.Errorf("phases = %v, want [sigkill]", phases)
	}
}

func TestSchedulerEmptyFreezeListSkipsPhase(t *testing.T) {
	cfg := testConfig()
	cfg.Catalog.Freeze = nil
	freeze := &fakeProbe{kind: "freeze"}

	s := New(cfg, &fakeProbe{kind: "sigterm"}, &fakeProbe{kind: "sigkill"}, freeze, nopSink{}, discardLogger())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(freeze.calls) != 0 {
		t.Errorf("freeze probe ran with an empty target list: %v", freeze.calls)
	}
}

func TestSchedulerLoopsUntilCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Once = false
	cfg.CycleDelay = time.Millisecond

	cycles := 0
	ctx, cancel := context.WithCancel(context.Background())
	cfg.OnCycle = func(n int) {
		cycles = n
		if n >= 3 {
			cancel()
		}
	}

	s := New(cfg, &fakeProbe{kind: "sigterm"}, &fakeProbe{kind: "sigkill"}, &fakeProbe{kind: "freeze"}, nopSink{}, discardLogger())
	err := s.Run(ctx)
	if err == nil {
		t.Fatal("Run: expected cancellation error")
	}
	if cycles < 3 {
		t.Errorf("cycles = %d, want >= 3", cycles)
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseSigterm, "sigterm"},
		{PhaseSigkill, "sigkill"},
		{PhaseFreeze, "freeze"},
		{PhaseIdle, "idle"},
		{Phase(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
