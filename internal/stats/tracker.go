// Package stats tracks recovery latency distributions and renders the
// exit summary shown when a run ends.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// KindStats is a snapshot of recovery latency for one probe kind.
type KindStats struct {
	Kind  string
	Count int64
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

// RecoveryTracker accumulates recovery latency samples per probe kind.
//
// Thread-safe: all methods can be called concurrently.
type RecoveryTracker struct {
	mu    sync.Mutex
	kinds map[string]*kindDigest
}

type kindDigest struct {
	digest *tdigest.TDigest
	count  int64
	max    time.Duration
}

// NewRecoveryTracker creates an empty tracker.
func NewRecoveryTracker() *RecoveryTracker {
	return &RecoveryTracker{
		kinds: make(map[string]*kindDigest),
	}
}

// Record adds one observed recovery duration for the given probe kind.
func (t *RecoveryTracker) Record(kind string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kd := t.kinds[kind]
	if kd == nil {
		kd = &kindDigest{
			digest: tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
		}
		t.kinds[kind] = kd
	}

	kd.digest.Add(d.Seconds(), 1)
	kd.count++
	if d > kd.max {
		kd.max = d
	}
}

// TotalSamples returns the number of recoveries recorded across all kinds.
func (t *RecoveryTracker) TotalSamples() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total int64
	for _, kd := range t.kinds {
		total += kd.count
	}
	return total
}

// Snapshot returns per-kind latency stats, sorted by kind name so
// repeated renders are stable.
func (t *RecoveryTracker) Snapshot() []KindStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]KindStats, 0, len(t.kinds))
	for kind, kd := range t.kinds {
		out = append(out, KindStats{
			Kind:  kind,
			Count: kd.count,
			P50:   secondsToDuration(kd.digest.Quantile(0.50)),
			P95:   secondsToDuration(kd.digest.Quantile(0.95)),
			Max:   kd.max,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

func secondsToDuration(s float64) time.Duration {
	if s < 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
