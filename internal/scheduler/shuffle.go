package scheduler

import "math/rand"

// Shuffled returns a new slice holding targets in random order. The
// input is never mutated; the static catalog stays pristine and each
// cycle draws a fresh permutation from rng.
func Shuffled(targets []string, rng *rand.Rand) []string {
	if len(targets) == 0 {
		return nil
	}
	out := make([]string, len(targets))
	copy(out, targets)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
