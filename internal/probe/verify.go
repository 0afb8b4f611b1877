package probe

// Verification is one post-perturbation snapshot of a target's PID set
// compared against the set captured before the perturbation.
type Verification struct {
	Outcome Outcome
	Old     []int
	New     []int
}

// Verify re-resolves target and classifies the result against the
// pre-perturbation set. It is a single snapshot: the caller has already
// taken the fixed safe-shutdown delay, and restart latency beyond that
// delay is the caller's policy problem, not the verifier's.
func Verify(table ProcessTable, target string, old []int) Verification {
	current := table.Resolve(target)
	return Verification{
		Outcome: classify(old, current),
		Old:     old,
		New:     current,
	}
}

// classify compares PID sets.
//
//   - empty current set: the target vanished entirely
//   - any PID not in the old set: the service manager spawned a
//     replacement
//   - otherwise: only old identities remain, so nothing demonstrably
//     restarted (a shrunken set without new PIDs counts here too)
func classify(old, current []int) Outcome {
	if len(current) == 0 {
		return OutcomeDisappeared
	}

	oldSet := make(map[int]struct{}, len(old))
	for _, pid := range old {
		oldSet[pid] = struct{}{}
	}

	for _, pid := range current {
		if _, ok := oldSet[pid]; !ok {
			return OutcomeRestarted
		}
	}

	return OutcomeSurvivedUnchanged
}
