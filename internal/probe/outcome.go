package probe

// Outcome classifies what happened to one process handle after a
// perturbation, computed only once the probe's bounded waiting is done.
type Outcome int

const (
	// OutcomeRestarted means a new process identity appeared, or the
	// old identity stopped meeting the debugged/zombie criteria.
	OutcomeRestarted Outcome = iota

	// OutcomeSurvivedUnchanged means the same identity is still there
	// and still healthy. A warning: the operator must confirm the
	// process was genuinely reinitialized rather than never stopped.
	OutcomeSurvivedUnchanged

	// OutcomeDisappeared means no process was found at all after the
	// perturbation. Failure for signal probes expecting a restart,
	// success for freeze probes expecting supervisor-enforced
	// termination.
	OutcomeDisappeared

	// OutcomeNotFound means the target had no process before the
	// perturbation. The handle is skipped and logged as an anomaly.
	OutcomeNotFound
)

// String returns the event-log name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeRestarted:
		return "restarted"
	case OutcomeSurvivedUnchanged:
		return "survived_unchanged"
	case OutcomeDisappeared:
		return "disappeared"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
