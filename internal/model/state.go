package model

import "fmt"

// State is a job's position in the processing lifecycle.
// Transitions are strictly forward; no state skips validation or admission.
type State string

const (
	StateDiscovered State = "discovered"
	StateClaimed    State = "claimed"
	StateValidated  State = "validated"
	StateAdmitted   State = "admitted"
	StateDispatched State = "dispatched"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var terminalStates = map[State]bool{
	StateSucceeded: true,
	StateFailed:    true,
}

// Job lifecycle: discovered → claimed → validated → admitted → dispatched → terminal.
// failed is reachable from any non-terminal state past claim (validation,
// duplicate, and admission failures all short-circuit to failed).
var validStateTransitions = map[State]map[State]bool{
	StateDiscovered: {
		StateClaimed: true,
	},
	StateClaimed: {
		StateValidated: true,
		StateFailed:    true,
	},
	StateValidated: {
		StateAdmitted: true,
		StateFailed:   true,
	},
	StateAdmitted: {
		StateDispatched: true,
		StateFailed:     true,
	},
	StateDispatched: {
		StateSucceeded: true,
		StateFailed:    true,
	},
}

// IsTerminal reports whether s is a terminal state.
func IsTerminal(s State) bool {
	return terminalStates[s]
}

// ValidateStateTransition checks a from → to transition against the lifecycle.
func ValidateStateTransition(from, to State) error {
	if IsTerminal(from) {
		return fmt.Errorf("cannot transition from terminal state %q", from)
	}
	allowed, ok := validStateTransitions[from]
	if !ok {
		return fmt.Errorf("unknown state %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid job transition: %q → %q", from, to)
	}
	return nil
}
