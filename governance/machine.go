// Package governance implements the process lifecycle state machine. Every
// phase of cycle logic is gated on the machine being in the right state;
// an illegal transition is an error and leaves the state untouched.
package governance

import "fmt"

// State is a lifecycle phase of the engine process.
type State string

const (
	Init       State = "INIT"
	SanityOK   State = "SANITY_OK"
	DoDOK      State = "DOD_OK"
	Armed      State = "ARMED"
	DryRun     State = "DRY_RUN"
	Executing  State = "EXECUTING"
	Reconciled State = "RECONCILED"
	Halted     State = "HALTED"
	Sleep      State = "SLEEP"
)

// successors lists the legal targets from each state. HALTED and SLEEP are
// terminal for the process instance.
var successors = map[State][]State{
	Init:       {SanityOK, Halted},
	SanityOK:   {DoDOK, Halted},
	DoDOK:      {Armed, Halted},
	Armed:      {DryRun, Executing, Halted},
	DryRun:     {Reconciled, Halted},
	Executing:  {Reconciled, Halted},
	Reconciled: {Sleep, Halted},
	Halted:     {},
	Sleep:      {},
}

// InvalidTransitionError reports an attempted transition that is not in the
// current state's allowed-successor set.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("governance: invalid transition %s -> %s", e.From, e.To)
}

// Transition records a completed state change.
type Transition struct {
	Old  State
	New  State
	Meta map[string]string
}

// Machine is the lifecycle FSM. It is not safe for concurrent use; the
// cycle runner is the single driver.
type Machine struct {
	current State
}

// NewMachine starts in INIT.
func NewMachine() *Machine {
	return &Machine{current: Init}
}

// Current returns the current state.
func (m *Machine) Current() State { return m.current }

// Terminal reports whether the machine can make no further transitions.
func (m *Machine) Terminal() bool { return len(successors[m.current]) == 0 }

// Transition moves to target if legal. On an illegal target it returns an
// *InvalidTransitionError and the state is unchanged. The caller owns
// persisting and logging the returned record.
func (m *Machine) Transition(target State, meta map[string]string) (Transition, error) {
	for _, s := range successors[m.current] {
		if s == target {
			tr := Transition{Old: m.current, New: target, Meta: meta}
			m.current = target
			return tr, nil
		}
	}
	return Transition{}, &InvalidTransitionError{From: m.current, To: target}
}
