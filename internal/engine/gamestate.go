package engine

import "github.com/roach88/rulekit/internal/ir"

// StateMachine is the game state machine: Playing until the first
// success or failure action, then terminal for the rest of the session.
type StateMachine struct {
	current ir.GameState
	change  *ir.StateChange
}

// NewStateMachine creates a machine in the Playing state.
func NewStateMachine() *StateMachine {
	return &StateMachine{current: ir.GamePlaying}
}

// Current returns the current state.
func (m *StateMachine) Current() ir.GameState {
	return m.current
}

// Transition moves to a terminal state. It returns false, leaving the
// machine unchanged, when already terminal or when to is not terminal.
func (m *StateMachine) Transition(to ir.GameState, ruleID, message string) (ir.StateChange, bool) {
	if m.current.IsTerminal() || !to.IsTerminal() {
		return ir.StateChange{}, false
	}
	ch := ir.StateChange{RuleID: ruleID, From: m.current, To: to, Message: message}
	m.current = to
	m.change = &ch
	return ch, true
}

// LastChange returns the transition that made the machine terminal, if any.
func (m *StateMachine) LastChange() (ir.StateChange, bool) {
	if m.change == nil {
		return ir.StateChange{}, false
	}
	return *m.change, true
}
