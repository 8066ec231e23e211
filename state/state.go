// state/state.go
package state

import "errors"

// State 表示房间生命周期状态
type State int

const (
	Waiting State = iota
	Playing
	Finished
)

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 允许的状态转换 fromState -> toStates
var transitions = map[State][]State{
	Waiting: {Playing, Finished},
	Playing: {Finished},
}

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// CanTransition reports whether the lifecycle allows moving from one state to
// another. The lifecycle only moves forward; Finished is terminal.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates and returns the new state.
func Transition(from, to State) (State, error) {
	if !CanTransition(from, to) {
		return from, ErrTransitionNotAllowed
	}
	return to, nil
}
