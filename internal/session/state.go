package session

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("session: invalid state transition")

type State string

const (
	StateIdle                 State = "idle"
	StateScanning             State = "scanning"
	StateClassified           State = "classified"
	StateRejected             State = "rejected"
	StateAwaitingSenderUnlock State = "awaiting_sender_unlock"
	StateDecoded              State = "decoded"
	StateAwaitingOverride     State = "awaiting_override"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSigned               State = "signed"
	StateCleared              State = "cleared"
	StateError                State = "error"
)

// Terminal states accept no event other than Clear or a new scan.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateSigned, StateCleared, StateError, StateIdle:
		return true
	default:
		return false
	}
}

// transitions lists the allowed targets per state. Cleared is reachable
// from every state and Error from every non-terminal state; both are
// handled in canTransition.
var transitions = map[State][]State{
	StateIdle:                 {StateScanning},
	StateCleared:              {StateScanning},
	StateScanning:             {StateScanning, StateClassified},
	StateClassified:           {StateRejected, StateAwaitingSenderUnlock},
	StateAwaitingSenderUnlock: {StateDecoded},
	StateDecoded:              {StateAwaitingOverride, StateAwaitingConfirmation},
	StateAwaitingOverride:     {StateAwaitingConfirmation},
	StateAwaitingConfirmation: {StateSigned},
}

func canTransition(from, to State) bool {
	if to == StateCleared {
		return true
	}
	if to == StateError {
		return !from.Terminal()
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func invalidTransition(from State, event string) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, event, from)
}
