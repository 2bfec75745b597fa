// Package fsm defines the assistant loop state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateAuthenticating      State = "authenticating"
	StateWaitingForWakeWord  State = "waiting_for_wake_word"
	StateMatching            State = "matching"
	StateExecutingInline     State = "executing_inline"
	StateExecutingBackground State = "executing_background"
	StateTerminated          State = "terminated"
)

const (
	EventAuthenticated      Event = "authenticated"
	EventWake               Event = "wake"
	EventDispatchInline     Event = "dispatch_inline"
	EventDispatchBackground Event = "dispatch_background"
	EventDrop               Event = "drop"
	EventComplete           Event = "complete"
	EventTerminate          Event = "terminate"
)

// Transition returns the state reached from current on event.
// EventTerminate is accepted from every non-terminal state.
func Transition(current State, event Event) (State, error) {
	if event == EventTerminate && current != StateTerminated && isKnown(current) {
		return StateTerminated, nil
	}

	switch current {
	case StateAuthenticating:
		switch event {
		case EventAuthenticated:
			return StateWaitingForWakeWord, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateWaitingForWakeWord:
		switch event {
		case EventWake:
			return StateMatching, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateMatching:
		switch event {
		case EventDispatchInline:
			return StateExecutingInline, nil
		case EventDispatchBackground:
			return StateExecutingBackground, nil
		case EventDrop:
			return StateWaitingForWakeWord, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateExecutingInline, StateExecutingBackground:
		switch event {
		case EventComplete:
			return StateWaitingForWakeWord, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTerminated:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func isKnown(s State) bool {
	switch s {
	case StateAuthenticating, StateWaitingForWakeWord, StateMatching,
		StateExecutingInline, StateExecutingBackground, StateTerminated:
		return true
	}
	return false
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
