package launch

import "fmt"

type State string

const (
	StateIdle          State = "idle"
	StateResolving     State = "resolving"
	StateDirect        State = "direct"
	StateAsUser        State = "as_user"
	StateChooseProfile State = "choose_profile"
	StateDispatched    State = "dispatched"
	StateFailed        State = "failed"
)

var transitions = map[State][]State{
	StateIdle:          {StateResolving},
	StateResolving:     {StateDirect, StateAsUser, StateChooseProfile, StateFailed},
	StateDirect:        {StateDispatched},
	StateAsUser:        {StateDispatched},
	StateChooseProfile: {StateResolving},
}

func (s State) Terminal() bool {
	return s == StateDispatched || s == StateFailed
}

func advance(from, to State) (State, error) {
	for _, next := range transitions[from] {
		if next == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("invalid launch transition %s -> %s", from, to)
}

func stateForPlan(p Plan) State {
	switch p.(type) {
	case Direct:
		return StateDirect
	case AsUser:
		return StateAsUser
	case ChooseProfile:
		return StateChooseProfile
	default:
		return StateFailed
	}
}
