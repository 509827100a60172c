package engine

// State is the engine lifecycle state
type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StatePaused   State = "PAUSED"
	StateStopping State = "STOPPING"
	StateError    State = "ERROR"
)

// validNext lists the allowed lifecycle moves. ERROR is reachable from any
// state and leaves through Acknowledge or a full Stop.
var validNext = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateError},
	StateRunning:  {StatePaused, StateStopping, StateError},
	StatePaused:   {StateRunning, StateStopping, StateError},
	StateStopping: {StateStopped, StateError},
	StateError:    {StateStopped, StateStopping},
}

func canTransition(from, to State) bool {
	if to == StateError {
		return true
	}
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}
