package player

// StateType represents the coordinator's playback state.
type StateType int

const (
	// StateStopped indicates no track is loaded.
	StateStopped StateType = iota
	// StateLoading indicates a track is being installed.
	StateLoading
	// StatePlaying indicates narration is running.
	StatePlaying
	// StatePaused indicates a loaded track is paused.
	StatePaused
	// StateError indicates the last load or command failed.
	StateError
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// CanPlay reports whether Play is meaningful in this state. Play from
// StateError retries the load.
func (s StateType) CanPlay() bool {
	return s == StatePaused || s == StateError
}

// CanPause reports whether Pause is meaningful in this state.
func (s StateType) CanPause() bool {
	return s == StatePlaying
}

// Active reports whether a track is installed and usable.
func (s StateType) Active() bool {
	return s == StatePlaying || s == StatePaused
}

// StateMachine validates playback state transitions.
type StateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
	onEnter     map[StateType]func()
}

// NewStateMachine creates a state machine rooted at StateStopped.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateStopped,
		transitions: map[StateType][]StateType{
			StateStopped: {StateLoading},
			StateLoading: {StatePaused, StateError, StateStopped},
			StatePaused:  {StatePlaying, StateLoading, StateStopped, StateError},
			StatePlaying: {StatePaused, StateLoading, StateStopped, StateError},
			StateError:   {StateLoading, StateStopped},
		},
		onEnter: make(map[StateType]func()),
	}
}

// Transition attempts to move to the given state and reports success.
func (sm *StateMachine) Transition(to StateType) bool {
	valid := false
	for _, next := range sm.transitions[sm.current] {
		if next == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to
	if fn, ok := sm.onEnter[to]; ok && fn != nil {
		fn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}

// OnEnter registers a callback invoked after entering a state.
func (sm *StateMachine) OnEnter(state StateType, fn func()) {
	sm.onEnter[state] = fn
}
