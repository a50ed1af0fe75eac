package player

import (
	"testing"
)

// TestStateTypeString tests the String() method for StateType.
func TestStateTypeString(t *testing.T) {
	tests := []struct {
		state    StateType
		expected string
	}{
		{StateStopped, "stopped"},
		{StateLoading, "loading"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{StateError, "error"},
		{StateType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.state.String(); result != tt.expected {
				t.Errorf("StateType.String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestStateTypePredicates tests CanPlay, CanPause, and Active.
func TestStateTypePredicates(t *testing.T) {
	tests := []struct {
		state    StateType
		canPlay  bool
		canPause bool
		active   bool
	}{
		{StateStopped, false, false, false},
		{StateLoading, false, false, false},
		{StatePlaying, false, true, true},
		{StatePaused, true, false, true},
		{StateError, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.CanPlay(); got != tt.canPlay {
				t.Errorf("CanPlay() = %v, want %v", got, tt.canPlay)
			}
			if got := tt.state.CanPause(); got != tt.canPause {
				t.Errorf("CanPause() = %v, want %v", got, tt.canPause)
			}
			if got := tt.state.Active(); got != tt.active {
				t.Errorf("Active() = %v, want %v", got, tt.active)
			}
		})
	}
}

// TestStateMachineTransitions tests valid and invalid transitions.
func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name  string
		path  []StateType
		allow bool
	}{
		{
			name:  "stopped to loading to paused",
			path:  []StateType{StateLoading, StatePaused},
			allow: true,
		},
		{
			name:  "full play cycle",
			path:  []StateType{StateLoading, StatePaused, StatePlaying, StatePaused},
			allow: true,
		},
		{
			name:  "load failure",
			path:  []StateType{StateLoading, StateError},
			allow: true,
		},
		{
			name:  "retry from error",
			path:  []StateType{StateLoading, StateError, StateLoading},
			allow: true,
		},
		{
			name:  "replace track while playing",
			path:  []StateType{StateLoading, StatePaused, StatePlaying, StateLoading},
			allow: true,
		},
		{
			name:  "stopped straight to playing",
			path:  []StateType{StatePlaying},
			allow: false,
		},
		{
			name:  "error straight to playing",
			path:  []StateType{StateLoading, StateError, StatePlaying},
			allow: false,
		},
		{
			name:  "stopped to paused",
			path:  []StateType{StatePaused},
			allow: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			ok := true
			for _, next := range tt.path {
				ok = sm.Transition(next)
				if !ok {
					break
				}
			}
			if ok != tt.allow {
				t.Errorf("transition path allowed = %v, want %v (ended at %v)", ok, tt.allow, sm.Current())
			}
		})
	}
}

// TestStateMachineInvalidTransitionKeepsState tests that a rejected
// transition leaves the machine where it was.
func TestStateMachineInvalidTransitionKeepsState(t *testing.T) {
	sm := NewStateMachine()
	if !sm.Transition(StateLoading) {
		t.Fatal("expected stopped -> loading to succeed")
	}
	if sm.Transition(StatePlaying) {
		t.Fatal("expected loading -> playing to be rejected")
	}
	if sm.Current() != StateLoading {
		t.Errorf("Current() = %v, want %v", sm.Current(), StateLoading)
	}
}

// TestStateMachineOnEnter tests enter callbacks.
func TestStateMachineOnEnter(t *testing.T) {
	sm := NewStateMachine()

	entered := 0
	sm.OnEnter(StatePaused, func() { entered++ })

	sm.Transition(StateLoading)
	sm.Transition(StatePaused)
	sm.Transition(StatePlaying)
	sm.Transition(StatePaused)

	if entered != 2 {
		t.Errorf("OnEnter fired %d times, want 2", entered)
	}
}
