package record

import (
	"errors"
	"testing"
)

func TestMachine_Transitions(t *testing.T) {
	m := &machine{}
	path := []State{StatePreparing, StateSeeking, StateRecording, StateStopping, StateFinalizing, StateCompleted}
	for _, next := range path {
		if err := m.transition(next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if !m.state.Terminal() {
		t.Errorf("expected terminal state, got %s", m.state)
	}
	if err := m.transition(StatePreparing); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition leaving a terminal state, got %v", err)
	}
}

func TestMachine_InvalidEdges(t *testing.T) {
	tests := []struct {
		from, to State
	}{
		{StateIdle, StateRecording},
		{StatePreparing, StateRecording},
		{StateRecording, StateCompleted},
		{StateRecording, StateCancelled},
		{StateSeeking, StateFinalizing},
	}
	for _, tt := range tests {
		m := &machine{state: tt.from}
		if err := m.transition(tt.to); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", tt.from, tt.to, err)
		}
	}
}
