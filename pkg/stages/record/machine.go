package record

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned for an edge missing from the transition table.
	ErrInvalidTransition = errors.New("record: invalid state transition")

	// ErrNoData is returned when the recorder stopped without producing any chunk.
	ErrNoData = errors.New("record: recorder produced no data")

	// ErrSeekTimeout is returned when the media never settled at the window start.
	ErrSeekTimeout = errors.New("record: seek did not complete")

	// ErrStopTimeout is returned when the recorder never reported its stop.
	ErrStopTimeout = errors.New("record: recorder did not stop")

	// ErrNoSupportedFormat is returned when the recorder supports none of the preferred formats.
	ErrNoSupportedFormat = errors.New("record: no supported recorder format")
)

// State is a recorder run state.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateSeeking
	StateRecording
	StateStopping
	StateFinalizing
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateSeeking:
		return "seeking"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:       {StatePreparing},
	StatePreparing:  {StateSeeking, StateCancelled, StateFailed},
	StateSeeking:    {StateRecording, StateCancelled, StateFailed},
	StateRecording:  {StateStopping, StateFailed},
	StateStopping:   {StateFinalizing, StateCancelled, StateFailed},
	StateFinalizing: {StateCompleted, StateCancelled, StateFailed},
}

func isValidTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks the state of one run. It is owned by the event loop goroutine.
type machine struct {
	state   State
	history []State
}

func (m *machine) transition(to State) error {
	if !isValidTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	m.history = append(m.history, m.state)
	m.state = to
	return nil
}

// eventKind enumerates what collaborator callbacks and timers can report.
type eventKind int

const (
	evSeeked eventKind = iota
	evPositionReached
	evTimerFired
	evTick
	evDataAvailable
	evRecorderStopped
	evRecorderFailed
	evCancelRequested
)

func (k eventKind) String() string {
	switch k {
	case evSeeked:
		return "seeked"
	case evPositionReached:
		return "position-reached"
	case evTimerFired:
		return "timer-fired"
	case evTick:
		return "tick"
	case evDataAvailable:
		return "data-available"
	case evRecorderStopped:
		return "recorder-stopped"
	case evRecorderFailed:
		return "recorder-failed"
	case evCancelRequested:
		return "cancel-requested"
	default:
		return "unknown"
	}
}

type event struct {
	kind     eventKind
	position float64
	data     []byte
	err      error
}
