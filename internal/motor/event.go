package motor

import (
	"encoding/json"
	"fmt"
)

// EventKind classifies engine events.
type EventKind int

const (
	// EventRepetitionStarted marks the start of one move-and-return cycle.
	EventRepetitionStarted EventKind = iota

	// EventMotorStarted means a motor's start delay elapsed and it
	// began its outbound move.
	EventMotorStarted

	// EventMotorProgress reports outbound progress (every 25 steps).
	EventMotorProgress

	// EventTargetReached means a motor completed its outbound move and
	// is holding at the target.
	EventTargetReached

	// EventReturnPhase means all motors reached their targets and the
	// return phase begins.
	EventReturnPhase

	// EventReturnStarted means a motor began its return move.
	EventReturnStarted

	// EventReturnProgress reports return progress (every 25 steps).
	EventReturnProgress

	// EventMotorReturned means a motor is back at its start position.
	EventMotorReturned

	// EventMotorStopped means a motor was halted mid-move by a stop
	// request.
	EventMotorStopped

	// EventRepetitionDone marks the end of one move-and-return cycle.
	EventRepetitionDone

	// EventSequenceStopped means the whole sequence was halted by a
	// stop request.
	EventSequenceStopped

	// EventFinished means every repetition completed.
	EventFinished

	// EventError reports a GPIO write failure on a line mid-move.
	EventError
)

// kindNames maps EventKind values to their stable string names, used
// for JSON output.
var kindNames = map[EventKind]string{
	EventRepetitionStarted: "repetition-started",
	EventMotorStarted:      "motor-started",
	EventMotorProgress:     "motor-progress",
	EventTargetReached:     "target-reached",
	EventReturnPhase:       "return-phase",
	EventReturnStarted:     "return-started",
	EventReturnProgress:    "return-progress",
	EventMotorReturned:     "motor-returned",
	EventMotorStopped:      "motor-stopped",
	EventRepetitionDone:    "repetition-done",
	EventSequenceStopped:   "sequence-stopped",
	EventFinished:          "finished",
	EventError:             "error",
}

// String returns the stable name of the kind.
func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind-%d", int(k))
}

// MarshalJSON encodes the kind as its string name.
func (k EventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Event is one engine status update, consumed by the control UI's log
// view and by the headless runner's output.
type Event struct {
	// Kind classifies the event.
	Kind EventKind `json:"kind"`

	// Motor is the 1-based motor number, or 0 for sequence-level events.
	Motor int `json:"motor,omitempty"`

	// Repetition is the 1-based repetition this event belongs to.
	Repetition int `json:"repetition,omitempty"`

	// Step and Total carry move progress where applicable.
	Step  int `json:"step,omitempty"`
	Total int `json:"total,omitempty"`

	// Message is the preformatted human-readable status line.
	Message string `json:"message"`
}

// String returns the event's message, prefixed with the motor number
// when the message itself does not carry one.
func (e Event) String() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Motor > 0 {
		return fmt.Sprintf("Motor %d: %s", e.Motor, e.Kind)
	}
	return e.Kind.String()
}
