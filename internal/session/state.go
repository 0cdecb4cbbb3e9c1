package session

import (
	"errors"
	"fmt"
)

// State is the exclusive session lifecycle state. Attendance and recording
// can never hold at the same time; both require a live meeting.
type State string

const (
	StateNoMeeting   State = "no_meeting"
	StateMeetingIdle State = "meeting_idle"
	StateAttendance  State = "attendance_active"
	StateRecording   State = "recording_active"
)

var (
	// ErrBusy means another user-triggered operation is still in flight.
	// Actions are rejected, never queued.
	ErrBusy = errors.New("another operation is in progress")
	// ErrNoMeeting means the operation needs a live meeting.
	ErrNoMeeting = errors.New("no active meeting")
	// ErrMeetingExists means a meeting is already active.
	ErrMeetingExists = errors.New("a meeting is already active")
	// ErrRecordingActive means attendance cannot start while the external
	// recorder holds the camera.
	ErrRecordingActive = errors.New("video recording is active")
	// ErrIllegalTransition rejects a state change outside the legal graph.
	ErrIllegalTransition = errors.New("illegal session transition")
)

// legalTransitions is the session state graph. Forced multi-step paths
// (attendance → recording, active → ended) are routed through meeting_idle
// explicitly by the coordinator, so each edge here is a single legal hop.
var legalTransitions = map[State]map[State]bool{
	StateNoMeeting: {
		StateMeetingIdle: true,
		StateNoMeeting:   true, // reset is idempotent
	},
	StateMeetingIdle: {
		StateAttendance: true,
		StateRecording:  true,
		StateNoMeeting:  true,
	},
	StateAttendance: {
		StateMeetingIdle: true,
	},
	StateRecording: {
		StateMeetingIdle: true,
	},
}

// checkTransition validates a single hop through the state graph.
func checkTransition(from, to State) error {
	if legalTransitions[from][to] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
