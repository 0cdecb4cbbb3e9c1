package session

import (
	"context"
	"fmt"
	"time"

	"github.com/meetingsense/console/internal/api"
	"github.com/meetingsense/console/internal/capture"
	"github.com/meetingsense/console/internal/push"
)

// Server is the REST surface the coordinator drives. *api.Client satisfies it.
type Server interface {
	CreateMeeting(ctx context.Context, title, agenda string, emails []string) (*api.Meeting, error)
	EndMeeting(ctx context.Context) (*api.Meeting, error)
	ResetTracking(ctx context.Context) error
	StartAttendance(ctx context.Context) error
	StopAttendance(ctx context.Context) error
	StartAudioRecording(ctx context.Context) error
	StopAudioRecording(ctx context.Context) error
	StartVideoRecording(ctx context.Context) (*api.VideoStart, error)
	StopVideoRecording(ctx context.Context) error
	Attendance(ctx context.Context) (*api.AttendanceReport, error)
	SystemStatus(ctx context.Context) (*api.SystemStatus, error)
}

// Capture is the client-side audio recorder (see the capture package).
type Capture interface {
	Start(ctx context.Context) error
	Stop() (*capture.Artifact, error)
	Cancel() error
}

// Feed is one open push channel.
type Feed interface {
	Events() <-chan push.Event
	Close() error
}

// FeedDialer opens the two push channels.
type FeedDialer interface {
	DialAttendance(ctx context.Context) (Feed, error)
	DialLiveFeed(ctx context.Context, path string) (Feed, error)
}

// Snapshot persists the cached meeting copy between runs.
type Snapshot interface {
	SaveMeeting(meeting *api.Meeting) error
	LoadMeeting() (*api.Meeting, error)
	Clear() error
}

// Level grades a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Frame is a decoded video frame for the presentation layer.
type Frame struct {
	JPEG    string // base64 JPEG payload
	Message string
}

// Stats is the derived attendance headline for the current frame.
type Stats struct {
	Detected   int
	Recognized int
}

// DetectedLabel renders the detected-person headline, e.g. "2 Detected".
func (s Stats) DetectedLabel() string { return fmt.Sprintf("%d Detected", s.Detected) }

// PresentLabel renders the recognized-person headline, e.g. "1 Present".
func (s Stats) PresentLabel() string { return fmt.Sprintf("%d Present", s.Recognized) }

// RateLabel renders the recognition rate, e.g. "50%". Zero detections render
// as "0%".
func (s Stats) RateLabel() string {
	if s.Detected <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", s.Recognized*100/s.Detected)
}

// EventSink receives state changes and asynchronous events. The presentation
// layer (terminal, UI) implements it; the coordinator never touches
// rendering directly.
type EventSink interface {
	StateChanged(state State)
	AttendanceFrame(frame Frame, stats Stats)
	LiveFrame(frame Frame)
	RecordingArtifact(artifact *capture.Artifact)
	Notify(level Level, message string)
	CaptureTick(elapsed time.Duration)
}
