// Package session enforces the legal session state space (no meeting,
// meeting idle, attendance active, recording active) and keeps the two push
// channels aligned with it. All user-triggered operations are serialized by
// a single in-flight guard: concurrent attempts are rejected, never queued.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meetingsense/console/internal/api"
	"github.com/meetingsense/console/internal/capture"
	"github.com/meetingsense/console/internal/logging"
	"github.com/meetingsense/console/internal/push"
)

// Config tunes the coordinator's fixed waits.
type Config struct {
	// FeedSettlingDelay is the wait between a successful recording start and
	// opening the live feed, giving the external tool time to bring up its
	// virtual camera.
	FeedSettlingDelay time.Duration
	// ProcessingWait is how long to wait after end-meeting while the server
	// runs post-processing before surfacing the result.
	ProcessingWait time.Duration
}

// Coordinator owns the session state machine.
type Coordinator struct {
	server Server
	mic    Capture
	feeds  FeedDialer
	sink   EventSink
	snap   Snapshot
	cfg    Config

	mu      sync.Mutex
	busy    bool
	state   State
	meeting *api.Meeting

	videoActive   bool
	audioActive   bool
	captureActive bool

	attendanceFeed Feed
	attendanceDone chan struct{}
	liveFeed       Feed
	liveDone       chan struct{}
}

// New creates a coordinator in the no-meeting state.
func New(server Server, mic Capture, feeds FeedDialer, snap Snapshot, sink EventSink, cfg Config) *Coordinator {
	return &Coordinator{
		server: server,
		mic:    mic,
		feeds:  feeds,
		snap:   snap,
		sink:   sink,
		cfg:    cfg,
		state:  StateNoMeeting,
	}
}

// State returns the current session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Meeting returns the cached meeting copy, or nil outside a meeting.
func (c *Coordinator) Meeting() *api.Meeting {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meeting
}

// Flags reports the per-subsystem active flags (attendance, video, audio).
func (c *Coordinator) Flags() (attendance, video, audio bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateAttendance, c.videoActive, c.audioActive
}

// begin acquires the in-flight guard.
func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

// end releases the guard. It runs via defer on every operation path so no
// failure can leave the guard permanently set.
func (c *Coordinator) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Coordinator) setState(to State) error {
	c.mu.Lock()
	from := c.state
	if err := checkTransition(from, to); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = to
	c.mu.Unlock()

	logging.Infow("session state changed", "from", from, "to", to)
	c.sink.StateChanged(to)
	return nil
}

// CreateMeeting registers a meeting server-side and enters meeting-idle.
func (c *Coordinator) CreateMeeting(ctx context.Context, title, agenda string, emails []string) (*api.Meeting, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if c.State() != StateNoMeeting {
		return nil, ErrMeetingExists
	}

	meeting, err := c.server.CreateMeeting(ctx, title, agenda, emails)
	if err != nil {
		c.sink.Notify(LevelError, "failed to create meeting: "+err.Error())
		return nil, err
	}

	c.mu.Lock()
	c.meeting = meeting
	c.mu.Unlock()

	if err := c.snap.SaveMeeting(meeting); err != nil {
		logging.Warnw("could not persist meeting snapshot", "err", err)
	}
	if err := c.setState(StateMeetingIdle); err != nil {
		return nil, err
	}
	c.sink.Notify(LevelInfo, fmt.Sprintf("meeting %q created", meeting.Title))
	return meeting, nil
}

// Restore re-adopts a cached meeting after a restart. The server copy is
// authoritative: the snapshot is only used when the server confirms a
// meeting is still active, and is cleared otherwise.
func (c *Coordinator) Restore(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if c.State() != StateNoMeeting {
		return ErrMeetingExists
	}

	cached, err := c.snap.LoadMeeting()
	if err != nil || cached == nil {
		return err
	}

	status, err := c.server.SystemStatus(ctx)
	if err != nil {
		c.sink.Notify(LevelWarning, "could not confirm cached meeting with server: "+err.Error())
		return err
	}
	if !status.MeetingActive {
		_ = c.snap.Clear()
		return nil
	}

	c.mu.Lock()
	c.meeting = cached
	c.videoActive = status.VideoRecordingActive
	c.audioActive = status.AudioRecordingActive
	c.mu.Unlock()

	if err := c.setState(StateMeetingIdle); err != nil {
		return err
	}
	switch {
	case status.AttendanceActive:
		if err := c.setState(StateAttendance); err != nil {
			return err
		}
	case status.VideoRecordingActive || status.AudioRecordingActive:
		if err := c.setState(StateRecording); err != nil {
			return err
		}
	}
	c.sink.Notify(LevelInfo, fmt.Sprintf("restored meeting %q", cached.Title))
	return nil
}

// StartAttendance begins attendance tracking and opens the attendance feed.
// It is rejected client-side, with no REST call, while the external recorder
// is active.
func (c *Coordinator) StartAttendance(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	noMeeting := c.meeting == nil
	videoActive := c.videoActive
	state := c.state
	c.mu.Unlock()

	if noMeeting {
		return ErrNoMeeting
	}
	if videoActive {
		c.sink.Notify(LevelWarning, "stop the recording before starting attendance")
		return ErrRecordingActive
	}
	if err := checkTransition(state, StateAttendance); err != nil {
		return err
	}

	if err := c.server.StartAttendance(ctx); err != nil {
		c.sink.Notify(LevelError, "failed to start attendance: "+err.Error())
		return err
	}

	feed, err := c.feeds.DialAttendance(ctx)
	if err != nil {
		// Attendance runs server-side regardless; losing the feed only
		// degrades the local view.
		c.sink.Notify(LevelWarning, "attendance feed unavailable: "+err.Error())
	} else {
		done := make(chan struct{})
		c.mu.Lock()
		c.attendanceFeed = feed
		c.attendanceDone = done
		c.mu.Unlock()
		go c.consumeAttendance(feed, done)
	}

	return c.setState(StateAttendance)
}

// StopAttendance halts attendance tracking and releases the server camera.
func (c *Coordinator) StopAttendance(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if c.State() != StateAttendance {
		return fmt.Errorf("%w: attendance is not active", ErrIllegalTransition)
	}
	return c.stopAttendance(ctx)
}

// stopAttendance closes the channel, clears the feed and releases the
// capture device server-side. Callers hold the in-flight guard.
func (c *Coordinator) stopAttendance(ctx context.Context) error {
	c.mu.Lock()
	feed := c.attendanceFeed
	done := c.attendanceDone
	c.attendanceFeed = nil
	c.attendanceDone = nil
	c.mu.Unlock()

	if feed != nil {
		_ = feed.Close()
		<-done
	}

	if err := c.server.StopAttendance(ctx); err != nil {
		c.sink.Notify(LevelWarning, "attendance stop reported an error: "+err.Error())
	}
	return c.setState(StateMeetingIdle)
}

func (c *Coordinator) consumeAttendance(feed Feed, done chan struct{}) {
	defer close(done)
	for event := range feed.Events() {
		if event.Type != push.EventFrame {
			continue
		}
		c.sink.AttendanceFrame(
			Frame{JPEG: event.Frame, Message: event.Message},
			Stats{Detected: event.PersonCount, Recognized: event.RecognizedCount},
		)
	}
}

// StartRecording starts the external recording tool and the meeting audio
// path. Attendance, if active, is stopped first and its teardown completes
// before any recording call is issued. The two start calls are independent:
// one failing surfaces a warning while the other keeps running.
func (c *Coordinator) StartRecording(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	noMeeting := c.meeting == nil
	state := c.state
	c.mu.Unlock()

	if noMeeting {
		return ErrNoMeeting
	}

	// Forced transition, not a user error: attendance gives up the camera
	// and microphone before recording acquires them.
	if state == StateAttendance {
		if err := c.stopAttendance(ctx); err != nil {
			return err
		}
	}
	if err := checkTransition(c.State(), StateRecording); err != nil {
		return err
	}

	videoStart, videoErr := c.server.StartVideoRecording(ctx)
	audioErr := c.server.StartAudioRecording(ctx)

	c.mu.Lock()
	c.videoActive = videoErr == nil
	c.audioActive = audioErr == nil
	c.mu.Unlock()

	if videoErr != nil && audioErr != nil {
		c.sink.Notify(LevelError, "recording failed to start")
		return errors.Join(videoErr, audioErr)
	}
	if videoErr != nil {
		c.sink.Notify(LevelWarning, "video recording failed to start (audio is running): "+videoErr.Error())
	}
	if audioErr != nil {
		c.sink.Notify(LevelWarning, "audio recording failed to start (video is running): "+audioErr.Error())
	}

	if audioErr == nil && c.mic != nil {
		if err := c.mic.Start(ctx); err != nil {
			c.sink.Notify(LevelWarning, "local microphone capture unavailable: "+err.Error())
		} else {
			c.mu.Lock()
			c.captureActive = true
			c.mu.Unlock()
		}
	}

	if err := c.setState(StateRecording); err != nil {
		return err
	}

	if videoErr == nil {
		// Let the external tool bring up its virtual camera before we
		// attach to the live feed.
		if !sleepCtx(ctx, c.cfg.FeedSettlingDelay) {
			return ctx.Err()
		}
		feed, err := c.feeds.DialLiveFeed(ctx, videoStart.LiveFeedURL)
		if err != nil {
			c.sink.Notify(LevelWarning, "live feed unavailable: "+err.Error())
		} else {
			done := make(chan struct{})
			c.mu.Lock()
			c.liveFeed = feed
			c.liveDone = done
			c.mu.Unlock()
			go c.consumeLive(feed, done)
		}
	}
	return nil
}

// StopRecording halts both recording subsystems and closes the live feed.
func (c *Coordinator) StopRecording(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if c.State() != StateRecording {
		return fmt.Errorf("%w: recording is not active", ErrIllegalTransition)
	}
	return c.stopRecording(ctx)
}

// stopRecording tears recording down: live feed, then video, then audio.
// Callers hold the in-flight guard.
func (c *Coordinator) stopRecording(ctx context.Context) error {
	c.mu.Lock()
	feed := c.liveFeed
	done := c.liveDone
	c.liveFeed = nil
	c.liveDone = nil
	videoActive := c.videoActive
	audioActive := c.audioActive
	captureActive := c.captureActive
	c.mu.Unlock()

	if feed != nil {
		_ = feed.Close()
		<-done
	}

	if videoActive {
		if err := c.server.StopVideoRecording(ctx); err != nil {
			c.sink.Notify(LevelWarning, "video recording stop reported an error: "+err.Error())
		}
	}
	if audioActive {
		if err := c.server.StopAudioRecording(ctx); err != nil {
			c.sink.Notify(LevelWarning, "audio recording stop reported an error: "+err.Error())
		}
	}
	if captureActive && c.mic != nil {
		artifact, err := c.mic.Stop()
		switch {
		case errors.Is(err, capture.ErrEmptyRecording):
			c.sink.Notify(LevelInfo, "local capture produced no audio")
		case err != nil:
			c.sink.Notify(LevelWarning, "local capture stop failed: "+err.Error())
		case artifact != nil:
			c.sink.RecordingArtifact(artifact)
		}
	}

	c.mu.Lock()
	c.videoActive = false
	c.audioActive = false
	c.captureActive = false
	c.mu.Unlock()

	return c.setState(StateMeetingIdle)
}

// EndMeeting stops whatever is active (attendance, then video, then audio),
// finalizes the meeting server-side, waits out the server's post-processing
// window and surfaces the result summary.
func (c *Coordinator) EndMeeting(ctx context.Context) (*api.Meeting, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	c.mu.Lock()
	noMeeting := c.meeting == nil
	state := c.state
	c.mu.Unlock()

	if noMeeting {
		return nil, ErrNoMeeting
	}

	if state == StateAttendance {
		if err := c.stopAttendance(ctx); err != nil {
			return nil, err
		}
	}
	if state == StateRecording {
		if err := c.stopRecording(ctx); err != nil {
			return nil, err
		}
	}

	result, err := c.server.EndMeeting(ctx)
	if err != nil {
		c.sink.Notify(LevelError, "failed to end meeting: "+err.Error())
		return nil, err
	}

	// Keep the final snapshot around for artifact downloads.
	if err := c.snap.SaveMeeting(result); err != nil {
		logging.Warnw("could not persist final meeting snapshot", "err", err)
	}

	c.mu.Lock()
	c.meeting = nil
	c.mu.Unlock()
	if err := c.setState(StateNoMeeting); err != nil {
		return nil, err
	}

	if !sleepCtx(ctx, c.cfg.ProcessingWait) {
		return result, ctx.Err()
	}
	c.sink.Notify(LevelInfo, fmt.Sprintf("meeting %q ended, duration %s", result.Title, result.Duration))
	return result, nil
}

// Reset forcibly stops whichever subsystem is active, tears both channels
// down and clears the cached meeting identity. It is the recovery path for
// a stuck UI and is safe to call from any state.
func (c *Coordinator) Reset(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	switch c.State() {
	case StateAttendance:
		if err := c.stopAttendance(ctx); err != nil {
			c.sink.Notify(LevelWarning, "attendance teardown during reset: "+err.Error())
		}
	case StateRecording:
		if err := c.stopRecording(ctx); err != nil {
			c.sink.Notify(LevelWarning, "recording teardown during reset: "+err.Error())
		}
	}

	if c.mic != nil {
		if err := c.mic.Cancel(); err != nil && !errors.Is(err, capture.ErrNoCapture) {
			logging.Debugw("capture cancel during reset", "err", err)
		}
	}

	if err := c.server.ResetTracking(ctx); err != nil {
		c.sink.Notify(LevelWarning, "server tracking reset failed: "+err.Error())
	}
	_ = c.snap.Clear()

	c.mu.Lock()
	c.meeting = nil
	c.videoActive = false
	c.audioActive = false
	c.captureActive = false
	c.mu.Unlock()

	if c.State() != StateNoMeeting {
		if err := c.setState(StateNoMeeting); err != nil {
			return err
		}
	}
	c.sink.Notify(LevelInfo, "session reset")
	return nil
}

func (c *Coordinator) consumeLive(feed Feed, done chan struct{}) {
	defer close(done)
	for event := range feed.Events() {
		if event.Type != push.EventFrame {
			continue
		}
		c.sink.LiveFrame(Frame{JPEG: event.Frame, Message: event.Message})
	}
}

// sleepCtx waits d unless the context ends first; it reports whether the
// full wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
