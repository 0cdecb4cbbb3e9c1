package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meetingsense/console/internal/capture"
	"github.com/meetingsense/console/internal/logging"
	"github.com/meetingsense/console/internal/session"
)

// ConsoleSink renders session events as terminal lines. Frames arrive many
// times a second, so attendance and live-feed output is only printed when
// the headline actually changes.
type ConsoleSink struct {
	out         io.Writer
	artifactDir string

	mu          sync.Mutex
	lastStats   session.Stats
	lastMessage string
	haveStats   bool
}

func NewConsoleSink(out io.Writer, artifactDir string) *ConsoleSink {
	return &ConsoleSink{out: out, artifactDir: artifactDir}
}

func (s *ConsoleSink) StateChanged(state session.State) {
	fmt.Fprintf(s.out, "-- session: %s\n", state)
}

func (s *ConsoleSink) AttendanceFrame(frame session.Frame, stats session.Stats) {
	s.mu.Lock()
	changed := !s.haveStats || stats != s.lastStats || frame.Message != s.lastMessage
	s.lastStats = stats
	s.lastMessage = frame.Message
	s.haveStats = true
	s.mu.Unlock()
	if !changed {
		return
	}

	line := fmt.Sprintf("attendance: %s, %s (%s)",
		stats.DetectedLabel(), stats.PresentLabel(), stats.RateLabel())
	if frame.Message != "" {
		line += " - " + frame.Message
	}
	fmt.Fprintln(s.out, line)
}

func (s *ConsoleSink) LiveFrame(frame session.Frame) {
	if frame.Message == "" {
		return
	}
	s.mu.Lock()
	changed := frame.Message != s.lastMessage
	s.lastMessage = frame.Message
	s.mu.Unlock()
	if changed {
		fmt.Fprintf(s.out, "recording: %s\n", frame.Message)
	}
}

// RecordingArtifact writes the captured WAV beside the state file so the
// local copy survives even when the server-side upload path is down.
func (s *ConsoleSink) RecordingArtifact(artifact *capture.Artifact) {
	if err := os.MkdirAll(s.artifactDir, 0o755); err != nil {
		logging.Warnw("could not create artifact directory", "dir", s.artifactDir, "err", err)
		return
	}
	path := filepath.Join(s.artifactDir, artifact.ID+".wav")
	if err := os.WriteFile(path, artifact.WAV, 0o644); err != nil {
		logging.Warnw("could not write local recording", "path", path, "err", err)
		return
	}
	fmt.Fprintf(s.out, "saved local recording %s (%s)\n", path, artifact.Duration.Truncate(time.Second))
}

func (s *ConsoleSink) Notify(level session.Level, message string) {
	fmt.Fprintf(s.out, "[%s] %s\n", level, message)
}

func (s *ConsoleSink) CaptureTick(elapsed time.Duration) {
	fmt.Fprintf(s.out, "\rrecording %s ", elapsed.Truncate(time.Second))
}
