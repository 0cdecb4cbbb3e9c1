package api

import (
	"regexp"
	"strings"
	"unicode"
)

// Meeting is the server-owned meeting record. The client only ever holds a
// cached read-only copy.
type Meeting struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Agenda   string            `json:"agenda"`
	Date     string            `json:"date"`
	Duration string            `json:"duration"`
	Folder   string            `json:"folder"`
	Emails   []string          `json:"emails"`
	Files    map[string]string `json:"files"`
}

// DisplayTitle returns the meeting title cleaned for display.
func (m *Meeting) DisplayTitle() string {
	return CleanTitle(m.Title)
}

var (
	titleStampHex = regexp.MustCompile(`meeting_\d{8}_\d{6}_[a-f0-9]+`)
	titleStamp    = regexp.MustCompile(`\d{8}_\d{6}`)
)

// CleanTitle strips generated timestamp and id debris from a meeting title
// and title-cases the remainder. Titles that clean down to nothing fall back
// to a generic label.
func CleanTitle(original string) string {
	if original == "" {
		return "Meeting Discussion"
	}

	title := titleStampHex.ReplaceAllString(original, "")
	title = titleStamp.ReplaceAllString(title, "")
	title = strings.TrimPrefix(title, "meeting_")
	title = strings.TrimSpace(strings.ReplaceAll(title, "_", " "))

	if title == "" {
		title = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(original))
	}

	words := strings.Fields(title)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	if len(words) == 0 {
		return "Meeting Discussion"
	}
	return strings.Join(words, " ")
}

// AttendanceRecord is one person's attendance row.
type AttendanceRecord struct {
	Name   string `json:"name"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

// AttendanceSummary aggregates the attendance query.
type AttendanceSummary struct {
	Total          int     `json:"total"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// AttendanceReport is the /attendance response body.
type AttendanceReport struct {
	Records []AttendanceRecord `json:"attendance"`
	Summary AttendanceSummary  `json:"summary"`
}

// SystemStatus is the /system-status response body.
type SystemStatus struct {
	Status               string `json:"status"`
	CameraActive         bool   `json:"camera_active"`
	KnownPersons         int    `json:"known_persons"`
	TrackedPersons       int    `json:"tracked_persons"`
	RecognizedNow        int    `json:"recognized_now"`
	MeetingActive        bool   `json:"meeting_active"`
	AttendanceActive     bool   `json:"attendance_active"`
	AudioRecordingActive bool   `json:"audio_recording_active"`
	VideoRecordingActive bool   `json:"video_recording_active"`
}

// FileType names a downloadable post-meeting artifact.
type FileType string

const (
	FileSummary    FileType = "summary"
	FileAttendance FileType = "attendance"
	FileTranscript FileType = "transcript"
	FileAudio      FileType = "audio"
	FileVideo      FileType = "video"
)

// ValidFileType reports whether t names a known artifact type.
func ValidFileType(t FileType) bool {
	switch t {
	case FileSummary, FileAttendance, FileTranscript, FileAudio, FileVideo:
		return true
	}
	return false
}
