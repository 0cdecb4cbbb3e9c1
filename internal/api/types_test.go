package api

import "testing"

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "Meeting Discussion"},
		{"weekly_sync", "Weekly Sync"},
		{"meeting_planning", "Planning"},
		{"standup_20240501_120000", "Standup"},
		{"QUARTERLY review", "Quarterly Review"},
		{"meeting_20240501_120000_ab12cd", "Meeting 20240501 120000 Ab12cd"},
	}
	for _, tc := range cases {
		if got := CleanTitle(tc.in); got != tc.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidFileType(t *testing.T) {
	for _, ft := range []FileType{FileSummary, FileAttendance, FileTranscript, FileAudio, FileVideo} {
		if !ValidFileType(ft) {
			t.Errorf("ValidFileType(%q) = false", ft)
		}
	}
	if ValidFileType("report") {
		t.Error(`ValidFileType("report") = true`)
	}
}
