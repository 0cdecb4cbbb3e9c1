package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/meetingsense/console/internal/api"
)

func TestSaveLoadClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	s := New(path)

	meeting, err := s.LoadMeeting()
	if err != nil || meeting != nil {
		t.Fatalf("fresh store should be empty, got %+v err %v", meeting, err)
	}

	want := &api.Meeting{ID: "m-42", Title: "Standup", Agenda: "daily"}
	if err := s.SaveMeeting(want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.LoadMeeting()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got == nil || got.ID != "m-42" || got.Title != "Standup" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	got, err = s.LoadMeeting()
	if err != nil || got != nil {
		t.Fatalf("store should be empty after clear, got %+v err %v", got, err)
	}
}

func TestCorruptStateFileIsIgnored(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	s := New(path)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	meeting, err := s.LoadMeeting()
	if err != nil || meeting != nil {
		t.Fatalf("corrupt file should read as empty, got %+v err %v", meeting, err)
	}
	if err := s.SaveMeeting(&api.Meeting{ID: "m-1"}); err != nil {
		t.Fatalf("save over corrupt file failed: %v", err)
	}
}
