// Package store persists the client's meeting snapshot between runs. The
// cached copy is restore-only: a fresh server fetch always supersedes it.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/meetingsense/console/internal/api"
)

const (
	keyMeeting   = "currentMeeting"
	keyMeetingID = "currentMeetingId"
)

// Store is a small named-key JSON store backed by one file.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// SaveMeeting records the meeting snapshot and its id.
func (s *Store) SaveMeeting(meeting *api.Meeting) error {
	data, err := s.read()
	if err != nil {
		return err
	}
	snapshot, err := json.Marshal(meeting)
	if err != nil {
		return err
	}
	data[keyMeeting] = snapshot
	idRaw, _ := json.Marshal(meeting.ID)
	data[keyMeetingID] = idRaw
	return s.write(data)
}

// LoadMeeting returns the cached snapshot, or nil when none is stored.
func (s *Store) LoadMeeting() (*api.Meeting, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	raw, ok := data[keyMeeting]
	if !ok {
		return nil, nil
	}
	var meeting api.Meeting
	if err := json.Unmarshal(raw, &meeting); err != nil {
		// A corrupt cache entry is not worth failing a restore over.
		return nil, nil
	}
	return &meeting, nil
}

// Clear removes the cached meeting keys.
func (s *Store) Clear() error {
	data, err := s.read()
	if err != nil {
		return err
	}
	delete(data, keyMeeting)
	delete(data, keyMeetingID)
	return s.write(data)
}

func (s *Store) read() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	data := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &data); err != nil {
		return map[string]json.RawMessage{}, nil
	}
	return data, nil
}

func (s *Store) write(data map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	// Write-then-rename keeps a crash from truncating the state file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
