package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateMeetingSuccess(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/create_meeting" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("title"); got != "Standup" {
			t.Errorf("title = %q, want Standup", got)
		}
		if got := r.FormValue("emails"); got != "a@x.test,b@x.test" {
			t.Errorf("emails = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"message": "Meeting 'Standup' created successfully",
			"meeting": map[string]interface{}{"id": "m-1", "title": "Standup", "agenda": "daily"},
		})
	}))
	defer ts.Close()

	client := New(ts.URL, 0)
	meeting, err := client.CreateMeeting(context.Background(), "Standup", "daily", []string{"a@x.test", "b@x.test"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if meeting.ID != "m-1" || meeting.Title != "Standup" {
		t.Fatalf("unexpected meeting: %+v", meeting)
	}
}

func TestRemoteErrorEnvelope(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "No active attendance tracking found",
		})
	}))
	defer ts.Close()

	client := New(ts.URL, 0)
	err := client.StopAttendance(context.Background())
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Message != "No active attendance tracking found" {
		t.Fatalf("unexpected message: %q", remote.Message)
	}
}

func TestDownloadFileStillProcessing(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	client := New(ts.URL, 0)
	_, err := client.DownloadFile(context.Background(), "m-1", FileSummary)
	if !errors.Is(err, ErrStillProcessing) {
		t.Fatalf("expected ErrStillProcessing, got %v", err)
	}
}

func TestDownloadFileRejectsUnknownType(t *testing.T) {
	t.Parallel()

	client := New("http://127.0.0.1:0", 0)
	if _, err := client.DownloadFile(context.Background(), "m-1", FileType("diary")); err == nil {
		t.Fatal("expected error for unknown file type")
	}
}

func TestServerErrorClassification(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := New(ts.URL, 0)
	err := client.StartAttendance(context.Background())
	if !errors.Is(err, ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
}

func TestAddAttendeeMultipart(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("name"); got != "Ada Lovelace" {
			t.Errorf("name = %q", got)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing audio part: %v", err)
		} else {
			file.Close()
			if header.Filename != "Ada_Lovelace_sample.wav" {
				t.Errorf("audio filename = %q", header.Filename)
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer ts.Close()

	client := New(ts.URL, 0)
	err := client.AddAttendee(context.Background(), "Ada Lovelace", nil, "", []byte("RIFFfake"))
	if err != nil {
		t.Fatalf("add attendee failed: %v", err)
	}
}

func TestAddAttendeeValidation(t *testing.T) {
	t.Parallel()

	client := New("http://127.0.0.1:0", 0)
	if err := client.AddAttendee(context.Background(), "  ", nil, "", nil); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := client.AddAttendee(context.Background(), "Bob", nil, "", nil); err == nil {
		t.Fatal("expected error with neither photo nor audio")
	}
	if err := client.AddAttendee(context.Background(), "Bob", []byte{1}, "cv.pdf", nil); err == nil {
		t.Fatal("expected error for bad photo extension")
	}
}

func TestCheckFileExists(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("file") == "missing.pdf" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]bool{"exists": false})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"exists": true, "path": "/data/x"})
	}))
	defer ts.Close()

	client := New(ts.URL, 0)
	ok, err := client.CheckFileExists(context.Background(), "meeting_1", "summary.pdf")
	if err != nil || !ok {
		t.Fatalf("expected exists=true, got ok=%v err=%v", ok, err)
	}
	ok, err = client.CheckFileExists(context.Background(), "meeting_1", "missing.pdf")
	if err != nil || ok {
		t.Fatalf("expected exists=false without error, got ok=%v err=%v", ok, err)
	}
}

func TestAttendanceReport(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"attendance": []map[string]string{
				{"name": "Ada", "time": "Detected: 10:00:00", "status": "Present"},
				{"name": "Bob", "time": "Not detected", "status": "Absent"},
			},
			"summary": map[string]interface{}{
				"total": 2, "present": 1, "absent": 1, "attendance_rate": 50.0,
			},
		})
	}))
	defer ts.Close()

	client := New(ts.URL, 0)
	report, err := client.Attendance(context.Background())
	if err != nil {
		t.Fatalf("attendance failed: %v", err)
	}
	if len(report.Records) != 2 || report.Summary.Present != 1 || report.Summary.AttendanceRate != 50.0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}
