package api

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// StartAttendance begins camera-based attendance tracking server-side.
func (c *Client) StartAttendance(ctx context.Context) error {
	return c.postForm(ctx, "/start_attendance", nil, nil)
}

// StopAttendance halts attendance tracking and releases the server camera.
func (c *Client) StopAttendance(ctx context.Context) error {
	return c.postForm(ctx, "/stop_attendance", nil, nil)
}

// Attendance queries the current attendance report.
func (c *Client) Attendance(ctx context.Context) (*AttendanceReport, error) {
	var out struct {
		statusEnvelope
		AttendanceReport
	}
	if err := c.getJSON(ctx, "/attendance", &out); err != nil {
		return nil, err
	}
	return &out.AttendanceReport, nil
}

var photoExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
}

// AddAttendee registers a person for recognition. Name is required and at
// least one of photo or voice sample must be present. The voice sample is
// expected to already be canonical WAV (see capture.NormalizeUpload) and is
// attached with a .wav extension.
func (c *Client) AddAttendee(ctx context.Context, name string, photo []byte, photoName string, voiceWAV []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("attendee name is required")
	}
	if len(photo) == 0 && len(voiceWAV) == 0 {
		return fmt.Errorf("attendee needs a photo or a voice sample")
	}
	if len(photo) > 0 {
		ext := strings.ToLower(filepath.Ext(photoName))
		if _, ok := photoExtensions[ext]; !ok {
			return fmt.Errorf("unsupported photo type %q (want jpg, png or webp)", ext)
		}
	}

	return c.postMultipart(ctx, "/add_attendee", func(w *multipart.Writer) error {
		if err := w.WriteField("name", name); err != nil {
			return err
		}
		if len(photo) > 0 {
			part, err := w.CreateFormFile("photo", filepath.Base(photoName))
			if err != nil {
				return err
			}
			if _, err := part.Write(photo); err != nil {
				return err
			}
		}
		if len(voiceWAV) > 0 {
			part, err := w.CreateFormFile("audio", sanitizeName(name)+"_sample.wav")
			if err != nil {
				return err
			}
			if _, err := part.Write(voiceWAV); err != nil {
				return err
			}
		}
		return nil
	}, nil)
}

// sanitizeName reduces a display name to a filesystem-safe token.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "attendee"
	}
	return b.String()
}
