package api

import (
	"context"
	"net/url"
	"strings"
)

// CreateMeeting registers a new meeting and returns the server's record.
func (c *Client) CreateMeeting(ctx context.Context, title, agenda string, emails []string) (*Meeting, error) {
	form := url.Values{}
	form.Set("title", title)
	form.Set("agenda", agenda)
	if len(emails) > 0 {
		form.Set("emails", strings.Join(emails, ","))
	}

	var out struct {
		statusEnvelope
		Meeting Meeting `json:"meeting"`
	}
	if err := c.postForm(ctx, "/create_meeting", form, &out); err != nil {
		return nil, err
	}
	return &out.Meeting, nil
}

// EndMeeting finalizes the current meeting server-side and returns the
// closing summary (id, duration, generated files).
func (c *Client) EndMeeting(ctx context.Context) (*Meeting, error) {
	var out struct {
		statusEnvelope
		Meeting Meeting `json:"meeting"`
	}
	if err := c.postForm(ctx, "/end_meeting", nil, &out); err != nil {
		return nil, err
	}
	return &out.Meeting, nil
}

// MeetingStatus fetches the server's view of the current meeting.
func (c *Client) MeetingStatus(ctx context.Context) (map[string]interface{}, error) {
	var out struct {
		statusEnvelope
		Data map[string]interface{} `json:"data"`
	}
	if err := c.getJSON(ctx, "/meeting_status", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ResetTracking clears the server's attendance tracking state and starts a
// fresh session window.
func (c *Client) ResetTracking(ctx context.Context) error {
	return c.postForm(ctx, "/reset_tracking", nil, nil)
}

// SystemStatus probes the server's overall runtime state.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var out SystemStatus
	if err := c.getJSON(ctx, "/system-status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMeetingEmail asks the server to mail the meeting artifacts. With no
// explicit recipients the server falls back to the meeting's stored emails.
func (c *Client) SendMeetingEmail(ctx context.Context, meetingID string, recipients []string) error {
	form := url.Values{}
	form.Set("meeting_id", meetingID)
	if len(recipients) > 0 {
		form.Set("recipients", strings.Join(recipients, ","))
	}
	return c.postForm(ctx, "/api/send_meeting_email", form, nil)
}
