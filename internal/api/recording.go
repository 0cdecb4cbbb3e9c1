package api

import (
	"context"
)

// StartAudioRecording begins server-side audio capture for the meeting.
func (c *Client) StartAudioRecording(ctx context.Context) error {
	return c.postForm(ctx, "/start_audio_recording", nil, nil)
}

// StopAudioRecording halts server-side audio capture.
func (c *Client) StopAudioRecording(ctx context.Context) error {
	return c.postForm(ctx, "/stop_audio_recording", nil, nil)
}

// VideoStart is the successful start_video_recording payload.
type VideoStart struct {
	LiveFeedURL        string `json:"live_feed_url"`
	VirtualCameraReady bool   `json:"virtual_camera_ready"`
}

// StartVideoRecording asks the external recording tool to begin and returns
// the live-feed channel path to watch.
func (c *Client) StartVideoRecording(ctx context.Context) (*VideoStart, error) {
	var out struct {
		statusEnvelope
		VideoStart
	}
	if err := c.postForm(ctx, "/start_video_recording", nil, &out); err != nil {
		return nil, err
	}
	if out.LiveFeedURL == "" {
		out.LiveFeedURL = "/ws_live_feed"
	}
	return &out.VideoStart, nil
}

// StopVideoRecording halts the external recording tool.
func (c *Client) StopVideoRecording(ctx context.Context) error {
	return c.postForm(ctx, "/stop_video_recording", nil, nil)
}

// VideoRecordingStatus probes whether the external tool is recording.
func (c *Client) VideoRecordingStatus(ctx context.Context) (bool, error) {
	var out struct {
		VideoRecordingActive bool   `json:"video_recording_active"`
		RecorderState        string `json:"obs_state"`
	}
	if err := c.getJSON(ctx, "/video_recording_status", &out); err != nil {
		return false, err
	}
	return out.VideoRecordingActive, nil
}
