package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// DownloadFile fetches a post-meeting artifact by meeting id and file type.
// A 404 maps to ErrStillProcessing: the server is usually still generating
// the artifact and the caller should retry shortly.
func (c *Client) DownloadFile(ctx context.Context, meetingID string, fileType FileType) ([]byte, error) {
	if !ValidFileType(fileType) {
		return nil, fmt.Errorf("invalid file type %q", fileType)
	}
	return c.getBinary(ctx, "/download_file/"+url.PathEscape(meetingID)+"/"+url.PathEscape(string(fileType)))
}

// CheckFileExists probes whether a named file exists in a meeting folder.
// The server answers 404 for a missing file, so that case is a negative
// probe result rather than an error.
func (c *Client) CheckFileExists(ctx context.Context, folder, file string) (bool, error) {
	q := url.Values{}
	q.Set("folder", folder)
	q.Set("file", file)

	var out struct {
		Exists bool `json:"exists"`
	}
	err := c.getJSON(ctx, "/check_file_exists?"+q.Encode(), &out)
	if errors.Is(err, ErrStillProcessing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Exists, nil
}

// CheckVideoFile probes whether a complete, stable video file exists for a
// meeting folder.
func (c *Client) CheckVideoFile(ctx context.Context, folder string) (bool, string, error) {
	q := url.Values{}
	q.Set("folder", folder)

	var out struct {
		Exists   bool   `json:"exists"`
		Filename string `json:"filename"`
	}
	if err := c.getJSON(ctx, "/check_video_file?"+q.Encode(), &out); err != nil {
		return false, "", err
	}
	return out.Exists, out.Filename, nil
}
