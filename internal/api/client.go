// Package api is a typed client for the MeetingSense server REST surface.
// Every endpoint answers a JSON envelope carrying a status of "success" or
// "error" plus a message on failure; binary downloads are the exception.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meetingsense/console/internal/logging"
)

var (
	// ErrStillProcessing maps HTTP 404 on artifact fetches: the server has
	// not finished post-meeting processing yet and the caller should retry.
	ErrStillProcessing = errors.New("artifact still processing")
	// ErrServer covers non-2xx responses other than the 404 retry case.
	ErrServer = errors.New("server error")
)

// RemoteError is a failure reported inside a 2xx JSON envelope.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Op + ": request failed"
	}
	return e.Op + ": " + e.Message
}

// Client talks to one MeetingSense server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type statusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// postForm issues a form-encoded POST and decodes the JSON envelope into out
// (which must embed the status fields). A nil out decodes into a plain
// envelope for the status check only.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	var body io.Reader
	contentType := ""
	if form != nil {
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}
	return c.do(ctx, http.MethodPost, path, body, contentType, out)
}

// getJSON issues a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Correlation-ID", uuid.NewString())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, ErrStillProcessing)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Errorw("server request failed", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%s: %w: status %d", path, ErrServer, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", path, err)
	}

	var env statusEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: decode envelope: %w", path, err)
	}
	if env.Status == "error" {
		logging.Warnw("server reported failure", "path", path, "message", env.Message)
		return &RemoteError{Op: path, Message: env.Message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", path, err)
		}
	}
	return nil
}

// postMultipart issues a multipart POST assembled by build and decodes the
// JSON envelope into out.
func (c *Client) postMultipart(ctx context.Context, path string, build func(*multipart.Writer) error, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := build(writer); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, &buf, writer.FormDataContentType(), out)
}

// getBinary fetches a raw artifact. 404 is classified as ErrStillProcessing.
func (c *Client) getBinary(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Correlation-ID", uuid.NewString())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", path, ErrStillProcessing)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: %w: status %d", path, ErrServer, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
