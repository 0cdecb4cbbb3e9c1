package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegTranscoder decodes compressed uploads through an ffmpeg subprocess,
// reading the input from stdin and emitting raw mono s16le on stdout.
type FFmpegTranscoder struct {
	command string
}

func NewFFmpegTranscoder(command string) *FFmpegTranscoder {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFmpegTranscoder{command: command}
}

func (t *FFmpegTranscoder) DecodePCM(ctx context.Context, data []byte, sampleRate int) ([]byte, error) {
	if _, err := exec.LookPath(t.command); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnsupportedFormat, t.command)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, t.command, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detail)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: decoder produced no samples", ErrUnsupportedFormat)
	}
	return stdout.Bytes(), nil
}
