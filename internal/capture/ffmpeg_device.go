package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/meetingsense/console/internal/logging"
)

// FFmpegDevice captures microphone audio by running ffmpeg and reading raw
// 32-bit float samples from its stdout. Echo cancellation, noise suppression
// and auto gain stay disabled so the raw signal reaches downstream speech
// processing untouched.
type FFmpegDevice struct {
	command string
}

func NewFFmpegDevice(command string) *FFmpegDevice {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFmpegDevice{command: command}
}

func (d *FFmpegDevice) Open(ctx context.Context, cfg Config) (Source, error) {
	if _, err := exec.LookPath(d.command); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnsupported, d.command)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "f32le",
		"-",
	}

	cmd := exec.CommandContext(ctx, d.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	src := &ffmpegSource{
		stdout:       stdout,
		stderr:       &stderr,
		cmd:          cmd,
		chunkSamples: cfg.ChunkSamples,
		chunks:       make(chan []float32, 8),
	}
	go src.readLoop()
	return src, nil
}

type ffmpegSource struct {
	stdout       io.ReadCloser
	stderr       *bytes.Buffer
	cmd          *exec.Cmd
	chunkSamples int

	chunks chan []float32

	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

func (s *ffmpegSource) Chunks() <-chan []float32 { return s.chunks }

func (s *ffmpegSource) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *ffmpegSource) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.stdout.Close()
	})
	return nil
}

// readLoop reads fixed-size sample chunks until stdout closes. A final short
// chunk is still delivered so no captured samples are lost.
func (s *ffmpegSource) readLoop() {
	defer close(s.chunks)
	defer func() { _ = s.cmd.Wait() }()

	buf := make([]byte, s.chunkSamples*4)
	for {
		n, err := io.ReadFull(s.stdout, buf)
		if n > 0 {
			// Whole samples only.
			n -= n % 4
			chunk := make([]float32, n/4)
			for i := range chunk {
				chunk[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
			}
			if len(chunk) > 0 {
				s.chunks <- chunk
			}
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				s.setErr(classifyCaptureErr(err, s.stderr.String()))
			} else if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
				// ffmpeg sometimes exits cleanly while still reporting the
				// real failure on stderr.
				if classified := classifyCaptureErr(nil, msg); classified != nil {
					s.setErr(classified)
				}
			}
			return
		}
	}
}

func (s *ffmpegSource) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
		logging.Debugw("capture source error", "err", err)
	}
}

// classifyCaptureErr maps ffmpeg failures onto the capture error taxonomy
// using the stderr text, since ffmpeg exit codes carry no detail.
func classifyCaptureErr(err error, stderr string) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "access denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(stderr))
	case strings.Contains(lower, "no such device"), strings.Contains(lower, "device not found"),
		strings.Contains(lower, "no such file or directory"):
		return fmt.Errorf("%w: %s", ErrNoDevice, strings.TrimSpace(stderr))
	case err != nil:
		return err
	case stderr != "":
		return fmt.Errorf("capture failed: %s", strings.TrimSpace(stderr))
	default:
		return nil
	}
}
