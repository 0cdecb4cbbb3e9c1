// Package capture turns a live microphone stream into a finished WAV
// artifact and normalizes uploaded audio files into the same canonical
// format (16 kHz mono 16-bit PCM).
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meetingsense/console/internal/logging"
	"github.com/meetingsense/console/internal/wav"
)

var (
	// ErrPermissionDenied means microphone access was refused.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrNoDevice means no usable input device exists.
	ErrNoDevice = errors.New("no audio input device")
	// ErrUnsupported means the capture backend is unavailable on this host.
	ErrUnsupported = errors.New("audio capture unsupported")
	// ErrUnsupportedFormat means an uploaded byte sequence could not be decoded.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrFileTooLarge means an upload exceeds the configured size ceiling.
	ErrFileTooLarge = errors.New("audio file too large")
	// ErrEmptyRecording signals that capture completed but produced no
	// samples. It is informational, not a failure: Stop still tore the
	// session down cleanly.
	ErrEmptyRecording = errors.New("recording produced no samples")
	// ErrCaptureActive means Start was called while a session is running.
	ErrCaptureActive = errors.New("capture already active")
	// ErrNoCapture means Stop or Cancel was called with no active session.
	ErrNoCapture = errors.New("no active capture")
)

// Config describes how the microphone should be captured.
type Config struct {
	SampleRate   int
	Channels     int
	ChunkSamples int
	InputFormat  string
	InputDevice  string
}

// Source is a live stream of floating-point sample chunks. Chunks are
// emitted in arrival order; the channel closes when the stream ends.
type Source interface {
	Chunks() <-chan []float32
	Err() error
	Close() error
}

// Device opens capture sources.
type Device interface {
	Open(ctx context.Context, cfg Config) (Source, error)
}

// Artifact is a finished recording.
type Artifact struct {
	ID       string
	WAV      []byte
	Samples  int
	Duration time.Duration
}

// Recorder owns at most one capture session at a time and assembles PCM
// chunks into a WAV artifact on Stop.
type Recorder struct {
	device Device
	cfg    Config
	onTick func(elapsed time.Duration)

	mu     sync.Mutex
	active *captureSession
}

type captureSession struct {
	id      string
	cancel  context.CancelFunc
	source  Source
	started time.Time
	done    chan struct{}

	chunkMu sync.Mutex
	chunks  [][]int16
	samples int
}

// NewRecorder creates a Recorder. onTick, if non-nil, is called roughly once
// per second with the elapsed capture duration while a session is active.
func NewRecorder(device Device, cfg Config, onTick func(time.Duration)) *Recorder {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.ChunkSamples < 256 {
		cfg.ChunkSamples = 4096
	}
	return &Recorder{device: device, cfg: cfg, onTick: onTick}
}

// Start opens the input device and begins accumulating PCM chunks.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return ErrCaptureActive
	}
	r.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	source, err := r.device.Open(sessionCtx, r.cfg)
	if err != nil {
		cancel()
		return err
	}

	session := &captureSession{
		id:      uuid.NewString(),
		cancel:  cancel,
		source:  source,
		started: time.Now(),
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		cancel()
		_ = source.Close()
		return ErrCaptureActive
	}
	r.active = session
	r.mu.Unlock()

	go session.consume()
	if r.onTick != nil {
		go r.tickLoop(session)
	}

	logging.Infow("capture started", "capture_id", session.id, "sample_rate", r.cfg.SampleRate, "chunk_samples", r.cfg.ChunkSamples)
	return nil
}

// consume converts each arriving float chunk to 16-bit PCM and appends it.
// A single goroutine per session preserves chunk arrival order.
func (s *captureSession) consume() {
	defer close(s.done)
	for chunk := range s.source.Chunks() {
		pcm := wav.FromFloat32(chunk)
		s.chunkMu.Lock()
		s.chunks = append(s.chunks, pcm)
		s.samples += len(pcm)
		s.chunkMu.Unlock()
	}
}

func (r *Recorder) tickLoop(session *captureSession) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-session.done:
			return
		case <-ticker.C:
			r.onTick(time.Since(session.started))
		}
	}
}

// Stop halts the input, releases the device and serializes the accumulated
// PCM into a WAV container. A session that captured zero samples returns a
// nil artifact together with ErrEmptyRecording.
func (r *Recorder) Stop() (*Artifact, error) {
	session, err := r.takeActive()
	if err != nil {
		return nil, err
	}

	_ = session.source.Close()
	session.cancel()
	<-session.done

	session.chunkMu.Lock()
	total := session.samples
	pcm := make([]int16, 0, total)
	for _, chunk := range session.chunks {
		pcm = append(pcm, chunk...)
	}
	session.chunkMu.Unlock()

	if srcErr := session.source.Err(); srcErr != nil {
		logging.Warnw("capture source ended with error", "capture_id", session.id, "err", srcErr)
	}

	if total == 0 {
		logging.Infow("capture stopped empty", "capture_id", session.id)
		return nil, ErrEmptyRecording
	}

	duration := time.Duration(total) * time.Second / time.Duration(r.cfg.SampleRate)
	artifact := &Artifact{
		ID:       session.id,
		WAV:      wav.Encode(pcm, r.cfg.SampleRate),
		Samples:  total,
		Duration: duration,
	}
	logging.Infow("capture stopped", "capture_id", session.id, "samples", total, "duration_ms", duration.Milliseconds(), "bytes", len(artifact.WAV))
	return artifact, nil
}

// Cancel halts and releases resources like Stop but discards all samples.
func (r *Recorder) Cancel() error {
	session, err := r.takeActive()
	if err != nil {
		return err
	}
	_ = session.source.Close()
	session.cancel()
	<-session.done
	logging.Infow("capture cancelled", "capture_id", session.id)
	return nil
}

// Active reports whether a capture session is currently running.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

func (r *Recorder) takeActive() (*captureSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil, ErrNoCapture
	}
	session := r.active
	r.active = nil
	return session, nil
}
