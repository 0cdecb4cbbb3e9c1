package capture

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/meetingsense/console/internal/wav"
)

type fakeSource struct {
	chunks chan []float32
	err    error

	mu         sync.Mutex
	closeCalls int
}

func newFakeSource(chunks ...[]float32) *fakeSource {
	ch := make(chan []float32, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	return &fakeSource{chunks: ch}
}

func (f *fakeSource) Chunks() <-chan []float32 { return f.chunks }
func (f *fakeSource) Err() error               { return f.err }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if f.closeCalls == 1 {
		close(f.chunks)
	}
	return nil
}

type fakeDevice struct {
	sources []Source
	err     error
	calls   int
}

func (f *fakeDevice) Open(_ context.Context, _ Config) (Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sources) {
		return nil, errors.New("no source configured")
	}
	src := f.sources[f.calls]
	f.calls++
	return src, nil
}

func constChunk(n int, v float32) []float32 {
	c := make([]float32, n)
	for i := range c {
		c[i] = v
	}
	return c
}

func TestRecorderStopProducesWAV(t *testing.T) {
	t.Parallel()

	source := newFakeSource(constChunk(4096, 0.25), constChunk(4096, -0.25))
	recorder := NewRecorder(&fakeDevice{sources: []Source{source}}, Config{SampleRate: 16000, ChunkSamples: 4096}, nil)

	if err := recorder.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	artifact, err := recorder.Stop()
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if artifact.Samples != 2*4096 {
		t.Fatalf("samples = %d, want %d", artifact.Samples, 2*4096)
	}
	wantData := 2 * 4096 * 2
	if len(artifact.WAV) != wantData+wav.HeaderSize {
		t.Fatalf("container length = %d, want %d", len(artifact.WAV), wantData+wav.HeaderSize)
	}

	format, samples, err := wav.Decode(artifact.WAV)
	if err != nil {
		t.Fatalf("artifact does not decode: %v", err)
	}
	if format.SampleRate != 16000 || format.NumChannels != 1 {
		t.Fatalf("unexpected format: %+v", format)
	}
	// Chunk order preserved: first half positive, second half negative.
	if samples[0] <= 0 || samples[4096] >= 0 {
		t.Fatalf("chunk order lost: samples[0]=%d samples[4096]=%d", samples[0], samples[4096])
	}
	if len(samples) != artifact.Samples {
		t.Fatalf("declared data length disagrees with payload: %d vs %d", len(samples), artifact.Samples)
	}
}

func TestRecorderEmptyCapture(t *testing.T) {
	t.Parallel()

	source := newFakeSource()
	recorder := NewRecorder(&fakeDevice{sources: []Source{source}}, Config{}, nil)

	if err := recorder.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	artifact, err := recorder.Stop()
	if !errors.Is(err, ErrEmptyRecording) {
		t.Fatalf("expected ErrEmptyRecording, got %v", err)
	}
	if artifact != nil {
		t.Fatalf("expected no artifact for empty capture")
	}
	if !errorsIsClosed(source) {
		t.Fatalf("expected source to be released")
	}
}

func TestRecorderCancelDiscards(t *testing.T) {
	t.Parallel()

	source := newFakeSource(constChunk(1024, 0.5))
	recorder := NewRecorder(&fakeDevice{sources: []Source{source}}, Config{}, nil)

	if err := recorder.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := recorder.Cancel(); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if recorder.Active() {
		t.Fatalf("recorder still active after cancel")
	}
	if _, err := recorder.Stop(); !errors.Is(err, ErrNoCapture) {
		t.Fatalf("expected ErrNoCapture after cancel, got %v", err)
	}
}

func TestRecorderDoubleStartRejected(t *testing.T) {
	t.Parallel()

	source := newFakeSource(constChunk(16, 0))
	recorder := NewRecorder(&fakeDevice{sources: []Source{source}}, Config{}, nil)

	if err := recorder.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := recorder.Start(context.Background()); !errors.Is(err, ErrCaptureActive) {
		t.Fatalf("expected ErrCaptureActive, got %v", err)
	}
	_ = recorder.Cancel()
}

func TestRecorderStartDeviceError(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder(&fakeDevice{err: ErrPermissionDenied}, Config{}, nil)
	if err := recorder.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if recorder.Active() {
		t.Fatalf("recorder should not be active after failed start")
	}
}

func errorsIsClosed(f *fakeSource) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls > 0
}
