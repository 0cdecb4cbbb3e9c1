package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/meetingsense/console/internal/wav"
)

// fakeDecoder stands in for the ffmpeg transcoder.
type fakeDecoder struct {
	pcm    []byte
	err    error
	called bool
	rate   int
}

func (d *fakeDecoder) DecodePCM(ctx context.Context, data []byte, sampleRate int) ([]byte, error) {
	d.called = true
	d.rate = sampleRate
	if d.err != nil {
		return nil, d.err
	}
	return d.pcm, nil
}

func TestNormalizeUploadPassthrough(t *testing.T) {
	t.Parallel()

	in := wav.Encode([]int16{1, 2, 3, 4}, 16000)
	out, err := NormalizeUpload(context.Background(), in, 16000, 10*1024*1024, nil)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if &out[0] != &in[0] || len(out) != len(in) {
		t.Fatalf("canonical WAV should pass through unchanged")
	}
}

func TestNormalizeUploadRejectsUndecodableWithoutDecoder(t *testing.T) {
	t.Parallel()

	_, err := NormalizeUpload(context.Background(), []byte("ID3\x03this is an mp3 frame, honest"), 16000, 10*1024*1024, nil)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNormalizeUploadDecodesCompressed(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 8)
	for i, s := range []int16{10, -10, 20, -20} {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	dec := &fakeDecoder{pcm: pcm}

	out, err := NormalizeUpload(context.Background(), []byte("ID3\x03compressed bytes"), 16000, 10*1024*1024, dec)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !dec.called {
		t.Fatal("decoder was not invoked for non-WAV input")
	}
	if dec.rate != 16000 {
		t.Fatalf("decoder rate = %d, want 16000", dec.rate)
	}

	format, samples, err := wav.Decode(out)
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if format.NumChannels != 1 || format.SampleRate != 16000 {
		t.Fatalf("unexpected output format: %+v", format)
	}
	want := []int16{10, -10, 20, -20}
	if len(samples) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestNormalizeUploadDecoderFailure(t *testing.T) {
	t.Parallel()

	dec := &fakeDecoder{err: errors.New("corrupt stream")}
	_, err := NormalizeUpload(context.Background(), []byte("not audio at all"), 16000, 10*1024*1024, dec)
	if err == nil {
		t.Fatal("expected decoder failure to propagate")
	}
}

func TestNormalizeUploadEmptyDecodeRejected(t *testing.T) {
	t.Parallel()

	dec := &fakeDecoder{pcm: []byte{0x01}} // trimmed to whole samples, leaves nothing
	_, err := NormalizeUpload(context.Background(), []byte("tiny"), 16000, 10*1024*1024, dec)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNormalizeUploadRejectsOversize(t *testing.T) {
	t.Parallel()

	in := wav.Encode(make([]int16, 4096), 16000)
	_, err := NormalizeUpload(context.Background(), in, 16000, 64, nil)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestNormalizeUploadDownmixesStereo(t *testing.T) {
	t.Parallel()

	// Stereo at the target rate: downmix only, no resampling involved.
	stereo := []int16{100, 300, -100, -300, 0, 50}
	in := wav.EncodeMulti(stereo, 16000, 2)
	out, err := NormalizeUpload(context.Background(), in, 16000, 10*1024*1024, nil)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	format, samples, err := wav.Decode(out)
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if format.NumChannels != 1 || format.SampleRate != 16000 {
		t.Fatalf("unexpected output format: %+v", format)
	}
	want := []int16{200, -200, 25}
	if len(samples) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestDownmixMono(t *testing.T) {
	t.Parallel()

	in := []int16{5, 6, 7}
	out := downmix(in, 1)
	if len(out) != 3 || out[0] != 5 {
		t.Fatalf("mono input should be untouched")
	}
}
