package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	soxr "github.com/zaf/resample"

	"github.com/meetingsense/console/internal/logging"
	"github.com/meetingsense/console/internal/wav"
)

// Decoder converts a compressed audio byte stream into raw mono 16-bit
// little-endian PCM at the requested sample rate.
type Decoder interface {
	DecodePCM(ctx context.Context, data []byte, sampleRate int) ([]byte, error)
}

// NormalizeUpload converts an uploaded audio file into canonical WAV
// (16 kHz mono 16-bit PCM). Inputs already in the canonical format pass
// through unchanged, other PCM WAV files are downmixed and resampled, and
// anything else is handed to dec. Byte sequences that cannot be decoded
// fail with ErrUnsupportedFormat and inputs above maxBytes fail with
// ErrFileTooLarge.
func NormalizeUpload(ctx context.Context, fileBytes []byte, targetRate int, maxBytes int64, dec Decoder) ([]byte, error) {
	if maxBytes > 0 && int64(len(fileBytes)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(fileBytes), maxBytes)
	}
	if targetRate <= 0 {
		targetRate = 16000
	}

	format, samples, err := wav.Decode(fileBytes)
	if err != nil {
		// Not plain 16-bit PCM WAV. Compressed formats (mp3, ogg, m4a,
		// webm) and exotic WAV encodings go through the decoder.
		return decodeCompressed(ctx, fileBytes, targetRate, dec)
	}

	if int(format.SampleRate) == targetRate && format.NumChannels == 1 {
		return fileBytes, nil
	}

	logging.Infow("normalizing upload", "rate", format.SampleRate, "channels", format.NumChannels, "target_rate", targetRate)

	mono := downmix(samples, int(format.NumChannels))
	if int(format.SampleRate) != targetRate {
		mono, err = resamplePCM(mono, int(format.SampleRate), targetRate)
		if err != nil {
			return nil, err
		}
	}
	return wav.Encode(mono, targetRate), nil
}

func decodeCompressed(ctx context.Context, fileBytes []byte, targetRate int, dec Decoder) ([]byte, error) {
	if dec == nil {
		return nil, fmt.Errorf("%w: not a PCM WAV file and no decoder available", ErrUnsupportedFormat)
	}

	pcm, err := dec.DecodePCM(ctx, fileBytes, targetRate)
	if err != nil {
		return nil, err
	}
	// Whole samples only.
	pcm = pcm[:len(pcm)-len(pcm)%2]
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: decoded stream is empty", ErrUnsupportedFormat)
	}

	logging.Infow("decoded compressed upload", "bytes_in", len(fileBytes), "pcm_bytes", len(pcm), "target_rate", targetRate)
	return wav.EncodeBytes(pcm, targetRate, 1), nil
}

// downmix averages interleaved channels into mono.
func downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// resamplePCM converts mono 16-bit PCM between sample rates with soxr.
func resamplePCM(samples []int16, fromRate, toRate int) ([]int16, error) {
	in := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(in[i*2:], uint16(s))
	}

	var buf bytes.Buffer
	res, err := soxr.New(&buf, float64(fromRate), float64(toRate), 1, soxr.I16, soxr.HighQ)
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}
	if _, err := res.Write(in); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("resampler write: %w", err)
	}
	// Close flushes the tail of the conversion window.
	if err := res.Close(); err != nil {
		return nil, fmt.Errorf("resampler close: %w", err)
	}

	outBytes := buf.Bytes()
	out := make([]int16, len(outBytes)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(outBytes[i*2:]))
	}
	return out, nil
}
