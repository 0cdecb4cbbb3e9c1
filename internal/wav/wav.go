// Package wav builds and parses RIFF/WAVE containers around 16-bit PCM.
// The header math is a hard correctness contract: size fields that disagree
// with the payload produce files that look plausible but will not play.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed size of the canonical PCM header this package
	// writes: RIFF chunk descriptor, "fmt " subchunk and "data" subchunk tag.
	HeaderSize = 44

	formatPCM = 1
)

var (
	ErrNotWAV    = errors.New("not a RIFF/WAVE byte sequence")
	ErrMalformed = errors.New("malformed WAV container")
)

// Format describes the PCM layout declared by a container's fmt subchunk.
type Format struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Encode wraps little-endian 16-bit mono PCM samples into a WAV container.
func Encode(samples []int16, sampleRate int) []byte {
	return EncodeMulti(samples, sampleRate, 1)
}

// EncodeMulti wraps interleaved 16-bit PCM into a WAV container with the
// given channel count.
func EncodeMulti(samples []int16, sampleRate, channels int) []byte {
	bitsPerSample := 16
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)
	dataLen := uint32(len(samples) * 2)
	riffSize := uint32(4 + (8 + 16) + (8 + dataLen))

	buf := &bytes.Buffer{}
	buf.Grow(HeaderSize + int(dataLen))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(formatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataLen)
	binary.Write(buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// EncodeBytes wraps raw PCM16LE bytes into a WAV container without copying
// through an int16 slice.
func EncodeBytes(pcm []byte, sampleRate, channels int) []byte {
	bitsPerSample := 16
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)
	dataLen := uint32(len(pcm))
	riffSize := uint32(4 + (8 + 16) + (8 + dataLen))

	buf := &bytes.Buffer{}
	buf.Grow(HeaderSize + len(pcm))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(formatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)
	return buf.Bytes()
}

// IsWAV reports whether b starts with a RIFF/WAVE signature.
func IsWAV(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

// Decode parses a WAV container and returns its declared format together
// with the PCM payload of the data subchunk. Only 16-bit PCM payloads are
// decoded into samples; other encodings return ErrMalformed.
func Decode(b []byte) (Format, []int16, error) {
	var f Format
	if !IsWAV(b) {
		return f, nil, ErrNotWAV
	}

	// Walk subchunks after the 12-byte RIFF descriptor. Real-world files may
	// carry LIST/INFO chunks before data.
	pos := 12
	var data []byte
	haveFmt := false
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(b) {
			return f, nil, fmt.Errorf("%w: subchunk %q overruns buffer", ErrMalformed, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return f, nil, fmt.Errorf("%w: fmt subchunk too short", ErrMalformed)
			}
			f.AudioFormat = binary.LittleEndian.Uint16(b[body:])
			f.NumChannels = binary.LittleEndian.Uint16(b[body+2:])
			f.SampleRate = binary.LittleEndian.Uint32(b[body+4:])
			f.ByteRate = binary.LittleEndian.Uint32(b[body+8:])
			f.BlockAlign = binary.LittleEndian.Uint16(b[body+12:])
			f.BitsPerSample = binary.LittleEndian.Uint16(b[body+14:])
			haveFmt = true
		case "data":
			data = b[body : body+size]
		}
		// Subchunks are word aligned.
		pos = body + size + (size & 1)
		if data != nil && haveFmt {
			break
		}
	}

	if !haveFmt {
		return f, nil, fmt.Errorf("%w: missing fmt subchunk", ErrMalformed)
	}
	if data == nil {
		return f, nil, fmt.Errorf("%w: missing data subchunk", ErrMalformed)
	}
	if f.AudioFormat != formatPCM || f.BitsPerSample != 16 {
		return f, nil, fmt.Errorf("%w: unsupported encoding format=%d bits=%d", ErrMalformed, f.AudioFormat, f.BitsPerSample)
	}
	if len(data)%2 != 0 {
		return f, nil, fmt.Errorf("%w: odd data length %d", ErrMalformed, len(data))
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return f, samples, nil
}

// FromFloat32 converts floating-point samples in [-1, 1] to 16-bit signed
// PCM. Conversion saturates rather than wraps: values at or above 1 map to
// 32767, values at or below -1 map to -32768. Negative values scale by 32768
// and non-negative ones by 32767 so both extremes are exactly reachable.
func FromFloat32(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		out[i] = SampleFromFloat32(v)
	}
	return out
}

// SampleFromFloat32 converts a single floating-point sample, saturating at
// the int16 range.
func SampleFromFloat32(v float32) int16 {
	if v <= -1 {
		return -32768
	}
	if v >= 1 {
		return 32767
	}
	if v < 0 {
		return int16(v * 32768)
	}
	return int16(v * 32767)
}
