// Package audio converts between raw float samples, linear PCM16 frames,
// and the base64 chunks the transport carries.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"time"

	"github.com/neutralbridge/concierge/domain/faults"
)

const (
	// CaptureSampleRate is the fixed microphone capture rate.
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the rate of synthesized speech coming back.
	PlaybackSampleRate = 16000
)

// EncodedChunk is a text-safe base64 representation of one PCM16 frame,
// suitable for embedding in a JSON request body.
type EncodedChunk string

// Buffer represents decoded PCM audio ready for playback.
type Buffer struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Floats converts the buffer back to float samples in [-1, 1].
func (b *Buffer) Floats() []float64 {
	out := make([]float64, len(b.Samples))
	for i, s := range b.Samples {
		if s >= 0 {
			out[i] = float64(s) / 32767
		} else {
			out[i] = float64(s) / 32768
		}
	}
	return out
}

// Encode quantizes float samples in [-1, 1] to little-endian PCM16 and
// base64-encodes the result. Samples are clipped before scaling; positive
// values scale by 32767 and negative by 32768 so both rails are reachable.
// An empty input yields an empty chunk.
func Encode(samples []float64) EncodedChunk {
	if len(samples) == 0 {
		return ""
	}
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s >= 0 {
			v = int16(s * 32767)
		} else {
			v = int16(s * 32768)
		}
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return EncodedChunk(base64.StdEncoding.EncodeToString(buf))
}

// Decode reverses a chunk into a playable buffer at the given sample rate.
// An empty chunk decodes to a zero-duration buffer. Malformed base64 or an
// odd byte count yields a DecodeError; the caller is expected to drop the
// payload and keep the session alive.
func Decode(chunk EncodedChunk, sampleRate int) (*Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(string(chunk))
	if err != nil {
		return nil, faults.Decode("invalid base64 payload", err)
	}
	return FromPCM16(raw, sampleRate)
}

// FromPCM16 wraps raw little-endian PCM16 bytes in a playable buffer.
func FromPCM16(raw []byte, sampleRate int) (*Buffer, error) {
	if len(raw)%2 != 0 {
		return nil, faults.Decode("truncated sample frame", nil)
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

// ToPCM16 serializes the buffer back to little-endian PCM16 bytes.
func (b *Buffer) ToPCM16() []byte {
	raw := make([]byte, 2*len(b.Samples))
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(s))
	}
	return raw
}

// DecodeToPCM16 reverses a chunk to raw PCM16 bytes without wrapping them
// in a buffer. Used at the transport boundary where only bytes travel.
func DecodeToPCM16(chunk EncodedChunk) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(string(chunk))
	if err != nil {
		return nil, faults.Decode("invalid base64 payload", err)
	}
	if len(raw)%2 != 0 {
		return nil, faults.Decode("truncated sample frame", nil)
	}
	return raw, nil
}

// EncodePCM16 base64-encodes raw PCM16 bytes into a chunk.
func EncodePCM16(raw []byte) EncodedChunk {
	if len(raw) == 0 {
		return ""
	}
	return EncodedChunk(base64.StdEncoding.EncodeToString(raw))
}
