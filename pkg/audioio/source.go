package audioio

import (
	"context"
	"io"
	"time"
)

// Chunk is one buffer of interleaved PCM16 audio.
type Chunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// DecodePCM16 builds a chunk from little-endian PCM16 bytes. A trailing
// odd byte is ignored.
func DecodePCM16(data []byte, sampleRate, channels int) Chunk {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return Chunk{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

// Frames returns the number of sample frames (samples per channel).
func (c Chunk) Frames() int {
	if c.Channels <= 0 {
		return len(c.Samples)
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the playback length of the chunk.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// Mono mixes the chunk down to one channel of floats in [-1, 1).
func (c Chunk) Mono() []float64 {
	ch := max(c.Channels, 1)
	out := make([]float64, c.Frames())
	for i := range out {
		var sum float64
		for _, s := range c.Samples[i*ch : i*ch+ch] {
			sum += float64(s) / 32768
		}
		out[i] = sum / float64(ch)
	}
	return out
}

// Source is a microphone or synthetic capture backend. Chunks arrive on
// Stream, which is closed when the source stops.
type Source interface {
	// Start begins capture. Starting a running source is a no-op.
	Start(ctx context.Context) error

	// Stop halts capture. Safe to call multiple times.
	Stop() error

	// Stream returns the chunk channel of the current run.
	Stream() <-chan Chunk

	Config() Config
	Name() string
	Stats() Stats

	// Close stops capture for good; Start afterwards fails.
	io.Closer
}

// Stats counts what a source delivered.
type Stats struct {
	Chunks   int64  `json:"chunks"`
	Samples  int64  `json:"samples"`
	Overruns int64  `json:"overruns"` // chunks dropped because the reader lagged
	Running  bool   `json:"running"`
	Backend  string `json:"backend"`
}
