// Package audioio captures microphone audio for beat analysis.
//
// Two backends exist: "command" pipes raw PCM from arecord on Linux and
// "mock" synthesizes tones for tests and machines without a microphone.
// "auto" picks command when arecord is on PATH.
package audioio

import (
	"errors"
	"fmt"
	"time"
)

// Backend names a capture implementation.
type Backend string

const (
	BackendAuto    Backend = "auto"
	BackendCommand Backend = "command"
	BackendMock    Backend = "mock"
)

// Config describes the capture format.
type Config struct {
	Backend    Backend `json:"backend"`
	SampleRate int     `json:"sample_rate"` // Hz
	Channels   int     `json:"channels"`

	// BufferDuration is the length of one chunk.
	BufferDuration time.Duration `json:"buffer_duration"`

	// Device is passed to arecord -D, e.g. "hw:1,0". Empty uses "default".
	Device string `json:"device"`
}

// DefaultConfig captures 44.1kHz mono in 20ms chunks.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     44100,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
	}
}

// Validate rejects non-positive format values and unknown backends.
func (c Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate))
	}
	if c.Channels <= 0 {
		errs = append(errs, fmt.Errorf("channels must be positive, got %d", c.Channels))
	}
	if c.BufferDuration <= 0 {
		errs = append(errs, fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration))
	}
	switch c.Backend {
	case BackendAuto, BackendCommand, BackendMock, "":
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	return errors.Join(errs...)
}

// BufferSize returns frames per chunk.
func (c Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns bytes per chunk of PCM16.
func (c Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}
