// Package camera provides webcam capture and runtime-configurable capture settings.
package camera

import (
	"errors"
	"fmt"
)

// Config describes how frames are captured. Mirror and Quality take
// effect on the next frame; the rest apply when capture starts.
type Config struct {
	// Device is an OpenCV device index ("0") or a file/stream path.
	Device string `json:"device"`

	Width     int `json:"width"`
	Height    int `json:"height"`
	Framerate int `json:"framerate"`
	Quality   int `json:"quality"` // preview JPEG quality, 1-100

	// Mirror flips frames horizontally so visitors see themselves as in a mirror.
	Mirror bool `json:"mirror"`
}

// Limits are the accepted capture ranges.
type Limits struct {
	MinWidth     int `json:"min_width"`
	MinHeight    int `json:"min_height"`
	MaxWidth     int `json:"max_width"`
	MaxHeight    int `json:"max_height"`
	MaxFramerate int `json:"max_framerate"`
}

// CaptureLimits bounds every Config accepted by Validate.
var CaptureLimits = Limits{
	MinWidth:     160,
	MinHeight:    120,
	MaxWidth:     3840,
	MaxHeight:    2160,
	MaxFramerate: 120,
}

// DefaultConfig returns 640x480 at 30fps.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   80,
		Mirror:    true,
	}
}

// Validate reports every out-of-range field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	l := CaptureLimits
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	check(c.Device != "", "device is required")
	check(c.Width >= l.MinWidth && c.Width <= l.MaxWidth, "width %d outside %d-%d", c.Width, l.MinWidth, l.MaxWidth)
	check(c.Height >= l.MinHeight && c.Height <= l.MaxHeight, "height %d outside %d-%d", c.Height, l.MinHeight, l.MaxHeight)
	check(c.Framerate >= 1 && c.Framerate <= l.MaxFramerate, "framerate %d outside 1-%d", c.Framerate, l.MaxFramerate)
	check(c.Quality >= 1 && c.Quality <= 100, "quality %d outside 1-100", c.Quality)

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}
