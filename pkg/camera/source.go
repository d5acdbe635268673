package camera

import (
	"context"
	"errors"
	"image"
)

// Sentinel errors for camera sources.
var (
	// ErrOpenFailed is returned when the capture device cannot be opened.
	ErrOpenFailed = errors.New("camera: failed to open device")

	// ErrInvalidConfig is returned when the capture config does not validate.
	ErrInvalidConfig = errors.New("camera: invalid config")
)

// Source produces camera frames.
//
// Frames is a latest-value channel: when the consumer falls behind, stale
// frames are replaced rather than queued. The channel is closed on Stop.
type Source interface {
	Start(ctx context.Context) error
	Frames() <-chan image.Image
	Stop() error
	Name() string
}

// Stats contains statistics about a camera source.
type Stats struct {
	Frames   int64 `json:"frames"`
	Dropped  int64 `json:"dropped"`
	Failures int64 `json:"failures"`
	Running  bool  `json:"running"`
}

// offer delivers img on a one-slot channel, replacing an unread frame.
// Returns true when an older frame was discarded.
func offer(ch chan image.Image, img image.Image) bool {
	select {
	case ch <- img:
		return false
	default:
	}

	dropped := false
	select {
	case <-ch:
		dropped = true
	default:
	}

	select {
	case ch <- img:
	default:
		// Consumer raced us; it holds a fresher frame now
	}
	return dropped
}

// MirrorRGBA flips img horizontally in place.
func MirrorRGBA(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for l, r := 0, len(row)-4; l < r; l, r = l+4, r-4 {
			for k := 0; k < 4; k++ {
				row[l+k], row[r+k] = row[r+k], row[l+k]
			}
		}
	}
}
