package segment

import (
	"context"
	"image"
)

// Provider segments camera frames asynchronously.
//
// Send submits one frame; the result arrives later through the OnResults
// callback on a provider-owned goroutine. Callers keep at most one Send
// in flight.
type Provider interface {
	Send(ctx context.Context, frame image.Image) error
	OnResults(fn func(Result))
	Name() string
	Close() error
}

// Sequencer is implemented by providers that number accepted frames from 1.
// The Result for the next accepted frame carries Seq Sent()+1.
type Sequencer interface {
	Sent() uint64
}

// ErrorReporter is implemented by providers that can fail a frame after
// Send returned. seq is the failed frame, 0 when unknown.
type ErrorReporter interface {
	OnError(fn func(seq uint64, err error))
}

// Options are the pose model settings sent to the segmentation backend.
type Options struct {
	ModelComplexity        int     `json:"modelComplexity" validate:"min=0,max=2"`
	SmoothLandmarks        bool    `json:"smoothLandmarks"`
	EnableSegmentation     bool    `json:"enableSegmentation"`
	SmoothSegmentation     bool    `json:"smoothSegmentation"`
	MinDetectionConfidence float64 `json:"minDetectionConfidence" validate:"gte=0,lte=1"`
	MinTrackingConfidence  float64 `json:"minTrackingConfidence" validate:"gte=0,lte=1"`
}

// DefaultOptions returns the installation's fixed model settings.
func DefaultOptions() Options {
	return Options{
		ModelComplexity:        1,
		SmoothLandmarks:        true,
		EnableSegmentation:     true,
		SmoothSegmentation:     true,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
	}
}
