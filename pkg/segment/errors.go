package segment

import (
	"errors"
	"fmt"
)

// Sentinel errors for segmentation providers.
var (
	// ErrClosed is returned when sending to a closed provider.
	ErrClosed = errors.New("segment: provider closed")

	// ErrNotConnected is returned when the sidecar connection is gone.
	ErrNotConnected = errors.New("segment: not connected")

	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("segment: model file not found")

	// ErrEmptyFrame is returned for frames with no pixels.
	ErrEmptyFrame = errors.New("segment: empty frame")
)

// RemoteError is an error reported by the segmentation sidecar.
type RemoteError struct {
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("segment: sidecar error: %s", e.Message)
}
