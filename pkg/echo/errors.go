package echo

import (
	"errors"
	"fmt"
)

// Sentinel errors for initialization failures.
var (
	// ErrCameraUnavailable is returned when no camera source can be started.
	ErrCameraUnavailable = errors.New("echo: camera unavailable")

	// ErrProviderUnavailable is returned when the segmentation provider cannot be created.
	ErrProviderUnavailable = errors.New("echo: segmentation provider unavailable")

	// ErrNotInitialized is returned by Run before a successful Init.
	ErrNotInitialized = errors.New("echo: app not initialized")

	// ErrNoFrame is returned by Snapshot before the first render.
	ErrNoFrame = errors.New("echo: no frame rendered yet")
)

// InitError is a fatal startup failure of one component. It is the only
// error class that reaches the presentation layer.
type InitError struct {
	// Component names the part that failed ("camera", "provider").
	Component string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("echo [%s]: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("echo: config %s: %s", e.Field, e.Message)
}
