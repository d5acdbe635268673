package audioio

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// NewSource builds the backend cfg names, resolving "auto" first.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := Resolve(cfg.Backend)
	logger.Info("creating audio source",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"buffer_ms", cfg.BufferDuration.Milliseconds(),
	)

	switch backend {
	case BackendCommand:
		return NewCommandSource(cfg, logger)
	case BackendMock:
		return NewMockSource(cfg, logger), nil
	}
	return nil, fmt.Errorf("unsupported backend: %s", backend)
}

// Resolve maps "auto" and "" to a concrete backend for this machine.
func Resolve(b Backend) Backend {
	if b != BackendAuto && b != "" {
		return b
	}
	if runtime.GOOS == "linux" {
		if _, err := exec.LookPath(DefaultCaptureCommand); err == nil {
			return BackendCommand
		}
	}
	return BackendMock
}
