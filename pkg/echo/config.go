package echo

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teslashibe/body-echo/internal/config"
	"github.com/teslashibe/body-echo/pkg/audioio"
	"github.com/teslashibe/body-echo/pkg/beat"
	"github.com/teslashibe/body-echo/pkg/camera"
	"github.com/teslashibe/body-echo/pkg/gesture"
	"github.com/teslashibe/body-echo/pkg/physics"
	"github.com/teslashibe/body-echo/pkg/segment"
)

// Provider names.
const (
	ProviderRemote    = "remote"
	ProviderDNN       = "dnn"
	ProviderSynthetic = "synthetic"
)

// Camera source names.
const (
	CameraGoCV = "gocv"
	CameraMock = "mock"
)

// Default configuration values.
const (
	DefaultWidth     = 640
	DefaultHeight    = 480
	DefaultFrameRate = 30
	DefaultStreamFPS = 15
	DefaultWebAddr   = ":8181"
	DefaultSeed      = 1
)

// SessionConfig holds the render core settings.
type SessionConfig struct {
	Width  int   `json:"width" validate:"min=64,max=3840"`
	Height int   `json:"height" validate:"min=64,max=2160"`
	Seed   int64 `json:"seed"`

	Thresholds gesture.Thresholds `json:"thresholds"`

	SpringDrag     float64 `json:"spring_drag" validate:"gt=0,lt=1"`
	SpringStrength float64 `json:"spring_strength" validate:"gt=0,lt=1"`

	VolumeSmoothing float64       `json:"volume_smoothing" validate:"gt=0,lte=1"`
	BeatDebounce    time.Duration `json:"beat_debounce" validate:"gt=0"`
}

// DefaultSessionConfig returns the installation constants.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		Seed:            DefaultSeed,
		Thresholds:      gesture.DefaultThresholds(),
		SpringDrag:      physics.DefaultDrag,
		SpringStrength:  physics.DefaultStrength,
		VolumeSmoothing: beat.DefaultSmoothing,
		BeatDebounce:    beat.DefaultDebounce,
	}
}

// Config holds all configuration for the Body Echo application.
// Flag parsing is done in cmd/bodyecho/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool `json:"debug"`

	// DebugGesture logs gesture transitions.
	DebugGesture bool `json:"debug_gesture"`

	LogLevel string `json:"log_level" validate:"oneof=debug info warn error"`

	Session   SessionConfig `json:"session"`
	FrameRate int           `json:"frame_rate" validate:"min=1,max=120"`

	// Provider selects the segmentation backend.
	Provider string               `json:"provider" validate:"oneof=remote dnn synthetic"`
	Remote   segment.RemoteConfig `json:"remote" validate:"-"`
	DNN      segment.DNNConfig    `json:"dnn" validate:"-"`
	Camera   string               `json:"camera" validate:"oneof=gocv mock"`
	Capture  camera.Config        `json:"capture" validate:"-"`

	// Audio enables microphone analysis. Without it volume stays 0 and no stars spawn.
	Audio      bool           `json:"audio"`
	AudioInput audioio.Config `json:"audio_input" validate:"-"`

	// WebAddr is the dashboard listen address; empty disables the dashboard.
	WebAddr   string `json:"web_addr"`
	StreamFPS int    `json:"stream_fps" validate:"min=0,max=60"`

	// Window opens a local preview window.
	Window     bool `json:"window"`
	Fullscreen bool `json:"fullscreen"`
}

// DefaultConfig returns sensible defaults for Body Echo.
func DefaultConfig() Config {
	capture := camera.DefaultConfig()
	capture.Width, capture.Height, capture.Framerate = DefaultWidth, DefaultHeight, DefaultFrameRate

	return Config{
		LogLevel:   "info",
		Session:    DefaultSessionConfig(),
		FrameRate:  DefaultFrameRate,
		Provider:   ProviderRemote,
		Remote:     segment.DefaultRemoteConfig(),
		DNN:        segment.DefaultDNNConfig(),
		Camera:     CameraGoCV,
		Capture:    capture,
		AudioInput: audioio.DefaultConfig(),
		WebAddr:    DefaultWebAddr,
		StreamFPS:  DefaultStreamFPS,
	}
}

// LoadEnvConfig applies BODY_ECHO_* environment overrides.
// Call this after flag parsing; load .env first with config.LoadDotEnv.
func (c *Config) LoadEnvConfig() {
	c.LogLevel = config.String("LOG_LEVEL", c.LogLevel)
	c.Provider = config.String("PROVIDER", c.Provider)
	c.Remote.URL = config.String("SIDECAR_URL", c.Remote.URL)
	c.DNN.ModelPath = config.String("MODEL_PATH", c.DNN.ModelPath)
	c.Camera = config.String("CAMERA", c.Camera)
	c.Capture.Device = config.String("CAMERA_DEVICE", c.Capture.Device)
	c.Capture.Mirror = config.Bool("MIRROR", c.Capture.Mirror)
	c.Audio = config.Bool("AUDIO", c.Audio)
	c.AudioInput.Device = config.String("AUDIO_DEVICE", c.AudioInput.Device)
	c.AudioInput.Backend = audioio.Backend(config.String("AUDIO_BACKEND", string(c.AudioInput.Backend)))
	c.WebAddr = config.String("WEB_ADDR", c.WebAddr)
	c.StreamFPS = config.Int("STREAM_FPS", c.StreamFPS)
	if fps := config.Int("FPS", 0); fps != 0 {
		c.FrameRate, c.Capture.Framerate = fps, fps
	}
	c.Session.Width = config.Int("WIDTH", c.Session.Width)
	c.Session.Height = config.Int("HEIGHT", c.Session.Height)
	c.Session.Seed = int64(config.Int("SEED", int(c.Session.Seed)))
	c.Session.BeatDebounce = config.Duration("BEAT_DEBOUNCE", c.Session.BeatDebounce)
	c.Session.Thresholds.NoseMargin = config.Float("NOSE_MARGIN", c.Session.Thresholds.NoseMargin)
	c.Session.Thresholds.SpreadFactor = config.Float("SPREAD_FACTOR", c.Session.Thresholds.SpreadFactor)
	c.Session.Thresholds.VerticalTolerance = config.Float("VERTICAL_TOLERANCE", c.Session.Thresholds.VerticalTolerance)
}

var validate = validator.New()

// Validate checks the configuration, including the settings of the
// selected provider and sources.
func (c *Config) Validate() error {
	if err := structError(validate.Struct(c)); err != nil {
		return err
	}

	switch c.Provider {
	case ProviderRemote:
		if err := structError(validate.Struct(c.Remote)); err != nil {
			return err
		}
	case ProviderDNN:
		if err := structError(validate.Struct(c.DNN)); err != nil {
			return err
		}
	}

	if c.Camera == CameraGoCV {
		if err := c.Capture.Validate(); err != nil {
			return &ConfigError{Field: "Capture", Message: err.Error()}
		}
	}

	if c.Audio {
		if err := c.AudioInput.Validate(); err != nil {
			return &ConfigError{Field: "AudioInput", Message: err.Error()}
		}
	}
	return nil
}

// structError converts the first validator failure into a ConfigError.
func structError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed %q (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &ConfigError{Field: "config", Message: err.Error()}
}
