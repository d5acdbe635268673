package camera

import (
	"fmt"
	"sync"
)

// Update is a partial change to the capture config. Nil fields are kept.
// A preset is applied first, then the explicit fields on top of it.
type Update struct {
	Preset    *string `json:"preset,omitempty"`
	Device    *string `json:"device,omitempty"`
	Width     *int    `json:"width,omitempty"`
	Height    *int    `json:"height,omitempty"`
	Framerate *int    `json:"framerate,omitempty"`
	Quality   *int    `json:"quality,omitempty"`
	Mirror    *bool   `json:"mirror,omitempty"`
}

// View is the capture config as served to the dashboard.
type View struct {
	Config
	Limits  Limits   `json:"limits"`
	Presets []string `json:"presets"`
}

// Manager is the shared capture config. Capture sources read it per frame
// and the dashboard changes it.
type Manager struct {
	mu  sync.RWMutex
	cfg Config

	// OnConfigChange runs after a change is stored. An error is reported
	// to the caller but the change stays.
	OnConfigChange func(cfg Config) error
}

// NewManager starts from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// GetConfig returns a copy of the current config.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Mirror reports whether frames should be flipped.
func (m *Manager) Mirror() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Mirror
}

// View returns the config with its limits and preset names.
func (m *Manager) View() View {
	return View{Config: m.GetConfig(), Limits: CaptureLimits, Presets: PresetNames()}
}

// SetConfig replaces the config when it validates.
func (m *Manager) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.cfg = cfg
	notify := m.OnConfigChange
	m.mu.Unlock()

	if notify != nil {
		if err := notify(cfg); err != nil {
			return fmt.Errorf("camera: apply config: %w", err)
		}
	}
	return nil
}

// Apply merges u into the current config and stores the result.
func (m *Manager) Apply(u Update) error {
	cfg := m.GetConfig()

	if u.Preset != nil {
		var ok bool
		if cfg, ok = ApplyPreset(cfg, *u.Preset); !ok {
			return fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, *u.Preset)
		}
	}
	set(&cfg.Device, u.Device)
	set(&cfg.Width, u.Width)
	set(&cfg.Height, u.Height)
	set(&cfg.Framerate, u.Framerate)
	set(&cfg.Quality, u.Quality)
	set(&cfg.Mirror, u.Mirror)

	return m.SetConfig(cfg)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
