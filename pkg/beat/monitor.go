// Package beat smooths microphone amplitude and turns raw beat detections
// into debounced spawn events.
package beat

import (
	"time"

	"golang.org/x/time/rate"
)

// Defaults for amplitude smoothing and beat debouncing.
const (
	DefaultSmoothing = 0.1
	DefaultDebounce  = 200 * time.Millisecond
)

// Sample is one per-tick audio reading.
type Sample struct {
	// Level is the instantaneous amplitude, roughly 0..1.
	Level float64 `json:"level"`

	// Beat is the raw detector verdict for this tick.
	Beat bool `json:"beat"`
}

// State is the monitor's cross-frame state.
type State struct {
	SmoothedVolume float64       `json:"smoothed_volume"`
	LastBeat       time.Duration `json:"last_beat"`
	HasBeat        bool          `json:"has_beat"`
	Beats          int64         `json:"beats"`
	Suppressed     int64         `json:"suppressed"`
	Failures       int64         `json:"failures"`
}

// Monitor tracks smoothed volume and debounces beats.
// Not safe for concurrent use; it is owned by the render loop.
type Monitor struct {
	smoothing float64
	limiter   *rate.Limiter
	epoch     time.Time
	state     State
}

// NewMonitor creates a monitor. Beats closer together than debounce are
// suppressed, so at most one spawn happens per debounce window.
func NewMonitor(smoothing float64, debounce time.Duration) *Monitor {
	return &Monitor{
		smoothing: smoothing,
		limiter:   rate.NewLimiter(rate.Every(debounce), 1),
		// Fixed epoch: the limiter only sees session-relative times
		epoch: time.Unix(0, 0),
	}
}

// NewDefaultMonitor creates a monitor with the installation defaults.
func NewDefaultMonitor() *Monitor {
	return NewMonitor(DefaultSmoothing, DefaultDebounce)
}

// Update folds one tick of audio into the state and reports whether a star
// should spawn. A failed read (err != nil) counts as no beat and leaves the
// smoothed volume unchanged.
func (m *Monitor) Update(now time.Duration, s Sample, err error) bool {
	if err != nil {
		m.state.Failures++
		return false
	}

	m.state.SmoothedVolume = lerp(m.state.SmoothedVolume, s.Level, m.smoothing)

	if !s.Beat {
		return false
	}

	if !m.limiter.AllowN(m.epoch.Add(now), 1) {
		m.state.Suppressed++
		return false
	}

	m.state.LastBeat = now
	m.state.HasBeat = true
	m.state.Beats++
	return true
}

// Volume returns the smoothed volume.
func (m *Monitor) Volume() float64 {
	return m.state.SmoothedVolume
}

// State returns a copy of the monitor state.
func (m *Monitor) State() State {
	return m.state
}

// lerp performs linear interpolation between two values.
func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}
