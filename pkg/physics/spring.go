// Package physics provides the discrete spring used to smooth gesture targets
// into continuous visual offsets.
package physics

// Default spring tuning for the spread axes.
const (
	DefaultDrag     = 0.85
	DefaultStrength = 0.05
)

// Spring is an approximately critically-damped 1-D oscillator.
// Strength sets responsiveness, Drag sets energy loss per step.
type Spring struct {
	Value    float64 `json:"value"`
	Target   float64 `json:"target"`
	Velocity float64 `json:"velocity"`
	Drag     float64 `json:"drag"`     // (0,1)
	Strength float64 `json:"strength"` // (0,1)
}

// New creates a spring at rest at zero.
func New(drag, strength float64) *Spring {
	return &Spring{Drag: drag, Strength: strength}
}

// NewDefault creates a spring with the default spread tuning.
func NewDefault() *Spring {
	return New(DefaultDrag, DefaultStrength)
}

// SetTarget sets the value the spring moves toward.
func (s *Spring) SetTarget(target float64) {
	s.Target = target
}

// Update advances the spring by one tick.
// Must be called exactly once per render tick.
func (s *Spring) Update() {
	force := s.Target - s.Value
	s.Velocity += force * s.Strength
	s.Velocity *= s.Drag
	s.Value += s.Velocity
}

// Settled reports whether the spring is within eps of its target and nearly still.
func (s *Spring) Settled(eps float64) bool {
	return abs(s.Target-s.Value) < eps && abs(s.Velocity) < eps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
