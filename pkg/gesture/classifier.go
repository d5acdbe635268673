package gesture

import (
	"math"

	"github.com/teslashibe/body-echo/pkg/debug"
	"github.com/teslashibe/body-echo/pkg/physics"
)

// Mode is the discrete pose mode recomputed every frame.
type Mode int

const (
	// Neutral is a plain stand: echoes nest around the body.
	Neutral Mode = iota
	// Horizontal is arms spread sideways: echoes split left and right.
	Horizontal
	// Vertical is arms up: echoes stack up and down.
	Vertical
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Horizontal:
		return "HORIZONTAL"
	case Vertical:
		return "VERTICAL"
	default:
		return "NEUTRAL"
	}
}

// Thresholds holds the classification heuristics. The values were tuned by
// trial and are not derived from anything; treat them as tunables.
type Thresholds struct {
	// NoseMargin is how far both wrists must be above the nose for VERTICAL.
	NoseMargin float64 `json:"nose_margin" validate:"gte=0"`

	// SpreadFactor is the wrist distance from the shoulder midpoint, in
	// shoulder widths, required for HORIZONTAL.
	SpreadFactor float64 `json:"spread_factor" validate:"gt=0"`

	// VerticalTolerance is how close each wrist must stay to its shoulder's
	// height for HORIZONTAL.
	VerticalTolerance float64 `json:"vertical_tolerance" validate:"gt=0"`

	// SpreadAmount is the spring target in pixels for a split mode.
	SpreadAmount float64 `json:"spread_amount" validate:"gt=0"`
}

// DefaultThresholds returns the installation defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NoseMargin:        0.1,
		SpreadFactor:      1.5,
		VerticalTolerance: 0.3,
		SpreadAmount:      150,
	}
}

// Classifier turns landmark sets into modes and spring targets.
type Classifier struct {
	th   Thresholds
	last Mode
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th}
}

// Thresholds returns the classifier configuration.
func (c *Classifier) Thresholds() Thresholds {
	return c.th
}

// Classify returns the mode for lm. The bool is false when any required
// landmark is missing, in which case the mode carries no information.
func (c *Classifier) Classify(lm Landmarks) (Mode, bool) {
	nose, ok1 := lm.At(Nose)
	lShoulder, ok2 := lm.At(LeftShoulder)
	rShoulder, ok3 := lm.At(RightShoulder)
	lWrist, ok4 := lm.At(LeftWrist)
	rWrist, ok5 := lm.At(RightWrist)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return Neutral, false
	}

	// Arms up
	if lWrist.Y < nose.Y-c.th.NoseMargin && rWrist.Y < nose.Y-c.th.NoseMargin {
		return Vertical, true
	}

	// Arms spread, measured in shoulder widths so distance from camera does not matter
	shoulderWidth := math.Abs(lShoulder.X - rShoulder.X)
	centerX := (lShoulder.X + rShoulder.X) / 2
	leftDist := math.Abs(lWrist.X - centerX)
	rightDist := math.Abs(rWrist.X - centerX)
	minDist := shoulderWidth * c.th.SpreadFactor

	if leftDist > minDist && rightDist > minDist &&
		math.Abs(lWrist.Y-lShoulder.Y) < c.th.VerticalTolerance &&
		math.Abs(rWrist.Y-rShoulder.Y) < c.th.VerticalTolerance {
		return Horizontal, true
	}

	return Neutral, true
}

// Targets returns the spring targets for mode.
func (c *Classifier) Targets(mode Mode) (x, y float64) {
	switch mode {
	case Horizontal:
		return c.th.SpreadAmount, 0
	case Vertical:
		return 0, c.th.SpreadAmount
	default:
		return 0, 0
	}
}

// Apply classifies lm and, on a confident result, sets the spring targets.
// Missing landmarks leave the targets from the last confident frame in place.
func (c *Classifier) Apply(lm Landmarks, springX, springY *physics.Spring) (Mode, bool) {
	mode, ok := c.Classify(lm)
	if !ok {
		return c.last, false
	}

	x, y := c.Targets(mode)
	springX.SetTarget(x)
	springY.SetTarget(y)

	if mode != c.last {
		debug.GestureLog("🙆 Gesture %s -> %s (targets %.0f, %.0f)\n", c.last, mode, x, y)
	}
	c.last = mode

	return mode, true
}

// Last returns the most recent confident mode.
func (c *Classifier) Last() Mode {
	return c.last
}
