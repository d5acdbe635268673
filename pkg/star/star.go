// Package star implements the beat-triggered nested star effect.
package star

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"time"

	"golang.org/x/image/vector"
)

// Effect constants.
const (
	DefaultLifespan = 5 * time.Second
	FadeWindow      = time.Second
	RotationStep    = 0.03 // radians per draw
	MinBaseSize     = 60.0
	MaxBaseSize     = 120.0
	Points          = 5
)

// Nested layers, largest first: outer radius ratio and fill.
var layers = []struct {
	ratio float64
	fill  color.Gray
}{
	{1.0, color.Gray{Y: 255}},
	{0.7, color.Gray{Y: 0}},
	{0.45, color.Gray{Y: 255}},
	{0.25, color.Gray{Y: 0}},
}

// Star is one spawned star. Times are session-relative.
type Star struct {
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Rotation float64       `json:"rotation"`
	Birth    time.Duration `json:"birth"`
	Lifespan time.Duration `json:"lifespan"`
	BaseSize float64       `json:"base_size"`
}

// New creates a star at a random canvas position with random rotation and size.
func New(rng *rand.Rand, width, height int, now time.Duration) *Star {
	return &Star{
		X:        rng.Float64() * float64(width),
		Y:        rng.Float64() * float64(height),
		Rotation: rng.Float64() * 2 * math.Pi,
		Birth:    now,
		Lifespan: DefaultLifespan,
		BaseSize: MinBaseSize + rng.Float64()*(MaxBaseSize-MinBaseSize),
	}
}

// Age returns the time since birth.
func (s *Star) Age(now time.Duration) time.Duration {
	return now - s.Birth
}

// IsDead reports whether the star has reached the end of its life.
func (s *Star) IsDead(now time.Duration) bool {
	return s.Age(now) >= s.Lifespan
}

// Scale returns the size multiplier: full size, then a linear shrink to
// zero over the last FadeWindow of life.
func (s *Star) Scale(now time.Duration) float64 {
	age := s.Age(now)
	fadeStart := s.Lifespan - FadeWindow
	if age <= fadeStart {
		return 1
	}
	v := 1 - float64(age-fadeStart)/float64(FadeWindow)
	return math.Max(0, math.Min(1, v))
}

// Draw advances the rotation and paints the nested stars onto dst.
func (s *Star) Draw(dst draw.Image, now time.Duration) {
	s.Rotation += RotationStep

	radius := s.BaseSize * s.Scale(now)
	if radius < 0.5 {
		return
	}

	// Rasterize each layer into a local mask covering the star's bounds
	bounds := image.Rect(
		int(math.Floor(s.X-radius))-1,
		int(math.Floor(s.Y-radius))-1,
		int(math.Ceil(s.X+radius))+1,
		int(math.Ceil(s.Y+radius))+1,
	)
	if !bounds.Overlaps(dst.Bounds()) {
		return
	}

	w, h := bounds.Dx(), bounds.Dy()
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src

	cx := s.X - float64(bounds.Min.X)
	cy := s.Y - float64(bounds.Min.Y)

	for _, l := range layers {
		outer := radius * l.ratio
		z.Reset(w, h)
		starPath(z, cx, cy, outer, outer*0.5, s.Rotation)
		z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
		draw.DrawMask(dst, bounds, image.NewUniform(l.fill), image.Point{}, mask, image.Point{}, draw.Over)
	}
}

// starPath adds a closed star polygon with its first tip pointing up
// before rotation.
func starPath(z *vector.Rasterizer, cx, cy, outer, inner, rotation float64) {
	step := 2 * math.Pi / Points
	half := step / 2

	for i := 0; i < Points; i++ {
		a := -math.Pi/2 + float64(i)*step + rotation
		ox, oy := cx+math.Cos(a)*outer, cy+math.Sin(a)*outer
		ix, iy := cx+math.Cos(a+half)*inner, cy+math.Sin(a+half)*inner
		if i == 0 {
			z.MoveTo(float32(ox), float32(oy))
		} else {
			z.LineTo(float32(ox), float32(oy))
		}
		z.LineTo(float32(ix), float32(iy))
	}
	z.ClosePath()
}
