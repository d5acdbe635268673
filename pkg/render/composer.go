// Package render composites the silhouette echo layers, the volume-reactive
// outline and the masked grayscale body into one frame.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Composition constants.
const (
	Layers          = 6
	LayerSpacing    = 0.8 // offset per layer as a fraction of the spread
	SpreadDeadZone  = 1.0 // spreads at or below this draw the nested mode
	BeatSize        = 200.0
	BeatSizeFactor  = 0.5
	BreathSpeed     = 0.05
	BreathAmplitude = 5.0
	NestedGrowth    = 10.0
	OutlineGain     = 1.5

	TintBright = 255
	TintDim    = 80

	PlaceholderSize  = 50.0
	PlaceholderSpeed = 0.05
	PlaceholderAlpha = 100
)

// Path says which branch a frame took.
type Path int

const (
	// PathPlaceholder is drawn until the first mask arrives.
	PathPlaceholder Path = iota
	// PathComposite is drawn once any mask has been seen.
	PathComposite
)

// String returns the path name.
func (p Path) String() string {
	switch p {
	case PathPlaceholder:
		return "NO_MASK_YET"
	case PathComposite:
		return "COMPOSITING"
	default:
		return fmt.Sprintf("Path(%d)", int(p))
	}
}

// Frame is everything one render needs.
type Frame struct {
	// Mask is the latest segmentation mask; nil keeps the last known one.
	Mask *image.Alpha

	// Camera is the latest camera frame; nil skips the foreground pass.
	Camera image.Image

	SpreadX    float64
	SpreadY    float64
	Volume     float64
	FrameCount uint64
}

// Composer draws frames. Not safe for concurrent use.
type Composer struct {
	logger *slog.Logger
	scaler xdraw.Scaler

	width, height int

	// Last known mask and its canvas-sized derivatives
	mask      *image.Alpha
	maskFrom  *image.Alpha
	canvas    *image.Alpha
	bright    *image.RGBA
	dim       *image.RGBA
	cameraBuf *image.RGBA
	grayBuf   *image.Gray

	raster   *vector.Rasterizer
	failures int64
}

// NewComposer creates a composer for a width x height canvas.
func NewComposer(width, height int, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Composer{
		logger: logger,
		scaler: xdraw.ApproxBiLinear,
	}
	c.Resize(width, height)
	return c
}

// Resize reallocates the canvas-sized buffers. The last known mask is kept
// and rescaled on the next frame.
func (c *Composer) Resize(width, height int) {
	c.width, c.height = width, height
	c.maskFrom = nil
	c.canvas = nil
	c.bright = nil
	c.dim = nil
	c.cameraBuf = image.NewRGBA(image.Rect(0, 0, width, height))
	c.grayBuf = image.NewGray(image.Rect(0, 0, width, height))
	c.raster = vector.NewRasterizer(width, height)
}

// Size returns the canvas size.
func (c *Composer) Size() (int, int) {
	return c.width, c.height
}

// HasMask reports whether a mask has ever been seen.
func (c *Composer) HasMask() bool {
	return c.mask != nil
}

// Failures returns how many passes panicked and were skipped.
func (c *Composer) Failures() int64 {
	return c.failures
}

// Render clears dst to black and draws one frame onto it.
func (c *Composer) Render(dst *image.RGBA, f Frame) Path {
	if w, h := dst.Bounds().Dx(), dst.Bounds().Dy(); w != c.width || h != c.height {
		c.Resize(w, h)
	}

	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	if f.Mask != nil {
		c.mask = f.Mask
	}
	if c.mask == nil {
		c.pass("placeholder", func() { c.drawPlaceholder(dst, f.FrameCount) })
		return PathPlaceholder
	}

	c.pass("mask", c.prepareMask)
	if c.canvas == nil {
		return PathComposite
	}

	c.pass("echo", func() { c.drawEchoes(dst, f) })
	c.pass("outline", func() { c.drawOutline(dst, f.Volume) })
	if f.Camera != nil {
		c.pass("foreground", func() { c.drawForeground(dst, f.Camera) })
	}

	return PathComposite
}

// pass runs one drawing pass, absorbing panics so the tick proceeds.
func (c *Composer) pass(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.failures++
			c.logger.Warn("render pass failed", "pass", name, "error", r)
		}
	}()
	fn()
}

// prepareMask scales the last known mask to the canvas and builds the
// tinted layer sources. Cached until the mask or canvas changes.
func (c *Composer) prepareMask() {
	if c.maskFrom == c.mask && c.canvas != nil {
		return
	}

	bounds := image.Rect(0, 0, c.width, c.height)
	canvas := image.NewAlpha(bounds)
	c.scaler.Scale(canvas, bounds, c.mask, c.mask.Bounds(), draw.Src, nil)

	c.canvas = canvas
	c.bright = tint(canvas, TintBright)
	c.dim = tint(canvas, TintDim)
	c.maskFrom = c.mask
}

// tint builds a premultiplied gray image whose alpha is the mask.
func tint(mask *image.Alpha, level uint8) *image.RGBA {
	b := mask.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := mask.AlphaAt(x, y).A
			v := uint8(uint16(level) * uint16(a) / 255)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = v
			out.Pix[i+1] = v
			out.Pix[i+2] = v
			out.Pix[i+3] = a
		}
	}
	return out
}

func (c *Composer) drawEchoes(dst *image.RGBA, f Frame) {
	cx, cy := float64(c.width)/2, float64(c.height)/2
	grow := f.Volume * BeatSize * BeatSizeFactor
	w, h := float64(c.width)+grow, float64(c.height)+grow

	for i := Layers; i > 0; i-- {
		src := c.dim
		if i%2 == 0 {
			src = c.bright
		}

		offX := f.SpreadX * float64(i) * LayerSpacing
		offY := f.SpreadY * float64(i) * LayerSpacing

		switch {
		case math.Abs(f.SpreadX) > SpreadDeadZone:
			c.blit(dst, src, cx-offX, cy, w, h)
			c.blit(dst, src, cx+offX, cy, w, h)
		case math.Abs(f.SpreadY) > SpreadDeadZone:
			c.blit(dst, src, cx, cy-offY, w, h)
			c.blit(dst, src, cx, cy+offY, w, h)
		default:
			breath := math.Sin(float64(f.FrameCount)*BreathSpeed+float64(i)) * BreathAmplitude
			extra := breath + float64(i)*NestedGrowth
			c.blit(dst, src, cx, cy, w+extra, h+extra)
		}
	}
}

func (c *Composer) drawOutline(dst *image.RGBA, volume float64) {
	scale := 1 + volume*OutlineGain
	c.blit(dst, c.bright, float64(c.width)/2, float64(c.height)/2,
		float64(c.width)*scale, float64(c.height)*scale)
}

func (c *Composer) drawForeground(dst *image.RGBA, cam image.Image) {
	bounds := image.Rect(0, 0, c.width, c.height)
	c.scaler.Scale(c.cameraBuf, bounds, cam, cam.Bounds(), draw.Src, nil)
	// Gray conversion uses color.GrayModel luminance weights
	draw.Draw(c.grayBuf, bounds, c.cameraBuf, image.Point{}, draw.Src)
	draw.DrawMask(dst, bounds, c.grayBuf, image.Point{}, c.canvas, image.Point{}, draw.Over)
}

// blit draws src scaled to w x h centered at (cx, cy).
func (c *Composer) blit(dst *image.RGBA, src *image.RGBA, cx, cy, w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	r := image.Rect(
		int(math.Round(cx-w/2)),
		int(math.Round(cy-h/2)),
		int(math.Round(cx+w/2)),
		int(math.Round(cy+h/2)),
	)
	c.scaler.Scale(dst, r, src, src.Bounds(), draw.Over, nil)
}

// drawPlaceholder draws a rotating square outline at the canvas center.
func (c *Composer) drawPlaceholder(dst *image.RGBA, frame uint64) {
	angle := float64(frame) * PlaceholderSpeed
	cx, cy := float64(c.width)/2, float64(c.height)/2
	outer := PlaceholderSize/2 + 0.5
	inner := PlaceholderSize/2 - 0.5

	c.raster.Reset(c.width, c.height)
	square(c.raster, cx, cy, outer, angle, false)
	square(c.raster, cx, cy, inner, angle, true)

	src := image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: PlaceholderAlpha})
	c.raster.Draw(dst, dst.Bounds(), src, image.Point{})
}

// square adds a rotated square; reverse winding cuts a hole.
func square(z *vector.Rasterizer, cx, cy, half, angle float64, reverse bool) {
	corners := [4][2]float64{{-half, -half}, {half, -half}, {half, half}, {-half, half}}
	if reverse {
		corners[1], corners[3] = corners[3], corners[1]
	}

	sin, cos := math.Sincos(angle)
	for i, p := range corners {
		x := cx + p[0]*cos - p[1]*sin
		y := cy + p[0]*sin + p[1]*cos
		if i == 0 {
			z.MoveTo(float32(x), float32(y))
		} else {
			z.LineTo(float32(x), float32(y))
		}
	}
	z.ClosePath()
}
