package segment

import (
	"context"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/body-echo/pkg/gesture"
)

// Script produces the result for the seq-th frame.
type Script func(seq uint64, frame image.Image) Result

// Synthetic is a scripted provider for tests and camera-free demos.
// Callbacks already scheduled with a delay still fire after Close.
type Synthetic struct {
	script Script
	delay  time.Duration
	logger *slog.Logger

	callback atomic.Pointer[func(Result)]
	closed   atomic.Bool
	seq      atomic.Uint64
}

// SyntheticOption configures a Synthetic provider.
type SyntheticOption func(*Synthetic)

// WithScript replaces the default demo script.
func WithScript(s Script) SyntheticOption {
	return func(p *Synthetic) {
		p.script = s
	}
}

// WithDelay delivers each result after d instead of inside Send.
func WithDelay(d time.Duration) SyntheticOption {
	return func(p *Synthetic) {
		p.delay = d
	}
}

// NewSynthetic creates a scripted provider. Without a script it cycles
// through the three gestures over a fixed silhouette.
func NewSynthetic(logger *slog.Logger, opts ...SyntheticOption) *Synthetic {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Synthetic{
		script: DemoScript(160, 120, 90),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns "synthetic".
func (p *Synthetic) Name() string {
	return "synthetic"
}

// OnResults registers the result callback.
func (p *Synthetic) OnResults(fn func(Result)) {
	p.callback.Store(&fn)
}

// Send runs the script for the frame.
func (p *Synthetic) Send(ctx context.Context, frame image.Image) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	seq := p.seq.Add(1)
	res := p.script(seq, frame)
	res.Seq = seq
	res.At = time.Now()

	if p.delay <= 0 {
		p.deliver(res)
		return nil
	}
	time.AfterFunc(p.delay, func() { p.deliver(res) })
	return nil
}

func (p *Synthetic) deliver(res Result) {
	if fn := p.callback.Load(); fn != nil {
		(*fn)(res)
	}
}

// Sent returns how many frames were submitted.
func (p *Synthetic) Sent() uint64 {
	return p.seq.Load()
}

// Close stops accepting frames.
func (p *Synthetic) Close() error {
	if !p.closed.Swap(true) {
		p.logger.Info("synthetic provider closed", "frames", p.seq.Load())
	}
	return nil
}

// DemoScript returns a script that shows a standing silhouette and holds
// each gesture for framesPerGesture frames: neutral, arms spread, arms up.
func DemoScript(width, height int, framesPerGesture uint64) Script {
	mask := Silhouette(width, height)
	poses := []gesture.Landmarks{
		DemoPose(gesture.Neutral),
		DemoPose(gesture.Horizontal),
		DemoPose(gesture.Vertical),
	}
	if framesPerGesture == 0 {
		framesPerGesture = 1
	}

	return func(seq uint64, _ image.Image) Result {
		i := ((seq - 1) / framesPerGesture) % uint64(len(poses))
		return Result{Mask: mask, Landmarks: poses[i]}
	}
}

// DemoPose returns landmarks that classify as mode.
func DemoPose(mode gesture.Mode) gesture.Landmarks {
	lm := make(gesture.Landmarks, gesture.PoseLandmarkCount)
	for i := range lm {
		lm[i] = gesture.Landmark{X: 0.5, Y: 0.5, Visibility: 0.9}
	}

	set := func(i int, x, y float64) {
		lm[i] = gesture.Landmark{X: x, Y: y, Visibility: 0.99}
	}
	set(gesture.Nose, 0.5, 0.3)
	set(gesture.LeftShoulder, 0.58, 0.45)
	set(gesture.RightShoulder, 0.42, 0.45)

	switch mode {
	case gesture.Horizontal:
		set(gesture.LeftWrist, 0.9, 0.46)
		set(gesture.RightWrist, 0.1, 0.44)
	case gesture.Vertical:
		set(gesture.LeftWrist, 0.6, 0.1)
		set(gesture.RightWrist, 0.4, 0.1)
	default:
		set(gesture.LeftWrist, 0.55, 0.7)
		set(gesture.RightWrist, 0.45, 0.7)
	}
	return lm
}

// Silhouette draws a head and torso as an opaque mask.
func Silhouette(width, height int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	w, h := float64(width), float64(height)

	inEllipse := func(x, y, cx, cy, rx, ry float64) bool {
		dx, dy := (x-cx)/rx, (y-cy)/ry
		return dx*dx+dy*dy <= 1
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			if inEllipse(px, py, w*0.5, h*0.25, h*0.09, h*0.11) ||
				inEllipse(px, py, w*0.5, h*0.68, w*0.16, h*0.36) {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	return mask
}
