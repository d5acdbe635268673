// Package echo runs the Body Echo render loop: gesture physics, beat
// stars and the layered silhouette composite, plus the app shell that
// wires camera, segmentation, audio and presenters around it.
package echo

import (
	"image"
	"log/slog"
	"time"

	"github.com/teslashibe/body-echo/pkg/beat"
	"github.com/teslashibe/body-echo/pkg/debug"
	"github.com/teslashibe/body-echo/pkg/gesture"
	"github.com/teslashibe/body-echo/pkg/physics"
	"github.com/teslashibe/body-echo/pkg/render"
	"github.com/teslashibe/body-echo/pkg/segment"
	"github.com/teslashibe/body-echo/pkg/star"
)

// Inputs is everything one tick consumes. All fields may be zero.
type Inputs struct {
	// Result is the latest segmentation result, nil before the first one.
	Result *segment.Result

	// Camera is the latest camera frame.
	Camera image.Image

	// Audio is this tick's audio reading; AudioErr marks a failed read.
	Audio    beat.Sample
	AudioErr error
}

// Stats is a snapshot of session state after a tick.
type Stats struct {
	Mode          string  `json:"mode"`
	SpreadX       float64 `json:"spread_x"`
	SpreadY       float64 `json:"spread_y"`
	TargetX       float64 `json:"target_x"`
	TargetY       float64 `json:"target_y"`
	Volume        float64 `json:"volume"`
	Stars         int     `json:"stars"`
	Beats         int64   `json:"beats"`
	AudioFailures int64   `json:"audio_failures"`
	DrawFailures  int64   `json:"draw_failures"`
	Path          string  `json:"path"`
	FrameCount    uint64  `json:"frame_count"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`

	// Filled by the app from the beat analyzer
	Energy      float64 `json:"energy"`
	AudioChunks int64   `json:"audio_chunks"`
}

// Session owns all cross-frame render state. Not safe for concurrent use;
// the render loop is its only caller.
type Session struct {
	cfg    SessionConfig
	logger *slog.Logger

	springX    *physics.Spring
	springY    *physics.Spring
	classifier *gesture.Classifier
	monitor    *beat.Monitor
	composer   *render.Composer
	stars      *star.Field

	canvas *image.RGBA
	frame  uint64
	path   render.Path
}

// NewSession creates a session with the given settings.
func NewSession(cfg SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:        cfg,
		logger:     logger,
		springX:    physics.New(cfg.SpringDrag, cfg.SpringStrength),
		springY:    physics.New(cfg.SpringDrag, cfg.SpringStrength),
		classifier: gesture.NewClassifier(cfg.Thresholds),
		monitor:    beat.NewMonitor(cfg.VolumeSmoothing, cfg.BeatDebounce),
		composer:   render.NewComposer(cfg.Width, cfg.Height, logger),
		stars:      star.NewField(cfg.Seed),
		canvas:     image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
	}
}

// Step renders one tick at session time now.
//
// Order is fixed: springs, gesture, audio, composite, stars. The returned
// canvas is reused by the next Step; copy it to keep it.
func (s *Session) Step(now time.Duration, in Inputs) *image.RGBA {
	s.springX.Update()
	s.springY.Update()

	var lm gesture.Landmarks
	var mask *image.Alpha
	if in.Result != nil {
		lm = in.Result.Landmarks
		mask = in.Result.Mask
	}
	s.classifier.Apply(lm, s.springX, s.springY)

	if s.monitor.Update(now, in.Audio, in.AudioErr) {
		st := s.stars.Spawn(s.cfg.Width, s.cfg.Height, now)
		debug.Log("⭐ Beat at %v, star at (%.0f, %.0f)\n", now, st.X, st.Y)
	}

	s.frame++
	s.path = s.composer.Render(s.canvas, render.Frame{
		Mask:       mask,
		Camera:     in.Camera,
		SpreadX:    s.springX.Value,
		SpreadY:    s.springY.Value,
		Volume:     s.monitor.Volume(),
		FrameCount: s.frame,
	})

	s.stars.Prune(now)
	s.stars.Draw(s.canvas, now)

	return s.canvas
}

// Resize reallocates the canvas. Live stars keep their positions.
func (s *Session) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.cfg.Width, s.cfg.Height = width, height
	s.composer.Resize(width, height)
	s.canvas = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Canvas returns the last rendered canvas.
func (s *Session) Canvas() *image.RGBA {
	return s.canvas
}

// Springs returns copies of the spread springs.
func (s *Session) Springs() (x, y physics.Spring) {
	return *s.springX, *s.springY
}

// Stats returns a snapshot of the session state.
func (s *Session) Stats() Stats {
	b := s.monitor.State()
	return Stats{
		Mode:          s.classifier.Last().String(),
		SpreadX:       s.springX.Value,
		SpreadY:       s.springY.Value,
		TargetX:       s.springX.Target,
		TargetY:       s.springY.Target,
		Volume:        b.SmoothedVolume,
		Stars:         s.stars.Len(),
		Beats:         b.Beats,
		AudioFailures: b.Failures,
		DrawFailures:  s.composer.Failures(),
		Path:          s.path.String(),
		FrameCount:    s.frame,
		Width:         s.cfg.Width,
		Height:        s.cfg.Height,
	}
}
