package camera

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Mock is a camera source that paints a test pattern. Used for tests and
// runs without a webcam.
type Mock struct {
	mgr    *Manager
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	frames  chan image.Image
	stopCh  chan struct{}

	seq     atomic.Int64
	dropped atomic.Int64
}

// NewMock creates a mock source following mgr's size, rate and mirror settings.
func NewMock(mgr *Manager, logger *slog.Logger) *Mock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mock{
		mgr:    mgr,
		logger: logger,
		frames: make(chan image.Image, 1),
	}
}

// Name returns "mock".
func (m *Mock) Name() string {
	return "mock"
}

// Start begins producing frames at the configured rate.
func (m *Mock) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	cfg := m.mgr.GetConfig()
	m.running = true
	m.frames = make(chan image.Image, 1)
	m.stopCh = make(chan struct{})

	go m.generateLoop(ctx, cfg, m.frames, m.stopCh)

	m.logger.Info("mock camera started", "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
	return nil
}

func (m *Mock) generateLoop(ctx context.Context, cfg Config, out chan image.Image, stopCh chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(max(cfg.Framerate, 1)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-stopCh:
			return
		case <-ticker.C:
			img := Pattern(cfg.Width, cfg.Height, int(m.seq.Add(1)))
			if m.mgr.Mirror() {
				MirrorRGBA(img)
			}

			m.mu.Lock()
			if m.running && offer(out, img) {
				m.dropped.Add(1)
			}
			m.mu.Unlock()
		}
	}
}

// Frames returns the latest-frame channel.
func (m *Mock) Frames() <-chan image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Stop halts frame generation and closes the channel.
func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopCh)
	close(m.frames)

	m.logger.Info("mock camera stopped", "frames", m.seq.Load())
	return nil
}

// Stats returns generation statistics.
func (m *Mock) Stats() Stats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return Stats{Frames: m.seq.Load(), Dropped: m.dropped.Load(), Running: running}
}

// Pattern paints frame n of the test pattern: a horizontal gradient with a
// bright bar sweeping left to right.
func Pattern(width, height, n int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	barW := max(width/10, 1)
	barX := (n * 4) % max(width, 1)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(x * 200 / max(width, 1))
			c := color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255}
			if x >= barX && x < barX+barW {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var _ Source = (*Mock)(nil)
var _ Source = (*Capture)(nil)
