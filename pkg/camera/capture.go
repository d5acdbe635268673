package camera

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// Capture reads frames from a webcam or video file with OpenCV.
type Capture struct {
	mgr    *Manager
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	vc      *gocv.VideoCapture
	frames  chan image.Image
	stopCh  chan struct{}
	done    chan struct{}

	count    atomic.Int64
	dropped  atomic.Int64
	failures atomic.Int64
}

// NewCapture creates a capture that follows mgr's configuration.
func NewCapture(mgr *Manager, logger *slog.Logger) *Capture {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capture{
		mgr:    mgr,
		logger: logger,
		frames: make(chan image.Image, 1),
	}
}

// Name returns "gocv".
func (c *Capture) Name() string {
	return "gocv"
}

// Start opens the device and begins reading.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	cfg := c.mgr.GetConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOpenFailed, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: %s", ErrOpenFailed, cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	c.vc = vc
	c.running = true
	c.frames = make(chan image.Image, 1)
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})

	go c.readLoop(ctx, cfg)

	c.logger.Info("camera started",
		"device", cfg.Device,
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)),
		"fps", cfg.Framerate,
	)

	return nil
}

func (c *Capture) readLoop(ctx context.Context, cfg Config) {
	defer close(c.done)
	defer close(c.frames)

	mat := gocv.NewMat()
	defer mat.Close()

	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		if ok := c.vc.Read(&mat); !ok || mat.Empty() {
			c.failures.Add(1)
			consecutive++
			if consecutive == cfg.Framerate {
				c.logger.Warn("camera returning no frames", "device", cfg.Device)
			}
			time.Sleep(time.Second / time.Duration(cfg.Framerate))
			continue
		}
		consecutive = 0

		if c.mgr.Mirror() {
			gocv.Flip(mat, &mat, 1)
		}

		img, err := mat.ToImage()
		if err != nil {
			c.failures.Add(1)
			c.logger.Debug("camera frame conversion failed", "error", err)
			continue
		}

		c.count.Add(1)
		if offer(c.frames, img) {
			c.dropped.Add(1)
		}
	}
}

// Frames returns the latest-frame channel.
func (c *Capture) Frames() <-chan image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Stop halts reading and releases the device. Blocks until the read loop exits.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stopCh)
	done, vc := c.done, c.vc
	c.mu.Unlock()

	<-done
	err := vc.Close()

	c.logger.Info("camera stopped",
		"frames", c.count.Load(),
		"dropped", c.dropped.Load(),
		"failures", c.failures.Load(),
	)
	return err
}

// Stats returns capture statistics.
func (c *Capture) Stats() Stats {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	return Stats{
		Frames:   c.count.Load(),
		Dropped:  c.dropped.Load(),
		Failures: c.failures.Load(),
		Running:  running,
	}
}
