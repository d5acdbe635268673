package segment

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// DNNConfig holds the ONNX selfie segmentation model configuration.
type DNNConfig struct {
	ModelPath   string `json:"model_path" validate:"required"`
	InputWidth  int    `json:"input_width" validate:"gt=0"`
	InputHeight int    `json:"input_height" validate:"gt=0"`
}

// DefaultDNNConfig returns defaults for a 256x256 selfie segmentation model.
func DefaultDNNConfig() DNNConfig {
	return DNNConfig{
		ModelPath:   "models/selfie_segmentation.onnx",
		InputWidth:  256,
		InputHeight: 256,
	}
}

// DNN runs a person segmentation model in-process with OpenCV.
// It produces masks only; landmarks are always nil.
type DNN struct {
	cfg    DNNConfig
	logger *slog.Logger

	mu  sync.Mutex
	net gocv.Net

	callback atomic.Pointer[func(Result)]
	closed   atomic.Bool
	seq      atomic.Uint64
}

// NewDNN loads the model.
func NewDNN(cfg DNNConfig, logger *slog.Logger) (*DNN, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load segmentation model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logger.Info("segmentation model loaded",
		"model", cfg.ModelPath,
		"input", fmt.Sprintf("%dx%d", cfg.InputWidth, cfg.InputHeight),
	)

	return &DNN{cfg: cfg, logger: logger, net: net}, nil
}

// Name returns "dnn".
func (d *DNN) Name() string {
	return "dnn"
}

// OnResults registers the result callback.
func (d *DNN) OnResults(fn func(Result)) {
	d.callback.Store(&fn)
}

// Send runs inference on the frame and delivers the mask before returning.
func (d *DNN) Send(ctx context.Context, frame image.Image) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if frame.Bounds().Empty() {
		return ErrEmptyFrame
	}

	mask, err := d.infer(frame)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if d.closed.Load() {
		return ErrClosed
	}

	res := Result{Mask: mask, Seq: d.seq.Add(1), At: time.Now()}
	if fn := d.callback.Load(); fn != nil {
		(*fn)(res)
	}
	return nil
}

func (d *DNN) infer(frame image.Image) (*image.Alpha, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Load() {
		return nil, ErrClosed
	}

	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	size := image.Pt(d.cfg.InputWidth, d.cfg.InputHeight)
	blob := gocv.BlobFromImage(img, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}

	n := d.cfg.InputWidth * d.cfg.InputHeight
	if len(data) < n {
		return nil, fmt.Errorf("model output has %d values, want %d", len(data), n)
	}

	return probabilityMask(data[:n], d.cfg.InputWidth, d.cfg.InputHeight), nil
}

// probabilityMask maps per-pixel person probabilities onto an opacity mask.
func probabilityMask(p []float32, w, h int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	for i, v := range p {
		switch {
		case v <= 0:
			mask.Pix[i] = 0
		case v >= 1:
			mask.Pix[i] = 255
		default:
			mask.Pix[i] = uint8(v*255 + 0.5)
		}
	}
	return mask
}

// Sent returns how many frames were segmented.
func (d *DNN) Sent() uint64 {
	return d.seq.Load()
}

// Close releases the network. Safe to call while a Send is in progress.
func (d *DNN) Close() error {
	if d.closed.Swap(true) {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.net.Close()
	d.logger.Info("segmentation model closed", "frames", d.seq.Load())
	return err
}
