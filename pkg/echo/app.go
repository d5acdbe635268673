package echo

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/body-echo/pkg/audioio"
	"github.com/teslashibe/body-echo/pkg/beat"
	"github.com/teslashibe/body-echo/pkg/camera"
	"github.com/teslashibe/body-echo/pkg/debug"
	"github.com/teslashibe/body-echo/pkg/display"
	"github.com/teslashibe/body-echo/pkg/segment"
	"github.com/teslashibe/body-echo/pkg/web"
)

// sendTimeout frees the in-flight slot when a provider never answers a frame.
const sendTimeout = time.Second

// Counters are the app's frame pipeline counters.
type Counters struct {
	Sent         int64 `json:"sent"`
	Dropped      int64 `json:"dropped"`
	SendErrors   int64 `json:"send_errors"`
	FrameErrors  int64 `json:"frame_errors"`
	Results      int64 `json:"results"`
	LateResults  int64 `json:"late_results"`
	StaleResults int64 `json:"stale_results"`
}

// Option configures an App. Mostly used to inject sources in tests.
type Option func(*App)

// WithCamera uses src instead of building one from the config.
func WithCamera(src camera.Source) Option {
	return func(a *App) { a.camera = src }
}

// WithProvider uses p instead of building one from the config.
func WithProvider(p segment.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithAudioSource uses src for beat analysis; audio is enabled.
func WithAudioSource(src audioio.Source) Option {
	return func(a *App) {
		a.audioSource = src
		a.config.Audio = true
	}
}

// WithPresenter adds a presenter.
func WithPresenter(p Presenter) Option {
	return func(a *App) { a.presenters = append(a.presenters, p) }
}

type cameraFrame struct {
	img image.Image
}

// pendingSend is the frame currently with the provider. seq is the Result
// Seq that frees it; 0 when the provider does not number frames.
type pendingSend struct {
	seq   uint64
	start time.Time
}

func (p *pendingSend) answeredBy(seq uint64) bool {
	return p.seq == 0 || seq >= p.seq
}

// App is the main Body Echo orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config    Config
	logger    *slog.Logger
	sessionID string

	// Sources
	cameraManager *camera.Manager
	camera        camera.Source
	provider      segment.Provider
	audioSource   audioio.Source
	analyzer      *beat.Analyzer

	// Render state
	session    *Session
	slot       segment.Slot
	lastCamera atomic.Pointer[cameraFrame]
	snapshot   atomic.Pointer[[]byte]
	presenters []Presenter
	renderMu   sync.Mutex

	// Liveness guard for provider callbacks
	alive       atomic.Bool
	initialized bool
	cancel      context.CancelFunc
	cancelMu    sync.Mutex
	wg          sync.WaitGroup
	once        sync.Once

	// In-flight send, nil when idle
	pending atomic.Pointer[pendingSend]

	gotResult    atomic.Bool
	sent         atomic.Int64
	dropped      atomic.Int64
	sendErrors   atomic.Int64
	frameErrors  atomic.Int64
	results      atomic.Int64
	lateResults  atomic.Int64
	staleResults atomic.Int64
}

// New creates a new Body Echo application with the given configuration.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	debug.Enabled = cfg.Debug
	debug.Gesture = cfg.DebugGesture

	a := &App{
		config:    cfg,
		logger:    logger,
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(a)
	}

	// Validate configuration
	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	a.logger = logger.With("session_id", a.sessionID)
	a.cameraManager = camera.NewManager(a.config.Capture)
	a.cameraManager.OnConfigChange = func(c camera.Config) error {
		a.logger.Info("camera config updated", "mirror", c.Mirror, "quality", c.Quality,
			"width", c.Width, "height", c.Height, "note", "device applies on next start")
		return nil
	}
	a.session = NewSession(a.config.Session, a.logger)
	return a, nil
}

// Init initializes all components. Call this after New() and before Run().
// A camera or provider failure is fatal: the status turns to error and the
// returned error is an *InitError. Audio failures only disable audio.
func (a *App) Init(ctx context.Context) error {
	a.logger.Info("body echo starting",
		"provider", a.config.Provider,
		"camera", a.config.Camera,
		"audio", a.config.Audio,
	)

	a.initPresenters()
	a.setStatus(web.StatusLoading, "")

	if err := a.initCamera(ctx); err != nil {
		return a.fail(&InitError{Component: "camera", Err: err})
	}

	if err := a.initProvider(ctx); err != nil {
		a.camera.Stop()
		return a.fail(&InitError{Component: "provider", Err: err})
	}

	if a.config.Audio {
		if err := a.initAudio(ctx); err != nil {
			a.logger.Warn("audio disabled", "error", err)
			a.analyzer = nil
		}
	}

	a.alive.Store(true)
	a.initialized = true
	return nil
}

func (a *App) initPresenters() {
	if a.config.WebAddr != "" {
		srv := web.NewServer(a.config.WebAddr, a.cameraManager, a.logger)
		a.presenters = append(a.presenters, newWebPresenter(srv, a, a.cameraManager, a.config.StreamFPS))
		srv.StartAsync()
	}
	if a.config.Window {
		win := display.NewWindow("Body Echo", a.config.Fullscreen, a.logger)
		win.OnQuit = a.stop
		a.presenters = append(a.presenters, &windowPresenter{win: win, app: a})
	}
}

func (a *App) initCamera(ctx context.Context) error {
	if a.camera == nil {
		switch a.config.Camera {
		case CameraMock:
			a.camera = camera.NewMock(a.cameraManager, a.logger)
		default:
			a.camera = camera.NewCapture(a.cameraManager, a.logger)
		}
	}
	if err := a.camera.Start(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	a.logger.Info("camera started", "source", a.camera.Name())
	return nil
}

func (a *App) initProvider(ctx context.Context) error {
	if a.provider == nil {
		p, err := a.newProvider(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		a.provider = p
	}
	a.provider.OnResults(a.onResult)
	if r, ok := a.provider.(segment.ErrorReporter); ok {
		r.OnError(a.onFrameError)
	}
	a.logger.Info("segmentation provider ready", "provider", a.provider.Name())
	return nil
}

func (a *App) newProvider(ctx context.Context) (segment.Provider, error) {
	switch a.config.Provider {
	case ProviderRemote:
		cfg := a.config.Remote
		cfg.SessionID = a.sessionID
		return segment.DialRemote(ctx, cfg, a.logger)
	case ProviderDNN:
		return segment.NewDNN(a.config.DNN, a.logger)
	default:
		return segment.NewSynthetic(a.logger), nil
	}
}

func (a *App) initAudio(ctx context.Context) error {
	if a.audioSource == nil {
		src, err := audioio.NewSource(a.config.AudioInput, a.logger)
		if err != nil {
			return err
		}
		a.audioSource = src
	}
	a.analyzer = beat.NewAnalyzer(a.audioSource, beat.DefaultPeakConfig(), a.logger)
	if err := a.analyzer.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("audio analysis started", "source", a.audioSource.Name())
	return nil
}

func (a *App) fail(err *InitError) error {
	a.logger.Error("initialization failed", "component", err.Component, "error", err.Err)
	a.setStatus(web.StatusError, err.Error())
	return err
}

func (a *App) setStatus(status, msg string) {
	for _, p := range a.presenters {
		p.SetStatus(status, msg)
	}
}

// Run starts the camera pump and the render loop.
// Blocks until ctx is cancelled or the window asks to quit.
func (a *App) Run(ctx context.Context) error {
	if !a.initialized {
		return ErrNotInitialized
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancelMu.Lock()
	a.cancel = cancel
	a.cancelMu.Unlock()
	defer cancel()

	a.wg.Add(1)
	go a.cameraLoop(ctx)

	a.logger.Info("body echo running", "fps", a.config.FrameRate)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FrameRate))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.tick(time.Since(start))
		}
	}
}

// cameraLoop stores each camera frame and submits it for segmentation.
func (a *App) cameraLoop(ctx context.Context) {
	defer a.wg.Done()

	frames := a.camera.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case img, ok := <-frames:
			if !ok {
				return
			}
			a.lastCamera.Store(&cameraFrame{img: img})
			a.submit(ctx, img)
		}
	}
}

// submit sends img unless a send is still pending. Dropped frames are counted.
// A send older than sendTimeout is abandoned and replaced.
func (a *App) submit(ctx context.Context, img image.Image) {
	now := time.Now()
	prev := a.pending.Load()
	if prev != nil && now.Sub(prev.start) < sendTimeout {
		a.dropped.Add(1)
		return
	}

	next := &pendingSend{start: now}
	if sq, ok := a.provider.(segment.Sequencer); ok {
		next.seq = sq.Sent() + 1
	}
	if !a.pending.CompareAndSwap(prev, next) {
		a.dropped.Add(1)
		return
	}

	a.sent.Add(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.provider.Send(ctx, img); err != nil {
			a.pending.CompareAndSwap(next, nil)
			if a.alive.Load() {
				a.sendErrors.Add(1)
				a.logger.Debug("segmentation send failed", "error", err)
			}
		}
	}()
}

// release frees the in-flight send if seq answers it. Answers to an
// abandoned send leave the replacement in flight.
func (a *App) release(seq uint64) bool {
	p := a.pending.Load()
	if p == nil {
		return true
	}
	if !p.answeredBy(seq) {
		return false
	}
	return a.pending.CompareAndSwap(p, nil)
}

// onResult is the provider callback. After teardown it is a no-op.
func (a *App) onResult(res segment.Result) {
	if !a.alive.Load() {
		a.lateResults.Add(1)
		return
	}
	if !a.release(res.Seq) {
		a.staleResults.Add(1)
	}
	a.results.Add(1)
	a.slot.Store(&res)

	if a.gotResult.CompareAndSwap(false, true) {
		a.logger.Info("first segmentation result", "seq", res.Seq, "mask", res.HasMask())
		a.setStatus(web.StatusRunning, "")
	}
}

// onFrameError frees the in-flight send for a frame the provider failed.
// The last result stays in the slot.
func (a *App) onFrameError(seq uint64, err error) {
	if !a.alive.Load() {
		return
	}
	if seq == 0 {
		a.pending.Store(nil)
	} else {
		a.release(seq)
	}
	a.frameErrors.Add(1)
	a.logger.Debug("segmentation frame failed", "seq", seq, "error", err)
}

// Resize sets the canvas size. The next tick renders at the new size.
// Sizes outside the session limits return a *ConfigError.
func (a *App) Resize(width, height int) error {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()

	next := a.config.Session
	next.Width, next.Height = width, height
	if err := structError(validate.Struct(next)); err != nil {
		return err
	}

	a.session.Resize(width, height)
	a.config.Session = next
	a.logger.Info("canvas resized", "width", width, "height", height)
	return nil
}

// tick renders one frame at session time now and hands it to presenters.
func (a *App) tick(now time.Duration) {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()

	if !a.alive.Load() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("render tick failed", "panic", r)
		}
	}()

	in := Inputs{Result: a.slot.Load()}
	if f := a.lastCamera.Load(); f != nil {
		in.Camera = f.img
	}
	if a.analyzer != nil {
		in.Audio, in.AudioErr = a.analyzer.Analyze()
	}

	canvas := a.session.Step(now, in)
	stats := a.session.Stats()
	if a.analyzer != nil {
		stats.Energy = a.analyzer.Energy()
		stats.AudioChunks = a.analyzer.Chunks()
	}
	for _, p := range a.presenters {
		p.Present(canvas, stats)
	}
}

// stop ends Run without tearing down.
func (a *App) stop() {
	a.cancelMu.Lock()
	defer a.cancelMu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Shutdown stops the camera, waits for pending sends, releases the
// provider and audio, and closes presenters. Results arriving afterwards
// are dropped.
func (a *App) Shutdown() {
	a.once.Do(func() {
		a.alive.Store(false)
		a.stop()

		if a.camera != nil {
			if err := a.camera.Stop(); err != nil {
				a.logger.Warn("camera stop failed", "error", err)
			}
		}
		a.wg.Wait()

		if a.provider != nil {
			if err := a.provider.Close(); err != nil {
				a.logger.Warn("provider close failed", "error", err)
			}
		}
		if a.analyzer != nil {
			if err := a.analyzer.Stop(); err != nil {
				a.logger.Warn("audio stop failed", "error", err)
			}
		}

		a.renderMu.Lock()
		for _, p := range a.presenters {
			if err := p.Close(); err != nil {
				a.logger.Debug("presenter close failed", "error", err)
			}
		}
		a.renderMu.Unlock()

		c := a.Counters()
		a.logger.Info("body echo stopped",
			"frames", a.session.Stats().FrameCount,
			"sent", c.Sent,
			"dropped", c.Dropped,
			"results", c.Results,
		)
	})
}

// SessionID returns the id of this run, also announced to the sidecar.
func (a *App) SessionID() string {
	return a.sessionID
}

// CameraManager returns the runtime camera settings.
func (a *App) CameraManager() *camera.Manager {
	return a.cameraManager
}

// Counters returns a snapshot of the pipeline counters.
func (a *App) Counters() Counters {
	return Counters{
		Sent:         a.sent.Load(),
		Dropped:      a.dropped.Load(),
		SendErrors:   a.sendErrors.Load(),
		FrameErrors:  a.frameErrors.Load(),
		Results:      a.results.Load(),
		LateResults:  a.lateResults.Load(),
		StaleResults: a.staleResults.Load(),
	}
}

// SlotStats exposes the segmentation slot statistics.
func (a *App) SlotStats() segment.SlotStats {
	return a.slot.Stats()
}

// Snapshot returns the most recently encoded canvas as JPEG.
func (a *App) Snapshot() ([]byte, error) {
	p := a.snapshot.Load()
	if p == nil {
		return nil, ErrNoFrame
	}
	return *p, nil
}

func (a *App) storeSnapshot(data []byte) {
	a.snapshot.Store(&data)
}
