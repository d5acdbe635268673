// Body Echo - gesture and beat reactive silhouette echoes
// Segments the body from a live camera feed and renders layered echoes,
// a volume halo and beat stars at 30fps.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/body-echo/internal/config"
	"github.com/teslashibe/body-echo/internal/log"
	"github.com/teslashibe/body-echo/pkg/audioio"
	"github.com/teslashibe/body-echo/pkg/echo"
)

func main() {
	flags := newFlags(flag.CommandLine, echo.DefaultConfig())
	flag.Parse()
	cfg := flags.config(flag.CommandLine)

	envErr := config.LoadDotEnv(*flags.env)
	cfg.LoadEnvConfig()
	flags.apply(&cfg)

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log.Init(log.FromEnv(level))
	logger := log.For("main")

	if envErr != nil {
		logger.Error("failed to load env file", "file", *flags.env, "error", envErr)
		os.Exit(1)
	}

	app, err := echo.New(cfg, log.For("echo"))
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		var initErr *echo.InitError
		if errors.As(err, &initErr) && cfg.WebAddr != "" {
			// Keep the dashboard up so the error is visible until restart
			logger.Error("initialization failed, dashboard shows the error until interrupted", "error", err)
			<-ctx.Done()
		}
		app.Shutdown()
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	if err := app.Run(ctx); err != nil {
		logger.Error("runtime error", "error", err)
	}
}

// cliFlags are the command line flags. Explicit ones win over env.
type cliFlags struct {
	set map[string]bool

	env          *string
	debug        *bool
	debugGesture *bool
	logLevel     *string
	provider     *string
	camera       *string
	device       *string
	sidecar      *string
	model        *string
	audio        *bool
	backend      *string
	web          *string
	fps          *int
	seed         *int64
	window       *bool
	fullscreen   *bool
	noMirror     *bool
}

// newFlags registers the flags on fs with defaults from cfg.
func newFlags(fs *flag.FlagSet, cfg echo.Config) *cliFlags {
	return &cliFlags{
		set:          map[string]bool{},
		env:          fs.String("env", ".env", "Path to a .env file (missing is fine)"),
		debug:        fs.Bool("debug", false, "Enable verbose debug logging"),
		debugGesture: fs.Bool("debug-gesture", false, "Log gesture transitions"),
		logLevel:     fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error"),
		provider:     fs.String("provider", cfg.Provider, "Segmentation provider: remote, dnn, synthetic"),
		camera:       fs.String("camera", cfg.Camera, "Camera source: gocv, mock"),
		device:       fs.String("device", cfg.Capture.Device, "Camera device index or video file"),
		sidecar:      fs.String("sidecar", cfg.Remote.URL, "Pose sidecar websocket URL (provider=remote)"),
		model:        fs.String("model", cfg.DNN.ModelPath, "ONNX selfie segmentation model (provider=dnn)"),
		audio:        fs.Bool("audio", false, "Enable microphone beat analysis"),
		backend:      fs.String("audio-backend", string(cfg.AudioInput.Backend), "Audio backend: auto, command, mock"),
		web:          fs.String("web", cfg.WebAddr, "Dashboard listen address, empty to disable"),
		fps:          fs.Int("fps", cfg.FrameRate, "Render frame rate"),
		seed:         fs.Int64("seed", cfg.Session.Seed, "Random seed for star placement"),
		window:       fs.Bool("window", false, "Show a local preview window"),
		fullscreen:   fs.Bool("fullscreen", false, "Make the preview window fullscreen"),
		noMirror:     fs.Bool("no-mirror", false, "Do not mirror the camera feed"),
	}
}

// config builds the configuration from a parsed fs. Call apply again after
// loading the environment.
func (f *cliFlags) config(fs *flag.FlagSet) echo.Config {
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	cfg := echo.DefaultConfig()
	cfg.Debug, cfg.DebugGesture = *f.debug, *f.debugGesture
	cfg.Window, cfg.Fullscreen = *f.window || *f.fullscreen, *f.fullscreen
	f.apply(&cfg)
	return cfg
}

// apply reapplies explicit flags.
func (f *cliFlags) apply(cfg *echo.Config) {
	if f.set["log-level"] {
		cfg.LogLevel = *f.logLevel
	}
	if f.set["provider"] {
		cfg.Provider = *f.provider
	}
	if f.set["camera"] {
		cfg.Camera = *f.camera
	}
	if f.set["device"] {
		cfg.Capture.Device = *f.device
	}
	if f.set["sidecar"] {
		cfg.Remote.URL = *f.sidecar
	}
	if f.set["model"] {
		cfg.DNN.ModelPath = *f.model
	}
	if f.set["audio"] {
		cfg.Audio = *f.audio
	}
	if f.set["audio-backend"] {
		cfg.AudioInput.Backend = audioio.Backend(*f.backend)
	}
	if f.set["web"] {
		cfg.WebAddr = *f.web
	}
	if f.set["fps"] {
		cfg.FrameRate = *f.fps
		cfg.Capture.Framerate = *f.fps
	}
	if f.set["seed"] {
		cfg.Session.Seed = *f.seed
	}
	if f.set["no-mirror"] {
		cfg.Capture.Mirror = !*f.noMirror
	}
}
