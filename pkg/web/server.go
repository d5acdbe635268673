// Package web provides the live dashboard for Body Echo
package web

import (
	"embed"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/body-echo/pkg/camera"
	"github.com/teslashibe/body-echo/pkg/hub"
)

//go:embed static
var staticFS embed.FS

// Status values reported to the dashboard
const (
	StatusLoading = "loading"
	StatusRunning = "running"
	StatusError   = "error"
)

// State is the installation state shown on the dashboard
type State struct {
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	SessionID  string  `json:"session_id"`
	Provider   string  `json:"provider"`
	Audio      bool    `json:"audio"`
	Mode       string  `json:"mode"`
	SpreadX    float64 `json:"spread_x"`
	SpreadY    float64 `json:"spread_y"`
	Volume     float64 `json:"volume"`
	Stars      int     `json:"stars"`
	Beats      int64   `json:"beats"`
	Path       string  `json:"path"`
	FrameCount uint64  `json:"frame_count"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Energy     float64 `json:"energy"`
	Chunks     int64   `json:"audio_chunks"`
	Sent       int64   `json:"sent"`
	Dropped    int64   `json:"dropped"`
	Failures   int64   `json:"failures"`
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	// State
	state   State
	stateMu sync.RWMutex

	camera *camera.Manager

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	canvasHub *hub.Hub

	// Snapshot callback, returns the latest canvas as JPEG
	OnSnapshot func() ([]byte, error)

	// Resize callback, sets the canvas size
	OnResize func(width, height int) error
}

// NewServer creates a new dashboard server listening on addr (":8080")
func NewServer(addr string, cam *camera.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:      addr,
		logger:    logger.With("component", "web"),
		state:     State{Status: StatusLoading},
		camera:    cam,
		statusHub: hub.New("status", logger),
		canvasHub: hub.New("canvas", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Body Echo",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/instructions", s.handleInstructions)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Get("/snapshot", s.handleSnapshot)
	api.Post("/canvas", s.handleResizeCanvas)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/canvas", websocket.New(s.handleCanvasWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	// Dashboard page
	app.Use("/", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFS),
		PathPrefix: "static",
		Index:      "index.html",
	}))

	go s.statusHub.Run()
	go s.canvasHub.Run()

	s.app = app
	return s
}

// Start starts the web server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "url", "http://localhost"+s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Warn("web server error", "error", err)
		}
	}()
}

// UpdateState updates the dashboard state and broadcasts it to clients
func (s *Server) UpdateState(update func(*State)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state // Copy for broadcast
	s.stateMu.Unlock()

	if err := s.statusHub.BroadcastJSON(state); err != nil {
		s.logger.Debug("status broadcast failed", "error", err)
	}
}

// SetStatus sets the outward status; msg is kept only for StatusError
func (s *Server) SetStatus(status, msg string) {
	s.UpdateState(func(st *State) {
		st.Status = status
		st.Error = ""
		if status == StatusError {
			st.Error = msg
		}
	})
}

// State returns a copy of the current state
func (s *Server) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// SendCanvasFrame sends an encoded canvas frame to all canvas viewers
func (s *Server) SendCanvasFrame(jpegData []byte) {
	s.canvasHub.BroadcastBinary(jpegData)
}

// CanvasViewers returns the number of connected canvas viewers
func (s *Server) CanvasViewers() int {
	return s.canvasHub.ClientCount()
}

// App exposes the fiber app, mainly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the web server and its hubs
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.canvasHub.Stop()
	return s.app.Shutdown()
}
