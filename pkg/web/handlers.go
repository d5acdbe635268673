package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/body-echo/pkg/camera"
	"github.com/teslashibe/body-echo/pkg/gesture"
	"github.com/teslashibe/body-echo/pkg/hub"
)

// Instruction describes one pose and the echo effect it produces
type Instruction struct {
	Mode   string `json:"mode"`
	Pose   string `json:"pose"`
	Effect string `json:"effect"`
}

// Pose guide shown to visitors
var instructions = []Instruction{
	{Mode: gesture.Neutral.String(), Pose: "Stand naturally", Effect: "Echoes nest around your body"},
	{Mode: gesture.Horizontal.String(), Pose: "Spread your arms to the sides", Effect: "Echoes split left and right"},
	{Mode: gesture.Vertical.String(), Pose: "Raise both hands above your head", Effect: "Echoes stack up and down"},
}

// handleStatus returns the current installation state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.State())
}

// handleInstructions returns the pose guide
func (s *Server) handleInstructions(c *fiber.Ctx) error {
	return c.JSON(instructions)
}

// handleGetCamera returns the capture config
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "camera not configured"})
	}
	return c.JSON(s.camera.View())
}

// handleUpdateCamera applies a partial capture config update
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "camera not configured"})
	}

	var update camera.Update
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	if err := s.camera.Apply(update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.camera.View())
}

// Canvas is the body of a canvas resize request
type Canvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// handleResizeCanvas sets the rendered canvas size
func (s *Server) handleResizeCanvas(c *fiber.Ctx) error {
	if s.OnResize == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "resize not configured"})
	}

	var req Canvas
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := s.OnResize(req.Width, req.Height); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.UpdateState(func(st *State) {
		st.Width, st.Height = req.Width, req.Height
	})
	return c.JSON(req)
}

// handleSnapshot returns the latest canvas as a JPEG
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	if s.OnSnapshot == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "snapshot not configured"})
	}
	data, err := s.OnSnapshot()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(data)
}

// handleCanvasWS streams rendered canvas frames as binary JPEG messages
func (s *Server) handleCanvasWS(c *websocket.Conn) {
	hub.NewClient(s.canvasHub, c).Run()
}

// handleStatusWS streams state updates; the current state is pushed to the
// new viewer on connect
func (s *Server) handleStatusWS(c *websocket.Conn) {
	var greeting []hub.Message
	if msg, err := hub.EncodeJSON(s.State()); err != nil {
		s.logger.Debug("status encode failed", "error", err)
	} else {
		greeting = append(greeting, msg)
	}
	hub.NewClient(s.statusHub, c, greeting...).Run()
}
