package web

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-rover/pkg/command"
	"github.com/teslashibe/go-rover/pkg/controller"
	"github.com/teslashibe/go-rover/pkg/gesture"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/wifi"
)

// scanTimeout bounds a Wi-Fi scan started from the page.
const scanTimeout = 15 * time.Second

type addressRequest struct {
	Address string `json:"address"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type strategyRequest struct {
	Strategy string `json:"strategy"`
}

type driveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// withController rejects requests until a controller is attached.
func (s *Server) withController(c *fiber.Ctx) (*controller.Controller, error) {
	ctrl := s.controller()
	if ctrl == nil {
		return nil, errorJSON(c, fiber.StatusServiceUnavailable, errors.New("controller not ready"))
	}
	return ctrl, nil
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctrl, err := s.withController(c)
	if ctrl == nil {
		return err
	}
	return c.JSON(ctrl.State())
}

func (s *Server) handleSetAddress(c *fiber.Ctx) error {
	ctrl, err := s.withController(c)
	if ctrl == nil {
		return err
	}
	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	if err := ctrl.SetAddress(req.Address); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	return c.JSON(ctrl.State())
}

func (s *Server) handleSetMode(c *fiber.Ctx) error {
	ctrl, err := s.withController(c)
	if ctrl == nil {
		return err
	}
	var req modeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	mode, err := gesture.ParseMode(req.Mode)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	ctrl.SetMode(mode)
	return c.JSON(ctrl.State())
}

func (s *Server) handleToggleMode(c *fiber.Ctx) error {
	ctrl, err := s.withController(c)
	if ctrl == nil {
		return err
	}
	ctrl.ToggleMode()
	return c.JSON(ctrl.State())
}

func (s *Server) handleSetStrategy(c *fiber.Ctx) error {
	ctrl, err := s.withController(c)
	if ctrl == nil {
		return err
	}
	var req strategyRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	strategy, err := gesture.ParseStrategy(req.Strategy)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	ctrl.SetStrategy(strategy)
	return c.JSON(ctrl.State())
}

func (s *Server) handleCommand(c *fiber.Ctx) error {
	ctrl, err := s.withController(c)
	if ctrl == nil {
		return err
	}
	dir, err := command.ParseDirection(c.Params("direction"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	cmd := command.Label(dir)
	id := ctrl.Send(cmd)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":      id,
		"command": cmd.String(),
		"path":    cmd.RequestPath(),
	})
}

func (s *Server) handleDrive(c *fiber.Ctx) error {
	ctrl, err := s.withController(c)
	if ctrl == nil {
		return err
	}
	var req driveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	cmd := ctrl.Clamp(command.Move(req.X, req.Y))
	id := ctrl.Send(cmd)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":      id,
		"command": cmd.String(),
		"path":    cmd.RequestPath(),
	})
}

func (s *Server) handleNetworks(c *fiber.Ctx) error {
	ctrl, err := s.withController(c)
	if ctrl == nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	networks, err := ctrl.Networks(ctx)
	switch {
	case errors.Is(err, controller.ErrNoScanner):
		return errorJSON(c, fiber.StatusNotImplemented, err)
	case errors.Is(err, wifi.ErrPermissionDenied):
		return errorJSON(c, fiber.StatusForbidden, err)
	case err != nil:
		return errorJSON(c, fiber.StatusBadGateway, err)
	}
	if networks == nil {
		networks = []string{}
	}
	return c.JSON(fiber.Map{"networks": networks})
}

// handleStatusWS streams state snapshots and alerts to a page.
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	client := hub.NewClient(s.statusHub, conn, nil)
	client.Run()
}

// handleControlWS receives gestures from a page.
func (s *Server) handleControlWS(conn *websocket.Conn) {
	client := hub.NewClient(s.controlHub, conn, s.handleControlMessage)
	client.Run()
}

// handleControlMessage applies one inbound gesture frame.
func (s *Server) handleControlMessage(c *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.replyError(c, err)
		return
	}
	ctrl := s.controller()
	if ctrl == nil && msg.Type != protocol.TypePing {
		s.replyError(c, errors.New("controller not ready"))
		return
	}

	switch msg.Type {
	case protocol.TypeMove:
		var move protocol.MoveData
		if err := msg.ParseData(&move); err != nil {
			s.replyError(c, err)
			return
		}
		ctrl.HandleMove(move.DX, move.DY)

	case protocol.TypeRelease:
		ctrl.HandleRelease()

	case protocol.TypePress:
		var press protocol.PressData
		if err := msg.ParseData(&press); err != nil {
			s.replyError(c, err)
			return
		}
		if _, _, err := ctrl.HandlePress(press.Direction); err != nil {
			s.replyError(c, err)
		}

	case protocol.TypeMode:
		var mode protocol.ModeData
		if err := msg.ParseData(&mode); err != nil {
			s.replyError(c, err)
			return
		}
		m, err := gesture.ParseMode(mode.Mode)
		if err != nil {
			s.replyError(c, err)
			return
		}
		ctrl.SetMode(m)

	case protocol.TypePing:
		pong, err := protocol.NewPongMessage(msg.Timestamp)
		if err != nil {
			return
		}
		s.reply(c, pong)

	default:
		s.logger.Debug("ignoring control message", "type", msg.Type)
		s.replyError(c, errors.New("unsupported message type: "+string(msg.Type)))
	}
}

func (s *Server) replyError(c *hub.Client, err error) {
	msg, encErr := protocol.NewErrorMessage(err.Error())
	if encErr != nil {
		return
	}
	s.reply(c, msg)
}

func (s *Server) reply(c *hub.Client, msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	if !c.Reply(hub.NewJSONMessage(data)) {
		s.logger.Warn("control reply dropped", "type", msg.Type)
	}
}
