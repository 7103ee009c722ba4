// Package web serves the rover control page, its REST API and the
// control/status websockets.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/controller"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

//go:embed static
var staticFiles embed.FS

// Server is the control-page server.
type Server struct {
	app    *fiber.App
	listen string
	logger *slog.Logger

	ctrlMu sync.RWMutex
	ctrl   *controller.Controller

	// statusHub fans state and alerts out to every page
	statusHub *hub.Hub
	// controlHub tracks gesture connections
	controlHub *hub.Hub

	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithGatherer sets the registry served at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRequestLog enables fiber's access log.
func WithRequestLog() Option {
	return func(s *Server) {
		s.app.Use(logger.New())
	}
}

// NewServer creates the server. Attach a controller before Start.
func NewServer(listen string, opts ...Option) *Server {
	s := &Server{
		listen:     listen,
		logger:     log.Component("web"),
		statusHub:  hub.New("status"),
		controlHub: hub.New("control"),
		gatherer:   prometheus.DefaultGatherer,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-rover",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	s.app = app

	for _, opt := range opts {
		opt(s)
	}

	s.statusHub.OnRegister(s.stateMessage)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Put("/address", s.handleSetAddress)
	api.Put("/mode", s.handleSetMode)
	api.Post("/mode/toggle", s.handleToggleMode)
	api.Put("/strategy", s.handleSetStrategy)
	api.Post("/command/:direction", s.handleCommand)
	api.Post("/drive", s.handleDrive)
	api.Get("/networks", s.handleNetworks)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/control", websocket.New(s.handleControlWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	sub, err := fs.Sub(staticFiles, "static")
	if err == nil {
		app.Use("/", filesystem.New(filesystem.Config{
			Root:  http.FS(sub),
			Index: "index.html",
		}))
	}

	go s.statusHub.Run()
	go s.controlHub.Run()

	return s
}

// Attach wires the controller and forwards its state changes to pages.
func (s *Server) Attach(ctrl *controller.Controller) {
	s.ctrlMu.Lock()
	s.ctrl = ctrl
	s.ctrlMu.Unlock()

	ctrl.Subscribe(func(st controller.State) {
		s.broadcast(protocol.TypeState, st)
	})
}

// Alert implements alert.Notifier by pushing the alert to every page.
func (s *Server) Alert(title, message string) {
	msg, err := protocol.NewAlertMessage(title, message)
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	s.statusHub.Broadcast(hub.NewJSONMessage(data))
}

// App returns the fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("control page listening", "addr", s.listen)
	return s.app.Listen(s.listen)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the web server and its hubs.
func (s *Server) Shutdown() error {
	s.statusHub.Close()
	s.controlHub.Close()
	return s.app.Shutdown()
}

func (s *Server) controller() *controller.Controller {
	s.ctrlMu.RLock()
	defer s.ctrlMu.RUnlock()
	return s.ctrl
}

func (s *Server) broadcast(t protocol.MessageType, v interface{}) {
	msg, err := protocol.NewMessage(t, v)
	if err != nil {
		s.logger.Error("encode broadcast", "type", t, "error", err)
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	s.statusHub.Broadcast(hub.NewJSONMessage(data))
}

// stateMessage builds the current state for newly connected pages.
func (s *Server) stateMessage() (hub.Message, bool) {
	ctrl := s.controller()
	if ctrl == nil {
		return hub.Message{}, false
	}
	msg, err := protocol.NewMessage(protocol.TypeState, ctrl.State())
	if err != nil {
		return hub.Message{}, false
	}
	data, err := msg.Bytes()
	if err != nil {
		return hub.Message{}, false
	}
	return hub.NewJSONMessage(data), true
}
