package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/persona/pkg/chat"
	"github.com/papercomputeco/persona/pkg/logger"
	"github.com/papercomputeco/persona/pkg/metrics"
)

// Server is the persona HTTP API.
type Server struct {
	config Config
	chat   *chat.Orchestrator
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server around an orchestrator.
func NewServer(config Config, orch *chat.Orchestrator, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		chat:   orch,
		logger: log,
		app:    app,
	}

	app.Use(recover.New())
	app.Use(s.observe)

	app.Get("/ping", s.handlePing)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// The same handlers answer with and without the /api prefix, since some
	// hosts strip it before forwarding.
	for _, prefix := range []string{"/api/chat", "/chat"} {
		app.Get(prefix, s.handleStatus)
		app.Post(prefix, s.handleChat)
	}

	if config.DebugRoutes {
		app.Get("/api/chat/sessions/:id", s.handleTranscript)
	}

	app.Use(s.handleNotFound)

	return s
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"debug_routes", s.config.DebugRoutes,
		"model_configured", s.chat.Configured(),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// observe records request count and latency per matched route.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	route := c.Route().Path
	if status == fiber.StatusNotFound {
		route = "unmatched"
	}

	metrics.RecordHTTP(c.Method(), route, status, time.Since(start))
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
	)

	return err
}
