package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/barachat/events"
	"github.com/example/barachat/modules/auth"
	"github.com/example/barachat/modules/broadcast"
	"github.com/example/barachat/modules/files"
	"github.com/example/barachat/modules/history"
)

// Config holds the HTTP surface settings.
type Config struct {
	Addr        string
	CertFile    string
	KeyFile     string
	MaxFileSize int64
}

// Module is the HTTP and WebSocket surface: auth endpoints, uploads,
// downloads, history queries, and the chat stream gateway.
type Module struct {
	app            *fiber.App
	cfg            Config
	authAdapter    auth.AuthPort
	historyAdapter history.HistoryPort
	filesMeta      files.MetaPort
	filesModule    *files.Module
	filesService   *files.Service
	registry       *broadcast.Registry
	hub            *broadcast.Hub
	eventBus       mono.EventBus
	logger         types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new api Module.
func NewModule(cfg Config, moduleLogger types.Logger) *Module {
	return &Module{cfg: cfg, logger: moduleLogger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"auth", "history", "files"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authAdapter = auth.NewAdapter(container)
	case "history":
		m.historyAdapter = history.NewAdapter(container)
	case "files":
		m.filesMeta = files.NewAdapter(container)
	}
}

// SetEventBus receives the event bus from the application.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageBroadcastV1.ToBase(),
	}
}

// SetHub sets the broadcast hub (called from main.go).
func (m *Module) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// SetRegistry sets the connection registry (called from main.go).
func (m *Module) SetRegistry(registry *broadcast.Registry) {
	m.registry = registry
}

// SetFilesModule wires the files module for direct byte transfer (called
// from main.go). Uploads and downloads bypass the service container so
// large payloads never cross the message bus. The service itself is
// resolved at Start, after the files module has opened its storage.
func (m *Module) SetFilesModule(mod *files.Module) {
	m.filesModule = mod
}

// Start initializes the Fiber HTTP server.
func (m *Module) Start(_ context.Context) error {
	if m.authAdapter == nil {
		return fmt.Errorf("auth adapter dependency not set")
	}
	if m.historyAdapter == nil {
		return fmt.Errorf("history adapter dependency not set")
	}
	if m.hub == nil || m.registry == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}
	if m.filesModule == nil {
		return fmt.Errorf("files module dependency not set")
	}
	m.filesService = m.filesModule.Service()
	if m.filesService == nil {
		return fmt.Errorf("file service not initialized")
	}

	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		// Leave headroom for the multipart framing around a max-size file.
		BodyLimit:    int(m.cfg.MaxFileSize) + 1<<20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Next: func(c *fiber.Ctx) bool {
			return c.Get("Upgrade") == "websocket"
		},
	}))
	m.app.Use(cors.New())

	m.setupRoutes()

	// Surface immediate bind failures instead of logging them from a
	// goroutine after Start already returned success.
	errCh := make(chan error, 1)
	go func() {
		if m.cfg.CertFile != "" && m.cfg.KeyFile != "" {
			errCh <- m.app.ListenTLS(m.cfg.Addr, m.cfg.CertFile, m.cfg.KeyFile)
		} else {
			errCh <- m.app.Listen(m.cfg.Addr)
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.cfg.Addr, "tls", m.cfg.CertFile != "")
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr":        m.cfg.Addr,
			"connections": m.registry.ConnCount(),
		},
	}
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(ErrorResponse{Error: message})
}
