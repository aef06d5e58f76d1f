package broadcast

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the connection registry and broadcast hub. The gateway module
// receives both through setters in main.go; injecting them (rather than
// sharing package-level state) keeps instances independent for tests.
type Module struct {
	registry  *Registry
	hub       *Hub
	cancelHub context.CancelFunc
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new broadcast module.
func NewModule(logger types.Logger) *Module {
	registry := NewRegistry()
	return &Module{
		registry: registry,
		hub:      NewHub(registry, logger),
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start launches the hub run loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Broadcast hub running")
	return nil
}

// Stop shuts the hub down and waits for the run loop to exit.
func (m *Module) Stop(_ context.Context) error {
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	m.logger.Info("Broadcast hub stopped", "connections", m.registry.ConnCount())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections": m.registry.ConnCount(),
			"rooms":       m.registry.RoomCount(),
		},
	}
}

// Registry returns the connection registry for the gateway module.
func (m *Module) Registry() *Registry {
	return m.registry
}

// Hub returns the broadcast hub for the gateway module.
func (m *Module) Hub() *Hub {
	return m.hub
}
