package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/barachat/domain/chat"
	"github.com/example/barachat/events"
)

// Module persists broadcast envelopes and answers history queries. Appends
// are best-effort: a failed write is logged and dropped, never retried and
// never surfaced to the broadcast path.
type Module struct {
	db     *gorm.DB
	repo   *MessageRepository
	dbPath string
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new history module.
func NewModule(dbPath string, moduleLogger types.Logger) *Module {
	return &Module{
		dbPath: dbPath,
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "history"
}

// Start opens the message store.
func (m *Module) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&chat.Message{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.repo = NewMessageRepository(db)
	m.logger.Info("History module started", "database", m.dbPath)
	return nil
}

// Stop closes the message store.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	m.logger.Info("History module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"database": m.dbPath},
	}
}

// RegisterEventConsumers subscribes to broadcast events so every fanned-out
// envelope lands in the store.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageBroadcastV1, m.handleMessageBroadcast, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageBroadcast consumer: %w", err)
	}
	m.logger.Info("Registered history event consumers")
	return nil
}

func (m *Module) handleMessageBroadcast(_ context.Context, event events.MessageBroadcastEvent, _ *mono.Msg) error {
	env := event.Envelope
	if env.Kind == chat.KindHeartbeat || env.Kind == chat.KindSignaling {
		return nil
	}

	msg := &chat.Message{
		ID:        event.MessageID,
		Room:      env.Room,
		Username:  env.User,
		Content:   env.Text,
		Kind:      env.Kind,
		FileURL:   env.FileURL,
		Timestamp: env.Timestamp,
	}
	if err := m.repo.Append(msg); err != nil {
		m.logger.Warn("Failed to append message", "room", env.Room, "error", err)
	}
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRecent, json.Unmarshal, json.Marshal, m.handleRecent,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRecent, err)
	}
	return nil
}

func (m *Module) handleRecent(_ context.Context, req RecentRequest, _ *mono.Msg) (RecentResponse, error) {
	messages, err := m.repo.Recent(req.Room, req.Limit)
	if err != nil {
		return RecentResponse{}, err
	}
	return RecentResponse{Room: req.Room, Messages: messages}, nil
}
