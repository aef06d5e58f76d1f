package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/barachat/domain/chat"
)

// Module stores uploaded files on local disk and their metadata in the
// database. Byte transfer happens through the Service reference handed to
// the HTTP layer; only metadata queries go over the service container.
type Module struct {
	db        *gorm.DB
	store     *DiskStore
	service   *Service
	dbPath    string
	uploadDir string
	maxSize   int64
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new files module.
func NewModule(dbPath, uploadDir string, maxSize int64, moduleLogger types.Logger) *Module {
	return &Module{
		dbPath:    dbPath,
		uploadDir: uploadDir,
		maxSize:   maxSize,
		logger:    moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "files"
}

// Service returns the file service for direct wiring into the HTTP layer.
// Valid after Start.
func (m *Module) Service() *Service {
	return m.service
}

// Start prepares the storage directory and metadata store.
func (m *Module) Start(_ context.Context) error {
	m.store = NewDiskStore(m.uploadDir, m.maxSize)
	if err := m.store.Init(); err != nil {
		return err
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&chat.File{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewService(m.store, NewFileRepository(db))
	m.logger.Info("Files module started", "dir", m.uploadDir, "max_size", m.maxSize)
	return nil
}

// Stop closes the metadata store.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	m.logger.Info("Files module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "storage not initialized"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"dir":      m.uploadDir,
			"max_size": m.maxSize,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListFiles, json.Unmarshal, json.Marshal, m.handleListFiles,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListFiles, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceFileInfo, json.Unmarshal, json.Marshal, m.handleFileInfo,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceFileInfo, err)
	}
	return nil
}

func (m *Module) handleListFiles(_ context.Context, req ListFilesRequest, _ *mono.Msg) (ListFilesResponse, error) {
	records, err := m.service.ListByRoom(req.Room, req.Limit)
	if err != nil {
		return ListFilesResponse{}, err
	}
	resp := ListFilesResponse{Room: req.Room, Files: make([]FileInfo, 0, len(records))}
	for i := range records {
		resp.Files = append(resp.Files, toFileInfo(&records[i]))
	}
	return resp, nil
}

func (m *Module) handleFileInfo(_ context.Context, req FileInfoRequest, _ *mono.Msg) (FileInfoResponse, error) {
	record, err := m.service.repo.FindByStoredName(req.StoredName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return FileInfoResponse{Found: false}, nil
		}
		return FileInfoResponse{}, err
	}
	return FileInfoResponse{Found: true, File: toFileInfo(record)}, nil
}

func toFileInfo(f *chat.File) FileInfo {
	return FileInfo{
		ID:           f.ID,
		StoredName:   f.StoredName,
		OriginalName: f.OriginalName,
		Size:         f.Size,
		ContentType:  f.ContentType,
		Uploader:     f.UploaderUsername,
		Room:         f.Room,
		UploadedAt:   f.UploadedAt,
	}
}
