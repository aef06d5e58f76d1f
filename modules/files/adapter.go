package files

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// MetaPort is the interface other modules use for upload metadata. Byte
// transfer does not go through here; the HTTP layer holds the Service
// directly so large files never cross the message bus.
type MetaPort interface {
	ListByRoom(ctx context.Context, room string, limit int) ([]FileInfo, error)
	Info(ctx context.Context, storedName string) (*FileInfo, error)
}

// Adapter implements MetaPort using the service container.
type Adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a new files Adapter.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	return &Adapter{container: container}
}

// ListByRoom returns recent upload metadata for a room, newest first.
func (a *Adapter) ListByRoom(ctx context.Context, room string, limit int) ([]FileInfo, error) {
	req := ListFilesRequest{Room: room, Limit: limit}
	var resp ListFilesResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceListFiles, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("list-files request failed: %w", err)
	}
	return resp.Files, nil
}

// Info looks up one upload by stored name. Returns ErrNotFound when no
// record exists.
func (a *Adapter) Info(ctx context.Context, storedName string) (*FileInfo, error) {
	req := FileInfoRequest{StoredName: storedName}
	var resp FileInfoResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceFileInfo, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("file-info request failed: %w", err)
	}
	if !resp.Found {
		return nil, ErrNotFound
	}
	return &resp.File, nil
}
