package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/barachat/domain/chat"
)

// HistoryPort is the interface other modules use to query stored messages.
type HistoryPort interface {
	Recent(ctx context.Context, room string, limit int) ([]chat.Message, error)
}

// Adapter implements HistoryPort using the service container.
type Adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a new history Adapter.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	return &Adapter{container: container}
}

// Recent returns the last limit messages for room in chronological order.
func (a *Adapter) Recent(ctx context.Context, room string, limit int) ([]chat.Message, error) {
	req := RecentRequest{Room: room, Limit: limit}
	var resp RecentResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceRecent, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("recent-history request failed: %w", err)
	}
	return resp.Messages, nil
}
