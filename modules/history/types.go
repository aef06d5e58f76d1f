package history

import "github.com/example/barachat/domain/chat"

// ServiceRecent is the container service name for history queries.
const ServiceRecent = "recent-history"

// RecentRequest asks for the last Limit messages of a room.
type RecentRequest struct {
	Room  string `json:"room"`
	Limit int    `json:"limit,omitempty"`
}

// RecentResponse carries messages in chronological order.
type RecentResponse struct {
	Room     string         `json:"room"`
	Messages []chat.Message `json:"messages"`
}
