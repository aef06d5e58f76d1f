package history

import (
	"gorm.io/gorm"

	"github.com/example/barachat/domain/chat"
)

// DefaultLimit is how many messages a history query returns when the caller
// does not say.
const DefaultLimit = 50

// MaxLimit caps history queries.
const MaxLimit = 1000

// MessageRepository persists chat messages using GORM.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append stores one message.
func (r *MessageRepository) Append(msg *chat.Message) error {
	return r.db.Create(msg).Error
}

// Recent returns the last limit messages for room in chronological order.
func (r *MessageRepository) Recent(room string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var messages []chat.Message
	result := r.db.Where("room = ?", room).
		Order("timestamp desc").
		Limit(limit).
		Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}

	// Query returns newest-first; flip to chronological for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
