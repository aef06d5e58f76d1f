package history

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/barachat/domain/chat"
)

func setupTestRepo(t *testing.T) *MessageRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&chat.Message{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewMessageRepository(db)
}

func appendMessages(t *testing.T, repo *MessageRepository, room string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		msg := &chat.Message{
			ID:        uuid.New().String(),
			Room:      room,
			Username:  "alice",
			Content:   fmt.Sprintf("message %d", i),
			Kind:      chat.KindText,
			Timestamp: float64(1000 + i),
		}
		if err := repo.Append(msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
}

func TestRepository_RecentChronologicalOrder(t *testing.T) {
	repo := setupTestRepo(t)
	appendMessages(t, repo, "general", 10)

	messages, err := repo.Recent("general", 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(messages) != 5 {
		t.Fatalf("Recent() returned %d messages, want 5", len(messages))
	}

	// Last 5 of 10, oldest first.
	for i, msg := range messages {
		want := fmt.Sprintf("message %d", 5+i)
		if msg.Content != want {
			t.Errorf("messages[%d].Content = %q, want %q", i, msg.Content, want)
		}
	}
}

func TestRepository_RecentRoomIsolation(t *testing.T) {
	repo := setupTestRepo(t)
	appendMessages(t, repo, "general", 3)
	appendMessages(t, repo, "random", 2)

	messages, err := repo.Recent("general", 50)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("Recent(general) returned %d messages, want 3", len(messages))
	}
	for _, msg := range messages {
		if msg.Room != "general" {
			t.Errorf("message from room %q leaked into general history", msg.Room)
		}
	}
}

func TestRepository_RecentLimits(t *testing.T) {
	repo := setupTestRepo(t)
	appendMessages(t, repo, "general", 3)

	// Zero and negative limits fall back to the default.
	messages, err := repo.Recent("general", 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(messages) != 3 {
		t.Errorf("Recent(limit=0) returned %d messages, want 3", len(messages))
	}

	messages, err = repo.Recent("general", -5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(messages) != 3 {
		t.Errorf("Recent(limit=-5) returned %d messages, want 3", len(messages))
	}
}

func TestRepository_RecentEmptyRoom(t *testing.T) {
	repo := setupTestRepo(t)

	messages, err := repo.Recent("nowhere", 50)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("Recent(empty room) returned %d messages, want 0", len(messages))
	}
}
