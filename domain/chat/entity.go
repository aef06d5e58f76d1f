package chat

import (
	"strings"
	"time"
)

// Envelope kinds carried on the wire.
const (
	KindText      = "text"
	KindFile      = "file"
	KindSystem    = "system"
	KindSignaling = "signaling"
	KindHeartbeat = "heartbeat"
	KindError     = "error"
)

// Validation limits carried over from the wire protocol.
const (
	MaxUsernameLength = 32
	MaxRoomNameLength = 64
)

// DefaultRoom is the room a connection joins when none is named.
const DefaultRoom = "general"

// Envelope is one discrete protocol message unit. The timestamp is stamped
// server-side at receipt, in float seconds; a client-supplied timestamp is
// discarded. File messages carry structured fields instead of the legacy
// "[FILE] name - url" text convention.
type Envelope struct {
	Kind      string  `json:"type"`
	Room      string  `json:"room"`
	User      string  `json:"user"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp,omitempty"`
	FileURL   string  `json:"file_url,omitempty"`
	FileName  string  `json:"file_name,omitempty"`
	IsImage   bool    `json:"is_image,omitempty"`
}

// Now returns the current wall clock as wire-format float seconds.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

const legacyFilePrefix = "[FILE] "

// EncodeLegacyFileText renders the legacy text form of a file message, kept
// for peers that predate structured file fields.
func EncodeLegacyFileText(name, url string) string {
	return legacyFilePrefix + name + " - " + url
}

// DecodeLegacyFileText recovers filename and URL from a legacy
// "[FILE] <name> - <url>" text payload. ok is false when the text does not
// follow the convention.
func DecodeLegacyFileText(text string) (name, url string, ok bool) {
	if !strings.HasPrefix(text, legacyFilePrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(text, legacyFilePrefix)
	i := strings.LastIndex(rest, " - ")
	if i <= 0 {
		return "", "", false
	}
	name = rest[:i]
	url = rest[i+3:]
	if url == "" {
		return "", "", false
	}
	return name, url, true
}

// User is a registered account.
type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"uniqueIndex;not null;type:text"`
	Email        string `gorm:"type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Message is a persisted chat message. Appended best-effort; the broadcast
// path never depends on it.
type Message struct {
	ID        string  `gorm:"primaryKey;type:text"`
	Room      string  `gorm:"index;not null;type:text"`
	Username  string  `gorm:"not null;type:text"`
	Content   string  `gorm:"type:text"`
	Kind      string  `gorm:"type:text"`
	FileURL   string  `gorm:"type:text"`
	Timestamp float64 `gorm:"index"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// File records metadata for an uploaded file.
type File struct {
	ID               string `gorm:"primaryKey;type:text"`
	StoredName       string `gorm:"uniqueIndex;not null;type:text"`
	OriginalName     string `gorm:"not null;type:text"`
	Size             int64
	ContentType      string `gorm:"type:text"`
	UploaderID       string `gorm:"type:text"`
	UploaderUsername string `gorm:"type:text"`
	Room             string `gorm:"index;type:text"`
	UploadedAt       time.Time
}

// TableName returns the table name for the File entity.
func (File) TableName() string {
	return "files"
}

// Claims is the identity carried by a verified bearer token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
