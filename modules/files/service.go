package files

import (
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/barachat/domain/chat"
)

// UploadInput describes one incoming upload.
type UploadInput struct {
	OriginalName     string
	ContentType      string
	Room             string
	UploaderID       string
	UploaderUsername string
	Reader           io.Reader
}

// Service stores uploads on disk and records their metadata.
type Service struct {
	store *DiskStore
	repo  *FileRepository
}

// NewService creates a new file service.
func NewService(store *DiskStore, repo *FileRepository) *Service {
	return &Service{store: store, repo: repo}
}

// Upload saves one file and returns its metadata record. The record is
// written after the bytes land, so a failed disk write leaves no row behind.
func (s *Service) Upload(in UploadInput) (*chat.File, error) {
	storedName, size, err := s.store.Save(in.OriginalName, in.Reader)
	if err != nil {
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(in.OriginalName))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	record := &chat.File{
		ID:               uuid.New().String(),
		StoredName:       storedName,
		OriginalName:     sanitizeName(in.OriginalName),
		Size:             size,
		ContentType:      contentType,
		UploaderID:       in.UploaderID,
		UploaderUsername: in.UploaderUsername,
		Room:             in.Room,
		UploadedAt:       time.Now(),
	}
	if err := s.repo.Create(record); err != nil {
		s.store.Remove(storedName)
		return nil, err
	}
	return record, nil
}

// Open returns the stored bytes and metadata for a download. Metadata is
// optional: files present on disk but missing a row are still served.
func (s *Service) Open(storedName string) (io.ReadCloser, *chat.File, error) {
	rc, err := s.store.Open(storedName)
	if err != nil {
		return nil, nil, err
	}
	record, err := s.repo.FindByStoredName(storedName)
	if err != nil {
		record = nil
	}
	return rc, record, nil
}

// ListByRoom returns recent upload records for a room.
func (s *Service) ListByRoom(room string, limit int) ([]chat.File, error) {
	return s.repo.ListByRoom(room, limit)
}

// MaxSize returns the per-file size cap in bytes.
func (s *Service) MaxSize() int64 {
	return s.store.MaxSize()
}

// IsImage reports whether a filename looks like an inline-renderable image.
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return true
	}
	return false
}
