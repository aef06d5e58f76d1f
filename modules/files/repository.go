package files

import (
	"errors"

	"gorm.io/gorm"

	"github.com/example/barachat/domain/chat"
)

// FileRepository persists upload metadata using GORM.
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository.
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create stores one file record.
func (r *FileRepository) Create(f *chat.File) error {
	return r.db.Create(f).Error
}

// FindByStoredName looks up a file record by its on-disk name.
func (r *FileRepository) FindByStoredName(storedName string) (*chat.File, error) {
	var f chat.File
	result := r.db.Where("stored_name = ?", storedName).First(&f)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &f, nil
}

// ListByRoom returns the most recent file records for a room, newest first.
func (r *FileRepository) ListByRoom(room string, limit int) ([]chat.File, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []chat.File
	result := r.db.Where("room = ?", room).
		Order("uploaded_at desc").
		Limit(limit).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}
