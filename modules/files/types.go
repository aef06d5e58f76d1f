package files

import "time"

// Service container service names.
const (
	ServiceListFiles = "list-files"
	ServiceFileInfo  = "file-info"
)

// ListFilesRequest asks for recent uploads in a room.
type ListFilesRequest struct {
	Room  string `json:"room"`
	Limit int    `json:"limit,omitempty"`
}

// FileInfo is upload metadata without the bytes.
type FileInfo struct {
	ID           string    `json:"id"`
	StoredName   string    `json:"stored_name"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	Uploader     string    `json:"uploader"`
	Room         string    `json:"room"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// ListFilesResponse carries upload metadata, newest first.
type ListFilesResponse struct {
	Room  string     `json:"room"`
	Files []FileInfo `json:"files"`
}

// FileInfoRequest looks up one upload by stored name.
type FileInfoRequest struct {
	StoredName string `json:"stored_name"`
}

// FileInfoResponse carries one upload's metadata. Found is false when no
// record exists.
type FileInfoResponse struct {
	Found bool     `json:"found"`
	File  FileInfo `json:"file,omitempty"`
}
