package domain

import (
	"time"

	"github.com/google/uuid"
)

type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
	FileTypeOther    FileType = "other"
)

// FailedUploadPath is stored in place of a storage key when the blob never
// reached object storage. The row still exists so the user sees the file.
const FailedUploadPath = "upload-failed"

type MessageAttachment struct {
	ID          uuid.UUID `json:"id"`
	MessageID   uuid.UUID `json:"message_id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	FileType    FileType  `json:"file_type"`
	MimeType    string    `json:"mime_type"`
	StoragePath string    `json:"storage_path"`
	PreviewPath *string   `json:"preview_path,omitempty"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *MessageAttachment) UploadFailed() bool {
	return a.StoragePath == FailedUploadPath
}
