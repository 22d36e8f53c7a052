package models

import "time"

// Document processing statuses.
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// Document is the metadata of an uploaded file. The content lives in
// object storage under StorageKey.
type Document struct {
	ID            string
	UserID        string
	ChatID        string
	FileName      string
	ContentType   string
	Size          int64
	StorageKey    string
	Status        string
	JobID         string
	ExtractedText string
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
