// Package documents declares the repository for uploaded document metadata.
package documents

import (
	"context"

	"github.com/dmitrijs2005/docchat/internal/server/models"
)

// Repository persists document metadata. Reads and deletes are scoped by
// the owning user; other users' documents are common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Document, error)
	Get(ctx context.Context, userID, id string) (*models.Document, error)
	// UpdateProcessing stores Status, JobID, ExtractedText and Error of doc.
	UpdateProcessing(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, userID, id string) error
}
