package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server/backend"
	"github.com/dmitrijs2005/docchat/internal/server/models"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/chats"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docchat/internal/server/storage"
	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of an upload is inspected to detect its real type.
const sniffLen = 3072

// allowedUploadTypes maps accepted declared types to the type the content
// must be detected as.
var allowedUploadTypes = map[string]string{
	"image/jpeg":      "image/jpeg",
	"image/jpg":       "image/jpeg",
	"image/png":       "image/png",
	"image/webp":      "image/webp",
	"application/pdf": "application/pdf",
}

// Upload is a file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	ChatID      string
	Body        io.Reader
}

// DocumentService stores uploaded files and tracks their OCR processing.
type DocumentService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	chats         chats.Repository
	blobs         storage.BlobStore
	backend       backend.Backend
	maxUploadSize int64
	presignTTL    time.Duration
	logger        logging.Logger
}

func NewDocumentService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	chatRepo chats.Repository,
	blobs storage.BlobStore,
	b backend.Backend,
	maxUploadSize int64,
	presignTTL time.Duration,
	logger logging.Logger,
) *DocumentService {
	return &DocumentService{
		db:            db,
		repomanager:   m,
		chats:         chatRepo,
		blobs:         blobs,
		backend:       b,
		maxUploadSize: maxUploadSize,
		presignTTL:    presignTTL,
		logger:        logger.With("module", "services.documents"),
	}
}

func (s *DocumentService) List(ctx context.Context, userID string) ([]*models.Document, error) {
	return s.repomanager.Documents(s.db).ListByUser(ctx, userID)
}

// Upload stores the file, records it as pending and submits it for OCR.
// A failed submission leaves the document pending.
func (s *DocumentService) Upload(ctx context.Context, userID string, in Upload) (*models.Document, error) {
	if in.Body == nil || in.FileName == "" {
		return nil, common.NewValidationError("file", "File is required")
	}
	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	want, ok := allowedUploadTypes[contentType]
	if !ok {
		return nil, common.NewValidationError("file", "Invalid file type. Only images and PDFs are allowed")
	}
	if in.Size > s.maxUploadSize {
		return nil, common.NewValidationError("file", fmt.Sprintf("File size must be less than %dMB", s.maxUploadSize>>20))
	}

	body, err := sniff(in.Body, want)
	if err != nil {
		return nil, err
	}

	if in.ChatID != "" {
		if !validID(in.ChatID) {
			return nil, common.NewValidationError("chatId", "Chat not found")
		}
		if _, err := s.chats.Get(ctx, userID, in.ChatID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.NewValidationError("chatId", "Chat not found")
			}
			return nil, err
		}
	}

	key := storage.NewObjectKey(userID, in.FileName, contentType)
	meta := map[string]string{"user-id": userID, "original-name": in.FileName}
	if err := s.blobs.Put(ctx, key, body, in.Size, contentType, meta); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	repo := s.repomanager.Documents(s.db)
	doc, err := repo.Create(ctx, &models.Document{
		UserID:      userID,
		ChatID:      in.ChatID,
		FileName:    in.FileName,
		ContentType: contentType,
		Size:        in.Size,
		StorageKey:  key,
		Status:      models.DocumentStatusPending,
	})
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Error(ctx, "orphaned blob", "key", key, "error", derr)
		}
		return nil, err
	}

	jobID, err := s.backend.Submit(ctx, backend.Job{
		Kind:        backend.JobOCR,
		UserID:      userID,
		DocumentID:  doc.ID,
		StorageKey:  key,
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Warn(ctx, "ocr submission failed", "document_id", doc.ID, "error", err)
		return doc, nil
	}

	doc.Status = models.DocumentStatusProcessing
	doc.JobID = jobID
	if err := repo.UpdateProcessing(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "document uploaded", "document_id", doc.ID, "job_id", jobID, "size", in.Size)
	return doc, nil
}

// Get returns the document and a presigned download URL. A document whose
// OCR job is in flight has its status refreshed first.
func (s *DocumentService) Get(ctx context.Context, userID, id string) (*models.Document, string, error) {
	if !validID(id) {
		return nil, "", common.ErrorNotFound
	}

	repo := s.repomanager.Documents(s.db)
	doc, err := repo.Get(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}

	if doc.Status == models.DocumentStatusProcessing && doc.JobID != "" {
		s.refresh(ctx, doc)
	}

	url, err := s.blobs.PresignGet(ctx, doc.StorageKey, s.presignTTL)
	if err != nil {
		return nil, "", fmt.Errorf("presign %s: %w", doc.StorageKey, err)
	}
	return doc, url, nil
}

// refresh polls the OCR job once. Backend problems leave doc unchanged.
func (s *DocumentService) refresh(ctx context.Context, doc *models.Document) {
	res, err := s.backend.Poll(ctx, doc.JobID)
	if err != nil {
		s.logger.Warn(ctx, "ocr status poll failed", "document_id", doc.ID, "job_id", doc.JobID, "error", err)
		return
	}

	switch res.Status {
	case backend.StatusCompleted:
		doc.Status = models.DocumentStatusCompleted
		doc.ExtractedText = res.Output
	case backend.StatusFailed:
		doc.Status = models.DocumentStatusFailed
		doc.Error = res.Error
	default:
		return
	}

	if err := s.repomanager.Documents(s.db).UpdateProcessing(ctx, doc); err != nil {
		s.logger.Error(ctx, "ocr status update failed", "document_id", doc.ID, "error", err)
	}
}

// Delete removes the stored file, then the record.
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}

	repo := s.repomanager.Documents(s.db)
	doc, err := repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil {
		return fmt.Errorf("delete blob %s: %w", doc.StorageKey, err)
	}
	return repo.Delete(ctx, userID, id)
}

// sniff checks that the start of r is content of type want and returns a
// reader that yields all of r again.
func sniff(r io.Reader, want string) (io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	if !mimetype.Detect(head).Is(want) {
		return nil, common.NewValidationError("file", "File content does not match its type")
	}
	return io.MultiReader(bytes.NewReader(head), r), nil
}
