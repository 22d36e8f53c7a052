package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/server/services"
	"github.com/gin-gonic/gin"
)

const msgDocumentNotFound = "Document not found"

// multipartOverhead is allowed on top of the file size for the other form
// parts and boundaries.
const multipartOverhead = 1 << 20

func (h *Handler) listDocuments(c *gin.Context) {
	list, err := h.documents.List(c.Request.Context(), claims(c).UserID)
	if err != nil {
		respondError(c, err, msgDocumentNotFound)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"documents": toDocumentDTOs(list)}, "")
}

func (h *Handler) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)

	var in services.Upload
	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, err, "")
			return
		}
		respondError(c, common.NewValidationError("file", "Invalid upload"), "")
		return
	default:
		f, err := fh.Open()
		if err != nil {
			respondError(c, err, "")
			return
		}
		defer f.Close()

		in = services.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}
	}
	in.ChatID = c.PostForm("chatId")

	doc, err := h.documents.Upload(c.Request.Context(), claims(c).UserID, in)
	if err != nil {
		respondError(c, err, msgDocumentNotFound)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"document": toDocumentDTO(doc)}, "Document uploaded successfully")
}

func (h *Handler) getDocument(c *gin.Context) {
	doc, url, err := h.documents.Get(c.Request.Context(), claims(c).UserID, c.Param("id"))
	if err != nil {
		respondError(c, err, msgDocumentNotFound)
		return
	}
	dto := toDocumentDTO(doc)
	dto.SignedURL = url
	respondOK(c, http.StatusOK, gin.H{"document": dto}, "")
}

func (h *Handler) deleteDocument(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), claims(c).UserID, c.Param("id")); err != nil {
		respondError(c, err, msgDocumentNotFound)
		return
	}
	respondOK(c, http.StatusOK, nil, "Document deleted successfully")
}

var _ Documents = (*services.DocumentService)(nil)
