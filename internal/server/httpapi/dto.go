package httpapi

import (
	"time"

	"github.com/dmitrijs2005/docchat/internal/server/models"
	"github.com/dmitrijs2005/docchat/internal/server/storage"
)

type userDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserDTO(u *models.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
}

func toUserDTOs(in []*models.User) []userDTO {
	out := make([]userDTO, 0, len(in))
	for _, u := range in {
		out = append(out, toUserDTO(u))
	}
	return out
}

type messageDTO struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func toMessageDTO(m models.Message) messageDTO {
	return messageDTO{ID: m.ID, Role: m.Role, Content: m.Content, Timestamp: m.CreatedAt}
}

type chatDTO struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Title     string       `json:"title"`
	Messages  []messageDTO `json:"messages"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func toChatDTO(c *models.Chat) chatDTO {
	msgs := make([]messageDTO, 0, len(c.Messages))
	for _, m := range c.Messages {
		msgs = append(msgs, toMessageDTO(m))
	}
	return chatDTO{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		Messages:  msgs,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type chatSummaryDTO struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	MessageCount int         `json:"messageCount"`
	LastMessage  *messageDTO `json:"lastMessage"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func toChatSummaryDTOs(in []*models.ChatSummary) []chatSummaryDTO {
	out := make([]chatSummaryDTO, 0, len(in))
	for _, s := range in {
		d := chatSummaryDTO{
			ID:           s.ID,
			Title:        s.Title,
			MessageCount: s.MessageCount,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
		}
		if s.LastMessage != nil {
			m := toMessageDTO(*s.LastMessage)
			d.LastMessage = &m
		}
		out = append(out, d)
	}
	return out
}

type documentDTO struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ChatID        string    `json:"chatId,omitempty"`
	OriginalName  string    `json:"originalName"`
	FileSize      int64     `json:"fileSize"`
	MimeType      string    `json:"mimeType"`
	S3Key         string    `json:"s3Key"`
	Status        string    `json:"status"`
	ExtractedText string    `json:"extractedText,omitempty"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	SignedURL     string    `json:"signedUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toDocumentDTO(d *models.Document) documentDTO {
	return documentDTO{
		ID:            d.ID,
		UserID:        d.UserID,
		ChatID:        d.ChatID,
		OriginalName:  d.FileName,
		FileSize:      d.Size,
		MimeType:      d.ContentType,
		S3Key:         d.StorageKey,
		Status:        d.Status,
		ExtractedText: d.ExtractedText,
		ErrorMessage:  d.Error,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func toDocumentDTOs(in []*models.Document) []documentDTO {
	out := make([]documentDTO, 0, len(in))
	for _, d := range in {
		out = append(out, toDocumentDTO(d))
	}
	return out
}

type blobDTO struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

func toBlobDTOs(in []storage.Object) []blobDTO {
	out := make([]blobDTO, 0, len(in))
	for _, o := range in {
		out = append(out, blobDTO{Key: o.Key, Size: o.Size, LastModified: o.LastModified})
	}
	return out
}
