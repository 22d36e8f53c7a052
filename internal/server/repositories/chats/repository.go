// Package chats stores conversations and their messages. Two backends
// implement Repository: PostgreSQL (chats + chat_messages tables) and
// MongoDB (one document per chat with embedded messages).
package chats

import (
	"context"

	"github.com/dmitrijs2005/docchat/internal/server/models"
)

// Repository operations are always scoped by the owning user; a chat that
// exists but belongs to someone else is reported as common.ErrorNotFound.
// Each method is atomic on its own.
type Repository interface {
	// Create stores a chat together with its first message.
	Create(ctx context.Context, userID, title string, first models.Message) (*models.Chat, error)
	// ListByUser returns summaries ordered by last activity, newest first.
	ListByUser(ctx context.Context, userID string) ([]*models.ChatSummary, error)
	// Get returns the chat with all messages in insertion order.
	Get(ctx context.Context, userID, chatID string) (*models.Chat, error)
	UpdateTitle(ctx context.Context, userID, chatID, title string) error
	// AppendMessage adds msg to the chat and bumps its activity time.
	AppendMessage(ctx context.Context, userID, chatID string, msg models.Message) (*models.Message, error)
	Delete(ctx context.Context, userID, chatID string) error
	DeleteByUser(ctx context.Context, userID string) error
}
