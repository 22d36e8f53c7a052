package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server/backend"
	"github.com/dmitrijs2005/docchat/internal/server/models"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/chats"
)

// ChatService manages a user's conversations and asks the RAG backend for
// assistant replies.
type ChatService struct {
	chats        chats.Repository
	backend      backend.Backend
	pollInterval time.Duration
	replyTimeout time.Duration
	logger       logging.Logger
}

func NewChatService(repo chats.Repository, b backend.Backend, pollInterval, replyTimeout time.Duration, logger logging.Logger) *ChatService {
	return &ChatService{
		chats:        repo,
		backend:      b,
		pollInterval: pollInterval,
		replyTimeout: replyTimeout,
		logger:       logger.With("module", "services.chats"),
	}
}

// ChatUpdate carries the optional fields of an update. Empty values are
// left alone; Role defaults to user when Message is set.
type ChatUpdate struct {
	Title   string
	Message string
	Role    string
}

// Reply is the outcome of SendMessage.
type Reply struct {
	Message string
	Chat    *models.Chat
}

func (s *ChatService) List(ctx context.Context, userID string) ([]*models.ChatSummary, error) {
	return s.chats.ListByUser(ctx, userID)
}

// Create starts a chat with message as its first user message.
func (s *ChatService) Create(ctx context.Context, userID, title, message string) (*models.Chat, error) {
	if strings.TrimSpace(message) == "" {
		return nil, common.NewValidationError("message", "Message is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultChatTitle
	}

	chat, err := s.chats.Create(ctx, userID, title, models.Message{
		Role:    models.MessageRoleUser,
		Content: message,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "chat created", "user_id", userID, "chat_id", chat.ID)
	return chat, nil
}

func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	if !validID(chatID) {
		return nil, common.ErrorNotFound
	}
	return s.chats.Get(ctx, userID, chatID)
}

// Update renames the chat and/or appends a message, then returns the
// resulting chat.
func (s *ChatService) Update(ctx context.Context, userID, chatID string, upd ChatUpdate) (*models.Chat, error) {
	if !validID(chatID) {
		return nil, common.ErrorNotFound
	}

	role := upd.Role
	if role == "" {
		role = models.MessageRoleUser
	}
	if upd.Message != "" && !models.ValidMessageRole(role) {
		return nil, common.NewValidationError("role", "Role must be user, assistant or system")
	}

	if title := strings.TrimSpace(upd.Title); title != "" {
		if err := s.chats.UpdateTitle(ctx, userID, chatID, title); err != nil {
			return nil, err
		}
	}
	if upd.Message != "" {
		if _, err := s.chats.AppendMessage(ctx, userID, chatID, models.Message{Role: role, Content: upd.Message}); err != nil {
			return nil, err
		}
	}

	return s.chats.Get(ctx, userID, chatID)
}

func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	if !validID(chatID) {
		return common.ErrorNotFound
	}
	return s.chats.Delete(ctx, userID, chatID)
}

// SendMessage stores message as a user turn, waits for the backend's answer
// and stores it as an assistant turn. When the backend fails or does not
// answer within the reply timeout the user turn stays and the error wraps
// common.ErrorBackendUnavailable.
func (s *ChatService) SendMessage(ctx context.Context, userID, chatID, message, documentID string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, common.NewValidationError("message", "Message is required")
	}
	if !validID(chatID) {
		return nil, common.ErrorNotFound
	}

	if _, err := s.chats.AppendMessage(ctx, userID, chatID, models.Message{
		Role:    models.MessageRoleUser,
		Content: message,
	}); err != nil {
		return nil, err
	}

	answer, err := s.ask(ctx, backend.Job{
		Kind:       backend.JobChat,
		UserID:     userID,
		ChatID:     chatID,
		DocumentID: documentID,
		Message:    message,
	})
	if err != nil {
		s.logger.Error(ctx, "assistant reply failed", "chat_id", chatID, "error", err)
		return nil, err
	}

	if _, err := s.chats.AppendMessage(ctx, userID, chatID, models.Message{
		Role:    models.MessageRoleAssistant,
		Content: answer,
	}); err != nil {
		return nil, err
	}

	chat, err := s.chats.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	return &Reply{Message: answer, Chat: chat}, nil
}

func (s *ChatService) ask(ctx context.Context, job backend.Job) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	defer cancel()

	jobID, err := s.backend.Submit(ctx, job)
	if err != nil {
		return "", unavailable(err)
	}

	res, err := backend.Await(ctx, s.backend, jobID, s.pollInterval)
	if err != nil {
		return "", unavailable(err)
	}
	if res.Status == backend.StatusFailed {
		return "", fmt.Errorf("%w: job %s failed: %s", common.ErrorBackendUnavailable, jobID, res.Error)
	}
	return res.Output, nil
}

func unavailable(err error) error {
	if errors.Is(err, common.ErrorBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrorBackendUnavailable, err)
}
