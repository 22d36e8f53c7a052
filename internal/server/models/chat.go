package models

import "time"

// Message roles.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

const DefaultChatTitle = "New Chat"

func ValidMessageRole(role string) bool {
	switch role {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return true
	}
	return false
}

type Message struct {
	ID        string
	ChatID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Chat is a conversation owned by one user. Messages is only populated by
// lookups that load the full conversation.
type Chat struct {
	ID        string
	UserID    string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatSummary is a chat list row.
type ChatSummary struct {
	ID           string
	Title        string
	MessageCount int
	LastMessage  *Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
