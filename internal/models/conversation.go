package models

import "time"

// Conversation is a titled thread of messages owned by a single user.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message roles. Messages are immutable once written; their lifetime is
// bound to the parent conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation's history.
type Message struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	Message        string    `json:"message"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}
