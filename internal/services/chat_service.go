package services

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/nliest/converse-be/internal/models"
)

// DefaultConversationTitle is used when a conversation is created without one.
const DefaultConversationTitle = "New Conversation"

// AddMessageParams carries everything needed to append one message.
type AddMessageParams struct {
	UserID         string
	ConversationID string
	Message        string
	Role           string
}

// ChatServiceProvider defines the interface for conversation persistence.
type ChatServiceProvider interface {
	CreateConversation(userID, title string) (models.Conversation, error)
	GetConversations(userID string) ([]models.Conversation, error)
	AddMessage(params AddMessageParams) (models.Message, error)
	GetMessages(conversationID, userID string) ([]models.Message, error)
	DeleteConversation(conversationID, userID string) error
	FindStalledConversations(grace time.Duration) ([]models.Message, error)
}

// ChatService provides business logic for conversations and their history.
type ChatService struct {
	db *sql.DB
}

// NewChatService creates a new ChatService.
func NewChatService(db *sql.DB) *ChatService {
	return &ChatService{db: db}
}

// CreateConversation inserts a new conversation owned by userID.
func (s *ChatService) CreateConversation(userID, title string) (models.Conversation, error) {
	if title == "" {
		title = DefaultConversationTitle
	}

	now := time.Now().UTC()
	conv := models.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stmt, err := s.db.Prepare("INSERT INTO conversations(id, user_id, title, created_at, updated_at) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return models.Conversation{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// GetConversations returns all conversations owned by userID, most recently
// updated first, each annotated with its message count.
func (s *ChatService) GetConversations(userID string) ([]models.Conversation, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM chat_history ch WHERE ch.conversation_id = c.id) AS message_count
		FROM conversations c
		WHERE c.user_id = ?
		ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// AddMessage appends a message and advances the parent conversation's
// updated_at. Both writes commit together; a reader never sees one without
// the other.
func (s *ChatService) AddMessage(params AddMessageParams) (models.Message, error) {
	now := time.Now().UTC()
	msg := models.Message{
		ID:             uuid.New().String(),
		UserID:         params.UserID,
		ConversationID: params.ConversationID,
		Message:        params.Message,
		Role:           params.Role,
		CreatedAt:      now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO chat_history(id, user_id, conversation_id, message, role, created_at) VALUES(?, ?, ?, ?, ?, ?)",
		msg.ID, msg.UserID, msg.ConversationID, msg.Message, msg.Role, msg.CreatedAt,
	)
	if err != nil {
		return models.Message{}, err
	}

	_, err = tx.Exec("UPDATE conversations SET updated_at = ? WHERE id = ?", now, msg.ConversationID)
	if err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetMessages returns a conversation's messages in creation order. Ownership
// is enforced by the join: a non-owner gets an empty result, never another
// user's history.
func (s *ChatService) GetMessages(conversationID, userID string) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT ch.id, ch.user_id, ch.conversation_id, ch.message, ch.role, ch.created_at
		FROM chat_history ch
		JOIN conversations c ON ch.conversation_id = c.id
		WHERE ch.conversation_id = ? AND c.user_id = ?
		ORDER BY ch.created_at ASC, ch.rowid ASC`, conversationID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.ConversationID, &msg.Message, &msg.Role, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteConversation removes a conversation and, through the cascade, all of
// its messages. "Doesn't exist" and "not yours" are one and the same error.
func (s *ChatService) DeleteConversation(conversationID, userID string) error {
	var id string
	row := s.db.QueryRow("SELECT id FROM conversations WHERE id = ? AND user_id = ?", conversationID, userID)
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	_, err := s.db.Exec("DELETE FROM conversations WHERE id = ? AND user_id = ?", conversationID, userID)
	return err
}

// FindStalledConversations returns the newest message of every conversation
// whose history ends with a user turn older than the grace period. Those are
// user messages whose completion call never produced a reply.
func (s *ChatService) FindStalledConversations(grace time.Duration) ([]models.Message, error) {
	cutoff := time.Now().UTC().Add(-grace)
	rows, err := s.db.Query(`
		SELECT ch.id, ch.user_id, ch.conversation_id, ch.message, ch.role, ch.created_at
		FROM chat_history ch
		WHERE ch.rowid IN (
			SELECT MAX(rowid) FROM chat_history GROUP BY conversation_id
		)
		AND ch.role = ? AND ch.created_at < ?`, models.RoleUser, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stalled := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.ConversationID, &msg.Message, &msg.Role, &msg.CreatedAt); err != nil {
			return nil, err
		}
		stalled = append(stalled, msg)
	}
	return stalled, rows.Err()
}
