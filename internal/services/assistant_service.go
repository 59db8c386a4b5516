package services

import (
	"context"
	"fmt"

	"github.com/nliest/converse-be/internal/llm"
	"github.com/nliest/converse-be/internal/models"
	"github.com/rs/zerolog/log"
)

// systemPrompt is the fixed instruction prepended to every completion call.
const systemPrompt = "You are a helpful assistant."

// Notifier pushes live events to a user's connected clients. A nil notifier
// is valid and drops every notification.
type Notifier interface {
	NotifyUser(userID, action string, payload interface{})
}

// AssistantServiceProvider defines the interface for the chat orchestrator.
type AssistantServiceProvider interface {
	SendMessage(ctx context.Context, userID, conversationID, text string) (models.Message, error)
}

// AssistantService coordinates a single send-message exchange: load history,
// persist the user's turn, call the completion API, persist the reply.
type AssistantService struct {
	chat      ChatServiceProvider
	events    EventServiceProvider
	completer llm.Completer
	notifier  Notifier
}

// NewAssistantService creates a new AssistantService.
func NewAssistantService(chat ChatServiceProvider, events EventServiceProvider, completer llm.Completer, notifier Notifier) *AssistantService {
	return &AssistantService{
		chat:      chat,
		events:    events,
		completer: completer,
		notifier:  notifier,
	}
}

// SendMessage runs one exchange and returns the stored assistant reply.
//
// The user's message is persisted before the completion call, so an upstream
// failure still leaves it durably recorded. The two writes are deliberately
// independent: a conversation whose history ends in a user turn is a known,
// accepted state that the maintenance janitor reports on later.
func (s *AssistantService) SendMessage(ctx context.Context, userID, conversationID, text string) (models.Message, error) {
	if text == "" {
		return models.Message{}, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if conversationID == "" {
		return models.Message{}, fmt.Errorf("%w: conversation ID is required", ErrValidation)
	}

	// Ownership-filtered: a non-owner sees an empty history here and the
	// exchange lands in a conversation they cannot read back.
	history, err := s.chat.GetMessages(conversationID, userID)
	if err != nil {
		return models.Message{}, err
	}

	prompt := make([]llm.Message, 0, len(history)+2)
	prompt = append(prompt, llm.Message{Role: models.RoleSystem, Content: systemPrompt})
	for _, msg := range history {
		prompt = append(prompt, llm.Message{Role: msg.Role, Content: msg.Message})
	}
	prompt = append(prompt, llm.Message{Role: models.RoleUser, Content: text})

	userMsg, err := s.chat.AddMessage(AddMessageParams{
		UserID:         userID,
		ConversationID: conversationID,
		Message:        text,
		Role:           models.RoleUser,
	})
	if err != nil {
		return models.Message{}, err
	}
	s.notify(userID, userMsg)

	reply, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("Completion call failed")
		if evErr := s.events.CreateEvent("chat.completion.fail", "error", err.Error(), &conversationID); evErr != nil {
			log.Error().Err(evErr).Msg("Failed to record completion failure event")
		}
		return models.Message{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	assistantMsg, err := s.chat.AddMessage(AddMessageParams{
		UserID:         userID,
		ConversationID: conversationID,
		Message:        reply.Content,
		Role:           reply.Role,
	})
	if err != nil {
		return models.Message{}, err
	}
	s.notify(userID, assistantMsg)

	return assistantMsg, nil
}

func (s *AssistantService) notify(userID string, msg models.Message) {
	if s.notifier != nil {
		s.notifier.NotifyUser(userID, "chat.message", msg)
	}
}
