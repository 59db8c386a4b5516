package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nliest/converse-be/internal/auth"
	"github.com/nliest/converse-be/internal/services"
	"github.com/rs/zerolog/log"
)

// ChatHandler handles HTTP requests for conversations and messages.
type ChatHandler struct {
	chat      services.ChatServiceProvider
	assistant services.AssistantServiceProvider
	events    services.EventServiceProvider
	notifier  services.Notifier
	dev       bool
}

// NewChatHandler creates a new ChatHandler. dev controls whether upstream
// failure details reach the client.
func NewChatHandler(chat services.ChatServiceProvider, assistant services.AssistantServiceProvider, events services.EventServiceProvider, notifier services.Notifier, dev bool) *ChatHandler {
	return &ChatHandler{chat: chat, assistant: assistant, events: events, notifier: notifier, dev: dev}
}

// CreateConversationPayload defines the structure for conversation creation.
type CreateConversationPayload struct {
	Title string `json:"title"`
}

// SendMessagePayload defines the structure for send requests.
type SendMessagePayload struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// CreateConversation starts a new conversation for the authenticated user.
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	// Title is optional; an empty body is fine, but a malformed one is not.
	var payload CreateConversationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conversation, err := h.chat.CreateConversation(user.ID, payload.Title)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create conversation")
		respondError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	respondData(w, http.StatusCreated, map[string]interface{}{
		"conversation": conversation,
	})
}

// GetConversations lists the authenticated user's conversations.
func (h *ChatHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	conversations, err := h.chat.GetConversations(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list conversations")
		respondError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"conversations": conversations,
	})
}

// GetMessages returns a conversation's history. A conversation that doesn't
// exist or belongs to someone else yields an empty list, never a hint that
// it exists.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	conversationID := chi.URLParam(r, "conversationId")
	messages, err := h.chat.GetMessages(conversationID, user.ID)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to load messages")
		respondError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// DeleteConversation removes a conversation and its history.
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	conversationID := chi.URLParam(r, "conversationId")
	if err := h.chat.DeleteConversation(conversationID, user.ID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Conversation not found or not owned by user")
			return
		}
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to delete conversation")
		respondError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}

	if err := h.events.CreateEvent("conversation.deleted", "info", "conversation deleted by owner", &conversationID); err != nil {
		log.Error().Err(err).Msg("Failed to record deletion event")
	}
	if h.notifier != nil {
		h.notifier.NotifyUser(user.ID, "conversation.deleted", map[string]string{"conversationId": conversationID})
	}

	respondMessage(w, http.StatusOK, "Conversation deleted successfully")
}

// SendMessage runs one user/assistant exchange.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	var payload SendMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Message == "" {
		respondError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if payload.ConversationID == "" {
		respondError(w, http.StatusBadRequest, "Conversation ID is required")
		return
	}

	reply, err := h.assistant.SendMessage(r.Context(), user.ID, payload.ConversationID, payload.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			respondError(w, http.StatusBadRequest, "Message and conversation ID are required")
		case errors.Is(err, services.ErrUpstream):
			log.Error().Err(err).Str("conversation_id", payload.ConversationID).Msg("Upstream completion failure")
			msg := "The assistant is currently unavailable"
			if h.dev {
				msg = err.Error()
			}
			respondError(w, http.StatusBadGateway, msg)
		default:
			log.Error().Err(err).Str("conversation_id", payload.ConversationID).Msg("Failed to send message")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"message": reply.Message,
		"role":    reply.Role,
	})
}
