package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nliest/converse-be/internal/auth"
	"github.com/nliest/converse-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for registration, login and profiles.
type UserHandler struct {
	users  services.UserServiceProvider
	tokens *auth.TokenService
	events services.EventServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserServiceProvider, tokens *auth.TokenService, events services.EventServiceProvider) *UserHandler {
	return &UserHandler{users: users, tokens: tokens, events: events}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Username == "" || payload.Email == "" || payload.Password == "" {
		respondError(w, http.StatusBadRequest, "Username, email, and password are required")
		return
	}

	user, err := h.users.CreateUser(payload.Username, payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			respondError(w, http.StatusBadRequest, "Username already exists")
		case errors.Is(err, services.ErrEmailTaken):
			respondError(w, http.StatusBadRequest, "Email already exists")
		default:
			log.Error().Err(err).Str("username", payload.Username).Msg("Failed to register user")
			respondError(w, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	if err := h.events.CreateEvent("user.registered", "info", "user "+user.Username+" registered", nil); err != nil {
		log.Error().Err(err).Msg("Failed to record registration event")
	}

	respondData(w, http.StatusCreated, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// Login handles user authentication and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Username == "" || payload.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.users.AuthenticateUser(payload.Username, payload.Password)
	if err != nil {
		log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
		respondError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// GetProfile returns the authenticated user attached by the auth middleware.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"user": user,
	})
}
