package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/nliest/converse-be/internal/auth"
	ws "github.com/nliest/converse-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades authenticated HTTP connections to websockets
// receiving live chat and system events.
type WebSocketHandler struct {
	hub    *ws.Hub
	tokens *auth.TokenService
	users  auth.UserLookup
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub, tokens *auth.TokenService, users auth.UserLookup) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, tokens: tokens, users: users}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (consider tightening this in production).
		return true
	},
}

// Serve authenticates the request and handles the websocket connection.
// Browsers cannot set headers on websocket dials, so the token may arrive
// as a "token" query parameter instead.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	tokenStr := auth.BearerToken(r)
	if tokenStr == "" {
		respondError(w, http.StatusUnauthorized, "Authentication required. No token provided.")
		return
	}

	claims, err := h.tokens.Verify(tokenStr)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token.")
		return
	}

	user, err := h.users.GetUserByID(claims.UserID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid token. User not found.")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, user.ID)
	h.hub.Register <- client

	go client.WritePump()
	go func() {
		// The event feed is one-way; anything a client sends back is
		// rejected.
		client.ReadPump(func(c *ws.Client, message []byte) {
			c.Send <- ws.NewErrorMessage("This endpoint does not accept messages")
		})
		h.hub.Unregister <- client
	}()
}
