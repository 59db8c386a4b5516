package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// notification is a message targeted at one user's clients.
type notification struct {
	userID string
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// All map and channel-close operations happen on the Run goroutine; other
// goroutines talk to the hub only through its channels.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Messages for global broadcast.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Targeted notifications from request goroutines.
	notify chan notification

	// A map of user IDs to the set of clients authenticated as that user.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		notify:        make(chan notification),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client, client.UserID)
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscription(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case message := <-h.Broadcast:
			h.deliverAll(message)
		case n := <-h.notify:
			h.deliverTo(n.userID, n.data)
		}
	}
}

// NotifyUser marshals an action envelope and delivers it to the user's
// connected clients. Safe to call from any goroutine; delivery runs on the
// hub goroutine. Implements the services.Notifier interface.
func (h *Hub) NotifyUser(userID, action string, payload interface{}) {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket notification")
		return
	}
	h.notify <- notification{userID: userID, data: data}
}

// NotifyAll marshals an action envelope and broadcasts it to every
// connected client.
func (h *Hub) NotifyAll(action string, payload interface{}) {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket broadcast")
		return
	}
	h.Broadcast <- data
}

// deliverAll sends a message to every client. Run goroutine only.
func (h *Hub) deliverAll(message []byte) {
	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(h.clients, client)
			h.removeSubscription(client)
		}
	}
}

// deliverTo sends a message to every client authenticated as userID. Run
// goroutine only.
func (h *Hub) deliverTo(userID string, message []byte) {
	for client := range h.subscriptions[userID] {
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(h.clients, client)
			delete(h.subscriptions[userID], client)
		}
	}
}

func (h *Hub) addSubscription(client *Client, userID string) {
	if h.subscriptions[userID] == nil {
		h.subscriptions[userID] = make(map[*Client]bool)
	}
	h.subscriptions[userID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for userID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, userID)
			}
		}
	}
}
